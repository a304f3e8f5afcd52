package processor

import (
	"chessduel/internal/board"
	"chessduel/internal/core"
	"chessduel/internal/game"
)

// CommandType defines the type of command being executed
type CommandType int

const (
	CmdCreateGame CommandType = iota
	CmdImportGame
	CmdGetGame
	CmdDeleteGame
	CmdAct
	CmdMakeMove
	CmdGetBoard
	CmdLegalMoves
	CmdExportGame
)

// Command is a unified structure for all processor operations
type Command struct {
	Type   CommandType
	Seat   board.Color // Seat of the token holder; NoColor acts for both
	GameID string      // For game-specific commands
	Args   any         // Command-specific arguments
}

// ProcessorResponse wraps the response with metadata
type ProcessorResponse struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Error   *core.ErrorResponse `json:"error,omitempty"`
}

func NewCreateGameCommand(req core.CreateGameRequest) Command {
	return Command{
		Type: CmdCreateGame,
		Args: req,
	}
}

func NewImportGameCommand(req core.ImportGameRequest) Command {
	return Command{
		Type: CmdImportGame,
		Args: req,
	}
}

func NewGetGameCommand(gameID string) Command {
	return Command{
		Type:   CmdGetGame,
		GameID: gameID,
	}
}

func NewDeleteGameCommand(gameID string) Command {
	return Command{
		Type:   CmdDeleteGame,
		GameID: gameID,
	}
}

func NewActCommand(gameID string, seat board.Color, actions []game.Action) Command {
	return Command{
		Type:   CmdAct,
		Seat:   seat,
		GameID: gameID,
		Args:   actions,
	}
}

func NewMakeMoveCommand(gameID string, seat board.Color, req core.MoveRequest) Command {
	return Command{
		Type:   CmdMakeMove,
		Seat:   seat,
		GameID: gameID,
		Args:   req,
	}
}

func NewGetBoardCommand(gameID string) Command {
	return Command{
		Type:   CmdGetBoard,
		GameID: gameID,
	}
}

func NewLegalMovesCommand(gameID string, square board.Square) Command {
	return Command{
		Type:   CmdLegalMoves,
		GameID: gameID,
		Args:   square,
	}
}

func NewExportGameCommand(gameID string) Command {
	return Command{
		Type:   CmdExportGame,
		GameID: gameID,
	}
}
