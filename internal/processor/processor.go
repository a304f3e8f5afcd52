package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"
	"unicode"

	"chessduel/internal/board"
	"chessduel/internal/core"
	"chessduel/internal/engine"
	"chessduel/internal/game"
	"chessduel/internal/service"
)

const (
	queueWorkers = 4
	queueBacklog = 256
)

// FEN validation regex; move counters are optional
var fenPattern = regexp.MustCompile(`^[rnbqkpRNBQKP1-8/]+ [wb] [KQkq-]+ [a-h1-8-]+( \d+ \d+)?$`)

// Processor handles command execution between the HTTP layer and the service
type Processor struct {
	svc   *service.Service
	queue *CommandQueue
}

// New creates a processor with its own command queue
func New(svc *service.Service) *Processor {
	p := &Processor{svc: svc}
	p.queue = NewCommandQueue(queueWorkers, queueBacklog, p.Execute)
	return p
}

// Submit runs cmd on the worker pool and waits for the result
func (p *Processor) Submit(ctx context.Context, cmd Command) ProcessorResponse {
	resp, err := p.queue.Do(ctx, cmd)
	switch {
	case err == nil:
		return resp
	case errors.Is(err, ErrQueueFull):
		return p.errorResponse("server busy, retry later", core.ErrResourceLimit)
	default:
		return p.errorResponse(err.Error(), core.ErrInternalError)
	}
}

// Execute runs cmd on the calling goroutine
func (p *Processor) Execute(cmd Command) ProcessorResponse {
	switch cmd.Type {
	case CmdCreateGame:
		return p.handleCreateGame(cmd)
	case CmdImportGame:
		return p.handleImportGame(cmd)
	case CmdGetGame:
		return p.handleGetGame(cmd)
	case CmdDeleteGame:
		return p.handleDeleteGame(cmd)
	case CmdAct:
		return p.handleAct(cmd)
	case CmdMakeMove:
		return p.handleMakeMove(cmd)
	case CmdGetBoard:
		return p.handleGetBoard(cmd)
	case CmdLegalMoves:
		return p.handleLegalMoves(cmd)
	case CmdExportGame:
		return p.handleExportGame(cmd)
	default:
		return p.errorResponse("unknown command", core.ErrInvalidRequest)
	}
}

// isFENSafe rejects control characters and anything not shaped like a FEN record
func (p *Processor) isFENSafe(fen string) bool {
	for _, r := range fen {
		if unicode.IsControl(r) {
			return false
		}
	}
	return fenPattern.MatchString(fen)
}

func (p *Processor) handleCreateGame(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.CreateGameRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	if args.FEN != "" && !p.isFENSafe(args.FEN) {
		return p.errorResponse("invalid FEN format or characters", core.ErrInvalidFEN)
	}

	m, err := p.svc.CreateGame(args.FEN)
	if err != nil {
		if errors.Is(err, service.ErrTooManyGames) {
			return p.errorFor(err)
		}
		return p.errorResponse(err.Error(), core.ErrInvalidFEN)
	}
	return p.seatedResponse(m)
}

func (p *Processor) handleImportGame(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.ImportGameRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	var pos engine.Position
	if err := json.Unmarshal(args.Position, &pos); err != nil {
		return p.errorResponse(err.Error(), core.ErrInvalidSnapshot)
	}

	m, err := p.svc.ImportGame(&pos)
	if err != nil {
		return p.errorFor(err)
	}
	return p.seatedResponse(m)
}

// seatedResponse hands out both seat tokens of a freshly created game
func (p *Processor) seatedResponse(m *service.Match) ProcessorResponse {
	var tokens core.SeatTokens
	var err error
	if tokens.White, err = p.svc.IssueSeatToken(m, board.White); err != nil {
		log.Printf("seat token for game %s: %v", m.ID, err)
		return p.errorResponse("failed to issue seat tokens", core.ErrInternalError)
	}
	if tokens.Black, err = p.svc.IssueSeatToken(m, board.Black); err != nil {
		log.Printf("seat token for game %s: %v", m.ID, err)
		return p.errorResponse("failed to issue seat tokens", core.ErrInternalError)
	}

	return ProcessorResponse{
		Success: true,
		Data: core.CreateGameResponse{
			GameResponse: buildGameResponse(m),
			Tokens:       tokens,
		},
	}
}

func (p *Processor) handleGetGame(cmd Command) ProcessorResponse {
	m, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorFor(err)
	}
	return ProcessorResponse{
		Success: true,
		Data:    buildGameResponse(m),
	}
}

func (p *Processor) handleDeleteGame(cmd Command) ProcessorResponse {
	if err := p.svc.DeleteGame(cmd.GameID); err != nil {
		return p.errorFor(err)
	}
	return ProcessorResponse{
		Success: true,
	}
}

func (p *Processor) handleAct(cmd Command) ProcessorResponse {
	actions, ok := cmd.Args.([]game.Action)
	if !ok || len(actions) == 0 {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	m, err := p.svc.Act(cmd.GameID, cmd.Seat, actions...)
	if err != nil {
		return p.errorFor(err)
	}
	return ProcessorResponse{
		Success: true,
		Data:    buildGameResponse(m),
	}
}

// handleMakeMove plays a coordinate move as the clicks a player would make.
func (p *Processor) handleMakeMove(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.MoveRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	m, err := p.svc.PlayMove(cmd.GameID, cmd.Seat, args.Move)
	if err != nil {
		return p.errorFor(err)
	}
	return ProcessorResponse{
		Success: true,
		Data:    buildGameResponse(m),
	}
}

func (p *Processor) handleGetBoard(cmd Command) ProcessorResponse {
	m, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorFor(err)
	}

	pos := m.Game.Position
	return ProcessorResponse{
		Success: true,
		Data: core.BoardResponse{
			FEN:   pos.FEN(),
			Board: pos.Board.ToASCII(),
		},
	}
}

func (p *Processor) handleLegalMoves(cmd Command) ProcessorResponse {
	sq, ok := cmd.Args.(board.Square)
	if !ok || !sq.Valid() {
		return p.errorResponse("invalid square", core.ErrInvalidRequest)
	}

	m, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorFor(err)
	}

	resp := core.LegalMovesResponse{
		Square: sq.String(),
		Moves:  make(map[string]string),
	}
	pos := m.Game.Position
	if !pos.IsOver() {
		moves := pos.LabelMoves(sq)
		for _, target := range moves.Targets() {
			resp.Moves[target.String()] = moves.Kind(target).String()
		}
	}
	return ProcessorResponse{
		Success: true,
		Data:    resp,
	}
}

func (p *Processor) handleExportGame(cmd Command) ProcessorResponse {
	m, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorFor(err)
	}
	return ProcessorResponse{
		Success: true,
		Data:    m.Game.Position.Snapshot(),
	}
}

// buildGameResponse constructs standard game response
func buildGameResponse(m *service.Match) core.GameResponse {
	g := m.Game
	pos := g.Position
	resp := core.GameResponse{
		GameID:    m.ID,
		Version:   m.Version,
		FEN:       pos.FEN(),
		Turn:      pos.SideToMove.Letter(),
		State:     g.State().String(),
		Moves:     pos.Notations(),
		Check:     pos.IsCheck,
		GameOver:  pos.GameOver.List(),
		AllowDraw: pos.AllowDraw.List(),
		Players: core.PlayersResponse{
			White: m.White,
			Black: m.Black,
		},
		Captured: core.CapturedInfo{
			White: pos.Captured[board.White.Index()],
			Black: pos.Captured[board.Black.Index()],
		},
		Repetition: pos.Repetitions[pos.Key()],
	}

	if g.Origin.Valid() {
		resp.Selected = g.Origin.String()
	}
	if pd := g.Pending; pd != nil {
		resp.Pending = &core.PendingInfo{
			Origin:  pd.Origin.String(),
			Target:  pd.Target.String(),
			Reasons: pd.Reasons.List(),
		}
	}
	if rec, ok := pos.LastMove(); ok {
		resp.LastMove = &core.MoveInfo{
			Move:        rec.Notation,
			PlayerColor: rec.Mover.Letter(),
		}
	}

	return resp
}

// errorFor maps service, reducer and engine errors to API error codes
func (p *Processor) errorFor(err error) ProcessorResponse {
	var code string
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		code = core.ErrGameNotFound
	case errors.Is(err, service.ErrNotYourTurn):
		code = core.ErrNotYourTurn
	case errors.Is(err, service.ErrGameOver):
		code = core.ErrGameOver
	case errors.Is(err, service.ErrTooManyGames):
		code = core.ErrResourceLimit
	case errors.Is(err, game.ErrInvalidAction), errors.Is(err, game.ErrUnknownAction):
		code = core.ErrInvalidAction
	case errors.Is(err, engine.ErrIllegalMove), errors.Is(err, engine.ErrPromotionPiece),
		errors.Is(err, engine.ErrNoPiece):
		code = core.ErrInvalidMove
	case errors.Is(err, engine.ErrInvalidSnapshot):
		code = core.ErrInvalidSnapshot
	default:
		log.Printf("processor: %v", err)
		return p.errorResponse(fmt.Sprintf("internal error: %v", err), core.ErrInternalError)
	}
	return p.errorResponse(err.Error(), code)
}

// errorResponse creates error response
func (p *Processor) errorResponse(message, code string) ProcessorResponse {
	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Error: message,
			Code:  code,
		},
	}
}

// Close stops the worker pool
func (p *Processor) Close() error {
	return p.queue.Shutdown(5 * time.Second)
}
