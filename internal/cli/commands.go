package cli

import (
	"errors"
	"fmt"
	"strings"

	"chessduel/internal/board"
	"chessduel/internal/engine"
	"chessduel/internal/game"
	"chessduel/internal/netplay"
)

func (r *REPL) registerGameCommands() {
	r.Register(&Command{
		Name:        "new",
		ShortName:   "n",
		Description: "Start a new hotseat game",
		Usage:       "new [FEN]",
		Handler:     r.newHandler,
	})
	r.Register(&Command{
		Name:        "move",
		ShortName:   "m",
		Description: "Play a move in coordinate notation (the command word may be left out)",
		Usage:       "move <e2e4|e7e8q>",
		Handler:     r.moveHandler,
	})
	r.Register(&Command{
		Name:        "sel",
		ShortName:   "s",
		Description: "Click a square: select a piece or move the selected one there",
		Usage:       "sel <square>",
		Handler:     r.selectHandler,
	})
	r.Register(&Command{
		Name:        "promote",
		ShortName:   "p",
		Description: "Choose the piece for a waiting promotion",
		Usage:       "promote <q|r|b|n>",
		Handler:     r.promoteHandler,
	})
	r.Register(&Command{
		Name:        "claim",
		Description: "Claim the draw the waiting move allows",
		Usage:       "claim",
		Handler:     r.actionHandler(game.ClaimDraw),
	})
	r.Register(&Command{
		Name:        "decline",
		Description: "Play the waiting move without claiming a draw",
		Usage:       "decline",
		Handler:     r.actionHandler(game.DoNotClaimDraw),
	})
	r.Register(&Command{
		Name:        "claim-now",
		Description: "Claim an available draw without moving",
		Usage:       "claim-now",
		Handler:     r.actionHandler(game.ClaimDrawWithoutMove),
	})
	r.Register(&Command{
		Name:        "undo",
		ShortName:   "u",
		Description: "Take back the last move (asks the opponent in networked games)",
		Usage:       "undo",
		Handler:     r.requestHandler(netplay.RequestUndo),
	})
	r.Register(&Command{
		Name:        "rematch",
		Description: "Start over from the initial position (asks the opponent in networked games)",
		Usage:       "rematch",
		Handler:     r.requestHandler(netplay.RequestRematch),
	})
	r.Register(&Command{
		Name:        "draw",
		Description: "End the game as a draw by agreement (asks the opponent in networked games)",
		Usage:       "draw",
		Handler:     r.requestHandler(netplay.RequestDraw),
	})
	r.Register(&Command{
		Name:        "agree",
		ShortName:   "a",
		Description: "Accept the opponent's request",
		Usage:       "agree",
		Handler:     r.agreeHandler,
	})
}

func (r *REPL) registerViewCommands() {
	r.Register(&Command{
		Name:        "board",
		ShortName:   "b",
		Description: "Show the board",
		Usage:       "board",
		Handler: func([]string) error {
			g, err := r.game()
			if err != nil {
				return err
			}
			r.show(g)
			return nil
		},
	})
	r.Register(&Command{
		Name:        "moves",
		Description: "List the moves of the piece on a square",
		Usage:       "moves <square>",
		Handler:     r.movesHandler,
	})
	r.Register(&Command{
		Name:        "history",
		ShortName:   "h",
		Description: "Show the move history",
		Usage:       "history",
		Handler: func([]string) error {
			g, err := r.game()
			if err != nil {
				return err
			}
			r.view.ShowHistory(g.Position)
			return nil
		},
	})
	r.Register(&Command{
		Name:        "export",
		Description: "Print the position as JSON",
		Usage:       "export",
		Handler: func([]string) error {
			g, err := r.game()
			if err != nil {
				return err
			}
			r.view.ShowJSON(g.Position.Snapshot())
			return nil
		},
	})
	r.Register(&Command{
		Name:        "color",
		Description: "Set board color theme",
		Usage:       "color <off|brown|green|gray>",
		Handler: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: color <off|brown|green|gray>")
			}
			if err := r.view.SetTheme(ColorTheme(args[0])); err != nil {
				return err
			}
			r.view.ShowMessage(fmt.Sprintf("Color theme set to: %s", args[0]))
			return nil
		},
	})
	r.Register(&Command{
		Name:        "verbose",
		ShortName:   "v",
		Description: "Toggle FEN and repetition details",
		Usage:       "verbose",
		Handler: func([]string) error {
			r.view.ShowMessage(fmt.Sprintf("Verbose mode: %t", r.view.ToggleVerbose()))
			return nil
		},
	})
}

func (r *REPL) game() (*game.Game, error) {
	g := r.driver.Game()
	if g == nil {
		return nil, ErrNoGame
	}
	return g, nil
}

func (r *REPL) show(g *game.Game) {
	r.view.DisplayBoard(g, r.driver.Seat())
	r.view.ShowRequests(r.driver.Seat(), r.driver.Pending())
}

// act runs actions in order and redraws the board once
func (r *REPL) act(actions ...game.Action) error {
	for _, a := range actions {
		if err := r.driver.Act(a); err != nil {
			return err
		}
	}
	if g := r.driver.Game(); g != nil {
		r.show(g)
	}
	return nil
}

func (r *REPL) newHandler(args []string) error {
	p := engine.New()
	if len(args) > 0 {
		var err error
		if p, err = engine.FromFEN(strings.Join(args, " ")); err != nil {
			return err
		}
	}
	if err := r.driver.Start(p); err != nil {
		return err
	}
	r.view.ShowMessage("Game started.")
	r.show(r.driver.Game())
	return nil
}

// moveHandler checks the move before clicking it, since clicking an
// unreachable square only changes the selection.
func (r *REPL) moveHandler(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: move <e2e4|e7e8q>")
	}
	g, err := r.game()
	if err != nil {
		return err
	}

	switch p := g.Position; {
	case p.IsOver():
		return fmt.Errorf("the game is over")
	case g.IsPaused():
		return fmt.Errorf("finish the waiting move first (promote, claim or decline)")
	case r.driver.Seat() != board.NoColor && p.SideToMove != r.driver.Seat():
		return fmt.Errorf("it is %s's turn", p.SideToMove)
	}

	move := strings.ToLower(args[0])
	if _, err := g.Position.Play(move); err != nil {
		// A bare promotion move pauses for the piece instead
		if !errors.Is(err, engine.ErrPromotionPiece) || len(move) != 4 {
			return err
		}
	}

	actions, err := game.MoveActions(move)
	if err != nil {
		return err
	}
	return r.act(actions...)
}

func (r *REPL) selectHandler(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sel <square>")
	}
	if _, err := r.game(); err != nil {
		return err
	}
	sq, err := board.ParseSquare(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	return r.act(game.Action{Kind: game.SquareChosen, Square: sq})
}

func (r *REPL) promoteHandler(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: promote <q|r|b|n>")
	}
	if _, err := r.game(); err != nil {
		return err
	}
	piece, err := board.ParsePiece(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	return r.act(game.Action{Kind: game.PromotionPieceChosen, Piece: piece})
}

func (r *REPL) actionHandler(kind game.ActionKind) func([]string) error {
	return func([]string) error {
		if _, err := r.game(); err != nil {
			return err
		}
		return r.act(game.Action{Kind: kind})
	}
}

func (r *REPL) requestHandler(t netplay.RequestType) func([]string) error {
	return func([]string) error {
		if _, err := r.game(); err != nil {
			return err
		}
		if err := r.driver.Request(t); err != nil {
			return err
		}
		r.show(r.driver.Game())
		return nil
	}
}

func (r *REPL) agreeHandler([]string) error {
	if _, err := r.game(); err != nil {
		return err
	}
	if err := r.driver.Agree(); err != nil {
		return err
	}
	r.show(r.driver.Game())
	return nil
}

func (r *REPL) movesHandler(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: moves <square>")
	}
	g, err := r.game()
	if err != nil {
		return err
	}
	sq, err := board.ParseSquare(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	r.view.ShowMoves(sq, g.Position.LabelMoves(sq))
	return nil
}
