// Package game is the hotseat action reducer: it turns square clicks,
// promotion choices and draw decisions into engine transitions.
package game

import (
	"errors"
	"fmt"

	"chessduel/internal/board"
	"chessduel/internal/core"
	"chessduel/internal/engine"
)

var (
	// ErrUnknownAction is fatal: the caller sent an action outside the alphabet.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidAction rejects an action that does not fit the current state,
	// such as claiming a draw nobody offered.
	ErrInvalidAction = errors.New("action not allowed in current state")
)

// ActionKind names one reducer action.
type ActionKind string

const (
	SquareChosen         ActionKind = "square-chosen"
	PromotionPieceChosen ActionKind = "promotion-piece-chosen"
	ClaimDraw            ActionKind = "claim-draw"
	DoNotClaimDraw       ActionKind = "do-not-claim-draw"
	ClaimDrawWithoutMove ActionKind = "claim-draw-without-move"
	Undo                 ActionKind = "undo"
	Rematch              ActionKind = "rematch"
)

// Action is one input to Reduce. Square is read by SquareChosen and Piece by
// PromotionPieceChosen.
type Action struct {
	Kind   ActionKind   `json:"type"`
	Square board.Square `json:"square,omitempty"`
	Piece  board.Piece  `json:"piece,omitempty"`
}

// Pending is a chosen move whose transition is incomplete. For a promotion
// Next is nil until the piece is known; for a draw offer Next holds the
// already evaluated position.
type Pending struct {
	Origin  board.Square     `json:"origin"`
	Target  board.Square     `json:"target"`
	Kind    engine.MoveKind  `json:"kind"`
	Reasons engine.Reasons   `json:"reasons"`
	Next    *engine.Position `json:"next,omitempty"`
}

// Game is the reducer state: the committed position, the current selection
// and an optional pending move. Values are never modified once returned.
type Game struct {
	Position *engine.Position
	Origin   board.Square
	Moves    engine.Moves
	Pending  *Pending
}

// New starts a game from the standard initial position.
func New() *Game {
	return &Game{Position: engine.New()}
}

// FromPosition wraps an existing position with no selection.
func FromPosition(p *engine.Position) *Game {
	return &Game{Position: p}
}

// IsPaused reports whether a promotion piece or draw decision is awaited.
func (g *Game) IsPaused() bool { return g.Pending != nil }

// State maps the position's reasons to the API outcome.
func (g *Game) State() core.State {
	p := g.Position
	switch {
	case p.GameOver.Has(engine.Checkmate):
		// The side to move is the mated one.
		if p.SideToMove == board.White {
			return core.StateBlackWins
		}
		return core.StateWhiteWins
	case p.IsOver():
		return core.StateDraw
	case g.Pending != nil:
		return core.StatePaused
	default:
		return core.StateOngoing
	}
}

// Reduce applies one action. Actions that cannot change anything, like a
// square click while paused, return g itself with a nil error.
func Reduce(g *Game, a Action) (*Game, error) {
	switch a.Kind {
	case SquareChosen:
		return chooseSquare(g, a.Square)
	case PromotionPieceChosen:
		return choosePromotion(g, a.Piece)
	case ClaimDraw:
		return resolveDraw(g, true)
	case DoNotClaimDraw:
		return resolveDraw(g, false)
	case ClaimDrawWithoutMove:
		return claimWithoutMove(g)
	case Undo:
		return undo(g)
	case Rematch:
		return New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
}

// ReduceAll applies actions in order and stops at the first error.
func ReduceAll(g *Game, actions ...Action) (*Game, error) {
	cur := g
	for _, a := range actions {
		next, err := Reduce(cur, a)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// MoveActions translates coordinate notation into the clicks that play it.
func MoveActions(move string) ([]Action, error) {
	origin, target, promotion, err := engine.ParseMove(move)
	if err != nil {
		return nil, err
	}
	actions := []Action{
		{Kind: SquareChosen, Square: origin},
		{Kind: SquareChosen, Square: target},
	}
	if promotion != board.Empty {
		actions = append(actions, Action{Kind: PromotionPieceChosen, Piece: promotion})
	}
	return actions, nil
}

func chooseSquare(g *Game, sq board.Square) (*Game, error) {
	if g.Pending != nil || g.Position.IsOver() {
		return g, nil
	}
	if !sq.Valid() {
		return nil, fmt.Errorf("%w: square %s", ErrInvalidAction, sq)
	}

	p := g.Position
	if g.Origin.Valid() && p.Board.Colors[g.Origin] == p.SideToMove {
		if kind := g.Moves.Kind(sq); kind != engine.NoMove {
			return play(g, g.Origin, sq, kind, board.Empty)
		}
	}

	return Select(g, sq), nil
}

// Select records sq as the origin and labels its moves without ever playing
// one. Networked play uses it while the opponent is to move.
func Select(g *Game, sq board.Square) *Game {
	next := &Game{Position: g.Position, Pending: g.Pending, Origin: sq}
	if sq.Valid() && g.Position.Board.Pieces[sq] != board.Empty {
		next.Moves = g.Position.LabelMoves(sq)
	}
	return next
}

// play runs the move through the engine and decides whether the result is
// committed or held as a pending draw decision.
func play(g *Game, origin, target board.Square, kind engine.MoveKind, promotion board.Piece) (*Game, error) {
	if kind.IsPromotion() && promotion == board.Empty {
		return &Game{
			Position: g.Position,
			Pending:  &Pending{Origin: origin, Target: target, Kind: kind, Reasons: engine.Promotion},
		}, nil
	}

	next, err := engine.Apply(g.Position, origin, target, kind, promotion)
	if err != nil {
		return nil, err
	}
	if next.IsOver() {
		return &Game{Position: next.WithOutcome(next.GameOver, 0, 0)}, nil
	}
	if !next.Pause.Empty() {
		return &Game{
			Position: g.Position,
			Pending:  &Pending{Origin: origin, Target: target, Kind: kind, Reasons: next.Pause, Next: next},
		}, nil
	}
	return &Game{Position: next}, nil
}

func choosePromotion(g *Game, piece board.Piece) (*Game, error) {
	if g.Pending == nil || !g.Pending.Reasons.Has(engine.Promotion) {
		return nil, fmt.Errorf("%w: no promotion pending", ErrInvalidAction)
	}
	if !piece.IsPromotionChoice() {
		return nil, fmt.Errorf("%w: %s", engine.ErrPromotionPiece, piece)
	}
	pending := g.Pending
	return play(&Game{Position: g.Position}, pending.Origin, pending.Target, pending.Kind, piece)
}

func resolveDraw(g *Game, claim bool) (*Game, error) {
	if g.Pending == nil || g.Pending.Next == nil {
		return nil, fmt.Errorf("%w: no draw offer pending", ErrInvalidAction)
	}
	next, reasons := g.Pending.Next, g.Pending.Reasons
	if claim {
		return &Game{Position: next.WithOutcome(reasons, 0, 0)}, nil
	}
	// The opponent keeps the right to claim during their turn.
	return &Game{Position: next.WithOutcome(0, 0, next.AllowDraw.With(reasons))}, nil
}

func claimWithoutMove(g *Game) (*Game, error) {
	p := g.Position
	if g.Pending != nil || p.AllowDraw.Empty() {
		return nil, fmt.Errorf("%w: no draw to claim", ErrInvalidAction)
	}
	return &Game{Position: p.WithOutcome(p.AllowDraw, 0, 0)}, nil
}

// undo drops a pending move first; only a committed move is taken back.
func undo(g *Game) (*Game, error) {
	if g.Pending != nil {
		return &Game{Position: g.Position}, nil
	}
	prev, err := engine.Undo(g.Position)
	if err != nil {
		return nil, err
	}
	if prev == g.Position {
		return g, nil
	}
	return &Game{Position: prev}, nil
}

// Agree ends the game as a draw by mutual agreement.
func Agree(g *Game) *Game {
	return &Game{Position: g.Position.WithOutcome(engine.Agreement, 0, 0)}
}
