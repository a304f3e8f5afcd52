package engine

import (
	"fmt"

	"chessduel/internal/board"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Castling sides, the second index of Position.Castling.
const (
	Kingside  = 0
	Queenside = 1
)

// PinTable maps a pinned piece (by ordinal) to the squares it may still move
// to. An empty set means the piece is not pinned.
type PinTable [64]board.SquareSet

// Position is one immutable game state. Apply and Undo return new positions
// and never modify their input.
type Position struct {
	Board        board.Board
	Pieces       board.PieceIndex
	Controls     ControlTable
	ControlledBy AttackTable
	SideToMove   board.Color

	// Check state of the side to move
	IsCheck         bool
	CheckingSquares board.SquareSet
	CheckingVectors Control

	// Pins per color, indexed by Color.Index
	Pins [2]PinTable

	Castling         [2][2]bool
	CastlingLostWhen [2][2]int

	EnPassant     board.Square
	HalfMoveClock int

	// Clock and en-passant square the game started from, needed to restore
	// them when undoing back to the first position.
	StartHalfMoves int
	StartEnPassant board.Square

	History     []MoveRecord
	Repetitions map[string]int

	GameOver  Reasons
	Pause     Reasons
	AllowDraw Reasons

	// Captured counts captured pieces by victim color and kind (pawn..queen).
	Captured [2][5]int
}

// New returns the standard initial position.
func New() *Position {
	p, err := FromFEN(board.StartingFEN)
	if err != nil {
		panic(err)
	}
	return p
}

// FromFEN builds a position from a FEN record, computing every derived field
// from scratch.
func FromFEN(fen string) (*Position, error) {
	setup, err := board.ParseFEN(fen)
	if err != nil {
		return nil, err
	}

	p := &Position{
		Board:          setup.Board,
		SideToMove:     setup.Turn,
		EnPassant:      setup.EnPassant,
		HalfMoveClock:  setup.HalfMove,
		StartHalfMoves: setup.HalfMove,
		StartEnPassant: setup.EnPassant,
		Repetitions:    make(map[string]int),
	}

	for _, ch := range setup.Castling {
		c, side := board.White, Kingside
		switch ch {
		case 'K':
		case 'Q':
			side = Queenside
		case 'k':
			c = board.Black
		case 'q':
			c, side = board.Black, Queenside
		default:
			continue
		}
		lane := castleLanes[c.Index()][side]
		if p.Board.Pieces[lane.kingHome] == board.King && p.Board.Colors[lane.kingHome] == c &&
			p.Board.Pieces[lane.rookHome] == board.Rook && p.Board.Colors[lane.rookHome] == c {
			p.Castling[c.Index()][side] = true
		}
	}
	for ci := range p.CastlingLostWhen {
		p.CastlingLostWhen[ci] = [2]int{-1, -1}
	}

	p.rebuild()
	if p.ControlledBy[p.Pieces.King(p.SideToMove.Opponent()).Ordinal()][p.SideToMove.Index()].Len() > 0 {
		return nil, fmt.Errorf("invalid FEN: side not to move is in check")
	}
	p.Repetitions[p.Key()] = 1
	p.evaluate()

	return p, nil
}

// rebuild recomputes every board-derived field from the grid arrays.
func (p *Position) rebuild() {
	p.Pieces = p.Board.Index()
	p.rebuildControls()
	p.updateCheck()
	p.updatePins()
}

func (p *Position) clone() *Position {
	c := *p
	c.History = slices.Clone(p.History)
	c.Repetitions = maps.Clone(p.Repetitions)
	return &c
}

// Ply is the number of half-moves played from the starting position.
func (p *Position) Ply() int { return len(p.History) }

// LastMove returns the most recent history entry.
func (p *Position) LastMove() (MoveRecord, bool) {
	if len(p.History) == 0 {
		return MoveRecord{}, false
	}
	return p.History[len(p.History)-1], true
}

// Notations returns the printable move history.
func (p *Position) Notations() []string {
	out := make([]string, len(p.History))
	for i, r := range p.History {
		out[i] = r.Notation
	}
	return out
}

// RepetitionKeys returns the keys of the repetition table in sorted order.
func (p *Position) RepetitionKeys() []string {
	keys := maps.Keys(p.Repetitions)
	slices.Sort(keys)
	return keys
}

// IsOver reports whether the game has ended.
func (p *Position) IsOver() bool { return !p.GameOver.Empty() }

// WithOutcome returns a copy of p with the three reason sets replaced.
func (p *Position) WithOutcome(gameOver, pause, allowDraw Reasons) *Position {
	next := p.clone()
	next.GameOver = gameOver
	next.Pause = pause
	next.AllowDraw = allowDraw
	return next
}

// FEN renders the position as a FEN record.
func (p *Position) FEN() string {
	return fmt.Sprintf("%s %d %d", p.Key(), p.HalfMoveClock, p.FullMoveNumber())
}

// FullMoveNumber is the FEN full-move counter.
func (p *Position) FullMoveNumber() int {
	n := len(p.History)
	if p.StartingColor() == board.Black {
		n++
	}
	return n/2 + 1
}

// StartingColor is the side that moved first from the starting position.
func (p *Position) StartingColor() board.Color {
	if len(p.History)%2 == 0 {
		return p.SideToMove
	}
	return p.SideToMove.Opponent()
}
