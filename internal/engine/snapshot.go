package engine

import (
	"encoding/json"
	"fmt"

	"chessduel/internal/board"
)

// Snapshot is the serialized form of a Position. Fields derived from the
// board (piece index, control tables, check and pins) are omitted and
// recomputed by Restore.
type Snapshot struct {
	Placement        string         `json:"placement"`
	SideToMove       board.Color    `json:"sideToMove"`
	Castling         [2][2]bool     `json:"castling"`
	CastlingLostWhen [2][2]int      `json:"castlingLostWhen"`
	EnPassant        board.Square   `json:"enPassant"`
	HalfMoveClock    int            `json:"halfMoveClock"`
	StartHalfMoves   int            `json:"startHalfMoves"`
	StartEnPassant   board.Square   `json:"startEnPassant"`
	History          []MoveRecord   `json:"history"`
	Repetitions      map[string]int `json:"repetitions"`
	GameOver         Reasons        `json:"gameOver"`
	Pause            Reasons        `json:"pause"`
	AllowDraw        Reasons        `json:"allowDraw"`
	Captured         [2][5]int      `json:"captured"`
}

// Snapshot captures every non-derived field of p.
func (p *Position) Snapshot() Snapshot {
	c := p.clone()
	return Snapshot{
		Placement:        c.Board.Placement(),
		SideToMove:       c.SideToMove,
		Castling:         c.Castling,
		CastlingLostWhen: c.CastlingLostWhen,
		EnPassant:        c.EnPassant,
		HalfMoveClock:    c.HalfMoveClock,
		StartHalfMoves:   c.StartHalfMoves,
		StartEnPassant:   c.StartEnPassant,
		History:          c.History,
		Repetitions:      c.Repetitions,
		GameOver:         c.GameOver,
		Pause:            c.Pause,
		AllowDraw:        c.AllowDraw,
		Captured:         c.Captured,
	}
}

// Restore rebuilds a position from a snapshot. History entries that carry only
// notation text are decoded from it.
func Restore(s Snapshot) (*Position, error) {
	b, err := board.ParsePlacement(s.Placement)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if !s.SideToMove.IsPlayer() {
		return nil, fmt.Errorf("%w: side to move %q", ErrInvalidSnapshot, s.SideToMove)
	}
	idx := b.Index()
	for _, c := range board.Colors {
		if n := idx.Of(c, board.King).Len(); n != 1 {
			return nil, fmt.Errorf("%w: %s has %d kings", ErrInvalidSnapshot, c, n)
		}
	}

	if s.EnPassant != board.NoSquare && !b.CanPassAt(s.SideToMove, s.EnPassant) {
		return nil, fmt.Errorf("%w: no pawn can be taken en passant on %s", ErrInvalidSnapshot, s.EnPassant)
	}

	p := &Position{
		Board:            b,
		SideToMove:       s.SideToMove,
		Castling:         s.Castling,
		CastlingLostWhen: s.CastlingLostWhen,
		EnPassant:        s.EnPassant,
		HalfMoveClock:    s.HalfMoveClock,
		StartHalfMoves:   s.StartHalfMoves,
		StartEnPassant:   s.StartEnPassant,
		Repetitions:      make(map[string]int, len(s.Repetitions)),
		GameOver:         s.GameOver,
		Pause:            s.Pause,
		AllowDraw:        s.AllowDraw,
		Captured:         s.Captured,
	}
	for ci, lost := range s.CastlingLostWhen {
		for side, ply := range lost {
			switch {
			case ply < -1 || ply >= len(s.History):
				return nil, fmt.Errorf("%w: castling lost at ply %d of %d", ErrInvalidSnapshot, ply, len(s.History))
			case s.Castling[ci][side] && ply != -1:
				return nil, fmt.Errorf("%w: castling right held but lost at ply %d", ErrInvalidSnapshot, ply)
			}
		}
	}
	for k, v := range s.Repetitions {
		p.Repetitions[k] = v
	}

	if len(s.History) > 0 {
		p.History = make([]MoveRecord, len(s.History))
		for i, rec := range s.History {
			if rec.Origin.Valid() {
				p.History[i] = rec
				continue
			}
			// Moves alternate, and the last one was made by the side not to move.
			mover := s.SideToMove.Opponent()
			if (len(s.History)-1-i)%2 == 1 {
				mover = s.SideToMove
			}
			decoded, err := DecodeNotation(rec.Notation, mover)
			if err != nil {
				return nil, err
			}
			p.History[i] = decoded
		}
	}

	p.rebuild()
	if p.Repetitions[p.Key()] < 1 {
		return nil, fmt.Errorf("%w: current position missing from repetition table", ErrInvalidSnapshot)
	}
	return p, nil
}

// UnmarshalJSON treats a missing castlingLostWhen as rights never lost.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type plain Snapshot
	v := plain{CastlingLostWhen: [2][2]int{{-1, -1}, {-1, -1}}}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Snapshot(v)
	return nil
}

func (p *Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Snapshot())
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	r, err := Restore(s)
	if err != nil {
		return err
	}
	*p = *r
	return nil
}
