package engine

import (
	"fmt"
	"strings"

	"chessduel/internal/board"
)

// MoveKind labels a generated target square.
type MoveKind int8

const (
	NoMove MoveKind = iota
	Quiet
	Capture
	EnPassant
	DoubleForward
	CastleKingside
	CastleQueenside
	Promote
	PromoteCapture
)

var kindNames = [...]string{
	NoMove:          "none",
	Quiet:           "quiet",
	Capture:         "capture",
	EnPassant:       "en-passant",
	DoubleForward:   "double-forward",
	CastleKingside:  "kingside",
	CastleQueenside: "queenside",
	Promote:         "promotion",
	PromoteCapture:  "promotion-capture",
}

func (k MoveKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

func (k MoveKind) IsPromotion() bool { return k == Promote || k == PromoteCapture }
func (k MoveKind) IsCastle() bool    { return k == CastleKingside || k == CastleQueenside }
func (k MoveKind) IsCapture() bool {
	return k == Capture || k == EnPassant || k == PromoteCapture
}

func (k MoveKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *MoveKind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = MoveKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown move kind %q", text)
}

// Moves maps target squares (by ordinal) to the kind of move landing there.
type Moves [64]MoveKind

// Kind returns the move kind for target, NoMove when absent.
func (m Moves) Kind(target board.Square) MoveKind {
	if !target.Valid() {
		return NoMove
	}
	return m[target.Ordinal()]
}

func (m *Moves) set(target board.Square, k MoveKind) { m[target.Ordinal()] = k }
func (m *Moves) clear(target board.Square)           { m[target.Ordinal()] = NoMove }

func (m Moves) Len() int {
	n := 0
	for _, k := range m {
		if k != NoMove {
			n++
		}
	}
	return n
}

func (m Moves) Empty() bool { return m.Len() == 0 }

// Targets lists the target squares from a1 to h8.
func (m Moves) Targets() []board.Square {
	var out []board.Square
	for i, k := range m {
		if k != NoMove {
			out = append(out, board.FromOrdinal(i))
		}
	}
	return out
}

// Move is a fully specified move, used by move lists and replay.
type Move struct {
	Origin    board.Square `json:"origin"`
	Target    board.Square `json:"target"`
	Kind      MoveKind     `json:"kind"`
	Promotion board.Piece  `json:"promotion,omitempty"`
}

// String renders coordinate notation such as "e2e4" or "e7e8q".
func (m Move) String() string {
	s := m.Origin.String() + m.Target.String()
	if m.Kind.IsPromotion() {
		s += strings.ToLower(m.Promotion.Letter())
	}
	return s
}
