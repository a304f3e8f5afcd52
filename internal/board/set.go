package board

import "math/bits"

// SquareSet is a fixed-size set of grid cells.
type SquareSet [GridSize / 64]uint64

func (s *SquareSet) Add(sq Square)    { s[sq>>6] |= 1 << (uint(sq) & 63) }
func (s *SquareSet) Remove(sq Square) { s[sq>>6] &^= 1 << (uint(sq) & 63) }

func (s SquareSet) Has(sq Square) bool {
	if sq < 0 || sq >= GridSize {
		return false
	}
	return s[sq>>6]&(1<<(uint(sq)&63)) != 0
}

func (s SquareSet) Len() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

func (s SquareSet) Empty() bool { return s == SquareSet{} }

// First returns the lowest square in the set.
func (s SquareSet) First() (Square, bool) {
	for i, w := range s {
		if w != 0 {
			return Square(i*64 + bits.TrailingZeros64(w)), true
		}
	}
	return NoSquare, false
}

// Squares lists the members in ascending grid order.
func (s SquareSet) Squares() []Square {
	out := make([]Square, 0, s.Len())
	for i, w := range s {
		for w != 0 {
			out = append(out, Square(i*64+bits.TrailingZeros64(w)))
			w &= w - 1
		}
	}
	return out
}

// PieceIndex maps (color, piece) to the squares holding it.
type PieceIndex [2][King + 1]SquareSet

func (x *PieceIndex) Add(c Color, p Piece, sq Square)    { x[c.Index()][p].Add(sq) }
func (x *PieceIndex) Remove(c Color, p Piece, sq Square) { x[c.Index()][p].Remove(sq) }

// Move relocates a piece inside the index.
func (x *PieceIndex) Move(c Color, p Piece, from, to Square) {
	x.Remove(c, p, from)
	x.Add(c, p, to)
}

// Of returns the squares of color c holding p.
func (x *PieceIndex) Of(c Color, p Piece) SquareSet { return x[c.Index()][p] }

// King returns the king square of c, or NoSquare when absent.
func (x *PieceIndex) King(c Color) Square {
	sq, _ := x[c.Index()][King].First()
	return sq
}

// All returns every square occupied by c.
func (x *PieceIndex) All(c Color) []Square {
	var out []Square
	for _, p := range RealPieces {
		out = append(out, x[c.Index()][p].Squares()...)
	}
	return out
}
