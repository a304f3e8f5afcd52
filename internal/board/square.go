package board

import (
	"fmt"
)

// Grid geometry. The playable 8x8 area sits inside a 16x16 grid so that every
// direction offset from a playable square lands either on another playable
// square or on a sentinel cell, never outside the array.
const (
	GridWidth = 16
	GridSize  = GridWidth * GridWidth

	firstRow = 4
	firstCol = 4
)

// Square indexes a cell of the padded grid. a8 = 68, h8 = 75, a1 = 180, h1 = 187.
type Square int

// NoSquare is a border cell used as "none" for optional squares such as the
// en-passant target.
const NoSquare Square = 0

// Named squares used by castling and tests
const (
	A1 Square = 180
	B1 Square = 181
	C1 Square = 182
	D1 Square = 183
	E1 Square = 184
	F1 Square = 185
	G1 Square = 186
	H1 Square = 187
	A8 Square = 68
	B8 Square = 69
	C8 Square = 70
	D8 Square = 71
	E8 Square = 72
	F8 Square = 73
	G8 Square = 74
	H8 Square = 75
)

// SquareAt returns the square for a zero-based file (a=0) and rank (1=0).
func SquareAt(file, rank int) Square {
	return Square((firstRow+7-rank)*GridWidth + firstCol + file)
}

// FromOrdinal is the inverse of Square.Ordinal.
func FromOrdinal(i int) Square {
	return SquareAt(i%8, i/8)
}

// Valid reports whether s is one of the 64 playable squares.
func (s Square) Valid() bool {
	row, col := int(s)/GridWidth, int(s)%GridWidth
	return s >= 0 && s < GridSize &&
		row >= firstRow && row < firstRow+8 &&
		col >= firstCol && col < firstCol+8
}

// File is 0 for the a-file through 7 for the h-file.
func (s Square) File() int { return int(s)%GridWidth - firstCol }

// Rank is 0 for the first rank through 7 for the eighth.
func (s Square) Rank() int { return firstRow + 7 - int(s)/GridWidth }

// Ordinal maps a playable square onto 0..63 (a1 = 0, h8 = 63).
func (s Square) Ordinal() int { return s.Rank()*8 + s.File() }

// Offset returns the square d steps away; the result may be a sentinel cell.
func (s Square) Offset(d Direction) Square { return s + Square(d) }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

// MarshalText writes the algebraic name, or "-" for NoSquare.
func (s Square) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts an algebraic name or "-".
func (s *Square) UnmarshalText(text []byte) error {
	if string(text) == "-" || len(text) == 0 {
		*s = NoSquare
		return nil
	}
	sq, err := ParseSquare(string(text))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}

// ParseSquare converts an algebraic name such as "e4".
func ParseSquare(name string) (Square, error) {
	if len(name) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", name)
	}
	if name[0] < 'a' || name[0] > 'h' || name[1] < '1' || name[1] > '8' {
		return NoSquare, fmt.Errorf("invalid square %q", name)
	}
	return SquareAt(int(name[0]-'a'), int(name[1]-'1')), nil
}

// MustSquare is ParseSquare for constant input; it panics on a bad name.
func MustSquare(name string) Square {
	sq, err := ParseSquare(name)
	if err != nil {
		panic(err)
	}
	return sq
}

// Squares lists the playable squares from a8 to h1, rank by rank, the order
// used for FEN placement strings.
var Squares = func() [64]Square {
	var out [64]Square
	i := 0
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			out[i] = SquareAt(file, rank)
			i++
		}
	}
	return out
}()

// Direction is a constant offset between grid cells.
type Direction int8

// Direction sets
var (
	RookDirections   = [4]Direction{-GridWidth, -1, 1, GridWidth}
	BishopDirections = [4]Direction{-GridWidth - 1, -GridWidth + 1, GridWidth - 1, GridWidth + 1}
	QueenDirections  = [8]Direction{-GridWidth - 1, -GridWidth, -GridWidth + 1, -1, 1, GridWidth - 1, GridWidth, GridWidth + 1}
	KnightOffsets    = [8]Direction{-33, -31, -18, -14, 14, 18, 31, 33}
)

// PawnCaptures returns the two diagonal offsets a pawn of color c attacks.
func PawnCaptures(c Color) [2]Direction {
	if c == White {
		return [2]Direction{-GridWidth - 1, -GridWidth + 1}
	}
	return [2]Direction{GridWidth - 1, GridWidth + 1}
}

// IsOrthogonal reports whether d is a rook direction.
func (d Direction) IsOrthogonal() bool {
	return d == -GridWidth || d == GridWidth || d == -1 || d == 1
}

// IsDiagonal reports whether d is a bishop direction.
func (d Direction) IsDiagonal() bool {
	return d == -GridWidth-1 || d == -GridWidth+1 || d == GridWidth-1 || d == GridWidth+1
}
