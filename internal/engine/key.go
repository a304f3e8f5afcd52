package engine

import (
	"strings"

	"chessduel/internal/board"
)

// Key is the repetition key: placement, side to move, castling rights and
// en-passant square, separated by spaces.
func (p *Position) Key() string {
	return strings.Join([]string{
		p.Board.Placement(),
		p.SideToMove.Letter(),
		p.castlingField(),
		p.EnPassant.String(),
	}, " ")
}

func (p *Position) castlingField() string {
	var sb strings.Builder
	letters := [2][2]byte{{'K', 'Q'}, {'k', 'q'}}
	for _, c := range board.Colors {
		for side := Kingside; side <= Queenside; side++ {
			if p.Castling[c.Index()][side] {
				sb.WriteByte(letters[c.Index()][side])
			}
		}
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}
