package engine

import (
	"fmt"
	"strings"

	"chessduel/internal/board"
)

// ParseMove reads coordinate notation such as "e2e4" or "e7e8q".
func ParseMove(s string) (origin, target board.Square, promotion board.Piece, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 4 || len(s) > 5 {
		return board.NoSquare, board.NoSquare, board.Empty, fmt.Errorf("%w: %q", ErrIllegalMove, s)
	}
	if origin, err = board.ParseSquare(s[0:2]); err != nil {
		return board.NoSquare, board.NoSquare, board.Empty, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if target, err = board.ParseSquare(s[2:4]); err != nil {
		return board.NoSquare, board.NoSquare, board.Empty, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	promotion = board.Empty
	if len(s) == 5 {
		promotion, err = board.PieceFromLetter(rune(s[4]))
		if err != nil || !promotion.IsPromotionChoice() {
			return board.NoSquare, board.NoSquare, board.Empty, fmt.Errorf("%w: promotion %q", ErrPromotionPiece, s[4:])
		}
	}
	return origin, target, promotion, nil
}

// Play validates a coordinate move against the legal moves of p and applies it.
func (p *Position) Play(move string) (*Position, error) {
	origin, target, promotion, err := ParseMove(move)
	if err != nil {
		return nil, err
	}
	if p.Board.Colors[origin] != p.SideToMove {
		return nil, fmt.Errorf("%w: %s is not a %s piece", ErrIllegalMove, origin, p.SideToMove)
	}
	moves := p.LabelMoves(origin)
	kind := moves.Kind(target)
	if kind == NoMove {
		return nil, fmt.Errorf("%w: %s", ErrIllegalMove, move)
	}
	if kind.IsPromotion() && promotion == board.Empty {
		return nil, fmt.Errorf("%w: %s needs a promotion piece", ErrPromotionPiece, move)
	}
	return Apply(p, origin, target, kind, promotion)
}

// PlayAll plays a sequence of coordinate moves.
func (p *Position) PlayAll(moves ...string) (*Position, error) {
	cur := p
	for i, m := range moves {
		next, err := cur.Play(m)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
		cur = next
	}
	return cur, nil
}

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (p *Position) Perft(depth int) (int, error) {
	if depth == 0 {
		return 1, nil
	}
	moves := p.LegalMoves()
	if depth == 1 {
		return len(moves), nil
	}
	total := 0
	for _, m := range moves {
		next, err := Apply(p, m.Origin, m.Target, m.Kind, m.Promotion)
		if err != nil {
			return 0, err
		}
		n, err := next.Perft(depth - 1)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
