package engine

import (
	"fmt"
	"strings"

	"chessduel/internal/board"
)

// moveContext carries the facts of the move being applied through the
// transition steps. It is discarded once the new position is built.
type moveContext struct {
	mover      board.Color
	origin     board.Square
	target     board.Square
	kind       MoveKind
	moved      board.Piece
	placed     board.Piece
	captured   board.Piece
	capturedAt board.Square
	rookOrigin board.Square
	rookTarget board.Square
}

func newMoveContext(p *Position, origin, target board.Square, kind MoveKind, promotion board.Piece) (moveContext, error) {
	ctx := moveContext{
		origin:     origin,
		target:     target,
		kind:       kind,
		captured:   board.Empty,
		capturedAt: board.NoSquare,
		rookOrigin: board.NoSquare,
		rookTarget: board.NoSquare,
	}
	if !origin.Valid() || !target.Valid() {
		return ctx, fmt.Errorf("%w: %s-%s", ErrIllegalMove, origin, target)
	}

	ctx.moved, ctx.mover = p.Board.At(origin)
	if !ctx.moved.IsReal() {
		return ctx, fmt.Errorf("%w: %s", ErrNoPiece, origin)
	}

	ctx.placed = ctx.moved
	if kind.IsPromotion() {
		if !promotion.IsPromotionChoice() {
			return ctx, fmt.Errorf("%w: %s", ErrPromotionPiece, promotion)
		}
		ctx.placed = promotion
	}

	switch {
	case kind == EnPassant:
		ctx.captured = board.Pawn
		ctx.capturedAt = target.Offset(-ctx.mover.Forward())
		if pc, cc := p.Board.At(ctx.capturedAt); pc != board.Pawn || cc != ctx.mover.Opponent() {
			return ctx, fmt.Errorf("%w: no pawn to take en passant on %s", ErrIllegalMove, ctx.capturedAt)
		}
	case kind.IsCastle():
		from, to, ok := castleRook(target)
		if !ok {
			return ctx, fmt.Errorf("%w: %s", ErrCastlingTarget, target)
		}
		ctx.rookOrigin, ctx.rookTarget = from, to
	case p.Board.Colors[target] == ctx.mover.Opponent():
		ctx.captured = p.Board.Pieces[target]
		ctx.capturedAt = target
	}

	return ctx, nil
}

// changedSquares lists every square whose content the move alters.
func (c moveContext) changedSquares() []board.Square {
	sq := []board.Square{c.origin, c.target}
	if c.kind == EnPassant {
		sq = append(sq, c.capturedAt)
	}
	if c.kind.IsCastle() {
		sq = append(sq, c.rookOrigin, c.rookTarget)
	}
	return sq
}

// notation renders the history text without the check marker.
func (c moveContext) notation() string {
	switch {
	case c.kind.IsCastle():
		if c.target.File() == 6 {
			return castleShort
		}
		return castleLong
	case c.kind == EnPassant:
		return c.origin.String() + captureMarker + c.target.String() + enPassantMark
	}

	var sb strings.Builder
	sb.WriteString(c.moved.Letter())
	sb.WriteString(c.origin.String())
	if c.captured.IsReal() {
		sb.WriteString(captureMarker)
		sb.WriteString(c.captured.Letter())
	} else {
		sb.WriteString(quietSeparator)
	}
	sb.WriteString(c.target.String())
	if c.kind.IsPromotion() {
		sb.WriteString("=")
		sb.WriteString(c.placed.Letter())
	}
	return sb.String()
}

func (c moveContext) record(notation string, check bool) MoveRecord {
	if check {
		notation += checkMarker
	}
	return MoveRecord{
		Notation:   notation,
		Mover:      c.mover,
		Origin:     c.origin,
		Target:     c.target,
		Kind:       c.kind,
		Moved:      c.moved,
		Placed:     c.placed,
		Captured:   c.captured,
		CapturedAt: c.capturedAt,
		RookOrigin: c.rookOrigin,
		RookTarget: c.rookTarget,
		Check:      check,
	}
}
