package engine

import (
	"chessduel/internal/board"
)

// Half-move thresholds of the 50- and 75-move rules.
const (
	fiftyMoveClock       = 100
	seventyFiveMoveClock = 150
)

// Apply plays a move and returns the resulting position. kind is the label
// LabelMoves produced for target; promotion is required for promotion kinds
// and ignored otherwise. p is left untouched.
func Apply(p *Position, origin, target board.Square, kind MoveKind, promotion board.Piece) (*Position, error) {
	ctx, err := newMoveContext(p, origin, target, kind, promotion)
	if err != nil {
		return nil, err
	}

	ply := len(p.History)
	next := p.clone()

	next.SideToMove = ctx.mover.Opponent()
	next.updateHalfMoveClock(ctx)
	notation := ctx.notation()
	next.updateEnPassant(ctx)
	next.updatePieceIndex(ctx)
	next.updateBoard(ctx)
	next.updateControls(&p.Board, ctx.changedSquares())
	next.updateCastlingRights(ctx, ply)
	next.updateCheck()
	next.History = append(next.History, ctx.record(notation, next.IsCheck))
	next.updatePins()
	next.evaluate()
	next.updateRepetitions()
	next.updateCaptured(ctx)

	return next, nil
}

func (p *Position) updateHalfMoveClock(ctx moveContext) {
	if ctx.moved == board.Pawn || ctx.captured.IsReal() {
		p.HalfMoveClock = 0
		return
	}
	p.HalfMoveClock++
}

func (p *Position) updateEnPassant(ctx moveContext) {
	p.EnPassant = board.NoSquare
	if ctx.kind == DoubleForward {
		p.EnPassant = enPassantTarget(&p.Board, ctx.mover, ctx.origin, ctx.target)
	}
}

// enPassantTarget returns the square skipped by a double step, but only when
// an enemy pawn stands beside the target and could capture onto it.
func enPassantTarget(b *board.Board, mover board.Color, origin, target board.Square) board.Square {
	for _, d := range []board.Direction{-1, 1} {
		n := target.Offset(d)
		if b.Pieces[n] == board.Pawn && b.Colors[n] == mover.Opponent() {
			return origin.Offset(mover.Forward())
		}
	}
	return board.NoSquare
}

func (p *Position) updatePieceIndex(ctx moveContext) {
	if ctx.captured.IsReal() {
		p.Pieces.Remove(ctx.mover.Opponent(), ctx.captured, ctx.capturedAt)
	}
	p.Pieces.Remove(ctx.mover, ctx.moved, ctx.origin)
	p.Pieces.Add(ctx.mover, ctx.placed, ctx.target)
	if ctx.kind.IsCastle() {
		p.Pieces.Move(ctx.mover, board.Rook, ctx.rookOrigin, ctx.rookTarget)
	}
}

func (p *Position) updateBoard(ctx moveContext) {
	p.Board.Clear(ctx.origin)
	if ctx.kind == EnPassant {
		p.Board.Clear(ctx.capturedAt)
	}
	p.Board.Put(ctx.target, ctx.mover, ctx.placed)
	if ctx.kind.IsCastle() {
		p.Board.Clear(ctx.rookOrigin)
		p.Board.Put(ctx.rookTarget, ctx.mover, board.Rook)
	}
}

// updateCastlingRights revokes rights and stamps the ply they were lost at.
// Rights already lost keep their original stamp.
func (p *Position) updateCastlingRights(ctx moveContext, ply int) {
	lose := func(c board.Color, side int) {
		ci := c.Index()
		if p.Castling[ci][side] {
			p.Castling[ci][side] = false
			p.CastlingLostWhen[ci][side] = ply
		}
	}

	for side, lane := range castleLanes[ctx.mover.Index()] {
		if ctx.moved == board.King || (ctx.moved == board.Rook && ctx.origin == lane.rookHome) {
			lose(ctx.mover, side)
		}
	}

	opp := ctx.mover.Opponent()
	if ctx.captured == board.Rook {
		for side, lane := range castleLanes[opp.Index()] {
			if ctx.capturedAt == lane.rookHome {
				lose(opp, side)
			}
		}
	}
}

// evaluate sets the game-over, pause and draw-allowed reasons that follow from
// the board and the half-move clock. Repetition is handled separately.
func (p *Position) evaluate() {
	p.GameOver, p.Pause, p.AllowDraw = 0, 0, 0

	if !p.HasLegalMove() {
		if p.IsCheck {
			p.GameOver = p.GameOver.With(Checkmate)
		} else {
			p.GameOver = p.GameOver.With(Stalemate)
		}
	}

	switch {
	case p.HalfMoveClock >= seventyFiveMoveClock:
		p.GameOver = p.GameOver.With(SeventyFiveMove)
	case p.HalfMoveClock == fiftyMoveClock:
		p.Pause = p.Pause.With(FiftyMove)
	case p.HalfMoveClock > fiftyMoveClock:
		p.AllowDraw = p.AllowDraw.With(FiftyMove)
	}
}

func (p *Position) updateRepetitions() {
	key := p.Key()
	p.Repetitions[key]++
	switch p.Repetitions[key] {
	case 3:
		p.Pause = p.Pause.With(ThreeFold)
	case 5:
		p.GameOver = p.GameOver.With(FiveFold)
	}
}

func (p *Position) updateCaptured(ctx moveContext) {
	if ctx.captured.IsReal() && ctx.captured != board.King {
		p.Captured[ctx.mover.Opponent().Index()][ctx.captured-board.Pawn]++
	}
}
