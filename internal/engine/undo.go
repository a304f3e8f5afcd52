package engine

import (
	"fmt"

	"chessduel/internal/board"
)

// Undo takes back the last move. An empty history returns p itself.
func Undo(p *Position) (*Position, error) {
	n := len(p.History)
	if n == 0 {
		return p, nil
	}
	rec := p.History[n-1]

	key := p.Key()
	count, ok := p.Repetitions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRepetitionMissing, key)
	}

	prev := p.clone()
	if count <= 1 {
		delete(prev.Repetitions, key)
	} else {
		prev.Repetitions[key] = count - 1
	}

	prev.SideToMove = rec.Mover
	prev.restoreBoard(rec)
	prev.History = prev.History[:n-1]
	if len(prev.History) == 0 {
		prev.History = nil
	}
	prev.restoreCastlingRights(n - 1)
	prev.HalfMoveClock = prev.replayHalfMoveClock()
	prev.EnPassant = prev.replayEnPassant()
	prev.rebuild()
	prev.restoreReasons()
	if rec.Captured.IsReal() && rec.Captured != board.King {
		prev.Captured[rec.Mover.Opponent().Index()][rec.Captured-board.Pawn]--
	}

	return prev, nil
}

func (p *Position) restoreBoard(rec MoveRecord) {
	p.Board.Clear(rec.Target)
	p.Board.Put(rec.Origin, rec.Mover, rec.Moved)
	if rec.Captured.IsReal() {
		p.Board.Put(rec.CapturedAt, rec.Mover.Opponent(), rec.Captured)
	}
	if rec.Kind.IsCastle() {
		p.Board.Clear(rec.RookTarget)
		p.Board.Put(rec.RookOrigin, rec.Mover, board.Rook)
	}
}

// restoreCastlingRights re-grants every right lost by the move at ply.
func (p *Position) restoreCastlingRights(ply int) {
	for ci := range p.CastlingLostWhen {
		for side, lost := range p.CastlingLostWhen[ci] {
			if lost == ply {
				p.Castling[ci][side] = true
				p.CastlingLostWhen[ci][side] = -1
			}
		}
	}
}

// replayHalfMoveClock counts the plies played since the last pawn move or
// capture in the history, falling back to the starting clock.
func (p *Position) replayHalfMoveClock() int {
	for j := len(p.History) - 1; j >= 0; j-- {
		if p.History[j].ResetsClock() {
			return len(p.History) - 1 - j
		}
	}
	return p.StartHalfMoves + len(p.History)
}

func (p *Position) replayEnPassant() board.Square {
	last, ok := p.LastMove()
	if !ok {
		return p.StartEnPassant
	}
	if last.Kind == DoubleForward {
		return enPassantTarget(&p.Board, last.Mover, last.Origin, last.Target)
	}
	return board.NoSquare
}

// restoreReasons clears game-over and pause reasons and re-opens the draw
// claims the restored position still supports.
func (p *Position) restoreReasons() {
	p.GameOver, p.Pause, p.AllowDraw = 0, 0, 0
	if p.HalfMoveClock >= fiftyMoveClock {
		p.AllowDraw = p.AllowDraw.With(FiftyMove)
	}
	if p.Repetitions[p.Key()] == 3 {
		p.AllowDraw = p.AllowDraw.With(ThreeFold)
	}
}
