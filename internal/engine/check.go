package engine

import "chessduel/internal/board"

// updateCheck recomputes the check status of the side to move.
func (p *Position) updateCheck() {
	stm := p.SideToMove
	k := p.Pieces.King(stm)
	p.CheckingSquares = board.SquareSet{}
	for a, d := range p.ControlledBy[k.Ordinal()][stm.Opponent().Index()] {
		if d != 0 {
			p.CheckingSquares.Add(board.FromOrdinal(a))
		}
	}
	p.IsCheck = !p.CheckingSquares.Empty()
}

// updatePins scans the queen rays from both kings. A friendly piece followed by
// an enemy slider moving along that line is pinned to the ray. For the side to
// move, an enemy slider that is the first piece on a ray gives check along it;
// the ray's squares up to and including the slider become checking vectors,
// labelled with the direction pointing away from the king.
func (p *Position) updatePins() {
	p.Pins = [2]PinTable{}
	p.CheckingVectors = Control{}

	for _, c := range board.Colors {
		k := p.Pieces.King(c)
		for _, d := range board.QueenDirections {
			first := firstOccupied(&p.Board, k, d)
			fp, fc := p.Board.At(first)
			if fp == board.Sentinel {
				continue
			}

			if fc == c {
				beyond := firstOccupied(&p.Board, first, d)
				bp, bc := p.Board.At(beyond)
				if bc == c.Opponent() && bp.Slides(d) {
					var line board.SquareSet
					for s := k.Offset(d); s != beyond; s = s.Offset(d) {
						if s != first {
							line.Add(s)
						}
					}
					line.Add(beyond)
					p.Pins[c.Index()][first.Ordinal()] = line
				}
				continue
			}

			if c == p.SideToMove && fp.Slides(d) {
				for s := k.Offset(d); ; s = s.Offset(d) {
					p.CheckingVectors[s.Ordinal()] = d
					if s == first {
						break
					}
				}
			}
		}
	}
}

// firstOccupied walks from sq along d and returns the first non-empty cell,
// which may be a sentinel.
func firstOccupied(b *board.Board, sq board.Square, d board.Direction) board.Square {
	s := sq.Offset(d)
	for b.Pieces[s] == board.Empty {
		s = s.Offset(d)
	}
	return s
}

// attackedBy reports whether any piece of color c controls sq.
func (p *Position) attackedBy(sq board.Square, c board.Color) bool {
	return !p.ControlledBy[sq.Ordinal()][c.Index()].Empty()
}
