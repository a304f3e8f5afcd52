package engine

import "chessduel/internal/board"

// Control maps attacked squares (by ordinal) to the direction of attack.
// Zero means the square is not attacked.
type Control [64]board.Direction

// ControlTable is Controls: attacker ordinal -> what it attacks.
type ControlTable [64]Control

// AttackTable is ControlledBy: attacked ordinal -> attacker color -> attackers.
type AttackTable [64][2]Control

func (c Control) Has(sq board.Square) bool { return sq.Valid() && c[sq.Ordinal()] != 0 }

func (c Control) Empty() bool { return c == Control{} }

// Squares lists the controlled squares from a1 to h8.
func (c Control) Squares() []board.Square {
	var out []board.Square
	for i, d := range c {
		if d != 0 {
			out = append(out, board.FromOrdinal(i))
		}
	}
	return out
}

func (c Control) Len() int {
	n := 0
	for _, d := range c {
		if d != 0 {
			n++
		}
	}
	return n
}

// ComputeControl returns what the piece on sq attacks or defends.
func ComputeControl(b *board.Board, sq board.Square) Control {
	var ctl Control
	p, c := b.At(sq)
	switch p {
	case board.Pawn:
		for _, d := range board.PawnCaptures(c) {
			step(b, sq, d, &ctl)
		}
	case board.Knight:
		for _, d := range board.KnightOffsets {
			step(b, sq, d, &ctl)
		}
	case board.King:
		for _, d := range board.QueenDirections {
			step(b, sq, d, &ctl)
		}
	case board.Bishop:
		for _, d := range board.BishopDirections {
			walkRay(b, sq, d, &ctl)
		}
	case board.Rook:
		for _, d := range board.RookDirections {
			walkRay(b, sq, d, &ctl)
		}
	case board.Queen:
		for _, d := range board.QueenDirections {
			walkRay(b, sq, d, &ctl)
		}
	}
	return ctl
}

func step(b *board.Board, from board.Square, d board.Direction, ctl *Control) {
	if t := from.Offset(d); b.Pieces[t] != board.Sentinel {
		ctl[t.Ordinal()] = d
	}
}

// walkRay adds every empty square along d and the first occupied one.
func walkRay(b *board.Board, from board.Square, d board.Direction, ctl *Control) {
	for t := from.Offset(d); b.Pieces[t] != board.Sentinel; t = t.Offset(d) {
		ctl[t.Ordinal()] = d
		if b.Pieces[t] != board.Empty {
			return
		}
	}
}

// addControl installs ctl as the control of sq and mirrors it into ControlledBy.
func (p *Position) addControl(sq board.Square, ctl Control) {
	o := sq.Ordinal()
	ci := p.Board.Colors[sq].Index()
	p.Controls[o] = ctl
	for t, d := range ctl {
		if d != 0 {
			p.ControlledBy[t][ci][o] = d
		}
	}
}

// removeControl drops the control of sq, which belonged to color c.
func (p *Position) removeControl(sq board.Square, c board.Color) {
	o := sq.Ordinal()
	ci := c.Index()
	for t, d := range p.Controls[o] {
		if d != 0 {
			p.ControlledBy[t][ci][o] = 0
		}
	}
	p.Controls[o] = Control{}
}

// patchRay re-walks a single ray of the slider on sq, shrinking or extending it.
func (p *Position) patchRay(sq board.Square, d board.Direction) {
	o := sq.Ordinal()
	ci := p.Board.Colors[sq].Index()
	for t, dir := range p.Controls[o] {
		if dir == d {
			p.Controls[o][t] = 0
			p.ControlledBy[t][ci][o] = 0
		}
	}
	var ray Control
	walkRay(&p.Board, sq, d, &ray)
	for t, dir := range ray {
		if dir != 0 {
			p.Controls[o][t] = dir
			p.ControlledBy[t][ci][o] = dir
		}
	}
}

func (p *Position) rebuildControls() {
	p.Controls = ControlTable{}
	p.ControlledBy = AttackTable{}
	for _, sq := range board.Squares {
		if p.Board.Pieces[sq].IsReal() {
			p.addControl(sq, ComputeControl(&p.Board, sq))
		}
	}
}

type rayRef struct {
	from board.Square
	dir  board.Direction
}

// updateControls patches Controls and ControlledBy after the board arrays have
// moved from before to p.Board. Every changed square is cleared and rebuilt;
// sliders whose line of sight crossed a changed square get that ray re-walked.
func (p *Position) updateControls(before *board.Board, changed []board.Square) {
	isChanged := func(sq board.Square) bool {
		for _, c := range changed {
			if c == sq {
				return true
			}
		}
		return false
	}

	var rays []rayRef
	for _, sq := range changed {
		for ci := 0; ci < 2; ci++ {
			for a, d := range p.ControlledBy[sq.Ordinal()][ci] {
				if d == 0 {
					continue
				}
				from := board.FromOrdinal(a)
				if before.Pieces[from].IsSlider() && !isChanged(from) {
					rays = append(rays, rayRef{from: from, dir: d})
				}
			}
		}
	}

	for _, sq := range changed {
		if before.Pieces[sq].IsReal() {
			p.removeControl(sq, before.Colors[sq])
		}
	}
	for _, sq := range changed {
		if p.Board.Pieces[sq].IsReal() {
			p.addControl(sq, ComputeControl(&p.Board, sq))
		}
	}
	for _, r := range rays {
		p.patchRay(r.from, r.dir)
	}
}
