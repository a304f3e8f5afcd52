package engine

import "chessduel/internal/board"

// castleLane describes one castling option.
type castleLane struct {
	kingHome board.Square
	rookHome board.Square
	pass     board.Square // square the king crosses
	land     board.Square // king's destination
	rookTo   board.Square
	between  []board.Square
	kind     MoveKind
}

var castleLanes = [2][2]castleLane{
	{
		{board.E1, board.H1, board.F1, board.G1, board.F1, []board.Square{board.F1, board.G1}, CastleKingside},
		{board.E1, board.A1, board.D1, board.C1, board.D1, []board.Square{board.D1, board.C1, board.B1}, CastleQueenside},
	},
	{
		{board.E8, board.H8, board.F8, board.G8, board.F8, []board.Square{board.F8, board.G8}, CastleKingside},
		{board.E8, board.A8, board.D8, board.C8, board.D8, []board.Square{board.D8, board.C8, board.B8}, CastleQueenside},
	},
}

// castleRook maps a castling king target onto the rook's move.
func castleRook(target board.Square) (from, to board.Square, ok bool) {
	for _, lanes := range castleLanes {
		for _, l := range lanes {
			if l.land == target {
				return l.rookHome, l.rookTo, true
			}
		}
	}
	return board.NoSquare, board.NoSquare, false
}

func lastRank(c board.Color) int {
	if c == board.White {
		return 7
	}
	return 0
}

func startRank(c board.Color) int {
	if c == board.White {
		return 1
	}
	return 6
}

// enPassantRank is the rank a pawn must stand on to capture en passant.
func enPassantRank(c board.Color) int {
	if c == board.White {
		return 4
	}
	return 3
}

// LabelMoves returns the legal targets of the piece on sq with their kinds.
// Check evasion applies only to pieces of the side to move; pins apply to
// both colors.
func (p *Position) LabelMoves(sq board.Square) Moves {
	var moves Moves
	if !sq.Valid() {
		return moves
	}
	piece, color := p.Board.At(sq)
	if !piece.IsReal() {
		return moves
	}
	if piece == board.King {
		return p.kingMoves(sq, color)
	}

	toMove := color == p.SideToMove
	if toMove && p.CheckingSquares.Len() > 1 {
		return moves
	}

	if piece == board.Pawn {
		moves = p.pawnMoves(sq, color)
	} else {
		moves = p.pieceMoves(sq, color)
	}

	if pin := p.Pins[color.Index()][sq.Ordinal()]; !pin.Empty() {
		for _, t := range moves.Targets() {
			if !pin.Has(t) {
				moves.clear(t)
			}
		}
	}

	if toMove && p.IsCheck {
		p.restrictToEvasions(&moves, color)
	}

	if moves.Kind(p.EnPassant) == EnPassant && !p.enPassantSafe(sq, color) {
		moves.clear(p.EnPassant)
	}

	return moves
}

func (p *Position) pieceMoves(sq board.Square, color board.Color) Moves {
	var moves Moves
	for t, d := range p.Controls[sq.Ordinal()] {
		if d == 0 {
			continue
		}
		target := board.FromOrdinal(t)
		switch p.Board.Colors[target] {
		case color:
		case color.Opponent():
			moves.set(target, Capture)
		default:
			moves.set(target, Quiet)
		}
	}
	return moves
}

func (p *Position) pawnMoves(sq board.Square, color board.Color) Moves {
	var moves Moves
	fwd := color.Forward()

	one := sq.Offset(fwd)
	if p.Board.Pieces[one] == board.Empty {
		if one.Rank() == lastRank(color) {
			moves.set(one, Promote)
		} else {
			moves.set(one, Quiet)
		}
		two := one.Offset(fwd)
		if sq.Rank() == startRank(color) && p.Board.Pieces[two] == board.Empty {
			moves.set(two, DoubleForward)
		}
	}

	for t, d := range p.Controls[sq.Ordinal()] {
		if d == 0 {
			continue
		}
		target := board.FromOrdinal(t)
		switch {
		case p.Board.Colors[target] == color.Opponent():
			if target.Rank() == lastRank(color) {
				moves.set(target, PromoteCapture)
			} else {
				moves.set(target, Capture)
			}
		case target == p.EnPassant && sq.Rank() == enPassantRank(color):
			moves.set(target, EnPassant)
		}
	}
	return moves
}

func (p *Position) kingMoves(sq board.Square, color board.Color) Moves {
	var moves Moves
	opp := color.Opponent()

	for t, d := range p.Controls[sq.Ordinal()] {
		if d == 0 {
			continue
		}
		target := board.FromOrdinal(t)
		if p.Board.Colors[target] == color || p.attackedBy(target, opp) {
			continue
		}
		if p.Board.Colors[target] == opp {
			moves.set(target, Capture)
		} else {
			moves.set(target, Quiet)
		}
	}

	checkers := p.ControlledBy[sq.Ordinal()][opp.Index()]
	if !checkers.Empty() {
		// The square behind the king on a slider's line stays attacked once
		// the king steps onto it.
		for a, d := range checkers {
			if d == 0 || !p.Board.Pieces[board.FromOrdinal(a)].IsSlider() {
				continue
			}
			if behind := sq.Offset(d); behind.Valid() {
				moves.clear(behind)
			}
		}
		return moves
	}

	ci := color.Index()
	for side, lane := range castleLanes[ci] {
		if !p.Castling[ci][side] || sq != lane.kingHome {
			continue
		}
		if p.Board.Pieces[lane.rookHome] != board.Rook || p.Board.Colors[lane.rookHome] != color {
			continue
		}
		open := true
		for _, s := range lane.between {
			if p.Board.Pieces[s] != board.Empty {
				open = false
				break
			}
		}
		if !open || p.attackedBy(lane.pass, opp) || p.attackedBy(lane.land, opp) {
			continue
		}
		moves.set(lane.land, lane.kind)
	}
	return moves
}

// restrictToEvasions keeps only the moves that resolve a single check.
func (p *Position) restrictToEvasions(moves *Moves, color board.Color) {
	checker, _ := p.CheckingSquares.First()
	slider := p.Board.Pieces[checker].IsSlider()
	for _, t := range moves.Targets() {
		if slider {
			if !p.CheckingVectors.Has(t) {
				moves.clear(t)
			}
			continue
		}
		if t == checker {
			continue
		}
		if moves.Kind(t) == EnPassant && t.Offset(-color.Forward()) == checker {
			continue
		}
		moves.clear(t)
	}
}

// enPassantSafe reports whether capturing en passant from sq leaves the king
// unattacked once both pawns have left their squares.
func (p *Position) enPassantSafe(sq board.Square, color board.Color) bool {
	k := p.Pieces.King(color)
	captured := p.EnPassant.Offset(-color.Forward())
	for _, d := range board.QueenDirections {
		for t := k.Offset(d); ; t = t.Offset(d) {
			if t == p.EnPassant {
				break
			}
			if t == sq || t == captured {
				continue
			}
			piece := p.Board.Pieces[t]
			if piece == board.Empty {
				continue
			}
			if piece != board.Sentinel && p.Board.Colors[t] != color && piece.Slides(d) {
				return false
			}
			break
		}
	}
	return true
}

// HasLegalMove reports whether the side to move has any legal move.
func (p *Position) HasLegalMove() bool {
	for _, sq := range p.Pieces.All(p.SideToMove) {
		if moves := p.LabelMoves(sq); !moves.Empty() {
			return true
		}
	}
	return false
}

// LegalMoves lists every legal move of the side to move, expanding each
// promotion into its four piece choices.
func (p *Position) LegalMoves() []Move {
	var out []Move
	for _, sq := range p.Pieces.All(p.SideToMove) {
		moves := p.LabelMoves(sq)
		for _, t := range moves.Targets() {
			k := moves.Kind(t)
			if !k.IsPromotion() {
				out = append(out, Move{Origin: sq, Target: t, Kind: k})
				continue
			}
			for _, promo := range []board.Piece{board.Queen, board.Rook, board.Bishop, board.Knight} {
				out = append(out, Move{Origin: sq, Target: t, Kind: k, Promotion: promo})
			}
		}
	}
	return out
}
