package engine

import (
	"testing"

	"chessduel/internal/board"
	"chessduel/internal/testutil"
)

// Test positions shared by the move generation, undo and perft tests.
const (
	kiwipete  = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	endgame   = "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1"
	mirrored  = "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1"
	promoting = "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8"
	epReady   = "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3"
)

// operaGame is Morphy's 1858 Opera game, ending in mate.
var operaGame = []string{
	"e2e4", "e7e5", "g1f3", "d7d6", "d2d4", "c8g4", "d4e5", "g4f3",
	"d1f3", "d6e5", "f1c4", "g8f6", "f3b3", "d8e7", "b1c3", "c7c6",
	"c1g5", "b7b5", "c3b5", "c6b5", "c4b5", "b8d7", "e1c1", "a8d8",
	"d1d7", "d8d7", "h1d1", "e7e6", "b5d7", "f6d7", "b3b8", "d7b8",
	"d1d8",
}

func mustFEN(t testing.TB, fen string) *Position {
	t.Helper()
	p, err := FromFEN(fen)
	testutil.NoError(t, err, "FromFEN(%q)", fen)
	return p
}

func mustPlay(t testing.TB, p *Position, moves ...string) *Position {
	t.Helper()
	next, err := p.PlayAll(moves...)
	testutil.NoError(t, err, "PlayAll(%v)", moves)
	return next
}

// assertConsistent checks that the incrementally maintained tables match a
// rebuild from the grid.
func assertConsistent(t testing.TB, p *Position) {
	t.Helper()
	fresh := p.clone()
	fresh.rebuild()
	testutil.Equal(t, p.Pieces, fresh.Pieces, "piece index")
	testutil.Equal(t, p.Controls, fresh.Controls, "controls")
	testutil.Equal(t, p.ControlledBy, fresh.ControlledBy, "controlled-by")
	testutil.Equal(t, p.IsCheck, fresh.IsCheck, "check")
	testutil.Equal(t, p.CheckingSquares, fresh.CheckingSquares, "checking squares")
	testutil.Equal(t, p.CheckingVectors, fresh.CheckingVectors, "checking vectors")
	testutil.Equal(t, p.Pins, fresh.Pins, "pins")
}

func sq(name string) board.Square { return board.MustSquare(name) }

func targets(m Moves) []string {
	var out []string
	for _, t := range m.Targets() {
		out = append(out, t.String())
	}
	return out
}
