package engine

import (
	"testing"

	"github.com/dylhunn/dragontoothmg"

	"chessduel/internal/board"
	"chessduel/internal/testutil"
)

func TestPinnedPieces(t *testing.T) {
	p := mustFEN(t, "4k3/4r3/8/8/8/8/4B3/4K3 w - - 0 1")
	moves := p.LabelMoves(sq("e2"))
	testutil.True(t, moves.Empty(), "bishop pinned on a file cannot move")

	p = mustFEN(t, "4k3/4r3/8/8/8/8/4R3/4K3 w - - 0 1")
	moves = p.LabelMoves(sq("e2"))
	testutil.Equal(t, targets(moves), []string{"e3", "e4", "e5", "e6", "e7"})
	testutil.Equal(t, moves.Kind(sq("e7")), Capture)

	// Pins hold for the side not to move as well.
	p = mustFEN(t, "4k3/4r3/8/8/8/8/4R3/4K3 b - - 0 1")
	moves = p.LabelMoves(sq("e2"))
	testutil.Equal(t, targets(moves), []string{"e3", "e4", "e5", "e6", "e7"})
	moves = p.LabelMoves(sq("e7"))
	testutil.Equal(t, targets(moves), []string{"e2", "e3", "e4", "e5", "e6"})
}

func TestDiagonalPinAllowsCapture(t *testing.T) {
	p := mustFEN(t, "4k3/8/8/8/7b/8/5P2/4K3 w - - 0 1")
	testutil.True(t, p.LabelMoves(sq("f2")).Empty(), "pawn pinned on a diagonal cannot push")

	p = mustFEN(t, "4k3/8/8/8/8/6b1/5P2/4K3 w - - 0 1")
	moves := p.LabelMoves(sq("f2"))
	testutil.Equal(t, targets(moves), []string{"g3"})
	testutil.Equal(t, moves.Kind(sq("g3")), Capture)
}

func TestSingleCheckEvasions(t *testing.T) {
	// Rook checks along the e-file; the bishop can only block on e3.
	p := mustFEN(t, "4k3/8/8/4r3/8/8/8/2B1K3 w - - 0 1")
	testutil.True(t, p.IsCheck)
	testutil.Equal(t, targets(p.LabelMoves(sq("c1"))), []string{"e3"})
	testutil.Equal(t, p.CheckingVectors.Squares(), []board.Square{sq("e2"), sq("e3"), sq("e4"), sq("e5")})

	// Knight check: only capturing the knight helps a non-king piece.
	p = mustFEN(t, "4k3/8/8/8/8/3n4/8/R3K3 w - - 0 1")
	testutil.True(t, p.IsCheck)
	testutil.True(t, p.LabelMoves(sq("a1")).Empty(), "rook cannot capture or block a knight check")
}

func TestDoubleCheck(t *testing.T) {
	p := mustFEN(t, "4k3/8/8/8/8/3n3R/8/4K2r w - - 0 1")
	testutil.True(t, p.IsCheck)
	testutil.Equal(t, p.CheckingSquares.Len(), 2)
	testutil.True(t, p.LabelMoves(sq("h3")).Empty(), "only the king moves in double check")
	testutil.Equal(t, targets(p.LabelMoves(board.E1)), []string{"d2", "e2"})
}

func TestKingCannotStepAlongCheckingRay(t *testing.T) {
	p := mustFEN(t, "4k3/8/8/8/8/8/8/r3K3 w - - 0 1")
	moves := p.LabelMoves(board.E1)
	testutil.Equal(t, moves.Kind(sq("f1")), NoMove)
	testutil.Equal(t, targets(moves), []string{"d2", "e2", "f2"})
}

func TestKingCannotCaptureDefended(t *testing.T) {
	p := mustFEN(t, "4k3/8/8/8/8/8/3q4/4K3 w - - 0 1")
	testutil.Equal(t, p.LabelMoves(board.E1).Kind(sq("d2")), Capture)

	p = mustFEN(t, "4kr2/8/8/8/8/2n5/3q4/4K3 w - - 0 1")
	testutil.True(t, p.LabelMoves(board.E1).Empty(), "checkmated king")
	testutil.True(t, p.GameOver.Has(Checkmate))
}

func TestCastlingRefusals(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		want []MoveKind
	}{
		{"both open", "4k3/8/8/8/8/8/8/R3K2R w KQ - 0 1", []MoveKind{CastleKingside, CastleQueenside}},
		{"passage attacked", "4k3/8/8/8/8/8/5r2/R3K2R w KQ - 0 1", []MoveKind{CastleQueenside}},
		{"in check", "4k3/4r3/8/8/8/8/8/R3K2R w KQ - 0 1", nil},
		{"landing attacked", "4k3/8/8/8/8/8/6r1/R3K2R w KQ - 0 1", []MoveKind{CastleQueenside}},
		{"b1 attacked is fine", "4k3/8/8/8/8/8/1r6/R3K2R w KQ - 0 1", []MoveKind{CastleKingside, CastleQueenside}},
		{"b1 occupied", "4k3/8/8/8/8/8/8/RN2K2R w KQ - 0 1", []MoveKind{CastleKingside}},
		{"no rights", "4k3/8/8/8/8/8/8/R3K2R w - - 0 1", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := mustFEN(t, tc.fen)
			moves := p.LabelMoves(board.E1)
			var got []MoveKind
			for _, k := range []MoveKind{CastleKingside, CastleQueenside} {
				for _, tg := range moves.Targets() {
					if moves.Kind(tg) == k {
						got = append(got, k)
					}
				}
			}
			testutil.Equal(t, got, tc.want)
		})
	}
}

func TestEnPassantDiscoveredRankCheck(t *testing.T) {
	p := mustFEN(t, "8/8/8/K2pP2r/8/8/8/4k3 w - d6 0 1")
	moves := p.LabelMoves(sq("e5"))
	testutil.Equal(t, moves.Kind(sq("d6")), NoMove)
	testutil.Equal(t, targets(moves), []string{"e6"})

	// Without the rook the capture is fine.
	p = mustFEN(t, "8/8/8/K2pP3/8/8/8/4k3 w - d6 0 1")
	testutil.Equal(t, p.LabelMoves(sq("e5")).Kind(sq("d6")), EnPassant)
}

func TestEnPassantCapturesChecker(t *testing.T) {
	p := mustFEN(t, "8/8/8/3pP3/4K3/8/8/7k w - d6 0 1")
	testutil.True(t, p.IsCheck)
	moves := p.LabelMoves(sq("e5"))
	testutil.Equal(t, targets(moves), []string{"d6"})
	testutil.Equal(t, moves.Kind(sq("d6")), EnPassant)

	next := mustPlay(t, p, "e5d6")
	testutil.False(t, next.IsCheck)
	assertConsistent(t, next)
}

func TestLegalMovesExpandsPromotions(t *testing.T) {
	p := mustFEN(t, "4k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	var promos []string
	for _, m := range p.LegalMoves() {
		if m.Kind.IsPromotion() {
			promos = append(promos, m.String())
		}
	}
	testutil.Equal(t, promos, []string{"a7a8q", "a7a8r", "a7a8b", "a7a8n"})
}

func TestPerft(t *testing.T) {
	cases := []struct {
		name  string
		fen   string
		depth int
		nodes int
	}{
		{"start", board.StartingFEN, 1, 20},
		{"start", board.StartingFEN, 2, 400},
		{"start", board.StartingFEN, 3, 8902},
		{"kiwipete", kiwipete, 1, 48},
		{"kiwipete", kiwipete, 2, 2039},
		{"endgame", endgame, 1, 14},
		{"endgame", endgame, 2, 191},
		{"endgame", endgame, 3, 2812},
		{"mirrored", mirrored, 1, 6},
		{"mirrored", mirrored, 2, 264},
		{"promoting", promoting, 1, 44},
		{"promoting", promoting, 2, 1486},
	}
	for _, tc := range cases {
		if testing.Short() && tc.depth > 2 {
			continue
		}
		p := mustFEN(t, tc.fen)
		got, err := p.Perft(tc.depth)
		testutil.NoError(t, err)
		testutil.Equal(t, got, tc.nodes, "%s depth %d", tc.name, tc.depth)
	}
}

// TestDivideAgainstDragontooth compares per-move subtree sizes with an
// independent bitboard generator.
func TestDivideAgainstDragontooth(t *testing.T) {
	for _, fen := range []string{board.StartingFEN, kiwipete, endgame, mirrored, promoting, epReady} {
		p := mustFEN(t, fen)
		ours := map[string]int{}
		for _, m := range p.LegalMoves() {
			next, err := Apply(p, m.Origin, m.Target, m.Kind, m.Promotion)
			testutil.NoError(t, err)
			ours[m.String()] = len(next.LegalMoves())
		}

		b := dragontoothmg.ParseFen(fen)
		theirs := map[string]int{}
		for _, m := range b.GenerateLegalMoves() {
			undo := b.Apply(m)
			theirs[m.String()] = len(b.GenerateLegalMoves())
			undo()
		}

		testutil.Equal(t, ours, theirs, fen)
	}
}
