package game

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"chessduel/internal/board"
	"chessduel/internal/core"
	"chessduel/internal/engine"
	"chessduel/internal/testutil"
)

func fromFEN(t *testing.T, fen string) *Game {
	t.Helper()
	p, err := engine.FromFEN(fen)
	testutil.NoError(t, err)
	return FromPosition(p)
}

func playMoves(t *testing.T, g *Game, moves ...string) *Game {
	t.Helper()
	for _, m := range moves {
		actions, err := MoveActions(m)
		testutil.NoError(t, err, m)
		g, err = ReduceAll(g, actions...)
		testutil.NoError(t, err, m)
	}
	return g
}

func click(t *testing.T, g *Game, name string) *Game {
	t.Helper()
	next, err := Reduce(g, Action{Kind: SquareChosen, Square: board.MustSquare(name)})
	testutil.NoError(t, err, "click %s", name)
	return next
}

func TestSquareChosenSelectsThenMoves(t *testing.T) {
	t.Parallel()
	g := click(t, New(), "e2")
	testutil.Equal(t, g.Origin, board.MustSquare("e2"))
	testutil.Equal(t, g.Moves.Kind(board.MustSquare("e4")), engine.DoubleForward)
	testutil.Equal(t, g.Position.Ply(), 0)

	g = click(t, g, "e4")
	testutil.Equal(t, g.Position.Ply(), 1)
	testutil.Equal(t, g.Position.Notations(), []string{"e2-e4"})
	testutil.Equal(t, g.Origin, board.NoSquare)
	testutil.Equal(t, g.State(), core.StateOngoing)
}

func TestSquareChosenReselects(t *testing.T) {
	t.Parallel()
	// Clicking an opponent piece shows its moves but never plays them.
	g := click(t, New(), "e7")
	testutil.False(t, g.Moves.Empty())
	g = click(t, g, "e5")
	testutil.Equal(t, g.Position.Ply(), 0)
	testutil.Equal(t, g.Origin, board.MustSquare("e5"))
	testutil.True(t, g.Moves.Empty(), "empty square has no moves")

	// An illegal target just moves the selection.
	g = click(t, click(t, New(), "g1"), "g3")
	testutil.Equal(t, g.Position.Ply(), 0)
	testutil.Equal(t, g.Origin, board.MustSquare("g3"))

	_, err := Reduce(New(), Action{Kind: SquareChosen, Square: board.NoSquare})
	testutil.ErrorIs(t, err, ErrInvalidAction)
}

func TestScholarsMate(t *testing.T) {
	t.Parallel()
	g := playMoves(t, New(), "e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7")
	testutil.Equal(t, g.State(), core.StateWhiteWins)
	testutil.True(t, g.Position.GameOver.Has(engine.Checkmate))

	same, err := Reduce(g, Action{Kind: SquareChosen, Square: board.MustSquare("e8")})
	testutil.NoError(t, err)
	testutil.True(t, same == g, "clicks after the game ended are ignored")
}

func TestPromotionPause(t *testing.T) {
	t.Parallel()
	start := fromFEN(t, "4k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	g := click(t, click(t, start, "a7"), "a8")
	testutil.True(t, g.IsPaused())
	testutil.Equal(t, g.State(), core.StatePaused)
	testutil.Equal(t, g.Pending.Reasons, engine.Promotion)
	testutil.True(t, g.Position == start.Position, "nothing committed yet")

	same := click(t, g, "e1")
	testutil.True(t, same == g, "clicks are ignored while paused")

	_, err := Reduce(g, Action{Kind: PromotionPieceChosen, Piece: board.King})
	testutil.ErrorIs(t, err, engine.ErrPromotionPiece)

	g, err = Reduce(g, Action{Kind: PromotionPieceChosen, Piece: board.Queen})
	testutil.NoError(t, err)
	testutil.False(t, g.IsPaused())
	testutil.Equal(t, g.Position.Notations(), []string{"a7-a8=Q+"})

	_, err = Reduce(g, Action{Kind: PromotionPieceChosen, Piece: board.Queen})
	testutil.ErrorIs(t, err, ErrInvalidAction)
}

// shuffle returns a rook and king to where they started.
var shuffle = []string{"a1a2", "e8d8", "a2a1", "d8e8"}

func threefoldPending(t *testing.T) *Game {
	t.Helper()
	g := fromFEN(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	g = playMoves(t, g, shuffle...)
	g = playMoves(t, g, shuffle[:3]...)
	return playMoves(t, g, shuffle[3])
}

func TestThreefoldClaim(t *testing.T) {
	t.Parallel()
	g := threefoldPending(t)
	testutil.True(t, g.IsPaused())
	testutil.Equal(t, g.Pending.Reasons, engine.ThreeFold)
	testutil.Equal(t, g.Position.Ply(), 7)

	g, err := Reduce(g, Action{Kind: ClaimDraw})
	testutil.NoError(t, err)
	testutil.Equal(t, g.State(), core.StateDraw)
	testutil.Equal(t, g.Position.GameOver, engine.ThreeFold)
	testutil.Equal(t, g.Position.Ply(), 8)
	testutil.Equal(t, g.Position.Repetitions[g.Position.Key()], 3)
}

func TestThreefoldDeclineThenClaimWithoutMove(t *testing.T) {
	t.Parallel()
	g, err := Reduce(threefoldPending(t), Action{Kind: DoNotClaimDraw})
	testutil.NoError(t, err)
	testutil.Equal(t, g.State(), core.StateOngoing)
	testutil.Equal(t, g.Position.AllowDraw, engine.ThreeFold)
	testutil.Equal(t, g.Position.Ply(), 8)

	g, err = Reduce(g, Action{Kind: ClaimDrawWithoutMove})
	testutil.NoError(t, err)
	testutil.Equal(t, g.State(), core.StateDraw)
	testutil.Equal(t, g.Position.GameOver, engine.ThreeFold)
	testutil.True(t, g.Position.AllowDraw.Empty())
}

func TestDrawOfferLapsesAfterAMove(t *testing.T) {
	t.Parallel()
	g, err := Reduce(threefoldPending(t), Action{Kind: DoNotClaimDraw})
	testutil.NoError(t, err)
	g = playMoves(t, g, "e1d1")
	testutil.True(t, g.Position.AllowDraw.Empty())

	_, err = Reduce(g, Action{Kind: ClaimDrawWithoutMove})
	testutil.ErrorIs(t, err, ErrInvalidAction)
}

func TestFiftyMovePause(t *testing.T) {
	t.Parallel()
	g := fromFEN(t, "4k3/8/8/8/8/8/8/R3K3 w - - 99 80")
	g = playMoves(t, g, "a1a2")
	testutil.Equal(t, g.Pending.Reasons, engine.FiftyMove)

	claimed, err := Reduce(g, Action{Kind: ClaimDraw})
	testutil.NoError(t, err)
	testutil.Equal(t, claimed.State(), core.StateDraw)
	testutil.Equal(t, claimed.Position.HalfMoveClock, 100)
}

func TestGameOverOverridesDrawPause(t *testing.T) {
	t.Parallel()
	// The mating move is also the hundredth half-move.
	g := playMoves(t, fromFEN(t, "7k/8/6K1/8/8/8/8/R7 w - - 99 80"), "a1a8")
	testutil.False(t, g.IsPaused())
	testutil.Equal(t, g.State(), core.StateWhiteWins)
	testutil.True(t, g.Position.GameOver.Has(engine.Checkmate))
	testutil.True(t, g.Position.Pause.Empty(), "pause %s", g.Position.Pause)
	testutil.Equal(t, g.Position.HalfMoveClock, 100)

	// The third repetition arrives on the hundred and fiftieth half-move.
	g = fromFEN(t, "4k3/8/8/8/8/8/8/R3K3 w - - 142 80")
	g = playMoves(t, g, shuffle...)
	g = playMoves(t, g, shuffle...)
	testutil.False(t, g.IsPaused())
	testutil.Equal(t, g.State(), core.StateDraw)
	testutil.Equal(t, g.Position.GameOver, engine.SeventyFiveMove)
	testutil.True(t, g.Position.Pause.Empty(), "pause %s", g.Position.Pause)
	testutil.Equal(t, g.Position.Repetitions[g.Position.Key()], 3)
	testutil.Equal(t, g.Position.HalfMoveClock, 150)
}

func TestResolveWithoutOffer(t *testing.T) {
	t.Parallel()
	for _, kind := range []ActionKind{ClaimDraw, DoNotClaimDraw, ClaimDrawWithoutMove, PromotionPieceChosen} {
		_, err := Reduce(New(), Action{Kind: kind, Piece: board.Queen})
		testutil.ErrorIs(t, err, ErrInvalidAction, kind)
	}
}

func TestUndo(t *testing.T) {
	t.Parallel()
	start := New()
	same, err := Reduce(start, Action{Kind: Undo})
	testutil.NoError(t, err)
	testutil.True(t, same == start, "undo at the start is a no-op")

	g := playMoves(t, start, "e2e4", "e7e5")
	g, err = Reduce(g, Action{Kind: Undo})
	testutil.NoError(t, err)
	testutil.Equal(t, g.Position.Notations(), []string{"e2-e4"})

	// Undoing a pending move cancels it without touching the position.
	paused := threefoldPending(t)
	g, err = Reduce(paused, Action{Kind: Undo})
	testutil.NoError(t, err)
	testutil.False(t, g.IsPaused())
	testutil.True(t, g.Position == paused.Position)

	g, err = Reduce(g, Action{Kind: Undo})
	testutil.NoError(t, err)
	testutil.Equal(t, g.Position.Ply(), 6)
}

func TestRematch(t *testing.T) {
	t.Parallel()
	g := playMoves(t, New(), "e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7")
	g, err := Reduce(g, Action{Kind: Rematch})
	testutil.NoError(t, err)
	if diff := cmp.Diff(New(), g, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("rematch mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownAction(t *testing.T) {
	t.Parallel()
	_, err := Reduce(New(), Action{Kind: "resign"})
	testutil.ErrorIs(t, err, ErrUnknownAction)
}

func TestReduceLeavesInputUntouched(t *testing.T) {
	t.Parallel()
	g := playMoves(t, New(), "e2e4", "e7e5")
	before := *g.Position
	before.History = append([]engine.MoveRecord(nil), g.Position.History...)

	_ = playMoves(t, g, "g1f3", "b8c6")
	_, err := Reduce(g, Action{Kind: Undo})
	testutil.NoError(t, err)

	if diff := cmp.Diff(&before, g.Position, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("position changed (-want +got):\n%s", diff)
	}
}

func TestMoveActions(t *testing.T) {
	t.Parallel()
	actions, err := MoveActions("e7e8n")
	testutil.NoError(t, err)
	testutil.Equal(t, actions, []Action{
		{Kind: SquareChosen, Square: board.MustSquare("e7")},
		{Kind: SquareChosen, Square: board.MustSquare("e8")},
		{Kind: PromotionPieceChosen, Piece: board.Knight},
	})

	_, err = MoveActions("e9e8")
	testutil.ErrorIs(t, err, engine.ErrIllegalMove)
}

func TestAgree(t *testing.T) {
	t.Parallel()
	g := Agree(playMoves(t, New(), "e2e4"))
	testutil.Equal(t, g.State(), core.StateDraw)
	testutil.Equal(t, g.Position.GameOver, engine.Agreement)
}
