package netplay

import (
	"testing"

	"chessduel/internal/board"
	"chessduel/internal/engine"
	"chessduel/internal/game"
	"chessduel/internal/testutil"
)

// deliver moves every queued envelope of from into to, acknowledging each.
func deliver(t *testing.T, from, to *Peer) (*Peer, *Peer) {
	t.Helper()
	for {
		head, ok := from.Head()
		if !ok {
			return from, to
		}
		var err error
		to, err = Receive(to, head)
		testutil.NoError(t, err, "receive %d", head.ID)
		testutil.Equal(t, to.LastReceived, head.ID)
		from = Ack(from, head.ID)
	}
}

func handshake(t *testing.T, g *game.Game) (host, guest *Peer) {
	t.Helper()
	return deliver(t, NewHost(board.White, g), NewGuest())
}

func move(t *testing.T, p *Peer, m string) *Peer {
	t.Helper()
	actions, err := game.MoveActions(m)
	testutil.NoError(t, err)
	for _, a := range actions {
		p, err = Local(p, a)
		testutil.NoError(t, err, m)
	}
	return p
}

func TestHandshake(t *testing.T) {
	t.Parallel()
	host := NewHost(board.White, game.New())
	testutil.Equal(t, len(host.Outbox), 1)

	guest := NewGuest()
	testutil.False(t, guest.Started())
	_, err := Local(guest, game.Action{Kind: game.SquareChosen, Square: board.E1})
	testutil.ErrorIs(t, err, ErrNotStarted)

	host, guest = deliver(t, host, guest)
	testutil.True(t, guest.Started())
	testutil.Equal(t, guest.PlayerColor, board.Black)
	testutil.Equal(t, guest.Game.Position, host.Game.Position)
	testutil.Equal(t, len(host.Outbox), 0)
}

func TestReceiveOrdering(t *testing.T) {
	t.Parallel()
	host, guest := handshake(t, game.New())
	host = move(t, host, "e2e4")
	host = move(t, move(t, host, "e7e5"), "g1f3") // black's clicks are only selections
	testutil.Equal(t, len(host.Outbox), 1)

	e, _ := host.Head()
	ahead := e
	ahead.ID = e.ID + 1
	same, err := Receive(guest, ahead)
	testutil.NoError(t, err)
	testutil.True(t, same == guest, "out-of-order envelope dropped")

	next, err := Receive(guest, e)
	testutil.NoError(t, err)
	testutil.Equal(t, next.Game.Position.Notations(), []string{"e2-e4"})

	again, err := Receive(next, e)
	testutil.NoError(t, err)
	testutil.True(t, again == next, "duplicate envelope ignored")
}

func TestMovesAreGatedByColor(t *testing.T) {
	t.Parallel()
	host, guest := handshake(t, game.New())

	guest = move(t, guest, "e7e5")
	testutil.Equal(t, guest.Game.Position.Ply(), 0)
	testutil.Equal(t, len(guest.Outbox), 0)
	testutil.Equal(t, guest.Game.Origin, board.MustSquare("e5"))

	host = move(t, host, "e2e4")
	host, guest = deliver(t, host, guest)
	guest = move(t, guest, "e7e5")
	host, guest = deliver(t, guest, host)
	testutil.Equal(t, host.Game.Position.Notations(), []string{"e2-e4", "e7-e5"})
	testutil.Equal(t, guest.Game.Position, host.Game.Position)

	// A move arriving while it is the receiver's turn is a protocol error.
	bogus := Envelope{ID: host.LastReceived + 1, Kind: KindMove, Origin: board.MustSquare("d7"), Target: board.MustSquare("d5")}
	_, err := Receive(host, bogus)
	testutil.ErrorIs(t, err, ErrOutOfTurn)
}

func TestUndoAndRematchNeedRequests(t *testing.T) {
	t.Parallel()
	host, _ := handshake(t, game.New())
	for _, kind := range []game.ActionKind{game.Undo, game.Rematch} {
		_, err := Local(host, game.Action{Kind: kind})
		testutil.ErrorIs(t, err, ErrNeedsRequest, kind)
	}
}

func TestUndoRequest(t *testing.T) {
	t.Parallel()
	host, guest := handshake(t, game.New())
	host, guest = deliver(t, move(t, host, "e2e4"), guest)

	host, err := Ask(host, RequestUndo)
	testutil.NoError(t, err)
	req := Request{Type: RequestUndo, Requester: board.White, HistoryLen: 1}
	testutil.Equal(t, host.Requests, []Request{req})

	_, err = Agree(host, req)
	testutil.ErrorIs(t, err, ErrNoSuchRequest)

	host, guest = deliver(t, host, guest)
	testutil.Equal(t, guest.Requests, []Request{req})

	guest, err = Agree(guest, req)
	testutil.NoError(t, err)
	testutil.Equal(t, guest.Game.Position.Ply(), 0)
	testutil.Equal(t, len(guest.Requests), 0)

	guest, host = deliver(t, guest, host)
	testutil.Equal(t, host.Game.Position, guest.Game.Position)
	testutil.Equal(t, host.Game.Position, engine.New())
	testutil.Equal(t, len(host.Requests), 0)
}

func TestMoveClearsRequests(t *testing.T) {
	t.Parallel()
	host, guest := handshake(t, game.New())
	host, guest = deliver(t, move(t, host, "e2e4"), guest)

	guest, err := Ask(guest, RequestDraw)
	testutil.NoError(t, err)
	guest, host = deliver(t, guest, host)
	testutil.Equal(t, len(host.Requests), 1)

	guest = move(t, guest, "e7e5")
	testutil.Equal(t, len(guest.Requests), 0)
	guest, host = deliver(t, guest, host)
	testutil.Equal(t, len(host.Requests), 0)
}

func TestDrawAndRematchRequests(t *testing.T) {
	t.Parallel()
	host, guest := handshake(t, game.New())

	host, err := Ask(host, RequestDraw)
	testutil.NoError(t, err)
	host, guest = deliver(t, host, guest)
	guest, err = Agree(guest, guest.Requests[0])
	testutil.NoError(t, err)
	guest, host = deliver(t, guest, host)
	testutil.True(t, host.Game.Position.GameOver.Has(engine.Agreement))
	testutil.True(t, guest.Game.Position.GameOver.Has(engine.Agreement))

	guest, err = Ask(guest, RequestRematch)
	testutil.NoError(t, err)
	guest, host = deliver(t, guest, host)
	host, err = Agree(host, host.Requests[0])
	testutil.NoError(t, err)
	host, guest = deliver(t, host, guest)

	testutil.Equal(t, host.PlayerColor, board.Black)
	testutil.Equal(t, guest.PlayerColor, board.White)
	testutil.Equal(t, guest.Game.Position, engine.New())
	testutil.True(t, guest.MyTurn())
}

func TestPromotionAndDrawClaimTravel(t *testing.T) {
	t.Parallel()
	p, err := engine.FromFEN("4k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	testutil.NoError(t, err)
	host, guest := handshake(t, game.FromPosition(p))

	host = move(t, host, "a7a8")
	testutil.True(t, host.Game.IsPaused())
	testutil.Equal(t, len(host.Outbox), 0)

	host, err = Local(host, game.Action{Kind: game.PromotionPieceChosen, Piece: board.Rook})
	testutil.NoError(t, err)
	head, _ := host.Head()
	testutil.Equal(t, head.Kind, KindMoveWithPromotion)

	host, guest = deliver(t, host, guest)
	testutil.Equal(t, guest.Game.Position.Notations(), []string{"a7-a8=R+"})

	// Threefold: the mover declines, the opponent claims without moving.
	p, err = engine.FromFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	testutil.NoError(t, err)
	host, guest = handshake(t, game.FromPosition(p))
	shuffle := []string{"a1a2", "e8d8", "a2a1", "d8e8", "a1a2", "e8d8", "a2a1"}
	for i, m := range shuffle {
		if i%2 == 0 {
			host, guest = deliver(t, move(t, host, m), guest)
		} else {
			guest, host = deliver(t, move(t, guest, m), host)
		}
	}
	guest = move(t, guest, "d8e8")
	testutil.True(t, guest.Game.IsPaused())
	guest, err = Local(guest, game.Action{Kind: game.DoNotClaimDraw})
	testutil.NoError(t, err)
	guest, host = deliver(t, guest, host)
	testutil.Equal(t, host.Game.Position.AllowDraw, engine.ThreeFold)

	// The player who declined cannot take the offer back on the opponent's turn.
	_, err = Local(guest, game.Action{Kind: game.ClaimDrawWithoutMove})
	testutil.ErrorIs(t, err, game.ErrInvalidAction)

	host, err = Local(host, game.Action{Kind: game.ClaimDrawWithoutMove})
	testutil.NoError(t, err)
	host, guest = deliver(t, host, guest)
	testutil.Equal(t, guest.Game.Position.GameOver, engine.ThreeFold)
}

func TestReceiveRejectsUnknownKind(t *testing.T) {
	t.Parallel()
	_, guest := handshake(t, game.New())
	_, err := Receive(guest, Envelope{ID: guest.LastReceived + 1, Kind: "resign"})
	testutil.ErrorIs(t, err, ErrUnknownKind)
}
