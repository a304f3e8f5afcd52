package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"chessduel/internal/core"
	apihttp "chessduel/internal/http"
	"chessduel/internal/processor"
	"chessduel/internal/service"
	"chessduel/internal/testutil"
)

func startServer(t *testing.T) string {
	t.Helper()
	svc := service.New(nil, []byte("dev-secret-minimum-32-characters-long"))
	proc := processor.New(svc)
	app := apihttp.NewFiberApp(proc, svc, true)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	testutil.NoError(t, err)
	go app.Listener(ln)
	t.Cleanup(func() {
		svc.Shutdown(time.Second)
		app.Shutdown()
		proc.Close()
	})
	return "http://" + ln.Addr().String()
}

func TestClientFlow(t *testing.T) {
	ctx := context.Background()
	c := New(startServer(t) + "/")

	health, err := c.Health(ctx)
	testutil.NoError(t, err)
	testutil.Equal(t, health.Status, "healthy")
	testutil.Equal(t, health.Storage, "disabled")

	created, err := c.CreateGame(ctx, "")
	testutil.NoError(t, err)
	testutil.Equal(t, created.Version, 0)
	id := created.GameID

	// No token
	_, err = c.MakeMove(ctx, id, "e2e4")
	testutil.True(t, IsCode(err, core.ErrUnauthorized), err)

	c.SetToken(created.Tokens.Black)
	_, err = c.MakeMove(ctx, id, "e2e4")
	testutil.True(t, IsCode(err, core.ErrNotYourTurn), err)

	c.SetToken(created.Tokens.White)
	g, err := c.MakeMove(ctx, id, "e2e4")
	testutil.NoError(t, err)
	testutil.Equal(t, g.Moves, []string{"e2-e4"})
	testutil.Equal(t, g.Version, 1)

	_, err = c.MakeMove(ctx, id, "e2e4")
	testutil.True(t, IsCode(err, core.ErrNotYourTurn), err)

	c.SetToken(created.Tokens.Black)
	g, err = c.Act(ctx, id,
		core.ActionRequest{Type: "square-chosen", Square: "c7"},
		core.ActionRequest{Type: "square-chosen", Square: "c5"},
	)
	testutil.NoError(t, err)
	testutil.Equal(t, g.Moves, []string{"e2-e4", "c7-c5"})

	// The client's version is stale, so the poll returns at once
	g, err = c.WaitGame(ctx, id, 1)
	testutil.NoError(t, err)
	testutil.Equal(t, g.Version, 2)

	moves, err := c.LegalMoves(ctx, id, "g1")
	testutil.NoError(t, err)
	testutil.Equal(t, len(moves.Moves), 3)

	b, err := c.GetBoard(ctx, id)
	testutil.NoError(t, err)
	testutil.Equal(t, b.FEN, g.FEN)

	p, err := c.ExportGame(ctx, id)
	testutil.NoError(t, err)
	testutil.Equal(t, p.Ply(), 2)
	testutil.Equal(t, p.FEN(), g.FEN)

	imported, err := c.ImportGame(ctx, p)
	testutil.NoError(t, err)
	testutil.True(t, imported.GameID != id)
	testutil.Equal(t, imported.Moves, g.Moves)

	testutil.NoError(t, c.DeleteGame(ctx, id))
	_, err = c.GetGame(ctx, id)
	testutil.True(t, IsCode(err, core.ErrGameNotFound), err)

	var apiErr *APIError
	testutil.True(t, errors.As(err, &apiErr))
	testutil.Equal(t, apiErr.Status, 404)
}

func TestUnreachableServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	testutil.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = New("http://"+addr).Health(context.Background())
	testutil.True(t, err != nil)
	testutil.False(t, IsCode(err, core.ErrInternalError))
}
