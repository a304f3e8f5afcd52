package cli

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"chessduel/internal/board"
	"chessduel/internal/client"
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

func TestRemoteDriver(t *testing.T) {
	url := startServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	created, err := client.New(url).CreateGame(ctx, "")
	testutil.NoError(t, err)

	seat := func(token string, color board.Color) *Remote {
		c := client.New(url)
		c.SetToken(token)
		r, err := NewRemote(ctx, c, created.GameID, color)
		testutil.NoError(t, err)
		return r
	}
	white := seat(created.Tokens.White, board.White)
	black := seat(created.Tokens.Black, board.Black)

	changed := make(chan struct{}, 8)
	watchErr := make(chan error, 1)
	go func() { watchErr <- black.Watch(ctx, func() { changed <- struct{}{} }) }()
	t.Cleanup(func() {
		cancel()
		testutil.NoError(t, <-watchErr)
	})

	var whiteOut, blackOut bytes.Buffer
	whiteREPL := New(white, NewView(&whiteOut, ThemeOff))
	blackREPL := New(black, NewView(&blackOut, ThemeOff))
	testutil.Equal(t, blackREPL.Prompt(), "black [w] > ")

	got := run(blackREPL, &blackOut, "e7e5")
	testutil.Equal(t, got, "Error: it is white's turn\n")

	got = run(whiteREPL, &whiteOut, "e2e4")
	testutil.False(t, strings.Contains(got, "Error:"), got)
	testutil.Equal(t, white.Game().Position.Notations(), []string{"e2-e4"})

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("black did not see the move")
	}
	testutil.Equal(t, black.Game().Position.Notations(), []string{"e2-e4"})

	// The selection is held by the server too
	run(blackREPL, &blackOut, "sel b8")
	testutil.Equal(t, black.Game().Origin, board.B8)

	got = run(blackREPL, &blackOut, "draw")
	testutil.True(t, strings.Contains(got, ErrNotSupported.Error()), got)

	got = run(blackREPL, &blackOut, "undo")
	testutil.False(t, strings.Contains(got, "Error:"), got)
	testutil.Equal(t, black.Game().Position.Ply(), 0)

	// White's copy catches up on refresh
	testutil.NoError(t, white.Refresh(ctx))
	testutil.Equal(t, white.Game().Position.Ply(), 0)
}
