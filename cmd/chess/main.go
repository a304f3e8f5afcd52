// Package main is the terminal chess client: a hotseat game on one
// keyboard, one side of a game played over TCP with -listen/-connect, or a
// seat of a game held by chess-server with -server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"chessduel/internal/board"
	"chessduel/internal/cli"
	"chessduel/internal/client"
	"chessduel/internal/engine"
	"chessduel/internal/game"
	"chessduel/internal/netplay"
)

func main() {
	var (
		fen     = flag.String("fen", "", "Start from this position instead of the initial one")
		noColor = flag.Bool("no-color", false, "Disable ANSI colors")
		theme   = flag.String("theme", "brown", "Board color theme (off|brown|green|gray)")
		history = flag.String("history", ".chess_history", "Command history file (empty disables)")
		listen  = flag.String("listen", "", "Host a networked game on this address, e.g. :7777")
		connect = flag.String("connect", "", "Join a networked game hosted at this address")
		color   = flag.String("color", "white", "Color played by the host of a networked game, or the seat on a server")
		server  = flag.String("server", "", "Play on a chess server, e.g. http://localhost:8080")
		gameID  = flag.String("game", "", "Game to join on the server (with -token)")
		token   = flag.String("token", "", "Seat token for -game; without it a new game is created")
	)
	flag.Parse()

	modes := 0
	for _, set := range []bool{*listen != "", *connect != "", *server != ""} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		log.Fatal("Error: -listen, -connect and -server are exclusive")
	}

	start := engine.New()
	if *fen != "" {
		var err error
		if start, err = engine.FromFEN(*fen); err != nil {
			log.Fatalf("Invalid -fen: %v", err)
		}
	}

	// Filled with the command names once the REPL exists
	completer := readline.NewPrefixCompleter()
	rl, err := readline.NewEx(&readline.Config{
		AutoComplete:    completer,
		HistoryFile:     *history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatalf("readline: %v", err)
	}
	defer rl.Close()

	// Colors only make sense on a terminal
	selected := cli.ColorTheme(*theme)
	if *noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		selected = cli.ThemeOff
	}
	view := cli.NewView(rl.Stdout(), selected)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex // serializes typed commands and redraws
		repl   *cli.REPL
		driver cli.Driver
	)
	redraw := make(chan struct{}, 1)
	signal := func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}

	seat, err := board.ParseColor(*color)
	if err != nil || !seat.IsPlayer() {
		log.Fatalf("Invalid -color %q", *color)
	}

	switch {
	case *server != "":
		remote, err := joinServer(ctx, *server, *gameID, *token, *fen, seat)
		if err != nil {
			log.Fatalf("Server: %v", err)
		}
		go func() {
			if err := remote.Watch(ctx, signal); err != nil {
				fmt.Fprintf(rl.Stderr(), "lost the server: %v\n", err)
			}
		}()
		driver = remote

	case *listen != "" || *connect != "":
		conn, err := dial(*listen, *connect)
		if err != nil {
			log.Fatalf("Network: %v", err)
		}
		transport := netplay.NewStreamTransport(conn)
		defer transport.Close()

		peer := netplay.NewGuest()
		if *listen != "" {
			peer = netplay.NewHost(seat, game.FromPosition(start))
		}

		// Redraw only for envelopes from the opponent; typed commands draw
		// their own result.
		var seen atomic.Int64
		session := netplay.NewSession(peer, transport, netplay.DefaultRetransmitInterval, func(p *netplay.Peer) {
			if int64(p.LastReceived) != seen.Swap(int64(p.LastReceived)) {
				signal()
			}
		})
		go func() {
			if err := session.Run(ctx); err != nil && !errors.Is(err, io.EOF) {
				fmt.Fprintf(rl.Stderr(), "connection lost: %v\n", err)
			} else {
				fmt.Fprintln(rl.Stderr(), "opponent left")
			}
			rl.Close()
		}()
		driver = cli.NewNetworked(session)

	default:
		driver = cli.NewHotseat(game.FromPosition(start))
	}

	repl = cli.New(driver, view)

	var items []readline.PrefixCompleterInterface
	for _, name := range repl.Names() {
		items = append(items, readline.PcItem(name))
	}
	completer.SetChildren(items)

	go func() {
		for {
			select {
			case <-redraw:
				mu.Lock()
				repl.Redraw()
				rl.SetPrompt(repl.Prompt())
				rl.Refresh()
				mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	mu.Lock()
	repl.Welcome()
	mu.Unlock()

	for {
		mu.Lock()
		rl.SetPrompt(repl.Prompt())
		mu.Unlock()

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				break
			}
			continue
		}
		if err != nil {
			break
		}

		mu.Lock()
		quit := repl.Execute(strings.TrimSpace(line))
		mu.Unlock()
		if quit {
			break
		}
	}
}

// dial listens for a single opponent or connects to one
func dial(listen, connect string) (net.Conn, error) {
	if connect != "" {
		return net.Dial("tcp", connect)
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	log.Printf("Waiting for an opponent on %s", ln.Addr())
	return ln.Accept()
}

// joinServer takes a seat on a chess server. Without a token it creates
// the game and prints how the opponent joins.
func joinServer(ctx context.Context, url, gameID, token, fen string, seat board.Color) (*cli.Remote, error) {
	c := client.New(url)
	if _, err := c.Health(ctx); err != nil {
		return nil, err
	}

	if token == "" {
		created, err := c.CreateGame(ctx, fen)
		if err != nil {
			return nil, err
		}
		gameID, token = created.GameID, created.Tokens.White
		other := created.Tokens.Black
		if seat == board.Black {
			token, other = other, token
		}
		fmt.Printf("Created game %s. The opponent joins with:\n  chess -server %s -game %s -color %s -token %s\n",
			gameID, url, gameID, seat.Opponent(), other)
	} else if gameID == "" {
		return nil, errors.New("-token needs -game")
	}

	c.SetToken(token)
	return cli.NewRemote(ctx, c, gameID, seat)
}
