package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chessduel/internal/board"
	"chessduel/internal/client"
	"chessduel/internal/core"
	"chessduel/internal/engine"
	"chessduel/internal/game"
	"chessduel/internal/netplay"
)

// Remote plays one seat of a game held by a chess server. Actions are sent
// to the server and mirrored on a local copy of the game.
type Remote struct {
	client *client.Client
	gameID string
	seat   board.Color

	mu      sync.Mutex
	game    *game.Game
	version int
}

// NewRemote joins gameID as seat; c must carry the seat's token.
func NewRemote(ctx context.Context, c *client.Client, gameID string, seat board.Color) (*Remote, error) {
	r := &Remote{client: c, gameID: gameID, seat: seat}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Remote) GameID() string { return r.gameID }

func (r *Remote) Game() *game.Game {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game
}

func (r *Remote) Seat() board.Color { return r.seat }

// Refresh replaces the local copy with the server's state.
func (r *Remote) Refresh(ctx context.Context) error {
	resp, err := r.client.GetGame(ctx, r.gameID)
	if err != nil {
		return err
	}
	return r.refreshFrom(ctx, resp)
}

// refreshFrom adopts resp, fetching the position it describes.
func (r *Remote) refreshFrom(ctx context.Context, resp *core.GameResponse) error {
	for attempt := 0; ; attempt++ {
		p, err := r.client.ExportGame(ctx, r.gameID)
		if err != nil {
			return err
		}
		// A move may land between the two requests
		if p.FEN() != resp.FEN && attempt < 3 {
			if resp, err = r.client.GetGame(ctx, r.gameID); err != nil {
				return err
			}
			continue
		}
		g, err := rebuild(p, resp)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.game, r.version = g, resp.Version
		r.mu.Unlock()
		return nil
	}
}

// rebuild replays the selection or the waiting move reported by the server
// on top of the exported position.
func rebuild(p *engine.Position, resp *core.GameResponse) (*game.Game, error) {
	var clicks []string
	switch {
	case resp.Pending != nil:
		clicks = []string{resp.Pending.Origin, resp.Pending.Target}
	case resp.Selected != "":
		clicks = []string{resp.Selected}
	}

	g := game.FromPosition(p)
	for _, s := range clicks {
		sq, err := board.ParseSquare(s)
		if err != nil {
			return nil, fmt.Errorf("server state: %w", err)
		}
		if g, err = game.Reduce(g, game.Action{Kind: game.SquareChosen, Square: sq}); err != nil {
			return nil, fmt.Errorf("server state: %w", err)
		}
	}
	return g, nil
}

func (r *Remote) Act(a game.Action) error {
	ctx := context.Background()
	resp, err := r.client.Act(ctx, r.gameID, actionRequest(a))
	if err != nil {
		return err
	}

	r.mu.Lock()
	synced := r.version >= resp.Version // no-op, or already picked up by Watch
	if !synced && r.version+1 == resp.Version {
		next, err := game.Reduce(r.game, a)
		if synced = err == nil && next.Position.FEN() == resp.FEN; synced {
			r.game, r.version = next, resp.Version
		}
	}
	r.mu.Unlock()

	if !synced {
		return r.Refresh(ctx)
	}
	return nil
}

func actionRequest(a game.Action) core.ActionRequest {
	req := core.ActionRequest{Type: string(a.Kind)}
	if a.Square.Valid() {
		req.Square = a.Square.String()
	}
	if a.Piece.IsReal() {
		req.Piece = a.Piece.String()
	}
	return req
}

// Request carries out undo and rematch at once; the server has no
// agreement step.
func (r *Remote) Request(t netplay.RequestType) error {
	switch t {
	case netplay.RequestUndo:
		return r.Act(game.Action{Kind: game.Undo})
	case netplay.RequestRematch:
		return r.Act(game.Action{Kind: game.Rematch})
	case netplay.RequestDraw:
		return fmt.Errorf("%w: draw offers", ErrNotSupported)
	default:
		return fmt.Errorf("%w: %q", netplay.ErrUnknownKind, t)
	}
}

func (r *Remote) Agree() error               { return ErrNothingToAgree }
func (r *Remote) Pending() []netplay.Request { return nil }

func (r *Remote) Start(*engine.Position) error {
	return fmt.Errorf("%w: ask for a rematch instead", ErrNotSupported)
}

// Watch long-polls the server and refreshes the local copy whenever the
// game changes, calling onChange afterwards. It returns nil when ctx ends.
func (r *Remote) Watch(ctx context.Context, onChange func()) error {
	for {
		r.mu.Lock()
		version := r.version
		r.mu.Unlock()

		resp, err := r.client.WaitGame(ctx, r.gameID, version)
		switch {
		case ctx.Err() != nil:
			return nil
		case client.IsCode(err, core.ErrRateLimitExceeded):
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		case err != nil:
			return err
		}

		// Our own actions already moved the local copy along
		r.mu.Lock()
		known := r.version
		r.mu.Unlock()
		if resp.Version <= known {
			continue
		}
		if err := r.refreshFrom(ctx, resp); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if onChange != nil {
			onChange()
		}
	}
}
