package cli

import (
	"errors"
	"fmt"

	"chessduel/internal/board"
	"chessduel/internal/engine"
	"chessduel/internal/game"
	"chessduel/internal/netplay"
)

var (
	ErrNoGame         = errors.New("no game in progress")
	ErrNotSupported   = errors.New("not available in this mode")
	ErrNothingToAgree = errors.New("no request from the opponent")
)

// Driver is where the REPL sends actions: a local hotseat game or one side
// of a networked game.
type Driver interface {
	// Game is the current state, nil before a networked game has started.
	Game() *game.Game
	// Seat is the color played from this terminal, NoColor for hotseat.
	Seat() board.Color
	Act(a game.Action) error
	// Request asks for an undo, rematch or draw. Hotseat grants it at once.
	Request(t netplay.RequestType) error
	// Agree accepts the opponent's most recent request.
	Agree() error
	// Pending lists requests awaiting an answer.
	Pending() []netplay.Request
	// Start replaces the game, hotseat only.
	Start(p *engine.Position) error
}

// Hotseat plays both colors on one terminal.
type Hotseat struct {
	game *game.Game
}

func NewHotseat(g *game.Game) *Hotseat {
	return &Hotseat{game: g}
}

func (h *Hotseat) Game() *game.Game  { return h.game }
func (h *Hotseat) Seat() board.Color { return board.NoColor }

func (h *Hotseat) Act(a game.Action) error {
	next, err := game.Reduce(h.game, a)
	if err != nil {
		return err
	}
	h.game = next
	return nil
}

func (h *Hotseat) Request(t netplay.RequestType) error {
	switch t {
	case netplay.RequestUndo:
		return h.Act(game.Action{Kind: game.Undo})
	case netplay.RequestRematch:
		return h.Act(game.Action{Kind: game.Rematch})
	case netplay.RequestDraw:
		if h.game.Position.IsOver() {
			return fmt.Errorf("%w: game is over", game.ErrInvalidAction)
		}
		h.game = game.Agree(h.game)
		return nil
	default:
		return fmt.Errorf("%w: %q", netplay.ErrUnknownKind, t)
	}
}

func (h *Hotseat) Agree() error               { return ErrNothingToAgree }
func (h *Hotseat) Pending() []netplay.Request { return nil }

func (h *Hotseat) Start(p *engine.Position) error {
	h.game = game.FromPosition(p)
	return nil
}

// Networked drives one peer of a netplay session.
type Networked struct {
	session *netplay.Session
}

func NewNetworked(s *netplay.Session) *Networked {
	return &Networked{session: s}
}

func (n *Networked) Game() *game.Game { return n.session.Peer().Game }

func (n *Networked) Seat() board.Color {
	p := n.session.Peer()
	if !p.Started() {
		return board.NoColor
	}
	return p.PlayerColor
}

func (n *Networked) Act(a game.Action) error {
	return n.session.Do(func(p *netplay.Peer) (*netplay.Peer, error) {
		return netplay.Local(p, a)
	})
}

func (n *Networked) Request(t netplay.RequestType) error {
	return n.session.Do(func(p *netplay.Peer) (*netplay.Peer, error) {
		return netplay.Ask(p, t)
	})
}

func (n *Networked) Agree() error {
	return n.session.Do(func(p *netplay.Peer) (*netplay.Peer, error) {
		for i := len(p.Requests) - 1; i >= 0; i-- {
			if req := p.Requests[i]; req.Requester != p.PlayerColor {
				return netplay.Agree(p, req)
			}
		}
		return nil, ErrNothingToAgree
	})
}

func (n *Networked) Pending() []netplay.Request { return n.session.Peer().Requests }

func (n *Networked) Start(*engine.Position) error {
	return fmt.Errorf("%w: ask for a rematch instead", ErrNotSupported)
}
