// Package netplay layers the two-peer protocol over the game reducer.
// Every state-changing local action is queued as an Envelope with an
// increasing id and retransmitted until acknowledged; inbound envelopes are
// applied strictly in id order, so repeated delivery is harmless.
package netplay

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"chessduel/internal/board"
	"chessduel/internal/engine"
	"chessduel/internal/game"
)

var (
	ErrNotStarted    = errors.New("no initial state received")
	ErrNeedsRequest  = errors.New("action requires the opponent's agreement")
	ErrNoSuchRequest = errors.New("no matching request from the opponent")
	ErrOutOfTurn     = errors.New("opponent moved out of turn")
	ErrUnknownKind   = errors.New("unknown message kind")
)

// Kind names an envelope payload.
type Kind string

const (
	KindInitialState      Kind = "initial-state"
	KindMove              Kind = "move"
	KindMoveWithPromotion Kind = "move-with-promotion"
	KindMoveWithClaim     Kind = "move-with-draw-claim"
	KindMoveWithoutClaim  Kind = "move-without-draw-claim"
	KindClaimWithoutMove  Kind = "claimed-draw-without-move"
	KindRequest           Kind = "request"
	KindAgreement         Kind = "agreement"
	KindAck               Kind = "ack"
)

// RequestType is something only done once both players agree.
type RequestType string

const (
	RequestDraw    RequestType = "draw"
	RequestUndo    RequestType = "undo"
	RequestRematch RequestType = "rematch"
)

// Request records who asked and how long the history was at the time.
type Request struct {
	Type       RequestType `json:"type"`
	Requester  board.Color `json:"requester"`
	HistoryLen int         `json:"historyLen"`
}

// InitialState is the handshake payload sent by the host.
type InitialState struct {
	Position   engine.Snapshot `json:"position"`
	GuestColor board.Color     `json:"guestColor"`
}

// Envelope is one message between peers. For KindAck, ID is the id being
// acknowledged.
type Envelope struct {
	ID      int           `json:"id"`
	Kind    Kind          `json:"kind"`
	Origin  board.Square  `json:"origin,omitempty"`
	Target  board.Square  `json:"target,omitempty"`
	Piece   board.Piece   `json:"piece,omitempty"`
	Request *Request      `json:"request,omitempty"`
	State   *InitialState `json:"state,omitempty"`
}

// Peer is one side of a networked game. Like game.Game it is a value: every
// function returns a new Peer and leaves its argument alone.
type Peer struct {
	Game         *game.Game
	PlayerColor  board.Color
	Outbox       []Envelope
	LastQueued   int
	LastReceived int
	Requests     []Request
}

// NewHost starts a game playing hostColor and queues the handshake that
// tells the guest its color.
func NewHost(hostColor board.Color, g *game.Game) *Peer {
	p := &Peer{Game: g, PlayerColor: hostColor}
	return p.enqueue(Envelope{
		Kind: KindInitialState,
		State: &InitialState{
			Position:   g.Position.Snapshot(),
			GuestColor: hostColor.Opponent(),
		},
	})
}

// NewGuest waits for the host's initial state.
func NewGuest() *Peer {
	return &Peer{}
}

// Started reports whether the peer has a game to play.
func (p *Peer) Started() bool { return p.Game != nil }

// MyTurn reports whether local moves are accepted.
func (p *Peer) MyTurn() bool {
	return p.Started() && p.Game.Position.SideToMove == p.PlayerColor
}

// Head is the oldest unacknowledged envelope.
func (p *Peer) Head() (Envelope, bool) {
	if len(p.Outbox) == 0 {
		return Envelope{}, false
	}
	return p.Outbox[0], true
}

func (p *Peer) clone() *Peer {
	c := *p
	c.Outbox = slices.Clone(p.Outbox)
	c.Requests = slices.Clone(p.Requests)
	return &c
}

func (p *Peer) enqueue(e Envelope) *Peer {
	next := p.clone()
	next.LastQueued++
	e.ID = next.LastQueued
	next.Outbox = append(next.Outbox, e)
	return next
}

func (p *Peer) withGame(g *game.Game) *Peer {
	next := p.clone()
	next.Game = g
	return next
}

func (p *Peer) withoutRequests() *Peer {
	next := p.clone()
	next.Requests = nil
	return next
}

// Local applies an action chosen by this player. Undo and rematch are not
// accepted here; they go through Ask.
func Local(p *Peer, a game.Action) (*Peer, error) {
	if !p.Started() {
		return nil, ErrNotStarted
	}
	g := p.Game
	switch a.Kind {
	case game.SquareChosen:
		if !p.MyTurn() {
			return p.withGame(game.Select(g, a.Square)), nil
		}
		origin := g.Origin
		next, err := game.Reduce(g, a)
		if err != nil {
			return nil, err
		}
		if next.Position.Ply() > g.Position.Ply() {
			return p.withGame(next).withoutRequests().enqueue(Envelope{Kind: KindMove, Origin: origin, Target: a.Square}), nil
		}
		return p.withGame(next), nil

	case game.PromotionPieceChosen, game.ClaimDraw, game.DoNotClaimDraw:
		if g.Pending == nil {
			return nil, fmt.Errorf("%w: nothing pending", game.ErrInvalidAction)
		}
		pending := g.Pending
		next, err := game.Reduce(g, a)
		if err != nil {
			return nil, err
		}
		e := Envelope{Origin: pending.Origin, Target: pending.Target}
		switch a.Kind {
		case game.PromotionPieceChosen:
			e.Kind, e.Piece = KindMoveWithPromotion, a.Piece
		case game.ClaimDraw:
			e.Kind = KindMoveWithClaim
		default:
			e.Kind = KindMoveWithoutClaim
		}
		return p.withGame(next).withoutRequests().enqueue(e), nil

	case game.ClaimDrawWithoutMove:
		if !p.MyTurn() {
			return nil, fmt.Errorf("%w: draw can only be claimed on your own turn", game.ErrInvalidAction)
		}
		next, err := game.Reduce(g, a)
		if err != nil {
			return nil, err
		}
		return p.withGame(next).withoutRequests().enqueue(Envelope{Kind: KindClaimWithoutMove}), nil

	case game.Undo, game.Rematch:
		return nil, fmt.Errorf("%w: %s", ErrNeedsRequest, a.Kind)

	default:
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownAction, a.Kind)
	}
}

// Ask records a request of this player and sends it to the opponent.
func Ask(p *Peer, t RequestType) (*Peer, error) {
	if !p.Started() {
		return nil, ErrNotStarted
	}
	req := Request{Type: t, Requester: p.PlayerColor, HistoryLen: p.Game.Position.Ply()}
	next := p.enqueue(Envelope{Kind: KindRequest, Request: &req})
	next.Requests = append(next.Requests, req)
	return next, nil
}

// Agree accepts a request the opponent made and carries it out on both sides.
func Agree(p *Peer, req Request) (*Peer, error) {
	if !p.Started() {
		return nil, ErrNotStarted
	}
	if req.Requester == p.PlayerColor || !slices.Contains(p.Requests, req) {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchRequest, req.Type)
	}
	next, err := carryOut(p, req)
	if err != nil {
		return nil, err
	}
	return next.enqueue(Envelope{Kind: KindAgreement, Request: &req}), nil
}

func carryOut(p *Peer, req Request) (*Peer, error) {
	next := p.withoutRequests()
	switch req.Type {
	case RequestDraw:
		next.Game = game.Agree(p.Game)
	case RequestUndo:
		g := p.Game
		for g.IsPaused() || (g.Position.Ply() > 0 && g.Position.Ply() >= req.HistoryLen) {
			var err error
			if g, err = game.Reduce(g, game.Action{Kind: game.Undo}); err != nil {
				return nil, err
			}
		}
		next.Game = g
	case RequestRematch:
		next.Game = game.New()
		next.PlayerColor = p.PlayerColor.Opponent()
	default:
		return nil, fmt.Errorf("%w: request %q", ErrUnknownKind, req.Type)
	}
	return next, nil
}

// Ack drops the acknowledged envelope from the outbox.
func Ack(p *Peer, id int) *Peer {
	next := p.clone()
	if i := slices.IndexFunc(next.Outbox, func(e Envelope) bool { return e.ID == id }); i >= 0 {
		next.Outbox = slices.Delete(next.Outbox, i, i+1)
	}
	return next
}

// Receive applies an envelope from the opponent. Envelopes whose id is not
// exactly one past the last applied id are returned unapplied; the sender
// retransmits them. A nil error with an unchanged LastReceived means the
// envelope was dropped.
func Receive(p *Peer, e Envelope) (*Peer, error) {
	if e.Kind == KindAck {
		return Ack(p, e.ID), nil
	}
	if e.ID != p.LastReceived+1 {
		return p, nil
	}
	if e.Kind != KindInitialState && !p.Started() {
		return nil, ErrNotStarted
	}

	var (
		next *Peer
		err  error
	)
	switch e.Kind {
	case KindInitialState:
		next, err = receiveInitialState(p, e)
	case KindMove, KindMoveWithPromotion, KindMoveWithClaim, KindMoveWithoutClaim:
		next, err = receiveMove(p, e)
	case KindClaimWithoutMove:
		var g *game.Game
		g, err = game.Reduce(p.Game, game.Action{Kind: game.ClaimDrawWithoutMove})
		if err == nil {
			next = p.withGame(g).withoutRequests()
		}
	case KindRequest:
		if e.Request == nil {
			return nil, fmt.Errorf("%w: request without payload", ErrUnknownKind)
		}
		next = p.clone()
		next.Requests = append(next.Requests, *e.Request)
	case KindAgreement:
		if e.Request == nil {
			return nil, fmt.Errorf("%w: agreement without payload", ErrUnknownKind)
		}
		next, err = carryOut(p, *e.Request)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("envelope %d: %w", e.ID, err)
	}
	next.LastReceived = e.ID
	return next, nil
}

func receiveInitialState(p *Peer, e Envelope) (*Peer, error) {
	if e.State == nil {
		return nil, fmt.Errorf("%w: initial state without payload", ErrUnknownKind)
	}
	pos, err := engine.Restore(e.State.Position)
	if err != nil {
		return nil, err
	}
	next := p.withoutRequests()
	next.Game = game.FromPosition(pos)
	next.PlayerColor = e.State.GuestColor
	return next, nil
}

func receiveMove(p *Peer, e Envelope) (*Peer, error) {
	if p.Game.Position.SideToMove == p.PlayerColor {
		return nil, ErrOutOfTurn
	}
	actions := []game.Action{
		{Kind: game.SquareChosen, Square: e.Origin},
		{Kind: game.SquareChosen, Square: e.Target},
	}
	switch e.Kind {
	case KindMoveWithPromotion:
		actions = append(actions, game.Action{Kind: game.PromotionPieceChosen, Piece: e.Piece})
	case KindMoveWithClaim:
		actions = append(actions, game.Action{Kind: game.ClaimDraw})
	case KindMoveWithoutClaim:
		actions = append(actions, game.Action{Kind: game.DoNotClaimDraw})
	}
	// The local selection is dropped; the opponent's move starts from scratch.
	g, err := game.ReduceAll(game.FromPosition(p.Game.Position), actions...)
	if err != nil {
		return nil, err
	}
	if g.IsPaused() || g.Position.Ply() == p.Game.Position.Ply() {
		return nil, fmt.Errorf("%w: %s%s does not complete a move", game.ErrInvalidAction, e.Origin, e.Target)
	}
	return p.withGame(g).withoutRequests(), nil
}
