package netplay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultRetransmitInterval is how often the outbox head is resent.
const DefaultRetransmitInterval = 500 * time.Millisecond

// Transport moves envelopes between two peers. Delivery may drop, repeat or
// reorder envelopes.
type Transport interface {
	Send(ctx context.Context, e Envelope) error
	Receive(ctx context.Context) (Envelope, error)
}

// Session owns a Peer and drives the protocol over a Transport: a send loop
// resends the outbox head until it is acknowledged, and a receive loop
// applies inbound envelopes and acknowledges them.
type Session struct {
	mu        sync.Mutex
	peer      *Peer
	transport Transport
	interval  time.Duration
	kick      chan struct{}
	onChange  func(*Peer)
}

// NewSession wraps peer. onChange, if set, is called after every accepted
// change with the lock released.
func NewSession(peer *Peer, transport Transport, interval time.Duration, onChange func(*Peer)) *Session {
	if interval <= 0 {
		interval = DefaultRetransmitInterval
	}
	return &Session{
		peer:      peer,
		transport: transport,
		interval:  interval,
		kick:      make(chan struct{}, 1),
		onChange:  onChange,
	}
}

// Peer returns the current state.
func (s *Session) Peer() *Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// Do runs a local transition such as Local, Ask or Agree and wakes the send
// loop when it queued something.
func (s *Session) Do(fn func(*Peer) (*Peer, error)) error {
	s.mu.Lock()
	next, err := fn(s.peer)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	queued := next.LastQueued != s.peer.LastQueued
	s.peer = next
	s.mu.Unlock()

	if queued {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
	s.changed(next)
	return nil
}

func (s *Session) changed(p *Peer) {
	if s.onChange != nil {
		s.onChange(p)
	}
}

// Run blocks until ctx is cancelled or either loop fails.
func (s *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.sendLoop(ctx) })
	g.Go(func() error { return s.receiveLoop(ctx) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Session) sendLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-s.kick:
		}

		head, ok := s.Peer().Head()
		if !ok {
			continue
		}
		if err := s.transport.Send(ctx, head); err != nil {
			return fmt.Errorf("send envelope %d: %w", head.ID, err)
		}
	}
}

func (s *Session) receiveLoop(ctx context.Context) error {
	for {
		e, err := s.transport.Receive(ctx)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}

		s.mu.Lock()
		prev := s.peer
		next, err := Receive(prev, e)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.peer = next
		s.mu.Unlock()

		if e.Kind == KindAck {
			if len(next.Outbox) != len(prev.Outbox) {
				s.changed(next)
			}
			continue
		}
		if e.ID > next.LastReceived {
			log.Printf("netplay: dropped out-of-order envelope %d, expecting %d", e.ID, next.LastReceived+1)
			continue
		}
		// Duplicates are acknowledged again in case the first ack was lost.
		if err := s.transport.Send(ctx, Envelope{ID: e.ID, Kind: KindAck}); err != nil {
			return fmt.Errorf("ack envelope %d: %w", e.ID, err)
		}
		if next != prev {
			s.changed(next)
		}
	}
}

// Pipe returns two connected in-memory transports.
func Pipe() (Transport, Transport) {
	ab := make(chan Envelope, 64)
	ba := make(chan Envelope, 64)
	return &pipeEnd{in: ba, out: ab}, &pipeEnd{in: ab, out: ba}
}

type pipeEnd struct {
	in  <-chan Envelope
	out chan<- Envelope
}

func (p *pipeEnd) Send(ctx context.Context, e Envelope) error {
	select {
	case p.out <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Receive(ctx context.Context) (Envelope, error) {
	select {
	case e := <-p.in:
		return e, nil
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

// StreamTransport exchanges newline-delimited JSON envelopes over a
// connection such as a TCP socket.
type StreamTransport struct {
	mu  sync.Mutex
	enc *json.Encoder
	dec *json.Decoder
	c   io.Closer
}

// NewStreamTransport wraps rwc. Closing the transport closes rwc.
func NewStreamTransport(rwc io.ReadWriteCloser) *StreamTransport {
	return &StreamTransport{
		enc: json.NewEncoder(rwc),
		dec: json.NewDecoder(rwc),
		c:   rwc,
	}
}

func (t *StreamTransport) Send(ctx context.Context, e Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enc.Encode(e)
}

// Receive blocks on the connection. Cancelling ctx does not interrupt a
// pending read; Close the transport for that.
func (t *StreamTransport) Receive(ctx context.Context) (Envelope, error) {
	if err := ctx.Err(); err != nil {
		return Envelope{}, err
	}
	var e Envelope
	if err := t.dec.Decode(&e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

func (t *StreamTransport) Close() error { return t.c.Close() }
