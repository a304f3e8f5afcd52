package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"chessduel/internal/board"
	"chessduel/internal/core"
	"chessduel/internal/engine"
	"chessduel/internal/game"
	"chessduel/internal/storage"
)

// CreateGame starts a game from fen, or from the initial position when fen
// is empty.
func (s *Service) CreateGame(fen string) (*Match, error) {
	p := engine.New()
	if fen != "" {
		var err error
		if p, err = engine.FromFEN(fen); err != nil {
			return nil, err
		}
	}
	return s.addGame(p)
}

// ImportGame registers a game continuing from a restored position
func (s *Service) ImportGame(p *engine.Position) (*Match, error) {
	return s.addGame(p)
}

func (s *Service) addGame(p *engine.Position) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.games) >= MaxGames {
		return nil, ErrTooManyGames
	}

	now := s.now()
	m := &Match{
		ID:      s.generateGameID(),
		Game:    game.FromPosition(p),
		White:   core.NewPlayer(board.White),
		Black:   core.NewPlayer(board.Black),
		Created: now,
		Updated: now,
	}
	s.games[m.ID] = m

	if s.store != nil {
		s.store.RecordNewGame(storage.GameRecord{
			GameID:        m.ID,
			InitialFEN:    p.FEN(),
			WhitePlayerID: m.White.ID,
			BlackPlayerID: m.Black.ID,
			StartTimeUTC:  now,
		})
		s.saveSnapshot(m)
	}

	return m.clone(), nil
}

// GetGame returns a copy of the game, restoring it from storage when it is
// not held in memory.
func (s *Service) GetGame(gameID string) (*Match, error) {
	s.mu.RLock()
	m, ok := s.games[gameID]
	s.mu.RUnlock()
	if ok {
		return m.clone(), nil
	}
	return s.loadGame(gameID)
}

func (s *Service) loadGame(gameID string) (*Match, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	records, err := s.store.QueryGames(gameID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	snap, err := s.store.LoadSnapshot(gameID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
		}
		return nil, err
	}
	var saved savedGame
	if err := json.Unmarshal([]byte(snap.Snapshot), &saved); err != nil {
		return nil, fmt.Errorf("stored game %s: %w", gameID, err)
	}
	if saved.Position == nil {
		return nil, fmt.Errorf("stored game %s: no position", gameID)
	}
	p := saved.Position

	rec := records[0]
	m := &Match{
		ID:      gameID,
		Game:    &game.Game{Position: p, Pending: saved.Pending},
		White:   &core.Player{ID: rec.WhitePlayerID, Color: board.White},
		Black:   &core.Player{ID: rec.BlackPlayerID, Color: board.Black},
		Created: rec.StartTimeUTC,
		Updated: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.games[gameID]; ok {
		return existing.clone(), nil
	}
	s.games[gameID] = m
	log.Printf("restored game %s at ply %d from storage", gameID, p.Ply())
	return m.clone(), nil
}

// generateGameID creates a new unique game ID; callers hold s.mu
func (s *Service) generateGameID() string {
	for {
		id := uuid.New().String()
		if _, exists := s.games[id]; !exists {
			return id
		}
	}
}

// Act runs actions for the seat of the given color. NoColor acts as both
// seats, as in a hotseat game.
func (s *Service) Act(gameID string, seat board.Color, actions ...game.Action) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return s.reduce(m, seat, actions)
}

// PlayMove plays a move in coordinate notation for the seat of the given
// color. The move is checked for legality against the held game before it
// is turned into clicks, since the reducer treats an unreachable target as
// a new selection.
func (s *Service) PlayMove(gameID string, seat board.Color, move string) (*Match, error) {
	// Brings a stored game back into memory
	if _, err := s.GetGame(gameID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	pos := m.Game.Position
	switch {
	case pos.IsOver():
		return nil, ErrGameOver
	case m.Game.IsPaused():
		return nil, fmt.Errorf("%w: waiting for a promotion piece or draw decision", game.ErrInvalidAction)
	case seat != board.NoColor && seat != pos.SideToMove:
		return nil, fmt.Errorf("%w: %s to move", ErrNotYourTurn, pos.SideToMove)
	}
	if _, err := pos.Play(move); err != nil {
		return nil, err
	}

	actions, err := game.MoveActions(move)
	if err != nil {
		return nil, err
	}
	return s.reduce(m, seat, actions)
}

// reduce runs actions against m and commits the result; callers hold s.mu.
func (s *Service) reduce(m *Match, seat board.Color, actions []game.Action) (*Match, error) {
	gameID := m.ID
	g := m.Game
	steps := []*game.Game{g}
	for _, a := range actions {
		if err := seatMayAct(g, seat, a); err != nil {
			return nil, err
		}
		next, err := game.Reduce(g, a)
		if err != nil {
			return nil, err
		}
		g = next
		steps = append(steps, g)
	}

	for i := 1; i < len(steps); i++ {
		s.recordStep(gameID, steps[i-1].Position, steps[i].Position)
	}
	if g != m.Game {
		m.Game = g
		m.Version++
		m.Updated = s.now()
		if s.store != nil {
			s.saveSnapshot(m)
		}
		s.waiter.NotifyGame(gameID, m.Version)
	}
	return m.clone(), nil
}

// seatMayAct rejects actions of the seat not to move. Undo and rematch are
// open to both seats, and only they are allowed once the game is over.
func seatMayAct(g *game.Game, seat board.Color, a game.Action) error {
	switch a.Kind {
	case game.Undo, game.Rematch:
		return nil
	}
	if g.Position.IsOver() {
		return ErrGameOver
	}
	if seat != board.NoColor && g.Position.SideToMove != seat {
		return fmt.Errorf("%w: %s to move", ErrNotYourTurn, g.Position.SideToMove)
	}
	return nil
}

// recordStep mirrors one position change into the moves table.
func (s *Service) recordStep(gameID string, before, after *engine.Position) {
	if s.store == nil || before == after {
		return
	}
	switch {
	case after.Ply() < before.Ply():
		s.store.DeleteUndoneMoves(gameID, after.Ply())
	case after.Ply() == before.Ply()+1:
		rec, _ := after.LastMove()
		s.store.RecordMove(storage.MoveRecord{
			GameID:      gameID,
			Ply:         after.Ply(),
			Notation:    rec.Notation,
			PositionKey: after.Key(),
			PlayerColor: rec.Mover.Letter(),
			MoveTimeUTC: s.now(),
		})
	}
}

// savedGame is the stored form of a match's game. A pending promotion or
// draw decision is kept so that it survives a restart.
type savedGame struct {
	Position *engine.Position `json:"position"`
	Pending  *game.Pending    `json:"pending,omitempty"`
}

func (s *Service) saveSnapshot(m *Match) {
	data, err := json.Marshal(savedGame{Position: m.Game.Position, Pending: m.Game.Pending})
	if err != nil {
		log.Printf("snapshot of game %s: %v", m.ID, err)
		return
	}
	s.store.SaveSnapshot(storage.SnapshotRecord{
		GameID:     m.ID,
		Snapshot:   string(data),
		UpdatedUTC: m.Updated,
	})
}

// DeleteGame removes a game from memory and storage
func (s *Service) DeleteGame(gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[gameID]; !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	// Notify and remove all waiters before deletion
	s.waiter.RemoveGame(gameID)

	delete(s.games, gameID)
	if s.store != nil {
		s.store.DeleteGame(gameID)
	}
	return nil
}

// GameCount returns the number of games held in memory
func (s *Service) GameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}
