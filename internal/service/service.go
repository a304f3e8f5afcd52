package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lixenwraith/auth"

	"chessduel/internal/board"
	"chessduel/internal/storage"
)

const (
	MaxGames           = 1000
	SeatTokenTTL       = 7 * 24 * time.Hour
	IdleGameTTL        = 24 * time.Hour
	CleanupJobInterval = 1 * time.Hour
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrNotYourTurn  = errors.New("not this seat's turn")
	ErrGameOver     = errors.New("game is over")
	ErrTooManyGames = errors.New("too many active games")
	ErrInvalidSeat  = errors.New("invalid seat token")
)

// Service coordinates game state, seat tokens, long polling and storage
type Service struct {
	games     map[string]*Match
	mu        sync.RWMutex
	store     *storage.Store // nil if persistence disabled
	jwtSecret []byte
	seatTTL   time.Duration
	idleTTL   time.Duration
	waiter    *WaitRegistry
	now       func() time.Time
}

// New creates a new service instance with optional storage
func New(store *storage.Store, jwtSecret []byte) *Service {
	return &Service{
		games:     make(map[string]*Match),
		store:     store,
		jwtSecret: jwtSecret,
		seatTTL:   SeatTokenTTL,
		idleTTL:   IdleGameTTL,
		waiter:    NewWaitRegistry(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetSeatTTL changes the lifetime of seat tokens issued from now on
func (s *Service) SetSeatTTL(ttl time.Duration) {
	if ttl > 0 {
		s.seatTTL = ttl
	}
}

// SetIdleTTL changes how long an untouched game is kept by the cleanup job
func (s *Service) SetIdleTTL(ttl time.Duration) {
	if ttl > 0 {
		s.idleTTL = ttl
	}
}

// GetStorageHealth returns the storage component status
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// RegisterWait registers a client to wait for a game to move past version
func (s *Service) RegisterWait(ctx context.Context, gameID string, version int) <-chan struct{} {
	return s.waiter.RegisterWait(ctx, gameID, version)
}

// IssueSeatToken signs a token binding the bearer to one color of a game
func (s *Service) IssueSeatToken(m *Match, color board.Color) (string, error) {
	player := m.Player(color)
	claims := map[string]any{
		"game":  m.ID,
		"color": color.String(),
	}
	return auth.GenerateHS256Token(s.jwtSecret, player.ID, claims, s.seatTTL)
}

// ValidateSeatToken verifies a seat token and returns its game and color
func (s *Service) ValidateSeatToken(token string) (gameID string, color board.Color, err error) {
	playerID, claims, err := auth.ValidateHS256Token(s.jwtSecret, token)
	if err != nil {
		return "", board.NoColor, fmt.Errorf("%w: %v", ErrInvalidSeat, err)
	}
	gameID, _ = claims["game"].(string)
	colorName, _ := claims["color"].(string)
	color, err = board.ParseColor(colorName)
	if err != nil || gameID == "" {
		return "", board.NoColor, fmt.Errorf("%w: missing claims", ErrInvalidSeat)
	}

	m, err := s.GetGame(gameID)
	if err != nil {
		return "", board.NoColor, err
	}
	if m.Player(color).ID != playerID {
		return "", board.NoColor, fmt.Errorf("%w: seat holder changed", ErrInvalidSeat)
	}
	return gameID, color, nil
}

// Shutdown gracefully shuts down the service
func (s *Service) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.waiter.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("wait registry: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.games = make(map[string]*Match)

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RunCleanupJob periodically drops games nobody touched for the idle TTL
func (s *Service) RunCleanupJob(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupIdle(s.idleTTL)
		}
	}
}

func (s *Service) cleanupIdle(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	var idle []string
	for id, m := range s.games {
		if m.Updated.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	for _, id := range idle {
		s.waiter.RemoveGame(id)
		delete(s.games, id)
		if s.store != nil {
			s.store.DeleteGame(id)
		}
	}
	s.mu.Unlock()

	if len(idle) > 0 {
		log.Printf("cleanup: dropped %d idle games", len(idle))
	}
	return len(idle)
}
