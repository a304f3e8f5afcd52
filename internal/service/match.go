package service

import (
	"time"

	"chessduel/internal/board"
	"chessduel/internal/core"
	"chessduel/internal/game"
)

// Match is a game held by the service together with its seats. Version
// increases with every accepted change and drives long polling.
type Match struct {
	ID      string
	Game    *game.Game
	White   *core.Player
	Black   *core.Player
	Version int
	Created time.Time
	Updated time.Time
}

// Player returns the seat of color c.
func (m *Match) Player(c board.Color) *core.Player {
	if c == board.Black {
		return m.Black
	}
	return m.White
}

// clone copies the match header; the game value is immutable and shared.
func (m *Match) clone() *Match {
	c := *m
	return &c
}
