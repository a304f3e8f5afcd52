package core

import (
	"github.com/google/uuid"

	"chessduel/internal/board"
)

// Player holds one seat of a game. The ID is the subject of the seat token.
type Player struct {
	ID    string      `json:"id"`
	Color board.Color `json:"color"`
}

// NewPlayer creates a seat with a fresh random ID.
func NewPlayer(color board.Color) *Player {
	return &Player{
		ID:    uuid.New().String(),
		Color: color,
	}
}

// PlayersResponse for API responses
type PlayersResponse struct {
	White *Player `json:"white"`
	Black *Player `json:"black"`
}
