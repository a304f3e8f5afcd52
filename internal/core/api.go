package core

import "encoding/json"

// Request types

type CreateGameRequest struct {
	FEN string `json:"fen,omitempty" validate:"omitempty,max=100"`
}

type ImportGameRequest struct {
	Position json.RawMessage `json:"position" validate:"required"`
}

// ActionRequest is one reducer action. Square and Piece are only read by
// the actions that carry them.
type ActionRequest struct {
	Type   string `json:"type" validate:"required,oneof=square-chosen promotion-piece-chosen claim-draw do-not-claim-draw claim-draw-without-move undo rematch"`
	Square string `json:"square,omitempty" validate:"required_if=Type square-chosen,omitempty,square"`
	Piece  string `json:"piece,omitempty" validate:"required_if=Type promotion-piece-chosen,omitempty,oneof=queen rook bishop knight q r b n"`
}

// ActionsRequest carries actions applied in order; the response reflects
// the state after the last one.
type ActionsRequest struct {
	Actions []ActionRequest `json:"actions" validate:"required,min=1,max=16,dive"`
}

type MoveRequest struct {
	Move string `json:"move" validate:"required,min=4,max=5"` // Coordinate notation, e.g. "e2e4" or "e7e8q"
}

// Response types

type GameResponse struct {
	GameID     string          `json:"gameId"`
	Version    int             `json:"version"` // Pass back with wait=true to long-poll
	FEN        string          `json:"fen"`
	Turn       string          `json:"turn"`  // "w" or "b"
	State      string          `json:"state"` // "ongoing", "paused", "white wins", ...
	Moves      []string        `json:"moves"`
	Check      bool            `json:"check"`
	GameOver   []string        `json:"gameOver,omitempty"`
	AllowDraw  []string        `json:"allowDraw,omitempty"`
	Pending    *PendingInfo    `json:"pending,omitempty"`
	Selected   string          `json:"selected,omitempty"`
	Players    PlayersResponse `json:"players"`
	LastMove   *MoveInfo       `json:"lastMove,omitempty"`
	Captured   CapturedInfo    `json:"captured"`
	Repetition int             `json:"repetition"`
}

// CreateGameResponse carries the seat tokens, which are only handed out once.
type CreateGameResponse struct {
	GameResponse
	Tokens SeatTokens `json:"tokens"`
}

type SeatTokens struct {
	White string `json:"white"`
	Black string `json:"black"`
}

// PendingInfo describes a move waiting for a promotion piece or a draw
// decision.
type PendingInfo struct {
	Origin  string   `json:"origin"`
	Target  string   `json:"target"`
	Reasons []string `json:"reasons"`
}

type MoveInfo struct {
	Move        string `json:"move"`
	PlayerColor string `json:"playerColor"` // "w" or "b"
}

// CapturedInfo counts captured pieces of each color, pawn to queen.
type CapturedInfo struct {
	White [5]int `json:"white"`
	Black [5]int `json:"black"`
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"` // ASCII representation
}

type LegalMovesResponse struct {
	Square string            `json:"square"`
	Moves  map[string]string `json:"moves"` // target square -> move kind
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
