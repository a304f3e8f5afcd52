// Package client talks to the chess server's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chessduel/internal/core"
	"chessduel/internal/engine"
)

// APIError is an error reply of the server
type APIError struct {
	Status int
	core.ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.ErrorResponse.Error)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// IsCode reports whether err is an API error with the given code
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type HealthResponse struct {
	Status  string `json:"status"`
	Time    int64  `json:"time"`
	Storage string `json:"storage"`
	Games   int    `json:"games"`
}

type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		// Long polls are held up to 25s by the server
		HTTPClient: &http.Client{
			Timeout: 40 * time.Second,
		},
	}
}

func (c *Client) SetToken(token string) {
	c.AuthToken = token
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr.ErrorResponse); err != nil {
			apiErr.ErrorResponse.Error = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp)
	return &resp, err
}

// CreateGame starts a game, from fen when it is not empty
func (c *Client) CreateGame(ctx context.Context, fen string) (*core.CreateGameResponse, error) {
	var resp core.CreateGameResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/games", &core.CreateGameRequest{FEN: fen}, &resp)
	return &resp, err
}

// ImportGame starts a game continuing from p
func (c *Client) ImportGame(ctx context.Context, p *engine.Position) (*core.CreateGameResponse, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var resp core.CreateGameResponse
	err = c.doRequest(ctx, http.MethodPost, "/api/v1/games/import", &core.ImportGameRequest{Position: data}, &resp)
	return &resp, err
}

func (c *Client) GetGame(ctx context.Context, gameID string) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/games/"+gameID, nil, &resp)
	return &resp, err
}

// WaitGame blocks until the game moves past version or the server's wait
// times out, and returns the state at that point.
func (c *Client) WaitGame(ctx context.Context, gameID string, version int) (*core.GameResponse, error) {
	var resp core.GameResponse
	path := fmt.Sprintf("/api/v1/games/%s?wait=true&version=%d", gameID, version)
	err := c.doRequest(ctx, http.MethodGet, path, nil, &resp)
	return &resp, err
}

func (c *Client) DeleteGame(ctx context.Context, gameID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/v1/games/"+gameID, nil, nil)
}

// Act sends reducer actions, applied in order by the server
func (c *Client) Act(ctx context.Context, gameID string, actions ...core.ActionRequest) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/games/"+gameID+"/actions", &core.ActionsRequest{Actions: actions}, &resp)
	return &resp, err
}

// MakeMove plays a move in coordinate notation, e.g. "e2e4" or "e7e8q"
func (c *Client) MakeMove(ctx context.Context, gameID, move string) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/games/"+gameID+"/moves", &core.MoveRequest{Move: move}, &resp)
	return &resp, err
}

func (c *Client) LegalMoves(ctx context.Context, gameID, square string) (*core.LegalMovesResponse, error) {
	var resp core.LegalMovesResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/games/"+gameID+"/moves/"+square, nil, &resp)
	return &resp, err
}

func (c *Client) GetBoard(ctx context.Context, gameID string) (*core.BoardResponse, error) {
	var resp core.BoardResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/games/"+gameID+"/board", nil, &resp)
	return &resp, err
}

// ExportGame fetches the full position, history included
func (c *Client) ExportGame(ctx context.Context, gameID string) (*engine.Position, error) {
	var p engine.Position
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/games/"+gameID+"/export", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
