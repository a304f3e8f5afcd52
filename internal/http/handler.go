package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"chessduel/internal/board"
	"chessduel/internal/core"
	"chessduel/internal/game"
	"chessduel/internal/processor"
	"chessduel/internal/service"
)

const rateLimitRate = 10 // req/sec

// HTTPHandler handles HTTP requests and routes them to the processor
type HTTPHandler struct {
	proc *processor.Processor
	svc  *service.Service
}

func NewHTTPHandler(proc *processor.Processor, svc *service.Service) *HTTPHandler {
	return &HTTPHandler{proc: proc, svc: svc}
}

func NewFiberApp(proc *processor.Processor, svc *service.Service, devMode bool) *fiber.App {
	h := NewHTTPHandler(proc, svc)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: service.WaitTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")

	maxReq := rateLimitRate
	if devMode {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	seated := AuthRequired(svc.ValidateSeatToken)

	api.Post("/games", h.CreateGame)
	api.Post("/games/import", h.ImportGame)
	api.Get("/games/:gameId", h.GetGame)
	api.Delete("/games/:gameId", seated, h.DeleteGame)
	api.Post("/games/:gameId/actions", seated, h.Act)
	api.Post("/games/:gameId/moves", seated, h.MakeMove)
	api.Get("/games/:gameId/moves/:square", h.LegalMoves)
	api.Get("/games/:gameId/board", h.GetBoard)
	api.Get("/games/:gameId/export", h.ExportGame)

	return app
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrGameNotFound
		case fiber.StatusBadRequest:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// statusFor maps processor error codes to HTTP status codes
func statusFor(e *core.ErrorResponse) int {
	switch e.Code {
	case core.ErrGameNotFound:
		return fiber.StatusNotFound
	case core.ErrNotYourTurn, core.ErrUnauthorized:
		return fiber.StatusForbidden
	case core.ErrGameOver:
		return fiber.StatusConflict
	case core.ErrResourceLimit:
		return fiber.StatusServiceUnavailable
	case core.ErrInternalError:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

func reply(c *fiber.Ctx, resp processor.ProcessorResponse) error {
	if !resp.Success {
		return c.Status(statusFor(resp.Error)).JSON(resp.Error)
	}
	return c.JSON(resp.Data)
}

func invalidGameID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
		Error:   "invalid game ID format",
		Code:    core.ErrInvalidRequest,
		Details: "game ID must be a valid UUID",
	})
}

// validatedBody returns the body parsed by validationMiddleware
func validatedBody[T any](c *fiber.Ctx) (*T, error) {
	validated, ok := c.Locals("validated").(bool)
	if !ok || !validated {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation bypass detected",
			Code:  core.ErrInternalError,
		})
	}
	body, ok := c.Locals("validatedBody").(*T)
	if !ok {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation data missing",
			Code:  core.ErrInternalError,
		})
	}
	return body, nil
}

// Health check endpoint with storage status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"time":    time.Now().Unix(),
		"storage": h.svc.GetStorageHealth(),
		"games":   h.svc.GameCount(),
	})
}

// CreateGame creates a game and returns it with both seat tokens
func (h *HTTPHandler) CreateGame(c *fiber.Ctx) error {
	req, err := validatedBody[core.CreateGameRequest](c)
	if req == nil {
		return err
	}

	resp := h.proc.Submit(c.Context(), processor.NewCreateGameCommand(*req))
	if !resp.Success {
		return c.Status(statusFor(resp.Error)).JSON(resp.Error)
	}
	return c.Status(fiber.StatusCreated).JSON(resp.Data)
}

// ImportGame continues a game from an exported position
func (h *HTTPHandler) ImportGame(c *fiber.Ctx) error {
	req, err := validatedBody[core.ImportGameRequest](c)
	if req == nil {
		return err
	}

	resp := h.proc.Submit(c.Context(), processor.NewImportGameCommand(*req))
	if !resp.Success {
		return c.Status(statusFor(resp.Error)).JSON(resp.Error)
	}
	return c.Status(fiber.StatusCreated).JSON(resp.Data)
}

// GetGame returns the game state. With wait=true and the version the client
// already holds, the request is held until the game changes or the wait
// times out.
func (h *HTTPHandler) GetGame(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}

	if c.Query("wait", "false") != "true" {
		return reply(c, h.proc.Execute(processor.NewGetGameCommand(gameID)))
	}

	version, err := strconv.Atoi(c.Query("version", "-1"))
	if err != nil {
		version = -1
	}

	m, err := h.svc.GetGame(gameID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(core.ErrorResponse{
			Error: "game not found",
			Code:  core.ErrGameNotFound,
		})
	}

	// Stale clients get the current state immediately
	if version != m.Version {
		return reply(c, h.proc.Execute(processor.NewGetGameCommand(gameID)))
	}

	ctx := c.Context()
	notify := h.svc.RegisterWait(ctx, gameID, version)

	select {
	case <-notify:
		// Changed, deleted or timed out; the game might be gone
		return reply(c, h.proc.Execute(processor.NewGetGameCommand(gameID)))
	case <-ctx.Done():
		// Client disconnected
		return nil
	}
}

// Act applies reducer actions as the seat of the bearer token
func (h *HTTPHandler) Act(c *fiber.Ctx) error {
	req, err := validatedBody[core.ActionsRequest](c)
	if req == nil {
		return err
	}

	actions := make([]game.Action, 0, len(req.Actions))
	for _, ar := range req.Actions {
		a, err := toAction(ar)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
				Error:   "invalid action",
				Code:    core.ErrInvalidAction,
				Details: err.Error(),
			})
		}
		actions = append(actions, a)
	}

	seat, _ := c.Locals("seatColor").(board.Color)
	cmd := processor.NewActCommand(c.Params("gameId"), seat, actions)
	return reply(c, h.proc.Submit(c.Context(), cmd))
}

func toAction(ar core.ActionRequest) (game.Action, error) {
	a := game.Action{Kind: game.ActionKind(ar.Type)}
	if ar.Square != "" {
		sq, err := board.ParseSquare(ar.Square)
		if err != nil {
			return a, err
		}
		a.Square = sq
	}
	if ar.Piece != "" {
		p, err := board.ParsePiece(ar.Piece)
		if err != nil {
			return a, err
		}
		a.Piece = p
	}
	return a, nil
}

// MakeMove plays a move in coordinate notation as the bearer's seat
func (h *HTTPHandler) MakeMove(c *fiber.Ctx) error {
	req, err := validatedBody[core.MoveRequest](c)
	if req == nil {
		return err
	}

	seat, _ := c.Locals("seatColor").(board.Color)
	cmd := processor.NewMakeMoveCommand(c.Params("gameId"), seat, *req)
	return reply(c, h.proc.Submit(c.Context(), cmd))
}

// LegalMoves lists the moves of the piece on a square
func (h *HTTPHandler) LegalMoves(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}

	sq, err := board.ParseSquare(c.Params("square"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid square",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}

	return reply(c, h.proc.Execute(processor.NewLegalMovesCommand(gameID, sq)))
}

// DeleteGame ends and cleans up a game
func (h *HTTPHandler) DeleteGame(c *fiber.Ctx) error {
	resp := h.proc.Submit(c.Context(), processor.NewDeleteGameCommand(c.Params("gameId")))
	if !resp.Success {
		return c.Status(statusFor(resp.Error)).JSON(resp.Error)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetBoard returns ASCII representation of the board
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}
	return reply(c, h.proc.Execute(processor.NewGetBoardCommand(gameID)))
}

// ExportGame returns the serialized position for a later import
func (h *HTTPHandler) ExportGame(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}
	return reply(c, h.proc.Execute(processor.NewExportGameCommand(gameID)))
}
