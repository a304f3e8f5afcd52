package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"chessduel/internal/board"
	"chessduel/internal/core"
	"chessduel/internal/service"
)

// SeatValidator resolves a seat token to the game and color it grants
type SeatValidator func(token string) (gameID string, color board.Color, err error)

// AuthRequired admits only holders of a seat token for the game in the path
func AuthRequired(validateSeat SeatValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c.Get("Authorization"))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{
				Error: "missing authorization token",
				Code:  core.ErrUnauthorized,
			})
		}

		gameID, color, err := validateSeat(token)
		if err != nil {
			if errors.Is(err, service.ErrGameNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(core.ErrorResponse{
					Error: "game not found",
					Code:  core.ErrGameNotFound,
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{
				Error: "invalid or expired token",
				Code:  core.ErrUnauthorized,
			})
		}

		if gameID != c.Params("gameId") {
			return c.Status(fiber.StatusForbidden).JSON(core.ErrorResponse{
				Error:   "token does not grant a seat in this game",
				Code:    core.ErrUnauthorized,
				Details: "use the token issued when this game was created",
			})
		}

		c.Locals("seatColor", color)
		return c.Next()
	}
}

// extractBearerToken extracts JWT token from Authorization header
func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// contentTypeValidator ensures POST and PUT requests have application/json
func contentTypeValidator(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodPost || method == fiber.MethodPut {
		contentType := c.Get("Content-Type")
		if contentType != "application/json" && contentType != "" {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Error:   "unsupported media type",
				Code:    core.ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}
