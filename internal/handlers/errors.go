package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/tubesummary/internal/resolver"
	"github.com/codebuildervaibhav/tubesummary/internal/types"
)

// Error type codes returned to clients
const (
	TypeInvalidInput      = "INVALID_INPUT"
	TypeNoTranscript      = "NO_TRANSCRIPT"
	TypeTimeout           = "TIMEOUT"
	TypeMinimalTranscript = "MINIMAL_TRANSCRIPT"
	TypeServerError       = "SERVER_ERROR"
	TypeNotConfigured     = "NOT_CONFIGURED"
	TypeUpstreamError     = "UPSTREAM_ERROR"
)

// apiError is a failure that has not been written yet
type apiError struct {
	Status  int
	Message string
	Type    string
	Extra   fiber.Map
}

func (e *apiError) body() fiber.Map {
	m := fiber.Map{
		"message": e.Message,
		"status":  e.Status,
	}
	if e.Type != "" {
		m["type"] = e.Type
	}
	for k, v := range e.Extra {
		m[k] = v
	}
	return fiber.Map{"error": m}
}

func (e *apiError) send(c *fiber.Ctx) error {
	return c.Status(e.Status).JSON(e.body())
}

func badRequest(msg string) *apiError {
	return &apiError{Status: fiber.StatusBadRequest, Message: msg, Type: TypeInvalidInput}
}

// toAPIError maps a classified error to its HTTP status and type code
func toAPIError(err error) *apiError {
	if nte, ok := resolver.AsNoTranscript(err); ok {
		return &apiError{
			Status:  fiber.StatusNotFound,
			Message: "No transcript/captions available for this video. Please try a video with captions enabled.",
			Type:    TypeNoTranscript,
			Extra: fiber.Map{
				"tryDomExtraction": nte.TryDOMExtraction(),
				"attempts":         nte.Attempts,
			},
		}
	}

	switch types.KindOf(err) {
	case types.KindInvalidInput:
		return badRequest(detailOf(err))
	case types.KindTimeout:
		return &apiError{Status: fiber.StatusGatewayTimeout, Message: "Request timed out", Type: TypeTimeout}
	case types.KindNotConfigured:
		return &apiError{Status: fiber.StatusServiceUnavailable, Message: detailOf(err), Type: TypeNotConfigured}
	case types.KindUpstreamError:
		return &apiError{Status: fiber.StatusBadGateway, Message: detailOf(err), Type: TypeUpstreamError}
	}
	return &apiError{Status: fiber.StatusInternalServerError, Message: err.Error(), Type: TypeServerError}
}

// detailOf prefers the human message of a TierError over its full chain
func detailOf(err error) string {
	var te *types.TierError
	if errors.As(err, &te) && te.Detail != "" {
		return te.Detail
	}
	return err.Error()
}
