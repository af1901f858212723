package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/hereroute/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, upstream_timeout, routing_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
	// Upstream carries the routing service's own error, verbatim.
	Upstream *domain.RoutingError `json:"upstream,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	return writeError(c, APIError{Status: status, Code: code, Message: message})
}

func writeError(c *fiber.Ctx, e APIError) error {
	e.RequestID, _ = c.Locals("requestid").(string)
	return c.Status(e.Status).JSON(e)
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errRouting maps a routing failure onto an HTTP error response.
func errRouting(c *fiber.Ctx, err error) error {
	switch domain.OutcomeOf(err) {
	case domain.OutcomeInvalidRequest:
		return errBadRequest(c, err.Error())
	case domain.OutcomeTimeout, domain.OutcomeCancelled:
		return newError(c, fiber.StatusGatewayTimeout, "upstream_timeout", err.Error())
	case domain.OutcomeDecodeError:
		return newError(c, fiber.StatusBadGateway, "bad_upstream_response", err.Error())
	case domain.OutcomeRemoteError:
		var rerr *domain.RoutingError
		errors.As(err, &rerr)
		return writeError(c, APIError{
			Status:   fiber.StatusUnprocessableEntity,
			Code:     "routing_error",
			Message:  rerr.Message,
			Upstream: rerr,
		})
	default:
		return newError(c, fiber.StatusBadGateway, "upstream_unavailable", err.Error())
	}
}
