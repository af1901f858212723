package domain

import (
	"context"
	"errors"
	"fmt"
)

// StatusLocalFailure is the status of failures synthesized locally:
// timeouts, transport errors and cancellation.
const StatusLocalFailure = "-1"

var (
	// ErrNoWaypoints is returned when a route is requested without waypoints.
	ErrNoWaypoints = errors.New("at least one waypoint is required")

	// ErrInvalidWaypoint is returned when a waypoint coordinate is not a
	// finite WGS 84 position.
	ErrInvalidWaypoint = errors.New("invalid waypoint coordinate")

	// ErrTimeout is the cause of a RoutingError raised by the request deadline.
	ErrTimeout = errors.New("routing deadline elapsed")
)

// RoutingError is a failure reported to the caller of a routing request.
// Status is StatusLocalFailure for local failures; otherwise it is the
// routing service's own error type, relayed verbatim.
type RoutingError struct {
	Status         string            `json:"status"`
	Message        string            `json:"message"`
	Subtype        string            `json:"subtype,omitempty"`
	AdditionalData map[string]string `json:"additional_data,omitempty"`

	// Cause is the underlying error of a local failure.
	Cause error `json:"-"`
}

func (e *RoutingError) Error() string {
	if e.Subtype != "" {
		return fmt.Sprintf("%s (%s): %s", e.Status, e.Subtype, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

func (e *RoutingError) Unwrap() error { return e.Cause }

// Local reports whether the error was synthesized locally rather than
// returned by the routing service.
func (e *RoutingError) Local() bool { return e.Status == StatusLocalFailure }

// LocalFailure builds a locally synthesized RoutingError.
func LocalFailure(cause error, format string, args ...any) *RoutingError {
	return &RoutingError{Status: StatusLocalFailure, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// DecodeError reports a response that violates the routing service's
// response contract. Path locates the offending member, e.g.
// "response.route[0].shape[3]".
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "decode routing response: " + e.Err.Error()
	}
	return fmt.Sprintf("decode routing response at %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// OutcomeOf classifies the error of a routing request into one of the
// Outcome* kinds.
func OutcomeOf(err error) string {
	var (
		rerr *RoutingError
		derr *DecodeError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNoWaypoints), errors.Is(err, ErrInvalidWaypoint):
		return OutcomeInvalidRequest
	case errors.As(err, &derr):
		return OutcomeDecodeError
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case errors.As(err, &rerr) && !rerr.Local():
		return OutcomeRemoteError
	default:
		return OutcomeTransportError
	}
}
