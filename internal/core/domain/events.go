package domain

import "time"

// Outcome kinds, used as event subjects and metric labels.
const (
	OutcomeSuccess        = "success"
	OutcomeTimeout        = "timeout"
	OutcomeTransportError = "transport_error"
	OutcomeCancelled      = "cancelled"
	OutcomeRemoteError    = "remote_error"
	OutcomeDecodeError    = "decode_error"
	OutcomeInvalidRequest = "invalid_request"
)

// RouteEvent is published once per routing request after its outcome is known.
type RouteEvent struct {
	RequestID      string    `json:"request_id"`
	Outcome        string    `json:"outcome"`
	Waypoints      int       `json:"waypoints"`
	Alternatives   int       `json:"alternatives"`
	DirectDistance float64   `json:"direct_distance_m"`
	BestDistance   float64   `json:"best_distance_m,omitempty"`
	BestTime       float64   `json:"best_time_s,omitempty"`
	Status         string    `json:"status,omitempty"`
	Message        string    `json:"message,omitempty"`
	Duration       float64   `json:"duration_ms"`
	Time           time.Time `json:"time"`
}
