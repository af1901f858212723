package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/hereroute/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Routing *usecases.RoutingService
	// Upstream is the routing service endpoint, reported by the health checks.
	Upstream string
	// NATS feeds the WebSocket relay and readiness check. May be nil.
	NATS *nats.Conn
	// EventPrefix is the subject prefix routing events are published under.
	EventPrefix string
	// LimiterStorage shares rate limiter counters between replicas. Nil
	// keeps them in process memory.
	LimiterStorage fiber.Storage
	// RequestTimeout bounds each routing request end to end.
	RequestTimeout time.Duration
	// SpecPath locates the OpenAPI document served under /docs.
	SpecPath string
}

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 35 * time.Second
	}
	return d.RequestTimeout
}

func (d *Dependencies) eventPrefix() string {
	if d.EventPrefix == "" {
		return "routing"
	}
	return d.EventPrefix
}
