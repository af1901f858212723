package ports

import (
	"context"

	"github.com/samirrijal/hereroute/internal/core/domain"
)

// Transport performs a single HTTP GET and returns the raw response body.
// The body is returned for any HTTP status; an error means the request
// could not be completed at all.
type Transport interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// TransportFunc adapts a plain function to Transport.
type TransportFunc func(ctx context.Context, url string) ([]byte, error)

func (f TransportFunc) Get(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

// EventPublisher publishes routing events to a message broker.
type EventPublisher interface {
	PublishRouteEvent(ctx context.Context, event *domain.RouteEvent) error
}

// Router resolves waypoints into route alternatives.
type Router interface {
	RouteSync(ctx context.Context, waypoints []domain.Waypoint, params map[string]string) ([]domain.RouteAlternative, error)
}
