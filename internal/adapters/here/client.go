package here

import (
	"context"
	"slices"

	"github.com/samirrijal/hereroute/internal/core/domain"
	"github.com/samirrijal/hereroute/internal/core/ports"
)

// Callback receives the result of Router.Route. On failure err is set and
// alts is nil; on success err is nil and alts may be empty.
type Callback func(err error, alts []domain.RouteAlternative)

// Router requests routes from the HERE calculateroute endpoint.
type Router struct {
	cfg       Config
	creds     Credentials
	transport ports.Transport
}

// New creates a Router. Zero fields of cfg take the package defaults.
func New(cfg Config, creds Credentials, transport ports.Transport) *Router {
	return &Router{cfg: cfg.withDefaults(), creds: creds, transport: transport}
}

// Config returns the effective configuration.
func (r *Router) Config() Config { return r.cfg }

// BuildURL renders the request URL for waypoints without sending it.
// params override Config.URLParameters for this call only.
func (r *Router) BuildURL(waypoints []domain.Waypoint, params map[string]string) (string, error) {
	return BuildRouteURL(r.cfg.ServiceURL, waypoints, params, r.cfg.URLParameters, r.creds)
}

// Route requests a route through waypoints and calls cb exactly once from
// another goroutine. It returns r for chaining.
func (r *Router) Route(ctx context.Context, waypoints []domain.Waypoint, cb Callback, params map[string]string) *Router {
	out := r.start(ctx, waypoints, params)
	go func() {
		o := <-out
		cb(o.Err, o.Alternatives)
	}()
	return r
}

// RouteSync is the blocking form of Route.
func (r *Router) RouteSync(ctx context.Context, waypoints []domain.Waypoint, params map[string]string) ([]domain.RouteAlternative, error) {
	o := <-r.start(ctx, waypoints, params)
	return o.Alternatives, o.Err
}

func (r *Router) start(ctx context.Context, waypoints []domain.Waypoint, params map[string]string) <-chan domain.Outcome {
	url, err := r.BuildURL(waypoints, params)
	if err != nil {
		return failed(err)
	}
	// Callers may keep mutating their slice while the request is in flight.
	snapshot := slices.Clone(waypoints)
	return Dispatch(ctx, r.transport, url, snapshot, r.cfg.Timeout)
}
