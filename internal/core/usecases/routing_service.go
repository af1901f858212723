package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/hereroute/internal/core/domain"
	"github.com/samirrijal/hereroute/internal/core/ports"
	"github.com/samirrijal/hereroute/internal/pkg/geospatial"
	"github.com/samirrijal/hereroute/internal/pkg/logging"
	"github.com/samirrijal/hereroute/internal/pkg/metrics"
	"github.com/samirrijal/hereroute/internal/pkg/telemetry"
)

// RouteResult is a successful routing request.
type RouteResult struct {
	RequestID    string                    `json:"request_id"`
	Alternatives []domain.RouteAlternative `json:"alternatives"`
}

// RoutingService resolves waypoints through a router and reports every
// outcome to logs, metrics, traces and the event publisher.
type RoutingService struct {
	router    ports.Router
	publisher ports.EventPublisher
}

// NewRoutingService creates a new RoutingService. publisher may be nil.
func NewRoutingService(router ports.Router, publisher ports.EventPublisher) *RoutingService {
	return &RoutingService{router: router, publisher: publisher}
}

// Route requests alternatives for waypoints. params are per-call service
// parameters. The returned error is the router's, unchanged.
func (s *RoutingService) Route(ctx context.Context, waypoints []domain.Waypoint, params map[string]string) (*RouteResult, error) {
	reqID := uuid.NewString()
	log := logging.FromContext(ctx).With("routing_request_id", reqID)

	ctx, span := telemetry.Tracer().Start(ctx, "routing.Route", trace.WithAttributes(
		telemetry.AttrRequestID.String(reqID),
		telemetry.AttrWaypoints.Int(len(waypoints)),
	))
	defer span.End()

	start := time.Now()
	alts, err := s.router.RouteSync(ctx, waypoints, params)
	elapsed := time.Since(start)

	outcome := domain.OutcomeOf(err)
	event := &domain.RouteEvent{
		RequestID:      reqID,
		Outcome:        outcome,
		Waypoints:      len(waypoints),
		Alternatives:   len(alts),
		DirectDistance: geospatial.DirectDistance(waypoints),
		Duration:       float64(elapsed.Microseconds()) / 1000,
		Time:           start.UTC(),
	}
	span.SetAttributes(telemetry.AttrOutcome.String(outcome))

	if err != nil {
		var rerr *domain.RoutingError
		if errors.As(err, &rerr) {
			event.Status = rerr.Status
			event.Message = rerr.Message
			span.SetAttributes(telemetry.AttrStatus.String(rerr.Status))
		} else {
			event.Message = err.Error()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)

		metrics.ObserveRoute(outcome, elapsed, -1, 0)
		level := slog.LevelWarn
		if outcome == domain.OutcomeDecodeError {
			level = slog.LevelError
		}
		log.Log(ctx, level, "route request failed",
			"outcome", outcome,
			"waypoints", len(waypoints),
			"elapsed", elapsed.String(),
			"error", err,
		)
		s.publish(ctx, log, event)
		return nil, err
	}

	var firstDistance float64
	if len(alts) > 0 {
		event.BestDistance, event.BestTime = best(alts)
		firstDistance = alts[0].Summary.TotalDistance
	}
	span.SetAttributes(telemetry.AttrAlternatives.Int(len(alts)))
	metrics.ObserveRoute(outcome, elapsed, len(alts), firstDistance)
	log.Info("route request completed",
		"waypoints", len(waypoints),
		"alternatives", len(alts),
		"elapsed", elapsed.String(),
	)
	s.publish(ctx, log, event)

	return &RouteResult{RequestID: reqID, Alternatives: alts}, nil
}

// best returns the shortest total distance and the fastest total time
// across alternatives.
func best(alts []domain.RouteAlternative) (distance, duration float64) {
	distance, duration = alts[0].Summary.TotalDistance, alts[0].Summary.TotalTime
	for _, a := range alts[1:] {
		distance = min(distance, a.Summary.TotalDistance)
		duration = min(duration, a.Summary.TotalTime)
	}
	return distance, duration
}

func (s *RoutingService) publish(ctx context.Context, log *slog.Logger, event *domain.RouteEvent) {
	if s.publisher == nil {
		return
	}
	// Timeouts and cancellations are still reported.
	if err := s.publisher.PublishRouteEvent(context.WithoutCancel(ctx), event); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		log.Warn("publish route event", "error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}
