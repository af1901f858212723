package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hereroute",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hereroute",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "path"})

	// Routing metrics
	RoutingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hereroute",
		Subsystem: "routing",
		Name:      "requests_total",
		Help:      "Routing requests by outcome",
	}, []string{"outcome"})

	RoutingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hereroute",
		Subsystem: "routing",
		Name:      "request_duration_seconds",
		Help:      "Time from dispatch to outcome",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"outcome"})

	RoutingAlternatives = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hereroute",
		Subsystem: "routing",
		Name:      "alternatives",
		Help:      "Alternatives returned per successful request",
		Buckets:   []float64{0, 1, 2, 3, 4, 5, 6},
	})

	RouteDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hereroute",
		Subsystem: "routing",
		Name:      "route_distance_meters",
		Help:      "Total distance of the first alternative",
		Buckets:   prometheus.ExponentialBuckets(500, 2, 10),
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hereroute",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Routing events handed to the broker",
	}, []string{"result"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hereroute",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// ObserveRoute records one routing request.
func ObserveRoute(outcome string, elapsed time.Duration, alternatives int, firstDistance float64) {
	RoutingRequests.WithLabelValues(outcome).Inc()
	RoutingDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if alternatives >= 0 {
		RoutingAlternatives.Observe(float64(alternatives))
	}
	if firstDistance > 0 {
		RouteDistance.Observe(firstDistance)
	}
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
