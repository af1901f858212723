package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/hereroute/internal/pkg/metrics"
)

// routeRequestsPerMinute caps routing calls per client IP; each one costs
// upstream quota.
const routeRequestsPerMinute = 60

// SetupRoutes registers the REST, GraphQL and WebSocket surfaces.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(
		compress.New(compress.Config{Level: compress.LevelBestSpeed}),
		requestid.New(),
		RequestIDLogMiddleware(),
		AccessLogMiddleware(),
		securityHeaders,
		CachingMiddleware(),
	)

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Everything below reaches the routing service.
	limit := routeLimiter(deps.LimiterStorage)
	bounded := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, deps.requestTimeout())
	}

	app.Get("/v1/route", limit, bounded(RouteQueryHandler(deps)))
	app.Post("/v1/route", limit, bounded(RouteBodyHandler(deps)))
	app.Post("/graphql", limit, bounded(GraphQLHandler(deps)))

	SetupDocs(app, deps.SpecPath)

	app.Get("/ws", requireUpgrade, websocket.New(WebSocketHandler(deps.NATS, deps.eventPrefix())))
}

func routeLimiter(storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        routeRequestsPerMinute,
		Expiration: time.Minute,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many routing requests, please try again later")
		},
	})
}

func securityHeaders(c *fiber.Ctx) error {
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set("X-Frame-Options", "DENY")
	c.Set("Referrer-Policy", "no-referrer")
	c.Set("X-API-Version", "1.0.0")
	return c.Next()
}

func requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}
