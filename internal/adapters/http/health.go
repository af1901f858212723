package http

import (
	"net/url"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
)

type healthStatus struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Version  string `json:"version"`
	Upstream string `json:"upstream,omitempty"`
}

type readyStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthHandler reports liveness. It never calls the routing service:
// every upstream request costs quota.
func HealthHandler(deps *Dependencies) fiber.Handler {
	started := time.Now()
	version := "dev"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	upstream := ""
	if u, err := url.Parse(deps.Upstream); err == nil {
		upstream = u.Host
	}

	return func(c *fiber.Ctx) error {
		return c.JSON(healthStatus{
			Status:   "healthy",
			Uptime:   time.Since(started).Round(time.Second).String(),
			Version:  version,
			Upstream: upstream,
		})
	}
}

// ReadyHandler reports whether routing requests can be served. The event
// bus is optional: a missing connection is reported, a dropped one fails
// readiness since the WebSocket relay depends on it.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := readyStatus{Status: "ready", Checks: map[string]string{}}
		fail := func(check, state string) {
			res.Checks[check] = state
			res.Status = "not ready"
		}

		if deps.Routing == nil {
			fail("routing", "not configured")
		} else {
			res.Checks["routing"] = "ok"
		}

		switch {
		case deps.NATS == nil:
			res.Checks["nats"] = "not configured"
		case !deps.NATS.IsConnected():
			fail("nats", deps.NATS.Status().String())
		default:
			res.Checks["nats"] = "ok"
		}

		code := fiber.StatusOK
		if res.Status != "ready" {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(res)
	}
}
