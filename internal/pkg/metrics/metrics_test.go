package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/hereroute/internal/pkg/metrics"
)

func TestHandler_ServesRoutingMetrics(t *testing.T) {
	metrics.ObserveRoute("success", 200*time.Millisecond, 2, 1500)
	metrics.ObserveRoute("timeout", 30*time.Second, -1, 0)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{
		`hereroute_routing_requests_total{outcome="success"}`,
		`hereroute_routing_requests_total{outcome="timeout"}`,
		"hereroute_routing_alternatives",
		"hereroute_routing_route_distance_meters",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("expected %s in /metrics output", name)
		}
	}
}
