package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/hereroute/internal/adapters/here"
	"github.com/samirrijal/hereroute/internal/adapters/http"
	natsadapter "github.com/samirrijal/hereroute/internal/adapters/nats"
	"github.com/samirrijal/hereroute/internal/adapters/transport"
	"github.com/samirrijal/hereroute/internal/adapters/valkey"
	"github.com/samirrijal/hereroute/internal/core/ports"
	"github.com/samirrijal/hereroute/internal/core/usecases"
	"github.com/samirrijal/hereroute/internal/pkg/config"
	"github.com/samirrijal/hereroute/internal/pkg/logging"
	"github.com/samirrijal/hereroute/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("hereroute-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// HERE client
	tr := transport.New(transport.Options{
		MaxConnsPerHost: cfg.Transport.MaxConnsPerHost,
		UserAgent:       cfg.Transport.UserAgent,
	})
	router := here.New(
		here.Config{
			ServiceURL:    cfg.HERE.ServiceURL,
			Timeout:       cfg.HERE.Timeout(),
			URLParameters: cfg.HERE.Parameters(),
		},
		here.Credentials{AppID: cfg.HERE.AppID, AppCode: cfg.HERE.AppCode},
		tr,
	)

	// NATS is optional: routing works without it, events are just not published.
	var (
		publisher ports.EventPublisher
		natsConn  *nats.Conn
	)
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			slog.Warn("nats unavailable, routing events disabled", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}

		// Raw NATS connection for WebSocket relay
		natsConn, err = natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer natsConn.Close()
		}
	}

	// Shared limiter state; without it each replica counts on its own.
	var limiterStorage fiber.Storage
	if cfg.Valkey.Enabled {
		store, err := valkey.NewStorage(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
		if err != nil {
			slog.Warn("valkey unavailable, rate limits are per process", "error", err)
		} else {
			defer store.Close()
			limiterStorage = store
		}
	}

	deps := &http.Dependencies{
		Routing:        usecases.NewRoutingService(router, publisher),
		Upstream:       cfg.HERE.ServiceURL,
		NATS:           natsConn,
		EventPrefix:    cfg.NATS.SubjectPrefix,
		LimiterStorage: limiterStorage,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024,
		AppName:      "hereroute API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		ExposeHeaders:    "X-Routing-Request-ID, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "here", cfg.HERE.ServiceURL)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
