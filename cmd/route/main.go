package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/samirrijal/hereroute/internal/pkg/logging"
)

func main() {
	logging.Setup(envOr("HEREROUTE_LOG_LEVEL", "warn"), "text")

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "hereroute",
		Usage: "Query HERE routes and watch routing events from the command line",

		// Waypoints are "lat,lng"; commas must not split slice flag values.
		DisableSliceFlagSeparator: true,

		Commands: []*cli.Command{
			routeCommand(),
			watchCommand(),
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
