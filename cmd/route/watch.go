package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	natsadapter "github.com/samirrijal/hereroute/internal/adapters/nats"
	"github.com/samirrijal/hereroute/internal/core/domain"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print routing events as the API publishes them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "nats-url",
				Value:   "nats://localhost:4222",
				EnvVars: []string{"HEREROUTE_NATS_URL"},
			},
			&cli.StringFlag{
				Name:    "prefix",
				Value:   "routing",
				EnvVars: []string{"HEREROUTE_NATS_SUBJECT_PREFIX"},
			},
			&cli.StringFlag{
				Name:  "outcome",
				Usage: "only print events with this outcome, e.g. timeout",
			},
		},
		Action: func(c *cli.Context) error {
			sub, err := natsadapter.NewSubscriber(c.String("nats-url"), c.String("prefix"))
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = sub.SubscribeRouteEvents(ctx, c.String("outcome"), func(_ context.Context, e *domain.RouteEvent) error {
				_, err := fmt.Fprintln(c.App.Writer, formatEvent(e))
				return err
			})
			if err != nil {
				return err
			}

			<-ctx.Done()
			return nil
		},
	}
}

func formatEvent(e *domain.RouteEvent) string {
	line := fmt.Sprintf("%s %s %-15s waypoints=%d duration=%.0fms",
		e.Time.Format("15:04:05"), e.RequestID, e.Outcome, e.Waypoints, e.Duration)
	if e.Outcome == domain.OutcomeSuccess {
		return line + fmt.Sprintf(" alternatives=%d best=%.0fm", e.Alternatives, e.BestDistance)
	}
	return line + fmt.Sprintf(" status=%s message=%q", e.Status, e.Message)
}
