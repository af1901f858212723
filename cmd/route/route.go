package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/samirrijal/hereroute/internal/adapters/here"
	"github.com/samirrijal/hereroute/internal/adapters/transport"
	"github.com/samirrijal/hereroute/internal/core/domain"
	"github.com/samirrijal/hereroute/internal/core/usecases"
	"github.com/samirrijal/hereroute/internal/pkg/config"
	"github.com/samirrijal/hereroute/internal/pkg/geospatial"
)

const routeDescription = `Waypoints are given with -w, in order:

   hereroute route -w 43.263,-2.935 -w -33.86,151.2

Bare LAT,LNG arguments are accepted after --.`

func routeCommand() *cli.Command {
	return &cli.Command{
		Name:        "route",
		Usage:       "Route through waypoints, in order",
		ArgsUsage:   "[-- LAT,LNG...]",
		Description: routeDescription,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "waypoint",
				Aliases: []string{"w"},
				Usage:   "waypoint as LAT,LNG, repeatable",
			},
			&cli.StringSliceFlag{
				Name:    "param",
				Aliases: []string{"p"},
				Usage:   "extra routing parameter as key=value, repeatable",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "override here.timeout_ms",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print the request URL with credentials masked and exit",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print alternatives as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			waypoints, err := parseWaypoints(append(c.StringSlice("waypoint"), c.Args().Slice()...))
			if err != nil {
				return err
			}
			params, err := parseParams(c.StringSlice("param"))
			if err != nil {
				return err
			}

			cfg, err := config.Load("hereroute-cli")
			if err != nil {
				return err
			}
			hcfg := here.Config{
				ServiceURL:    cfg.HERE.ServiceURL,
				Timeout:       cfg.HERE.Timeout(),
				URLParameters: cfg.HERE.Parameters(),
			}
			if d := c.Duration("timeout"); d > 0 {
				hcfg.Timeout = d
			}

			tr := transport.New(transport.Options{
				MaxConnsPerHost: cfg.Transport.MaxConnsPerHost,
				UserAgent:       cfg.Transport.UserAgent,
			})
			router := here.New(hcfg, here.Credentials{AppID: cfg.HERE.AppID, AppCode: cfg.HERE.AppCode}, tr)

			if c.Bool("dry-run") {
				u, err := router.BuildURL(waypoints, params)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.App.Writer, redactURL(u))
				return err
			}

			start := time.Now()
			res, err := usecases.NewRoutingService(router, nil).Route(c.Context, waypoints, params)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printAlternatives(c.App.Writer, waypoints, res.Alternatives, time.Since(start))
			return nil
		},
	}
}

// parseWaypoints reads "lat,lng" arguments.
func parseWaypoints(args []string) ([]domain.Waypoint, error) {
	if len(args) == 0 {
		return nil, errors.New("at least one waypoint is required")
	}
	wps := make([]domain.Waypoint, len(args))
	for i, arg := range args {
		latStr, lngStr, ok := strings.Cut(arg, ",")
		if !ok {
			return nil, fmt.Errorf("waypoint %d: want LAT,LNG, got %q", i, arg)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
		wps[i] = domain.Waypoint{Location: domain.GeoPoint{Lat: lat, Lon: lng}}
	}
	return wps, nil
}

func parseParams(raw []string) (map[string]string, error) {
	params := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("param %q: want key=value", kv)
		}
		params[k] = v
	}
	return params, nil
}

// redactURL masks credential values so the URL can be printed.
func redactURL(raw string) string {
	base, query, ok := strings.Cut(raw, "?")
	if !ok {
		return raw
	}
	parts := strings.Split(query, "&")
	for i, p := range parts {
		k, _, _ := strings.Cut(p, "=")
		if k == "app_id" || k == "app_code" {
			parts[i] = k + "=" + url.QueryEscape("***")
		}
	}
	return base + "?" + strings.Join(parts, "&")
}

func printAlternatives(w io.Writer, wps []domain.Waypoint, alts []domain.RouteAlternative, took time.Duration) {
	fmt.Fprintf(w, "%d alternative(s) in %s, direct distance %.0f m\n",
		len(alts), took.Round(time.Millisecond), geospatial.DirectDistance(wps))
	for i, alt := range alts {
		fmt.Fprintf(w, "\n#%d  %.0f m  %s\n", i+1, alt.Summary.TotalDistance,
			(time.Duration(alt.Summary.TotalTime) * time.Second).String())
		for j, in := range alt.Instructions {
			fmt.Fprintf(w, "  %2d. %s (%.0f m)\n", j+1, in.Text, in.Distance)
		}
	}
}
