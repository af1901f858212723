// Package here talks to the HERE Routing API 7.2 calculateroute endpoint:
// it builds request URLs from waypoints, races a single GET against a
// deadline and decodes the response into route alternatives.
//
// Nothing in this package logs; callers decide what to do with outcomes.
package here

import (
	"maps"
	"time"
)

const (
	// DefaultServiceURL is the HERE customer integration testing endpoint.
	DefaultServiceURL = "https://route.cit.api.here.com/routing/7.2/calculateroute.json"

	// DefaultTimeout bounds a request when Config.Timeout is unset.
	DefaultTimeout = 30 * time.Second
)

// Config is fixed at construction and never mutated afterwards, so one
// Router can serve concurrent requests.
type Config struct {
	ServiceURL string
	Timeout    time.Duration
	// URLParameters are merged into every request after the built-in
	// defaults and before credentials.
	URLParameters map[string]string
}

func (c Config) withDefaults() Config {
	if c.ServiceURL == "" {
		c.ServiceURL = DefaultServiceURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	c.URLParameters = maps.Clone(c.URLParameters)
	return c
}

// Credentials identify the application to HERE. They only ever end up in
// request query strings.
type Credentials struct {
	AppID   string
	AppCode string
}

// String keeps credentials out of logs and fmt output.
func (Credentials) String() string { return "here.Credentials{REDACTED}" }

// GoString is the %#v counterpart of String.
func (c Credentials) GoString() string { return c.String() }
