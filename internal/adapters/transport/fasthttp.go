// Package transport provides the HTTP GET primitive used by the routing
// client.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

const defaultUserAgent = "hereroute/1.0"

// Options tune the underlying fasthttp client.
type Options struct {
	MaxConnsPerHost int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	UserAgent       string

	// Dial overrides how connections are made. Used by tests.
	Dial fasthttp.DialFunc
}

// Client implements ports.Transport with a pooled fasthttp.Client.
type Client struct {
	hc        *fasthttp.Client
	userAgent string
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.MaxConnsPerHost <= 0 {
		opts.MaxConnsPerHost = 64
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &Client{
		hc: &fasthttp.Client{
			Name:                   opts.UserAgent,
			MaxConnsPerHost:        opts.MaxConnsPerHost,
			ReadTimeout:            opts.ReadTimeout,
			WriteTimeout:           opts.WriteTimeout,
			MaxIdleConnDuration:    90 * time.Second,
			DisablePathNormalizing: true,
			Dial:                   opts.Dial,
		},
		userAgent: opts.UserAgent,
	}
}

// Get performs a GET and returns the body whatever the status code.
// An error means no usable response was received. fasthttp cannot abort an
// in-flight request, so ctx only contributes its deadline.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	req.Header.SetUserAgent(c.userAgent)

	var err error
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		err = c.hc.DoDeadline(req, resp, deadline)
	} else {
		err = c.hc.Do(req, resp)
	}
	if err != nil {
		// The ctx deadline ran out inside fasthttp: report it as ctx's own
		// error so callers classify it the same as the ctx firing first.
		if hasDeadline && errors.Is(err, fasthttp.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return nil, err
	}

	if len(resp.Body()) == 0 && resp.StatusCode() >= fasthttp.StatusBadRequest {
		return nil, fmt.Errorf("empty response with status %d", resp.StatusCode())
	}
	// resp is returned to the pool, so the body has to be copied out.
	return append([]byte(nil), resp.Body()...), nil
}
