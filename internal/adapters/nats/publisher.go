package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/hereroute/internal/core/domain"
)

const streamName = "ROUTING_EVENTS"

// Subject returns the subject routing events of the given outcome kind are
// published on. An empty outcome gives the wildcard for all kinds.
func Subject(prefix, outcome string) string {
	if outcome == "" {
		return prefix + ".outcome.>"
	}
	return prefix + ".outcome." + outcome
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	prefix string
}

// NewPublisher connects to NATS and makes sure the routing event stream exists.
func NewPublisher(url, prefix string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{Subject(prefix, "")},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, update it
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js, prefix: prefix}, nil
}

const publishTimeout = 5 * time.Second

// PublishRouteEvent publishes event on its outcome subject.
func (p *Publisher) PublishRouteEvent(ctx context.Context, event *domain.RouteEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	_, err = p.js.Publish(Subject(p.prefix, event.Outcome), data, nats.Context(ctx), nats.MsgId(event.RequestID))
	return err
}

// Conn exposes the underlying connection, e.g. for health checks.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("hereroute"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
