package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/hereroute/internal/core/domain"
)

// Subscriber consumes routing events from JetStream.
type Subscriber struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	prefix string
	subs   []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url, prefix string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js, prefix: prefix}, nil
}

// SubscribeRouteEvents delivers new events of the given outcome kind ("" for
// all) to handler. Messages the handler rejects are redelivered up to three
// times; undecodable ones are terminated.
func (s *Subscriber) SubscribeRouteEvents(ctx context.Context, outcome string, handler func(ctx context.Context, event *domain.RouteEvent) error) error {
	sub, err := s.js.Subscribe(Subject(s.prefix, outcome), func(msg *nats.Msg) {
		var event domain.RouteEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
