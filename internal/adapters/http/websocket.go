package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/hereroute/internal/adapters/nats"
	"github.com/samirrijal/hereroute/internal/core/domain"
	"github.com/samirrijal/hereroute/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to routing events.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Outcome string `json:"outcome"` // outcome kind filter, "" = all
}

var knownOutcomes = map[string]bool{
	"":                           true,
	domain.OutcomeSuccess:        true,
	domain.OutcomeTimeout:        true,
	domain.OutcomeTransportError: true,
	domain.OutcomeCancelled:      true,
	domain.OutcomeRemoteError:    true,
	domain.OutcomeDecodeError:    true,
	domain.OutcomeInvalidRequest: true,
}

// WebSocketHandler relays routing outcome events from NATS to connected
// clients. Every client starts subscribed to all outcomes and may narrow
// or widen that with {"action":"subscribe","outcome":"timeout"}.
func WebSocketHandler(nc *nats.Conn, prefix string) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		if nc == nil {
			_ = writeJSON(map[string]string{"error": "event stream unavailable"})
			return
		}

		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		subs := make(map[string]*nats.Subscription) // subject -> subscription
		defer func() {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
		}()

		all := natsadapter.Subject(prefix, "")
		sub, err := nc.Subscribe(all, relay)
		if err != nil {
			slog.Warn("ws default subscribe", "error", err)
			return
		}
		subs[all] = sub

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			if !knownOutcomes[m.Outcome] {
				_ = writeJSON(map[string]string{"error": "unknown outcome: " + m.Outcome})
				continue
			}
			subject := natsadapter.Subject(prefix, m.Outcome)

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
