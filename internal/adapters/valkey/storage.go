package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const defaultTimeout = 500 * time.Millisecond

// Storage implements fiber.Storage on Valkey. It backs the routing rate
// limiter so every API replica draws on the same per-client budget.
type Storage struct {
	client  valkey.Client
	prefix  string
	timeout time.Duration
}

// NewStorage connects to addr. Every key is stored under prefix.
func NewStorage(addr, prefix string) (*Storage, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Storage{client: client, prefix: prefix, timeout: defaultTimeout}, nil
}

func (s *Storage) key(k string) string { return s.prefix + k }

func (s *Storage) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Get returns nil, nil for a missing key.
func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	ctx, cancel := s.ctx()
	defer cancel()

	b, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(key)).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, nil
	}
	return b, err
}

// Set stores val. exp <= 0 keeps it until deleted.
func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()

	set := s.client.B().Set().Key(s.key(key)).Value(valkey.BinaryString(val))
	if exp > 0 {
		return s.client.Do(ctx, set.Px(exp).Build()).Error()
	}
	return s.client.Do(ctx, set.Build()).Error()
}

// Delete removes key.
func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()

	return s.client.Do(ctx, s.client.B().Del().Key(s.key(key)).Build()).Error()
}

// Reset removes every key under the prefix.
func (s *Storage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*s.timeout)
	defer cancel()

	var cursor uint64
	for {
		entry, err := s.client.Do(ctx, s.client.B().Scan().Cursor(cursor).Match(s.prefix+"*").Count(100).Build()).AsScanEntry()
		if err != nil {
			return err
		}
		if len(entry.Elements) > 0 {
			if err := s.client.Do(ctx, s.client.B().Del().Key(entry.Elements...).Build()).Error(); err != nil {
				return err
			}
		}
		if entry.Cursor == 0 {
			return nil
		}
		cursor = entry.Cursor
	}
}

// Close releases the client.
func (s *Storage) Close() error {
	s.client.Close()
	return nil
}
