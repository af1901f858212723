//go:build integration
// +build integration

package valkey_test

import (
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/hereroute/internal/adapters/valkey"
)

var _ fiber.Storage = (*valkey.Storage)(nil)

func TestStorage_RoundTrip(t *testing.T) {
	addr := os.Getenv("VALKEY_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	s, err := valkey.NewStorage(addr, "hereroute:test:"+t.Name()+":")
	if err != nil {
		t.Skipf("valkey unavailable: %v", err)
	}
	defer s.Close()
	defer s.Reset()

	if got, err := s.Get("missing"); err != nil || got != nil {
		t.Fatalf("expected nil miss, got %q, %v", got, err)
	}

	if err := s.Set("counter", []byte{0x01, 0x02}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Get("counter")
	if err != nil || string(got) != "\x01\x02" {
		t.Fatalf("expected stored bytes, got %q, %v", got, err)
	}

	if err := s.Set("short", []byte("x"), 50*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if got, _ := s.Get("short"); got != nil {
		t.Errorf("expected expiry, got %q", got)
	}

	if err := s.Delete("counter"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.Get("counter"); got != nil {
		t.Errorf("expected deleted key, got %q", got)
	}
}
