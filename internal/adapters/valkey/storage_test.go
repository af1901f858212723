package valkey

import (
	"testing"
	"time"
)

func TestStorage_KeyPrefix(t *testing.T) {
	s := &Storage{prefix: "hereroute:limiter:"}
	if got := s.key("10.0.0.1"); got != "hereroute:limiter:10.0.0.1" {
		t.Errorf("unexpected key %q", got)
	}
}

// Empty keys and values never reach the server.
func TestStorage_EmptyInputs(t *testing.T) {
	s := &Storage{prefix: "p:"}

	if b, err := s.Get(""); b != nil || err != nil {
		t.Errorf("Get(\"\") = %q, %v", b, err)
	}
	if err := s.Set("", []byte("x"), time.Minute); err != nil {
		t.Errorf("Set with empty key: %v", err)
	}
	if err := s.Set("k", nil, time.Minute); err != nil {
		t.Errorf("Set with empty value: %v", err)
	}
	if err := s.Delete(""); err != nil {
		t.Errorf("Delete(\"\"): %v", err)
	}
}
