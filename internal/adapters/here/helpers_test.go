package here_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

func fmtAll(v any) string {
	return fmt.Sprintf("%v %+v %#v %s", v, v, v, v)
}

// fakeTransport answers Get after delay with body or err and records the
// requested URLs.
type fakeTransport struct {
	delay time.Duration
	body  []byte
	err   error

	calls   atomic.Int32
	lastURL atomic.Value
	done    chan struct{}
}

func newFakeTransport(delay time.Duration, body string, err error) *fakeTransport {
	return &fakeTransport{delay: delay, body: []byte(body), err: err, done: make(chan struct{}, 16)}
}

func (f *fakeTransport) Get(ctx context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	f.lastURL.Store(url)
	defer func() { f.done <- struct{}{} }()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.body, f.err
}

func (f *fakeTransport) URL() string {
	u, _ := f.lastURL.Load().(string)
	return u
}
