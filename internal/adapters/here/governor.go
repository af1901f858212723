package here

import (
	"context"
	"time"

	"github.com/samirrijal/hereroute/internal/core/domain"
	"github.com/samirrijal/hereroute/internal/core/ports"
)

const (
	msgTimedOut      = "request timed out"
	msgRequestFailed = "HTTP request failed: %v"
	msgCancelled     = "request cancelled: %v"
)

type fetchResult struct {
	body []byte
	err  error
}

// Dispatch issues one GET for url and races it against deadline and ctx.
// The returned channel receives exactly one Outcome and is then closed.
//
// Whichever of the timer, the transport or ctx settles first decides the
// outcome. On timeout the transport call is left to finish on its own;
// its result lands in a buffered channel nobody reads. A deadline <= 0
// disables the timer.
func Dispatch(ctx context.Context, t ports.Transport, url string, snapshot []domain.Waypoint, deadline time.Duration) <-chan domain.Outcome {
	out := make(chan domain.Outcome, 1)
	settled := make(chan fetchResult, 1)

	go func() {
		body, err := t.Get(ctx, url)
		settled <- fetchResult{body: body, err: err}
	}()

	go func() {
		defer close(out)

		var expired <-chan time.Time
		if deadline > 0 {
			timer := time.NewTimer(deadline)
			defer timer.Stop()
			expired = timer.C
		}

		select {
		case <-expired:
			out <- domain.Failure(domain.LocalFailure(domain.ErrTimeout, msgTimedOut))
		case <-ctx.Done():
			out <- domain.Failure(domain.LocalFailure(ctx.Err(), msgCancelled, ctx.Err()))
		case r := <-settled:
			if r.err != nil {
				out <- domain.Failure(domain.LocalFailure(r.err, msgRequestFailed, r.err))
				return
			}
			out <- Decode(r.body, snapshot)
		}
	}()

	return out
}

// failed returns an already-settled outcome channel.
func failed(err error) <-chan domain.Outcome {
	out := make(chan domain.Outcome, 1)
	out <- domain.Failure(err)
	close(out)
	return out
}
