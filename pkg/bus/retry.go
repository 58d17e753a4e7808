package bus

import (
	"context"
	"errors"
	"time"
)

var errNoAttempts = errors.New("bus: dial attempts must be > 0")

// Backoff bounds the reconnect delays of a gateway dial.
type Backoff struct {
	Attempts int
	Initial  time.Duration

	// Max caps the delay; zero means 10s.
	Max time.Duration
}

// delay returns the pause after failed attempt n (0-based).
func (b Backoff) delay(n int) time.Duration {
	limit := b.Max
	if limit == 0 {
		limit = 10 * time.Second
	}
	d := b.Initial
	for i := 0; i < n && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}

// dialRetry runs dial until it succeeds, the attempts run out or ctx ends.
// The error of the last attempt is returned.
func dialRetry(ctx context.Context, b Backoff, dial func() error) error {
	if b.Attempts <= 0 {
		return errNoAttempts
	}
	var err error
	for n := range b.Attempts {
		if err = dial(); err == nil {
			return nil
		}
		if n == b.Attempts-1 {
			break
		}
		t := time.NewTimer(b.delay(n))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return err
}
