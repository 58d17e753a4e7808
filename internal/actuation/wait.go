package actuation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/eol-bench/eol-go/pkg/codec"
)

// Tolerance is the largest difference at which two non-integral numbers
// are still equal.
const Tolerance = 1e-6

// ValuesMatch compares an observed feedback value with the expected one.
// Two numbers must be equal, or within Tolerance when either is
// non-integral. Anything else is compared by its printed form.
func ValuesMatch(observed, expected any) bool {
	a, aok := codec.ToFloat(observed)
	b, bok := codec.ToFloat(expected)
	if aok && bok {
		if isIntegral(a) && isIntegral(b) {
			return a == b
		}
		return math.Abs(a-b) <= Tolerance
	}
	return fmt.Sprint(observed) == fmt.Sprint(expected)
}

func isIntegral(f float64) bool {
	return f == math.Trunc(f)
}

// Feedback locates the signal that confirms a transition.
type Feedback struct {
	Signal    string
	MessageID *uint32
}

// lookup reads the current feedback value from the cache.
func (e *Engine) lookup(fb Feedback) (any, bool) {
	if fb.Signal == "" {
		return nil, false
	}
	if fb.MessageID != nil {
		entry, ok := e.cache.GetLatest(*fb.MessageID, fb.Signal)
		return entry.Value, ok
	}
	_, entry, ok := e.cache.LatestBySignal(fb.Signal)
	return entry.Value, ok
}

// WaitForValue polls the feedback signal until the dwell window elapses.
// It succeeds only if the signal matched expected at some point and kept
// matching until the end of the window. A mismatch after the first match
// fails at once. Without a feedback signal the whole window is spent and
// the wait fails.
func (e *Engine) WaitForValue(ctx context.Context, fb Feedback, expected any, dwell time.Duration) (bool, string) {
	deadline := time.Now().Add(dwell)
	matched := false
	var matchedAt time.Time

	for {
		if v, ok := e.lookup(fb); ok {
			switch {
			case ValuesMatch(v, expected):
				if !matched {
					matched = true
					matchedAt = time.Now()
				}
			case matched:
				e.config.Logger.Debug("feedback changed during dwell",
					"signal", fb.Signal, "value", v,
					"held", time.Since(matchedAt))
				return false, fmt.Sprintf("Value changed during dwell (last=%v)", v)
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err := contextSleep(ctx, min(e.config.PollInterval, remaining)); err != nil {
			return false, fmt.Sprintf("Wait cancelled: %v", err)
		}
	}

	if !matched {
		return false, fmt.Sprintf("Did not observe expected value %v", expected)
	}
	return true, fmt.Sprintf("%s sustained %v", fb.Signal, expected)
}

// contextSleep waits for d or until ctx is done.
func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}
