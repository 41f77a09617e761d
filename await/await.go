// Package await provides bounded polling waits.
//
// Every wait either observes its condition become true or fails with a
// *TimeoutError once its own timeout elapses. Callers decide whether a
// timeout is fatal or means "feature not present".
package await

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultInterval is the poll interval used when a Poller leaves it unset.
const DefaultInterval = 500 * time.Millisecond

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("wait timed out")

// TimeoutError reports a condition that never held within its timeout.
type TimeoutError struct {
	// What describes the awaited condition, e.g. "visible id=loginButton".
	What string
	// After is the timeout that elapsed.
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s", e.After, e.What)
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Condition is polled until it returns true. A non-nil error aborts the
// wait immediately and is returned as is.
type Condition func(ctx context.Context) (bool, error)

// Poller runs waits at a fixed interval.
type Poller struct {
	// Interval between condition checks. Zero means DefaultInterval.
	Interval time.Duration
	// OnDone, when set, is called once per wait with its outcome.
	OnDone func(what string, timedOut bool)
}

// Until polls cond with the default poller.
func Until(ctx context.Context, timeout time.Duration, what string, cond Condition) error {
	return Poller{}.Until(ctx, timeout, what, cond)
}

// Until polls cond until it holds or timeout elapses. The condition is
// always checked at least once, so a zero timeout is a single check.
// Context cancellation aborts the wait with the context's error.
func (p Poller) Until(ctx context.Context, timeout time.Duration, what string, cond Condition) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := time.Now().Add(timeout)

	for {
		ok, err := cond(ctx)
		if err != nil {
			p.done(what, false)
			return err
		}
		if ok {
			p.done(what, false)
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			p.done(what, true)
			return &TimeoutError{What: what, After: timeout}
		}

		timer := time.NewTimer(min(interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			p.done(what, false)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p Poller) done(what string, timedOut bool) {
	if p.OnDone != nil {
		p.OnDone(what, timedOut)
	}
}

// IsTimeout reports whether err is a wait timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
