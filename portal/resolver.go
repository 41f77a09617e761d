package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pithecene-io/agharvest/await"
)

// Resolver answers element queries against a Driver and composes them with
// bounded waits.
type Resolver struct {
	driver Driver
	poller await.Poller
}

// NewResolver binds a resolver to d. A zero poller uses the default
// interval.
func NewResolver(d Driver, poller await.Poller) *Resolver {
	return &Resolver{driver: d, poller: poller}
}

// Driver returns the bound driver.
func (r *Resolver) Driver() Driver { return r.driver }

// Find returns the first match. Absence is reported through ok, never as
// an error.
func (r *Resolver) Find(ctx context.Context, loc Locator) (Handle, bool, error) {
	hs, err := r.driver.FindAll(ctx, loc)
	if err != nil {
		return "", false, fmt.Errorf("find %s: %w", loc, err)
	}
	if len(hs) == 0 {
		return "", false, nil
	}
	return hs[0], true, nil
}

// FindAll returns every match, possibly none.
func (r *Resolver) FindAll(ctx context.Context, loc Locator) ([]Handle, error) {
	hs, err := r.driver.FindAll(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", loc, err)
	}
	return hs, nil
}

// FindAfterWait waits for loc to be present.
func (r *Resolver) FindAfterWait(ctx context.Context, loc Locator, timeout time.Duration) (Handle, error) {
	return r.waitFor(ctx, loc, timeout, "presence of "+loc.String(), nil)
}

// WaitVisible waits for loc to be present and displayed.
func (r *Resolver) WaitVisible(ctx context.Context, loc Locator, timeout time.Duration) (Handle, error) {
	return r.waitFor(ctx, loc, timeout, "visibility of "+loc.String(), r.driver.Displayed)
}

// WaitClickable waits for loc to be displayed and enabled.
func (r *Resolver) WaitClickable(ctx context.Context, loc Locator, timeout time.Duration) (Handle, error) {
	return r.waitFor(ctx, loc, timeout, "clickability of "+loc.String(), func(ctx context.Context, h Handle) (bool, error) {
		shown, err := r.driver.Displayed(ctx, h)
		if err != nil || !shown {
			return false, err
		}
		return r.driver.Enabled(ctx, h)
	})
}

// WaitAllPresent waits until every locator matches at least once.
func (r *Resolver) WaitAllPresent(ctx context.Context, timeout time.Duration, locs ...Locator) ([]Handle, error) {
	found := make([]Handle, len(locs))
	keys := make([]string, len(locs))
	for i, loc := range locs {
		keys[i] = loc.String()
	}
	err := r.poller.Until(ctx, timeout, "presence of "+strings.Join(keys, ", "), func(ctx context.Context) (bool, error) {
		for i, loc := range locs {
			h, ok, err := r.Find(ctx, loc)
			if err != nil || !ok {
				return false, err
			}
			found[i] = h
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// WaitInvisible waits until loc is absent or hidden.
func (r *Resolver) WaitInvisible(ctx context.Context, loc Locator, timeout time.Duration) error {
	return r.poller.Until(ctx, timeout, "invisibility of "+loc.String(), func(ctx context.Context) (bool, error) {
		hs, err := r.FindAll(ctx, loc)
		if err != nil {
			return false, err
		}
		for _, h := range hs {
			shown, err := r.driver.Displayed(ctx, h)
			if err != nil {
				return false, err
			}
			if shown {
				return false, nil
			}
		}
		return true, nil
	})
}

// WaitAlert waits for a native dialog and returns its text.
func (r *Resolver) WaitAlert(ctx context.Context, timeout time.Duration) (string, error) {
	var text string
	err := r.poller.Until(ctx, timeout, "alert", func(ctx context.Context) (bool, error) {
		t, open, err := r.driver.Alert(ctx)
		if err != nil || !open {
			return false, err
		}
		text = t
		return true, nil
	})
	return text, err
}

func (r *Resolver) waitFor(
	ctx context.Context,
	loc Locator,
	timeout time.Duration,
	what string,
	ready func(context.Context, Handle) (bool, error),
) (Handle, error) {
	var found Handle
	err := r.poller.Until(ctx, timeout, what, func(ctx context.Context) (bool, error) {
		hs, err := r.FindAll(ctx, loc)
		if err != nil {
			return false, err
		}
		for _, h := range hs {
			if ready != nil {
				ok, err := ready(ctx, h)
				if err != nil {
					return false, err
				}
				if !ok {
					continue
				}
			}
			found = h
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return "", err
	}
	return found, nil
}
