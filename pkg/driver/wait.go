package driver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PollInterval is how often WaitFor retries a lookup.
var PollInterval = 250 * time.Millisecond

// WaitFor polls Find until loc resolves to an element with a non-empty
// bounding box, or until timeout expires (ErrTimeout). A zero timeout makes a
// single attempt.
func WaitFor(ctx context.Context, d Driver, loc Locator, timeout time.Duration) (Handle, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		h, err := d.Find(ctx, loc)
		if err == nil {
			r, rerr := d.Rect(ctx, h)
			if rerr == nil && r.Width > 0 && r.Height > 0 {
				return h, nil
			}
			err = rerr
			if err == nil {
				err = fmt.Errorf("%s has an empty bounding box: %w", loc, ErrNotFound)
			}
		}
		if err != nil && !IsTransient(err) {
			return "", err
		}
		lastErr = err

		if !time.Now().Add(PollInterval).Before(deadline) {
			break
		}
		if err := Pause(ctx, PollInterval); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("waiting for %s: %w (last error: %v)", loc, ErrTimeout, lastErr)
}

// Pause sleeps for d unless ctx is cancelled first.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FindOptional is Find that reports absence as a false ok instead of an error.
func FindOptional(ctx context.Context, d Driver, loc Locator) (Handle, bool, error) {
	h, err := d.Find(ctx, loc)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return h, true, nil
}
