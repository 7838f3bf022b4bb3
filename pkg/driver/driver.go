// Package driver defines the UI automation capability the scraping engine
// consumes. Implementations talk to a device (webdriver) or simulate one
// (drivertest).
package driver

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no element matches a locator.
	ErrNotFound = errors.New("element not found")
	// ErrStale is returned when a handle no longer refers to a rendered element.
	ErrStale = errors.New("stale element reference")
	// ErrTimeout is returned when an interaction exceeds its deadline.
	ErrTimeout = errors.New("interaction timed out")
)

// Handle is an opaque element reference issued by a Driver. It is only
// meaningful to the Driver that issued it and may become stale at any time.
type Handle string

// Rect is an element bounding box in screen pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) Bottom() int { return r.Y + r.Height }

// Center returns the point gestures are anchored to.
func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Driver is the UI Automation Driver capability. Every call blocks until the
// device answers or the implementation's interaction timeout expires.
type Driver interface {
	FindAll(ctx context.Context, loc Locator) ([]Handle, error)
	Find(ctx context.Context, loc Locator) (Handle, error)
	FindAllIn(ctx context.Context, parent Handle, loc Locator) ([]Handle, error)
	FindIn(ctx context.Context, parent Handle, loc Locator) (Handle, error)

	Text(ctx context.Context, h Handle) (string, error)
	Attribute(ctx context.Context, h Handle, name string) (string, error)
	Rect(ctx context.Context, h Handle) (Rect, error)

	Click(ctx context.Context, h Handle) error
	// ScrollBetween drags from the center of one element to the center of
	// another over the given duration.
	ScrollBetween(ctx context.Context, from, to Handle, duration time.Duration) error
	Back(ctx context.Context) error
}

// IsTransient reports whether err is one of the driver-level failures that
// only invalidate the current operation.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrStale) || errors.Is(err, ErrTimeout)
}
