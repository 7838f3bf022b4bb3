package collector

import (
	"context"
	"fmt"

	"github.com/diaryscope/diaryscope/pkg/app"
	"github.com/diaryscope/diaryscope/pkg/driver"
)

// ObscuredLevel is the percentage of row covered by an overlay whose top edge
// is at overlayTop. A row ending exactly on the edge reports 0.001 so that it
// never counts as fully visible.
func ObscuredLevel(row driver.Rect, overlayTop int) float64 {
	bottom := row.Bottom()
	switch {
	case bottom < overlayTop:
		return 0
	case bottom == overlayTop:
		return 0.001
	case row.Y >= overlayTop || row.Height <= 0:
		return 100
	}
	return float64(bottom-overlayTop) / float64(row.Height) * 100
}

// DefaultOverlays are the elements that cover the bottom of the screen: the
// application's tab ribbon, or the system navigation bar where the ribbon is
// not shown.
var DefaultOverlays = []driver.Locator{
	driver.ID(app.BottomContainer),
	driver.ID(app.NavigationBar),
}

// Overlay locates the element covering the bottom of the screen.
type Overlay struct {
	Driver driver.Driver
	// Locators are tried in order; the first match is the overlay.
	Locators []driver.Locator
}

// Top returns the overlay's top edge. ok is false when no overlay is shown.
func (o Overlay) Top(ctx context.Context) (top int, ok bool, err error) {
	locs := o.Locators
	if locs == nil {
		locs = DefaultOverlays
	}
	for _, loc := range locs {
		h, found, err := driver.FindOptional(ctx, o.Driver, loc)
		if err != nil {
			return 0, false, err
		}
		if !found {
			continue
		}
		r, err := o.Driver.Rect(ctx, h)
		if err != nil {
			return 0, false, fmt.Errorf("overlay %s: %w", loc, err)
		}
		return r.Y, true, nil
	}
	return 0, false, nil
}

// Obscured is ObscuredLevel for an on-screen element against the current
// overlay. Without an overlay nothing is obscured.
func (o Overlay) Obscured(ctx context.Context, h driver.Handle) (float64, error) {
	r, err := o.Driver.Rect(ctx, h)
	if err != nil {
		return 0, err
	}
	top, ok, err := o.Top(ctx)
	if err != nil || !ok {
		return 0, err
	}
	return ObscuredLevel(r, top), nil
}
