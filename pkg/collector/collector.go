// Package collector enumerates the rows of a virtualized list by scrolling it
// and remembering what has already been seen. A row's identity is its content
// together with its vertical position, so identical rows at different places
// are kept apart while a row seen twice at the same place is not.
package collector

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/diaryscope/diaryscope/internal/utils"
	"github.com/diaryscope/diaryscope/pkg/driver"
)

const (
	// MaxIterations bounds every scrolling loop.
	MaxIterations = 64
	// RowGesture is the scroll duration per visible row.
	RowGesture = 500 * time.Millisecond
)

// Direction selects which end of the list CollectToExtreme scrolls to.
type Direction int

const (
	Top Direction = iota
	Bottom
)

func (d Direction) String() string {
	if d == Bottom {
		return "bottom"
	}
	return "top"
}

// Row is one recognized list row.
type Row[T comparable] struct {
	Handle driver.Handle
	Rect   driver.Rect
	Value  T
}

type identity[T comparable] struct {
	value T
	y     int
}

func (r Row[T]) id() identity[T] { return identity[T]{r.Value, r.Rect.Y} }

// Lister returns the currently rendered rows it recognizes, in screen order.
type Lister[T comparable] interface {
	List(ctx context.Context) ([]Row[T], error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc[T comparable] func(ctx context.Context) ([]Row[T], error)

func (f ListerFunc[T]) List(ctx context.Context) ([]Row[T], error) { return f(ctx) }

// Collector scrolls a list through a driver.
type Collector[T comparable] struct {
	Driver  driver.Driver
	Lister  Lister[T]
	Overlay Overlay
	// Terminal, when set, marks the end of the list; once it is fully
	// visible Walk and Seek stop scrolling.
	Terminal *driver.Locator
	// MaxIterations overrides the package default when positive.
	MaxIterations int
}

func New[T comparable](d driver.Driver, l Lister[T]) *Collector[T] {
	return &Collector[T]{Driver: d, Lister: l, Overlay: Overlay{Driver: d}}
}

func (c *Collector[T]) limit() int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return MaxIterations
}

// Visible returns the listed rows the overlay does not cover at all.
func (c *Collector[T]) Visible(ctx context.Context) ([]Row[T], error) {
	rows, err := c.Lister.List(ctx)
	if err != nil {
		return nil, err
	}
	top, ok, err := c.Overlay.Top(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return rows, nil
	}
	visible := make([]Row[T], 0, len(rows))
	for _, r := range rows {
		if ObscuredLevel(r.Rect, top) == 0 {
			visible = append(visible, r)
		}
	}
	return visible, nil
}

// Extreme is the outcome of CollectToExtreme.
type Extreme[T comparable] struct {
	// Rows are the distinct rows seen, in discovery order.
	Rows       []Row[T]
	Iterations int
	// Complete is false when the iteration cap ran out before an iteration
	// found nothing new.
	Complete bool
}

// CollectToExtreme scrolls toward one end of the list until an iteration
// reveals no unseen row.
func (c *Collector[T]) CollectToExtreme(ctx context.Context, dir Direction) (Extreme[T], error) {
	var out Extreme[T]
	seen := make(map[identity[T]]struct{})
	for out.Iterations < c.limit() {
		out.Iterations++
		rows, err := c.Visible(ctx)
		if err != nil {
			if driver.IsTransient(err) {
				utils.Log.Debugf("Listing rows: %v", err)
				continue
			}
			return out, err
		}

		fresh := 0
		for _, r := range rows {
			if _, ok := seen[r.id()]; ok {
				continue
			}
			seen[r.id()] = struct{}{}
			out.Rows = append(out.Rows, r)
			fresh++
		}
		if fresh == 0 {
			out.Complete = true
			return out, nil
		}

		from, to := rows[0], rows[len(rows)-1]
		if dir == Bottom {
			from, to = to, from
		}
		if err := c.Driver.ScrollBetween(ctx, from.Handle, to.Handle, RowGesture*time.Duration(len(rows))); err != nil {
			if !driver.IsTransient(err) {
				return out, err
			}
			utils.Log.Debugf("Scrolling to %s: %v", dir, err)
		}
	}
	utils.Log.Warnf("Stopped scrolling to the %s after %d iterations", dir, out.Iterations)
	return out, nil
}

// terminalVisible reports whether the end-of-list marker is fully visible.
func (c *Collector[T]) terminalVisible(ctx context.Context) (bool, error) {
	if c.Terminal == nil {
		return false, nil
	}
	h, ok, err := driver.FindOptional(ctx, c.Driver, *c.Terminal)
	if err != nil || !ok {
		return false, err
	}
	level, err := c.Overlay.Obscured(ctx, h)
	if err != nil {
		if driver.IsTransient(err) {
			return false, nil
		}
		return false, err
	}
	return level == 0, nil
}

// advance drags the last visible row onto the first one and returns the
// last row's new vertical position.
func (c *Collector[T]) advance(ctx context.Context, rows []Row[T]) (int, error) {
	first, last := rows[0], rows[len(rows)-1]
	err := c.Driver.ScrollBetween(ctx, last.Handle, first.Handle, RowGesture*time.Duration(len(rows)))
	if err != nil {
		return 0, err
	}
	r, err := c.Driver.Rect(ctx, last.Handle)
	if err != nil {
		if driver.IsTransient(err) {
			return first.Rect.Y, nil
		}
		return 0, err
	}
	return r.Y, nil
}

// Walk hands every row below a moving scan line to fn exactly once, top to
// bottom. It reports whether the terminal marker was reached before the
// iteration cap ran out.
func (c *Collector[T]) Walk(ctx context.Context, fn func(Row[T]) error) (bool, error) {
	scan := math.MinInt
	for i := 0; i < c.limit(); i++ {
		rows, err := c.Visible(ctx)
		if err != nil {
			if !driver.IsTransient(err) {
				return false, err
			}
			utils.Log.Debugf("Listing rows: %v", err)
			rows = nil
		}
		for _, r := range rows {
			if r.Rect.Y <= scan {
				continue
			}
			if err := fn(r); err != nil {
				return false, err
			}
		}
		if len(rows) > 0 {
			scan = rows[len(rows)-1].Rect.Y
		}

		done, err := c.terminalVisible(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
		if len(rows) == 0 {
			continue
		}

		next, err := c.advance(ctx, rows)
		if err != nil {
			if !driver.IsTransient(err) {
				return false, err
			}
			utils.Log.Debugf("Scrolling down: %v", err)
			continue
		}
		scan = next
	}
	utils.Log.Warnf("Stopped walking the list after %d iterations", c.limit())
	return false, nil
}

// ErrNoMatch is returned by Seek when the list ends without a matching row.
var ErrNoMatch = errors.New("no matching row")

// Seek scrolls down until a visible row satisfies match, skipping the first
// skip distinct matches.
func (c *Collector[T]) Seek(ctx context.Context, match func(T) bool, skip int) (Row[T], error) {
	seen := make(map[identity[T]]struct{})
	scan := math.MinInt
	for i := 0; i < c.limit(); i++ {
		rows, err := c.Visible(ctx)
		if err != nil {
			if !driver.IsTransient(err) {
				return Row[T]{}, err
			}
			rows = nil
		}
		for _, r := range rows {
			if r.Rect.Y <= scan || !match(r.Value) {
				continue
			}
			if _, ok := seen[r.id()]; ok {
				continue
			}
			seen[r.id()] = struct{}{}
			if skip == 0 {
				return r, nil
			}
			skip--
		}
		if len(rows) > 0 {
			scan = rows[len(rows)-1].Rect.Y
		}

		done, err := c.terminalVisible(ctx)
		if err != nil {
			return Row[T]{}, err
		}
		if done {
			return Row[T]{}, ErrNoMatch
		}
		if len(rows) == 0 {
			continue
		}
		next, err := c.advance(ctx, rows)
		if err != nil {
			if !driver.IsTransient(err) {
				return Row[T]{}, err
			}
			continue
		}
		scan = next
	}
	return Row[T]{}, ErrNoMatch
}
