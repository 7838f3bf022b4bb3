// Package diary reads one diary date off the screen: the list rows folded
// into meal context, the calorie tally and the food detail of every item.
package diary

import (
	"context"
	"errors"
	"fmt"

	"github.com/diaryscope/diaryscope/internal/utils"
	"github.com/diaryscope/diaryscope/pkg/app"
	"github.com/diaryscope/diaryscope/pkg/collector"
	"github.com/diaryscope/diaryscope/pkg/driver"
	"github.com/diaryscope/diaryscope/pkg/screen"
)

// Reader reads the diary date currently on screen.
type Reader struct {
	View   *screen.View
	List   *collector.Collector[Row]
	Macros *MacroReader
}

func NewReader(v *screen.View) *Reader {
	list := collector.New[Row](v.Driver, RowLister{Driver: v.Driver})
	end := driver.ID(app.CompleteDiary)
	list.Terminal = &end
	return &Reader{View: v, List: list, Macros: NewMacroReader(v.Driver)}
}

// ReadDay reads the diary on screen and leaves it scrolled to the top.
func (r *Reader) ReadDay(ctx context.Context) (Day, error) {
	var day Day
	if err := r.toTop(ctx); err != nil {
		return day, err
	}
	date, err := r.View.ReadDiaryDate(ctx)
	if err != nil {
		return day, err
	}
	day.Date = date
	if day.Tally, err = ReadTally(ctx, r.View); err != nil {
		return day, err
	}

	fold := NewFoldState()
	done, err := r.List.Walk(ctx, func(row collector.Row[Row]) error {
		return fold.Apply(row.Value)
	})
	if err != nil {
		return day, fmt.Errorf("reading %s: %w", date, err)
	}
	if !done {
		utils.Log.Warnf("End of the %s diary was not seen, using the %d rows read", date, len(fold.Diary))
	}
	day.Diary = fold.Diary

	if day.Macros, err = r.readMacros(ctx, fold.Queue); err != nil {
		return day, fmt.Errorf("reading %s macros: %w", date, err)
	}
	return day, r.toTop(ctx)
}

func (r *Reader) toTop(ctx context.Context) error {
	out, err := r.List.CollectToExtreme(ctx, collector.Top)
	if err != nil {
		return fmt.Errorf("scrolling diary to the top: %w", err)
	}
	if !out.Complete {
		utils.Log.Warnf("Diary may not be at the top after %d iterations", out.Iterations)
	}
	return nil
}

// readMacros opens every queued row in turn. Identical rows are told apart
// by how many of them were opened before.
func (r *Reader) readMacros(ctx context.Context, queue []Row) ([]MacroRecord, error) {
	macros := make([]MacroRecord, 0, len(queue))
	opened := make(map[Row]int, len(queue))
	for _, want := range queue {
		if err := r.toTop(ctx); err != nil {
			return nil, err
		}
		row, err := r.List.Seek(ctx, func(v Row) bool { return v == want }, opened[want])
		if errors.Is(err, collector.ErrNoMatch) {
			return nil, fmt.Errorf("%q not found: %w", want.Name, ErrMacroMismatch)
		}
		if err != nil {
			return nil, err
		}
		opened[want]++

		if err := r.View.Driver.Click(ctx, row.Handle); err != nil {
			return nil, fmt.Errorf("opening %q: %w", want.Name, err)
		}
		if err := driver.Pause(ctx, r.View.Settle); err != nil {
			return nil, err
		}
		rec, readErr := r.Macros.Read(ctx)
		if err := r.View.Driver.Back(ctx); err != nil {
			return nil, fmt.Errorf("closing %q: %w", want.Name, err)
		}
		if readErr != nil {
			return nil, fmt.Errorf("%q: %w", want.Name, readErr)
		}
		if err := driver.Pause(ctx, r.View.Settle); err != nil {
			return nil, err
		}
		utils.Log.Debugf("Read macros of %q", want.Name)
		macros = append(macros, rec)
	}
	return macros, nil
}
