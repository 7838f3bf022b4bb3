// Package calendar drives the application's date picker to an arbitrary date.
//
// Navigation walks picker states in order: the picker is opened from the
// diary date bar, the year is chosen from the year view when it differs, the
// month is stepped with the previous/next arrows, the day cell is clicked and
// the selection is confirmed. Every failure is a *NavigationError.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diaryscope/diaryscope/internal/utils"
	"github.com/diaryscope/diaryscope/pkg/app"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/driver"
	"github.com/diaryscope/diaryscope/pkg/screen"
)

var (
	ErrNavigationFailed   = errors.New("calendar navigation failed")
	ErrWrongView          = errors.New("not on the diary view")
	ErrYearNotFound       = errors.New("year not found")
	ErrMonthNotFound      = errors.New("month not found")
	ErrDaySelectionFailed = errors.New("day selection failed")
)

const (
	// MaxYearScrolls bounds the year view search.
	MaxYearScrolls = 10
	// YearScrollDuration is the length of one year view gesture.
	YearScrollDuration = 5 * time.Second
)

// Step names a navigation state, reported in errors.
type Step string

const (
	StepOpenPicker Step = "open picker"
	StepYear       Step = "select year"
	StepMonth      Step = "select month"
	StepDay        Step = "select day"
	StepConfirm    Step = "confirm"
)

// NavigationError reports the step navigation stopped at. It matches both
// ErrNavigationFailed and its cause with errors.Is.
type NavigationError struct {
	Step   Step
	Target datekey.Key
	Err    error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("calendar navigation to %s failed at %s: %v", e.Target, e.Step, e.Err)
}

func (e *NavigationError) Unwrap() []error {
	return []error{ErrNavigationFailed, e.Err}
}

// Navigator moves the diary to a target date through the date picker.
type Navigator struct {
	View *screen.View
	// Settle is paused after each month step.
	Settle time.Duration
}

func New(v *screen.View) *Navigator {
	return &Navigator{View: v, Settle: v.Settle}
}

// Navigate leaves the diary showing target. When the picker already has
// target selected it is cancelled without changes.
func (n *Navigator) Navigate(ctx context.Context, target datekey.Key) error {
	fail := func(step Step, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NavigationError{Step: step, Target: target, Err: err}
	}

	ok, err := n.View.IsDiary(ctx)
	if err != nil {
		return fail(StepOpenPicker, err)
	}
	if !ok {
		return fail(StepOpenPicker, ErrWrongView)
	}

	utils.Log.Debugf("Navigating calendar to %s", target)
	if err := n.click(ctx, driver.ID(app.DatePicker)); err != nil {
		return fail(StepOpenPicker, err)
	}
	if _, err := driver.WaitFor(ctx, n.driver(), driver.ID(app.PickerSelectionFrame), n.View.Timeout); err != nil {
		return fail(StepOpenPicker, err)
	}
	selected, err := n.selectedDate(ctx)
	if err != nil {
		return fail(StepOpenPicker, err)
	}
	if selected == target {
		utils.Log.Debugf("Calendar already on %s", target)
		if err := n.click(ctx, driver.ID(app.PickerCancel)); err != nil {
			return fail(StepConfirm, err)
		}
		return nil
	}

	year, month, err := n.pending(ctx)
	if err != nil {
		return fail(StepYear, err)
	}
	if year != target.Year {
		if err := n.selectYear(ctx, target.Year); err != nil {
			return fail(StepYear, err)
		}
		if year, month, err = n.pending(ctx); err != nil {
			return fail(StepYear, err)
		}
		if year != target.Year {
			return fail(StepYear, fmt.Errorf("pending year is %d: %w", year, ErrYearNotFound))
		}
	}

	if month != target.Month {
		if err := n.selectMonth(ctx, target); err != nil {
			return fail(StepMonth, err)
		}
	}

	if err := n.selectDay(ctx, target); err != nil {
		return fail(StepDay, err)
	}
	if err := n.click(ctx, driver.ID(app.PickerConfirm)); err != nil {
		return fail(StepConfirm, err)
	}
	return driver.Pause(ctx, n.Settle)
}

func (n *Navigator) driver() driver.Driver { return n.View.Driver }

func (n *Navigator) click(ctx context.Context, loc driver.Locator) error {
	h, err := driver.WaitFor(ctx, n.driver(), loc, n.View.Timeout)
	if err != nil {
		return err
	}
	return n.driver().Click(ctx, h)
}

func (n *Navigator) text(ctx context.Context, loc driver.Locator) (string, error) {
	h, err := driver.WaitFor(ctx, n.driver(), loc, n.View.Timeout)
	if err != nil {
		return "", err
	}
	return n.driver().Text(ctx, h)
}

func (n *Navigator) selectedDate(ctx context.Context) (datekey.Key, error) {
	s, err := n.text(ctx, driver.ID(app.PickerSelectedDate))
	if err != nil {
		return datekey.Key{}, err
	}
	t, err := time.Parse(app.SelectedDateLayout, strings.TrimSpace(s))
	if err != nil {
		return datekey.Key{}, fmt.Errorf("selected date %q: %w", s, err)
	}
	return datekey.FromTime(t), nil
}

func (n *Navigator) pending(ctx context.Context) (int, time.Month, error) {
	s, err := n.text(ctx, driver.ID(app.PickerPendingToggle))
	if err != nil {
		return 0, 0, err
	}
	t, err := time.Parse(app.PendingDateLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("pending month %q: %w", s, err)
	}
	return t.Year(), t.Month(), nil
}

type yearCell struct {
	handle driver.Handle
	year   int
}

func (n *Navigator) years(ctx context.Context) ([]yearCell, error) {
	hs, err := n.driver().FindAll(ctx, driver.DescContaining(app.YearDescPrefix, app.YearDescMarker))
	if err != nil {
		return nil, err
	}
	cells := make([]yearCell, 0, len(hs))
	for _, h := range hs {
		desc, err := n.driver().Attribute(ctx, h, "content-desc")
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(desc)
		if len(fields) == 0 {
			continue
		}
		y, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			continue
		}
		cells = append(cells, yearCell{handle: h, year: y})
	}
	return cells, nil
}

func (n *Navigator) selectYear(ctx context.Context, target int) error {
	if err := n.click(ctx, driver.ID(app.PickerPendingToggle)); err != nil {
		return err
	}
	if _, err := driver.WaitFor(ctx, n.driver(), driver.ID(app.PickerYearFrame), n.View.Timeout); err != nil {
		return err
	}

	for scrolls := 0; ; scrolls++ {
		cells, err := n.years(ctx)
		if err != nil {
			return err
		}
		if len(cells) == 0 {
			return fmt.Errorf("no years rendered: %w", ErrYearNotFound)
		}
		lo, hi := cells[0], cells[0]
		for _, c := range cells {
			if c.year == target {
				return n.driver().Click(ctx, c.handle)
			}
			if c.year < lo.year {
				lo = c
			}
			if c.year > hi.year {
				hi = c
			}
		}
		if scrolls == MaxYearScrolls {
			return fmt.Errorf("%d not reached after %d scrolls: %w", target, scrolls, ErrYearNotFound)
		}

		from, to := lo, hi
		if target > hi.year {
			from, to = hi, lo
		}
		utils.Log.Debugf("Year %d not in %d-%d, scrolling", target, lo.year, hi.year)
		if err := n.driver().ScrollBetween(ctx, from.handle, to.handle, YearScrollDuration); err != nil {
			return err
		}
	}
}

func (n *Navigator) selectMonth(ctx context.Context, target datekey.Key) error {
	year, month, err := n.pending(ctx)
	if err != nil {
		return err
	}
	delta := (target.Year*12 + int(target.Month)) - (year*12 + int(month))
	arrow := app.PickerNextMonth
	if delta < 0 {
		arrow, delta = app.PickerPreviousMonth, -delta
	}
	for i := 0; i < delta; i++ {
		if err := n.click(ctx, driver.ID(arrow)); err != nil {
			return err
		}
		if err := driver.Pause(ctx, n.Settle); err != nil {
			return err
		}
		if year, month, err = n.pending(ctx); err != nil {
			return err
		}
		utils.Log.Debugf("Pending month now %s %d", month, year)
	}
	if year != target.Year || month != target.Month {
		return fmt.Errorf("pending month is %s %d: %w", month, year, ErrMonthNotFound)
	}
	return nil
}

// DayLabels returns the content-desc candidates of the day cell for target,
// the year-less form first. Only the year-less form carries the today prefix.
func DayLabels(target, today datekey.Key) []string {
	short := target.Format(app.DayLabelLayout)
	if target == today {
		short = app.TodayPrefix + short
	}
	return []string{short, target.Format(app.DayLabelYearLayout)}
}

func (n *Navigator) selectDay(ctx context.Context, target datekey.Key) error {
	var cell driver.Handle
	var err error
	for _, label := range DayLabels(target, n.View.Today()) {
		cell, err = n.driver().Find(ctx, driver.Desc(label))
		if err == nil || !errors.Is(err, driver.ErrNotFound) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, driver.ErrNotFound) {
			return fmt.Errorf("no cell for %s: %w", target, ErrDaySelectionFailed)
		}
		return err
	}
	if err := n.driver().Click(ctx, cell); err != nil {
		return err
	}
	selected, err := n.selectedDate(ctx)
	if err != nil {
		return err
	}
	if selected != target {
		return fmt.Errorf("selected %s: %w", selected, ErrDaySelectionFailed)
	}
	return nil
}
