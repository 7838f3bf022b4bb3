// Package screen answers one-shot questions about the application screen and
// performs the single-step diary actions the scraping engine relies on.
package screen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diaryscope/diaryscope/internal/utils"
	"github.com/diaryscope/diaryscope/pkg/app"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/driver"
)

// ErrDateUnreadable is returned when the diary header holds no recognizable date.
var ErrDateUnreadable = errors.New("diary date unreadable")

// View wraps a driver with the timeouts the application needs.
type View struct {
	Driver driver.Driver
	// Timeout bounds every wait for an element to appear.
	Timeout time.Duration
	// Settle is paused after actions that re-render the diary.
	Settle time.Duration
	// Now resolves relative labels such as "Today". Defaults to time.Now.
	Now func() time.Time
}

func (v *View) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

// Today is the current date according to the view's clock.
func (v *View) Today() datekey.Key {
	return datekey.FromTime(v.now())
}

// IsDiary reports whether the diary screen is showing: the four ribbon tabs
// are the last content-desc carrying elements, in order, and the toolbar
// title reads "Diary".
func (v *View) IsDiary(ctx context.Context) (bool, error) {
	described, err := v.Driver.FindAll(ctx, driver.AnyContentDesc())
	if err != nil {
		return false, fmt.Errorf("listing described elements: %w", err)
	}
	if len(described) < len(app.RibbonTabs) {
		return false, nil
	}
	tail := described[len(described)-len(app.RibbonTabs):]
	for i, h := range tail {
		id, err := v.Driver.Attribute(ctx, h, "resource-id")
		if err != nil {
			if driver.IsTransient(err) {
				return false, nil
			}
			return false, err
		}
		if id != app.RibbonTabs[i] {
			return false, nil
		}
	}

	toolbar, ok, err := driver.FindOptional(ctx, v.Driver, driver.ID(app.ToolbarContainer))
	if err != nil || !ok {
		return false, err
	}
	titles, err := v.Driver.FindAllIn(ctx, toolbar, driver.Class("android.widget.TextView"))
	if err != nil {
		if driver.IsTransient(err) {
			return false, nil
		}
		return false, err
	}
	for _, h := range titles {
		text, err := v.Driver.Text(ctx, h)
		if err == nil && text == app.DiaryTitle {
			return true, nil
		}
	}
	return false, nil
}

// OpenDiaryTab switches to the diary tab unless it is already showing.
func (v *View) OpenDiaryTab(ctx context.Context) error {
	ok, err := v.IsDiary(ctx)
	if err != nil || ok {
		return err
	}
	utils.Log.Debug("Opening the diary tab")
	if err := v.clickWhenVisible(ctx, driver.ID(app.TabDiary)); err != nil {
		return fmt.Errorf("opening diary tab: %w", err)
	}
	ok, err = v.IsDiary(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("diary tab did not open: %w", driver.ErrNotFound)
	}
	return nil
}

// PreviousDay moves the diary one day back.
func (v *View) PreviousDay(ctx context.Context) error {
	if err := v.clickWhenVisible(ctx, driver.ID(app.PreviousDay)); err != nil {
		return fmt.Errorf("previous day: %w", err)
	}
	return driver.Pause(ctx, v.Settle)
}

// NextDay moves the diary one day forward.
func (v *View) NextDay(ctx context.Context) error {
	if err := v.clickWhenVisible(ctx, driver.ID(app.NextDay)); err != nil {
		return fmt.Errorf("next day: %w", err)
	}
	return driver.Pause(ctx, v.Settle)
}

// ReadDiaryDate reads the date the diary is showing.
func (v *View) ReadDiaryDate(ctx context.Context) (datekey.Key, error) {
	h, err := driver.WaitFor(ctx, v.Driver, driver.ID(app.DiaryDate), v.Timeout)
	if err != nil {
		return datekey.Key{}, fmt.Errorf("diary date: %w", err)
	}
	label, err := v.Driver.Text(ctx, h)
	if err != nil {
		return datekey.Key{}, fmt.Errorf("diary date: %w", err)
	}
	return ParseDiaryDate(label, v.now())
}

func (v *View) clickWhenVisible(ctx context.Context, loc driver.Locator) error {
	h, err := driver.WaitFor(ctx, v.Driver, loc, v.Timeout)
	if err != nil {
		return err
	}
	return v.Driver.Click(ctx, h)
}

// ParseDiaryDate converts the diary header label into a date. Relative labels
// resolve against now; labels without a year take now's year.
func ParseDiaryDate(label string, now time.Time) (datekey.Key, error) {
	today := datekey.FromTime(now)
	label = strings.TrimSpace(label)
	switch strings.ToLower(label) {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDays(-1), nil
	case "tomorrow":
		return today.AddDays(1), nil
	}
	if t, err := time.Parse(app.DiaryDateLayout, label); err == nil {
		return datekey.FromTime(t), nil
	}
	if t, err := time.Parse(app.DiaryDateLayout, label+", "+fmt.Sprint(now.Year())); err == nil {
		return datekey.FromTime(t), nil
	}
	return datekey.Key{}, fmt.Errorf("%q: %w", label, ErrDateUnreadable)
}
