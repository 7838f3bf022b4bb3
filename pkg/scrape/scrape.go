// Package scrape drives multi-day diary scrapes: it moves the diary to each
// requested date, reads and checks it, and persists the days that pass.
package scrape

import (
	"context"
	"errors"
	"fmt"

	"github.com/diaryscope/diaryscope/pkg/archive"
	"github.com/diaryscope/diaryscope/pkg/calendar"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/diary"
	"github.com/diaryscope/diaryscope/pkg/driver"
	"github.com/diaryscope/diaryscope/pkg/screen"
	"github.com/google/uuid"
)

// ErrInvalidRequest is returned for a zero step or a non-positive day count.
var ErrInvalidRequest = errors.New("invalid scrape request")

// MaxDayStep is the largest step reached by clicking through days. Larger
// steps open the date picker.
const MaxDayStep = 7

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// DayResult is the outcome of one requested date. Day holds whatever was
// read, even when Err is set; only days without Err are persisted.
type DayResult struct {
	Target datekey.Key
	Day    diary.Day
	Err    error
}

func (r DayResult) OK() bool { return r.Err == nil }

// Report holds the outcome of a run, in request order.
type Report struct {
	RunID string
	Days  []DayResult
}

// Persisted counts the days written to the archive.
func (r *Report) Persisted() int {
	n := 0
	for _, d := range r.Days {
		if d.OK() {
			n++
		}
	}
	return n
}

// Failed returns the days that were discarded.
func (r *Report) Failed() []DayResult {
	var out []DayResult
	for _, d := range r.Days {
		if !d.OK() {
			out = append(out, d)
		}
	}
	return out
}

type Runner struct {
	View      *screen.View
	Navigator *calendar.Navigator
	Reader    *diary.Reader
	Store     *archive.Store
	Log       Logger // optional; nil = no logging
	// RunID tags the report. A random one is used when empty.
	RunID string

	// OnDay is called after every requested date. Nil = no callback.
	OnDay func(DayResult)
}

func New(v *screen.View, store *archive.Store) *Runner {
	return &Runner{
		View:      v,
		Navigator: calendar.New(v),
		Reader:    diary.NewReader(v),
		Store:     store,
	}
}

// ScrapeDiaryFromDate scrapes days dates starting at start, step days apart.
// The first date, and every date following a failed one, is reached through
// the date picker; after that, steps of at most MaxDayStep days are clicked
// through.
//
// A day that fails to navigate, read or check is reported and skipped. Any
// other error stops the run and is returned along with the partial report.
func (r *Runner) ScrapeDiaryFromDate(ctx context.Context, start datekey.Key, days, step int) (*Report, error) {
	if days <= 0 || step == 0 {
		return nil, fmt.Errorf("%d days, step %d: %w", days, step, ErrInvalidRequest)
	}
	log := r.Log
	if log == nil {
		log = nopLogger{}
	}
	report := &Report{RunID: r.RunID}
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}

	if err := r.View.OpenDiaryTab(ctx); err != nil {
		return report, fmt.Errorf("opening diary: %w", err)
	}

	direct := true
	for i := 0; i < days; i++ {
		target := start.AddDays(i * step)
		log.Infof("Scraping %s (%d/%d)", target, i+1, days)

		res := DayResult{Target: target}
		res.Day, res.Err = r.scrapeDay(ctx, target, direct, step)
		report.Days = append(report.Days, res)
		if r.OnDay != nil {
			r.OnDay(res)
		}

		if res.Err != nil {
			if ctx.Err() != nil || !isDayFailure(res.Err) {
				log.Errorf("Aborting run at %s: %v", target, res.Err)
				return report, fmt.Errorf("scraping %s: %w", target, res.Err)
			}
			log.Warnf("Discarding %s: %v", target, res.Err)
			direct = true
			continue
		}
		log.Infof("Saved %s: %d entries, %d macro records", target, len(res.Day.Diary), len(res.Day.Macros))
		direct = abs(step) > MaxDayStep
	}
	return report, nil
}

func (r *Runner) scrapeDay(ctx context.Context, target datekey.Key, direct bool, step int) (diary.Day, error) {
	if direct {
		if err := r.Navigator.Navigate(ctx, target); err != nil {
			return diary.Day{}, err
		}
	} else {
		move := r.View.NextDay
		if step < 0 {
			move = r.View.PreviousDay
		}
		for n := 0; n < abs(step); n++ {
			if err := move(ctx); err != nil {
				return diary.Day{}, err
			}
		}
	}

	day, err := r.Reader.ReadDay(ctx)
	if err != nil {
		return day, err
	}
	if err := diary.Check(day, target); err != nil {
		return day, err
	}
	r.Store.MergeDay(day)
	if err := r.Store.Persist(); err != nil {
		return day, fmt.Errorf("persisting %s: %w", target, err)
	}
	return day, nil
}

var dayFailures = []error{
	calendar.ErrNavigationFailed,
	driver.ErrNotFound,
	driver.ErrStale,
	driver.ErrTimeout,
	screen.ErrDateUnreadable,
	diary.ErrUnrecognizedRow,
	diary.ErrMacroMismatch,
	diary.ErrConsistencyCheckFailed,
}

// isDayFailure reports whether err only invalidates the day it occurred on.
func isDayFailure(err error) bool {
	for _, target := range dayFailures {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
