package diary

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/diaryscope/diaryscope/pkg/app"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/driver"
	"github.com/diaryscope/diaryscope/pkg/screen"
)

// ErrConsistencyCheckFailed is returned when a scraped day does not add up.
var ErrConsistencyCheckFailed = errors.New("consistency check failed")

// CalorieTally is the diary's daily calorie summary as displayed.
type CalorieTally struct {
	Goal     string `json:"goal"`
	Calories string `json:"calories"`
}

// ReadTally reads the goal and food totals from the diary header.
func ReadTally(ctx context.Context, v *screen.View) (CalorieTally, error) {
	var t CalorieTally
	for _, f := range []struct {
		id  string
		dst *string
	}{
		{app.CalorieGoal, &t.Goal},
		{app.CalorieFood, &t.Calories},
	} {
		h, err := driver.WaitFor(ctx, v.Driver, driver.ID(f.id), v.Timeout)
		if err != nil {
			return t, fmt.Errorf("calorie tally: %w", err)
		}
		if *f.dst, err = v.Driver.Text(ctx, h); err != nil {
			return t, fmt.Errorf("calorie tally: %w", err)
		}
	}
	return t, nil
}

// ParseCalories converts a displayed calorie figure such as "1,250" to an int.
func ParseCalories(s string) (int, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.Atoi(clean)
	if err != nil {
		return 0, fmt.Errorf("calories %q: %w", s, err)
	}
	return n, nil
}

// ConsistencyError details a failed check.
type ConsistencyError struct {
	Expected, Scraped datekey.Key
	Declared          int
	DiaryTotal        int
	MacroTotal        int
	Err               error
}

func (e *ConsistencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("consistency check for %s: %v", e.Expected, e.Err)
	}
	return fmt.Sprintf("scraped %s (expected %s): declared %d, diary total %d, macro total %d",
		e.Scraped, e.Expected, e.Declared, e.DiaryTotal, e.MacroTotal)
}

func (e *ConsistencyError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConsistencyCheckFailed, e.Err}
	}
	return []error{ErrConsistencyCheckFailed}
}

// Check passes when the day was scraped from the expected date and the
// declared total equals both the diary sum and the macro sum.
func Check(day Day, expected datekey.Key) error {
	cerr := &ConsistencyError{Expected: expected, Scraped: day.Date}
	var err error
	if cerr.Declared, err = ParseCalories(day.Tally.Calories); err != nil {
		cerr.Err = err
		return cerr
	}
	for _, e := range day.Diary {
		n, err := ParseCalories(e.Calories)
		if err != nil {
			cerr.Err = err
			return cerr
		}
		cerr.DiaryTotal += n
	}
	for _, m := range day.Macros {
		n, err := ParseCalories(m.Calories)
		if err != nil {
			cerr.Err = err
			return cerr
		}
		cerr.MacroTotal += n
	}

	if day.Date != expected || cerr.Declared != cerr.DiaryTotal || cerr.Declared != cerr.MacroTotal {
		return cerr
	}
	return nil
}
