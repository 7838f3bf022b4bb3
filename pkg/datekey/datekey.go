// Package datekey holds the calendar date used as the uniqueness key of
// every archived record.
package datekey

import (
	"fmt"
	"time"
)

// Layout is the text form of a Key, both in the archive file and on the CLI.
const Layout = "2006-01-02"

// Key is a calendar date with no time component.
type Key struct {
	Year  int
	Month time.Month
	Day   int
}

// New normalizes y/m/d the way time.Date does (Jan 32 becomes Feb 1).
func New(year int, month time.Month, day int) Key {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime drops the clock part of t, keeping t's own calendar date.
func FromTime(t time.Time) Key {
	y, m, d := t.Date()
	return Key{Year: y, Month: m, Day: d}
}

// Parse reads a YYYY-MM-DD string.
func Parse(s string) (Key, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Key{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// Time returns midnight UTC of k.
func (k Key) Time() time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns k shifted by n days (n may be negative).
func (k Key) AddDays(n int) Key {
	return FromTime(k.Time().AddDate(0, 0, n))
}

func (k Key) IsZero() bool { return k == Key{} }

// Compare returns -1, 0 or +1 depending on whether k is before, equal to or after o.
func (k Key) Compare(o Key) int {
	switch {
	case k.Year != o.Year:
		return sign(k.Year - o.Year)
	case k.Month != o.Month:
		return sign(int(k.Month) - int(o.Month))
	default:
		return sign(k.Day - o.Day)
	}
}

func (k Key) Before(o Key) bool { return k.Compare(o) < 0 }

// Format renders k with any time layout.
func (k Key) Format(layout string) string {
	return k.Time().Format(layout)
}

func (k Key) String() string {
	return k.Format(Layout)
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
