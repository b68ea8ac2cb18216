// Package availability computes bookable time windows for a salon day from
// working hours, busy intervals, a service duration and the current instant.
// It performs no I/O; callers load a consistent snapshot and pass it in.
package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidArgument is returned for inputs the engine cannot interpret, such
// as a non-positive duration or an unparseable time of day.
var ErrInvalidArgument = errors.New("availability: invalid argument")

// SlotMinutes is the scan granularity. Candidate start times are multiples of
// this many minutes from the day's opening time.
const SlotMinutes = 30

const dateLayout = "2006-01-02"

// Clock is a time of day expressed in minutes since midnight.
type Clock int

// ParseClock parses "HH:MM" or "HH:MM:SS" (24h). Seconds are accepted but
// dropped.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: time %q", ErrInvalidArgument, s)
	}
	limits := []int{23, 59, 59}
	values := make([]int, len(parts))
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("%w: time %q", ErrInvalidArgument, s)
		}
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] {
			return 0, fmt.Errorf("%w: time %q", ErrInvalidArgument, s)
		}
		values[i] = v
	}
	return Clock(values[0]*60 + values[1]), nil
}

// String formats the clock as zero-padded "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText encodes the clock as "HH:MM".
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes "HH:MM" or "HH:MM:SS".
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ClockOf returns the time-of-day of t in its own location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// FormatDate renders the calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidArgument, s)
	}
	return d, nil
}

// civil strips t down to its calendar date so dates from different locations
// compare by day only.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
