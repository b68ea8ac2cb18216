package availability

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WorkingHours is the open window for one weekday. Closed wins over Start and
// End.
type WorkingHours struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Closed bool   `json:"closed"`
}

// Window parses the open window. ok is false when the day yields no slots:
// closed, or Start not before End.
func (h WorkingHours) Window() (opens, closes Clock, ok bool, err error) {
	if h.Closed {
		return 0, 0, false, nil
	}
	opens, err = ParseClock(h.Start)
	if err != nil {
		return 0, 0, false, err
	}
	closes, err = ParseClock(h.End)
	if err != nil {
		return 0, 0, false, err
	}
	if opens >= closes {
		return 0, 0, false, nil
	}
	return opens, closes, true, nil
}

// WeeklyHours holds working hours indexed by time.Weekday (Sunday=0).
type WeeklyHours [7]WorkingHours

var weekdayKeys = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// ClosedWeek returns hours with every day closed.
func ClosedWeek() WeeklyHours {
	var w WeeklyHours
	for i := range w {
		w[i] = WorkingHours{Closed: true}
	}
	return w
}

// ForDay returns the hours for the given weekday.
func (w WeeklyHours) ForDay(day time.Weekday) WorkingHours {
	if day < time.Sunday || day > time.Saturday {
		return WorkingHours{Closed: true}
	}
	return w[day]
}

// MarshalJSON encodes the week as an object keyed by lowercase weekday name.
func (w WeeklyHours) MarshalJSON() ([]byte, error) {
	out := make(map[string]WorkingHours, len(w))
	for i, h := range w {
		out[weekdayKeys[i]] = h
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts weekday names or "0".."6" as keys. Days that are not
// present are closed.
func (w *WeeklyHours) UnmarshalJSON(data []byte) error {
	var raw map[string]WorkingHours
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	week := ClosedWeek()
	for key, h := range raw {
		day, err := weekdayFromKey(key)
		if err != nil {
			return err
		}
		week[day] = h
	}
	*w = week
	return nil
}

func weekdayFromKey(key string) (time.Weekday, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	for i, name := range weekdayKeys {
		if k == name {
			return time.Weekday(i), nil
		}
	}
	if n, err := strconv.Atoi(k); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return 0, fmt.Errorf("%w: weekday %q", ErrInvalidArgument, key)
}

// BusyInterval is an occupied [Start, End) range within a day.
type BusyInterval struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// ParseBusyInterval builds an interval from "HH:MM[:SS]" strings.
func ParseBusyInterval(start, end string) (BusyInterval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return BusyInterval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return BusyInterval{}, err
	}
	if s >= e {
		return BusyInterval{}, fmt.Errorf("%w: interval %s-%s", ErrInvalidArgument, start, end)
	}
	return BusyInterval{Start: s, End: e}, nil
}

// Overlaps reports whether two half-open intervals intersect. Touching
// intervals do not overlap.
func Overlaps(a, b BusyInterval) bool {
	return a.Start < b.End && b.Start < a.End
}

// HasConflict reports whether [start, end) overlaps any busy interval. The same
// predicate backs slot marking and the write-time double-booking check.
func HasConflict(start, end Clock, busy []BusyInterval) bool {
	candidate := BusyInterval{Start: start, End: end}
	for _, b := range busy {
		if Overlaps(candidate, b) {
			return true
		}
	}
	return false
}
