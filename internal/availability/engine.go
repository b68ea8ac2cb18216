package availability

import (
	"fmt"
	"time"
)

// DefaultLookaheadDays bounds FindNextFreeBlocks when no lookahead is given.
const DefaultLookaheadDays = 30

// DaySlot is one candidate start time for a booking of a given duration.
type DaySlot struct {
	Time        string `json:"time"`
	Start       Clock  `json:"-"`
	IsAvailable bool   `json:"is_available"`
	IsPast      bool   `json:"is_past"`
}

// FreeBlock is a maximal run of contiguous free slots on one date.
type FreeBlock struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// FreeBlockQuery describes a forward scan for free blocks.
type FreeBlockQuery struct {
	StartDate     time.Time
	LookaheadDays int
	Hours         WeeklyHours
	// Busy is keyed by YYYY-MM-DD.
	Busy           map[string][]BusyInterval
	MinSlotMinutes int
	MaxBlocks      int
	Now            time.Time
}

// ComputeDaySlots lists every candidate start time for a booking of
// durationMinutes on date, stepping SlotMinutes from opening time while the
// full duration still fits before closing. now must be expressed in the same
// location as the salon's wall clock.
func ComputeDaySlots(date time.Time, hours WorkingHours, busy []BusyInterval, durationMinutes int, now time.Time) ([]DaySlot, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration %d", ErrInvalidArgument, durationMinutes)
	}
	opens, closes, ok, err := hours.Window()
	if err != nil {
		return nil, err
	}
	if !ok {
		return []DaySlot{}, nil
	}

	isPast := pastCheck(date, now)
	duration := Clock(durationMinutes)
	slots := make([]DaySlot, 0, int(closes-opens)/SlotMinutes)
	for start := opens; start+duration <= closes; start += SlotMinutes {
		past := isPast(start)
		slots = append(slots, DaySlot{
			Time:        start.String(),
			Start:       start,
			IsPast:      past,
			IsAvailable: !past && !HasConflict(start, start+duration, busy),
		})
	}
	return slots, nil
}

// FindNextFreeBlocks scans forward day by day from q.StartDate and returns up
// to q.MaxBlocks free blocks in chronological order. Occupancy is judged per
// SlotMinutes slot up to closing time; blocks shorter than q.MinSlotMinutes
// are skipped. The scan stops as soon as q.MaxBlocks blocks are found.
func FindNextFreeBlocks(q FreeBlockQuery) ([]FreeBlock, error) {
	if q.MaxBlocks <= 0 {
		return nil, fmt.Errorf("%w: max blocks %d", ErrInvalidArgument, q.MaxBlocks)
	}
	lookahead := q.LookaheadDays
	if lookahead <= 0 {
		lookahead = DefaultLookaheadDays
	}
	minSlot := q.MinSlotMinutes
	if minSlot <= 0 {
		minSlot = SlotMinutes
	}

	blocks := make([]FreeBlock, 0, q.MaxBlocks)
	first := civil(q.StartDate)
	for offset := 0; offset < lookahead; offset++ {
		day := first.AddDate(0, 0, offset)
		key := FormatDate(day)
		found, err := freeBlocksForDay(day, q.Hours.ForDay(day.Weekday()), q.Busy[key], minSlot, q.Now)
		if err != nil {
			return nil, fmt.Errorf("availability: scan %s: %w", key, err)
		}
		for _, b := range found {
			blocks = append(blocks, b)
			if len(blocks) == q.MaxBlocks {
				return blocks, nil
			}
		}
	}
	return blocks, nil
}

func freeBlocksForDay(day time.Time, hours WorkingHours, busy []BusyInterval, minSlot int, now time.Time) ([]FreeBlock, error) {
	opens, closes, ok, err := hours.Window()
	if err != nil || !ok {
		return nil, err
	}

	isPast := pastCheck(day, now)
	date := FormatDate(day)

	var (
		blocks           []FreeBlock
		runStart, runEnd Clock
		inRun            bool
	)
	flush := func() {
		if inRun && int(runEnd-runStart) >= minSlot {
			blocks = append(blocks, FreeBlock{Date: date, StartTime: runStart.String(), EndTime: runEnd.String()})
		}
		inRun = false
	}

	// Every slot up to closing counts toward a run; minSlot only filters the
	// finished runs, so a block always extends to the last free slot.
	for start := opens; start+SlotMinutes <= closes; start += SlotMinutes {
		end := start + SlotMinutes
		if isPast(start) || HasConflict(start, end, busy) {
			flush()
			continue
		}
		if inRun && start == runEnd {
			runEnd = end
			continue
		}
		flush()
		runStart, runEnd, inRun = start, end, true
	}
	flush()
	return blocks, nil
}

// IsPast reports whether a start time c on date has already passed at now.
// now must be expressed in the salon's location.
func IsPast(date, now time.Time, c Clock) bool {
	return pastCheck(date, now)(c)
}

// pastCheck returns the predicate deciding whether a start time on date has
// already passed at now. Earlier dates are entirely past, later dates never;
// on the current date a start equal to the current minute is past.
func pastCheck(date, now time.Time) func(Clock) bool {
	day, today := civil(date), civil(now)
	switch {
	case day.Before(today):
		return func(Clock) bool { return true }
	case day.After(today):
		return func(Clock) bool { return false }
	}
	current := ClockOf(now)
	return func(c Clock) bool { return c <= current }
}
