package booking

import (
	"fmt"
	"time"
)

// Universe is the fixed, ascending list of bookable times of a day.
type Universe []string

// NewUniverse lists every tick from start to end inclusive, step apart.
func NewUniverse(start, end string, step time.Duration) (Universe, error) {
	from, err := time.Parse(timeLayout, start)
	if err != nil {
		return nil, fmt.Errorf("slot start %q: %w", start, err)
	}
	to, err := time.Parse(timeLayout, end)
	if err != nil {
		return nil, fmt.Errorf("slot end %q: %w", end, err)
	}
	if step <= 0 {
		return nil, fmt.Errorf("slot step must be positive, got %s", step)
	}

	var u Universe
	for t := from; !t.After(to); t = t.Add(step) {
		u = append(u, t.Format(timeLayout))
	}
	return u, nil
}

func (u Universe) Contains(t string) bool {
	for _, slot := range u {
		if slot == t {
			return true
		}
	}
	return false
}

// Free returns the universe minus the booked times, in universe order.
// A paused day has no universe at all.
func (u Universe) Free(booked []string, paused bool) []string {
	if paused {
		return []string{}
	}
	taken := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	free := make([]string, 0, len(u))
	for _, slot := range u {
		if _, ok := taken[slot]; !ok {
			free = append(free, slot)
		}
	}
	return free
}

// DropPast removes slots of date that already started at now. Other dates
// are returned unchanged.
func DropPast(slots []string, date string, now time.Time) []string {
	if date != now.Format(dateLayout) {
		return slots
	}
	current := now.Format(timeLayout)
	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot > current {
			out = append(out, slot)
		}
	}
	return out
}

// UpcomingDates returns the next n calendar days starting today.
func UpcomingDates(now time.Time, n int) []string {
	dates := make([]string, 0, n)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := 0; i < n; i++ {
		dates = append(dates, day.AddDate(0, 0, i).Format(dateLayout))
	}
	return dates
}
