package availability

import "time"

// TimeSlot is a bookable interval, always exactly one activity duration wide.
type TimeSlot struct {
	Start time.Time `json:"startTime"`
	End   time.Time `json:"endTime"`
}

// SlotQuery carries everything the generator needs for one calendar date.
type SlotQuery struct {
	Date          Date
	Location      *time.Location
	Duration      time.Duration
	MinimumNotice time.Duration
	DaySlots      []WeeklySlot
	Busy          []Interval
	Exceptions    []Exception
	Now           time.Time
	// ExcludePast additionally drops slots that start before Now, regardless of notice.
	ExcludePast bool
}

// GenerateSlots slices each weekly window into back-to-back candidates of
// Duration and keeps those that clear the conflict, exception and notice tests.
// Output follows DaySlots order, then chronological order within a window.
func GenerateSlots(q SlotQuery) []TimeSlot {
	if q.Duration <= 0 {
		return nil
	}
	loc := q.Location
	if loc == nil {
		loc = time.Local
	}

	var slots []TimeSlot
	for _, ws := range q.DaySlots {
		window := ws.Window(q.Date, loc)
		for t := window.Start; !t.Add(q.Duration).After(window.End); t = t.Add(q.Duration) {
			end := t.Add(q.Duration)
			if OverlapsAny(t, end, q.Busy) {
				continue
			}
			if blockedByException(q.Date, t, end, q.Exceptions) {
				continue
			}
			lead := t.Sub(q.Now)
			if lead < q.MinimumNotice {
				continue
			}
			if q.ExcludePast && lead < 0 {
				continue
			}
			slots = append(slots, TimeSlot{Start: t, End: end})
		}
	}
	return slots
}

func blockedByException(d Date, start, end time.Time, exceptions []Exception) bool {
	for _, ex := range exceptions {
		if ex.OverlapsWithInterval(d, start, end) {
			return true
		}
	}
	return false
}
