package availability

import (
	"fmt"
	"strings"
	"time"
)

// Exception blocks a date range. Without StartTime/EndTime it blocks whole days,
// otherwise only that sub-range on each day of the range.
type Exception struct {
	StartDate Date       `json:"startDate"`
	EndDate   Date       `json:"endDate"`
	StartTime *TimeOfDay `json:"startTime,omitempty"`
	EndTime   *TimeOfDay `json:"endTime,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// NewException parses dates as YYYY-MM-DD and times as HH:MM. Empty times mean a full-day block.
func NewException(startDate, endDate, startTime, endTime, reason string) (Exception, error) {
	sd, err := ParseDate(startDate)
	if err != nil {
		return Exception{}, err
	}
	ed, err := ParseDate(endDate)
	if err != nil {
		return Exception{}, err
	}
	ex := Exception{StartDate: sd, EndDate: ed, Reason: strings.TrimSpace(reason)}

	startTime, endTime = strings.TrimSpace(startTime), strings.TrimSpace(endTime)
	if startTime != "" || endTime != "" {
		st, err := ParseTimeOfDay(startTime)
		if err != nil {
			return Exception{}, err
		}
		et, err := ParseTimeOfDay(endTime)
		if err != nil {
			return Exception{}, err
		}
		ex.StartTime, ex.EndTime = &st, &et
	}
	if err := ex.Validate(); err != nil {
		return Exception{}, err
	}
	return ex, nil
}

func (e Exception) Validate() error {
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return fmt.Errorf("%w: exception dates are required", ErrInvalidDate)
	}
	if e.EndDate.Before(e.StartDate) {
		return fmt.Errorf("%w: end date %s before start date %s", ErrInvalidRange, e.EndDate, e.StartDate)
	}
	if (e.StartTime == nil) != (e.EndTime == nil) {
		return fmt.Errorf("%w: exception needs both start and end time or neither", ErrInvalidRange)
	}
	if e.StartTime != nil && *e.StartTime >= *e.EndTime {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidRange, *e.StartTime, *e.EndTime)
	}
	return nil
}

func (e Exception) IsFullDay() bool {
	return e.StartTime == nil && e.EndTime == nil
}

// Covers reports whether d lies inside the inclusive date range.
func (e Exception) Covers(d Date) bool {
	return !d.Before(e.StartDate) && !d.After(e.EndDate)
}

// OverlapsWithInterval reports whether the exception blocks [start, end) on d.
// The exception's window is anchored on d in start's location.
func (e Exception) OverlapsWithInterval(d Date, start, end time.Time) bool {
	if !e.Covers(d) {
		return false
	}
	if e.IsFullDay() {
		return true
	}
	loc := start.Location()
	blocked := Interval{Start: d.At(*e.StartTime, loc), End: d.At(*e.EndTime, loc)}
	return blocked.Overlaps(Interval{Start: start, End: end})
}
