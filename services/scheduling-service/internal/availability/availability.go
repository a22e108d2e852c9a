package availability

import (
	"fmt"
	"time"
)

// Availability is the business-wide schedule: recurring weekly windows plus
// date-range exceptions. There is at most one per deployment.
type Availability struct {
	ID          string       `json:"id"`
	WeeklySlots []WeeklySlot `json:"weeklySlots"`
	Exceptions  []Exception  `json:"exceptions"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// New builds an Availability after validating every slot and exception.
func New(weekly []WeeklySlot, exceptions []Exception) (Availability, error) {
	a := Availability{}.WithSchedule(weekly, exceptions)
	if err := a.Validate(); err != nil {
		return Availability{}, err
	}
	return a, nil
}

// WithSchedule replaces both collections wholesale; nothing is merged.
func (a Availability) WithSchedule(weekly []WeeklySlot, exceptions []Exception) Availability {
	a.WeeklySlots = append([]WeeklySlot{}, weekly...)
	a.Exceptions = append([]Exception{}, exceptions...)
	return a
}

func (a Availability) Validate() error {
	for i, ws := range a.WeeklySlots {
		if err := ws.Validate(); err != nil {
			return fmt.Errorf("weekly slot %d: %w", i, err)
		}
	}
	for i, ex := range a.Exceptions {
		if err := ex.Validate(); err != nil {
			return fmt.Errorf("exception %d: %w", i, err)
		}
	}
	return nil
}

// SlotsForDay returns the weekly slots for day in stored order. Overlapping or
// adjacent slots are not coalesced.
func (a Availability) SlotsForDay(day time.Weekday) []WeeklySlot {
	var out []WeeklySlot
	for _, ws := range a.WeeklySlots {
		if ws.Day == day {
			out = append(out, ws)
		}
	}
	return out
}

// IsDateFullyExcluded is true when a whole-day exception covers d.
func (a Availability) IsDateFullyExcluded(d Date) bool {
	for _, ex := range a.Exceptions {
		if ex.IsFullDay() && ex.Covers(d) {
			return true
		}
	}
	return false
}

// ExceptionsForDate returns every exception, partial or full, whose range contains d.
func (a Availability) ExceptionsForDate(d Date) []Exception {
	var out []Exception
	for _, ex := range a.Exceptions {
		if ex.Covers(d) {
			out = append(out, ex)
		}
	}
	return out
}
