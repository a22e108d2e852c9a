package booking

import (
	"context"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
)

// GetAvailableSlots lists the bookable slots of activityID on date. Only an unknown
// activity is an error; missing configuration or storage trouble yields no slots.
// Slots inside the notice window are dropped; past instants are not checked separately.
func (s *Service) GetAvailableSlots(ctx context.Context, activityID string, date availability.Date) ([]availability.TimeSlot, error) {
	activity, err := s.activity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	avail, ok := s.loadAvailability(ctx)
	if !ok {
		return []availability.TimeSlot{}, nil
	}
	busy, ok := s.busyBetween(ctx, date, date.AddDays(1))
	if !ok {
		return []availability.TimeSlot{}, nil
	}
	return s.slotsOn(activity, avail, date, busy, false), nil
}

// GetAvailableDaysInWeek returns the YYYY-MM-DD dates, from weekStart over seven
// days, that have at least one future slot outside the notice window.
func (s *Service) GetAvailableDaysInWeek(ctx context.Context, activityID string, weekStart availability.Date) ([]string, error) {
	activity, err := s.activity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	days := []string{}
	avail, ok := s.loadAvailability(ctx)
	if !ok {
		return days, nil
	}
	busy, ok := s.busyBetween(ctx, weekStart, weekStart.AddDays(7))
	if !ok {
		return days, nil
	}
	for i := 0; i < 7; i++ {
		d := weekStart.AddDays(i)
		if len(s.slotsOn(activity, avail, d, busy, true)) > 0 {
			days = append(days, d.String())
		}
	}
	return days, nil
}

func (s *Service) slotsOn(activity model.Activity, avail availability.Availability, d availability.Date, busy []availability.Interval, excludePast bool) []availability.TimeSlot {
	slots := []availability.TimeSlot{}
	if avail.IsDateFullyExcluded(d) {
		return slots
	}
	daySlots := avail.SlotsForDay(d.Weekday())
	if len(daySlots) == 0 {
		return slots
	}
	return append(slots, availability.GenerateSlots(availability.SlotQuery{
		Date:          d,
		Location:      s.loc,
		Duration:      activity.Duration(),
		MinimumNotice: activity.MinimumNotice(),
		DaySlots:      daySlots,
		Busy:          busy,
		Exceptions:    avail.ExceptionsForDate(d),
		Now:           s.now(),
		ExcludePast:   excludePast,
	})...)
}

func (s *Service) loadAvailability(ctx context.Context) (availability.Availability, bool) {
	avail, ok, err := s.availability.Find(ctx)
	if err != nil {
		s.logger.Warn("availability lookup failed; returning no slots", "err", err)
		return availability.Availability{}, false
	}
	return avail, ok
}

// busyBetween returns intervals held by active appointments between the starts of from and to.
func (s *Service) busyBetween(ctx context.Context, from, to availability.Date) ([]availability.Interval, bool) {
	appts, err := s.appointments.FindByDateRange(ctx, from.Start(s.loc), to.Start(s.loc))
	if err != nil {
		s.logger.Warn("appointment lookup failed; returning no slots", "err", err)
		return nil, false
	}
	return model.BusyIntervals(appts), true
}
