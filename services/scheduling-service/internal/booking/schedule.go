package booking

import (
	"context"
	"fmt"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
)

// GetAvailability returns the schedule, creating an empty one on first access.
func (s *Service) GetAvailability(ctx context.Context) (availability.Availability, error) {
	current, ok, err := s.availability.Find(ctx)
	if err != nil {
		return availability.Availability{}, fmt.Errorf("load availability: %w", err)
	}
	if ok {
		return current, nil
	}
	now := s.now()
	empty := availability.Availability{
		ID:          s.newID(),
		WeeklySlots: []availability.WeeklySlot{},
		Exceptions:  []availability.Exception{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	saved, _, err := s.createAvailability(ctx, empty)
	if err != nil {
		return availability.Availability{}, fmt.Errorf("create availability: %w", err)
	}
	return saved, nil
}

// UpdateAvailability replaces weekly slots and exceptions wholesale.
func (s *Service) UpdateAvailability(ctx context.Context, weekly []availability.WeeklySlot, exceptions []availability.Exception) (availability.Availability, error) {
	next, err := availability.New(weekly, exceptions)
	if err != nil {
		return availability.Availability{}, err
	}
	current, ok, err := s.availability.Find(ctx)
	if err != nil {
		return availability.Availability{}, fmt.Errorf("load availability: %w", err)
	}
	now := s.now()
	if !ok {
		next.ID = s.newID()
		next.CreatedAt = now
		next.UpdatedAt = now
		saved, created, err := s.createAvailability(ctx, next)
		if err != nil {
			return availability.Availability{}, fmt.Errorf("save availability: %w", err)
		}
		if created {
			s.logger.Info("availability created", "weekly_slots", len(saved.WeeklySlots), "exceptions", len(saved.Exceptions))
			return saved, nil
		}
		current = saved
	}

	replaced := current.WithSchedule(next.WeeklySlots, next.Exceptions)
	replaced.UpdatedAt = now
	saved, err := s.availability.Update(ctx, replaced)
	if err != nil {
		return availability.Availability{}, fmt.Errorf("update availability: %w", err)
	}
	s.logger.Info("availability updated", "weekly_slots", len(saved.WeeklySlots), "exceptions", len(saved.Exceptions))
	return saved, nil
}

// createAvailability saves a as the first record. When a concurrent first access
// won the insert, the stored record is returned with created=false.
func (s *Service) createAvailability(ctx context.Context, a availability.Availability) (availability.Availability, bool, error) {
	saved, err := s.availability.Save(ctx, a)
	if err == nil {
		return saved, true, nil
	}
	existing, ok, findErr := s.availability.Find(ctx)
	if findErr != nil || !ok {
		return availability.Availability{}, false, err
	}
	s.logger.Debug("availability created concurrently; using stored record", "err", err)
	return existing, false, nil
}

func (s *Service) ListActivities(ctx context.Context) ([]model.Activity, error) {
	activities, err := s.activities.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}
