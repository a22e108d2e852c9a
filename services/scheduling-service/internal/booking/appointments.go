package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/outbox"
)

type ClientInput struct {
	Name  string
	Email string
	Phone string
	Notes string
	Extra map[string]string
}

type CreateAppointmentInput struct {
	ActivityID string
	DateTime   time.Time
	Client     ClientInput
}

// CreateAppointment books a pending appointment. The overlap query here is the
// authoritative guard; slot listings are advisory snapshots.
func (s *Service) CreateAppointment(ctx context.Context, in CreateAppointmentInput) (model.Appointment, error) {
	activity, err := s.activity(ctx, in.ActivityID)
	if err != nil {
		return model.Appointment{}, err
	}

	now := s.now()
	if in.DateTime.Sub(now) < activity.MinimumNotice() {
		return model.Appointment{}, fmt.Errorf("%w: %s requires %dh notice", ErrNoticeViolation, activity.Name, activity.MinimumBookingNoticeHours)
	}

	taken, err := s.appointments.HasOverlappingAppointment(ctx, in.DateTime, activity.DurationMinutes)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("check overlap: %w", err)
	}
	if taken {
		return model.Appointment{}, ErrSlotUnavailable
	}

	client, err := model.NewClientInfo(in.Client.Name, in.Client.Email, in.Client.Phone, in.Client.Notes, in.Client.Extra)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := client.Require(activity.RequiredFields); err != nil {
		return model.Appointment{}, err
	}

	appt, err := model.NewAppointment(s.newID(), activity, in.DateTime, client, now)
	if err != nil {
		return model.Appointment{}, err
	}
	saved, err := s.insert(ctx, appt)
	if err != nil {
		if errors.Is(err, model.ErrSlotTaken) {
			return model.Appointment{}, ErrSlotUnavailable
		}
		return model.Appointment{}, fmt.Errorf("save appointment: %w", err)
	}

	s.logger.Info("appointment booked", "appointment_id", saved.ID, "activity_id", saved.ActivityID, "start", saved.DateTime)
	return saved, nil
}

func (s *Service) GetAllAppointments(ctx context.Context) ([]model.Appointment, error) {
	appts, err := s.appointments.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) GetAppointmentByID(ctx context.Context, id string) (model.Appointment, bool, error) {
	appt, ok, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return model.Appointment{}, false, fmt.Errorf("load appointment %s: %w", id, err)
	}
	return appt, ok, nil
}

func (s *Service) ConfirmAppointment(ctx context.Context, id string) (model.Appointment, error) {
	return s.transition(ctx, id, model.Appointment.Confirm, outbox.EventAppointmentConfirmed)
}

func (s *Service) CancelAppointment(ctx context.Context, id string) (model.Appointment, error) {
	return s.transition(ctx, id, model.Appointment.Cancel, outbox.EventAppointmentCancelled)
}

// transition loads, applies next and writes through the optimistic lock. A
// concurrent writer surfaces as ErrVersionConflict; it is never retried here.
func (s *Service) transition(ctx context.Context, id string, next func(model.Appointment) (model.Appointment, error), eventType string) (model.Appointment, error) {
	appt, err := s.mustAppointment(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	changed, err := next(appt)
	if err != nil {
		return model.Appointment{}, err
	}
	changed.UpdatedAt = s.now()
	saved, err := s.updateLocked(ctx, changed, eventType)
	if err != nil {
		if errors.Is(err, model.ErrVersionConflict) {
			return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, err)
		}
		return model.Appointment{}, fmt.Errorf("update appointment %s: %w", id, err)
	}
	s.logger.Info("appointment status changed", "appointment_id", id, "status", saved.Status, "version", saved.Version)
	return saved, nil
}

// DeleteAppointment removes the appointment regardless of status.
func (s *Service) DeleteAppointment(ctx context.Context, id string) error {
	appt, err := s.mustAppointment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.remove(ctx, appt); err != nil {
		return fmt.Errorf("delete appointment %s: %w", id, err)
	}
	s.logger.Info("appointment deleted", "appointment_id", id)
	return nil
}

func (s *Service) GetAppointmentsByDateRange(ctx context.Context, start, end time.Time) ([]model.Appointment, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start %s must be before end %s", availability.ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	appts, err := s.appointments.FindByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list appointments in range: %w", err)
	}
	return appts, nil
}

// GetCalendarEvents projects the range into calendar entries. Activity colors are
// best effort; a catalog failure only drops the colors.
func (s *Service) GetCalendarEvents(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	appts, err := s.GetAppointmentsByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	colors := map[string]string{}
	activities, err := s.activities.FindAll(ctx)
	if err != nil {
		s.logger.Warn("activity catalog unavailable for calendar colors", "err", err)
	}
	for _, a := range activities {
		colors[a.ID] = a.Color
	}
	events := make([]model.CalendarEvent, 0, len(appts))
	for _, a := range appts {
		events = append(events, model.NewCalendarEvent(a, colors[a.ActivityID]))
	}
	return events, nil
}

func (s *Service) mustAppointment(ctx context.Context, id string) (model.Appointment, error) {
	appt, ok, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("load appointment %s: %w", id, err)
	}
	if !ok {
		return model.Appointment{}, fmt.Errorf("%w: %s", ErrAppointmentNotFound, id)
	}
	return appt, nil
}

func (s *Service) activity(ctx context.Context, id string) (model.Activity, error) {
	activity, ok, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return model.Activity{}, fmt.Errorf("load activity %s: %w", id, err)
	}
	if !ok {
		return model.Activity{}, fmt.Errorf("%w: %s", ErrActivityNotFound, id)
	}
	return activity, nil
}

func (s *Service) insert(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	if s.tx != nil {
		return s.tx.SaveWithEvent(ctx, appt, s.eventFunc(outbox.EventAppointmentBooked))
	}
	saved, err := s.appointments.Save(ctx, appt)
	if err == nil {
		s.emit(ctx, outbox.EventAppointmentBooked, saved)
	}
	return saved, err
}

func (s *Service) updateLocked(ctx context.Context, appt model.Appointment, eventType string) (model.Appointment, error) {
	if s.tx != nil {
		return s.tx.UpdateWithOptimisticLockAndEvent(ctx, appt, s.eventFunc(eventType))
	}
	saved, err := s.appointments.UpdateWithOptimisticLock(ctx, appt)
	if err == nil {
		s.emit(ctx, eventType, saved)
	}
	return saved, err
}

func (s *Service) remove(ctx context.Context, appt model.Appointment) error {
	if s.tx != nil {
		return s.tx.DeleteWithEvent(ctx, appt, s.eventFunc(outbox.EventAppointmentDeleted))
	}
	if err := s.appointments.Delete(ctx, appt.ID); err != nil {
		return err
	}
	s.emit(ctx, outbox.EventAppointmentDeleted, appt)
	return nil
}

func (s *Service) eventFunc(eventType string) outbox.EventFunc {
	return func(appt model.Appointment) (outbox.Event, error) {
		return outbox.NewAppointmentEvent(eventType, appt, s.now())
	}
}

// emit records a lifecycle event after a non-transactional write. The appointment
// is already persisted, so a failure is logged and swallowed.
func (s *Service) emit(ctx context.Context, eventType string, appt model.Appointment) {
	evt, err := outbox.NewAppointmentEvent(eventType, appt, s.now())
	if err == nil {
		err = s.events.Record(ctx, evt)
	}
	if err != nil {
		s.logger.Error("appointment event not recorded", "event_type", eventType, "appointment_id", appt.ID, "err", err)
	}
}
