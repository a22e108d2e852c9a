package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/outbox"
)

// SendDueReminders marks confirmed appointments starting within lead and emits a
// reminder event for each. The event is tied to a successful optimistic-lock
// mark, so a reminder is requested at most once; conflicts are left to the next sweep.
func (s *Service) SendDueReminders(ctx context.Context, lead time.Duration) (int, error) {
	now := s.now()
	appts, err := s.appointments.FindByDateRange(ctx, now, now.Add(lead))
	if err != nil {
		return 0, fmt.Errorf("list upcoming appointments: %w", err)
	}

	sent := 0
	for _, appt := range appts {
		if appt.Status != model.StatusConfirmed || appt.ReminderSent || appt.DateTime.Before(now) {
			continue
		}
		marked := appt.WithReminderSent()
		marked.UpdatedAt = now
		if _, err := s.updateLocked(ctx, marked, outbox.EventReminderRequested); err != nil {
			if errors.Is(err, model.ErrVersionConflict) {
				s.logger.Debug("reminder skipped after concurrent update", "appointment_id", appt.ID)
				continue
			}
			return sent, fmt.Errorf("mark reminder for %s: %w", appt.ID, err)
		}
		sent++
	}
	return sent, nil
}
