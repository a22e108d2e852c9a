package booking

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/outbox"
)

func TestSendDueReminders(t *testing.T) {
	sent := appointmentAt("sent", monday9.Add(2*time.Hour), model.StatusConfirmed)
	sent.ReminderSent = true
	h := newHarness(
		appointmentAt("due", monday9, model.StatusConfirmed),
		appointmentAt("pending", monday9.Add(time.Hour), model.StatusPending),
		sent,
		appointmentAt("later", monday9.Add(48*time.Hour), model.StatusConfirmed),
	)

	n, err := h.svc.SendDueReminders(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("SendDueReminders failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one reminder, got %d", n)
	}
	due, _, _ := h.appointments.FindByID(context.Background(), "due")
	if !due.ReminderSent || due.Version != 2 {
		t.Fatalf("reminder flag not persisted through the lock: %+v", due)
	}
	if got := h.events.types(); !reflect.DeepEqual(got, []string{outbox.EventReminderRequested}) {
		t.Fatalf("unexpected events %v", got)
	}

	n, err = h.svc.SendDueReminders(context.Background(), 24*time.Hour)
	if err != nil || n != 0 {
		t.Fatalf("second sweep must not resend, got %d %v", n, err)
	}
}
