package booking

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/outbox"
)

var monday9 = time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC)

func TestCreateAppointmentBooksPending(t *testing.T) {
	h := newHarness()
	appt, err := h.svc.CreateAppointment(context.Background(), CreateAppointmentInput{
		ActivityID: "consult",
		DateTime:   monday9,
		Client:     validClient(),
	})
	if err != nil {
		t.Fatalf("CreateAppointment failed: %v", err)
	}
	if appt.ID != "id-1" || appt.Status != model.StatusPending || appt.Version != 1 {
		t.Fatalf("unexpected appointment %+v", appt)
	}
	if appt.ActivityName != "Consultation" || appt.ActivityDurationMinutes != 60 {
		t.Fatalf("activity not copied onto appointment: %+v", appt)
	}
	if _, ok, _ := h.appointments.FindByID(context.Background(), appt.ID); !ok {
		t.Fatal("appointment was not persisted")
	}
	if got := h.events.types(); !reflect.DeepEqual(got, []string{outbox.EventAppointmentBooked}) {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestCreateAppointmentUnknownActivity(t *testing.T) {
	h := newHarness()
	_, err := h.svc.CreateAppointment(context.Background(), CreateAppointmentInput{ActivityID: "nope", DateTime: monday9, Client: validClient()})
	if !errors.Is(err, ErrActivityNotFound) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrActivityNotFound, got %v", err)
	}
}

func TestCreateAppointmentInsideNoticeWindow(t *testing.T) {
	h := newHarness()
	_, err := h.svc.CreateAppointment(context.Background(), CreateAppointmentInput{
		ActivityID: "strict",
		DateTime:   fixedNow.Add(time.Hour),
		Client:     validClient(),
	})
	if !errors.Is(err, ErrNoticeViolation) {
		t.Fatalf("expected ErrNoticeViolation, got %v", err)
	}
	if len(h.appointments.items) != 0 {
		t.Fatal("nothing should be persisted")
	}
}

func TestCreateAppointmentNoticeBoundaryIsInclusive(t *testing.T) {
	h := newHarness()
	_, err := h.svc.CreateAppointment(context.Background(), CreateAppointmentInput{
		ActivityID: "strict",
		DateTime:   fixedNow.Add(2 * time.Hour),
		Client:     validClient(),
	})
	if err != nil {
		t.Fatalf("exactly the notice period should be accepted, got %v", err)
	}
}

func TestCreateAppointmentOverlap(t *testing.T) {
	h := newHarness(appointmentAt("existing", monday9.Add(30*time.Minute), model.StatusPending))
	_, err := h.svc.CreateAppointment(context.Background(), CreateAppointmentInput{ActivityID: "consult", DateTime: monday9, Client: validClient()})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestCreateAppointmentIgnoresCancelledOverlap(t *testing.T) {
	h := newHarness(appointmentAt("existing", monday9, model.StatusCancelled))
	if _, err := h.svc.CreateAppointment(context.Background(), CreateAppointmentInput{ActivityID: "consult", DateTime: monday9, Client: validClient()}); err != nil {
		t.Fatalf("cancelled appointments must not block booking: %v", err)
	}
}

func TestCreateAppointmentAdjacentIsFree(t *testing.T) {
	h := newHarness(appointmentAt("existing", monday9, model.StatusConfirmed))
	if _, err := h.svc.CreateAppointment(context.Background(), CreateAppointmentInput{ActivityID: "consult", DateTime: monday9.Add(time.Hour), Client: validClient()}); err != nil {
		t.Fatalf("back-to-back booking should succeed: %v", err)
	}
}

func TestCreateAppointmentStorageGuard(t *testing.T) {
	h := newHarness()
	h.appointments.saveErr = model.ErrSlotTaken
	_, err := h.svc.CreateAppointment(context.Background(), CreateAppointmentInput{ActivityID: "consult", DateTime: monday9, Client: validClient()})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected storage conflict to surface as ErrSlotUnavailable, got %v", err)
	}
}

func TestCreateAppointmentClientValidation(t *testing.T) {
	h := newHarness()
	_, err := h.svc.CreateAppointment(context.Background(), CreateAppointmentInput{
		ActivityID: "consult",
		DateTime:   monday9,
		Client:     ClientInput{Name: "Grace", Email: "nope"},
	})
	if !errors.Is(err, ErrInvalidClientInfo) {
		t.Fatalf("expected ErrInvalidClientInfo, got %v", err)
	}

	_, err = h.svc.CreateAppointment(context.Background(), CreateAppointmentInput{
		ActivityID: "strict",
		DateTime:   monday9,
		Client:     ClientInput{Name: "Grace", Email: "grace@example.com"},
	})
	if !errors.Is(err, ErrInvalidClientInfo) {
		t.Fatalf("expected missing phone to be rejected, got %v", err)
	}
}

func TestCreateAppointmentSurvivesEventFailure(t *testing.T) {
	h := newHarness()
	h.events.err = errors.New("broker down")
	if _, err := h.svc.CreateAppointment(context.Background(), CreateAppointmentInput{ActivityID: "consult", DateTime: monday9, Client: validClient()}); err != nil {
		t.Fatalf("event failure must not fail the booking: %v", err)
	}
}

func TestConfirmThenCancel(t *testing.T) {
	h := newHarness(appointmentAt("apt", monday9, model.StatusPending))
	confirmed, err := h.svc.ConfirmAppointment(context.Background(), "apt")
	if err != nil {
		t.Fatalf("ConfirmAppointment failed: %v", err)
	}
	if confirmed.Status != model.StatusConfirmed || confirmed.Version != 2 {
		t.Fatalf("unexpected confirmed appointment %+v", confirmed)
	}
	cancelled, err := h.svc.CancelAppointment(context.Background(), "apt")
	if err != nil {
		t.Fatalf("CancelAppointment failed: %v", err)
	}
	if cancelled.Status != model.StatusCancelled || cancelled.Version != 3 {
		t.Fatalf("unexpected cancelled appointment %+v", cancelled)
	}
	if _, err := h.svc.ConfirmAppointment(context.Background(), "apt"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	want := []string{outbox.EventAppointmentConfirmed, outbox.EventAppointmentCancelled}
	if got := h.events.types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
}

func TestConfirmUnknownAppointment(t *testing.T) {
	h := newHarness()
	if _, err := h.svc.ConfirmAppointment(context.Background(), "ghost"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
	if _, err := h.svc.CancelAppointment(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentConfirmOneWinsOneConflicts(t *testing.T) {
	h := newHarness(appointmentAt("apt", monday9, model.StatusPending))
	barrier := &sync.WaitGroup{}
	barrier.Add(2)
	h.appointments.loadBarrier = barrier

	type result struct {
		appt model.Appointment
		err  error
	}
	results := make(chan result, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			appt, err := h.svc.ConfirmAppointment(context.Background(), "apt")
			results <- result{appt, err}
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for r := range results {
		switch {
		case r.err == nil:
			ok++
			if r.appt.Status != model.StatusConfirmed || r.appt.Version != 2 {
				t.Fatalf("unexpected winner %+v", r.appt)
			}
		case errors.Is(r.err, ErrVersionConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error %v", r.err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("expected one success and one conflict, got %d/%d", ok, conflicts)
	}
}

func TestDeleteAppointment(t *testing.T) {
	h := newHarness(appointmentAt("apt", monday9, model.StatusCancelled))
	if err := h.svc.DeleteAppointment(context.Background(), "apt"); err != nil {
		t.Fatalf("DeleteAppointment failed: %v", err)
	}
	if _, ok, _ := h.svc.GetAppointmentByID(context.Background(), "apt"); ok {
		t.Fatal("appointment should be gone")
	}
	if err := h.svc.DeleteAppointment(context.Background(), "apt"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestGetAppointmentsByDateRange(t *testing.T) {
	h := newHarness(
		appointmentAt("a", monday9, model.StatusPending),
		appointmentAt("b", monday9.Add(24*time.Hour), model.StatusConfirmed),
	)
	got, err := h.svc.GetAppointmentsByDateRange(context.Background(), monday9.Add(-time.Hour), monday9.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("GetAppointmentsByDateRange failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected range result %v", got)
	}
	if _, err := h.svc.GetAppointmentsByDateRange(context.Background(), monday9, monday9); !errors.Is(err, availability.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	all, err := h.svc.GetAllAppointments(context.Background())
	if err != nil || len(all) != 2 {
		t.Fatalf("expected both appointments, got %v %v", all, err)
	}
}

func TestGetCalendarEvents(t *testing.T) {
	h := newHarness(
		appointmentAt("a", monday9, model.StatusPending),
		appointmentAt("b", monday9.Add(time.Hour), model.StatusCancelled),
	)
	events, err := h.svc.GetCalendarEvents(context.Background(), monday9, monday9.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("GetCalendarEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected two events, got %d", len(events))
	}
	if events[0].Color != "#1e88e5" || events[0].Title != "Consultation - Ada" || !events[0].End.Equal(monday9.Add(time.Hour)) {
		t.Fatalf("unexpected event %+v", events[0])
	}
	if events[1].Color == "#1e88e5" {
		t.Fatal("cancelled events should not use the activity color")
	}

	h.activities.err = errors.New("catalog down")
	if _, err := h.svc.GetCalendarEvents(context.Background(), monday9, monday9.Add(4*time.Hour)); err != nil {
		t.Fatalf("catalog failure should only drop colors, got %v", err)
	}
}

func TestGetAvailabilityCreatesEmptyOnce(t *testing.T) {
	h := newHarness()
	first, err := h.svc.GetAvailability(context.Background())
	if err != nil {
		t.Fatalf("GetAvailability failed: %v", err)
	}
	if first.ID == "" || len(first.WeeklySlots) != 0 || len(first.Exceptions) != 0 {
		t.Fatalf("unexpected initial availability %+v", first)
	}
	second, err := h.svc.GetAvailability(context.Background())
	if err != nil || second.ID != first.ID {
		t.Fatalf("expected the stored record back, got %+v %v", second, err)
	}
	if h.availability.saves != 1 {
		t.Fatalf("expected a single save, got %d", h.availability.saves)
	}
}

func TestUpdateAvailabilityReplacesWholesale(t *testing.T) {
	h := newHarness()
	mon, _ := availability.NewWeeklySlot(1, "09:00", "12:00")
	tue, _ := availability.NewWeeklySlot(2, "13:00", "17:00")
	off, _ := availability.NewException("2026-02-01", "2026-02-03", "", "", "holiday")

	created, err := h.svc.UpdateAvailability(context.Background(), []availability.WeeklySlot{mon, tue}, []availability.Exception{off})
	if err != nil {
		t.Fatalf("UpdateAvailability failed: %v", err)
	}
	if h.availability.saves != 1 || len(created.WeeklySlots) != 2 || len(created.Exceptions) != 1 {
		t.Fatalf("unexpected first write %+v (saves=%d)", created, h.availability.saves)
	}

	updated, err := h.svc.UpdateAvailability(context.Background(), []availability.WeeklySlot{tue}, nil)
	if err != nil {
		t.Fatalf("UpdateAvailability failed: %v", err)
	}
	if h.availability.updates != 1 || updated.ID != created.ID {
		t.Fatalf("expected in-place update of %s, got %+v", created.ID, updated)
	}
	if len(updated.WeeklySlots) != 1 || updated.WeeklySlots[0].Day != time.Tuesday || len(updated.Exceptions) != 0 {
		t.Fatalf("schedule was merged instead of replaced: %+v", updated)
	}
}

func TestUpdateAvailabilityRejectsInvalidSlot(t *testing.T) {
	h := newHarness()
	bad := availability.WeeklySlot{Day: time.Monday, Start: 10 * 60, End: 9 * 60}
	if _, err := h.svc.UpdateAvailability(context.Background(), []availability.WeeklySlot{bad}, nil); !errors.Is(err, availability.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if h.availability.saves != 0 {
		t.Fatal("invalid schedule must not be stored")
	}
}

func TestGetAvailabilityLosingFirstInsertReturnsStored(t *testing.T) {
	h := newHarness()
	winner := availability.Availability{ID: "winner", WeeklySlots: []availability.WeeklySlot{}, Exceptions: []availability.Exception{}}
	h.availability.concurrent = &winner

	got, err := h.svc.GetAvailability(context.Background())
	if err != nil {
		t.Fatalf("GetAvailability failed: %v", err)
	}
	if got.ID != "winner" {
		t.Fatalf("expected the concurrently stored record, got %+v", got)
	}
}

func TestUpdateAvailabilityLosingFirstInsertUpdatesStored(t *testing.T) {
	h := newHarness()
	winner := availability.Availability{ID: "winner", WeeklySlots: []availability.WeeklySlot{}, Exceptions: []availability.Exception{}}
	h.availability.concurrent = &winner
	mon, _ := availability.NewWeeklySlot(1, "09:00", "12:00")

	got, err := h.svc.UpdateAvailability(context.Background(), []availability.WeeklySlot{mon}, nil)
	if err != nil {
		t.Fatalf("UpdateAvailability failed: %v", err)
	}
	if got.ID != "winner" || len(got.WeeklySlots) != 1 || h.availability.updates != 1 {
		t.Fatalf("expected the stored record to be updated, got %+v (updates=%d)", got, h.availability.updates)
	}
}

func TestGetAvailabilitySaveFailureWithoutRecord(t *testing.T) {
	h := newHarness()
	failing := &failingSaveAvailability{fakeAvailability: h.availability}
	svc := NewService(h.activities, failing, h.appointments, nil, Config{Location: time.UTC, Now: func() time.Time { return fixedNow }})

	if _, err := svc.GetAvailability(context.Background()); err == nil {
		t.Fatal("expected the save error when no record exists")
	}
}

func TestListActivities(t *testing.T) {
	h := newHarness()
	got, err := h.svc.ListActivities(context.Background())
	if err != nil || len(got) != 2 || got[0].ID != "consult" {
		t.Fatalf("unexpected catalog %v %v", got, err)
	}
}
