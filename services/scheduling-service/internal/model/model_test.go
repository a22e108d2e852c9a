package model

import (
	"errors"
	"testing"
	"time"
)

func testActivity() Activity {
	return Activity{ID: "act-1", Name: "Consultation", DurationMinutes: 60, MinimumBookingNoticeHours: 2, Color: "#ff0000"}
}

func testAppointment(t *testing.T) Appointment {
	t.Helper()
	start := time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC)
	client, err := NewClientInfo("Ada", "ada@example.com", "", "", nil)
	if err != nil {
		t.Fatalf("NewClientInfo failed: %v", err)
	}
	a, err := NewAppointment("apt-1", testActivity(), start, client, start.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("NewAppointment failed: %v", err)
	}
	return a
}

func TestNewAppointmentDefaults(t *testing.T) {
	a := testAppointment(t)
	if a.Status != StatusPending || a.Version != 1 || a.ReminderSent {
		t.Fatalf("unexpected defaults %+v", a)
	}
	if a.ActivityName != "Consultation" || a.ActivityDurationMinutes != 60 {
		t.Fatalf("activity not denormalized: %+v", a)
	}
	if want := a.DateTime.Add(time.Hour); !a.EndDateTime().Equal(want) {
		t.Fatalf("expected end %s, got %s", want, a.EndDateTime())
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusConfirmed, false},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCancelled, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestConfirmAndCancelAreValueTransitions(t *testing.T) {
	a := testAppointment(t)
	confirmed, err := a.Confirm()
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if confirmed.Status != StatusConfirmed || confirmed.Version != a.Version {
		t.Fatalf("unexpected confirmed value %+v", confirmed)
	}
	if a.Status != StatusPending {
		t.Fatal("original value must not change")
	}

	cancelled, err := confirmed.Cancel()
	if err != nil || cancelled.Status != StatusCancelled {
		t.Fatalf("Cancel failed: %v %+v", err, cancelled)
	}
	if _, err := cancelled.Confirm(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestBusyIntervalsSkipsCancelled(t *testing.T) {
	a := testAppointment(t)
	c, _ := a.Cancel()
	busy := BusyIntervals([]Appointment{a, c})
	if len(busy) != 1 || !busy[0].Start.Equal(a.DateTime) {
		t.Fatalf("expected only the active interval, got %v", busy)
	}
}

func TestClientInfoValidation(t *testing.T) {
	if _, err := NewClientInfo("", "ada@example.com", "", "", nil); !errors.Is(err, ErrInvalidClientInfo) {
		t.Fatalf("expected ErrInvalidClientInfo for missing name, got %v", err)
	}
	if _, err := NewClientInfo("Ada", "not-an-email", "", "", nil); !errors.Is(err, ErrInvalidClientInfo) {
		t.Fatalf("expected ErrInvalidClientInfo for bad email, got %v", err)
	}
	c, err := NewClientInfo(" Ada ", "ada@example.com", " 555 ", "", map[string]string{"company": "Acme", " ": "x"})
	if err != nil {
		t.Fatalf("NewClientInfo failed: %v", err)
	}
	if c.Name != "Ada" || c.Phone != "555" || len(c.Extra) != 1 {
		t.Fatalf("unexpected normalisation %+v", c)
	}
	if err := c.Require([]string{"name", "Phone", "company"}); err != nil {
		t.Fatalf("expected required fields satisfied, got %v", err)
	}
	if err := c.Require([]string{"notes", "vat"}); !errors.Is(err, ErrInvalidClientInfo) {
		t.Fatalf("expected missing field error, got %v", err)
	}
}

func TestRequiredExtraFieldIgnoresSurroundingSpace(t *testing.T) {
	c, err := NewClientInfo("Ada", "ada@example.com", "", "", map[string]string{" company ": "Acme"})
	if err != nil {
		t.Fatalf("NewClientInfo failed: %v", err)
	}
	if got := c.Field(" company"); got != "Acme" {
		t.Fatalf("Field(%q) = %q, want Acme", " company", got)
	}
	if err := c.Require([]string{" company", "company\t"}); err != nil {
		t.Fatalf("padded required field should match stored key, got %v", err)
	}
}

func TestActivityValidate(t *testing.T) {
	if err := testActivity().Validate(); err != nil {
		t.Fatalf("expected valid activity, got %v", err)
	}
	bad := testActivity()
	bad.DurationMinutes = 0
	if err := bad.Validate(); !errors.Is(err, ErrInvalidActivity) {
		t.Fatalf("expected ErrInvalidActivity, got %v", err)
	}
}

func TestCalendarEventProjection(t *testing.T) {
	a := testAppointment(t)
	ev := NewCalendarEvent(a, "#ff0000")
	if ev.Title != "Consultation - Ada" || ev.Color != "#ff0000" || ev.ExtendedProps["status"] != "pending" {
		t.Fatalf("unexpected event %+v", ev)
	}
	c, _ := a.Cancel()
	if NewCalendarEvent(c, "#ff0000").Color != cancelledEventColor {
		t.Fatal("cancelled events use the muted color")
	}
	if NewCalendarEvent(a, "").Color != defaultEventColor {
		t.Fatal("expected default color when the activity has none")
	}
}
