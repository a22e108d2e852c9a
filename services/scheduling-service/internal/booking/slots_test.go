package booking

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
)

var monday = availability.Date{Year: 2026, Month: time.January, Day: 26}

func slotStarts(slots []availability.TimeSlot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.Format("15:04")+"-"+s.End.Format("15:04"))
	}
	return out
}

func TestGetAvailableSlots(t *testing.T) {
	cases := []struct {
		name  string
		appts []model.Appointment
		want  []string
	}{
		{"free morning", nil, []string{"09:00-10:00", "10:00-11:00"}},
		{"first hour booked", []model.Appointment{appointmentAt("a", monday9, model.StatusPending)}, []string{"10:00-11:00"}},
		{"cancelled booking is inert", []model.Appointment{appointmentAt("a", monday9, model.StatusCancelled)}, []string{"09:00-10:00", "10:00-11:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(tc.appts...)
			h.withMondayMorning()
			slots, err := h.svc.GetAvailableSlots(context.Background(), "consult", monday)
			if err != nil {
				t.Fatalf("GetAvailableSlots failed: %v", err)
			}
			if got := slotStarts(slots); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestGetAvailableSlotsFullDayException(t *testing.T) {
	h := newHarness()
	h.withMondayMorning()
	off, _ := availability.NewException("2026-01-26", "2026-01-26", "", "", "closed")
	h.availability.current.Exceptions = []availability.Exception{off}

	slots, err := h.svc.GetAvailableSlots(context.Background(), "consult", monday)
	if err != nil {
		t.Fatalf("GetAvailableSlots failed: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected an empty, non-nil list, got %v", slots)
	}
}

func TestGetAvailableSlotsIsRepeatable(t *testing.T) {
	h := newHarness(appointmentAt("a", monday9.Add(time.Hour), model.StatusConfirmed))
	h.withMondayMorning()
	first, _ := h.svc.GetAvailableSlots(context.Background(), "consult", monday)
	second, _ := h.svc.GetAvailableSlots(context.Background(), "consult", monday)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %v and %v", first, second)
	}
}

func TestGetAvailableSlotsDegradesToEmpty(t *testing.T) {
	t.Run("no availability", func(t *testing.T) {
		h := newHarness()
		slots, err := h.svc.GetAvailableSlots(context.Background(), "consult", monday)
		if err != nil || len(slots) != 0 {
			t.Fatalf("expected empty result, got %v %v", slots, err)
		}
	})
	t.Run("availability store failing", func(t *testing.T) {
		h := newHarness()
		h.withMondayMorning()
		h.availability.err = errors.New("timeout")
		slots, err := h.svc.GetAvailableSlots(context.Background(), "consult", monday)
		if err != nil || len(slots) != 0 {
			t.Fatalf("expected empty result, got %v %v", slots, err)
		}
	})
	t.Run("appointment store failing", func(t *testing.T) {
		h := newHarness()
		h.withMondayMorning()
		h.appointments.rangeErr = errors.New("timeout")
		slots, err := h.svc.GetAvailableSlots(context.Background(), "consult", monday)
		if err != nil || len(slots) != 0 {
			t.Fatalf("expected empty result, got %v %v", slots, err)
		}
	})
	t.Run("no weekly slot that day", func(t *testing.T) {
		h := newHarness()
		h.withMondayMorning()
		slots, err := h.svc.GetAvailableSlots(context.Background(), "consult", monday.AddDays(1))
		if err != nil || len(slots) != 0 {
			t.Fatalf("expected empty result, got %v %v", slots, err)
		}
	})
}

func TestGetAvailableSlotsUnknownActivity(t *testing.T) {
	h := newHarness()
	h.withMondayMorning()
	if _, err := h.svc.GetAvailableSlots(context.Background(), "nope", monday); !errors.Is(err, ErrActivityNotFound) {
		t.Fatalf("expected ErrActivityNotFound, got %v", err)
	}
	if _, err := h.svc.GetAvailableDaysInWeek(context.Background(), "nope", monday); !errors.Is(err, ErrActivityNotFound) {
		t.Fatalf("expected ErrActivityNotFound, got %v", err)
	}
}

func TestGetAvailableSlotsHonoursNotice(t *testing.T) {
	h := newHarness()
	sun, _ := availability.NewWeeklySlot(0, "12:00", "16:00")
	a, _ := availability.New([]availability.WeeklySlot{sun}, nil)
	h.availability.current = &a

	// strict: 30 minute slots, 2h notice, now is Sunday 12:00.
	slots, err := h.svc.GetAvailableSlots(context.Background(), "strict", monday.AddDays(-1))
	if err != nil {
		t.Fatalf("GetAvailableSlots failed: %v", err)
	}
	want := []string{"14:00-14:30", "14:30-15:00", "15:00-15:30", "15:30-16:00"}
	if got := slotStarts(slots); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestGetAvailableDaysInWeek(t *testing.T) {
	h := newHarness()
	sun, _ := availability.NewWeeklySlot(0, "09:00", "11:00")
	mon, _ := availability.NewWeeklySlot(1, "09:00", "11:00")
	tue, _ := availability.NewWeeklySlot(2, "09:00", "11:00")
	wed, _ := availability.NewWeeklySlot(3, "09:00", "10:00")
	tueOff, _ := availability.NewException("2026-01-27", "2026-01-27", "", "", "training")
	a, _ := availability.New([]availability.WeeklySlot{sun, mon, tue, wed}, []availability.Exception{tueOff})
	h.availability.current = &a
	h.appointments.items["wed"] = appointmentAt("wed", time.Date(2026, 1, 28, 9, 0, 0, 0, time.UTC), model.StatusConfirmed)

	days, err := h.svc.GetAvailableDaysInWeek(context.Background(), "consult", monday.AddDays(-1))
	if err != nil {
		t.Fatalf("GetAvailableDaysInWeek failed: %v", err)
	}
	// Sunday is in the past, Tuesday is excluded, Wednesday is fully booked.
	if want := []string{"2026-01-26"}; !reflect.DeepEqual(days, want) {
		t.Fatalf("expected %v, got %v", want, days)
	}
}

func TestGetAvailableDaysInWeekWithoutAvailability(t *testing.T) {
	h := newHarness()
	days, err := h.svc.GetAvailableDaysInWeek(context.Background(), "consult", monday)
	if err != nil || days == nil || len(days) != 0 {
		t.Fatalf("expected an empty list, got %v %v", days, err)
	}
}
