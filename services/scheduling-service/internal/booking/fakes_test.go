package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/outbox"
)

type fakeActivities struct {
	items map[string]model.Activity
	err   error
}

func (f *fakeActivities) FindByID(_ context.Context, id string) (model.Activity, bool, error) {
	if f.err != nil {
		return model.Activity{}, false, f.err
	}
	a, ok := f.items[id]
	return a, ok, nil
}

func (f *fakeActivities) FindAll(context.Context) ([]model.Activity, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Activity, 0, len(f.items))
	for _, a := range f.items {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeAvailability struct {
	mu      sync.Mutex
	current *availability.Availability
	err     error
	saves   int
	updates int
	// concurrent, when set, is stored by the first Save, which then reports a
	// duplicate key as if another replica had inserted it.
	concurrent *availability.Availability
}

func (f *fakeAvailability) Find(context.Context) (availability.Availability, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return availability.Availability{}, false, f.err
	}
	if f.current == nil {
		return availability.Availability{}, false, nil
	}
	return *f.current, true, nil
}

func (f *fakeAvailability) Save(_ context.Context, a availability.Availability) (availability.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.concurrent != nil {
		f.current, f.concurrent = f.concurrent, nil
		return availability.Availability{}, errors.New("duplicate key value violates unique constraint")
	}
	f.current = &a
	return a, nil
}

func (f *fakeAvailability) Update(_ context.Context, a availability.Availability) (availability.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.current = &a
	return a, nil
}

type failingSaveAvailability struct {
	*fakeAvailability
}

func (f *failingSaveAvailability) Save(context.Context, availability.Availability) (availability.Availability, error) {
	return availability.Availability{}, errors.New("connection reset")
}

// fakeAppointments compares and swaps versions under a mutex, like the storage adapters.
type fakeAppointments struct {
	mu       sync.Mutex
	items    map[string]model.Appointment
	rangeErr error
	saveErr  error
	// loadBarrier, when set, holds every FindByID until all parties have loaded.
	loadBarrier *sync.WaitGroup
}

func newFakeAppointments(appts ...model.Appointment) *fakeAppointments {
	f := &fakeAppointments{items: map[string]model.Appointment{}}
	for _, a := range appts {
		f.items[a.ID] = a
	}
	return f
}

func (f *fakeAppointments) FindByID(_ context.Context, id string) (model.Appointment, bool, error) {
	f.mu.Lock()
	a, ok := f.items[id]
	f.mu.Unlock()
	if f.loadBarrier != nil {
		f.loadBarrier.Done()
		f.loadBarrier.Wait()
	}
	return a, ok, nil
}

func (f *fakeAppointments) FindAll(context.Context) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(model.Appointment) bool { return true }), nil
}

func (f *fakeAppointments) FindByDateRange(_ context.Context, start, end time.Time) ([]model.Appointment, error) {
	if f.rangeErr != nil {
		return nil, f.rangeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	window := availability.Interval{Start: start, End: end}
	return f.sorted(func(a model.Appointment) bool { return a.Interval().Overlaps(window) }), nil
}

func (f *fakeAppointments) HasOverlappingAppointment(_ context.Context, start time.Time, durationMinutes int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	return availability.OverlapsAny(start, end, model.BusyIntervals(f.sorted(func(model.Appointment) bool { return true }))), nil
}

func (f *fakeAppointments) Save(_ context.Context, a model.Appointment) (model.Appointment, error) {
	if f.saveErr != nil {
		return model.Appointment{}, f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[a.ID] = a
	return a, nil
}

func (f *fakeAppointments) Update(_ context.Context, a model.Appointment) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[a.ID] = a
	return a, nil
}

func (f *fakeAppointments) UpdateWithOptimisticLock(_ context.Context, a model.Appointment) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.items[a.ID]
	if !ok || stored.Version != a.Version {
		return model.Appointment{}, model.ErrVersionConflict
	}
	a.Version++
	f.items[a.ID] = a
	return a, nil
}

func (f *fakeAppointments) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeAppointments) sorted(keep func(model.Appointment) bool) []model.Appointment {
	var out []model.Appointment
	for _, a := range f.items {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out
}

type recordedEvents struct {
	mu     sync.Mutex
	events []outbox.Event
	err    error
}

func (r *recordedEvents) Record(_ context.Context, evt outbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, evt)
	return nil
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// Sunday 2026-01-25 12:00 UTC; the following Monday is 2026-01-26.
var fixedNow = time.Date(2026, 1, 25, 12, 0, 0, 0, time.UTC)

type harness struct {
	svc          *Service
	activities   *fakeActivities
	availability *fakeAvailability
	appointments *fakeAppointments
	events       *recordedEvents
}

func newHarness(appts ...model.Appointment) *harness {
	h := &harness{
		activities: &fakeActivities{items: map[string]model.Activity{
			"consult": {ID: "consult", Name: "Consultation", DurationMinutes: 60, Color: "#1e88e5"},
			"strict":  {ID: "strict", Name: "Strict", DurationMinutes: 30, MinimumBookingNoticeHours: 2, RequiredFields: []string{"phone"}},
		}},
		availability: &fakeAvailability{},
		appointments: newFakeAppointments(appts...),
		events:       &recordedEvents{},
	}
	ids := 0
	h.svc = NewService(h.activities, h.availability, h.appointments, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		Location: time.UTC,
		Events:   h.events,
		Now:      func() time.Time { return fixedNow },
		NewID: func() string {
			ids++
			return "id-" + strconv.Itoa(ids)
		},
	})
	return h
}

func (h *harness) withMondayMorning() {
	ws, err := availability.NewWeeklySlot(1, "09:00", "11:00")
	if err != nil {
		panic(err)
	}
	a, err := availability.New([]availability.WeeklySlot{ws}, nil)
	if err != nil {
		panic(err)
	}
	h.availability.current = &a
}

func appointmentAt(id string, start time.Time, status model.Status) model.Appointment {
	return model.Appointment{
		ID:                      id,
		ActivityID:              "consult",
		ActivityName:            "Consultation",
		ActivityDurationMinutes: 60,
		Client:                  model.ClientInfo{Name: "Ada", Email: "ada@example.com"},
		DateTime:                start,
		Status:                  status,
		Version:                 1,
	}
}

func validClient() ClientInput {
	return ClientInput{Name: "Grace", Email: "grace@example.com", Phone: "555-0100"}
}
