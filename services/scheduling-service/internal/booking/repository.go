package booking

import (
	"context"
	"time"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/outbox"
)

// Lookups return ok=false with a nil error when the record does not exist.

type ActivityRepository interface {
	FindByID(ctx context.Context, id string) (model.Activity, bool, error)
	FindAll(ctx context.Context) ([]model.Activity, error)
}

// AvailabilityRepository stores the single Availability record.
type AvailabilityRepository interface {
	Find(ctx context.Context) (availability.Availability, bool, error)
	Save(ctx context.Context, a availability.Availability) (availability.Availability, error)
	Update(ctx context.Context, a availability.Availability) (availability.Availability, error)
}

type AppointmentRepository interface {
	FindByID(ctx context.Context, id string) (model.Appointment, bool, error)
	FindAll(ctx context.Context) ([]model.Appointment, error)
	// FindByDateRange returns appointments of any status whose interval intersects [start, end).
	FindByDateRange(ctx context.Context, start, end time.Time) ([]model.Appointment, error)
	// HasOverlappingAppointment reports whether an active appointment intersects
	// [start, start+durationMinutes).
	HasOverlappingAppointment(ctx context.Context, start time.Time, durationMinutes int) (bool, error)
	// Save inserts a new appointment. A storage-level overlap guard reports model.ErrSlotTaken.
	Save(ctx context.Context, a model.Appointment) (model.Appointment, error)
	// Update overwrites non-status fields without a version check.
	Update(ctx context.Context, a model.Appointment) (model.Appointment, error)
	// UpdateWithOptimisticLock writes a when the stored version equals a.Version and
	// returns the row with the bumped version. A mismatch yields model.ErrVersionConflict.
	UpdateWithOptimisticLock(ctx context.Context, a model.Appointment) (model.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// TransactionalAppointmentRepository writes the lifecycle event in the same
// transaction as the appointment change. When the configured repository
// implements it, the EventRecorder is bypassed for those writes.
type TransactionalAppointmentRepository interface {
	AppointmentRepository
	SaveWithEvent(ctx context.Context, a model.Appointment, event outbox.EventFunc) (model.Appointment, error)
	UpdateWithOptimisticLockAndEvent(ctx context.Context, a model.Appointment, event outbox.EventFunc) (model.Appointment, error)
	DeleteWithEvent(ctx context.Context, a model.Appointment, event outbox.EventFunc) error
}

// EventRecorder receives appointment lifecycle events.
type EventRecorder interface {
	Record(ctx context.Context, evt outbox.Event) error
}
