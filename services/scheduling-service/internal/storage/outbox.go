package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sitefolio/scheduling/libs/db"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/outbox"
)

// EventWriter appends an event to the outbox inside an open transaction.
type EventWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OutboxAppointmentRepository commits every lifecycle write together with its
// outbox row. Either both land or neither does.
type OutboxAppointmentRepository struct {
	*AppointmentRepository
	db     txBeginner
	events EventWriter
}

func NewOutboxAppointmentRepository(pool *db.Pool, events EventWriter) *OutboxAppointmentRepository {
	return &OutboxAppointmentRepository{
		AppointmentRepository: NewAppointmentRepository(pool),
		db:                    pool,
		events:                events,
	}
}

func (r *OutboxAppointmentRepository) SaveWithEvent(ctx context.Context, a model.Appointment, event outbox.EventFunc) (model.Appointment, error) {
	var saved model.Appointment
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		if saved, err = insertAppointment(ctx, tx, a); err != nil {
			return err
		}
		return r.append(ctx, tx, saved, event)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return saved, nil
}

func (r *OutboxAppointmentRepository) UpdateWithOptimisticLockAndEvent(ctx context.Context, a model.Appointment, event outbox.EventFunc) (model.Appointment, error) {
	var saved model.Appointment
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		if saved, err = updateLocked(ctx, tx, a); err != nil {
			return err
		}
		return r.append(ctx, tx, saved, event)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return saved, nil
}

// DeleteWithEvent removes a and records the event built from its last state.
func (r *OutboxAppointmentRepository) DeleteWithEvent(ctx context.Context, a model.Appointment, event outbox.EventFunc) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := deleteAppointment(ctx, tx, a.ID); err != nil {
			return err
		}
		return r.append(ctx, tx, a, event)
	})
}

func (r *OutboxAppointmentRepository) append(ctx context.Context, tx pgx.Tx, a model.Appointment, event outbox.EventFunc) error {
	evt, err := event(a)
	if err != nil {
		return fmt.Errorf("build event: %w", err)
	}
	if err := r.events.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("write outbox event: %w", err)
	}
	return nil
}
