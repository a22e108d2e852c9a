package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sitefolio/scheduling/libs/db"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
)

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

const appointmentColumns = `id, activity_id, activity_name, activity_duration_minutes,
	client_name, client_email, client_phone, client_notes, client_extra,
	date_time, status, version, reminder_sent, created_at, updated_at`

func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (model.Appointment, bool, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

func (r *AppointmentRepository) FindAll(ctx context.Context) ([]model.Appointment, error) {
	return r.list(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY date_time ASC`)
}

func (r *AppointmentRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date_time < $2 AND end_time > $1
		ORDER BY date_time ASC
	`, start, end)
}

func (r *AppointmentRepository) HasOverlappingAppointment(ctx context.Context, start time.Time, durationMinutes int) (bool, error) {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE status <> 'cancelled'
				AND date_time < $2
				AND end_time > $1
		)
	`, start, end).Scan(&exists)
	return exists, err
}

// Save inserts a. The exclusion constraint closes the window between the overlap
// check and this insert; a violation is reported as model.ErrSlotTaken.
func (r *AppointmentRepository) Save(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	return insertAppointment(ctx, r.pool, a)
}

// Update overwrites a by id without checking the version.
func (r *AppointmentRepository) Update(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	extra, err := encodeExtra(a.Client.Extra)
	if err != nil {
		return model.Appointment{}, err
	}
	updated, err := scanAppointment(r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET client_name = $2,
			client_email = $3,
			client_phone = $4,
			client_notes = $5,
			client_extra = $6,
			date_time = $7,
			end_time = $8,
			status = $9,
			reminder_sent = $10,
			updated_at = $11
		WHERE id = $1
		RETURNING `+appointmentColumns,
		a.ID, a.Client.Name, a.Client.Email, a.Client.Phone, a.Client.Notes, extra,
		a.DateTime, a.EndDateTime(), string(a.Status), a.ReminderSent, a.UpdatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("appointment %s does not exist", a.ID)
	}
	if err != nil {
		return model.Appointment{}, translate(err)
	}
	return updated, nil
}

// UpdateWithOptimisticLock writes a only while the row still carries a.Version.
// No matching row means another writer got there first (or deleted it).
func (r *AppointmentRepository) UpdateWithOptimisticLock(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	return updateLocked(ctx, r.pool, a)
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	return deleteAppointment(ctx, r.pool, id)
}

// querier is satisfied by both *db.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertAppointment(ctx context.Context, q querier, a model.Appointment) (model.Appointment, error) {
	extra, err := encodeExtra(a.Client.Extra)
	if err != nil {
		return model.Appointment{}, err
	}
	_, err = q.Exec(ctx, `
		INSERT INTO appointments
			(id, activity_id, activity_name, activity_duration_minutes,
			 client_name, client_email, client_phone, client_notes, client_extra,
			 date_time, end_time, status, version, reminder_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, a.ID, a.ActivityID, a.ActivityName, a.ActivityDurationMinutes,
		a.Client.Name, a.Client.Email, a.Client.Phone, a.Client.Notes, extra,
		a.DateTime, a.EndDateTime(), string(a.Status), a.Version, a.ReminderSent, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return model.Appointment{}, translate(err)
	}
	return a, nil
}

func updateLocked(ctx context.Context, q querier, a model.Appointment) (model.Appointment, error) {
	updated, err := scanAppointment(q.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
			reminder_sent = $4,
			updated_at = $5,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING `+appointmentColumns,
		a.ID, a.Version, string(a.Status), a.ReminderSent, a.UpdatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, model.ErrVersionConflict
	}
	if err != nil {
		return model.Appointment{}, translate(err)
	}
	return updated, nil
}

func deleteAppointment(ctx context.Context, q querier, id string) error {
	_, err := q.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	return err
}

func (r *AppointmentRepository) list(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a      model.Appointment
		status string
		extra  []byte
	)
	err := row.Scan(
		&a.ID,
		&a.ActivityID,
		&a.ActivityName,
		&a.ActivityDurationMinutes,
		&a.Client.Name,
		&a.Client.Email,
		&a.Client.Phone,
		&a.Client.Notes,
		&extra,
		&a.DateTime,
		&status,
		&a.Version,
		&a.ReminderSent,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	if a.Status, err = model.ParseStatus(status); err != nil {
		return model.Appointment{}, err
	}
	if a.Client.Extra, err = decodeExtra(extra); err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

func encodeExtra(extra map[string]string) ([]byte, error) {
	if len(extra) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("encode client extra: %w", err)
	}
	return b, nil
}

func decodeExtra(raw []byte) (map[string]string, error) {
	var extra map[string]string
	if len(raw) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &extra); err != nil {
		return nil, fmt.Errorf("decode client extra: %w", err)
	}
	if len(extra) == 0 {
		return nil, nil
	}
	return extra, nil
}

// translate maps constraint violations onto domain errors.
func translate(err error) error {
	if db.HasCode(err, db.CodeExclusionViolation) {
		return fmt.Errorf("%w: %v", model.ErrSlotTaken, err)
	}
	return err
}
