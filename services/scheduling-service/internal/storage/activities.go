package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/sitefolio/scheduling/libs/db"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
)

type ActivityRepository struct {
	pool *db.Pool
}

func NewActivityRepository(pool *db.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

const activityColumns = `id, name, description, duration_minutes, minimum_booking_notice_hours,
	required_fields, price, color, created_at, updated_at`

func (r *ActivityRepository) FindByID(ctx context.Context, id string) (model.Activity, bool, error) {
	a, err := scanActivity(r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Activity{}, false, nil
	}
	if err != nil {
		return model.Activity{}, false, err
	}
	return a, true, nil
}

func (r *ActivityRepository) FindAll(ctx context.Context) ([]model.Activity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Upsert inserts or replaces an activity by id. Used by catalog imports.
func (r *ActivityRepository) Upsert(ctx context.Context, a model.Activity) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activities (id, name, description, duration_minutes, minimum_booking_notice_hours, required_fields, price, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			description = EXCLUDED.description,
			duration_minutes = EXCLUDED.duration_minutes,
			minimum_booking_notice_hours = EXCLUDED.minimum_booking_notice_hours,
			required_fields = EXCLUDED.required_fields,
			price = EXCLUDED.price,
			color = EXCLUDED.color,
			updated_at = now()
	`, a.ID, a.Name, a.Description, a.DurationMinutes, a.MinimumBookingNoticeHours, nonNilStrings(a.RequiredFields), a.Price, a.Color)
	return err
}

func scanActivity(row pgx.Row) (model.Activity, error) {
	var a model.Activity
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&a.DurationMinutes,
		&a.MinimumBookingNoticeHours,
		&a.RequiredFields,
		&a.Price,
		&a.Color,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
