package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sitefolio/scheduling/libs/db"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
)

// AvailabilityRepository keeps the schedule as one row with JSONB collections.
type AvailabilityRepository struct {
	pool *db.Pool
}

func NewAvailabilityRepository(pool *db.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

func (r *AvailabilityRepository) Find(ctx context.Context) (availability.Availability, bool, error) {
	var (
		a                  availability.Availability
		weekly, exceptions []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, weekly_slots, exceptions, created_at, updated_at
		FROM availability
		LIMIT 1
	`).Scan(&a.ID, &weekly, &exceptions, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return availability.Availability{}, false, nil
	}
	if err != nil {
		return availability.Availability{}, false, err
	}
	if err := decodeSchedule(&a, weekly, exceptions); err != nil {
		return availability.Availability{}, false, err
	}
	return a, true, nil
}

func (r *AvailabilityRepository) Save(ctx context.Context, a availability.Availability) (availability.Availability, error) {
	weekly, exceptions, err := encodeSchedule(a)
	if err != nil {
		return availability.Availability{}, err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO availability (id, weekly_slots, exceptions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING created_at, updated_at
	`, a.ID, weekly, exceptions, a.CreatedAt).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return availability.Availability{}, err
	}
	return a, nil
}

func (r *AvailabilityRepository) Update(ctx context.Context, a availability.Availability) (availability.Availability, error) {
	weekly, exceptions, err := encodeSchedule(a)
	if err != nil {
		return availability.Availability{}, err
	}
	err = r.pool.QueryRow(ctx, `
		UPDATE availability
		SET weekly_slots = $2,
			exceptions = $3,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, weekly, exceptions).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return availability.Availability{}, fmt.Errorf("availability %s does not exist", a.ID)
	}
	if err != nil {
		return availability.Availability{}, err
	}
	return a, nil
}

func encodeSchedule(a availability.Availability) ([]byte, []byte, error) {
	slots := a.WeeklySlots
	if slots == nil {
		slots = []availability.WeeklySlot{}
	}
	exceptions := a.Exceptions
	if exceptions == nil {
		exceptions = []availability.Exception{}
	}
	weeklyJSON, err := json.Marshal(slots)
	if err != nil {
		return nil, nil, fmt.Errorf("encode weekly slots: %w", err)
	}
	exceptionsJSON, err := json.Marshal(exceptions)
	if err != nil {
		return nil, nil, fmt.Errorf("encode exceptions: %w", err)
	}
	return weeklyJSON, exceptionsJSON, nil
}

// decodeSchedule fills both collections from their JSONB columns and rejects a
// stored schedule that would not pass validation on write.
func decodeSchedule(a *availability.Availability, weekly, exceptions []byte) error {
	if err := json.Unmarshal(weekly, &a.WeeklySlots); err != nil {
		return fmt.Errorf("decode weekly slots: %w", err)
	}
	if err := json.Unmarshal(exceptions, &a.Exceptions); err != nil {
		return fmt.Errorf("decode exceptions: %w", err)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("stored availability %s: %w", a.ID, err)
	}
	return nil
}
