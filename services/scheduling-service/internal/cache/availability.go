package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/booking"
)

const (
	availabilityKey    = "scheduling:availability"
	availabilityGenKey = availabilityKey + ":gen"
)

// KV is the part of a Redis client the cache uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// AvailabilityRepository reads the schedule through Redis. Cached copies are keyed
// by a generation counter that every write bumps, so a read that loaded the old row
// before a write can only populate a key nobody reads any more.
// Redis failures fall back to the wrapped repository.
type AvailabilityRepository struct {
	next   booking.AvailabilityRepository
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

func NewAvailabilityRepository(next booking.AvailabilityRepository, kv KV, ttl time.Duration, logger *slog.Logger) *AvailabilityRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AvailabilityRepository{next: next, kv: kv, ttl: ttl, logger: logger}
}

func (c *AvailabilityRepository) Find(ctx context.Context) (availability.Availability, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("availability cache generation read failed", "err", err)
		return c.next.Find(ctx)
	}
	key := dataKey(gen)

	raw, err := c.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var a availability.Availability
		if err := json.Unmarshal(raw, &a); err == nil {
			return a, true, nil
		}
		c.logger.Warn("discarding undecodable cached availability", "err", err)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("availability cache read failed", "err", err)
	}

	a, ok, err := c.next.Find(ctx)
	if err != nil || !ok {
		return a, ok, err
	}
	if body, err := json.Marshal(a); err == nil {
		if err := c.kv.Set(ctx, key, body, c.ttl).Err(); err != nil {
			c.logger.Warn("availability cache write failed", "err", err)
		}
	}
	return a, true, nil
}

func (c *AvailabilityRepository) Save(ctx context.Context, a availability.Availability) (availability.Availability, error) {
	saved, err := c.next.Save(ctx, a)
	c.invalidate(ctx)
	return saved, err
}

func (c *AvailabilityRepository) Update(ctx context.Context, a availability.Availability) (availability.Availability, error) {
	saved, err := c.next.Update(ctx, a)
	c.invalidate(ctx)
	return saved, err
}

// generation returns the current counter value; a missing counter reads as "0".
func (c *AvailabilityRepository) generation(ctx context.Context) (string, error) {
	gen, err := c.kv.Get(ctx, availabilityGenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func (c *AvailabilityRepository) invalidate(ctx context.Context) {
	err := c.kv.Incr(ctx, availabilityGenKey).Err()
	if err == nil {
		return
	}
	c.logger.Warn("availability cache generation bump failed", "err", err)
	if gen, genErr := c.generation(ctx); genErr == nil {
		if err := c.kv.Del(ctx, dataKey(gen)).Err(); err != nil {
			c.logger.Warn("availability cache invalidation failed", "err", err)
		}
	}
}

func dataKey(gen string) string {
	return availabilityKey + ":" + gen
}
