package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/sitefolio/scheduling/libs/db"
	"github.com/sitefolio/scheduling/libs/kafkax"
	"github.com/sitefolio/scheduling/libs/mongox"
	"github.com/sitefolio/scheduling/libs/redisx"
	"github.com/sitefolio/scheduling/libs/runtime"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/booking"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/cache"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/docstore"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/outbox"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/storage"
)

// ActivityStore is the catalog repository plus the seeding write used by schedctl.
type ActivityStore interface {
	booking.ActivityRepository
	Upsert(ctx context.Context, a model.Activity) error
}

// Backend is an opened persistence backend with its event sink. The postgres
// appointment store writes its own outbox rows, so Events only serves mongo.
type Backend struct {
	Activities   ActivityStore
	Availability booking.AvailabilityRepository
	Appointments booking.AppointmentRepository
	Events       booking.EventRecorder

	// Pool and Outbox are set only for the postgres backend.
	Pool   *db.Pool
	Outbox *outbox.Repository

	Checks []runtime.ReadyCheck

	closers []func()
}

// Open connects to the configured backend. When rdb is non-nil the availability
// record is cached in Redis.
func Open(ctx context.Context, cfg Config, rdb *redis.Client, logger *slog.Logger) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		b   *Backend
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendMongo:
		b, err = openMongo(ctx, cfg, logger)
	default:
		b, err = openPostgres(ctx, cfg, logger)
	}
	if err != nil {
		return nil, err
	}

	if rdb != nil {
		b.Availability = cache.NewAvailabilityRepository(b.Availability, rdb, cfg.CacheTTL, logger)
		b.Checks = append(b.Checks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	}
	if strings.TrimSpace(cfg.KafkaBrokers) != "" {
		b.Checks = append(b.Checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	}
	return b, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.AutoMigrate {
		applied, err := storage.Migrate(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("schema up to date", "applied", applied)
	}

	outboxRepo := outbox.NewRepository()
	return &Backend{
		Activities:   storage.NewActivityRepository(pool),
		Availability: storage.NewAvailabilityRepository(pool),
		Appointments: storage.NewOutboxAppointmentRepository(pool, outboxRepo),
		Events:       outbox.Discard{},
		Pool:         pool,
		Outbox:       outboxRepo,
		Checks:       []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}},
		closers:      []func(){pool.Close},
	}, nil
}

func openMongo(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	client, err := mongox.Open(ctx, cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("open mongo: %w", err)
	}
	disconnect := func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}

	store := docstore.New(client.Database(cfg.MongoDatabase))
	if err := store.EnsureIndexes(ctx); err != nil {
		disconnect()
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	b := &Backend{
		Activities:   store.Activities,
		Availability: store.Availability,
		Appointments: store.Appointments,
		Events:       outbox.Discard{},
		Checks:       []runtime.ReadyCheck{{Name: "mongo", Check: mongox.ReadyCheck(client)}},
		closers:      []func(){disconnect},
	}
	if strings.TrimSpace(cfg.KafkaBrokers) != "" {
		writer := kafkax.NewWriter(cfg.KafkaBrokers)
		b.Events = outbox.NewKafkaRecorder(writer)
		b.closers = append(b.closers, closeWriter(writer, logger))
	} else {
		logger.Warn("KAFKA_BROKERS not set; appointment events are dropped")
	}
	return b, nil
}

func closeWriter(w *kafka.Writer, logger *slog.Logger) func() {
	return func() {
		if err := w.Close(); err != nil {
			logger.Error("kafka writer close failed", "err", err)
		}
	}
}

// Service builds the booking use cases over the backend.
func (b *Backend) Service(logger *slog.Logger, loc *time.Location) *booking.Service {
	return booking.NewService(b.Activities, b.Availability, b.Appointments, logger, booking.Config{
		Location: loc,
		Events:   b.Events,
	})
}

// Close releases connections in reverse order of acquisition.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}
