package booking

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/outbox"
)

// Service is the booking orchestrator. Every use case runs as a short sequence of
// repository calls; cross-entity checks are sequential, not transactional.
type Service struct {
	activities   ActivityRepository
	availability AvailabilityRepository
	appointments AppointmentRepository
	tx           TransactionalAppointmentRepository
	events       EventRecorder
	logger       *slog.Logger
	loc          *time.Location
	now          func() time.Time
	newID        func() string
}

type Config struct {
	// Location anchors weekly windows and calendar dates. Defaults to time.Local.
	Location *time.Location
	Events   EventRecorder
	Now      func() time.Time
	NewID    func() string
}

func NewService(activities ActivityRepository, avail AvailabilityRepository, appointments AppointmentRepository, logger *slog.Logger, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Events == nil {
		cfg.Events = outbox.Discard{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if logger == nil {
		logger = slog.Default()
	}
	tx, _ := appointments.(TransactionalAppointmentRepository)
	return &Service{
		activities:   activities,
		availability: avail,
		appointments: appointments,
		tx:           tx,
		events:       cfg.Events,
		logger:       logger,
		loc:          cfg.Location,
		now:          cfg.Now,
		newID:        cfg.NewID,
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}
