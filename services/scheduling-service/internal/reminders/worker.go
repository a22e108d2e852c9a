package reminders

import (
	"context"
	"log/slog"
	"time"

	otelx "github.com/sitefolio/scheduling/libs/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Sweeper marks and announces appointments due for a reminder.
type Sweeper interface {
	SendDueReminders(ctx context.Context, lead time.Duration) (int, error)
}

type Worker struct {
	sweeper  Sweeper
	logger   *slog.Logger
	interval time.Duration
	lead     time.Duration
}

type WorkerConfig struct {
	Interval time.Duration
	Lead     time.Duration
}

func NewWorker(sweeper Sweeper, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Lead <= 0 {
		cfg.Lead = 24 * time.Hour
	}
	return &Worker{
		sweeper:  sweeper,
		logger:   logger,
		interval: cfg.Interval,
		lead:     cfg.Lead,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reminder worker started", "interval", w.interval.String(), "lead", w.lead.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	ctx, span := otelx.Tracer("reminders").Start(ctx, "reminders.sweep")
	defer span.End()

	n, err := w.sweeper.SendDueReminders(ctx, w.lead)
	span.SetAttributes(attribute.Int("reminders.sent", n))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sweep failed")
		w.logger.Error("reminder sweep failed", "err", err, "sent", n)
		return
	}
	if n > 0 {
		w.logger.Info("reminders requested", "count", n)
	}
}
