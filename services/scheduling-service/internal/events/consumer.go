package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sitefolio/scheduling/libs/kafkax"
	otelx "github.com/sitefolio/scheduling/libs/otel"
)

// Envelope is one decoded lifecycle event as read back from Kafka.
type Envelope struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Partition   int             `json:"partition"`
	Offset      int64           `json:"offset"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

type Handler func(ctx context.Context, env Envelope) error

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader  MessageReader
	logger  *slog.Logger
	seen    *Inbox
	handler Handler
}

type Config struct {
	Brokers string
	GroupID string
	Topics  []string
}

// NewReader builds a reader over cfg.Topics. Without a group id only the first
// topic is read, from its latest offset.
func NewReader(cfg Config) *kafka.Reader {
	rc := kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	if cfg.GroupID != "" {
		rc.GroupID = cfg.GroupID
		rc.GroupTopics = cfg.Topics
	} else {
		if len(cfg.Topics) > 0 {
			rc.Topic = cfg.Topics[0]
		}
		rc.StartOffset = kafka.LastOffset
	}
	return kafka.NewReader(rc)
}

func New(logger *slog.Logger, reader MessageReader, seen *Inbox, handler Handler) *Consumer {
	if seen == nil {
		seen = NewInbox(0)
	}
	return &Consumer{reader: reader, logger: logger, seen: seen, handler: handler}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	ctxMsg := kafkax.TraceContext(ctx, msg)
	ctxSpan, span := otelx.Tracer("events").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ParseEventMeta(msg)
	if !c.seen.Record(meta.EventID) {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return
	}

	payload := json.RawMessage(msg.Value)
	if !json.Valid(payload) {
		c.logger.Error("invalid event payload", "event_id", meta.EventID, "topic", msg.Topic)
		return
	}

	env := Envelope{
		EventID:     meta.EventID,
		EventType:   meta.EventType,
		AggregateID: meta.AggregateID,
		Partition:   msg.Partition,
		Offset:      msg.Offset,
		OccurredAt:  meta.OccurredAt,
		Payload:     payload,
	}
	if err := c.handler(ctxSpan, env); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
	}
}
