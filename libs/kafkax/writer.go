package kafkax

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// NewWriter returns a writer that routes by message Topic and hashes on Key,
// so events of one appointment stay ordered within a partition.
func NewWriter(brokers string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(SplitBrokers(brokers)...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

// Message builds the record for one event: the topic is the event type and the
// key is the aggregate id. The trace in ctx travels in the headers.
func Message(ctx context.Context, meta EventMeta, payload []byte) kafka.Message {
	h := meta.headers()
	otel.GetTextMapPropagator().Inject(ctx, &h)
	return kafka.Message{
		Topic:   meta.EventType,
		Key:     []byte(meta.AggregateID),
		Value:   payload,
		Headers: h,
	}
}
