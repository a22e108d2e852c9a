package outbox

import (
	"context"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sitefolio/scheduling/libs/kafkax"
)

// MessageWriter is the subset of *kafka.Writer the recorder needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaRecorder writes events straight to Kafka for backends without an outbox table.
type KafkaRecorder struct {
	writer MessageWriter
}

func NewKafkaRecorder(writer MessageWriter) *KafkaRecorder {
	return &KafkaRecorder{writer: writer}
}

func (k *KafkaRecorder) Record(ctx context.Context, evt Event) error {
	msg := kafkax.Message(ctx, kafkax.EventMeta{
		EventID:     uuid.NewString(),
		EventType:   evt.EventType,
		AggregateID: evt.AggregateID,
		OccurredAt:  evt.OccurredAt,
	}, evt.Payload)
	return k.writer.WriteMessages(ctx, msg)
}
