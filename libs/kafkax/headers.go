package kafkax

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Header keys carried on every lifecycle event.
const (
	HeaderEventID     = "event_id"
	HeaderEventType   = "event_type"
	HeaderAggregateID = "aggregate_id"
	HeaderOccurredAt  = "occurred_at"
)

// Headers is a Kafka header list usable as an OpenTelemetry carrier.
type Headers []kafka.Header

var _ propagation.TextMapCarrier = (*Headers)(nil)

func (h Headers) Get(key string) string {
	for _, kv := range h {
		if kv.Key == key {
			return string(kv.Value)
		}
	}
	return ""
}

// Set replaces the first header named key, or appends one.
func (h *Headers) Set(key, value string) {
	for i := range *h {
		if (*h)[i].Key == key {
			(*h)[i].Value = []byte(value)
			return
		}
	}
	*h = append(*h, kafka.Header{Key: key, Value: []byte(value)})
}

func (h Headers) Keys() []string {
	keys := make([]string, 0, len(h))
	for _, kv := range h {
		keys = append(keys, kv.Key)
	}
	return keys
}

// EventMeta identifies one appointment lifecycle event on the wire.
type EventMeta struct {
	EventID     string
	EventType   string
	AggregateID string
	OccurredAt  time.Time
}

func (m EventMeta) headers() Headers {
	var h Headers
	h.Set(HeaderEventID, m.EventID)
	h.Set(HeaderEventType, m.EventType)
	if m.AggregateID != "" {
		h.Set(HeaderAggregateID, m.AggregateID)
	}
	if !m.OccurredAt.IsZero() {
		h.Set(HeaderOccurredAt, m.OccurredAt.UTC().Format(time.RFC3339Nano))
	}
	return h
}

// ParseEventMeta reads the event headers. Messages from producers that skip them
// fall back to the topic, the key and the broker timestamp; the event id then
// becomes the message position, which is stable across redeliveries.
func ParseEventMeta(msg kafka.Message) EventMeta {
	h := Headers(msg.Headers)
	meta := EventMeta{
		EventID:     h.Get(HeaderEventID),
		EventType:   h.Get(HeaderEventType),
		AggregateID: h.Get(HeaderAggregateID),
	}
	if meta.EventID == "" {
		meta.EventID = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	if meta.AggregateID == "" {
		meta.AggregateID = string(msg.Key)
	}
	if at, err := time.Parse(time.RFC3339Nano, h.Get(HeaderOccurredAt)); err == nil {
		meta.OccurredAt = at
	} else {
		meta.OccurredAt = msg.Time
	}
	return meta
}

// TraceContext continues the producer's trace from msg headers.
func TraceContext(ctx context.Context, msg kafka.Message) context.Context {
	h := Headers(msg.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &h)
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
