package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sitefolio/scheduling/libs/kafkax"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func sampleAppointment() model.Appointment {
	return model.Appointment{
		ID:                      "apt-1",
		ActivityID:              "act-1",
		ActivityName:            "Consultation",
		ActivityDurationMinutes: 30,
		Client:                  model.ClientInfo{Name: "Ada", Email: "ada@example.com"},
		DateTime:                time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Status:                  model.StatusConfirmed,
		Version:                 2,
	}
}

func TestNewAppointmentEventPayload(t *testing.T) {
	evt, err := NewAppointmentEvent(EventAppointmentConfirmed, sampleAppointment(), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewAppointmentEvent failed: %v", err)
	}
	if evt.AggregateID != "apt-1" || evt.EventType != EventAppointmentConfirmed || evt.AggregateType != "appointment" {
		t.Fatalf("unexpected envelope %+v", evt)
	}
	var payload map[string]any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if payload["end_time"] != "2026-03-02T09:30:00Z" || payload["status"] != "confirmed" || payload["version"] != float64(2) {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestKafkaRecorderWritesTopicPerEventType(t *testing.T) {
	w := &captureWriter{}
	rec := NewKafkaRecorder(w)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	evt, _ := NewAppointmentEvent(EventAppointmentBooked, sampleAppointment(), at)
	if err := rec.Record(context.Background(), evt); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if msg.Topic != EventAppointmentBooked || string(msg.Key) != "apt-1" {
		t.Fatalf("unexpected message routing %s/%s", msg.Topic, msg.Key)
	}
	meta := kafkax.ParseEventMeta(msg)
	if meta.EventID == "" || meta.EventID == "apt-1" || meta.EventType != EventAppointmentBooked {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if meta.AggregateID != "apt-1" || !meta.OccurredAt.Equal(at) {
		t.Fatalf("event headers lost the appointment identity: %+v", meta)
	}
}

func TestKafkaRecorderReturnsWriteError(t *testing.T) {
	rec := NewKafkaRecorder(&captureWriter{err: errors.New("broker down")})
	if err := rec.Record(context.Background(), Event{EventType: "x"}); err == nil {
		t.Fatal("expected write error")
	}
}

func TestRecordMessageCarriesOutboxIdentity(t *testing.T) {
	written := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	msg := recordMessage(context.Background(), Record{
		ID:          7,
		EventID:     "evt-7",
		AggregateID: "apt-1",
		EventType:   EventAppointmentCancelled,
		Payload:     []byte(`{}`),
		CreatedAt:   written,
	})
	meta := kafkax.ParseEventMeta(msg)
	if msg.Topic != EventAppointmentCancelled || meta.EventID != "evt-7" || string(msg.Key) != "apt-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !meta.OccurredAt.Equal(written) {
		t.Fatalf("expected occurred_at from the outbox row, got %s", meta.OccurredAt)
	}
}

func TestDiscardAcceptsEverything(t *testing.T) {
	if err := (Discard{}).Record(context.Background(), Event{}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
