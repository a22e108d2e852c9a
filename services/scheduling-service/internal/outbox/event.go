package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
)

// Event is the envelope written to the outbox table or straight to Kafka.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	OccurredAt    time.Time
}

const (
	EventAppointmentBooked    = "scheduling.appointment.booked.v1"
	EventAppointmentConfirmed = "scheduling.appointment.confirmed.v1"
	EventAppointmentCancelled = "scheduling.appointment.cancelled.v1"
	EventAppointmentDeleted   = "scheduling.appointment.deleted.v1"
	EventReminderRequested    = "scheduling.appointment.reminder_requested.v1"

	aggregateAppointment = "appointment"
)

// AppointmentEventTypes lists every lifecycle topic the service publishes.
var AppointmentEventTypes = []string{
	EventAppointmentBooked,
	EventAppointmentConfirmed,
	EventAppointmentCancelled,
	EventAppointmentDeleted,
	EventReminderRequested,
}

// NewAppointmentEvent snapshots appt into an event of the given type.
func NewAppointmentEvent(eventType string, appt model.Appointment, at time.Time) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id":   appt.ID,
		"activity_id":      appt.ActivityID,
		"activity_name":    appt.ActivityName,
		"duration_minutes": appt.ActivityDurationMinutes,
		"client_name":      appt.Client.Name,
		"client_email":     appt.Client.Email,
		"client_phone":     appt.Client.Phone,
		"status":           string(appt.Status),
		"version":          appt.Version,
		"start_time":       appt.DateTime.UTC().Format(time.RFC3339),
		"end_time":         appt.EndDateTime().UTC().Format(time.RFC3339),
		"occurred_at":      at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
		OccurredAt:    at,
	}, nil
}

// EventFunc builds the event for an appointment as it was written.
type EventFunc func(model.Appointment) (Event, error)

// Discard drops every event. Used when no event sink is configured.
type Discard struct{}

func (Discard) Record(context.Context, Event) error { return nil }
