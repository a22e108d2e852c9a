package model

import (
	"fmt"
	"time"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
)

// Appointment is a booking. Activity name and duration are copied at creation so
// later catalog edits do not rewrite history. Version is compared by storage on
// every status change.
type Appointment struct {
	ID                      string     `json:"id"`
	ActivityID              string     `json:"activityId"`
	ActivityName            string     `json:"activityName"`
	ActivityDurationMinutes int        `json:"activityDurationMinutes"`
	Client                  ClientInfo `json:"clientInfo"`
	DateTime                time.Time  `json:"dateTime"`
	Status                  Status     `json:"status"`
	Version                 int64      `json:"version"`
	ReminderSent            bool       `json:"reminderSent"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// NewAppointment builds a pending appointment at version 1.
func NewAppointment(id string, activity Activity, start time.Time, client ClientInfo, now time.Time) (Appointment, error) {
	if id == "" {
		return Appointment{}, fmt.Errorf("%w: id is required", ErrInvalidAppointment)
	}
	if activity.DurationMinutes <= 0 {
		return Appointment{}, fmt.Errorf("%w: activity %s has no duration", ErrInvalidAppointment, activity.ID)
	}
	if start.IsZero() {
		return Appointment{}, fmt.Errorf("%w: start time is required", ErrInvalidAppointment)
	}
	return Appointment{
		ID:                      id,
		ActivityID:              activity.ID,
		ActivityName:            activity.Name,
		ActivityDurationMinutes: activity.DurationMinutes,
		Client:                  client,
		DateTime:                start,
		Status:                  StatusPending,
		Version:                 1,
		CreatedAt:               now,
		UpdatedAt:               now,
	}, nil
}

func (a Appointment) EndDateTime() time.Time {
	return a.DateTime.Add(time.Duration(a.ActivityDurationMinutes) * time.Minute)
}

func (a Appointment) Interval() availability.Interval {
	return availability.Interval{Start: a.DateTime, End: a.EndDateTime()}
}

// Confirm returns a copy in confirmed status. Version is left for storage to bump.
func (a Appointment) Confirm() (Appointment, error) {
	return a.transition(StatusConfirmed)
}

// Cancel returns a copy in cancelled status.
func (a Appointment) Cancel() (Appointment, error) {
	return a.transition(StatusCancelled)
}

func (a Appointment) WithReminderSent() Appointment {
	a.ReminderSent = true
	return a
}

func (a Appointment) transition(next Status) (Appointment, error) {
	if !a.Status.CanTransitionTo(next) {
		return Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, next)
	}
	a.Status = next
	return a, nil
}

// BusyIntervals returns the time ranges held by active appointments; cancelled ones are inert.
func BusyIntervals(appts []Appointment) []availability.Interval {
	out := make([]availability.Interval, 0, len(appts))
	for _, a := range appts {
		if !a.Status.Active() {
			continue
		}
		out = append(out, a.Interval())
	}
	return out
}
