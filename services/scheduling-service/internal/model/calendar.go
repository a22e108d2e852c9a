package model

import "time"

// CalendarEvent is the read model fed to the admin calendar widget.
type CalendarEvent struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Start         time.Time      `json:"start"`
	End           time.Time      `json:"end"`
	Color         string         `json:"color,omitempty"`
	ExtendedProps map[string]any `json:"extendedProps"`
}

const (
	defaultEventColor   = "#3788d8"
	cancelledEventColor = "#9e9e9e"
)

// NewCalendarEvent projects an appointment. activityColor may be empty.
func NewCalendarEvent(a Appointment, activityColor string) CalendarEvent {
	color := activityColor
	if color == "" {
		color = defaultEventColor
	}
	if a.Status == StatusCancelled {
		color = cancelledEventColor
	}
	title := a.ActivityName
	if a.Client.Name != "" {
		title += " - " + a.Client.Name
	}
	return CalendarEvent{
		ID:    a.ID,
		Title: title,
		Start: a.DateTime,
		End:   a.EndDateTime(),
		Color: color,
		ExtendedProps: map[string]any{
			"status":       string(a.Status),
			"activityId":   a.ActivityID,
			"clientInfo":   a.Client,
			"version":      a.Version,
			"reminderSent": a.ReminderSent,
		},
	}
}
