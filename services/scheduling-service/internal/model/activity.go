package model

import (
	"fmt"
	"strings"
	"time"
)

// Activity is a bookable service type.
type Activity struct {
	ID                        string    `json:"id"`
	Name                      string    `json:"name"`
	Description               string    `json:"description,omitempty"`
	DurationMinutes           int       `json:"durationMinutes"`
	MinimumBookingNoticeHours int       `json:"minimumBookingNoticeHours"`
	RequiredFields            []string  `json:"requiredFields"`
	Price                     float64   `json:"price"`
	Color                     string    `json:"color,omitempty"`
	CreatedAt                 time.Time `json:"createdAt"`
	UpdatedAt                 time.Time `json:"updatedAt"`
}

func (a Activity) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

func (a Activity) MinimumNotice() time.Duration {
	return time.Duration(a.MinimumBookingNoticeHours) * time.Hour
}

func (a Activity) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidActivity)
	}
	if a.DurationMinutes <= 0 || a.DurationMinutes > 24*60 {
		return fmt.Errorf("%w: duration must be between 1 and 1440 minutes", ErrInvalidActivity)
	}
	if a.MinimumBookingNoticeHours < 0 {
		return fmt.Errorf("%w: minimum booking notice cannot be negative", ErrInvalidActivity)
	}
	if a.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidActivity)
	}
	return nil
}
