package booking

import (
	"errors"
	"fmt"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrActivityNotFound    = fmt.Errorf("activity %w", ErrNotFound)
	ErrAppointmentNotFound = fmt.Errorf("appointment %w", ErrNotFound)
	ErrNoticeViolation     = errors.New("requested time is inside the minimum booking notice")
	ErrSlotUnavailable     = errors.New("requested time is no longer available")

	// Re-exported so callers only need this package to classify use-case errors.
	ErrVersionConflict   = model.ErrVersionConflict
	ErrInvalidTransition = model.ErrInvalidTransition
	ErrInvalidClientInfo = model.ErrInvalidClientInfo
)
