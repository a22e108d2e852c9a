package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sitefolio/scheduling/libs/httpx"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/booking"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
)

// Service is the use-case surface served over HTTP.
type Service interface {
	ListActivities(ctx context.Context) ([]model.Activity, error)
	GetAvailableSlots(ctx context.Context, activityID string, date availability.Date) ([]availability.TimeSlot, error)
	GetAvailableDaysInWeek(ctx context.Context, activityID string, weekStart availability.Date) ([]string, error)
	CreateAppointment(ctx context.Context, in booking.CreateAppointmentInput) (model.Appointment, error)
	GetAllAppointments(ctx context.Context) ([]model.Appointment, error)
	GetAppointmentByID(ctx context.Context, id string) (model.Appointment, bool, error)
	GetAppointmentsByDateRange(ctx context.Context, start, end time.Time) ([]model.Appointment, error)
	ConfirmAppointment(ctx context.Context, id string) (model.Appointment, error)
	CancelAppointment(ctx context.Context, id string) (model.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
	GetCalendarEvents(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error)
	GetAvailability(ctx context.Context) (availability.Availability, error)
	UpdateAvailability(ctx context.Context, weekly []availability.WeeklySlot, exceptions []availability.Exception) (availability.Availability, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
	loc    *time.Location
}

// New builds the handler. loc interprets bare YYYY-MM-DD range bounds.
func New(svc Service, logger *slog.Logger, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{svc: svc, logger: logger, loc: loc}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/public/activities", h.ListActivities)
	mux.HandleFunc("/api/v1/public/slots", h.Slots)
	mux.HandleFunc("/api/v1/public/days", h.Days)
	mux.HandleFunc("/api/v1/public/book", h.Book)
	mux.HandleFunc("/api/v1/appointments", h.ListAppointments)
	mux.HandleFunc("/api/v1/appointments/get", h.GetAppointment)
	mux.HandleFunc("/api/v1/appointments/confirm", h.Confirm)
	mux.HandleFunc("/api/v1/appointments/cancel", h.Cancel)
	mux.HandleFunc("/api/v1/appointments/delete", h.Delete)
	mux.HandleFunc("/api/v1/calendar", h.Calendar)
	mux.HandleFunc("/api/v1/availability", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetAvailability(w, r)
			return
		}
		if r.Method == http.MethodPut {
			h.UpdateAvailability(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})
}

// writeServiceError maps use-case errors onto status codes; anything unclassified is a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		httpx.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable),
		errors.Is(err, booking.ErrVersionConflict),
		errors.Is(err, booking.ErrInvalidTransition):
		httpx.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrNoticeViolation),
		errors.Is(err, booking.ErrInvalidClientInfo),
		errors.Is(err, model.ErrInvalidAppointment):
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, availability.ErrInvalidTime),
		errors.Is(err, availability.ErrInvalidDate),
		errors.Is(err, availability.ErrInvalidRange),
		errors.Is(err, availability.ErrInvalidDay):
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", "request_id", httpx.RequestIDFromContext(r.Context()), "path", r.URL.Path, "err", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func queryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// parseInstant accepts RFC 3339 or a bare date, which means midnight in loc.
func (h *Handler) parseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := availability.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return d.Start(h.loc), nil
}

func (h *Handler) parseRange(r *http.Request) (time.Time, time.Time, bool, error) {
	rawStart, rawEnd := queryParam(r, "start"), queryParam(r, "end")
	if rawStart == "" && rawEnd == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	if rawStart == "" || rawEnd == "" {
		return time.Time{}, time.Time{}, false, errors.New("start and end are both required")
	}
	start, err := h.parseInstant(rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	end, err := h.parseInstant(rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return start, end, true, nil
}
