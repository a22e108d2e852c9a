package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/sitefolio/scheduling/libs/httpx"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/booking"
)

func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	activities, err := h.svc.ListActivities(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, activities)
}

func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	activityID := queryParam(r, "activity_id")
	if activityID == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, "activity_id required")
		return
	}
	date, err := availability.ParseDate(queryParam(r, "date"))
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	slots, err := h.svc.GetAvailableSlots(r.Context(), activityID, date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slots)
}

func (h *Handler) Days(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	activityID := queryParam(r, "activity_id")
	if activityID == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, "activity_id required")
		return
	}
	weekStart, err := availability.ParseDate(queryParam(r, "week_start"))
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "week_start must be YYYY-MM-DD")
		return
	}
	days, err := h.svc.GetAvailableDaysInWeek(r.Context(), activityID, weekStart)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, days)
}

type bookRequest struct {
	ActivityID string `json:"activityId"`
	DateTime   string `json:"dateTime"`
	ClientInfo struct {
		Name  string            `json:"name"`
		Email string            `json:"email"`
		Phone string            `json:"phone"`
		Notes string            `json:"notes"`
		Extra map[string]string `json:"extra"`
	} `json:"clientInfo"`
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	req.ActivityID = strings.TrimSpace(req.ActivityID)
	if req.ActivityID == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, "activityId required")
		return
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.DateTime))
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "dateTime must be RFC 3339")
		return
	}

	appt, err := h.svc.CreateAppointment(r.Context(), booking.CreateAppointmentInput{
		ActivityID: req.ActivityID,
		DateTime:   start,
		Client: booking.ClientInput{
			Name:  req.ClientInfo.Name,
			Email: req.ClientInfo.Email,
			Phone: req.ClientInfo.Phone,
			Notes: req.ClientInfo.Notes,
			Extra: req.ClientInfo.Extra,
		},
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, appt)
}
