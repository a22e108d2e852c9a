package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sitefolio/scheduling/libs/httpx"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
)

// ListAppointments returns every appointment, or those intersecting ?start&end.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	start, end, ranged, err := h.parseRange(r)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var appts []model.Appointment
	if ranged {
		appts, err = h.svc.GetAppointmentsByDateRange(r.Context(), start, end)
	} else {
		appts, err = h.svc.GetAllAppointments(r.Context())
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appts)
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id := queryParam(r, "id")
	if id == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, "id required")
		return
	}
	appt, ok, err := h.svc.GetAppointmentByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "appointment not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

type idRequest struct {
	ID string `json:"id"`
}

func (h *Handler) decodeID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if !requireMethod(w, r, http.MethodPost) {
		return "", false
	}
	var req idRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid json body")
		return "", false
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, "id required")
		return "", false
	}
	return id, true
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.ConfirmAppointment(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.CancelAppointment(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAppointment(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	start, end, ranged, err := h.parseRange(r)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !ranged {
		httpx.WriteError(w, r, http.StatusBadRequest, "start and end are required")
		return
	}
	events, err := h.svc.GetCalendarEvents(r.Context(), start, end)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetAvailability(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

type availabilityRequest struct {
	WeeklySlots []struct {
		DayOfWeek int    `json:"dayOfWeek"`
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
	} `json:"weeklySlots"`
	Exceptions []struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
		Reason    string `json:"reason"`
	} `json:"exceptions"`
}

// UpdateAvailability replaces the whole schedule with the request body.
func (h *Handler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	weekly := make([]availability.WeeklySlot, 0, len(req.WeeklySlots))
	for i, s := range req.WeeklySlots {
		ws, err := availability.NewWeeklySlot(s.DayOfWeek, s.StartTime, s.EndTime)
		if err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("weeklySlots[%d]: %v", i, err))
			return
		}
		weekly = append(weekly, ws)
	}
	exceptions := make([]availability.Exception, 0, len(req.Exceptions))
	for i, e := range req.Exceptions {
		ex, err := availability.NewException(e.StartDate, e.EndDate, e.StartTime, e.EndTime, e.Reason)
		if err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("exceptions[%d]: %v", i, err))
			return
		}
		exceptions = append(exceptions, ex)
	}

	a, err := h.svc.UpdateAvailability(r.Context(), weekly, exceptions)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}
