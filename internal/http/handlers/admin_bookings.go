package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GerganaNoneva/beautysalon/internal/http/middleware"
	"github.com/GerganaNoneva/beautysalon/pkg/logging"
)

// AdminBookingHandler serves the admin approval and direct booking endpoints.
type AdminBookingHandler struct {
	scheduler Scheduler
	logger    *logging.Logger
}

// NewAdminBookingHandler creates a new admin booking handler.
func NewAdminBookingHandler(scheduler Scheduler, logger *logging.Logger) *AdminBookingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminBookingHandler{scheduler: scheduler, logger: logger}
}

// ListPending returns the salon's pending requests.
// GET /admin/salons/{salonID}/requests
func (h *AdminBookingHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	salonID := chi.URLParam(r, "salonID")
	pending, err := h.scheduler.PendingRequests(r.Context(), salonID)
	if err != nil {
		writeServiceError(w, h.logger, err, "salon_id", salonID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"salon_id": salonID, "requests": pending})
}

// Approve confirms a pending request.
// POST /admin/salons/{salonID}/requests/{requestID}/approve
func (h *AdminBookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	salonID := chi.URLParam(r, "salonID")
	requestID, ok := parseID(w, r, "requestID")
	if !ok {
		return
	}
	appt, err := h.scheduler.ApproveRequest(r.Context(), salonID, requestID)
	if err != nil {
		writeServiceError(w, h.logger, err, "salon_id", salonID, "request_id", requestID)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Reject declines a pending request.
// POST /admin/salons/{salonID}/requests/{requestID}/reject
func (h *AdminBookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	salonID := chi.URLParam(r, "salonID")
	requestID, ok := parseID(w, r, "requestID")
	if !ok {
		return
	}
	req, err := h.scheduler.RejectRequest(r.Context(), salonID, requestID)
	if err != nil {
		writeServiceError(w, h.logger, err, "salon_id", salonID, "request_id", requestID)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// BookDirect creates a confirmed appointment without a client request.
// POST /admin/salons/{salonID}/appointments
func (h *AdminBookingHandler) BookDirect(w http.ResponseWriter, r *http.Request) {
	salonID := chi.URLParam(r, "salonID")
	var body BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	in, err := body.input(salonID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	appt, err := h.scheduler.BookDirect(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err, "salon_id", salonID, "date", in.Date)
		return
	}
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok {
		h.logger.Info("direct booking", "salon_id", salonID, "appointment_id", appt.ID, "admin", claims.Subject)
	}
	writeJSON(w, http.StatusCreated, appt)
}

// CancelAppointment cancels a confirmed appointment.
// DELETE /admin/salons/{salonID}/appointments/{appointmentID}
func (h *AdminBookingHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	salonID := chi.URLParam(r, "salonID")
	appointmentID, ok := parseID(w, r, "appointmentID")
	if !ok {
		return
	}
	appt, err := h.scheduler.CancelAppointment(r.Context(), salonID, appointmentID)
	if err != nil {
		writeServiceError(w, h.logger, err, "salon_id", salonID, "appointment_id", appointmentID)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		jsonError(w, "invalid "+param, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
