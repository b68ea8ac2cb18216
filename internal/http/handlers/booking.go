package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GerganaNoneva/beautysalon/internal/appointments"
	"github.com/GerganaNoneva/beautysalon/internal/scheduling"
	"github.com/GerganaNoneva/beautysalon/pkg/logging"
)

// BookingHandler serves client appointment requests.
type BookingHandler struct {
	scheduler Scheduler
	logger    *logging.Logger
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(scheduler Scheduler, logger *logging.Logger) *BookingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{scheduler: scheduler, logger: logger}
}

// BookingRequest is the body for client requests and admin direct bookings.
type BookingRequest struct {
	ClientID  string `json:"client_id"`
	ServiceID string `json:"service_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	Notes     string `json:"notes,omitempty"`
}

func (b BookingRequest) input(salonID string) (scheduling.BookingInput, error) {
	serviceID, err := uuid.Parse(b.ServiceID)
	if err != nil {
		return scheduling.BookingInput{}, errors.New("service_id must be a UUID")
	}
	return scheduling.BookingInput{
		SalonID:   salonID,
		ClientID:  strings.TrimSpace(b.ClientID),
		ServiceID: serviceID,
		Date:      b.Date,
		StartTime: b.StartTime,
		Notes:     b.Notes,
	}, nil
}

// CreateRequest files a pending appointment request.
// POST /salons/{salonID}/requests
func (h *BookingHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	salonID := chi.URLParam(r, "salonID")
	var body BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if body.ClientID == "" {
		body.ClientID = r.Header.Get("X-Client-Id")
	}
	in, err := body.input(salonID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	req, err := h.scheduler.RequestAppointment(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err, "salon_id", salonID, "date", in.Date)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// CancelRequest withdraws the caller's own pending request.
// DELETE /salons/{salonID}/requests/{requestID}?client_id=
func (h *BookingHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		jsonError(w, "invalid request id", http.StatusBadRequest)
		return
	}
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = r.Header.Get("X-Client-Id")
	}

	req, err := h.scheduler.CancelRequest(r.Context(), requestID, clientID)
	if err != nil {
		writeServiceError(w, h.logger, err, "request_id", requestID)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, appointments.ErrRequestNotPending):
		return "request is no longer pending"
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		return "slot unavailable"
	default:
		return "time slot already booked"
	}
}
