package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GerganaNoneva/beautysalon/internal/appointments"
	"github.com/GerganaNoneva/beautysalon/internal/availability"
	"github.com/GerganaNoneva/beautysalon/internal/catalog"
	"github.com/GerganaNoneva/beautysalon/internal/scheduling"
	"github.com/GerganaNoneva/beautysalon/pkg/logging"
)

// Scheduler is the subset of the scheduling service used over HTTP.
type Scheduler interface {
	DaySlots(ctx context.Context, salonID, date string, serviceID uuid.UUID) (*scheduling.DaySlotsResult, error)
	NextFreeBlocks(ctx context.Context, req scheduling.FreeBlocksRequest) ([]availability.FreeBlock, error)
	RequestAppointment(ctx context.Context, in scheduling.BookingInput) (*appointments.Request, error)
	ApproveRequest(ctx context.Context, salonID string, requestID uuid.UUID) (*appointments.Appointment, error)
	RejectRequest(ctx context.Context, salonID string, requestID uuid.UUID) (*appointments.Request, error)
	CancelRequest(ctx context.Context, requestID uuid.UUID, clientID string) (*appointments.Request, error)
	CancelAppointment(ctx context.Context, salonID string, appointmentID uuid.UUID) (*appointments.Appointment, error)
	BookDirect(ctx context.Context, in scheduling.BookingInput) (*appointments.Appointment, error)
	PendingRequests(ctx context.Context, salonID string) ([]appointments.Request, error)
}

// ServiceLister lists a salon's bookable services.
type ServiceLister interface {
	List(ctx context.Context, salonID string) ([]catalog.Service, error)
}

// AvailabilityHandler serves the public catalog and availability endpoints.
type AvailabilityHandler struct {
	scheduler Scheduler
	services  ServiceLister
	logger    *logging.Logger
}

// NewAvailabilityHandler creates a new availability handler.
func NewAvailabilityHandler(scheduler Scheduler, services ServiceLister, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{scheduler: scheduler, services: services, logger: logger}
}

// ListServices returns the salon's active services and prices.
// GET /salons/{salonID}/services
func (h *AvailabilityHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	salonID := chi.URLParam(r, "salonID")
	services, err := h.services.List(r.Context(), salonID)
	if err != nil {
		h.logger.Error("failed to list services", "salon_id", salonID, "error", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"salon_id": salonID, "services": services})
}

// DaySlots returns the slot grid for one service on one date.
// GET /salons/{salonID}/slots?date=YYYY-MM-DD&service_id=...
func (h *AvailabilityHandler) DaySlots(w http.ResponseWriter, r *http.Request) {
	salonID := chi.URLParam(r, "salonID")
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		jsonError(w, "date is required", http.StatusBadRequest)
		return
	}
	serviceID, err := uuid.Parse(q.Get("service_id"))
	if err != nil {
		jsonError(w, "service_id must be a UUID", http.StatusBadRequest)
		return
	}

	res, err := h.scheduler.DaySlots(r.Context(), salonID, date, serviceID)
	if err != nil {
		writeServiceError(w, h.logger, err, "salon_id", salonID, "date", date)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// FreeBlocks returns the next free blocks.
// GET /salons/{salonID}/free-blocks?from=&days=&max=&min_minutes=
func (h *AvailabilityHandler) FreeBlocks(w http.ResponseWriter, r *http.Request) {
	salonID := chi.URLParam(r, "salonID")
	q := r.URL.Query()
	req := scheduling.FreeBlocksRequest{SalonID: salonID, From: q.Get("from")}

	for key, dst := range map[string]*int{
		"days":        &req.LookaheadDays,
		"max":         &req.MaxBlocks,
		"min_minutes": &req.MinSlotMinutes,
	} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			jsonError(w, key+" must be a positive integer", http.StatusBadRequest)
			return
		}
		*dst = v
	}

	blocks, err := h.scheduler.NextFreeBlocks(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "salon_id", salonID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"salon_id": salonID, "blocks": blocks})
}
