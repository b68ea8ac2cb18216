package salon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GerganaNoneva/beautysalon/internal/availability"
	"github.com/GerganaNoneva/beautysalon/pkg/logging"
)

type profileStore interface {
	Get(ctx context.Context, salonID string) (*Profile, error)
	Set(ctx context.Context, p *Profile) error
}

// Handler provides admin endpoints for salon working hours.
type Handler struct {
	store  profileStore
	logger *logging.Logger
}

// NewHandler creates a new salon profile HTTP handler.
func NewHandler(store profileStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// GetHours returns the salon profile.
// GET /admin/salons/{salonID}/hours
func (h *Handler) GetHours(w http.ResponseWriter, r *http.Request) {
	salonID := chi.URLParam(r, "salonID")
	if salonID == "" {
		http.Error(w, `{"error": "salon_id required"}`, http.StatusBadRequest)
		return
	}

	p, err := h.store.Get(r.Context(), salonID)
	if err != nil {
		h.logger.Error("failed to get salon profile", "salon_id", salonID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, salonID, p)
}

// UpdateHoursRequest is the body for a partial profile update.
type UpdateHoursRequest struct {
	Name     string                    `json:"name,omitempty"`
	Timezone string                    `json:"timezone,omitempty"`
	Hours    *availability.WeeklyHours `json:"hours,omitempty"`
}

// UpdateHours applies a partial update to the salon profile.
// PUT /admin/salons/{salonID}/hours
func (h *Handler) UpdateHours(w http.ResponseWriter, r *http.Request) {
	salonID := chi.URLParam(r, "salonID")
	if salonID == "" {
		http.Error(w, `{"error": "salon_id required"}`, http.StatusBadRequest)
		return
	}

	var req UpdateHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	p, err := h.store.Get(r.Context(), salonID)
	if err != nil {
		h.logger.Error("failed to get salon profile", "salon_id", salonID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Timezone != "" {
		p.Timezone = req.Timezone
	}
	if req.Hours != nil {
		p.Hours = *req.Hours
	}

	if err := h.store.Set(r.Context(), p); err != nil {
		if errors.Is(err, ErrInvalidHours) {
			http.Error(w, `{"error": "invalid working hours"}`, http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to save salon profile", "salon_id", salonID, "error", err)
		http.Error(w, `{"error": "failed to save profile"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("salon hours updated", "salon_id", salonID, "timezone", p.Timezone)
	h.writeJSON(w, salonID, p)
}

func (h *Handler) writeJSON(w http.ResponseWriter, salonID string, p *Profile) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		h.logger.Error("failed to encode salon profile", "salon_id", salonID, "error", err)
	}
}
