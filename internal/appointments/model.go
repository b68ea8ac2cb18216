// Package appointments persists confirmed appointments and pending requests
// and enforces the double-booking check at write time.
package appointments

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/GerganaNoneva/beautysalon/internal/availability"
)

var (
	// ErrNotFound is returned when a request or appointment does not exist or
	// is not visible to the caller.
	ErrNotFound = errors.New("appointments: not found")
	// ErrSlotConflict is returned when the requested time overlaps an
	// existing booking at write time.
	ErrSlotConflict = errors.New("appointments: slot conflict")
	// ErrRequestNotPending is returned when deciding a request that was
	// already approved, rejected or cancelled.
	ErrRequestNotPending = errors.New("appointments: request not pending")
)

// Status values stored in the status columns.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusConfirmed = "confirmed"
)

// DayBusy splits a date's occupied intervals by source.
type DayBusy struct {
	Confirmed []availability.BusyInterval
	Pending   []availability.BusyInterval
}

// All returns confirmed and pending intervals together.
func (d DayBusy) All() []availability.BusyInterval {
	out := make([]availability.BusyInterval, 0, len(d.Confirmed)+len(d.Pending))
	out = append(out, d.Confirmed...)
	return append(out, d.Pending...)
}

// NewRequest is a client's request for a time on a date.
type NewRequest struct {
	SalonID   string
	ClientID  string
	ServiceID uuid.UUID
	Date      string // YYYY-MM-DD
	Start     availability.Clock
	End       availability.Clock
}

// NewAppointment is a confirmed booking created directly by an admin.
type NewAppointment struct {
	SalonID   string
	ClientID  string
	ServiceID uuid.UUID
	Date      string
	Start     availability.Clock
	End       availability.Clock
	Notes     string
}

// Request is a stored appointment request.
type Request struct {
	ID            uuid.UUID          `json:"id"`
	SalonID       string             `json:"salon_id"`
	ClientID      string             `json:"client_id"`
	ServiceID     uuid.UUID          `json:"service_id"`
	Date          string             `json:"date"`
	Start         availability.Clock `json:"start_time"`
	End           availability.Clock `json:"end_time"`
	Status        string             `json:"status"`
	AppointmentID *uuid.UUID         `json:"appointment_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Appointment is a stored confirmed booking.
type Appointment struct {
	ID        uuid.UUID          `json:"id"`
	SalonID   string             `json:"salon_id"`
	ClientID  string             `json:"client_id"`
	ServiceID uuid.UUID          `json:"service_id"`
	Date      string             `json:"date"`
	Start     availability.Clock `json:"start_time"`
	End       availability.Clock `json:"end_time"`
	Status    string             `json:"status"`
}
