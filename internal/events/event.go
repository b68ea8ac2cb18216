// Package events carries booking lifecycle events from the scheduling service
// to downstream consumers such as the notification worker.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the scheduling service.
const (
	TypeAppointmentRequested = "appointment.requested.v1"
	TypeAppointmentConfirmed = "appointment.confirmed.v1"
	TypeAppointmentRejected  = "appointment.rejected.v1"
	TypeAppointmentCancelled = "appointment.cancelled.v1"
	TypeRequestCancelled     = "appointment_request.cancelled.v1"
)

var errMissingType = errors.New("events: event type required")

var nowFunc = time.Now

// Event is the JSON envelope written to the outbox and sent to the queue.
type Event struct {
	ID         uuid.UUID       `json:"event_id"`
	Type       string          `json:"event_type"`
	SalonID    string          `json:"salon_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// AppointmentPayload describes the booking an event refers to.
type AppointmentPayload struct {
	RequestID     string `json:"request_id,omitempty"`
	AppointmentID string `json:"appointment_id,omitempty"`
	ClientID      string `json:"client_id"`
	ServiceID     string `json:"service_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
}

// New builds an event with a fresh id and the current UTC time.
func New(eventType, salonID string, payload any) (Event, error) {
	if strings.TrimSpace(eventType) == "" {
		return Event{}, errMissingType
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: marshal payload: %w", err)
	}
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		SalonID:    salonID,
		OccurredAt: nowFunc().UTC(),
		Payload:    data,
	}, nil
}
