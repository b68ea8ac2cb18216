// Package scheduling answers availability questions and records booking
// decisions. It loads a consistent snapshot from the stores, runs the
// availability engine, and publishes booking events.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/GerganaNoneva/beautysalon/internal/appointments"
	"github.com/GerganaNoneva/beautysalon/internal/availability"
	"github.com/GerganaNoneva/beautysalon/internal/catalog"
	"github.com/GerganaNoneva/beautysalon/internal/events"
	"github.com/GerganaNoneva/beautysalon/internal/observability/metrics"
	"github.com/GerganaNoneva/beautysalon/internal/salon"
	"github.com/GerganaNoneva/beautysalon/pkg/logging"
)

// ErrSlotUnavailable is returned when a requested start time is not an open
// candidate for the service on that day.
var ErrSlotUnavailable = errors.New("scheduling: slot unavailable")

// maxLookaheadDays caps client-supplied free block searches.
const maxLookaheadDays = 180

// ProfileStore returns a salon's working hours and timezone.
type ProfileStore interface {
	Get(ctx context.Context, salonID string) (*salon.Profile, error)
}

// ServiceCatalog resolves a bookable service.
type ServiceCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
}

// AppointmentStore loads busy intervals and persists booking decisions.
type AppointmentStore interface {
	BusySnapshot(ctx context.Context, salonID string, from, to time.Time) (map[string]appointments.DayBusy, error)
	CreateRequest(ctx context.Context, req appointments.NewRequest) (*appointments.Request, error)
	ApproveRequest(ctx context.Context, salonID string, requestID uuid.UUID) (*appointments.Appointment, error)
	RejectRequest(ctx context.Context, salonID string, requestID uuid.UUID) (*appointments.Request, error)
	CancelRequest(ctx context.Context, requestID uuid.UUID, clientID string) (*appointments.Request, error)
	CancelAppointment(ctx context.Context, salonID string, appointmentID uuid.UUID) (*appointments.Appointment, error)
	CreateAppointment(ctx context.Context, in appointments.NewAppointment) (*appointments.Appointment, error)
	ListPending(ctx context.Context, salonID string, from time.Time) ([]appointments.Request, error)
}

// Options tunes defaults and wires optional collaborators.
type Options struct {
	LookaheadDays   int
	MaxBlocks       int
	MinBlockMinutes int
	Now             func() time.Time
	Publisher       events.Publisher
	Metrics         *metrics.SchedulingMetrics
	Logger          *logging.Logger
}

// Service is the only caller of the availability engine outside tests.
type Service struct {
	profiles  ProfileStore
	services  ServiceCatalog
	store     AppointmentStore
	publisher events.Publisher
	metrics   *metrics.SchedulingMetrics
	logger    *logging.Logger
	tracer    trace.Tracer
	now       func() time.Time

	lookaheadDays   int
	maxBlocks       int
	minBlockMinutes int
}

func NewService(profiles ProfileStore, services ServiceCatalog, store AppointmentStore, opts Options) *Service {
	if profiles == nil || services == nil || store == nil {
		panic("scheduling: profile store, catalog and appointment store required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LookaheadDays <= 0 {
		opts.LookaheadDays = availability.DefaultLookaheadDays
	}
	if opts.MaxBlocks <= 0 {
		opts.MaxBlocks = 5
	}
	if opts.MinBlockMinutes <= 0 {
		opts.MinBlockMinutes = availability.SlotMinutes
	}
	return &Service{
		profiles:        profiles,
		services:        services,
		store:           store,
		publisher:       opts.Publisher,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		tracer:          otel.Tracer("salon.internal.scheduling"),
		now:             opts.Now,
		lookaheadDays:   opts.LookaheadDays,
		maxBlocks:       opts.MaxBlocks,
		minBlockMinutes: opts.MinBlockMinutes,
	}
}

// DaySlotsResult is the slot grid for one service on one date.
type DaySlotsResult struct {
	Date    string                 `json:"date"`
	Service *catalog.Service       `json:"service"`
	Slots   []availability.DaySlot `json:"slots"`
}

// DaySlots lists candidate start times for serviceID on date (YYYY-MM-DD).
// Confirmed appointments and pending requests both mark a slot taken.
func (s *Service) DaySlots(ctx context.Context, salonID, date string, serviceID uuid.UUID) (result *DaySlotsResult, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.day_slots", trace.WithAttributes(
		attribute.String("salon_id", salonID),
		attribute.String("date", date),
	))
	defer s.finish(span, "day_slots", s.now(), &err)

	day, err := availability.ParseDate(date)
	if err != nil {
		return nil, err
	}
	grid, err := s.loadDay(ctx, salonID, day, serviceID)
	if err != nil {
		return nil, err
	}
	return &DaySlotsResult{Date: availability.FormatDate(day), Service: grid.service, Slots: grid.slots}, nil
}

// FreeBlocksRequest narrows a free block search. Zero values use the
// configured defaults; From defaults to today in the salon's timezone.
type FreeBlocksRequest struct {
	SalonID        string
	From           string
	LookaheadDays  int
	MaxBlocks      int
	MinSlotMinutes int
}

// NextFreeBlocks finds the next free blocks from one batched busy snapshot.
func (s *Service) NextFreeBlocks(ctx context.Context, req FreeBlocksRequest) (blocks []availability.FreeBlock, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.free_blocks", trace.WithAttributes(
		attribute.String("salon_id", req.SalonID),
	))
	defer s.finish(span, "free_blocks", s.now(), &err)

	if req.LookaheadDays < 0 || req.LookaheadDays > maxLookaheadDays {
		return nil, fmt.Errorf("%w: lookahead %d", availability.ErrInvalidArgument, req.LookaheadDays)
	}
	if req.MaxBlocks < 0 || req.MinSlotMinutes < 0 {
		return nil, fmt.Errorf("%w: negative limit", availability.ErrInvalidArgument)
	}

	profile, err := s.profiles.Get(ctx, req.SalonID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: load profile: %w", err)
	}
	now := s.now().In(profile.Location())

	start := today(now)
	if strings.TrimSpace(req.From) != "" {
		if start, err = availability.ParseDate(req.From); err != nil {
			return nil, err
		}
	}
	query := availability.FreeBlockQuery{
		StartDate:      start,
		LookaheadDays:  orDefault(req.LookaheadDays, s.lookaheadDays),
		Hours:          profile.Hours,
		MinSlotMinutes: orDefault(req.MinSlotMinutes, s.minBlockMinutes),
		MaxBlocks:      orDefault(req.MaxBlocks, s.maxBlocks),
		Now:            now,
	}
	span.SetAttributes(attribute.Int("lookahead_days", query.LookaheadDays), attribute.Int("max_blocks", query.MaxBlocks))

	snapshot, err := s.store.BusySnapshot(ctx, req.SalonID, start, start.AddDate(0, 0, query.LookaheadDays))
	if err != nil {
		return nil, fmt.Errorf("scheduling: load busy: %w", err)
	}
	query.Busy = make(map[string][]availability.BusyInterval, len(snapshot))
	for date, day := range snapshot {
		query.Busy[date] = day.All()
	}

	blocks, err = availability.FindNextFreeBlocks(query)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveFreeBlocks(len(blocks))
	return blocks, nil
}

// BookingInput identifies a requested booking. Notes is only used by admin
// direct bookings.
type BookingInput struct {
	SalonID   string
	ClientID  string
	ServiceID uuid.UUID
	Date      string
	StartTime string
	Notes     string
}

// RequestAppointment files a pending request for a start time that is an open,
// non-past candidate on the salon's slot grid.
func (s *Service) RequestAppointment(ctx context.Context, in BookingInput) (req *appointments.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.request", trace.WithAttributes(
		attribute.String("salon_id", in.SalonID),
		attribute.String("date", in.Date),
		attribute.String("start_time", in.StartTime),
	))
	defer s.finish(span, "request", s.now(), &err)

	day, start, err := parseBooking(in)
	if err != nil {
		return nil, err
	}
	grid, err := s.loadDay(ctx, in.SalonID, day, in.ServiceID)
	if err != nil {
		return nil, err
	}
	if !grid.offers(start) {
		s.metrics.ObserveConflict("request")
		return nil, ErrSlotUnavailable
	}

	req, err = s.store.CreateRequest(ctx, appointments.NewRequest{
		SalonID:   in.SalonID,
		ClientID:  in.ClientID,
		ServiceID: in.ServiceID,
		Date:      availability.FormatDate(day),
		Start:     start,
		End:       start + availability.Clock(grid.service.DurationMinutes),
	})
	if errors.Is(err, appointments.ErrSlotConflict) {
		s.metrics.ObserveConflict("request")
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: create request: %w", err)
	}

	s.logger.Info("appointment requested", "salon_id", in.SalonID, "request_id", req.ID, "date", req.Date, "start_time", req.Start.String())
	s.publish(ctx, events.TypeAppointmentRequested, in.SalonID, requestPayload(req))
	return req, nil
}

// ApproveRequest confirms a pending request of the salon. Only confirmed
// appointments can block approval.
func (s *Service) ApproveRequest(ctx context.Context, salonID string, requestID uuid.UUID) (appt *appointments.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.approve", trace.WithAttributes(
		attribute.String("salon_id", salonID),
		attribute.String("request_id", requestID.String()),
	))
	defer s.finish(span, "approve", s.now(), &err)

	appt, err = s.store.ApproveRequest(ctx, salonID, requestID)
	if errors.Is(err, appointments.ErrSlotConflict) {
		s.metrics.ObserveConflict("approve")
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment request approved", "salon_id", appt.SalonID, "request_id", requestID, "appointment_id", appt.ID)
	payload := appointmentPayload(appt)
	payload.RequestID = requestID.String()
	s.publish(ctx, events.TypeAppointmentConfirmed, appt.SalonID, payload)
	return appt, nil
}

// RejectRequest declines a pending request of the salon.
func (s *Service) RejectRequest(ctx context.Context, salonID string, requestID uuid.UUID) (req *appointments.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.reject", trace.WithAttributes(
		attribute.String("salon_id", salonID),
		attribute.String("request_id", requestID.String()),
	))
	defer s.finish(span, "reject", s.now(), &err)

	req, err = s.store.RejectRequest(ctx, salonID, requestID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment request rejected", "salon_id", req.SalonID, "request_id", req.ID)
	s.publish(ctx, events.TypeAppointmentRejected, req.SalonID, requestPayload(req))
	return req, nil
}

// CancelRequest withdraws a client's own pending request.
func (s *Service) CancelRequest(ctx context.Context, requestID uuid.UUID, clientID string) (req *appointments.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.cancel_request", trace.WithAttributes(
		attribute.String("request_id", requestID.String()),
	))
	defer s.finish(span, "cancel_request", s.now(), &err)

	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("%w: client id required", availability.ErrInvalidArgument)
	}
	req, err = s.store.CancelRequest(ctx, requestID, clientID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeRequestCancelled, req.SalonID, requestPayload(req))
	return req, nil
}

// CancelAppointment cancels a confirmed appointment of the salon and frees its
// time.
func (s *Service) CancelAppointment(ctx context.Context, salonID string, appointmentID uuid.UUID) (appt *appointments.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.cancel_appointment", trace.WithAttributes(
		attribute.String("salon_id", salonID),
		attribute.String("appointment_id", appointmentID.String()),
	))
	defer s.finish(span, "cancel_appointment", s.now(), &err)

	appt, err = s.store.CancelAppointment(ctx, salonID, appointmentID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment cancelled", "salon_id", appt.SalonID, "appointment_id", appt.ID)
	s.publish(ctx, events.TypeAppointmentCancelled, appt.SalonID, appointmentPayload(appt))
	return appt, nil
}

// BookDirect creates a confirmed appointment for an admin. The time must lie
// within working hours and not be past; it need not sit on the slot grid.
func (s *Service) BookDirect(ctx context.Context, in BookingInput) (appt *appointments.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.book_direct", trace.WithAttributes(
		attribute.String("salon_id", in.SalonID),
		attribute.String("date", in.Date),
		attribute.String("start_time", in.StartTime),
	))
	defer s.finish(span, "book_direct", s.now(), &err)

	day, start, err := parseBooking(in)
	if err != nil {
		return nil, err
	}
	grid, err := s.loadDay(ctx, in.SalonID, day, in.ServiceID)
	if err != nil {
		return nil, err
	}
	end := start + availability.Clock(grid.service.DurationMinutes)
	if !grid.open || start < grid.opens || end > grid.closes || grid.isPast(start) {
		return nil, ErrSlotUnavailable
	}

	appt, err = s.store.CreateAppointment(ctx, appointments.NewAppointment{
		SalonID:   in.SalonID,
		ClientID:  in.ClientID,
		ServiceID: in.ServiceID,
		Date:      availability.FormatDate(day),
		Start:     start,
		End:       end,
		Notes:     in.Notes,
	})
	if errors.Is(err, appointments.ErrSlotConflict) {
		s.metrics.ObserveConflict("direct")
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: create appointment: %w", err)
	}
	s.logger.Info("appointment booked directly", "salon_id", in.SalonID, "appointment_id", appt.ID, "date", appt.Date)
	s.publish(ctx, events.TypeAppointmentConfirmed, in.SalonID, appointmentPayload(appt))
	return appt, nil
}

// PendingRequests lists the salon's undecided requests from today on.
func (s *Service) PendingRequests(ctx context.Context, salonID string) (out []appointments.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.pending", trace.WithAttributes(
		attribute.String("salon_id", salonID),
	))
	defer s.finish(span, "pending", s.now(), &err)

	profile, err := s.profiles.Get(ctx, salonID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: load profile: %w", err)
	}
	return s.store.ListPending(ctx, salonID, today(s.now().In(profile.Location())))
}

type dayGrid struct {
	service *catalog.Service
	slots   []availability.DaySlot
	open    bool
	opens   availability.Clock
	closes  availability.Clock
	isPast  func(availability.Clock) bool
}

func (g dayGrid) offers(start availability.Clock) bool {
	for _, slot := range g.slots {
		if slot.Start == start {
			return slot.IsAvailable
		}
	}
	return false
}

func (s *Service) loadDay(ctx context.Context, salonID string, day time.Time, serviceID uuid.UUID) (dayGrid, error) {
	svc, err := s.services.Get(ctx, serviceID)
	if err != nil {
		return dayGrid{}, err
	}
	if svc.SalonID != salonID || !svc.Active {
		return dayGrid{}, catalog.ErrServiceNotFound
	}
	profile, err := s.profiles.Get(ctx, salonID)
	if err != nil {
		return dayGrid{}, fmt.Errorf("scheduling: load profile: %w", err)
	}
	snapshot, err := s.store.BusySnapshot(ctx, salonID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return dayGrid{}, fmt.Errorf("scheduling: load busy: %w", err)
	}

	now := s.now().In(profile.Location())
	hours := profile.Hours.ForDay(day.Weekday())
	slots, err := availability.ComputeDaySlots(day, hours, snapshot[availability.FormatDate(day)].All(), svc.DurationMinutes, now)
	if err != nil {
		return dayGrid{}, err
	}
	opens, closes, open, err := hours.Window()
	if err != nil {
		return dayGrid{}, err
	}

	return dayGrid{
		service: svc,
		slots:   slots,
		open:    open,
		opens:   opens,
		closes:  closes,
		isPast: func(c availability.Clock) bool {
			return availability.IsPast(day, now, c)
		},
	}, nil
}

func (s *Service) publish(ctx context.Context, eventType, salonID string, payload events.AppointmentPayload) {
	if s.publisher == nil {
		return
	}
	evt, err := events.New(eventType, salonID, payload)
	if err == nil {
		err = s.publisher.Publish(ctx, evt)
	}
	s.metrics.ObserveEvent(eventType, err)
	if err != nil {
		s.logger.Error("failed to publish booking event", "error", err, "type", eventType, "salon_id", salonID)
	}
}

func (s *Service) finish(span trace.Span, operation string, started time.Time, errp *error) {
	err := *errp
	if err != nil {
		span.RecordError(err)
	}
	span.End()
	s.metrics.ObserveOperation(operation, Outcome(err), s.now().Sub(started))
}

// Outcome classifies an error for metrics and HTTP status mapping.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, availability.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, appointments.ErrNotFound), errors.Is(err, catalog.ErrServiceNotFound):
		return "not_found"
	case errors.Is(err, appointments.ErrSlotConflict),
		errors.Is(err, appointments.ErrRequestNotPending),
		errors.Is(err, ErrSlotUnavailable):
		return "conflict"
	default:
		return "error"
	}
}

func parseBooking(in BookingInput) (time.Time, availability.Clock, error) {
	if strings.TrimSpace(in.ClientID) == "" {
		return time.Time{}, 0, fmt.Errorf("%w: client id required", availability.ErrInvalidArgument)
	}
	day, err := availability.ParseDate(in.Date)
	if err != nil {
		return time.Time{}, 0, err
	}
	start, err := availability.ParseClock(in.StartTime)
	if err != nil {
		return time.Time{}, 0, err
	}
	return day, start, nil
}

func requestPayload(req *appointments.Request) events.AppointmentPayload {
	return events.AppointmentPayload{
		RequestID: req.ID.String(),
		ClientID:  req.ClientID,
		ServiceID: req.ServiceID.String(),
		Date:      req.Date,
		StartTime: req.Start.String(),
		EndTime:   req.End.String(),
		Status:    req.Status,
	}
}

func appointmentPayload(appt *appointments.Appointment) events.AppointmentPayload {
	return events.AppointmentPayload{
		AppointmentID: appt.ID.String(),
		ClientID:      appt.ClientID,
		ServiceID:     appt.ServiceID.String(),
		Date:          appt.Date,
		StartTime:     appt.Start.String(),
		EndTime:       appt.End.String(),
		Status:        appt.Status,
	}
}

// today is the calendar date of now in its own location, as a UTC midnight.
func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
