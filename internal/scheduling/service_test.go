package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GerganaNoneva/beautysalon/internal/appointments"
	"github.com/GerganaNoneva/beautysalon/internal/availability"
	"github.com/GerganaNoneva/beautysalon/internal/catalog"
	"github.com/GerganaNoneva/beautysalon/internal/events"
	"github.com/GerganaNoneva/beautysalon/internal/salon"
)

type fakeProfiles struct {
	profile *salon.Profile
	err     error
}

func (f *fakeProfiles) Get(_ context.Context, salonID string) (*salon.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	p.SalonID = salonID
	return &p, nil
}

type fakeCatalog struct {
	services map[uuid.UUID]*catalog.Service
}

func (f *fakeCatalog) Get(_ context.Context, id uuid.UUID) (*catalog.Service, error) {
	svc, ok := f.services[id]
	if !ok {
		return nil, catalog.ErrServiceNotFound
	}
	return svc, nil
}

type fakeStore struct {
	busy         map[string]appointments.DayBusy
	snapshotFrom time.Time
	snapshotTo   time.Time
	snapshots    int

	createdRequests []appointments.NewRequest
	createdAppts    []appointments.NewAppointment
	createErr       error
	approveErr      error
	rejectErr       error
	decidedSalons   []string
}

// ownedBy mimics the store's salon filter: rows belong to salon-1 only.
func (f *fakeStore) ownedBy(salonID string) error {
	f.decidedSalons = append(f.decidedSalons, salonID)
	if salonID != "salon-1" {
		return appointments.ErrNotFound
	}
	return nil
}

func (f *fakeStore) BusySnapshot(_ context.Context, _ string, from, to time.Time) (map[string]appointments.DayBusy, error) {
	f.snapshots++
	f.snapshotFrom, f.snapshotTo = from, to
	return f.busy, nil
}

func (f *fakeStore) CreateRequest(_ context.Context, req appointments.NewRequest) (*appointments.Request, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdRequests = append(f.createdRequests, req)
	return &appointments.Request{
		ID: uuid.New(), SalonID: req.SalonID, ClientID: req.ClientID, ServiceID: req.ServiceID,
		Date: req.Date, Start: req.Start, End: req.End, Status: appointments.StatusPending,
	}, nil
}

func (f *fakeStore) ApproveRequest(_ context.Context, salonID string, requestID uuid.UUID) (*appointments.Appointment, error) {
	if err := f.ownedBy(salonID); err != nil {
		return nil, err
	}
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	return &appointments.Appointment{ID: uuid.New(), SalonID: "salon-1", ClientID: "client-7", Date: "2026-03-16", Start: 600, End: 660, Status: appointments.StatusConfirmed}, nil
}

func (f *fakeStore) RejectRequest(_ context.Context, salonID string, requestID uuid.UUID) (*appointments.Request, error) {
	if err := f.ownedBy(salonID); err != nil {
		return nil, err
	}
	if f.rejectErr != nil {
		return nil, f.rejectErr
	}
	return &appointments.Request{ID: requestID, SalonID: "salon-1", Status: appointments.StatusRejected}, nil
}

func (f *fakeStore) CancelRequest(_ context.Context, requestID uuid.UUID, clientID string) (*appointments.Request, error) {
	return &appointments.Request{ID: requestID, SalonID: "salon-1", ClientID: clientID, Status: appointments.StatusCancelled}, nil
}

func (f *fakeStore) CancelAppointment(_ context.Context, salonID string, appointmentID uuid.UUID) (*appointments.Appointment, error) {
	if err := f.ownedBy(salonID); err != nil {
		return nil, err
	}
	return &appointments.Appointment{ID: appointmentID, SalonID: "salon-1", Status: appointments.StatusCancelled}, nil
}

func (f *fakeStore) CreateAppointment(_ context.Context, in appointments.NewAppointment) (*appointments.Appointment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdAppts = append(f.createdAppts, in)
	return &appointments.Appointment{ID: uuid.New(), SalonID: in.SalonID, ClientID: in.ClientID, Date: in.Date, Start: in.Start, End: in.End, Status: appointments.StatusConfirmed}, nil
}

func (f *fakeStore) ListPending(_ context.Context, _ string, from time.Time) ([]appointments.Request, error) {
	f.snapshotFrom = from
	return []appointments.Request{}, nil
}

type capturePublisher struct {
	events []events.Event
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, evt events.Event) error {
	c.events = append(c.events, evt)
	return c.err
}

var (
	haircutID = uuid.MustParse("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	// 2026-03-09 is the Monday before the dates used below.
	lastMonday = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
)

type harness struct {
	svc       *Service
	store     *fakeStore
	publisher *capturePublisher
	now       time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     &fakeStore{busy: map[string]appointments.DayBusy{}},
		publisher: &capturePublisher{},
		now:       lastMonday,
	}
	profile := salon.DefaultProfile("salon-1", "UTC")
	h.svc = NewService(
		&fakeProfiles{profile: profile},
		&fakeCatalog{services: map[uuid.UUID]*catalog.Service{
			haircutID: {ID: haircutID, SalonID: "salon-1", Name: "Haircut", DurationMinutes: 60, Active: true},
		}},
		h.store,
		Options{
			Now:       func() time.Time { return h.now },
			Publisher: h.publisher,
		},
	)
	return h
}

func TestDaySlots_MarksConfirmedAndPending(t *testing.T) {
	h := newHarness(t)
	h.store.busy["2026-03-16"] = appointments.DayBusy{
		Confirmed: []availability.BusyInterval{{Start: 600, End: 660}},
		Pending:   []availability.BusyInterval{{Start: 780, End: 810}},
	}

	res, err := h.svc.DaySlots(context.Background(), "salon-1", "2026-03-16", haircutID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-16", res.Date)
	assert.Equal(t, "Haircut", res.Service.Name)
	// Monday 09:00-18:00 with a 60 minute service: 09:00 .. 17:00.
	require.Len(t, res.Slots, 17)

	taken := map[string]bool{}
	for _, s := range res.Slots {
		if !s.IsAvailable {
			taken[s.Time] = true
		}
	}
	assert.Equal(t, map[string]bool{"09:30": true, "10:00": true, "10:30": true, "12:30": true, "13:00": true}, taken)
	assert.Equal(t, 1, h.store.snapshots)
	assert.Equal(t, "2026-03-17", availability.FormatDate(h.store.snapshotTo))
}

func TestDaySlots_ClosedDay(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.DaySlots(context.Background(), "salon-1", "2026-03-15", haircutID)
	require.NoError(t, err)
	assert.Empty(t, res.Slots)
	assert.NotNil(t, res.Slots)
}

func TestDaySlots_Errors(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.DaySlots(context.Background(), "salon-1", "16/03/2026", haircutID)
	assert.ErrorIs(t, err, availability.ErrInvalidArgument)

	_, err = h.svc.DaySlots(context.Background(), "salon-1", "2026-03-16", uuid.New())
	assert.ErrorIs(t, err, catalog.ErrServiceNotFound)

	_, err = h.svc.DaySlots(context.Background(), "salon-2", "2026-03-16", haircutID)
	assert.ErrorIs(t, err, catalog.ErrServiceNotFound)
}

func TestDaySlots_UsesSalonTimezoneForNow(t *testing.T) {
	h := newHarness(t)
	// 07:30 UTC is 09:30 in Sofia (EET, UTC+2 in early March).
	h.now = time.Date(2026, 3, 16, 7, 30, 0, 0, time.UTC)
	profile := salon.DefaultProfile("salon-1", "Europe/Sofia")
	h.svc.profiles = &fakeProfiles{profile: profile}

	res, err := h.svc.DaySlots(context.Background(), "salon-1", "2026-03-16", haircutID)
	require.NoError(t, err)
	assert.True(t, res.Slots[0].IsPast, "09:00 is past")
	assert.True(t, res.Slots[1].IsPast, "09:30 equals now and is past")
	assert.False(t, res.Slots[2].IsPast, "10:00 is still ahead")
}

func TestNextFreeBlocks_DefaultsAndBatching(t *testing.T) {
	h := newHarness(t)
	h.store.busy["2026-03-09"] = appointments.DayBusy{Confirmed: []availability.BusyInterval{{Start: 600, End: 720}}}

	blocks, err := h.svc.NextFreeBlocks(context.Background(), FreeBlocksRequest{SalonID: "salon-1"})
	require.NoError(t, err)
	require.Len(t, blocks, 5)
	assert.Equal(t, availability.FreeBlock{Date: "2026-03-09", StartTime: "09:00", EndTime: "10:00"}, blocks[0])
	assert.Equal(t, availability.FreeBlock{Date: "2026-03-09", StartTime: "12:00", EndTime: "18:00"}, blocks[1])
	assert.Equal(t, "2026-03-10", blocks[2].Date)

	assert.Equal(t, 1, h.store.snapshots)
	assert.Equal(t, "2026-03-09", availability.FormatDate(h.store.snapshotFrom))
	assert.Equal(t, "2026-04-08", availability.FormatDate(h.store.snapshotTo))
}

func TestNextFreeBlocks_ExplicitRange(t *testing.T) {
	h := newHarness(t)
	blocks, err := h.svc.NextFreeBlocks(context.Background(), FreeBlocksRequest{
		SalonID: "salon-1", From: "2026-03-14", LookaheadDays: 2, MaxBlocks: 10,
	})
	require.NoError(t, err)
	// Saturday 10-16, Sunday closed.
	assert.Equal(t, []availability.FreeBlock{{Date: "2026-03-14", StartTime: "10:00", EndTime: "16:00"}}, blocks)
}

func TestNextFreeBlocks_RejectsBadLimits(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.NextFreeBlocks(context.Background(), FreeBlocksRequest{SalonID: "salon-1", LookaheadDays: 1000})
	assert.ErrorIs(t, err, availability.ErrInvalidArgument)
	_, err = h.svc.NextFreeBlocks(context.Background(), FreeBlocksRequest{SalonID: "salon-1", MaxBlocks: -1})
	assert.ErrorIs(t, err, availability.ErrInvalidArgument)
	_, err = h.svc.NextFreeBlocks(context.Background(), FreeBlocksRequest{SalonID: "salon-1", From: "tomorrow"})
	assert.ErrorIs(t, err, availability.ErrInvalidArgument)
}

func TestRequestAppointment_CreatesPendingAndPublishes(t *testing.T) {
	h := newHarness(t)

	req, err := h.svc.RequestAppointment(context.Background(), BookingInput{
		SalonID: "salon-1", ClientID: "client-7", ServiceID: haircutID, Date: "2026-03-16", StartTime: "11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusPending, req.Status)

	require.Len(t, h.store.createdRequests, 1)
	created := h.store.createdRequests[0]
	assert.Equal(t, "11:00", created.Start.String())
	assert.Equal(t, "12:00", created.End.String())

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, events.TypeAppointmentRequested, h.publisher.events[0].Type)
}

func TestRequestAppointment_RefusesUnavailableStarts(t *testing.T) {
	h := newHarness(t)
	h.store.busy["2026-03-16"] = appointments.DayBusy{Pending: []availability.BusyInterval{{Start: 600, End: 660}}}

	cases := map[string]string{
		"taken by pending":  "10:00",
		"off grid":          "11:15",
		"runs past closing": "17:30",
		"before opening":    "08:00",
	}
	for name, start := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.svc.RequestAppointment(context.Background(), BookingInput{
				SalonID: "salon-1", ClientID: "client-7", ServiceID: haircutID, Date: "2026-03-16", StartTime: start,
			})
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		})
	}

	_, err := h.svc.RequestAppointment(context.Background(), BookingInput{
		SalonID: "salon-1", ClientID: "client-7", ServiceID: haircutID, Date: "2026-03-02", StartTime: "10:00",
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable, "past dates are never bookable")
	assert.Empty(t, h.store.createdRequests)
	assert.Empty(t, h.publisher.events)
}

func TestRequestAppointment_Validation(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.RequestAppointment(context.Background(), BookingInput{SalonID: "salon-1", ServiceID: haircutID, Date: "2026-03-16", StartTime: "10:00"})
	assert.ErrorIs(t, err, availability.ErrInvalidArgument)

	_, err = h.svc.RequestAppointment(context.Background(), BookingInput{SalonID: "salon-1", ClientID: "c", ServiceID: haircutID, Date: "2026-03-16", StartTime: "25:00"})
	assert.ErrorIs(t, err, availability.ErrInvalidArgument)
}

func TestRequestAppointment_WriteTimeConflict(t *testing.T) {
	h := newHarness(t)
	h.store.createErr = appointments.ErrSlotConflict

	_, err := h.svc.RequestAppointment(context.Background(), BookingInput{
		SalonID: "salon-1", ClientID: "client-7", ServiceID: haircutID, Date: "2026-03-16", StartTime: "11:00",
	})
	assert.ErrorIs(t, err, appointments.ErrSlotConflict)
	assert.Equal(t, "conflict", Outcome(err))
	assert.Empty(t, h.publisher.events)
}

func TestApproveRequest_PublishesConfirmation(t *testing.T) {
	h := newHarness(t)
	requestID := uuid.New()

	appt, err := h.svc.ApproveRequest(context.Background(), "salon-1", requestID)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusConfirmed, appt.Status)
	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, events.TypeAppointmentConfirmed, h.publisher.events[0].Type)
	assert.Contains(t, string(h.publisher.events[0].Payload), requestID.String())

	h.store.approveErr = appointments.ErrRequestNotPending
	_, err = h.svc.ApproveRequest(context.Background(), "salon-1", requestID)
	assert.ErrorIs(t, err, appointments.ErrRequestNotPending)
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	h := newHarness(t)
	h.publisher.err = errors.New("queue down")

	_, err := h.svc.RejectRequest(context.Background(), "salon-1", uuid.New())
	require.NoError(t, err)
	assert.Len(t, h.publisher.events, 1)
}

func TestCancelRequest_RequiresClient(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CancelRequest(context.Background(), uuid.New(), " ")
	assert.ErrorIs(t, err, availability.ErrInvalidArgument)

	req, err := h.svc.CancelRequest(context.Background(), uuid.New(), "client-7")
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusCancelled, req.Status)
	assert.Equal(t, events.TypeRequestCancelled, h.publisher.events[0].Type)
}

func TestCancelAppointment(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CancelAppointment(context.Background(), "salon-1", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, events.TypeAppointmentCancelled, h.publisher.events[0].Type)
}

func TestDecisionsForAnotherSalonAreNotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.ApproveRequest(context.Background(), "salon-2", uuid.New())
	assert.ErrorIs(t, err, appointments.ErrNotFound)
	_, err = h.svc.RejectRequest(context.Background(), "salon-2", uuid.New())
	assert.Equal(t, "not_found", Outcome(err))
	_, err = h.svc.CancelAppointment(context.Background(), "salon-2", uuid.New())
	assert.ErrorIs(t, err, appointments.ErrNotFound)

	assert.Equal(t, []string{"salon-2", "salon-2", "salon-2"}, h.store.decidedSalons)
	assert.Empty(t, h.publisher.events)
}

func TestBookDirect(t *testing.T) {
	h := newHarness(t)

	appt, err := h.svc.BookDirect(context.Background(), BookingInput{
		SalonID: "salon-1", ClientID: "walk-in", ServiceID: haircutID, Date: "2026-03-16", StartTime: "09:15", Notes: "called in",
	})
	require.NoError(t, err)
	assert.Equal(t, "10:15", appt.End.String())
	assert.Equal(t, "called in", h.store.createdAppts[0].Notes)

	_, err = h.svc.BookDirect(context.Background(), BookingInput{
		SalonID: "salon-1", ClientID: "walk-in", ServiceID: haircutID, Date: "2026-03-16", StartTime: "17:30",
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = h.svc.BookDirect(context.Background(), BookingInput{
		SalonID: "salon-1", ClientID: "walk-in", ServiceID: haircutID, Date: "2026-03-15", StartTime: "10:00",
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable, "closed day")
}

func TestPendingRequests_FromSalonToday(t *testing.T) {
	h := newHarness(t)
	out, err := h.svc.PendingRequests(context.Background(), "salon-1")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Equal(t, "2026-03-09", availability.FormatDate(h.store.snapshotFrom))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "invalid", Outcome(availability.ErrInvalidArgument))
	assert.Equal(t, "not_found", Outcome(appointments.ErrNotFound))
	assert.Equal(t, "conflict", Outcome(ErrSlotUnavailable))
	assert.Equal(t, "error", Outcome(errors.New("db down")))
}
