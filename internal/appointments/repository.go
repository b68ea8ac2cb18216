package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/GerganaNoneva/beautysalon/internal/availability"
)

type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository stores appointments and appointment requests in Postgres.
type Repository struct {
	db db
}

// NewRepository creates a repository backed by a pgx pool (or a mock of one).
func NewRepository(pool db) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

const (
	busyRangeQuery = `
		SELECT 'confirmed' AS source, to_char(appointment_date, 'YYYY-MM-DD'),
		       to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS')
		FROM appointments
		WHERE salon_id = $1 AND status = 'confirmed'
		  AND appointment_date >= $2::date AND appointment_date < $3::date
		UNION ALL
		SELECT 'pending' AS source, to_char(requested_date, 'YYYY-MM-DD'),
		       to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS')
		FROM appointment_requests
		WHERE salon_id = $1 AND status = 'pending'
		  AND requested_date >= $2::date AND requested_date < $3::date
		ORDER BY 2, 3`

	confirmedDayQuery = `
		SELECT to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS')
		FROM appointments
		WHERE salon_id = $1 AND appointment_date = $2::date AND status = 'confirmed'`

	pendingDayQuery = `
		SELECT to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS')
		FROM appointment_requests
		WHERE salon_id = $1 AND requested_date = $2::date AND status = 'pending'`

	requestReturning = `salon_id, client_id, service_id::text, to_char(requested_date, 'YYYY-MM-DD'),
		to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS'), status, created_at`

	appointmentReturning = `salon_id, client_id, service_id::text, to_char(appointment_date, 'YYYY-MM-DD'),
		to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS'), status`
)

// BusySnapshot loads every confirmed appointment and pending request for the
// salon with a date in [from, to), keyed by YYYY-MM-DD.
func (r *Repository) BusySnapshot(ctx context.Context, salonID string, from, to time.Time) (map[string]DayBusy, error) {
	rows, err := r.db.Query(ctx, busyRangeQuery, salonID, availability.FormatDate(from), availability.FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("appointments: busy snapshot: %w", err)
	}
	defer rows.Close()

	out := make(map[string]DayBusy)
	for rows.Next() {
		var source, date, start, end string
		if err := rows.Scan(&source, &date, &start, &end); err != nil {
			return nil, fmt.Errorf("appointments: busy snapshot scan: %w", err)
		}
		interval, err := availability.ParseBusyInterval(start, end)
		if err != nil {
			return nil, fmt.Errorf("appointments: busy snapshot %s: %w", date, err)
		}
		day := out[date]
		if source == StatusPending {
			day.Pending = append(day.Pending, interval)
		} else {
			day.Confirmed = append(day.Confirmed, interval)
		}
		out[date] = day
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: busy snapshot rows: %w", err)
	}
	return out, nil
}

// CreateRequest stores a pending request after re-checking, under a per-day
// lock, that it overlaps no confirmed appointment and no other pending
// request.
func (r *Repository) CreateRequest(ctx context.Context, req NewRequest) (*Request, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockDay(ctx, tx, req.SalonID, req.Date); err != nil {
		return nil, err
	}
	confirmed, err := dayIntervals(ctx, tx, confirmedDayQuery, req.SalonID, req.Date)
	if err != nil {
		return nil, err
	}
	pending, err := dayIntervals(ctx, tx, pendingDayQuery, req.SalonID, req.Date)
	if err != nil {
		return nil, err
	}
	if availability.HasConflict(req.Start, req.End, append(confirmed, pending...)) {
		return nil, ErrSlotConflict
	}

	id := uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO appointment_requests (id, salon_id, client_id, service_id, requested_date, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5::date, $6::time, $7::time, 'pending')`,
		id, req.SalonID, req.ClientID, req.ServiceID, req.Date, req.Start.String(), req.End.String()); err != nil {
		return nil, fmt.Errorf("appointments: insert request: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit request: %w", err)
	}

	return &Request{
		ID:        id,
		SalonID:   req.SalonID,
		ClientID:  req.ClientID,
		ServiceID: req.ServiceID,
		Date:      req.Date,
		Start:     req.Start,
		End:       req.End,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ApproveRequest turns a pending request of the salon into a confirmed
// appointment. Only confirmed appointments block approval; the first approval
// for a time wins. A request of another salon is reported as ErrNotFound.
func (r *Repository) ApproveRequest(ctx context.Context, salonID string, requestID uuid.UUID) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := scanRequest(tx.QueryRow(ctx,
		`SELECT `+requestReturning+` FROM appointment_requests WHERE id = $1 AND salon_id = $2 FOR UPDATE`,
		requestID, salonID), requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: load request: %w", err)
	}
	if req.Status != StatusPending {
		return nil, ErrRequestNotPending
	}

	if err := lockDay(ctx, tx, req.SalonID, req.Date); err != nil {
		return nil, err
	}
	confirmed, err := dayIntervals(ctx, tx, confirmedDayQuery, req.SalonID, req.Date)
	if err != nil {
		return nil, err
	}
	if availability.HasConflict(req.Start, req.End, confirmed) {
		return nil, ErrSlotConflict
	}

	appt := &Appointment{
		ID:        uuid.New(),
		SalonID:   req.SalonID,
		ClientID:  req.ClientID,
		ServiceID: req.ServiceID,
		Date:      req.Date,
		Start:     req.Start,
		End:       req.End,
		Status:    StatusConfirmed,
	}
	if err := insertAppointment(ctx, tx, appt, &requestID, ""); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE appointment_requests
		SET status = 'approved', appointment_id = $2, decided_at = now()
		WHERE id = $1`, requestID, appt.ID); err != nil {
		return nil, fmt.Errorf("appointments: mark approved: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit approval: %w", err)
	}
	return appt, nil
}

// CreateAppointment books a confirmed appointment directly (admin flow).
// Pending requests do not block it.
func (r *Repository) CreateAppointment(ctx context.Context, in NewAppointment) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockDay(ctx, tx, in.SalonID, in.Date); err != nil {
		return nil, err
	}
	confirmed, err := dayIntervals(ctx, tx, confirmedDayQuery, in.SalonID, in.Date)
	if err != nil {
		return nil, err
	}
	if availability.HasConflict(in.Start, in.End, confirmed) {
		return nil, ErrSlotConflict
	}

	appt := &Appointment{
		ID:        uuid.New(),
		SalonID:   in.SalonID,
		ClientID:  in.ClientID,
		ServiceID: in.ServiceID,
		Date:      in.Date,
		Start:     in.Start,
		End:       in.End,
		Status:    StatusConfirmed,
	}
	if err := insertAppointment(ctx, tx, appt, nil, in.Notes); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit appointment: %w", err)
	}
	return appt, nil
}

// RejectRequest marks a pending request of the salon rejected.
func (r *Repository) RejectRequest(ctx context.Context, salonID string, requestID uuid.UUID) (*Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `
		UPDATE appointment_requests
		SET status = 'rejected', decided_at = now()
		WHERE id = $1 AND salon_id = $2 AND status = 'pending'
		RETURNING `+requestReturning, requestID, salonID), requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missingRequest(ctx, `SELECT status FROM appointment_requests WHERE id = $1 AND salon_id = $2`, requestID, salonID)
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: reject request: %w", err)
	}
	return req, nil
}

// CancelRequest lets a client withdraw their own pending request.
func (r *Repository) CancelRequest(ctx context.Context, requestID uuid.UUID, clientID string) (*Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `
		UPDATE appointment_requests
		SET status = 'cancelled', decided_at = now()
		WHERE id = $1 AND client_id = $2 AND status = 'pending'
		RETURNING `+requestReturning, requestID, clientID), requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missingRequest(ctx, `SELECT status FROM appointment_requests WHERE id = $1 AND client_id = $2`, requestID, clientID)
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: cancel request: %w", err)
	}
	return req, nil
}

// CancelAppointment cancels a confirmed appointment of the salon, freeing its
// time.
func (r *Repository) CancelAppointment(ctx context.Context, salonID string, appointmentID uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND salon_id = $2 AND status = 'confirmed'
		RETURNING `+appointmentReturning, appointmentID, salonID)

	appt := &Appointment{ID: appointmentID}
	var serviceID, start, end string
	err := row.Scan(&appt.SalonID, &appt.ClientID, &serviceID, &appt.Date, &start, &end, &appt.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: cancel appointment: %w", err)
	}
	if err := fillSpan(serviceID, start, end, &appt.ServiceID, &appt.Start, &appt.End); err != nil {
		return nil, err
	}
	return appt, nil
}

// ListPending returns the salon's pending requests from the given date on,
// oldest first.
func (r *Repository) ListPending(ctx context.Context, salonID string, from time.Time) ([]Request, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, `+requestReturning+`
		FROM appointment_requests
		WHERE salon_id = $1 AND status = 'pending' AND requested_date >= $2::date
		ORDER BY requested_date, start_time`, salonID, availability.FormatDate(from))
	if err != nil {
		return nil, fmt.Errorf("appointments: list pending: %w", err)
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		var (
			req                       Request
			id, serviceID, start, end string
		)
		if err := rows.Scan(&id, &req.SalonID, &req.ClientID, &serviceID, &req.Date, &start, &end, &req.Status, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("appointments: list pending scan: %w", err)
		}
		if req.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("appointments: list pending id: %w", err)
		}
		if err := fillSpan(serviceID, start, end, &req.ServiceID, &req.Start, &req.End); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list pending rows: %w", err)
	}
	return out, nil
}

func (r *Repository) missingRequest(ctx context.Context, query string, args ...any) error {
	var status string
	err := r.db.QueryRow(ctx, query, args...).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("appointments: load request status: %w", err)
	}
	return ErrRequestNotPending
}

// lockDay serializes writes for one salon and date until the transaction ends.
func lockDay(ctx context.Context, q querier, salonID, date string) error {
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, salonID+"|"+date); err != nil {
		return fmt.Errorf("appointments: lock day: %w", err)
	}
	return nil
}

func dayIntervals(ctx context.Context, q querier, query, salonID, date string) ([]availability.BusyInterval, error) {
	rows, err := q.Query(ctx, query, salonID, date)
	if err != nil {
		return nil, fmt.Errorf("appointments: load day: %w", err)
	}
	defer rows.Close()

	var out []availability.BusyInterval
	for rows.Next() {
		var start, end string
		if err := rows.Scan(&start, &end); err != nil {
			return nil, fmt.Errorf("appointments: load day scan: %w", err)
		}
		interval, err := availability.ParseBusyInterval(start, end)
		if err != nil {
			return nil, fmt.Errorf("appointments: load day: %w", err)
		}
		out = append(out, interval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: load day rows: %w", err)
	}
	return out, nil
}

func insertAppointment(ctx context.Context, q querier, appt *Appointment, requestID *uuid.UUID, notes string) error {
	if _, err := q.Exec(ctx, `
		INSERT INTO appointments (id, salon_id, client_id, service_id, appointment_date, start_time, end_time, status, request_id, notes)
		VALUES ($1, $2, $3, $4, $5::date, $6::time, $7::time, 'confirmed', $8, $9)`,
		appt.ID, appt.SalonID, appt.ClientID, appt.ServiceID, appt.Date, appt.Start.String(), appt.End.String(), requestID, notes); err != nil {
		return fmt.Errorf("appointments: insert appointment: %w", err)
	}
	return nil
}

func scanRequest(row pgx.Row, id uuid.UUID) (*Request, error) {
	req := &Request{ID: id}
	var serviceID, start, end string
	if err := row.Scan(&req.SalonID, &req.ClientID, &serviceID, &req.Date, &start, &end, &req.Status, &req.CreatedAt); err != nil {
		return nil, err
	}
	if err := fillSpan(serviceID, start, end, &req.ServiceID, &req.Start, &req.End); err != nil {
		return nil, err
	}
	return req, nil
}

func fillSpan(serviceID, start, end string, sid *uuid.UUID, s, e *availability.Clock) error {
	parsed, err := uuid.Parse(serviceID)
	if err != nil {
		return fmt.Errorf("appointments: service id: %w", err)
	}
	interval, err := availability.ParseBusyInterval(start, end)
	if err != nil {
		return fmt.Errorf("appointments: stored span: %w", err)
	}
	*sid, *s, *e = parsed, interval.Start, interval.End
	return nil
}
