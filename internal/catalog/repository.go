// Package catalog lists the salon's services, their durations and prices.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrServiceNotFound is returned when no service matches the id.
	ErrServiceNotFound = errors.New("catalog: service not found")
	// ErrInvalidService is returned by Upsert for unusable rows.
	ErrInvalidService = errors.New("catalog: invalid service")
)

// Service is one bookable treatment.
type Service struct {
	ID              uuid.UUID `json:"id"`
	SalonID         string    `json:"salon_id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int       `json:"price_cents"`
	Description     string    `json:"description,omitempty"`
	Tags            []string  `json:"tags"`
	Active          bool      `json:"active"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Repository reads and writes the services table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a catalog repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		panic("catalog: sql db required")
	}
	return &Repository{db: db}
}

const serviceColumns = `id, salon_id, name, category, duration_minutes, price_cents, description, tags, active, updated_at`

// List returns the active services of a salon ordered by category and name.
func (r *Repository) List(ctx context.Context, salonID string) ([]Service, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE salon_id = $1 AND active
		ORDER BY category, name`, salonID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	out := []Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: list scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list rows: %w", err)
	}
	return out, nil
}

// Get loads a single service by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Service, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)
	s, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get: %w", err)
	}
	return &s, nil
}

// Upsert inserts or updates a service. A zero ID is replaced with a new one.
func (r *Repository) Upsert(ctx context.Context, s *Service) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" || s.SalonID == "" {
		return fmt.Errorf("%w: name and salon required", ErrInvalidService)
	}
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration %d", ErrInvalidService, s.DurationMinutes)
	}
	if s.PriceCents < 0 {
		return fmt.Errorf("%w: price %d", ErrInvalidService, s.PriceCents)
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	s.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO services (`+serviceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			duration_minutes = EXCLUDED.duration_minutes,
			price_cents = EXCLUDED.price_cents,
			description = EXCLUDED.description,
			tags = EXCLUDED.tags,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		s.ID, s.SalonID, s.Name, s.Category, s.DurationMinutes, s.PriceCents,
		s.Description, pq.Array(s.Tags), s.Active, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanService(row scanner) (Service, error) {
	var (
		s           Service
		description sql.NullString
	)
	if err := row.Scan(&s.ID, &s.SalonID, &s.Name, &s.Category, &s.DurationMinutes,
		&s.PriceCents, &description, pq.Array(&s.Tags), &s.Active, &s.UpdatedAt); err != nil {
		return Service{}, err
	}
	s.Description = description.String
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return s, nil
}
