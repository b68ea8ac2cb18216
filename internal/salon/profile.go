// Package salon stores salon profiles: display name, timezone and weekly
// working hours.
package salon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // salons pick IANA zones; don't depend on the host database

	"github.com/redis/go-redis/v9"

	"github.com/GerganaNoneva/beautysalon/internal/availability"
)

// ErrInvalidHours is returned when a profile carries hours that cannot be
// scheduled against.
var ErrInvalidHours = errors.New("salon: invalid working hours")

// Profile holds the per-salon settings the scheduler reads.
type Profile struct {
	SalonID   string                   `json:"salon_id"`
	Name      string                   `json:"name"`
	Timezone  string                   `json:"timezone"` // e.g., "Europe/Sofia"
	Hours     availability.WeeklyHours `json:"hours"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// DefaultProfile returns the hours used until an admin saves a schedule.
func DefaultProfile(salonID, timezone string) *Profile {
	hours := availability.ClosedWeek()
	for day := time.Monday; day <= time.Friday; day++ {
		hours[day] = availability.WorkingHours{Start: "09:00", End: "18:00"}
	}
	hours[time.Saturday] = availability.WorkingHours{Start: "10:00", End: "16:00"}
	return &Profile{
		SalonID:  salonID,
		Name:     "Beauty Salon",
		Timezone: timezone,
		Hours:    hours,
	}
}

// Location resolves the profile timezone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	if p == nil || p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks every open day parses and opens before it closes.
func (p *Profile) Validate() error {
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q", ErrInvalidHours, p.Timezone)
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		h := p.Hours.ForDay(day)
		if h.Closed {
			continue
		}
		if _, _, ok, err := h.Window(); err != nil || !ok {
			return fmt.Errorf("%w: %s %s-%s", ErrInvalidHours, day, h.Start, h.End)
		}
	}
	return nil
}

// Store provides persistence for salon profiles.
type Store struct {
	redis           *redis.Client
	defaultTimezone string
}

// NewStore creates a Redis-backed profile store.
func NewStore(redisClient *redis.Client, defaultTimezone string) *Store {
	if redisClient == nil {
		panic("salon: redis client required")
	}
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &Store{redis: redisClient, defaultTimezone: defaultTimezone}
}

func (s *Store) key(salonID string) string {
	return fmt.Sprintf("salon:profile:%s", salonID)
}

// Get retrieves the profile, returning the default if none was saved.
func (s *Store) Get(ctx context.Context, salonID string) (*Profile, error) {
	data, err := s.redis.Get(ctx, s.key(salonID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return DefaultProfile(salonID, s.defaultTimezone), nil
	}
	if err != nil {
		return nil, fmt.Errorf("salon: get profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("salon: unmarshal profile: %w", err)
	}
	return &p, nil
}

// Set validates and saves the profile.
func (s *Store) Set(ctx context.Context, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("salon: marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(p.SalonID), data, 0).Err(); err != nil {
		return fmt.Errorf("salon: set profile: %w", err)
	}
	return nil
}
