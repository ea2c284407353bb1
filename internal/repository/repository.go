// Package repository implements all database queries for the event
// registration system. It uses pgx directly (no ORM) for transparency.
//
// Occupancy is always derived with COUNT(*) over the registrations table;
// it is never stored on the event row, so reads can't go stale.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventreg/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrCapacityExceeded is returned when an event has no remaining slots.
var ErrCapacityExceeded = errors.New("event is full")

// ErrDuplicateRegistration is returned when the same email registers twice
// for one event.
var ErrDuplicateRegistration = errors.New("email already registered for this event")

// uniqueViolation is the SQLSTATE for a unique-constraint violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, e model.Event) (*model.Event, error) {
	e.ID = uuid.New().String()
	e.Registered = 0
	e.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, name, date, time, location, description, capacity, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Name, e.Date, e.Time, e.Location, e.Description, e.Capacity, e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &e, nil
}

// List returns all events with their current occupancy, soonest date first.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.id, e.name, e.date, e.time, e.location, e.description, e.capacity,
		        COUNT(r.id), e.created_at
		 FROM events e
		 LEFT JOIN registrations r ON r.event_id = e.id
		 GROUP BY e.id
		 ORDER BY e.date, e.time`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &e.Time, &e.Location,
			&e.Description, &e.Capacity, &e.Registered, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event with occupancy, or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT e.id, e.name, e.date, e.time, e.location, e.description, e.capacity,
		        (SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id),
		        e.created_at
		 FROM events e
		 WHERE e.id = $1`,
		id,
	).Scan(&e.ID, &e.Name, &e.Date, &e.Time, &e.Location,
		&e.Description, &e.Capacity, &e.Registered, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// HasAny reports whether any event exists. Used by the seeder.
func (r *EventRepository) HasAny(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events)`,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check events exist: %w", err)
	}
	return exists, nil
}

// Delete removes an event. Its registrations go with it via the
// ON DELETE CASCADE foreign key.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Admit creates a registration inside a transaction that serialises
// concurrent admissions for the same event.
//
// The SELECT ... FOR UPDATE takes a row-level lock on the event, so only one
// admission at a time can count occupancy and insert. Without the lock, two
// requests near full capacity could both read the same count and both
// insert, over-admitting past capacity. The unique constraint on
// (event_id, email) remains the source of truth for duplicates; a violation
// at insert time is mapped to ErrDuplicateRegistration.
func (r *RegistrationRepository) Admit(ctx context.Context, eventID string, in model.RegistrationInput) (*model.Registration, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var capacity int
	err = tx.QueryRow(ctx,
		`SELECT capacity FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrNotFound
			return nil, err
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	var registered int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`,
		eventID,
	).Scan(&registered)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	if registered >= capacity {
		err = ErrCapacityExceeded
		return nil, err
	}

	reg := &model.Registration{
		ID:           uuid.New().String(),
		EventID:      eventID,
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Organization: in.Organization,
		RegisteredAt: time.Now().UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, event_id, name, email, phone, organization, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		reg.ID, reg.EventID, reg.Name, reg.Email, reg.Phone, reg.Organization, reg.RegisteredAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateRegistration
			return nil, err
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return reg, nil
}

// GetByID returns a single registration or ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	var reg model.Registration
	err := r.db.QueryRow(ctx,
		`SELECT id, event_id, name, email, phone, organization, registered_at
		 FROM registrations WHERE id = $1`,
		id,
	).Scan(&reg.ID, &reg.EventID, &reg.Name, &reg.Email, &reg.Phone,
		&reg.Organization, &reg.RegisteredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &reg, nil
}

// FindByEventEmail returns the registration holding (eventID, email), or
// ErrNotFound. Used by the service for advisory duplicate checks.
func (r *RegistrationRepository) FindByEventEmail(ctx context.Context, eventID, email string) (*model.Registration, error) {
	var reg model.Registration
	err := r.db.QueryRow(ctx,
		`SELECT id, event_id, name, email, phone, organization, registered_at
		 FROM registrations WHERE event_id = $1 AND email = $2`,
		eventID, email,
	).Scan(&reg.ID, &reg.EventID, &reg.Name, &reg.Email, &reg.Phone,
		&reg.Organization, &reg.RegisteredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find registration by email: %w", err)
	}
	return &reg, nil
}

// Update rewrites the four editable fields of an existing registration.
// id, event_id, and registered_at are deliberately absent from the SET
// clause. A unique violation (email taken by another registration of the
// same event) is mapped to ErrDuplicateRegistration.
func (r *RegistrationRepository) Update(ctx context.Context, reg *model.Registration) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE registrations
		 SET name = $2, email = $3, phone = $4, organization = $5
		 WHERE id = $1`,
		reg.ID, reg.Name, reg.Email, reg.Phone, reg.Organization,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRegistration
		}
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByEvent returns all registrations for an event, oldest first.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, name, email, phone, organization, registered_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY registered_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.Name, &reg.Email,
			&reg.Phone, &reg.Organization, &reg.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}
