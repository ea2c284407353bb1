// Package storetest provides an in-memory stand-in for the repositories,
// enforcing the same capacity and uniqueness rules as the real store so
// engine and handler tests run without a database.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventreg/internal/model"
	"eventreg/internal/repository"
)

// Store holds fake events and registrations behind the same rules the
// Postgres schema enforces.
type Store struct {
	mu     sync.Mutex
	events map[string]*model.Event
	regs   map[string]*model.Registration

	// lastAdmit keeps admission timestamps strictly increasing so ordering
	// is deterministic even when the clock is coarse.
	lastAdmit time.Time

	// HideDuplicates makes FindByEventEmail miss existing rows, simulating
	// a concurrent insert landing between the advisory pre-check and the
	// constrained write.
	HideDuplicates bool
	// FailWrites makes every write return this error.
	FailWrites error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		events: make(map[string]*model.Event),
		regs:   make(map[string]*model.Registration),
	}
}

// AddEvent inserts an event directly, bypassing admission.
func (s *Store) AddEvent(name string, capacity int) *model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &model.Event{
		ID:          uuid.New().String(),
		Name:        name,
		Date:        "2026-02-20",
		Time:        "10:00 AM",
		Location:    "Tech Hub",
		Description: "test event",
		Capacity:    capacity,
		CreatedAt:   time.Now().UTC(),
	}
	s.events[e.ID] = e
	return e
}

// CountFor returns the number of registrations held for an event.
func (s *Store) CountFor(eventID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(eventID)
}

func (s *Store) countLocked(eventID string) int {
	n := 0
	for _, r := range s.regs {
		if r.EventID == eventID {
			n++
		}
	}
	return n
}

// DeleteEvent removes an event and, like the schema's ON DELETE CASCADE
// foreign key, every registration referencing it.
func (s *Store) DeleteEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.events, id)
	for regID, r := range s.regs {
		if r.EventID == id {
			delete(s.regs, regID)
		}
	}
	return nil
}

// Events returns the event-store view.
func (s *Store) Events() *EventView { return &EventView{s} }

// Registrations returns the registration-store view.
func (s *Store) Registrations() *RegistrationView { return &RegistrationView{s} }

// EventView implements the engine's EventStore over the shared state.
type EventView struct{ s *Store }

func (v *EventView) List(ctx context.Context) ([]model.Event, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []model.Event
	for _, e := range v.s.events {
		copied := *e
		copied.Registered = v.s.countLocked(e.ID)
		out = append(out, copied)
	}
	return out, nil
}

func (v *EventView) GetByID(ctx context.Context, id string) (*model.Event, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *e
	copied.Registered = v.s.countLocked(e.ID)
	return &copied, nil
}

// RegistrationView implements the engine's RegistrationStore over the
// shared state.
type RegistrationView struct{ s *Store }

func (v *RegistrationView) Admit(ctx context.Context, eventID string, in model.RegistrationInput) (*model.Registration, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.FailWrites != nil {
		return nil, v.s.FailWrites
	}
	e, ok := v.s.events[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if v.s.countLocked(eventID) >= e.Capacity {
		return nil, repository.ErrCapacityExceeded
	}
	for _, r := range v.s.regs {
		if r.EventID == eventID && r.Email == in.Email {
			return nil, repository.ErrDuplicateRegistration
		}
	}
	now := time.Now().UTC()
	if !now.After(v.s.lastAdmit) {
		now = v.s.lastAdmit.Add(time.Nanosecond)
	}
	v.s.lastAdmit = now

	reg := &model.Registration{
		ID:           uuid.New().String(),
		EventID:      eventID,
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Organization: in.Organization,
		RegisteredAt: now,
	}
	v.s.regs[reg.ID] = reg
	return reg, nil
}

func (v *RegistrationView) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	r, ok := v.s.regs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (v *RegistrationView) FindByEventEmail(ctx context.Context, eventID, email string) (*model.Registration, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.HideDuplicates {
		return nil, repository.ErrNotFound
	}
	for _, r := range v.s.regs {
		if r.EventID == eventID && r.Email == email {
			copied := *r
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v *RegistrationView) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []model.Registration
	for _, r := range v.s.regs {
		if r.EventID == eventID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out, nil
}

func (v *RegistrationView) Update(ctx context.Context, reg *model.Registration) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.FailWrites != nil {
		return v.s.FailWrites
	}
	existing, ok := v.s.regs[reg.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, r := range v.s.regs {
		if r.ID != reg.ID && r.EventID == existing.EventID && r.Email == reg.Email {
			return repository.ErrDuplicateRegistration
		}
	}
	existing.Name = reg.Name
	existing.Email = reg.Email
	existing.Phone = reg.Phone
	existing.Organization = reg.Organization
	return nil
}
