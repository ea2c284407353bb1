// Package service implements the registration admission engine: field
// validation, capacity and duplicate rules, and orchestration between the
// HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eventreg/internal/model"
	"eventreg/internal/repository"
)

// minPhoneLen is the minimum accepted phone number length after trimming.
const minPhoneLen = 10

const (
	capacityMsg  = "This event is full. No more registrations available."
	duplicateMsg = "This email is already registered for this event"
)

// FieldError describes one problem with a submitted field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationFailure is the rejected outcome of an admission or edit
// attempt. All problems found in one pass are collected in Errors, and
// Submitted carries the original input so the form can be re-rendered
// pre-filled.
type ValidationFailure struct {
	Errors    []FieldError
	Submitted model.RegistrationInput
}

// Messages returns the collected error messages in submission order.
func (f *ValidationFailure) Messages() []string {
	msgs := make([]string, len(f.Errors))
	for i, fe := range f.Errors {
		msgs[i] = fe.Message
	}
	return msgs
}

// CapacityExceeded reports whether the rejection includes the full-event rule.
func (f *ValidationFailure) CapacityExceeded() bool {
	for _, fe := range f.Errors {
		if fe.Message == capacityMsg {
			return true
		}
	}
	return false
}

// Duplicate reports whether the rejection includes the duplicate-email rule.
func (f *ValidationFailure) Duplicate() bool {
	for _, fe := range f.Errors {
		if fe.Message == duplicateMsg {
			return true
		}
	}
	return false
}

// EventStore is the event read surface the engine needs.
type EventStore interface {
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// RegistrationStore is the registration surface the engine needs. Admit
// must enforce capacity and the (event_id, email) uniqueness constraint
// itself, returning repository.ErrCapacityExceeded or
// repository.ErrDuplicateRegistration; Update must do the same for
// uniqueness.
type RegistrationStore interface {
	Admit(ctx context.Context, eventID string, in model.RegistrationInput) (*model.Registration, error)
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	FindByEventEmail(ctx context.Context, eventID, email string) (*model.Registration, error)
	Update(ctx context.Context, reg *model.Registration) error
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

// Service is the registration admission engine.
type Service struct {
	events        EventStore
	registrations RegistrationStore
}

// New constructs a Service with its stores.
func New(events EventStore, registrations RegistrationStore) *Service {
	return &Service{events: events, registrations: registrations}
}

// ValidateFields checks the three required attendee fields and returns one
// FieldError per problem. It is a pure function.
func ValidateFields(name, email, phone string) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "Name is required"})
	}
	if email == "" || !strings.Contains(email, "@") {
		errs = append(errs, FieldError{Field: "email", Message: "Valid email is required"})
	}
	if len(strings.TrimSpace(phone)) < minPhoneLen {
		errs = append(errs, FieldError{Field: "phone", Message: "Valid phone number is required"})
	}
	return errs
}

// ListEvents returns all events with occupancy.
func (s *Service) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetEvent returns a single event by ID.
func (s *Service) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

// GetRegistration returns a single registration by ID.
func (s *Service) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	return s.registrations.GetByID(ctx, id)
}

// ListRegistrations returns all registrations for an event, oldest first.
func (s *Service) ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.registrations.ListByEvent(ctx, eventID)
}

// AdmitRegistration decides whether to admit a new registration for event.
//
// Field, capacity, and duplicate problems are collected together rather
// than short-circuited, so the user sees every problem in one response.
// The capacity and duplicate checks here are advisory; the store's locked
// transaction and uniqueness constraint are the enforcement, and their
// rejections are folded into the same ValidationFailure shape.
//
// Exactly one of the three results is non-zero: the persisted registration,
// a ValidationFailure, or a storage error.
func (s *Service) AdmitRegistration(ctx context.Context, event *model.Event, in model.RegistrationInput) (*model.Registration, *ValidationFailure, error) {
	in = trimInput(in)
	errs := ValidateFields(in.Name, in.Email, in.Phone)

	if event.IsFull() {
		errs = append(errs, FieldError{Field: "capacity", Message: capacityMsg})
	}

	// Advisory duplicate pre-check for a friendly combined message. Only
	// meaningful when the email passed field validation.
	if in.Email != "" && strings.Contains(in.Email, "@") {
		existing, err := s.registrations.FindByEventEmail(ctx, event.ID, in.Email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("check duplicate: %w", err)
		}
		if existing != nil {
			errs = append(errs, duplicateError())
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationFailure{Errors: errs, Submitted: in}, nil
	}

	reg, err := s.registrations.Admit(ctx, event.ID, in)
	if err != nil {
		// Lost races against concurrent admissions surface here even
		// though the pre-checks passed. They are recoverable rejections,
		// not faults.
		switch {
		case errors.Is(err, repository.ErrCapacityExceeded):
			return nil, &ValidationFailure{
				Errors:    []FieldError{{Field: "capacity", Message: capacityMsg}},
				Submitted: in,
			}, nil
		case errors.Is(err, repository.ErrDuplicateRegistration):
			return nil, &ValidationFailure{
				Errors:    []FieldError{duplicateError()},
				Submitted: in,
			}, nil
		}
		return nil, nil, fmt.Errorf("admit registration: %w", err)
	}
	return reg, nil, nil
}

// EditRegistration applies new attendee fields to an existing registration.
//
// Same field validation as admission. The duplicate check excludes the
// registration's own row, so keeping the current email is allowed. There
// is no capacity check: editing does not change occupancy. id, event_id,
// and registered_at are never touched.
func (s *Service) EditRegistration(ctx context.Context, reg *model.Registration, in model.RegistrationInput) (*model.Registration, *ValidationFailure, error) {
	in = trimInput(in)
	errs := ValidateFields(in.Name, in.Email, in.Phone)

	if in.Email != "" && strings.Contains(in.Email, "@") {
		existing, err := s.registrations.FindByEventEmail(ctx, reg.EventID, in.Email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("check duplicate: %w", err)
		}
		if existing != nil && existing.ID != reg.ID {
			errs = append(errs, duplicateError())
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationFailure{Errors: errs, Submitted: in}, nil
	}

	updated := *reg
	updated.Name = in.Name
	updated.Email = in.Email
	updated.Phone = in.Phone
	updated.Organization = in.Organization

	if err := s.registrations.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrDuplicateRegistration) {
			return nil, &ValidationFailure{
				Errors:    []FieldError{duplicateError()},
				Submitted: in,
			}, nil
		}
		return nil, nil, fmt.Errorf("edit registration: %w", err)
	}
	return &updated, nil, nil
}

func duplicateError() FieldError {
	return FieldError{Field: "email", Message: duplicateMsg}
}

func trimInput(in model.RegistrationInput) model.RegistrationInput {
	return model.RegistrationInput{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Organization: strings.TrimSpace(in.Organization),
	}
}
