package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"eventreg/internal/model"
	"eventreg/internal/repository"
	"eventreg/internal/service"
	"eventreg/internal/storetest"
)

func newService(store *storetest.Store) *service.Service {
	return service.New(store.Events(), store.Registrations())
}

func validInput() model.RegistrationInput {
	return model.RegistrationInput{
		Name:  "Ana",
		Email: "a@x.com",
		Phone: "1234567890",
	}
}

func TestValidateFieldsIsPure(t *testing.T) {
	first := service.ValidateFields("", "bad-email", "123")
	second := service.ValidateFields("", "bad-email", "123")
	require.Equal(t, first, second, "identical input must yield identical output")
}

func TestValidateFieldsAcceptsValidInput(t *testing.T) {
	require.Empty(t, service.ValidateFields("Ana", "a@x.com", "1234567890"))
}

func TestValidateFieldsCollectsAllProblems(t *testing.T) {
	errs := service.ValidateFields("", "bad-email", "123")
	require.Len(t, errs, 3, "every problem must be reported in one pass")

	fields := make([]string, len(errs))
	for i, fe := range errs {
		fields[i] = fe.Field
	}
	require.Equal(t, []string{"name", "email", "phone"}, fields)
}

func TestValidateFieldsTrimsWhitespace(t *testing.T) {
	errs := service.ValidateFields("   ", "a@x.com", "  123456789  ")
	require.Len(t, errs, 2)
	require.Equal(t, "name", errs[0].Field)
	require.Equal(t, "phone", errs[1].Field)
}

func TestAdmitRegistrationFillsLastSlot(t *testing.T) {
	store := storetest.New()
	event := store.AddEvent("Python Workshop", 1)
	svc := newService(store)
	ctx := context.Background()

	reg, failure, err := svc.AdmitRegistration(ctx, event, validInput())
	require.NoError(t, err)
	require.Nil(t, failure)
	require.NotNil(t, reg)
	require.NotEmpty(t, reg.ID)
	require.Equal(t, event.ID, reg.EventID)
	require.False(t, reg.RegisteredAt.IsZero())

	after, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Equal(t, 1, after.Registered)
	require.True(t, after.IsFull())
}

func TestAdmitRegistrationRejectsFullEvent(t *testing.T) {
	store := storetest.New()
	event := store.AddEvent("Python Workshop", 1)
	svc := newService(store)
	ctx := context.Background()

	_, failure, err := svc.AdmitRegistration(ctx, event, validInput())
	require.NoError(t, err)
	require.Nil(t, failure)

	full, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)

	in := model.RegistrationInput{Name: "Bo", Email: "b@x.com", Phone: "1234567890"}
	reg, failure, err := svc.AdmitRegistration(ctx, full, in)
	require.NoError(t, err)
	require.Nil(t, reg)
	require.NotNil(t, failure)
	require.Len(t, failure.Errors, 1)
	require.True(t, failure.CapacityExceeded())
	require.Equal(t, 1, store.CountFor(event.ID), "rejected submission must not create a row")
}

func TestAdmitRegistrationRejectsDuplicateEmail(t *testing.T) {
	store := storetest.New()
	event := store.AddEvent("Web Bootcamp", 10)
	svc := newService(store)
	ctx := context.Background()

	_, failure, err := svc.AdmitRegistration(ctx, event, validInput())
	require.NoError(t, err)
	require.Nil(t, failure)

	fresh, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)

	reg, failure, err := svc.AdmitRegistration(ctx, fresh, validInput())
	require.NoError(t, err)
	require.Nil(t, reg)
	require.NotNil(t, failure)
	require.Len(t, failure.Errors, 1)
	require.True(t, failure.Duplicate())
	require.Equal(t, 1, store.CountFor(event.ID), "at most one row per (event, email)")
}

func TestAdmitRegistrationMapsConstraintViolationFromLostRace(t *testing.T) {
	store := storetest.New()
	event := store.AddEvent("Web Bootcamp", 10)
	svc := newService(store)
	ctx := context.Background()

	_, _, err := svc.AdmitRegistration(ctx, event, validInput())
	require.NoError(t, err)

	// The advisory pre-check misses the existing row, as it would when a
	// concurrent request inserts between check and write. The store's
	// uniqueness rejection must come back as a ValidationFailure, not an
	// error.
	store.HideDuplicates = true
	reg, failure, err := svc.AdmitRegistration(ctx, event, validInput())
	require.NoError(t, err)
	require.Nil(t, reg)
	require.NotNil(t, failure)
	require.True(t, failure.Duplicate())
}

func TestAdmitRegistrationReportsEverythingInOnePass(t *testing.T) {
	store := storetest.New()
	event := store.AddEvent("Python Workshop", 1)
	svc := newService(store)
	ctx := context.Background()

	_, _, err := svc.AdmitRegistration(ctx, event, validInput())
	require.NoError(t, err)
	full, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)

	in := model.RegistrationInput{Name: "", Email: "a@x.com", Phone: "123"}
	_, failure, err := svc.AdmitRegistration(ctx, full, in)
	require.NoError(t, err)
	require.NotNil(t, failure)
	// Missing name, short phone, full event, and duplicate email together.
	require.Len(t, failure.Errors, 4)
	require.True(t, failure.CapacityExceeded())
	require.True(t, failure.Duplicate())
}

func TestAdmitRegistrationEchoesSubmittedValues(t *testing.T) {
	store := storetest.New()
	event := store.AddEvent("Python Workshop", 5)
	svc := newService(store)

	in := model.RegistrationInput{
		Name:         "  Ana  ",
		Email:        "not-an-email",
		Phone:        "12345",
		Organization: "Acme",
	}
	_, failure, err := svc.AdmitRegistration(context.Background(), event, in)
	require.NoError(t, err)
	require.NotNil(t, failure)
	require.Equal(t, "Ana", failure.Submitted.Name)
	require.Equal(t, "not-an-email", failure.Submitted.Email)
	require.Equal(t, "Acme", failure.Submitted.Organization)
}

func TestAdmitRegistrationPropagatesStorageFailure(t *testing.T) {
	store := storetest.New()
	event := store.AddEvent("Python Workshop", 5)
	store.FailWrites = context.DeadlineExceeded
	svc := newService(store)

	reg, failure, err := svc.AdmitRegistration(context.Background(), event, validInput())
	require.Error(t, err)
	require.Nil(t, reg)
	require.Nil(t, failure)
}

func TestEditRegistrationPreservesIdentity(t *testing.T) {
	store := storetest.New()
	event := store.AddEvent("Python Workshop", 5)
	svc := newService(store)
	ctx := context.Background()

	reg, _, err := svc.AdmitRegistration(ctx, event, validInput())
	require.NoError(t, err)

	in := model.RegistrationInput{
		Name:         "Ana Maria",
		Email:        "ana@y.com",
		Phone:        "0987654321",
		Organization: "Acme",
	}
	updated, failure, err := svc.EditRegistration(ctx, reg, in)
	require.NoError(t, err)
	require.Nil(t, failure)
	require.Equal(t, reg.ID, updated.ID)
	require.Equal(t, reg.EventID, updated.EventID)
	require.Equal(t, reg.RegisteredAt, updated.RegisteredAt)
	require.Equal(t, "Ana Maria", updated.Name)
	require.Equal(t, "ana@y.com", updated.Email)

	stored, err := svc.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	require.Equal(t, "ana@y.com", stored.Email)
	require.Equal(t, reg.RegisteredAt, stored.RegisteredAt)
}

func TestEditRegistrationAllowsKeepingOwnEmail(t *testing.T) {
	store := storetest.New()
	event := store.AddEvent("Python Workshop", 5)
	svc := newService(store)
	ctx := context.Background()

	reg, _, err := svc.AdmitRegistration(ctx, event, validInput())
	require.NoError(t, err)

	in := model.RegistrationInput{Name: "Ana", Email: reg.Email, Phone: "1234567890"}
	updated, failure, err := svc.EditRegistration(ctx, reg, in)
	require.NoError(t, err)
	require.Nil(t, failure, "keeping the current email must not count as a duplicate")
	require.Equal(t, reg.Email, updated.Email)
}

func TestEditRegistrationRejectsAnotherAttendeesEmail(t *testing.T) {
	store := storetest.New()
	event := store.AddEvent("Python Workshop", 5)
	svc := newService(store)
	ctx := context.Background()

	first, _, err := svc.AdmitRegistration(ctx, event, validInput())
	require.NoError(t, err)

	fresh, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	second, _, err := svc.AdmitRegistration(ctx, fresh,
		model.RegistrationInput{Name: "Bo", Email: "b@x.com", Phone: "1234567890"})
	require.NoError(t, err)

	in := model.RegistrationInput{Name: "Bo", Email: first.Email, Phone: "1234567890"}
	updated, failure, err := svc.EditRegistration(ctx, second, in)
	require.NoError(t, err)
	require.Nil(t, updated)
	require.NotNil(t, failure)
	require.True(t, failure.Duplicate())

	stored, err := svc.GetRegistration(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, "b@x.com", stored.Email, "rejected edit must not change the row")
}

func TestEditRegistrationDoesNotCheckCapacity(t *testing.T) {
	store := storetest.New()
	event := store.AddEvent("Python Workshop", 1)
	svc := newService(store)
	ctx := context.Background()

	reg, _, err := svc.AdmitRegistration(ctx, event, validInput())
	require.NoError(t, err)

	// The event is now full; editing the existing registration must still
	// succeed because it does not change occupancy.
	in := model.RegistrationInput{Name: "Ana B", Email: "a@x.com", Phone: "1234567890"}
	updated, failure, err := svc.EditRegistration(ctx, reg, in)
	require.NoError(t, err)
	require.Nil(t, failure)
	require.Equal(t, "Ana B", updated.Name)
}

func TestListRegistrationsOrdersOldestFirst(t *testing.T) {
	store := storetest.New()
	event := store.AddEvent("Python Workshop", 10)
	svc := newService(store)
	ctx := context.Background()

	_, _, err := svc.AdmitRegistration(ctx, event, validInput())
	require.NoError(t, err)
	_, _, err = svc.AdmitRegistration(ctx, event,
		model.RegistrationInput{Name: "Bo", Email: "b@x.com", Phone: "1234567890"})
	require.NoError(t, err)

	regs, err := svc.ListRegistrations(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	require.Equal(t, "a@x.com", regs[0].Email)
	require.Equal(t, "b@x.com", regs[1].Email)
}

func TestListRegistrationsUnknownEvent(t *testing.T) {
	store := storetest.New()
	svc := newService(store)

	_, err := svc.ListRegistrations(context.Background(), "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestValidationFailureMessages(t *testing.T) {
	f := &service.ValidationFailure{Errors: []service.FieldError{
		{Field: "name", Message: "Name is required"},
		{Field: "email", Message: "Valid email is required"},
	}}
	require.Equal(t, []string{"Name is required", "Valid email is required"}, f.Messages())
}
