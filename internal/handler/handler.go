// Package handler contains the chi HTTP handlers that render the
// server-side pages and translate form submissions into admission engine
// calls.
package handler

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventreg/internal/model"
	"eventreg/internal/repository"
	"eventreg/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// storageErrorMsg is shown whenever the store fails for reasons other than
// the admission rules. The process keeps serving.
const storageErrorMsg = "Something went wrong while saving. Please try again."

// PageHandler holds all HTTP handlers for the registration pages.
type PageHandler struct {
	svc  *service.Service
	tmpl *template.Template
}

// New constructs a PageHandler with the embedded templates.
func New(svc *service.Service) *PageHandler {
	return &PageHandler{
		svc:  svc,
		tmpl: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

type indexData struct {
	Events []model.Event
	Error  string
}

type formData struct {
	Event        *model.Event
	Registration *model.Registration
	Errors       []string
	Form         model.RegistrationInput
}

type viewData struct {
	Event        *model.Event
	Registration *model.Registration
}

// render executes a template into a buffer first so a broken template
// can't leave a half-written page behind a 200.
func (h *PageHandler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("render template", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Index handles GET /
// Lists all events with their occupancy. A storage failure degrades to an
// empty listing with an error banner rather than a 500 page.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		slog.Error("list events", "error", err)
		h.render(w, http.StatusOK, "index.html", indexData{Error: "Database connection error"})
		return
	}
	h.render(w, http.StatusOK, "index.html", indexData{Events: events})
}

// ShowRegister handles GET /register/{eventID}
func (h *PageHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	event, ok := h.lookupEvent(w, r)
	if !ok {
		return
	}
	h.render(w, http.StatusOK, "register.html", formData{Event: event})
}

// SubmitRegistration handles POST /register/{eventID}
// On success redirects to the confirmation page; on rejection re-renders
// the form with every problem and the submitted values.
func (h *PageHandler) SubmitRegistration(w http.ResponseWriter, r *http.Request) {
	event, ok := h.lookupEvent(w, r)
	if !ok {
		return
	}

	in := readForm(r)
	reg, failure, err := h.svc.AdmitRegistration(r.Context(), event, in)
	if err != nil {
		slog.Error("admit registration", "event_id", event.ID, "error", err)
		admissionsTotal.WithLabelValues(outcomeError).Inc()
		h.render(w, http.StatusInternalServerError, "register.html", formData{
			Event:  event,
			Errors: []string{storageErrorMsg},
			Form:   in,
		})
		return
	}
	if failure != nil {
		slog.Warn("registration rejected",
			"event_id", event.ID, "reasons", failure.Messages())
		admissionsTotal.WithLabelValues(rejectionOutcome(failure)).Inc()
		h.render(w, http.StatusUnprocessableEntity, "register.html", formData{
			Event:  event,
			Errors: failure.Messages(),
			Form:   failure.Submitted,
		})
		return
	}

	admissionsTotal.WithLabelValues(outcomeAdmitted).Inc()
	http.Redirect(w, r, "/view/"+reg.ID, http.StatusSeeOther)
}

type attendeesData struct {
	Event         *model.Event
	Registrations []model.Registration
}

// Attendees handles GET /attendees/{eventID}
// Lists everyone registered for an event, oldest registration first.
func (h *PageHandler) Attendees(w http.ResponseWriter, r *http.Request) {
	event, ok := h.lookupEvent(w, r)
	if !ok {
		return
	}
	regs, err := h.svc.ListRegistrations(r.Context(), event.ID)
	if err != nil {
		slog.Error("list registrations", "event_id", event.ID, "error", err)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "attendees.html", attendeesData{
		Event:         event,
		Registrations: regs,
	})
}

// ViewRegistration handles GET /view/{registrationID}
func (h *PageHandler) ViewRegistration(w http.ResponseWriter, r *http.Request) {
	reg, event, ok := h.lookupRegistration(w, r)
	if !ok {
		return
	}
	h.render(w, http.StatusOK, "view.html", viewData{Event: event, Registration: reg})
}

// ShowEdit handles GET /edit/{registrationID}
func (h *PageHandler) ShowEdit(w http.ResponseWriter, r *http.Request) {
	reg, event, ok := h.lookupRegistration(w, r)
	if !ok {
		return
	}
	h.render(w, http.StatusOK, "edit.html", formData{
		Event:        event,
		Registration: reg,
		Form: model.RegistrationInput{
			Name:         reg.Name,
			Email:        reg.Email,
			Phone:        reg.Phone,
			Organization: reg.Organization,
		},
	})
}

// SubmitEdit handles POST /edit/{registrationID}
func (h *PageHandler) SubmitEdit(w http.ResponseWriter, r *http.Request) {
	reg, event, ok := h.lookupRegistration(w, r)
	if !ok {
		return
	}

	in := readForm(r)
	updated, failure, err := h.svc.EditRegistration(r.Context(), reg, in)
	if err != nil {
		slog.Error("edit registration", "registration_id", reg.ID, "error", err)
		h.render(w, http.StatusInternalServerError, "edit.html", formData{
			Event:        event,
			Registration: reg,
			Errors:       []string{storageErrorMsg},
			Form:         in,
		})
		return
	}
	if failure != nil {
		slog.Warn("edit rejected",
			"registration_id", reg.ID, "reasons", failure.Messages())
		h.render(w, http.StatusUnprocessableEntity, "edit.html", formData{
			Event:        event,
			Registration: reg,
			Errors:       failure.Messages(),
			Form:         failure.Submitted,
		})
		return
	}

	http.Redirect(w, r, "/view/"+updated.ID, http.StatusSeeOther)
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// lookupEvent resolves {eventID} or redirects to the listing.
func (h *PageHandler) lookupEvent(w http.ResponseWriter, r *http.Request) (*model.Event, bool) {
	id := chi.URLParam(r, "eventID")
	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("get event", "event_id", id, "error", err)
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}
	return event, true
}

// lookupRegistration resolves {registrationID} and its event, or redirects
// to the listing.
func (h *PageHandler) lookupRegistration(w http.ResponseWriter, r *http.Request) (*model.Registration, *model.Event, bool) {
	id := chi.URLParam(r, "registrationID")
	reg, err := h.svc.GetRegistration(r.Context(), id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("get registration", "registration_id", id, "error", err)
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, nil, false
	}
	event, err := h.svc.GetEvent(r.Context(), reg.EventID)
	if err != nil {
		slog.Error("get event for registration", "registration_id", id, "error", err)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, nil, false
	}
	return reg, event, true
}

func readForm(r *http.Request) model.RegistrationInput {
	return model.RegistrationInput{
		Name:         r.PostFormValue("name"),
		Email:        r.PostFormValue("email"),
		Phone:        r.PostFormValue("phone"),
		Organization: r.PostFormValue("organization"),
	}
}
