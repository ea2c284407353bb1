// Package model defines the core domain types for the event registration system.
package model

import "time"

// Event represents a registrable event with a fixed capacity.
//
// Registered is derived from the registrations table at read time and is
// never persisted; see the repository queries.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Capacity    int       `json:"capacity"`
	Registered  int       `json:"registered"`
	CreatedAt   time.Time `json:"created_at"`
}

// Available returns the number of remaining slots.
func (e *Event) Available() int {
	return e.Capacity - e.Registered
}

// IsFull returns true when no slots remain.
func (e *Event) IsFull() bool {
	return e.Registered >= e.Capacity
}

// Registration represents an attendee's registration for an event.
// ID, EventID, and RegisteredAt never change after creation.
type Registration struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Organization string    `json:"organization"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RegistrationInput carries the submitted attendee fields for an admission
// or edit attempt. It is echoed back on validation failure so the form can
// be re-rendered without losing what the user typed.
type RegistrationInput struct {
	Name         string
	Email        string
	Phone        string
	Organization string
}
