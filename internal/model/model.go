package model

import "time"

// EventStatus is the derived temporal classification of an event. It is
// computed from wall-clock time on every read and never persisted.
type EventStatus string

const (
	StatusUpcoming EventStatus = "upcoming"
	StatusActive   EventStatus = "active"
	StatusEnded    EventStatus = "ended"
)

// Text returns the human-readable label for the status.
func (s EventStatus) Text() string {
	switch s {
	case StatusUpcoming:
		return "Upcoming"
	case StatusEnded:
		return "Ended"
	default:
		return "Active"
	}
}

// DeriveStatus classifies an event relative to now. The checks run in
// order: before the start date the event is upcoming, past the end date it
// is ended, anything in between (endpoints included) is active.
func DeriveStatus(now, start, end time.Time) EventStatus {
	if now.Before(start) {
		return StatusUpcoming
	}
	if now.After(end) {
		return StatusEnded
	}
	return StatusActive
}

const (
	MinTickets = 1
	MaxTickets = 100
)

// ValidTicketCount reports whether n is an acceptable number of tickets
// for a single registration.
func ValidTicketCount(n int) bool {
	return n >= MinTickets && n <= MaxTickets
}

type Event struct {
	ID              int       `db:"event_id" json:"event_id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description,omitempty"`
	StartDate       time.Time `db:"start_date" json:"start_date"`
	EndDate         time.Time `db:"end_date" json:"end_date"`
	StartTime       string    `db:"start_time" json:"start_time,omitempty"`
	EndTime         string    `db:"end_time" json:"end_time,omitempty"`
	Location        string    `db:"location" json:"location,omitempty"`
	Address         string    `db:"address" json:"address,omitempty"`
	City            string    `db:"city" json:"city,omitempty"`
	ImageURL        string    `db:"image_url" json:"image_url,omitempty"`
	RegistrationURL string    `db:"registration_url" json:"registration_url,omitempty"`
	CharityID       *int      `db:"charity_id" json:"charity_id,omitempty"`
}

type Charity struct {
	ID           int    `db:"charity_id" json:"charity_id"`
	Name         string `db:"name" json:"name"`
	Description  string `db:"description" json:"description,omitempty"`
	LogoURL      string `db:"logo_url" json:"logo_url,omitempty"`
	Website      string `db:"website" json:"website,omitempty"`
	ContactEmail string `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone string `db:"contact_phone" json:"contact_phone,omitempty"`
}

type Category struct {
	ID          int    `db:"category_id" json:"category_id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
}

type Registration struct {
	ID               int       `db:"registration_id" json:"registration_id"`
	EventID          int       `db:"event_id" json:"event_id"`
	UserName         string    `db:"user_name" json:"user_name"`
	Email            string    `db:"email" json:"email"`
	Phone            string    `db:"phone" json:"phone,omitempty"`
	NumberOfTickets  int       `db:"number_of_tickets" json:"number_of_tickets"`
	RegistrationDate time.Time `db:"registration_date" json:"registration_date"`
}

// EventSummary is an event as the listing and search queries return it:
// joined charity name (nil when the event has no charity), linked
// categories and the current registration count.
type EventSummary struct {
	Event
	CharityName       *string    `json:"charity_name"`
	Categories        []Category `json:"categories"`
	RegistrationCount int        `json:"registration_count"`
}

// EventDetails adds the full charity contact record and the individual
// registrations, most recent first.
type EventDetails struct {
	EventSummary
	Charity       *Charity       `json:"charity,omitempty"`
	Registrations []Registration `json:"registrations"`
}

// SharesContact reports whether two registrations belong to the same
// participant under the loose anti-duplication policy: a match on name OR
// email OR phone counts, even when the other two fields differ. This is
// an anti-abuse heuristic, not identity verification.
func SharesContact(a, b Registration) bool {
	return a.UserName == b.UserName || a.Email == b.Email || a.Phone == b.Phone
}
