package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"

	"charityevents/internal/model"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	EventNotFound         = "EVENT_NOT_FOUND"
	EventEnded            = "EVENT_ENDED"
	EventHasRegistrations = "EVENT_HAS_REGISTRATIONS"
	RegistrationDuplicate = "REGISTRATION_DUPLICATE"
)

type CreateRegistrationRequest struct {
	EventID         int    `json:"event_id" validate:"required"`
	UserName        string `json:"user_name" validate:"required,min=2,max=255"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required"`
	NumberOfTickets int    `json:"number_of_tickets"`
}

type RegistrationCreatedResponse struct {
	RegistrationID int64 `json:"registrationId"`
}

type RegistrationNoticeMessage struct {
	RegistrationID int64     `json:"registration_id"`
	EventID        int       `json:"event_id"`
	UserName       string    `json:"user_name"`
	Email          string    `json:"email"`
	Tickets        int       `json:"tickets"`
	RegisteredAt   time.Time `json:"registered_at"`
}

type EventRequest struct {
	Title           string `json:"title" validate:"required,max=255"`
	Description     string `json:"description"`
	StartDate       string `json:"start_date" validate:"required,dateformat"`
	EndDate         string `json:"end_date" validate:"required,dateformat"`
	StartTime       string `json:"start_time" validate:"omitempty,timeformat"`
	EndTime         string `json:"end_time" validate:"omitempty,timeformat"`
	Location        string `json:"location"`
	Address         string `json:"address"`
	City            string `json:"city"`
	ImageURL        string `json:"image_url"`
	RegistrationURL string `json:"registration_url"`
	CharityID       int    `json:"charity_id" validate:"required,positive"`
}

type EventCreatedResponse struct {
	EventID int64 `json:"eventId"`
}

type SearchRequest struct {
	StartDate  string `form:"startDate" validate:"omitempty,dateformat"`
	EndDate    string `form:"endDate" validate:"omitempty,dateformat"`
	City       string `form:"city"`
	CategoryID int    `form:"categoryId" validate:"omitempty,positive"`
}

// EventInfoResponse is an event annotated with everything the listing and
// detail endpoints expose: charity name, categories, registration count
// and the derived status. Charity contact detail and the individual
// registrations are filled on the detail endpoint only.
type EventInfoResponse struct {
	ID                int                  `json:"event_id"`
	Title             string               `json:"title"`
	Description       string               `json:"description,omitempty"`
	StartDate         time.Time            `json:"start_date"`
	EndDate           time.Time            `json:"end_date"`
	StartTime         string               `json:"start_time,omitempty"`
	EndTime           string               `json:"end_time,omitempty"`
	Location          string               `json:"location,omitempty"`
	Address           string               `json:"address,omitempty"`
	City              string               `json:"city,omitempty"`
	ImageURL          string               `json:"image_url,omitempty"`
	RegistrationURL   string               `json:"registration_url,omitempty"`
	CharityID         *int                 `json:"charity_id,omitempty"`
	CharityName       *string              `json:"charity_name"`
	Charity           *model.Charity       `json:"charity,omitempty"`
	Categories        []model.Category     `json:"categories"`
	RegistrationCount int                  `json:"registration_count"`
	Status            model.EventStatus    `json:"status"`
	StatusText        string               `json:"status_text"`
	Registrations     []model.Registration `json:"registrations,omitempty"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func NotFoundError(c *ginext.Context, code, desc string) {
	c.JSON(404, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func EventNotFoundError(c *ginext.Context) {
	NotFoundError(c, EventNotFound, "Event not found")
}

func EventEndedError(c *ginext.Context) {
	BadResponseError(c, EventEnded, "Cannot register for an event that has already ended")
}

func EventHasRegistrationsError(c *ginext.Context) {
	BadResponseError(c, EventHasRegistrations, "Cannot delete event: There are existing registrations")
}

func RegistrationDuplicateError(c *ginext.Context) {
	BadResponseError(c, RegistrationDuplicate, "You have already registered for this event")
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{
		Status: "ok",
		Data:   data,
	})
}
