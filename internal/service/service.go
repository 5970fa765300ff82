package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"charityevents/internal/dto"
	"charityevents/internal/model"
	"charityevents/internal/repo"
	"charityevents/pkg/validator"
)

type Service interface {
	GetAllEvents(ctx *ginext.Context)
	GetEvent(ctx *ginext.Context)
	SearchEvents(ctx *ginext.Context)
	GetCategories(ctx *ginext.Context)
	Register(ctx *ginext.Context)
	CreateEvent(ctx *ginext.Context)
	UpdateEvent(ctx *ginext.Context)
	DeleteEvent(ctx *ginext.Context)
}

// NoticePublisher delivers registration notices to the notification
// pipeline. A failed publish never fails the request that produced it.
type NoticePublisher interface {
	Publish(message []byte) error
}

type service struct {
	repo repo.Repository
	log  *zerolog.Logger
	pub  NoticePublisher
}

func NewService(repo repo.Repository, logger *zerolog.Logger, pub NoticePublisher) Service {
	return &service{
		repo: repo,
		log:  logger,
		pub:  pub,
	}
}

const dateLayout = "2006-01-02"

func parseDate(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

// eventInfo annotates a query-layer event with its derived status. The
// status depends on wall-clock time, so it is computed here on every read
// and never stored or cached.
func eventInfo(s model.EventSummary, now time.Time) dto.EventInfoResponse {
	status := model.DeriveStatus(now, s.StartDate, s.EndDate)
	return dto.EventInfoResponse{
		ID:                s.ID,
		Title:             s.Title,
		Description:       s.Description,
		StartDate:         s.StartDate,
		EndDate:           s.EndDate,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		Location:          s.Location,
		Address:           s.Address,
		City:              s.City,
		ImageURL:          s.ImageURL,
		RegistrationURL:   s.RegistrationURL,
		CharityID:         s.CharityID,
		CharityName:       s.CharityName,
		Categories:        s.Categories,
		RegistrationCount: s.RegistrationCount,
		Status:            status,
		StatusText:        status.Text(),
	}
}

func (s *service) GetAllEvents(ctx *ginext.Context) {
	events, err := s.repo.GetAllEvents(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get events")
		dto.InternalServerError(ctx)
		return
	}

	now := time.Now()
	resp := make([]dto.EventInfoResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, eventInfo(e, now))
	}

	dto.SuccessResponse(ctx, resp)
}

func (s *service) GetEvent(ctx *ginext.Context) {
	eventID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	details, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to get event")
		dto.InternalServerError(ctx)
		return
	}

	resp := eventInfo(details.EventSummary, time.Now())
	resp.Charity = details.Charity
	resp.Registrations = details.Registrations
	resp.RegistrationCount = details.RegistrationCount

	dto.SuccessResponse(ctx, resp)
}

func (s *service) SearchEvents(ctx *ginext.Context) {
	var req dto.SearchRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid search parameters")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	filters := repo.SearchFilters{
		City:       req.City,
		CategoryID: req.CategoryID,
	}
	if req.StartDate != "" {
		d := parseDate(req.StartDate)
		filters.StartDate = &d
	}
	if req.EndDate != "" {
		d := parseDate(req.EndDate)
		filters.EndDate = &d
	}

	events, err := s.repo.SearchEvents(ctx.Request.Context(), filters)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to search events")
		dto.InternalServerError(ctx)
		return
	}

	now := time.Now()
	resp := make([]dto.EventInfoResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, eventInfo(e, now))
	}

	dto.SuccessResponse(ctx, resp)
}

func (s *service) GetCategories(ctx *ginext.Context) {
	categories, err := s.repo.GetAllCategories(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get categories")
		dto.InternalServerError(ctx)
		return
	}

	if categories == nil {
		categories = []model.Category{}
	}
	dto.SuccessResponse(ctx, categories)
}

func (s *service) Register(ctx *ginext.Context) {
	var req dto.CreateRegistrationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	registration := &model.Registration{
		EventID:         req.EventID,
		UserName:        req.UserName,
		Email:           req.Email,
		Phone:           req.Phone,
		NumberOfTickets: req.NumberOfTickets,
	}

	now := time.Now()
	id, err := s.repo.RegisterTx(ctx.Request.Context(), registration, now, model.SharesContact)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrEventNotFound):
			dto.BadResponseError(ctx, dto.EventNotFound, "Event not found")
		case errors.Is(err, repo.ErrEventEnded):
			dto.EventEndedError(ctx)
		case errors.Is(err, repo.ErrDuplicateRegistration):
			dto.RegistrationDuplicateError(ctx)
		case errors.Is(err, repo.ErrInvalidTicketCount):
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Number of tickets must be between 1 and 100")
		default:
			s.log.Error().Err(err).Msg("failed to create registration")
			dto.InternalServerError(ctx)
		}
		return
	}

	s.log.Info().
		Int64("registration_id", id).
		Int("event_id", req.EventID).
		Msg("registration created successfully")

	s.publishNotice(dto.RegistrationNoticeMessage{
		RegistrationID: id,
		EventID:        req.EventID,
		UserName:       req.UserName,
		Email:          req.Email,
		Tickets:        req.NumberOfTickets,
		RegisteredAt:   now,
	})

	dto.SuccessCreatedResponse(ctx, dto.RegistrationCreatedResponse{RegistrationID: id})
}

func (s *service) publishNotice(msg dto.RegistrationNoticeMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal registration notice")
		return
	}
	if err := s.pub.Publish(payload); err != nil {
		s.log.Error().Err(err).Msg("failed to publish registration notice")
	}
}

func eventFromRequest(req dto.EventRequest) *model.Event {
	charityID := req.CharityID
	return &model.Event{
		Title:           req.Title,
		Description:     req.Description,
		StartDate:       parseDate(req.StartDate),
		EndDate:         parseDate(req.EndDate),
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Location:        req.Location,
		Address:         req.Address,
		City:            req.City,
		ImageURL:        req.ImageURL,
		RegistrationURL: req.RegistrationURL,
		CharityID:       &charityID,
	}
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	var req dto.EventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse create event request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Error().Msgf("validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	id, err := s.repo.CreateEvent(ctx.Request.Context(), eventFromRequest(req))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create event in DB")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("event_id", id).Msg("event created successfully")
	dto.SuccessCreatedResponse(ctx, dto.EventCreatedResponse{EventID: id})
}

func (s *service) UpdateEvent(ctx *ginext.Context) {
	eventID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	var req dto.EventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	if err := s.repo.UpdateEvent(ctx.Request.Context(), eventID, eventFromRequest(req)); err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to update event")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessResponse(ctx, map[string]string{"message": "Event updated successfully"})
}

func (s *service) DeleteEvent(ctx *ginext.Context) {
	eventID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	if err := s.repo.DeleteEventTx(ctx.Request.Context(), eventID); err != nil {
		switch {
		case errors.Is(err, repo.ErrEventNotFound):
			dto.EventNotFoundError(ctx)
		case errors.Is(err, repo.ErrEventHasRegistrations):
			dto.EventHasRegistrationsError(ctx)
		default:
			s.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to delete event")
			dto.InternalServerError(ctx)
		}
		return
	}

	dto.SuccessResponse(ctx, map[string]string{"message": "Event deleted successfully"})
}
