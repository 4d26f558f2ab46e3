package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrTitleRequired     = errors.New("title is required")
	ErrInvalidEventTimes = errors.New("end time must be after start time")
	ErrInvalidEventType  = errors.New("invalid event type")
	ErrInvalidResponse   = errors.New("response must be accepted, declined or tentative")
	ErrNotAttendee       = errors.New("you are not an attendee of this event")
	ErrNotEventCreator   = errors.New("only the creator can change this event")
	ErrInvalidRange      = errors.New("start and end are required and start must not be after end")
)

// CalendarService manages events visible to their creator and attendees.
type CalendarService struct {
	repo    repository.CalendarRepository
	members repository.TeamMemberRepository
	clock   func() time.Time
}

func NewCalendarService(repo repository.CalendarRepository, members repository.TeamMemberRepository) *CalendarService {
	return &CalendarService{repo: repo, members: members, clock: time.Now}
}

// EventInput holds event fields. Nil fields are left unchanged on update;
// a non-nil AttendeeIDs replaces the attendee list.
type EventInput struct {
	Title                     *string
	Description               *string
	StartTime                 *time.Time
	EndTime                   *time.Time
	AllDay                    *bool
	Location                  *string
	EventType                 *models.EventType
	RelatedTaskID             *uint64
	RelatedProjectID          *uint64
	IsRecurring               *bool
	RecurrencePattern         *string
	RecurrenceEndDate         *time.Time
	NotificationMinutesBefore *int
	AttendeeIDs               *[]uint64
}

func validEventType(t models.EventType) bool {
	switch t {
	case models.EventTypeMeeting, models.EventTypeDeadline, models.EventTypeReminder, models.EventTypeOther:
		return true
	}
	return false
}

func (s *CalendarService) ListEvents(p *access.Principal) ([]models.CalendarEvent, error) {
	return s.list(p, nil, nil)
}

// Upcoming lists the events in the next seven days.
func (s *CalendarService) Upcoming(p *access.Principal) ([]models.CalendarEvent, error) {
	from := s.clock()
	to := from.AddDate(0, 0, constants.UpcomingEventsWindowDays)
	return s.list(p, &from, &to)
}

// Range lists the events overlapping [from, to].
func (s *CalendarService) Range(p *access.Principal, from, to *time.Time) ([]models.CalendarEvent, error) {
	if from == nil || to == nil || from.After(*to) {
		return nil, ErrInvalidRange
	}
	return s.list(p, from, to)
}

func (s *CalendarService) list(p *access.Principal, from, to *time.Time) ([]models.CalendarEvent, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}
	events, err := s.repo.List(repository.EventFilter{OrganizationID: orgID, UserID: p.User.ID, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *CalendarService) GetEvent(p *access.Principal, id uint64) (*models.CalendarEvent, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}
	event, err := s.repo.FindVisible(orgID, p.User.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return event, nil
}

func (s *CalendarService) CreateEvent(p *access.Principal, input EventInput) (*models.CalendarEvent, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if input.StartTime == nil || input.EndTime == nil {
		return nil, ErrInvalidEventTimes
	}

	event := &models.CalendarEvent{
		OrganizationID:            orgID,
		CreatorID:                 p.User.ID,
		EventType:                 models.EventTypeOther,
		NotificationMinutesBefore: 15,
	}
	if err := mergeEvent(event, input); err != nil {
		return nil, err
	}

	var attendees []uint64
	if input.AttendeeIDs != nil {
		attendees = uniqueIDs(*input.AttendeeIDs)
		if err := s.ensureAttendees(orgID, attendees); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(event, attendees); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return s.GetEvent(p, event.ID)
}

// UpdateEvent changes an event. Only its creator may do so.
func (s *CalendarService) UpdateEvent(p *access.Principal, id uint64, input EventInput) (*models.CalendarEvent, error) {
	event, err := s.GetEvent(p, id)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != p.User.ID {
		return nil, ErrNotEventCreator
	}
	if err := mergeEvent(event, input); err != nil {
		return nil, err
	}

	var attendees *[]uint64
	if input.AttendeeIDs != nil {
		ids := uniqueIDs(*input.AttendeeIDs)
		if err := s.ensureAttendees(event.OrganizationID, ids); err != nil {
			return nil, err
		}
		attendees = &ids
	}

	event.Attendees = nil
	if err := s.repo.Update(event, attendees); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return s.GetEvent(p, id)
}

func (s *CalendarService) DeleteEvent(p *access.Principal, id uint64) error {
	event, err := s.GetEvent(p, id)
	if err != nil {
		return err
	}
	if event.CreatorID != p.User.ID {
		return ErrNotEventCreator
	}
	if err := s.repo.Delete(event.ID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// Respond records the principal's answer to an invitation to the event.
func (s *CalendarService) Respond(p *access.Principal, id uint64, response models.AttendeeResponse) (*models.CalendarEvent, error) {
	if !response.Valid() {
		return nil, ErrInvalidResponse
	}
	event, err := s.GetEvent(p, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Respond(event.ID, p.User.ID, response); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAttendee
		}
		return nil, fmt.Errorf("failed to record response: %w", err)
	}
	return s.GetEvent(p, id)
}

func (s *CalendarService) ensureAttendees(orgID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := s.members.CountUsersInOrganization(orgID, ids)
	if err != nil {
		return fmt.Errorf("failed to verify attendees: %w", err)
	}
	if n != int64(len(ids)) {
		return ErrParticipantsOutside
	}
	return nil
}

func mergeEvent(event *models.CalendarEvent, input EventInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return ErrTitleRequired
		}
		event.Title = title
	}
	if input.Description != nil {
		event.Description = *input.Description
	}
	if input.StartTime != nil {
		event.StartTime = *input.StartTime
	}
	if input.EndTime != nil {
		event.EndTime = *input.EndTime
	}
	if input.AllDay != nil {
		event.AllDay = *input.AllDay
	}
	if input.Location != nil {
		event.Location = *input.Location
	}
	if input.EventType != nil {
		if !validEventType(*input.EventType) {
			return ErrInvalidEventType
		}
		event.EventType = *input.EventType
	}
	if input.RelatedTaskID != nil {
		event.RelatedTaskID = input.RelatedTaskID
	}
	if input.RelatedProjectID != nil {
		event.RelatedProjectID = input.RelatedProjectID
	}
	if input.IsRecurring != nil {
		event.IsRecurring = *input.IsRecurring
	}
	if input.RecurrencePattern != nil {
		event.RecurrencePattern = *input.RecurrencePattern
	}
	if input.RecurrenceEndDate != nil {
		event.RecurrenceEndDate = input.RecurrenceEndDate
	}
	if input.NotificationMinutesBefore != nil {
		event.NotificationMinutesBefore = *input.NotificationMinutesBefore
	}

	if event.EndTime.Before(event.StartTime) {
		return ErrInvalidEventTimes
	}
	return nil
}
