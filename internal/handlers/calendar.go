package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
)

type CalendarHandler struct {
	calendarService *services.CalendarService
}

func NewCalendarHandler(calendarService *services.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService}
}

type eventRequest struct {
	Title                     *string           `json:"title" binding:"omitempty,max=255"`
	Description               *string           `json:"description"`
	StartTime                 *time.Time        `json:"start_time"`
	EndTime                   *time.Time        `json:"end_time"`
	AllDay                    *bool             `json:"all_day"`
	Location                  *string           `json:"location" binding:"omitempty,max=255"`
	EventType                 *models.EventType `json:"event_type"`
	RelatedTaskID             *uint64           `json:"related_task"`
	RelatedProjectID          *uint64           `json:"related_project"`
	IsRecurring               *bool             `json:"is_recurring"`
	RecurrencePattern         *string           `json:"recurrence_pattern"`
	RecurrenceEndDate         *time.Time        `json:"recurrence_end_date"`
	NotificationMinutesBefore *int              `json:"notification_minutes_before" binding:"omitempty,min=0"`
	AttendeeIDs               *[]uint64         `json:"attendees"`
}

func (r eventRequest) input() services.EventInput {
	return services.EventInput{
		Title:                     r.Title,
		Description:               r.Description,
		StartTime:                 r.StartTime,
		EndTime:                   r.EndTime,
		AllDay:                    r.AllDay,
		Location:                  r.Location,
		EventType:                 r.EventType,
		RelatedTaskID:             r.RelatedTaskID,
		RelatedProjectID:          r.RelatedProjectID,
		IsRecurring:               r.IsRecurring,
		RecurrencePattern:         r.RecurrencePattern,
		RecurrenceEndDate:         r.RecurrenceEndDate,
		NotificationMinutesBefore: r.NotificationMinutesBefore,
		AttendeeIDs:               r.AttendeeIDs,
	}
}

func (h *CalendarHandler) ListEvents(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	events, err := h.calendarService.ListEvents(p)
	if err != nil {
		respondError(c, err, "Failed to fetch events")
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Upcoming returns the events starting within the next week.
func (h *CalendarHandler) Upcoming(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	events, err := h.calendarService.Upcoming(p)
	if err != nil {
		respondError(c, err, "Failed to fetch events")
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Range returns the events overlapping ?start=&end=.
func (h *CalendarHandler) Range(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	from, ok := queryTime(c, "start")
	if !ok {
		return
	}
	to, ok := queryTime(c, "end")
	if !ok {
		return
	}

	events, err := h.calendarService.Range(p, from, to)
	if err != nil {
		respondError(c, err, "Failed to fetch events")
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *CalendarHandler) GetEvent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	event, err := h.calendarService.GetEvent(p, id)
	if err != nil {
		respondError(c, err, "Failed to fetch event")
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *CalendarHandler) CreateEvent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req eventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.calendarService.CreateEvent(p, req.input())
	if err != nil {
		respondError(c, err, "Failed to create event")
		return
	}

	c.JSON(http.StatusCreated, event)
}

func (h *CalendarHandler) UpdateEvent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	var req eventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.calendarService.UpdateEvent(p, id, req.input())
	if err != nil {
		respondError(c, err, "Failed to update event")
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *CalendarHandler) DeleteEvent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.calendarService.DeleteEvent(p, id); err != nil {
		respondError(c, err, "Failed to delete event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}

// Respond records the caller's attendance answer.
func (h *CalendarHandler) Respond(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	type RespondRequest struct {
		Response models.AttendeeResponse `json:"response" binding:"required"`
	}

	var req RespondRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.calendarService.Respond(p, id, req.Response)
	if err != nil {
		respondError(c, err, "Failed to record response")
		return
	}

	c.JSON(http.StatusOK, event)
}
