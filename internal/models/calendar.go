package models

import "time"

type EventType string

const (
	EventTypeMeeting  EventType = "meeting"
	EventTypeDeadline EventType = "deadline"
	EventTypeReminder EventType = "reminder"
	EventTypeOther    EventType = "other"
)

type AttendeeResponse string

const (
	ResponsePending   AttendeeResponse = "pending"
	ResponseAccepted  AttendeeResponse = "accepted"
	ResponseDeclined  AttendeeResponse = "declined"
	ResponseTentative AttendeeResponse = "tentative"
)

// Valid reports whether r is an answer an attendee may give.
func (r AttendeeResponse) Valid() bool {
	switch r {
	case ResponseAccepted, ResponseDeclined, ResponseTentative:
		return true
	}
	return false
}

type CalendarEvent struct {
	ID                        uint64     `gorm:"primarykey" json:"id"`
	OrganizationID            uint64     `gorm:"not null;index" json:"organization_id"`
	Title                     string     `gorm:"type:varchar(255);not null" json:"title"`
	Description               string     `gorm:"type:text" json:"description"`
	StartTime                 time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime                   time.Time  `gorm:"not null" json:"end_time"`
	AllDay                    bool       `gorm:"not null;default:false" json:"all_day"`
	Location                  string     `gorm:"type:varchar(255)" json:"location"`
	EventType                 EventType  `gorm:"type:varchar(20);not null;default:'other'" json:"event_type"`
	CreatorID                 uint64     `gorm:"not null;index" json:"creator_id"`
	RelatedTaskID             *uint64    `json:"related_task_id"`
	RelatedProjectID          *uint64    `json:"related_project_id"`
	IsRecurring               bool       `gorm:"not null;default:false" json:"is_recurring"`
	RecurrencePattern         string     `gorm:"type:varchar(100)" json:"recurrence_pattern"`
	RecurrenceEndDate         *time.Time `json:"recurrence_end_date"`
	NotificationMinutesBefore int        `gorm:"not null;default:15" json:"notification_minutes_before"`
	CreatedAt                 time.Time  `json:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at"`

	Attendees []EventAttendee `gorm:"foreignKey:EventID" json:"attendees,omitempty"`
}

type EventAttendee struct {
	ID           uint64           `gorm:"primarykey" json:"id"`
	EventID      uint64           `gorm:"not null;uniqueIndex:idx_attendees_event_user" json:"event_id"`
	UserID       uint64           `gorm:"not null;uniqueIndex:idx_attendees_event_user" json:"user_id"`
	Response     AttendeeResponse `gorm:"type:varchar(20);not null;default:'pending'" json:"response"`
	ResponseDate time.Time        `gorm:"autoUpdateTime" json:"response_date"`
}
