package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type HistoryAction string

const (
	ActionCreated       HistoryAction = "created"
	ActionUpdated       HistoryAction = "updated"
	ActionAssigned      HistoryAction = "assigned"
	ActionDelegated     HistoryAction = "delegated"
	ActionStatusChanged HistoryAction = "status_changed"
	ActionCommented     HistoryAction = "commented"
	ActionCompleted     HistoryAction = "completed"
	ActionApproved      HistoryAction = "approved"
	ActionRejected      HistoryAction = "rejected"
)

// TaskHistory rows are append-only.
type TaskHistory struct {
	ID          uint64        `gorm:"primarykey" json:"id"`
	TaskID      uint64        `gorm:"not null;index" json:"task_id"`
	Action      HistoryAction `gorm:"type:varchar(20);not null" json:"action"`
	ActorID     uint64        `gorm:"not null" json:"actor_id"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Timestamp   time.Time     `gorm:"autoCreateTime;index" json:"timestamp"`

	Actor *User `gorm:"foreignKey:ActorID" json:"-"`
}

func (TaskHistory) TableName() string {
	return "task_histories"
}

type Comment struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	TaskID    uint64    `gorm:"not null;index" json:"task_id"`
	AuthorID  uint64    `gorm:"not null" json:"author_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author *User `gorm:"foreignKey:AuthorID" json:"-"`
}

type TaskAttachment struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	TaskID       uint64    `gorm:"not null;index" json:"task_id"`
	Filename     string    `gorm:"type:varchar(255);not null" json:"filename"`
	StoredPath   string    `gorm:"type:varchar(512);not null" json:"-"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedByID uint64    `gorm:"not null" json:"uploaded_by_id"`
	UploadedAt   time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

// TimeEntry is one logged block of work against a task.
type TimeEntry struct {
	ID           uint64          `gorm:"primarykey" json:"id"`
	TaskID       uint64          `gorm:"not null;index" json:"task_id"`
	UserID       uint64          `gorm:"not null;index" json:"user_id"`
	TeamMemberID *uint64         `json:"team_member_id"`
	Hours        decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"hours"`
	Note         string          `gorm:"type:text" json:"note"`
	SpentOn      time.Time       `json:"spent_on"`
	CreatedAt    time.Time       `json:"created_at"`
}
