package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusApproved   TaskStatus = "approved"
	TaskStatusRejected   TaskStatus = "rejected"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusApproved, TaskStatusRejected:
		return true
	}
	return false
}

// Done reports whether s counts as finished work in reports.
func (s TaskStatus) Done() bool {
	return s == TaskStatusCompleted || s == TaskStatusApproved
}

// Open reports whether a task in status s can become overdue.
func (s TaskStatus) Open() bool {
	return s == TaskStatusPending || s == TaskStatusInProgress
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	Title       string       `gorm:"type:varchar(255);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Category    string       `gorm:"type:varchar(100)" json:"category"`
	StartDate   *time.Time   `json:"start_date"`
	DueDate     *time.Time   `gorm:"index" json:"due_date"`

	EstimatedHours      decimal.NullDecimal `gorm:"type:decimal(8,2)" json:"estimated_hours"`
	BudgetHours         decimal.NullDecimal `gorm:"type:decimal(8,2)" json:"budget_hours"`
	TimeTrackingEnabled bool                `gorm:"not null;default:false" json:"time_tracking_enabled"`
	IsBillable          bool                `gorm:"not null;default:false" json:"is_billable"`
	ClientReference     string              `gorm:"type:varchar(255)" json:"client_reference"`

	IsRecurring        bool       `gorm:"not null;default:false" json:"is_recurring"`
	RecurringFrequency string     `gorm:"type:varchar(20)" json:"recurring_frequency"`
	RecurringEndsOn    *time.Time `json:"recurring_ends_on"`

	AcceptanceCriteria string                     `gorm:"type:text" json:"acceptance_criteria"`
	Notes              string                     `gorm:"type:text" json:"notes"`
	Visibility         string                     `gorm:"type:varchar(20);not null;default:'team'" json:"visibility"`
	Tags               datatypes.JSONSlice[string] `json:"tags"`

	OrganizationID uint64  `gorm:"not null;index" json:"organization_id"`
	ProjectID      *uint64 `gorm:"index" json:"project_id"`
	CreatedByID    uint64  `gorm:"not null;index" json:"created_by_id"`
	AssignedToID   *uint64 `gorm:"index" json:"assigned_to_id"`

	CompletedAt     *time.Time `json:"completed_at"`
	ApprovedByID    *uint64    `json:"approved_by_id"`
	RejectedByID    *uint64    `json:"rejected_by_id"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`
	DelegatedByID   *uint64    `json:"delegated_by_id"`
	DelegationNotes string     `gorm:"type:text" json:"delegation_notes"`
	DelegationDate  *time.Time `json:"delegation_date"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	Project      *Project      `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	CreatedBy    *User         `gorm:"foreignKey:CreatedByID" json:"-"`
	AssignedTo   *TeamMember   `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	ApprovedBy   *User         `gorm:"foreignKey:ApprovedByID" json:"-"`
	RejectedBy   *User         `gorm:"foreignKey:RejectedByID" json:"-"`
	DelegatedBy  *User         `gorm:"foreignKey:DelegatedByID" json:"-"`

	Assignees     []TeamMember `gorm:"many2many:task_assignees;" json:"assignees,omitempty"`
	Approvers     []TeamMember `gorm:"many2many:task_approvers;" json:"approvers,omitempty"`
	Watchers      []TeamMember `gorm:"many2many:task_watchers;" json:"watchers,omitempty"`
	Prerequisites []Task       `gorm:"many2many:task_prerequisites;joinForeignKey:TaskID;joinReferences:PrerequisiteID" json:"prerequisites,omitempty"`
	LinkedTasks   []Task       `gorm:"many2many:task_links;joinForeignKey:TaskID;joinReferences:LinkedTaskID" json:"linked_tasks,omitempty"`

	// LinkedFrom is the reverse side of task_links: tasks that link to this one.
	LinkedFrom []Task `gorm:"many2many:task_links;joinForeignKey:LinkedTaskID;joinReferences:TaskID" json:"-"`

	Comments    []Comment        `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
	Attachments []TaskAttachment `gorm:"foreignKey:TaskID" json:"attachments,omitempty"`
	History     []TaskHistory    `gorm:"foreignKey:TaskID" json:"history,omitempty"`
	TimeEntries []TimeEntry      `gorm:"foreignKey:TaskID" json:"time_entries,omitempty"`
}

// TaskRelations lists the associations loaded for a task detail view.
var TaskRelations = []string{
	"Project", "AssignedTo", "CreatedBy", "ApprovedBy", "RejectedBy", "DelegatedBy",
	"Assignees", "Approvers", "Watchers", "Prerequisites", "LinkedTasks", "LinkedFrom",
}
