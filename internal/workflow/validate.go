package workflow

import (
	"github.com/yukikurage/taskflow-api/internal/models"
)

// ValidationError is a rejected input, reported before anything is changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Details returns the error in the field → message shape of API error details.
func (e *ValidationError) Details() map[string]string {
	field := e.Field
	if field == "" {
		field = "non_field_errors"
	}
	return map[string]string{field: e.Message}
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

const msgOtherOrganization = "Team member must belong to the same organization as the task"

// ValidateTask runs the cross-field checks on a task's full state.
func ValidateTask(task *models.Task) error {
	if task.Title == "" {
		return invalid("title", "Title is required")
	}
	if !task.Status.Valid() {
		return invalid("status", "Invalid status")
	}
	if !task.Priority.Valid() {
		return invalid("priority", "Invalid priority")
	}
	if task.IsRecurring && task.RecurringFrequency == "" {
		return invalid("recurring_frequency", "Recurring frequency is required for recurring tasks")
	}
	if task.IsBillable && !task.TimeTrackingEnabled {
		return invalid("is_billable", "Time tracking must be enabled for billable tasks")
	}
	if task.StartDate != nil && task.DueDate != nil && task.StartDate.After(*task.DueDate) {
		return invalid("due_date", "Due date must be after start date")
	}
	return nil
}

// SameOrganization rejects a team member from another organization than task.
func SameOrganization(task *models.Task, member *models.TeamMember, field string) error {
	if member == nil || member.OrganizationID != task.OrganizationID {
		return invalid(field, msgOtherOrganization)
	}
	return nil
}
