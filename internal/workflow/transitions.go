package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// SetStatus moves task to status. Entering completed stamps CompletedAt
// unless an earlier completion already did.
func SetStatus(task *models.Task, status models.TaskStatus, now time.Time) {
	task.Status = status
	if status == models.TaskStatusCompleted && task.CompletedAt == nil {
		t := now
		task.CompletedAt = &t
	}
}

// statusAction is the history action recorded for entering status.
func statusAction(status models.TaskStatus) models.HistoryAction {
	switch status {
	case models.TaskStatusCompleted:
		return models.ActionCompleted
	case models.TaskStatusApproved:
		return models.ActionApproved
	case models.TaskStatusRejected:
		return models.ActionRejected
	}
	return models.ActionStatusChanged
}

// Approve marks a completed task approved by actor.
func Approve(task *models.Task, actor *models.User) (models.TaskHistory, error) {
	if task.Status != models.TaskStatusCompleted {
		return models.TaskHistory{}, invalid("status", "Only completed tasks can be approved")
	}

	task.Status = models.TaskStatusApproved
	task.ApprovedByID = &actor.ID

	return entry(models.ActionApproved, actor, "Task was approved by "+actor.DisplayName()), nil
}

// Reject marks a completed task rejected by actor. A reason is required.
func Reject(task *models.Task, actor *models.User, reason string) (models.TaskHistory, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.TaskHistory{}, invalid("rejection_reason", "Rejection reason is required")
	}
	if task.Status != models.TaskStatusCompleted {
		return models.TaskHistory{}, invalid("status", "Only completed tasks can be rejected")
	}

	task.Status = models.TaskStatusRejected
	task.RejectedByID = &actor.ID
	task.RejectionReason = reason

	return entry(models.ActionRejected, actor,
		fmt.Sprintf("Task was rejected by %s. Reason: %s", actor.DisplayName(), reason)), nil
}

// Assign makes member the primary assignee.
func Assign(task *models.Task, actor *models.User, member *models.TeamMember) (models.TaskHistory, error) {
	if err := SameOrganization(task, member, "team_member_id"); err != nil {
		return models.TaskHistory{}, err
	}

	task.AssignedToID = &member.ID
	task.AssignedTo = member

	return entry(models.ActionAssigned, actor, "Task assigned to "+member.Name), nil
}

// Delegate hands the task to member, recording who delegated and why.
// Whether actor may delegate at all is decided by the caller.
func Delegate(task *models.Task, actor *models.User, member *models.TeamMember, notes string, now time.Time) (models.TaskHistory, error) {
	if err := SameOrganization(task, member, "team_member_id"); err != nil {
		return models.TaskHistory{}, err
	}

	at := now
	task.AssignedToID = &member.ID
	task.AssignedTo = member
	task.DelegatedByID = &actor.ID
	task.DelegationNotes = notes
	task.DelegationDate = &at

	note := ""
	if notes != "" {
		note = " with note: " + notes
	}
	return entry(models.ActionDelegated, actor,
		fmt.Sprintf("Task was delegated by %s to %s%s", actor.DisplayName(), member.Name, note)), nil
}
