package workflow

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/taskflow-api/internal/models"
)

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newTask(status models.TaskStatus) *models.Task {
	return &models.Task{
		ID:             7,
		Title:          "Write report",
		Status:         status,
		Priority:       models.TaskPriorityLow,
		OrganizationID: 1,
		CreatedByID:    1,
	}
}

var actor = &models.User{ID: 3, Email: "jane.doe@example.com", Name: "Jane Doe"}

func TestApproveAndReject_OnlyFromCompleted(t *testing.T) {
	for _, status := range []models.TaskStatus{
		models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusApproved, models.TaskStatusRejected,
	} {
		t.Run(string(status), func(t *testing.T) {
			task := newTask(status)

			_, err := Approve(task, actor)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "Only completed tasks can be approved", verr.Message)

			_, err = Reject(task, actor, "not good")
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "Only completed tasks can be rejected", verr.Message)

			assert.Equal(t, status, task.Status)
			assert.Nil(t, task.ApprovedByID)
			assert.Nil(t, task.RejectedByID)
		})
	}
}

func TestApprove(t *testing.T) {
	completedAt := now.Add(-time.Hour)
	task := newTask(models.TaskStatusCompleted)
	task.CompletedAt = &completedAt

	h, err := Approve(task, actor)
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusApproved, task.Status)
	assert.Equal(t, actor.ID, *task.ApprovedByID)
	assert.Equal(t, completedAt, *task.CompletedAt)
	assert.Equal(t, models.ActionApproved, h.Action)
	assert.Equal(t, "Task was approved by Jane Doe", h.Description)
}

func TestReject_RequiresReason(t *testing.T) {
	task := newTask(models.TaskStatusCompleted)

	_, err := Reject(task, actor, "   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "rejection_reason", verr.Field)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)

	h, err := Reject(task, &models.User{ID: 4, Email: "bob@example.com"}, "Missing tests")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRejected, task.Status)
	assert.Equal(t, "Missing tests", task.RejectionReason)
	assert.Equal(t, "Task was rejected by bob. Reason: Missing tests", h.Description)
}

func TestSetStatus_StampsCompletedAtOnce(t *testing.T) {
	task := newTask(models.TaskStatusInProgress)

	SetStatus(task, models.TaskStatusCompleted, now)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)

	SetStatus(task, models.TaskStatusInProgress, now.Add(time.Hour))
	SetStatus(task, models.TaskStatusCompleted, now.Add(2*time.Hour))
	assert.Equal(t, now, *task.CompletedAt)
}

func TestDelegate(t *testing.T) {
	task := newTask(models.TaskStatusInProgress)
	member := &models.TeamMember{ID: 9, OrganizationID: 1, Name: "Sam"}

	h, err := Delegate(task, actor, member, "on leave next week", now)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), *task.AssignedToID)
	assert.Equal(t, actor.ID, *task.DelegatedByID)
	assert.Equal(t, now, *task.DelegationDate)
	assert.Equal(t, models.ActionDelegated, h.Action)
	assert.Equal(t, "Task was delegated by Jane Doe to Sam with note: on leave next week", h.Description)

	h, err = Delegate(task, actor, member, "", now)
	require.NoError(t, err)
	assert.Equal(t, "Task was delegated by Jane Doe to Sam", h.Description)
}

func TestAssignAndDelegate_RejectOtherOrganization(t *testing.T) {
	task := newTask(models.TaskStatusPending)
	outsider := &models.TeamMember{ID: 11, OrganizationID: 2, Name: "Eve"}

	_, err := Assign(task, actor, outsider)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Team member must belong to the same organization as the task")

	_, err = Delegate(task, actor, outsider, "", now)
	require.Error(t, err)
	assert.Nil(t, task.AssignedToID)
	assert.Nil(t, task.DelegatedByID)
}

func TestApply_FragmentsAndHistory(t *testing.T) {
	task := newTask(models.TaskStatusPending)
	task.AssignedToID = ptr(uint64(5))
	task.AssignedTo = &models.TeamMember{ID: 5, OrganizationID: 1, Name: "Alice"}
	task.Watchers = []models.TeamMember{*task.AssignedTo}
	next := &models.TeamMember{ID: 6, OrganizationID: 1, Name: "Bob"}
	due := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	patch := Patch{
		Priority:     ptr(models.TaskPriorityHigh),
		Status:       ptr(models.TaskStatusInProgress),
		DueDate:      Of(due),
		AssignedToID: Of(uint64(6)),
		Watchers:     &[]uint64{},
	}

	change, err := Apply(task, patch, Refs{AssignedTo: next}, now)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Status changed from 'pending' to 'in_progress'",
		"Priority changed from 'low' to 'high'",
		"Due Date changed from 'none' to '2024-04-01'",
		"Assigned to changed from Alice to Bob",
		"Watchers updated",
	}, change.Fragments)

	rows := change.History(actor)
	require.Len(t, rows, 2)
	assert.Equal(t, models.ActionUpdated, rows[0].Action)
	assert.True(t, strings.HasPrefix(rows[0].Description, "Task updated: Status changed"))
	assert.Equal(t, models.ActionStatusChanged, rows[1].Action)
	assert.Equal(t, "Status changed from pending to in_progress", rows[1].Description)

	assert.Equal(t, models.TaskPriorityHigh, task.Priority)
	assert.Equal(t, uint64(6), *task.AssignedToID)
}

func TestApply_CompletedStatusAction(t *testing.T) {
	task := newTask(models.TaskStatusInProgress)

	change, err := Apply(task, Patch{Status: ptr(models.TaskStatusCompleted)}, Refs{}, now)
	require.NoError(t, err)

	rows := change.History(actor)
	require.Len(t, rows, 2)
	assert.Equal(t, models.ActionCompleted, rows[1].Action)
	assert.Equal(t, now, *task.CompletedAt)
}

func TestApply_NoChangeNoHistory(t *testing.T) {
	task := newTask(models.TaskStatusPending)

	change, err := Apply(task, Patch{Title: ptr("Write report"), Priority: ptr(models.TaskPriorityLow)}, Refs{}, now)
	require.NoError(t, err)
	assert.Empty(t, change.History(actor))
}

func TestApply_UnchangedSetsNoHistory(t *testing.T) {
	task := newTask(models.TaskStatusPending)
	task.Assignees = []models.TeamMember{{ID: 5, OrganizationID: 1}, {ID: 6, OrganizationID: 1}}
	task.LinkedTasks = []models.Task{{ID: 8, OrganizationID: 1}}

	change, err := Apply(task, Patch{
		Assignees:   &[]uint64{6, 5, 5},
		Watchers:    &[]uint64{},
		LinkedTasks: &[]uint64{8},
	}, Refs{}, now)
	require.NoError(t, err)
	assert.Empty(t, change.Fragments)
	assert.Empty(t, change.History(actor))

	change, err = Apply(task, Patch{Assignees: &[]uint64{5}, LinkedTasks: &[]uint64{8}}, Refs{}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"Additional assignees updated"}, change.Fragments)
}

func TestApply_ValidationLeavesTaskUntouched(t *testing.T) {
	start := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		patch Patch
		field string
	}{
		{"approve through update", Patch{Status: ptr(models.TaskStatusApproved)}, "status"},
		{"reject through update", Patch{Status: ptr(models.TaskStatusRejected)}, "status"},
		{"unknown status", Patch{Status: ptr(models.TaskStatus("done"))}, "status"},
		{"recurring without frequency", Patch{IsRecurring: ptr(true)}, "recurring_frequency"},
		{"billable without tracking", Patch{IsBillable: ptr(true)}, "is_billable"},
		{"start after due", Patch{StartDate: Of(start), DueDate: Of(due)}, "due_date"},
		{"assignee from other organization", Patch{AssignedToID: Of(uint64(8))}, "assigned_to_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newTask(models.TaskStatusCompleted)
			before := *task

			refs := Refs{AssignedTo: &models.TeamMember{ID: 8, OrganizationID: 2, Name: "Eve"}}
			_, err := Apply(task, tt.patch, refs, now)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, before, *task)
		})
	}
}

func TestApply_ClearAndHours(t *testing.T) {
	due := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	task := newTask(models.TaskStatusPending)
	task.DueDate = &due
	task.EstimatedHours = decimal.NewNullDecimal(decimal.NewFromInt(4))

	change, err := Apply(task, Patch{
		DueDate:        Null[time.Time](),
		EstimatedHours: Of(decimal.RequireFromString("6.5")),
	}, Refs{}, now)
	require.NoError(t, err)

	assert.Nil(t, task.DueDate)
	assert.Equal(t, []string{
		"Due Date changed from '2024-04-01' to 'none'",
		"Estimated Hours changed from '4' to '6.5'",
	}, change.Fragments)
}

func TestPatch_JSONDistinguishesNullFromAbsent(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"due_date": null, "assigned_to_id": 4, "tags_list": ["a", "b"]}`), &p))

	assert.True(t, p.DueDate.Set)
	assert.Nil(t, p.DueDate.Value)
	assert.False(t, p.StartDate.Set)
	require.True(t, p.AssignedToID.Set)
	assert.Equal(t, uint64(4), *p.AssignedToID.Value)
	assert.Equal(t, []string{"a", "b"}, *p.Tags)
}

func TestCommented_Preview(t *testing.T) {
	short := Commented("Looks good", actor)
	assert.Equal(t, "Comment added: Looks good", short.Description)
	assert.Equal(t, models.ActionCommented, short.Action)

	long := Commented(strings.Repeat("x", 60), actor)
	assert.Equal(t, "Comment added: "+strings.Repeat("x", 50)+"...", long.Description)
}

func TestCreated(t *testing.T) {
	h := Created(newTask(models.TaskStatusPending), actor)
	assert.Equal(t, models.ActionCreated, h.Action)
	assert.Equal(t, "Task 'Write report' was created", h.Description)
	assert.Equal(t, actor.ID, h.ActorID)
}
