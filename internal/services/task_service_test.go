package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/taskflow-api/internal/dto"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/utils"
	"github.com/yukikurage/taskflow-api/internal/workflow"
)

type stubDrafter struct {
	drafts []DraftTask
	err    error
}

func (d stubDrafter) DraftTasks(context.Context, string, time.Time) ([]DraftTask, error) {
	return d.drafts, d.err
}

func newTaskService(f *fixture, drafter TaskDrafter) *TaskService {
	s := NewTaskService(f.tasks, f.projects, f.members, f.authz, drafter, f.t.TempDir(), f.log)
	s.clock = fixedClock
	return s
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var verr *workflow.ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	assert.Equal(t, field, verr.Field)
}

func TestCreateTask_DefaultsAndHistory(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)
	p := f.principal(f.owner)

	task, err := s.CreateTask(p, workflow.Patch{
		Title: ptr("Write launch plan"),
		Tags:  &[]string{"a", "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)
	assert.Equal(t, f.org.ID, task.OrganizationID)
	assert.Equal(t, []string{"a", "b"}, []string(task.Tags))

	history, err := s.ListHistory(task)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ActionCreated, history[0].Action)
	assert.Equal(t, "Task 'Write launch plan' was created", history[0].Description)
}

func TestCreateTask_Validation(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)
	p := f.principal(f.owner)

	_, err := s.CreateTask(p, workflow.Patch{Title: ptr("x"), IsRecurring: ptr(true)})
	requireValidation(t, err, "recurring_frequency")

	_, err = s.CreateTask(p, workflow.Patch{Title: ptr("x"), IsBillable: ptr(true)})
	requireValidation(t, err, "is_billable")

	_, err = s.CreateTask(p, workflow.Patch{Title: ptr("x"), AssignedToID: workflow.Of(f.outsiderRow.ID)})
	requireValidation(t, err, "assigned_to_id")

	_, err = s.CreateTask(p, workflow.Patch{Title: ptr("x"), Watchers: &[]uint64{f.outsiderRow.ID}})
	requireValidation(t, err, "watchers")

	var count int64
	require.NoError(t, f.db.Model(&models.Task{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateTask_FragmentsAndStatusRow(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)
	p := f.principal(f.owner)
	stored := f.task(f.org, f.owner, "Ship", func(t *models.Task) { t.Priority = models.TaskPriorityLow })

	task, err := s.GetTask(p, stored.ID)
	require.NoError(t, err)

	done := models.TaskStatusCompleted
	high := models.TaskPriorityHigh
	task, err = s.UpdateTask(p, task, workflow.Patch{
		Priority:     &high,
		Status:       &done,
		AssignedToID: workflow.Of(f.workerRow.ID),
	})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)
	assert.True(t, task.CompletedAt.Equal(testNow))

	history, err := s.ListHistory(task)
	require.NoError(t, err)
	var updated, completed *models.TaskHistory
	for i := range history {
		switch history[i].Action {
		case models.ActionUpdated:
			updated = &history[i]
		case models.ActionCompleted:
			completed = &history[i]
		}
	}
	require.NotNil(t, updated)
	require.NotNil(t, completed)
	assert.Contains(t, updated.Description, "Priority changed from 'low' to 'high'")
	assert.Contains(t, updated.Description, "Assigned to changed from Unassigned to Walter Worker")
	assert.Equal(t, "Status changed from pending to completed", completed.Description)
}

func TestUpdateTask_ReplacesSets(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)
	p := f.principal(f.owner)
	stored := f.task(f.org, f.owner, "Sets")

	task, err := s.GetTask(p, stored.ID)
	require.NoError(t, err)
	task, err = s.UpdateTask(p, task, workflow.Patch{Watchers: &[]uint64{f.workerRow.ID, f.ownerMember.ID}})
	require.NoError(t, err)
	assert.Len(t, task.Watchers, 2)

	task, err = s.UpdateTask(p, task, workflow.Patch{Title: ptr("Sets v2")})
	require.NoError(t, err)
	assert.Len(t, task.Watchers, 2, "omitted set is untouched")

	task, err = s.UpdateTask(p, task, workflow.Patch{Watchers: &[]uint64{}})
	require.NoError(t, err)
	assert.Empty(t, task.Watchers)

	_, err = s.UpdateTask(p, task, workflow.Patch{Prerequisites: &[]uint64{task.ID}})
	requireValidation(t, err, "prerequisites")
}

func TestUpdateTask_LinksReadFromBothSides(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)
	p := f.principal(f.owner)
	a := f.task(f.org, f.owner, "Design")
	b := f.task(f.org, f.owner, "Build")

	task, err := s.GetTask(p, a.ID)
	require.NoError(t, err)
	_, err = s.UpdateTask(p, task, workflow.Patch{LinkedTasks: &[]uint64{b.ID}})
	require.NoError(t, err)

	linked, err := s.GetTask(p, b.ID)
	require.NoError(t, err)
	summary := dto.ToTaskDTO(*linked).LinkedTasks
	require.Len(t, summary, 1)
	assert.Equal(t, a.ID, summary[0].ID)

	// linking back does not list the pair twice
	_, err = s.UpdateTask(p, linked, workflow.Patch{LinkedTasks: &[]uint64{a.ID}})
	require.NoError(t, err)
	linked, err = s.GetTask(p, b.ID)
	require.NoError(t, err)
	assert.Len(t, dto.ToTaskDTO(*linked).LinkedTasks, 1)

	require.NoError(t, s.DeleteTask(linked))
	task, err = s.GetTask(p, a.ID)
	require.NoError(t, err)
	assert.Empty(t, dto.ToTaskDTO(*task).LinkedTasks)
}

func TestApproveReject_OnlyFromCompleted(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)
	p := f.principal(f.owner)
	stored := f.task(f.org, f.owner, "Review")

	task, err := s.GetTask(p, stored.ID)
	require.NoError(t, err)

	_, err = s.ApproveTask(p, task)
	requireValidation(t, err, "status")

	task, err = s.GetTask(p, stored.ID)
	require.NoError(t, err)
	_, err = s.RejectTask(p, task, "  ")
	requireValidation(t, err, "rejection_reason")

	history, err := s.ListHistory(task)
	require.NoError(t, err)
	assert.Len(t, history, 0)

	reloaded, err := s.GetTask(p, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, reloaded.Status)
}

func TestRejectTask(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)
	p := f.principal(f.owner)
	stored := f.task(f.org, f.owner, "Review", func(t *models.Task) { t.Status = models.TaskStatusCompleted })

	task, err := s.GetTask(p, stored.ID)
	require.NoError(t, err)
	task, err = s.RejectTask(p, task, "Missing tests")
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusRejected, task.Status)
	assert.Equal(t, "Missing tests", task.RejectionReason)
	require.NotNil(t, task.RejectedByID)
	assert.Equal(t, f.owner.ID, *task.RejectedByID)
}

func TestAssignTask_ForeignMemberRejected(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)
	p := f.principal(f.owner)
	stored := f.task(f.org, f.owner, "Assign me")

	task, err := s.GetTask(p, stored.ID)
	require.NoError(t, err)

	_, err = s.AssignTask(p, task, f.outsiderRow.ID)
	requireValidation(t, err, "team_member_id")

	task, err = s.AssignTask(p, task, f.workerRow.ID)
	require.NoError(t, err)
	require.NotNil(t, task.AssignedTo)
	assert.Equal(t, f.workerRow.ID, task.AssignedTo.ID)
}

func TestDelegateTask(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)
	colleague := f.user("colleague@example.com", "Cleo Colleague")
	colleagueRow := f.member(f.org, colleague)

	assigned := f.task(f.org, f.owner, "Delegate me", func(t *models.Task) { t.AssignedToID = &f.workerRow.ID })

	workerP := f.principal(f.worker)
	task, err := s.GetTask(workerP, assigned.ID)
	require.NoError(t, err)

	task, err = s.DelegateTask(workerP, task, colleagueRow.ID, "on leave")
	require.NoError(t, err)
	assert.Equal(t, colleagueRow.ID, *task.AssignedToID)
	assert.Equal(t, "on leave", task.DelegationNotes)
	require.NotNil(t, task.DelegatedByID)
	assert.Equal(t, f.worker.ID, *task.DelegatedByID)

	// worker no longer holds the assignment and has no assign_tasks
	task, err = s.GetTask(f.principal(f.owner), assigned.ID)
	require.NoError(t, err)
	_, err = s.DelegateTask(workerP, task, f.workerRow.ID, "")
	assert.ErrorIs(t, err, ErrDelegationDenied)
}

func TestGetTask_VisibilityAndTenancy(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)

	hidden := f.task(f.org, f.owner, "Owner only")
	watched := f.task(f.org, f.owner, "Watched")
	require.NoError(t, f.tasks.Update(watched, repositorySets(nil, []uint64{f.workerRow.ID}), nil))
	foreign := f.task(f.otherOrg, f.outsider, "Foreign")

	workerP := f.principal(f.worker)

	_, err := s.GetTask(workerP, hidden.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = s.GetTask(workerP, watched.ID)
	assert.NoError(t, err)
	_, err = s.GetTask(f.principal(f.owner), foreign.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	tasks, total, err := s.ListTasks(workerP, ListTasksInput{Pagination: utils.NewPaginationParams(1, 20)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, tasks, 1)
	assert.Equal(t, watched.ID, tasks[0].ID)

	_, _, err = s.ListTasks(workerP, ListTasksInput{Statuses: []models.TaskStatus{"done"}})
	assert.ErrorIs(t, err, ErrInvalidTaskFilter)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)
	p := f.principal(f.owner)
	task := f.task(f.org, f.owner, "Discuss")

	_, err := s.AddComment(p, task, "")
	requireValidation(t, err, "text")

	text := strings.Repeat("x", 60)
	comment, err := s.AddComment(p, task, text)
	require.NoError(t, err)
	assert.Equal(t, text, comment.Text)

	history, err := s.ListHistory(task)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ActionCommented, history[0].Action)
	assert.Equal(t, "Comment added: "+strings.Repeat("x", 50)+"...", history[0].Description)

	comments, err := s.ListComments(task)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestAddAttachment(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)
	p := f.principal(f.owner)
	task := f.task(f.org, f.owner, "Files")

	att, err := s.AddAttachment(p, task, "../notes.txt", 5, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", att.Filename)
	assert.Equal(t, int64(5), att.SizeBytes)
	assert.FileExists(t, att.StoredPath)

	_, err = s.AddAttachment(p, task, "big.bin", 11<<20, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestAddTimeEntry(t *testing.T) {
	f := newFixture(t)
	s := newTaskService(f, nil)
	p := f.principal(f.owner)

	untracked := f.task(f.org, f.owner, "Untracked")
	_, err := s.AddTimeEntry(p, untracked, TimeEntryInput{Hours: decimal.NewFromInt(1)})
	requireValidation(t, err, "time_tracking_enabled")

	tracked := f.task(f.org, f.owner, "Tracked", func(t *models.Task) { t.TimeTrackingEnabled = true })
	_, err = s.AddTimeEntry(p, tracked, TimeEntryInput{Hours: decimal.Zero})
	requireValidation(t, err, "hours")

	entry, err := s.AddTimeEntry(p, tracked, TimeEntryInput{Hours: decimal.RequireFromString("1.5"), Note: "pairing"})
	require.NoError(t, err)
	assert.True(t, entry.Hours.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, entry.SpentOn.Equal(testNow))

	history, err := s.ListHistory(tracked)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Time logged: 1.50 hours on 2024-03-15", history[0].Description)
}

func TestDraftTasks(t *testing.T) {
	_, err := newTaskService(newFixture(t), nil).DraftTasks(context.Background(), "notes")
	assert.ErrorIs(t, err, ErrAIServiceNotConfigured)

	past := testNow.AddDate(0, 0, -3)
	future := testNow.AddDate(0, 0, 3)
	s := newTaskService(newFixture(t), stubDrafter{drafts: []DraftTask{
		{Title: "  "},
		{Title: "Call client", DueDate: &past, Priority: "whenever"},
		{Title: "Send invoice", DueDate: &future, Priority: models.TaskPriorityHigh},
	}})

	drafts, err := s.DraftTasks(context.Background(), "notes")
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Nil(t, drafts[0].DueDate)
	assert.Equal(t, models.TaskPriorityMedium, drafts[0].Priority)
	assert.Equal(t, models.TaskPriorityHigh, drafts[1].Priority)

	s = newTaskService(newFixture(t), stubDrafter{})
	_, err = s.DraftTasks(context.Background(), "notes")
	assert.ErrorIs(t, err, ErrAINoTasksGenerated)
}

func TestParseDrafts(t *testing.T) {
	drafts, err := parseDrafts(`{"tasks":[{"title":"A","priority":"low","due_date":null}]}`)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "A", drafts[0].Title)

	_, err = parseDrafts("not json")
	assert.Error(t, err)
}
