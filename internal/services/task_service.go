package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/utils"
	"github.com/yukikurage/taskflow-api/internal/workflow"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrDelegationDenied       = errors.New("only the assignee or a user who can assign tasks may delegate")
	ErrInvalidTaskFilter      = errors.New("invalid task filter")
	ErrFileTooLarge           = errors.New("file exceeds the upload size limit")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// TaskService handles task business logic. Every method works on behalf of
// a principal, and tasks it is handed were loaded through GetTask.
type TaskService struct {
	tasks     repository.TaskRepository
	projects  repository.ProjectRepository
	members   repository.TeamMemberRepository
	authz     *access.Authorizer
	drafter   TaskDrafter
	uploadDir string
	log       *zap.Logger
	clock     func() time.Time
}

// NewTaskService creates a new TaskService. drafter may be nil when AI
// drafting is not configured.
func NewTaskService(
	tasks repository.TaskRepository,
	projects repository.ProjectRepository,
	members repository.TeamMemberRepository,
	authz *access.Authorizer,
	drafter TaskDrafter,
	uploadDir string,
	log *zap.Logger,
) *TaskService {
	return &TaskService{
		tasks:     tasks,
		projects:  projects,
		members:   members,
		authz:     authz,
		drafter:   drafter,
		uploadDir: uploadDir,
		log:       log,
		clock:     time.Now,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Statuses     []models.TaskStatus
	Priorities   []models.TaskPriority
	AssignedToID *uint64
	CreatedByID  *uint64
	ProjectID    *uint64
	DueAfter     *time.Time
	DueBefore    *time.Time
	Search       string
	Pagination   utils.PaginationParams
}

// ListTasks lists the tasks visible to the principal.
func (s *TaskService) ListTasks(p *access.Principal, input ListTasksInput) ([]models.Task, int64, error) {
	for _, st := range input.Statuses {
		if !st.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidTaskFilter, st)
		}
	}
	for _, pr := range input.Priorities {
		if !pr.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown priority %q", ErrInvalidTaskFilter, pr)
		}
	}

	tasks, total, err := s.tasks.List(repository.TaskFilter{
		Scope:        access.TaskScope(p.Tenant, p.Viewer),
		Statuses:     input.Statuses,
		Priorities:   input.Priorities,
		AssignedToID: input.AssignedToID,
		CreatedByID:  input.CreatedByID,
		ProjectID:    input.ProjectID,
		DueAfter:     input.DueAfter,
		DueBefore:    input.DueBefore,
		Search:       strings.TrimSpace(input.Search),
		Pagination:   input.Pagination,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTask returns a task the principal can see, with its relations loaded.
// Invisible and foreign tasks are both ErrTaskNotFound.
func (s *TaskService) GetTask(p *access.Principal, id uint64) (*models.Task, error) {
	task, err := s.tasks.FindByID(id, access.TaskScope(p.Tenant, p.Viewer), models.TaskRelations...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// CreateTask creates a task in the principal's organization from a patch
// over the defaults.
func (s *TaskService) CreateTask(p *access.Principal, input workflow.Patch) (*models.Task, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		OrganizationID: orgID,
		CreatedByID:    p.User.ID,
		Status:         models.TaskStatusPending,
		Priority:       models.TaskPriorityMedium,
		Visibility:     "team",
		Tags:           []string{},
	}

	refs, err := s.loadRefs(orgID, input)
	if err != nil {
		return nil, err
	}
	if err := s.checkSets(task, input); err != nil {
		return nil, err
	}
	if _, err := workflow.Apply(task, input, refs, s.clock()); err != nil {
		return nil, err
	}

	history := workflow.Created(task, p.User)
	task.Project, task.AssignedTo = nil, nil
	if err := s.tasks.Create(task, setsOf(input), &history); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.log.Info("Task created",
		zap.Uint64("task_id", task.ID),
		zap.Uint64("organization_id", orgID),
		zap.Uint64("user_id", p.User.ID),
	)
	return s.reload(task)
}

// UpdateTask applies a partial update. One "updated" history row lists
// every changed field; a status move adds its own row.
func (s *TaskService) UpdateTask(p *access.Principal, task *models.Task, input workflow.Patch) (*models.Task, error) {
	refs, err := s.loadRefs(task.OrganizationID, input)
	if err != nil {
		return nil, err
	}
	if err := s.checkSets(task, input); err != nil {
		return nil, err
	}

	change, err := workflow.Apply(task, input, refs, s.clock())
	if err != nil {
		return nil, err
	}

	if err := s.save(task, setsOf(input), change.History(p.User)); err != nil {
		return nil, err
	}
	return s.reload(task)
}

// DeleteTask soft deletes a task.
func (s *TaskService) DeleteTask(task *models.Task) error {
	if err := s.tasks.Delete(task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// AssignTask makes a team member of the task's organization the primary
// assignee.
func (s *TaskService) AssignTask(p *access.Principal, task *models.Task, memberID uint64) (*models.Task, error) {
	member, err := s.memberOf(task.OrganizationID, memberID)
	if err != nil {
		return nil, err
	}
	row, err := workflow.Assign(task, p.User, member)
	if err != nil {
		return nil, err
	}
	if err := s.save(task, repository.TaskSets{}, []models.TaskHistory{row}); err != nil {
		return nil, err
	}
	return s.reload(task)
}

// DelegateTask hands the task to another team member. The current
// assignee may always delegate; anyone else needs assign_tasks.
func (s *TaskService) DelegateTask(p *access.Principal, task *models.Task, memberID uint64, notes string) (*models.Task, error) {
	if !s.authz.CanDelegate(p.User, p.Tenant, task) {
		return nil, ErrDelegationDenied
	}
	member, err := s.memberOf(task.OrganizationID, memberID)
	if err != nil {
		return nil, err
	}
	row, err := workflow.Delegate(task, p.User, member, strings.TrimSpace(notes), s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.save(task, repository.TaskSets{}, []models.TaskHistory{row}); err != nil {
		return nil, err
	}
	return s.reload(task)
}

func (s *TaskService) ApproveTask(p *access.Principal, task *models.Task) (*models.Task, error) {
	row, err := workflow.Approve(task, p.User)
	if err != nil {
		return nil, err
	}
	if err := s.save(task, repository.TaskSets{}, []models.TaskHistory{row}); err != nil {
		return nil, err
	}
	return s.reload(task)
}

func (s *TaskService) RejectTask(p *access.Principal, task *models.Task, reason string) (*models.Task, error) {
	row, err := workflow.Reject(task, p.User, reason)
	if err != nil {
		return nil, err
	}
	if err := s.save(task, repository.TaskSets{}, []models.TaskHistory{row}); err != nil {
		return nil, err
	}
	return s.reload(task)
}

// AddComment stores a comment and its "commented" history row.
func (s *TaskService) AddComment(p *access.Principal, task *models.Task, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &workflow.ValidationError{Field: "text", Message: "Comment text is required"}
	}

	comment := &models.Comment{TaskID: task.ID, AuthorID: p.User.ID, Text: text}
	history := workflow.Commented(text, p.User)
	history.TaskID = task.ID

	if err := s.tasks.AddComment(comment, &history); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	comment.Author = p.User
	return comment, nil
}

func (s *TaskService) ListComments(task *models.Task) ([]models.Comment, error) {
	comments, err := s.tasks.ListComments(task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (s *TaskService) ListHistory(task *models.Task) ([]models.TaskHistory, error) {
	history, err := s.tasks.ListHistory(task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task history: %w", err)
	}
	return history, nil
}

// AddAttachment writes the upload under the upload directory with a
// generated name and records it against the task.
func (s *TaskService) AddAttachment(p *access.Principal, task *models.Task, filename string, size int64, r io.Reader) (*models.TaskAttachment, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, &workflow.ValidationError{Field: "file", Message: "File is required"}
	}
	if size > constants.MaxUploadSizeBytes {
		return nil, ErrFileTooLarge
	}

	dir := filepath.Join(s.uploadDir, fmt.Sprintf("task_%d", task.ID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	stored := filepath.Join(dir, uuid.NewString()+filepath.Ext(filename))

	f, err := os.Create(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	written, err := io.Copy(f, io.LimitReader(r, constants.MaxUploadSizeBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > constants.MaxUploadSizeBytes {
		err = ErrFileTooLarge
	}
	if err != nil {
		os.Remove(stored)
		if errors.Is(err, ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	attachment := &models.TaskAttachment{
		TaskID:       task.ID,
		Filename:     filename,
		StoredPath:   stored,
		SizeBytes:    written,
		UploadedByID: p.User.ID,
	}
	history := workflow.AttachmentAdded(filename, p.User)
	history.TaskID = task.ID

	if err := s.tasks.AddAttachment(attachment, &history); err != nil {
		os.Remove(stored)
		return nil, fmt.Errorf("failed to add attachment: %w", err)
	}
	return attachment, nil
}

// TimeEntryInput is one block of logged work.
type TimeEntryInput struct {
	Hours   decimal.Decimal
	Note    string
	SpentOn *time.Time
}

// AddTimeEntry logs hours against a task with time tracking enabled. The
// entry is attributed to the principal's team membership when there is one.
func (s *TaskService) AddTimeEntry(p *access.Principal, task *models.Task, input TimeEntryInput) (*models.TimeEntry, error) {
	if !task.TimeTrackingEnabled {
		return nil, &workflow.ValidationError{Field: "time_tracking_enabled", Message: "Time tracking is not enabled for this task"}
	}
	if !input.Hours.IsPositive() {
		return nil, &workflow.ValidationError{Field: "hours", Message: "Hours must be greater than zero"}
	}

	spentOn := s.clock()
	if input.SpentOn != nil {
		spentOn = *input.SpentOn
	}
	entry := &models.TimeEntry{
		TaskID:  task.ID,
		UserID:  p.User.ID,
		Hours:   input.Hours.Round(2),
		Note:    strings.TrimSpace(input.Note),
		SpentOn: spentOn,
	}
	if len(p.Viewer.MemberIDs) > 0 {
		id := p.Viewer.MemberIDs[0]
		entry.TeamMemberID = &id
	}

	history := workflow.TimeLogged(entry, p.User)
	history.TaskID = task.ID
	if err := s.tasks.AddTimeEntry(entry, &history); err != nil {
		return nil, fmt.Errorf("failed to add time entry: %w", err)
	}
	return entry, nil
}

// DraftTasks suggests tasks from free text. Drafts without a title are
// dropped, and due dates more than a day in the past are cleared.
func (s *TaskService) DraftTasks(ctx context.Context, text string) ([]DraftTask, error) {
	if s.drafter == nil {
		return nil, ErrAIServiceNotConfigured
	}

	now := s.clock()
	drafts, err := s.drafter.DraftTasks(ctx, text, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}
	if len(drafts) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(drafts) > constants.MaxAIGeneratedTasks {
		drafts = drafts[:constants.MaxAIGeneratedTasks]
	}

	valid := make([]DraftTask, 0, len(drafts))
	cutoff := now.Add(-24 * time.Hour)
	for _, d := range drafts {
		d.Title = strings.TrimSpace(d.Title)
		if d.Title == "" {
			continue
		}
		if d.DueDate != nil && d.DueDate.Before(cutoff) {
			d.DueDate = nil
		}
		if !d.Priority.Valid() {
			d.Priority = models.TaskPriorityMedium
		}
		valid = append(valid, d)
	}
	if len(valid) == 0 {
		return nil, ErrAINoValidTasks
	}
	return valid, nil
}

// reload reads a task back after a write. It is scoped to the organization
// only, so an actor who just handed a task away still gets the result.
func (s *TaskService) reload(task *models.Task) (*models.Task, error) {
	fresh, err := s.tasks.FindByID(task.ID, database.ForOrganization("tasks", task.OrganizationID), models.TaskRelations...)
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}
	return fresh, nil
}

func (s *TaskService) save(task *models.Task, sets repository.TaskSets, history []models.TaskHistory) error {
	if err := s.tasks.Update(task, sets, history); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// memberOf loads a team member of the organization. A member of another
// organization is reported the same way as a missing one.
func (s *TaskService) memberOf(orgID, id uint64) (*models.TeamMember, error) {
	member, err := s.members.FindByID(orgID, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, &workflow.ValidationError{Field: "team_member_id", Message: "Team member must belong to the same organization as the task"}
	case err != nil:
		return nil, fmt.Errorf("failed to find team member: %w", err)
	}
	return member, nil
}

// loadRefs loads the project and assignee a patch points at. Missing or
// foreign ones stay nil, which Apply rejects.
func (s *TaskService) loadRefs(orgID uint64, p workflow.Patch) (workflow.Refs, error) {
	var refs workflow.Refs

	if p.ProjectID.Set && p.ProjectID.Value != nil {
		project, err := s.projects.FindByID(*p.ProjectID.Value, func(db *gorm.DB) *gorm.DB {
			return db.Where("projects.organization_id = ?", orgID)
		})
		switch {
		case err == nil:
			refs.Project = project
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return refs, fmt.Errorf("failed to find project: %w", err)
		}
	}

	if p.AssignedToID.Set && p.AssignedToID.Value != nil {
		member, err := s.members.FindByID(orgID, *p.AssignedToID.Value)
		switch {
		case err == nil:
			refs.AssignedTo = member
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return refs, fmt.Errorf("failed to find team member: %w", err)
		}
	}
	return refs, nil
}

// checkSets rejects relation sets that reach outside the task's organization.
func (s *TaskService) checkSets(task *models.Task, p workflow.Patch) error {
	memberSets := []struct {
		field string
		ids   *[]uint64
	}{
		{"assignees", p.Assignees},
		{"approvers", p.Approvers},
		{"watchers", p.Watchers},
	}
	for _, set := range memberSets {
		if set.ids == nil {
			continue
		}
		ids := uniqueIDs(*set.ids)
		*set.ids = ids
		if len(ids) == 0 {
			continue
		}
		found, err := s.members.FindByIDs(task.OrganizationID, ids)
		if err != nil {
			return fmt.Errorf("failed to load team members: %w", err)
		}
		if len(found) != len(ids) {
			return &workflow.ValidationError{Field: set.field, Message: "Team members must belong to the same organization as the task"}
		}
	}

	taskSets := []struct {
		field string
		ids   *[]uint64
	}{
		{"prerequisites", p.Prerequisites},
		{"linked_tasks", p.LinkedTasks},
	}
	for _, set := range taskSets {
		if set.ids == nil {
			continue
		}
		ids := uniqueIDs(*set.ids)
		*set.ids = ids
		for _, id := range ids {
			if task.ID != 0 && id == task.ID {
				return &workflow.ValidationError{Field: set.field, Message: "A task cannot reference itself"}
			}
		}
		if len(ids) == 0 {
			continue
		}
		found, err := s.tasks.FindByIDs(task.OrganizationID, ids)
		if err != nil {
			return fmt.Errorf("failed to load related tasks: %w", err)
		}
		if len(found) != len(ids) {
			return &workflow.ValidationError{Field: set.field, Message: "Related tasks must belong to the same organization"}
		}
	}
	return nil
}

func setsOf(p workflow.Patch) repository.TaskSets {
	return repository.TaskSets{
		Assignees:     p.Assignees,
		Approvers:     p.Approvers,
		Watchers:      p.Watchers,
		Prerequisites: p.Prerequisites,
		LinkedTasks:   p.LinkedTasks,
	}
}
