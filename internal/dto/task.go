package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// ProjectSummaryDTO is the short form of a project embedded in a task
type ProjectSummaryDTO struct {
	ID     uint64               `json:"id"`
	Name   string               `json:"name"`
	Status models.ProjectStatus `json:"status"`
}

// TaskSummaryDTO is the short form of a related task
type TaskSummaryDTO struct {
	ID     uint64            `json:"id"`
	Title  string            `json:"title"`
	Status models.TaskStatus `json:"status"`
}

// TaskDTO represents a task in detail responses
type TaskDTO struct {
	ID                  uint64              `json:"id"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	Status              models.TaskStatus   `json:"status"`
	Priority            models.TaskPriority `json:"priority"`
	Category            string              `json:"category"`
	StartDate           *time.Time          `json:"start_date"`
	DueDate             *time.Time          `json:"due_date"`
	EstimatedHours      decimal.NullDecimal `json:"estimated_hours"`
	BudgetHours         decimal.NullDecimal `json:"budget_hours"`
	TimeTrackingEnabled bool                `json:"time_tracking_enabled"`
	IsBillable          bool                `json:"is_billable"`
	ClientReference     string              `json:"client_reference"`
	IsRecurring         bool                `json:"is_recurring"`
	RecurringFrequency  string              `json:"recurring_frequency"`
	RecurringEndsOn     *time.Time          `json:"recurring_ends_on"`
	AcceptanceCriteria  string              `json:"acceptance_criteria"`
	Notes               string              `json:"notes"`
	Visibility          string              `json:"visibility"`
	Tags                []string            `json:"tags_list"`
	OrganizationID      uint64              `json:"organization_id"`
	CompletedAt         *time.Time          `json:"completed_at"`
	RejectionReason     string              `json:"rejection_reason"`
	DelegationNotes     string              `json:"delegation_notes"`
	DelegationDate      *time.Time          `json:"delegation_date"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`

	Project       *ProjectSummaryDTO `json:"project"`
	CreatedBy     *UserSummaryDTO    `json:"created_by"`
	AssignedTo    *TeamMemberDTO     `json:"assigned_to"`
	ApprovedBy    *UserSummaryDTO    `json:"approved_by"`
	RejectedBy    *UserSummaryDTO    `json:"rejected_by"`
	DelegatedBy   *UserSummaryDTO    `json:"delegated_by"`
	Assignees     []TeamMemberDTO    `json:"assignees"`
	Approvers     []TeamMemberDTO    `json:"approvers"`
	Watchers      []TeamMemberDTO    `json:"watchers"`
	Prerequisites []TaskSummaryDTO   `json:"prerequisites"`
	LinkedTasks   []TaskSummaryDTO   `json:"linked_tasks"`
}

// TaskListItemDTO represents a task in list responses (minimal data)
type TaskListItemDTO struct {
	ID         uint64              `json:"id"`
	Title      string              `json:"title"`
	Status     models.TaskStatus   `json:"status"`
	Priority   models.TaskPriority `json:"priority"`
	Category   string              `json:"category"`
	DueDate    *time.Time          `json:"due_date"`
	Project    *ProjectSummaryDTO  `json:"project"`
	AssignedTo *TeamMemberDTO      `json:"assigned_to"`
	CreatedBy  *UserSummaryDTO     `json:"created_by"`
	CreatedAt  time.Time           `json:"created_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskListItemDTO        `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// CommentDTO represents a task comment
type CommentDTO struct {
	ID        uint64          `json:"id"`
	TaskID    uint64          `json:"task_id"`
	Text      string          `json:"text"`
	Author    *UserSummaryDTO `json:"author"`
	CreatedAt time.Time       `json:"created_at"`
}

// HistoryDTO represents one task history entry
type HistoryDTO struct {
	ID          uint64               `json:"id"`
	Action      models.HistoryAction `json:"action"`
	Description string               `json:"description"`
	Actor       *UserSummaryDTO      `json:"actor"`
	Timestamp   time.Time            `json:"timestamp"`
}

func toProjectSummary(p *models.Project) *ProjectSummaryDTO {
	if p == nil || p.ID == 0 {
		return nil
	}
	return &ProjectSummaryDTO{ID: p.ID, Name: p.Name, Status: p.Status}
}

func toMemberPtr(m *models.TeamMember) *TeamMemberDTO {
	if m == nil || m.ID == 0 {
		return nil
	}
	dto := ToTeamMemberDTO(*m)
	return &dto
}

func toTaskSummaries(tasks []models.Task) []TaskSummaryDTO {
	out := make([]TaskSummaryDTO, len(tasks))
	for i, t := range tasks {
		out[i] = TaskSummaryDTO{ID: t.ID, Title: t.Title, Status: t.Status}
	}
	return out
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	tags := []string(task.Tags)
	if tags == nil {
		tags = []string{}
	}

	return TaskDTO{
		ID:                  task.ID,
		Title:               task.Title,
		Description:         task.Description,
		Status:              task.Status,
		Priority:            task.Priority,
		Category:            task.Category,
		StartDate:           task.StartDate,
		DueDate:             task.DueDate,
		EstimatedHours:      task.EstimatedHours,
		BudgetHours:         task.BudgetHours,
		TimeTrackingEnabled: task.TimeTrackingEnabled,
		IsBillable:          task.IsBillable,
		ClientReference:     task.ClientReference,
		IsRecurring:         task.IsRecurring,
		RecurringFrequency:  task.RecurringFrequency,
		RecurringEndsOn:     task.RecurringEndsOn,
		AcceptanceCriteria:  task.AcceptanceCriteria,
		Notes:               task.Notes,
		Visibility:          task.Visibility,
		Tags:                tags,
		OrganizationID:      task.OrganizationID,
		CompletedAt:         task.CompletedAt,
		RejectionReason:     task.RejectionReason,
		DelegationNotes:     task.DelegationNotes,
		DelegationDate:      task.DelegationDate,
		CreatedAt:           task.CreatedAt,
		UpdatedAt:           task.UpdatedAt,

		Project:       toProjectSummary(task.Project),
		CreatedBy:     ToUserSummaryDTO(task.CreatedBy),
		AssignedTo:    toMemberPtr(task.AssignedTo),
		ApprovedBy:    ToUserSummaryDTO(task.ApprovedBy),
		RejectedBy:    ToUserSummaryDTO(task.RejectedBy),
		DelegatedBy:   ToUserSummaryDTO(task.DelegatedBy),
		Assignees:     ToTeamMemberDTOs(task.Assignees),
		Approvers:     ToTeamMemberDTOs(task.Approvers),
		Watchers:      ToTeamMemberDTOs(task.Watchers),
		Prerequisites: toTaskSummaries(task.Prerequisites),
		LinkedTasks:   toTaskSummaries(linkedTasks(task)),
	}
}

// linkedTasks merges both directions of task_links, dropping duplicates.
func linkedTasks(task models.Task) []models.Task {
	out := make([]models.Task, 0, len(task.LinkedTasks)+len(task.LinkedFrom))
	seen := make(map[uint64]bool, cap(out))
	for _, group := range [][]models.Task{task.LinkedTasks, task.LinkedFrom} {
		for _, t := range group {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
		}
	}
	return out
}

// ToTaskListItemDTO converts a Task model to TaskListItemDTO
func ToTaskListItemDTO(task models.Task) TaskListItemDTO {
	return TaskListItemDTO{
		ID:         task.ID,
		Title:      task.Title,
		Status:     task.Status,
		Priority:   task.Priority,
		Category:   task.Category,
		DueDate:    task.DueDate,
		Project:    toProjectSummary(task.Project),
		AssignedTo: toMemberPtr(task.AssignedTo),
		CreatedBy:  ToUserSummaryDTO(task.CreatedBy),
		CreatedAt:  task.CreatedAt,
	}
}

// ToTaskListResponse converts a page of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int64) TaskListResponse {
	items := make([]TaskListItemDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskListItemDTO(task)
	}

	return TaskListResponse{
		Tasks:      items,
		Pagination: params.Response(total),
	}
}

// ToCommentDTOs converts task comments
func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	out := make([]CommentDTO, len(comments))
	for i, c := range comments {
		out[i] = ToCommentDTO(c)
	}
	return out
}

// ToCommentDTO converts a Comment model to CommentDTO
func ToCommentDTO(c models.Comment) CommentDTO {
	return CommentDTO{
		ID:        c.ID,
		TaskID:    c.TaskID,
		Text:      c.Text,
		Author:    ToUserSummaryDTO(c.Author),
		CreatedAt: c.CreatedAt,
	}
}

// ToHistoryDTOs converts task history rows
func ToHistoryDTOs(rows []models.TaskHistory) []HistoryDTO {
	out := make([]HistoryDTO, len(rows))
	for i, h := range rows {
		out[i] = HistoryDTO{
			ID:          h.ID,
			Action:      h.Action,
			Description: h.Description,
			Actor:       ToUserSummaryDTO(h.Actor),
			Timestamp:   h.Timestamp,
		}
	}
	return out
}
