package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/utils"
	"github.com/yukikurage/taskflow-api/internal/workflow"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// currentTask returns the task loaded by RequireTaskAccess.
func currentTask(c *gin.Context) (*models.Task, bool) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return nil, false
	}
	return task, true
}

// ListTasks returns the tasks visible to the current user
// Filters: status, priority (comma separated), assigned_to, created_by,
// project, due_date_after, due_date_before, search
func (h *TaskHandler) ListTasks(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	input := services.ListTasksInput{
		Search:     c.Query("search"),
		Pagination: utils.GetPaginationParams(c),
	}
	for _, s := range queryList(c, "status") {
		input.Statuses = append(input.Statuses, models.TaskStatus(s))
	}
	for _, s := range queryList(c, "priority") {
		input.Priorities = append(input.Priorities, models.TaskPriority(s))
	}
	if input.AssignedToID, ok = queryID(c, "assigned_to"); !ok {
		return
	}
	if input.CreatedByID, ok = queryID(c, "created_by"); !ok {
		return
	}
	if input.ProjectID, ok = queryID(c, "project"); !ok {
		return
	}
	if input.DueAfter, ok = queryTime(c, "due_date_after"); !ok {
		return
	}
	if input.DueBefore, ok = queryTime(c, "due_date_before"); !ok {
		return
	}

	tasks, total, err := h.taskService.ListTasks(p, input)
	if err != nil {
		respondError(c, err, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, input.Pagination, total))
}

// GetTask returns a specific task by ID
// Task is already loaded with relations by RequireTaskAccess middleware
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := currentTask(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task in the current organization
func (h *TaskHandler) CreateTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req workflow.Patch
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.CreateTask(p, req)
	if err != nil {
		respondError(c, err, "Failed to create task")
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update. Absent fields are left alone and
// nullable fields may be cleared with an explicit null.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	task, ok := currentTask(c)
	if !ok {
		return
	}

	var req workflow.Patch
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.taskService.UpdateTask(p, task, req)
	if err != nil {
		respondError(c, err, "Failed to update task")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, ok := currentTask(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(task); err != nil {
		respondError(c, err, "Failed to delete task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// AssignTask makes a team member the primary assignee
func (h *TaskHandler) AssignTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	task, ok := currentTask(c)
	if !ok {
		return
	}

	type AssignTaskRequest struct {
		TeamMemberID uint64 `json:"team_member_id" binding:"required"`
	}

	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "team_member_id is required", map[string]string{"team_member_id": "This field is required."})
		return
	}

	updated, err := h.taskService.AssignTask(p, task, req.TeamMemberID)
	if err != nil {
		respondError(c, err, "Failed to assign task")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DelegateTask hands the task to another team member
func (h *TaskHandler) DelegateTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	task, ok := currentTask(c)
	if !ok {
		return
	}

	type DelegateTaskRequest struct {
		TeamMemberID    uint64 `json:"team_member_id" binding:"required"`
		DelegationNotes string `json:"delegation_notes"`
	}

	var req DelegateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "team_member_id is required", map[string]string{"team_member_id": "This field is required."})
		return
	}

	updated, err := h.taskService.DelegateTask(p, task, req.TeamMemberID, req.DelegationNotes)
	if err != nil {
		respondError(c, err, "Failed to delegate task")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// ApproveTask approves a completed task
func (h *TaskHandler) ApproveTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	task, ok := currentTask(c)
	if !ok {
		return
	}

	updated, err := h.taskService.ApproveTask(p, task)
	if err != nil {
		respondError(c, err, "Failed to approve task")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// RejectTask rejects a completed task with a reason
func (h *TaskHandler) RejectTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	task, ok := currentTask(c)
	if !ok {
		return
	}

	type RejectTaskRequest struct {
		RejectionReason string `json:"rejection_reason"`
	}

	var req RejectTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.taskService.RejectTask(p, task, req.RejectionReason)
	if err != nil {
		respondError(c, err, "Failed to reject task")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// AddComment adds a comment to a task
func (h *TaskHandler) AddComment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	task, ok := currentTask(c)
	if !ok {
		return
	}

	type CommentRequest struct {
		Text string `json:"text"`
	}

	var req CommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.taskService.AddComment(p, task, req.Text)
	if err != nil {
		respondError(c, err, "Failed to add comment")
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

func (h *TaskHandler) ListComments(c *gin.Context) {
	task, ok := currentTask(c)
	if !ok {
		return
	}

	comments, err := h.taskService.ListComments(task)
	if err != nil {
		respondError(c, err, "Failed to fetch comments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": dto.ToCommentDTOs(comments)})
}

func (h *TaskHandler) ListHistory(c *gin.Context) {
	task, ok := currentTask(c)
	if !ok {
		return
	}

	history, err := h.taskService.ListHistory(task)
	if err != nil {
		respondError(c, err, "Failed to fetch task history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": dto.ToHistoryDTOs(history)})
}

// AddAttachment stores an uploaded file (multipart field "file")
func (h *TaskHandler) AddAttachment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	task, ok := currentTask(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxUploadSizeBytes+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, services.ErrFileTooLarge, "")
			return
		}
		apierrors.BadRequestWithDetails(c, "File is required", map[string]string{"file": "File is required"})
		return
	}
	f, err := header.Open()
	if err != nil {
		apierrors.InternalError(c, "Failed to read upload")
		return
	}
	defer f.Close()

	attachment, err := h.taskService.AddAttachment(p, task, header.Filename, header.Size, f)
	if err != nil {
		respondError(c, err, "Failed to add attachment")
		return
	}

	c.JSON(http.StatusCreated, attachment)
}

// AddTime logs hours against the task
func (h *TaskHandler) AddTime(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	task, ok := currentTask(c)
	if !ok {
		return
	}

	type TimeRequest struct {
		Hours   decimal.Decimal `json:"hours"`
		Note    string          `json:"note"`
		SpentOn *time.Time      `json:"spent_on"`
	}

	var req TimeRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.taskService.AddTimeEntry(p, task, services.TimeEntryInput{
		Hours:   req.Hours,
		Note:    req.Note,
		SpentOn: req.SpentOn,
	})
	if err != nil {
		respondError(c, err, "Failed to log time")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// GenerateTasks drafts task suggestions from text using AI
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.taskService.DraftTasks(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err, "Failed to generate tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": drafts,
	})
}
