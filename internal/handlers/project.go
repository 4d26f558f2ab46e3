package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/utils"
	"github.com/yukikurage/taskflow-api/internal/workflow"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

type projectRequest struct {
	Name          *string                      `json:"name" binding:"omitempty,max=200"`
	Description   *string                      `json:"description"`
	StartDate     workflow.Nullable[time.Time] `json:"start_date"`
	EndDate       workflow.Nullable[time.Time] `json:"end_date"`
	Status        *models.ProjectStatus        `json:"status"`
	TeamMemberIDs *[]uint64                    `json:"team_members"`
}

func (r projectRequest) input() services.ProjectInput {
	return services.ProjectInput{
		Name:           r.Name,
		Description:    r.Description,
		StartDate:      r.StartDate.Value,
		EndDate:        r.EndDate.Value,
		ClearStartDate: r.StartDate.Set && r.StartDate.Value == nil,
		ClearEndDate:   r.EndDate.Set && r.EndDate.Value == nil,
		Status:         r.Status,
		TeamMemberIDs:  r.TeamMemberIDs,
	}
}

// ListProjects returns the visible projects with their progress
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var status *models.ProjectStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ProjectStatus(raw)
		status = &s
	}
	params := utils.GetPaginationParams(c)

	projects, total, err := h.projectService.ListProjects(p, status, c.Query("search"), params)
	if err != nil {
		respondError(c, err, "Failed to fetch projects")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects":   projects,
		"pagination": params.Response(total),
	})
}

// GetProject returns the project loaded by RequireProjectAccess
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req projectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.CreateProject(p, req.input())
	if err != nil {
		respondError(c, err, "Failed to create project")
		return
	}

	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	current, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	var req projectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.UpdateProject(p, current.ID, req.input())
	if err != nil {
		respondError(c, err, "Failed to update project")
		return
	}

	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	current, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	if err := h.projectService.DeleteProject(p, current.ID); err != nil {
		respondError(c, err, "Failed to delete project")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}
