package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/taskflow-api/internal/dto"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/workflow"
)

// TeamHandler serves team members, titles, roles and the permission catalogue.
type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

type teamMemberRequest struct {
	Name    *string                   `json:"name" binding:"omitempty,max=255"`
	Email   *string                   `json:"email" binding:"omitempty,max=255"`
	TitleID workflow.Nullable[uint64] `json:"title_id"`
	RoleID  workflow.Nullable[uint64] `json:"role_id"`
}

func (r teamMemberRequest) input() services.TeamMemberInput {
	return services.TeamMemberInput{
		Name:       r.Name,
		Email:      r.Email,
		TitleID:    r.TitleID.Value,
		RoleID:     r.RoleID.Value,
		ClearTitle: r.TitleID.Set && r.TitleID.Value == nil,
		ClearRole:  r.RoleID.Set && r.RoleID.Value == nil,
	}
}

func (h *TeamHandler) ListMembers(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	members, err := h.teamService.ListMembers(orgID)
	if err != nil {
		respondError(c, err, "Failed to fetch team members")
		return
	}

	c.JSON(http.StatusOK, gin.H{"team_members": dto.ToTeamMemberDTOs(members)})
}

func (h *TeamHandler) GetMember(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	member, err := h.teamService.GetMember(orgID, id)
	if err != nil {
		respondError(c, err, "Failed to fetch team member")
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamMemberDTO(*member))
}

func (h *TeamHandler) CreateMember(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	var req teamMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.teamService.CreateMember(orgID, req.input())
	if err != nil {
		respondError(c, err, "Failed to create team member")
		return
	}

	c.JSON(http.StatusCreated, dto.ToTeamMemberDTO(*member))
}

func (h *TeamHandler) UpdateMember(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	var req teamMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.teamService.UpdateMember(orgID, id, req.input())
	if err != nil {
		respondError(c, err, "Failed to update team member")
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamMemberDTO(*member))
}

func (h *TeamHandler) DeleteMember(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.teamService.DeleteMember(orgID, id); err != nil {
		respondError(c, err, "Failed to delete team member")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Team member deleted successfully"})
}

type groupingRequest struct {
	Name        *string                  `json:"name" binding:"omitempty,max=100"`
	Description *string                  `json:"description"`
	Permissions *[]models.PermissionCode `json:"permissions"`
}

func (r groupingRequest) input() services.GroupingInput {
	return services.GroupingInput{Name: r.Name, Description: r.Description, Permissions: r.Permissions}
}

func (h *TeamHandler) ListTitles(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	titles, err := h.teamService.ListTitles(orgID)
	if err != nil {
		respondError(c, err, "Failed to fetch titles")
		return
	}

	c.JSON(http.StatusOK, gin.H{"titles": titles})
}

func (h *TeamHandler) CreateTitle(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	var req groupingRequest
	if !bindJSON(c, &req) {
		return
	}

	title, err := h.teamService.CreateTitle(orgID, req.input())
	if err != nil {
		respondError(c, err, "Failed to create title")
		return
	}

	c.JSON(http.StatusCreated, title)
}

func (h *TeamHandler) UpdateTitle(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	var req groupingRequest
	if !bindJSON(c, &req) {
		return
	}

	title, err := h.teamService.UpdateTitle(orgID, id, req.input())
	if err != nil {
		respondError(c, err, "Failed to update title")
		return
	}

	c.JSON(http.StatusOK, title)
}

func (h *TeamHandler) DeleteTitle(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.teamService.DeleteTitle(orgID, id); err != nil {
		respondError(c, err, "Failed to delete title")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Title deleted successfully"})
}

func (h *TeamHandler) ListRoles(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	roles, err := h.teamService.ListRoles(orgID)
	if err != nil {
		respondError(c, err, "Failed to fetch roles")
		return
	}

	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

func (h *TeamHandler) CreateRole(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	var req groupingRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.teamService.CreateRole(orgID, req.input())
	if err != nil {
		respondError(c, err, "Failed to create role")
		return
	}

	c.JSON(http.StatusCreated, role)
}

func (h *TeamHandler) UpdateRole(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	var req groupingRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.teamService.UpdateRole(orgID, id, req.input())
	if err != nil {
		respondError(c, err, "Failed to update role")
		return
	}

	c.JSON(http.StatusOK, role)
}

func (h *TeamHandler) DeleteRole(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.teamService.DeleteRole(orgID, id); err != nil {
		respondError(c, err, "Failed to delete role")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role deleted successfully"})
}

// ListPermissions returns the fixed permission catalogue.
func (h *TeamHandler) ListPermissions(c *gin.Context) {
	perms, err := h.teamService.ListPermissions()
	if err != nil {
		respondError(c, err, "Failed to fetch permissions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}
