package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/taskflow-api/internal/dto"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/services"
)

type OrganizationHandler struct {
	orgService *services.OrganizationService
}

func NewOrganizationHandler(orgService *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{
		orgService: orgService,
	}
}

type organizationRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=255"`
	Industry *string `json:"industry" binding:"omitempty,max=100"`
	Size     *string `json:"size" binding:"omitempty,max=100"`
}

func (r organizationRequest) input() services.OrganizationInput {
	return services.OrganizationInput{Name: r.Name, Industry: r.Industry, Size: r.Size}
}

// CreateOrganization creates a new organization owned by the current user
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req organizationRequest
	if !bindJSON(c, &req) {
		return
	}

	org, err := h.orgService.CreateOrganization(p.User, req.input())
	if err != nil {
		respondError(c, err, "Failed to create organization")
		return
	}

	c.JSON(http.StatusCreated, dto.ToOrganizationDTO(*org, p.User.ID))
}

// ListOrganizations returns organizations the user owns or belongs to
func (h *OrganizationHandler) ListOrganizations(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	orgs, err := h.orgService.ListOrganizationsForUser(p.User.ID)
	if err != nil {
		respondError(c, err, "Failed to fetch organizations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organizations": dto.ToOrganizationDTOs(orgs, p.User.ID),
	})
}

// GetOrganization returns a specific organization
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	org, err := h.orgService.GetOrganization(id, p.User.ID)
	if err != nil {
		respondError(c, err, "Failed to fetch organization")
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org, p.User.ID))
}

// UpdateOrganization updates an organization (owner only)
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	var req organizationRequest
	if !bindJSON(c, &req) {
		return
	}

	org, err := h.orgService.UpdateOrganization(id, p.User.ID, req.input())
	if err != nil {
		respondError(c, err, "Failed to update organization")
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org, p.User.ID))
}

// DeleteOrganization deletes an organization (owner only)
func (h *OrganizationHandler) DeleteOrganization(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.orgService.DeleteOrganization(id, p.User.ID); err != nil {
		respondError(c, err, "Failed to delete organization")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Organization deleted successfully",
	})
}
