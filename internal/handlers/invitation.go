package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/services"
)

type InvitationHandler struct {
	invitationService *services.InvitationService
}

func NewInvitationHandler(invitationService *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

func (h *InvitationHandler) ListPending(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	invitations, err := h.invitationService.ListPending(p)
	if err != nil {
		respondError(c, err, "Failed to fetch invitations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

// Invite creates or refreshes one invitation per entry and mails each.
func (h *InvitationHandler) Invite(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	type InvitationEntry struct {
		Email   string  `json:"email" binding:"required"`
		Name    string  `json:"name" binding:"max=255"`
		TitleID *uint64 `json:"title_id"`
		RoleID  *uint64 `json:"role_id"`
	}
	type InviteRequest struct {
		Invitations []InvitationEntry `json:"invitations" binding:"dive"`
	}

	var req InviteRequest
	if !bindJSON(c, &req) {
		return
	}

	inputs := make([]services.InvitationInput, len(req.Invitations))
	for i, e := range req.Invitations {
		inputs[i] = services.InvitationInput{Email: e.Email, Name: e.Name, TitleID: e.TitleID, RoleID: e.RoleID}
	}

	invitations, err := h.invitationService.Invite(p, inputs)
	if err != nil {
		respondError(c, err, "Failed to send invitations")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     fmt.Sprintf("Successfully sent %d invitations", len(invitations)),
		"invitations": invitations,
	})
}

func (h *InvitationHandler) Resend(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.invitationService.Resend(p, id); err != nil {
		respondError(c, err, "Failed to resend invitation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation resent successfully"})
}

func (h *InvitationHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.invitationService.Delete(p, id); err != nil {
		respondError(c, err, "Failed to delete invitation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation deleted successfully"})
}

// Check tells an anonymous visitor whether the token can still be accepted.
func (h *InvitationHandler) Check(c *gin.Context) {
	check, err := h.invitationService.Check(c.Param("token"))
	if err != nil {
		respondError(c, err, "Failed to check invitation")
		return
	}

	c.JSON(http.StatusOK, check)
}

// Accept joins the invitee and logs them in.
func (h *InvitationHandler) Accept(c *gin.Context) {
	type AcceptRequest struct {
		Password string `json:"password"`
		Name     string `json:"name" binding:"max=150"`
	}

	var req AcceptRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	user, err := h.invitationService.Accept(c.Param("token"), services.AcceptInput{
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		respondError(c, err, "Failed to accept invitation")
		return
	}

	if !startSession(c, user) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Invitation accepted successfully",
		"user":    dto.ToUserDTO(*user),
	})
}
