package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/taskflow-api/internal/dto"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
)

func TestInvitationHandler_InviteAndAcceptNewUser(t *testing.T) {
	env := newAPIEnv(t)
	owner, _ := env.owner("owner@example.com", "Acme")

	w := owner.do(http.MethodPost, "/api/titles", map[string]any{"name": "Author", "permissions": []string{"create_tasks"}})
	require.Equal(t, http.StatusCreated, w.Code)
	title := decode[models.Title](t, w)

	w = owner.do(http.MethodPost, "/api/invitations", map[string]any{
		"invitations": []map[string]any{{"email": "New@Example.com", "name": "Newcomer", "title_id": title.ID}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, env.mails.invitations, 1)
	token := env.mails.invitations[0].Token
	require.NotEmpty(t, token)

	anon := &client{env: env}
	path := "/api/invitations/accept/" + token

	w = anon.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	check := decode[services.InvitationCheck](t, w)
	assert.True(t, check.Valid)
	assert.False(t, check.UserExists)
	require.NotNil(t, check.Invitation)
	assert.Equal(t, "new@example.com", check.Invitation.Email)

	w = anon.do(http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "a new user must choose a password")

	w = anon.do(http.MethodPost, path, map[string]string{"password": testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decode[struct {
		User dto.UserDTO `json:"user"`
	}](t, w).User
	assert.Equal(t, "new@example.com", accepted.Email)
	assert.Equal(t, "Newcomer", accepted.Name)

	// accepting logs the invitee in with the invited title
	newcomer := &client{env: env, cookies: w.Result().Cookies()}
	w = newcomer.do(http.MethodGet, "/api/team-members", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]dto.TeamMemberDTO](t, w)["team_members"], 2)
	assert.Equal(t, http.StatusCreated, newcomer.do(http.MethodPost, "/api/tasks", map[string]any{"title": "First"}).Code)

	// tokens are single use
	assert.Equal(t, http.StatusNotFound, anon.do(http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, anon.do(http.MethodPost, path, map[string]string{"password": testPassword}).Code)
}

func TestInvitationHandler_AcceptExistingUser(t *testing.T) {
	env := newAPIEnv(t)
	owner, org := env.owner("owner@example.com", "Acme")
	existing := env.signup("existing@example.com", "Existing")

	w := owner.do(http.MethodPost, "/api/invitations", map[string]any{
		"invitations": []map[string]any{{"email": existing.Email}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	path := "/api/invitations/accept/" + env.mails.invitations[0].Token

	anon := &client{env: env}
	w = anon.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[services.InvitationCheck](t, w).UserExists)

	w = anon.do(http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	member, err := env.members.FindByEmail(org.ID, existing.Email)
	require.NoError(t, err)
	require.NotNil(t, member.UserID)
	assert.Equal(t, existing.ID, *member.UserID)

	// the existing password still works and the account now has a tenant
	cl := env.login(existing)
	assert.Equal(t, http.StatusOK, cl.do(http.MethodGet, "/api/team-members", nil).Code)
}

func TestInvitationHandler_Manage(t *testing.T) {
	env := newAPIEnv(t)
	owner, org := env.owner("owner@example.com", "Acme")
	worker, _ := env.member(org, "worker@example.com")
	manager, _ := env.member(org, "manager@example.com", models.PermManageUsers)

	invite := map[string]any{"invitations": []map[string]any{{"email": "guest@example.com"}}}

	assert.Equal(t, http.StatusForbidden, worker.do(http.MethodPost, "/api/invitations", invite).Code)
	assert.Equal(t, http.StatusForbidden, worker.do(http.MethodGet, "/api/invitations", nil).Code)

	w := manager.do(http.MethodPost, "/api/invitations", map[string]any{"invitations": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = manager.do(http.MethodPost, "/api/invitations", map[string]any{
		"invitations": []map[string]any{{"email": "worker@example.com"}},
	})
	assert.Equal(t, http.StatusConflict, w.Code, "already a team member")

	w = manager.do(http.MethodPost, "/api/invitations", invite)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[struct {
		Invitations []models.Invitation `json:"invitations"`
	}](t, w).Invitations[0]
	assert.True(t, first.ExpiresAt.After(time.Now()))

	// inviting the same email again refreshes the pending invitation
	w = owner.do(http.MethodPost, "/api/invitations", invite)
	require.Equal(t, http.StatusCreated, w.Code)
	again := decode[struct {
		Invitations []models.Invitation `json:"invitations"`
	}](t, w).Invitations[0]
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, owner.user.ID, again.InvitedByID)

	w = manager.do(http.MethodGet, "/api/invitations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]models.Invitation](t, w)["invitations"], 1)

	path := fmt.Sprintf("/api/invitations/%d", first.ID)
	sent := len(env.mails.invitations)
	assert.Equal(t, http.StatusOK, manager.do(http.MethodPost, path+"/resend", nil).Code)
	assert.Len(t, env.mails.invitations, sent+1)

	outsider, _ := env.owner("other@example.com", "Globex")
	assert.Equal(t, http.StatusNotFound, outsider.do(http.MethodDelete, path, nil).Code)

	assert.Equal(t, http.StatusOK, manager.do(http.MethodDelete, path, nil).Code)
	w = manager.do(http.MethodGet, "/api/invitations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[map[string][]models.Invitation](t, w)["invitations"])
}
