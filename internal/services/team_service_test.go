package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/taskflow-api/internal/models"
)

func TestTeamMembers(t *testing.T) {
	f := newFixture(t)
	s := NewTeamService(f.members, f.roles)

	m, err := s.CreateMember(f.org.ID, TeamMemberInput{Name: ptr("Nina New"), Email: ptr(" Nina@Example.com ")})
	require.NoError(t, err)
	assert.Equal(t, "nina@example.com", m.Email)

	_, err = s.CreateMember(f.org.ID, TeamMemberInput{Name: ptr("Dup"), Email: ptr("nina@example.com")})
	assert.ErrorIs(t, err, ErrTeamMemberEmailTaken)

	// the same email is free in another organization
	_, err = s.CreateMember(f.otherOrg.ID, TeamMemberInput{Name: ptr("Nina"), Email: ptr("nina@example.com")})
	assert.NoError(t, err)

	_, err = s.CreateMember(f.org.ID, TeamMemberInput{Name: ptr(" "), Email: ptr("x@example.com")})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = s.GetMember(f.org.ID, f.outsiderRow.ID)
	assert.ErrorIs(t, err, ErrTeamMemberNotFound)

	require.NoError(t, s.DeleteMember(f.org.ID, m.ID))
	assert.ErrorIs(t, s.DeleteMember(f.org.ID, m.ID), ErrTeamMemberNotFound)
}

func TestTitlesAndRoles(t *testing.T) {
	f := newFixture(t)
	s := NewTeamService(f.members, f.roles)

	codes := []models.PermissionCode{models.PermCreateTasks, models.PermComment, models.PermComment}
	title, err := s.CreateTitle(f.org.ID, GroupingInput{Name: ptr("Engineer"), Permissions: &codes})
	require.NoError(t, err)
	assert.Len(t, title.Permissions, 2)

	_, err = s.CreateTitle(f.org.ID, GroupingInput{Name: ptr("Engineer")})
	assert.ErrorIs(t, err, ErrNameTaken)

	bad := []models.PermissionCode{"fly"}
	_, err = s.CreateRole(f.org.ID, GroupingInput{Name: ptr("Pilot"), Permissions: &bad})
	assert.ErrorIs(t, err, ErrUnknownPermission)

	reports := []models.PermissionCode{models.PermViewReports}
	role, err := s.CreateRole(f.org.ID, GroupingInput{Name: ptr("Analyst"), Permissions: &reports})
	require.NoError(t, err)

	// the worker gets both; capabilities are the union
	m, err := s.UpdateMember(f.org.ID, f.workerRow.ID, TeamMemberInput{TitleID: &title.ID, RoleID: &role.ID})
	require.NoError(t, err)
	require.NotNil(t, m.Title)
	require.NotNil(t, m.Role)

	caps, err := f.authz.Capabilities(f.worker, f.principal(f.worker).Tenant)
	require.NoError(t, err)
	assert.True(t, caps.Has(models.PermCreateTasks))
	assert.True(t, caps.Has(models.PermViewReports))
	assert.False(t, caps.Has(models.PermDeleteTasks))

	// replacing the title's set drops comment
	only := []models.PermissionCode{models.PermCreateTasks}
	title, err = s.UpdateTitle(f.org.ID, title.ID, GroupingInput{Permissions: &only})
	require.NoError(t, err)
	assert.Len(t, title.Permissions, 1)

	// a title from another organization cannot be attached
	foreign, err := s.CreateTitle(f.otherOrg.ID, GroupingInput{Name: ptr("Foreign")})
	require.NoError(t, err)
	_, err = s.UpdateMember(f.org.ID, f.workerRow.ID, TeamMemberInput{TitleID: &foreign.ID})
	assert.ErrorIs(t, err, ErrTitleNotFound)

	m, err = s.UpdateMember(f.org.ID, f.workerRow.ID, TeamMemberInput{ClearRole: true})
	require.NoError(t, err)
	assert.Nil(t, m.RoleID)

	require.NoError(t, s.DeleteTitle(f.org.ID, title.ID))
	m, err = s.GetMember(f.org.ID, f.workerRow.ID)
	require.NoError(t, err)
	assert.Nil(t, m.TitleID)

	perms, err := s.ListPermissions()
	require.NoError(t, err)
	assert.Len(t, perms, len(models.DefaultPermissions()))
}
