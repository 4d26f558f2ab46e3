package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

var (
	ErrTeamMemberNotFound   = errors.New("team member not found")
	ErrTeamMemberEmailTaken = errors.New("a team member with this email already exists")
	ErrNameRequired         = errors.New("name is required")
	ErrTitleNotFound        = errors.New("title not found")
	ErrRoleNotFound         = errors.New("role not found")
	ErrUnknownPermission    = errors.New("one or more permission codes are unknown")
	ErrNameTaken            = errors.New("name already in use in this organization")
)

// TeamService manages team members, titles, roles and the permission catalogue.
type TeamService struct {
	members repository.TeamMemberRepository
	roles   repository.RoleRepository
}

// NewTeamService creates a new TeamService.
func NewTeamService(members repository.TeamMemberRepository, roles repository.RoleRepository) *TeamService {
	return &TeamService{members: members, roles: roles}
}

// TeamMemberInput holds team member fields. Nil fields are left unchanged
// on update; ClearTitle and ClearRole detach the grouping.
type TeamMemberInput struct {
	Name       *string
	Email      *string
	TitleID    *uint64
	RoleID     *uint64
	ClearTitle bool
	ClearRole  bool
}

func (s *TeamService) ListMembers(orgID uint64) ([]models.TeamMember, error) {
	members, err := s.members.List(orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return members, nil
}

func (s *TeamService) GetMember(orgID, id uint64) (*models.TeamMember, error) {
	member, err := s.members.FindByID(orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamMemberNotFound
		}
		return nil, fmt.Errorf("failed to find team member: %w", err)
	}
	return member, nil
}

// CreateMember adds a team member. Emails are unique per organization.
func (s *TeamService) CreateMember(orgID uint64, input TeamMemberInput) (*models.TeamMember, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, ErrNameRequired
	}
	if input.Email == nil {
		return nil, ErrInvalidEmail
	}
	email, err := normalizeEmail(*input.Email)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(orgID, email, 0); err != nil {
		return nil, err
	}

	member := &models.TeamMember{
		OrganizationID: orgID,
		Name:           strings.TrimSpace(*input.Name),
		Email:          email,
	}
	if err := s.applyGroupings(orgID, member, input); err != nil {
		return nil, err
	}

	if err := s.members.Create(member); err != nil {
		return nil, fmt.Errorf("failed to create team member: %w", err)
	}
	return s.GetMember(orgID, member.ID)
}

func (s *TeamService) UpdateMember(orgID, id uint64, input TeamMemberInput) (*models.TeamMember, error) {
	member, err := s.GetMember(orgID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		member.Name = name
	}
	if input.Email != nil {
		email, err := normalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		if err := s.ensureEmailFree(orgID, email, member.ID); err != nil {
			return nil, err
		}
		member.Email = email
	}
	if err := s.applyGroupings(orgID, member, input); err != nil {
		return nil, err
	}

	if err := s.members.Update(member); err != nil {
		return nil, fmt.Errorf("failed to update team member: %w", err)
	}
	return s.GetMember(orgID, member.ID)
}

func (s *TeamService) DeleteMember(orgID, id uint64) error {
	if err := s.members.Delete(orgID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamMemberNotFound
		}
		return fmt.Errorf("failed to delete team member: %w", err)
	}
	return nil
}

func (s *TeamService) ensureEmailFree(orgID uint64, email string, self uint64) error {
	existing, err := s.members.FindByEmail(orgID, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check team member email: %w", err)
	case existing.ID != self:
		return ErrTeamMemberEmailTaken
	}
	return nil
}

// applyGroupings checks that the referenced title and role belong to the
// organization before attaching them.
func (s *TeamService) applyGroupings(orgID uint64, member *models.TeamMember, input TeamMemberInput) error {
	switch {
	case input.ClearTitle:
		member.TitleID = nil
	case input.TitleID != nil:
		if _, err := s.GetTitle(orgID, *input.TitleID); err != nil {
			return err
		}
		member.TitleID = input.TitleID
	}
	switch {
	case input.ClearRole:
		member.RoleID = nil
	case input.RoleID != nil:
		if _, err := s.GetRole(orgID, *input.RoleID); err != nil {
			return err
		}
		member.RoleID = input.RoleID
	}
	return nil
}

// GroupingInput holds the fields of a title or role. A nil Permissions
// leaves the set unchanged on update.
type GroupingInput struct {
	Name        *string
	Description *string
	Permissions *[]models.PermissionCode
}

func (s *TeamService) resolvePermissions(codes *[]models.PermissionCode) (*[]models.Permission, error) {
	if codes == nil {
		return nil, nil
	}
	unique := make([]models.PermissionCode, 0, len(*codes))
	seen := map[models.PermissionCode]bool{}
	for _, c := range *codes {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}

	perms, err := s.roles.FindPermissionsByCodes(unique)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	if len(perms) != len(unique) {
		return nil, ErrUnknownPermission
	}
	return &perms, nil
}

func (s *TeamService) ListTitles(orgID uint64) ([]models.Title, error) {
	titles, err := s.roles.ListTitles(orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	return titles, nil
}

func (s *TeamService) GetTitle(orgID, id uint64) (*models.Title, error) {
	title, err := s.roles.FindTitle(orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTitleNotFound
		}
		return nil, fmt.Errorf("failed to find title: %w", err)
	}
	return title, nil
}

func (s *TeamService) CreateTitle(orgID uint64, input GroupingInput) (*models.Title, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, ErrNameRequired
	}
	perms, err := s.resolvePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	title := &models.Title{OrganizationID: orgID, Name: strings.TrimSpace(*input.Name)}
	if input.Description != nil {
		title.Description = *input.Description
	}
	if perms != nil {
		title.Permissions = *perms
	}

	if err := s.roles.CreateTitle(title); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("failed to create title: %w", err)
	}
	return title, nil
}

func (s *TeamService) UpdateTitle(orgID, id uint64, input GroupingInput) (*models.Title, error) {
	title, err := s.GetTitle(orgID, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrNameRequired
		}
		title.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		title.Description = *input.Description
	}
	perms, err := s.resolvePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	if err := s.roles.UpdateTitle(title, perms); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("failed to update title: %w", err)
	}
	return s.GetTitle(orgID, id)
}

func (s *TeamService) DeleteTitle(orgID, id uint64) error {
	if err := s.roles.DeleteTitle(orgID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTitleNotFound
		}
		return fmt.Errorf("failed to delete title: %w", err)
	}
	return nil
}

func (s *TeamService) ListRoles(orgID uint64) ([]models.Role, error) {
	roles, err := s.roles.ListRoles(orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

func (s *TeamService) GetRole(orgID, id uint64) (*models.Role, error) {
	role, err := s.roles.FindRole(orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to find role: %w", err)
	}
	return role, nil
}

func (s *TeamService) CreateRole(orgID uint64, input GroupingInput) (*models.Role, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, ErrNameRequired
	}
	perms, err := s.resolvePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	role := &models.Role{OrganizationID: orgID, Name: strings.TrimSpace(*input.Name)}
	if input.Description != nil {
		role.Description = *input.Description
	}
	if perms != nil {
		role.Permissions = *perms
	}

	if err := s.roles.CreateRole(role); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}

func (s *TeamService) UpdateRole(orgID, id uint64, input GroupingInput) (*models.Role, error) {
	role, err := s.GetRole(orgID, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrNameRequired
		}
		role.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		role.Description = *input.Description
	}
	perms, err := s.resolvePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	if err := s.roles.UpdateRole(role, perms); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return s.GetRole(orgID, id)
}

func (s *TeamService) DeleteRole(orgID, id uint64) error {
	if err := s.roles.DeleteRole(orgID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

// ListPermissions returns the seeded permission catalogue.
func (s *TeamService) ListPermissions() ([]models.Permission, error) {
	perms, err := s.roles.ListPermissions()
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}
