package services

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

var (
	ErrProjectNotFound      = errors.New("project not found")
	ErrInvalidProjectStatus = errors.New("invalid project status")
	ErrInvalidProjectDates  = errors.New("end date must be after start date")
	ErrMemberNotInOrg       = errors.New("team members must belong to the organization")
)

// ProjectService handles project business logic
type ProjectService struct {
	projects repository.ProjectRepository
	members  repository.TeamMemberRepository
}

// NewProjectService creates a new ProjectService
func NewProjectService(projects repository.ProjectRepository, members repository.TeamMemberRepository) *ProjectService {
	return &ProjectService{projects: projects, members: members}
}

// ProjectInput holds project fields. Nil fields are left unchanged on update.
type ProjectInput struct {
	Name           *string
	Description    *string
	StartDate      *time.Time
	EndDate        *time.Time
	ClearStartDate bool
	ClearEndDate   bool
	Status         *models.ProjectStatus
	TeamMemberIDs  *[]uint64
}

// ProjectWithProgress is a project with the share of its tasks that are done.
type ProjectWithProgress struct {
	models.Project
	TaskCount int64 `json:"task_count"`
	Progress  int   `json:"progress"`
}

// ListProjects lists the projects visible to the principal.
func (s *ProjectService) ListProjects(p *access.Principal, status *models.ProjectStatus, search string, page utils.PaginationParams) ([]ProjectWithProgress, int64, error) {
	if status != nil && !status.Valid() {
		return nil, 0, ErrInvalidProjectStatus
	}

	projects, total, err := s.projects.List(repository.ProjectFilter{
		Scope:      access.ProjectScope(p.Tenant, p.Viewer),
		Status:     status,
		Search:     strings.TrimSpace(search),
		Pagination: page,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	ids := make([]uint64, len(projects))
	for i, pr := range projects {
		ids[i] = pr.ID
	}
	progress, err := s.projects.Progress(ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count project progress: %w", err)
	}

	out := make([]ProjectWithProgress, len(projects))
	for i, pr := range projects {
		counts := progress[pr.ID]
		out[i] = ProjectWithProgress{
			Project:   pr,
			TaskCount: counts.Total,
			Progress:  percent(counts.Completed, counts.Total),
		}
	}
	return out, total, nil
}

// percent is part/total as a rounded whole percentage, 0 for no tasks.
func percent(part, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// GetProject returns a visible project with its team.
func (s *ProjectService) GetProject(p *access.Principal, id uint64) (*models.Project, error) {
	project, err := s.projects.FindByID(id, access.ProjectScope(p.Tenant, p.Viewer), "TeamMembers")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// CreateProject creates a project in the principal's organization.
func (s *ProjectService) CreateProject(p *access.Principal, input ProjectInput) (*models.Project, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, ErrNameRequired
	}

	project := &models.Project{
		OrganizationID: orgID,
		Status:         models.ProjectStatusPlanning,
	}
	if err := s.merge(project, input); err != nil {
		return nil, err
	}
	if input.TeamMemberIDs != nil {
		team, err := s.team(orgID, *input.TeamMemberIDs)
		if err != nil {
			return nil, err
		}
		project.TeamMembers = team
	}

	if err := s.projects.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return s.GetProject(p, project.ID)
}

// UpdateProject updates a visible project. A non-nil TeamMemberIDs
// replaces the team.
func (s *ProjectService) UpdateProject(p *access.Principal, id uint64, input ProjectInput) (*models.Project, error) {
	project, err := s.GetProject(p, id)
	if err != nil {
		return nil, err
	}
	if err := s.merge(project, input); err != nil {
		return nil, err
	}
	if input.TeamMemberIDs != nil {
		if _, err := s.team(project.OrganizationID, *input.TeamMemberIDs); err != nil {
			return nil, err
		}
	}

	project.TeamMembers = nil
	if err := s.projects.Update(project, input.TeamMemberIDs); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return s.GetProject(p, id)
}

// DeleteProject deletes a visible project. Its tasks are kept.
func (s *ProjectService) DeleteProject(p *access.Principal, id uint64) error {
	if _, err := s.GetProject(p, id); err != nil {
		return err
	}
	if err := s.projects.Delete(id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

func (s *ProjectService) merge(project *models.Project, input ProjectInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return ErrNameRequired
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return ErrInvalidProjectStatus
		}
		project.Status = *input.Status
	}

	if input.ClearStartDate {
		project.StartDate = nil
	} else if input.StartDate != nil {
		project.StartDate = input.StartDate
	}
	if input.ClearEndDate {
		project.EndDate = nil
	} else if input.EndDate != nil {
		project.EndDate = input.EndDate
	}

	if project.StartDate != nil && project.EndDate != nil && project.StartDate.After(*project.EndDate) {
		return ErrInvalidProjectDates
	}
	return nil
}

// team loads the members with ids, all of which must belong to the organization.
func (s *ProjectService) team(orgID uint64, ids []uint64) ([]models.TeamMember, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []models.TeamMember{}, nil
	}
	members, err := s.members.FindByIDs(orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load team members: %w", err)
	}
	if len(members) != len(ids) {
		return nil, ErrMemberNotInOrg
	}
	return members, nil
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
