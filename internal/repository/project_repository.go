package repository

import (
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a project together with its team
func (r *GormProjectRepository) Create(project *models.Project) error {
	return r.db.Omit("TeamMembers.*").Create(project).Error
}

// FindByID finds a project within scope
func (r *GormProjectRepository) FindByID(id uint64, scope Scope, preload ...string) (*models.Project, error) {
	var project models.Project
	query := applyScope(r.db.Model(&models.Project{}), scope)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.Where("projects.id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List retrieves projects with filtering and pagination
func (r *GormProjectRepository) List(filter ProjectFilter) ([]models.Project, int64, error) {
	var projects []models.Project

	query := applyScope(r.db.Model(&models.Project{}), filter.Scope)
	if filter.Status != nil {
		query = query.Where("projects.status = ?", *filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(projects.name LIKE ? OR projects.description LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("projects.created_at DESC").
		Scopes(database.Paginate(filter.Pagination))

	if err := listQuery.Preload("TeamMembers").Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

// Update saves the project and replaces the team when memberIDs is set
func (r *GormProjectRepository) Update(project *models.Project, memberIDs *[]uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("TeamMembers").Save(project).Error; err != nil {
			return err
		}
		if memberIDs == nil {
			return nil
		}
		return replaceMembers(tx, project, "TeamMembers", *memberIDs)
	})
}

// Delete soft deletes a project. Its tasks stay, detached from it.
func (r *GormProjectRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).
			Where("project_id = ?", id).
			Update("project_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM project_members WHERE project_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, id).Error
	})
}

// Progress counts total and finished tasks per project
func (r *GormProjectRepository) Progress(projectIDs []uint64) (map[uint64]ProjectProgress, error) {
	progress := make(map[uint64]ProjectProgress, len(projectIDs))
	if len(projectIDs) == 0 {
		return progress, nil
	}

	var rows []struct {
		ProjectID uint64
		Total     int64
		Completed int64
	}
	err := r.db.Model(&models.Task{}).
		Select("project_id, COUNT(*) AS total, SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END) AS completed",
			[]models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusApproved}).
		Where("project_id IN ?", projectIDs).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		progress[row.ProjectID] = ProjectProgress{Total: row.Total, Completed: row.Completed}
	}
	return progress, nil
}

// replaceMembers swaps a team member association for the rows with ids.
func replaceMembers(tx *gorm.DB, owner interface{}, name string, ids []uint64) error {
	assoc := tx.Model(owner).Association(name)
	if len(ids) == 0 {
		return assoc.Clear()
	}
	members := make([]models.TeamMember, len(ids))
	for i, id := range ids {
		members[i] = models.TeamMember{ID: id}
	}
	return assoc.Replace(members)
}
