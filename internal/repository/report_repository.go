package repository

import (
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// GormReportRepository is a GORM implementation of ReportRepository
type GormReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &GormReportRepository{db: db}
}

func (r *GormReportRepository) CreateConfiguration(cfg *models.ReportConfiguration) error {
	return r.db.Create(cfg).Error
}

func (r *GormReportRepository) FindConfiguration(organizationID, id uint64) (*models.ReportConfiguration, error) {
	var cfg models.ReportConfiguration
	if err := r.db.Where("organization_id = ?", organizationID).First(&cfg, id).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListConfigurations lists favorites first, then by name
func (r *GormReportRepository) ListConfigurations(organizationID uint64) ([]models.ReportConfiguration, error) {
	var cfgs []models.ReportConfiguration
	if err := r.db.Where("organization_id = ?", organizationID).
		Order("is_favorite DESC").Order("name ASC").
		Find(&cfgs).Error; err != nil {
		return nil, err
	}
	return cfgs, nil
}

func (r *GormReportRepository) UpdateConfiguration(cfg *models.ReportConfiguration) error {
	return r.db.Save(cfg).Error
}

func (r *GormReportRepository) DeleteConfiguration(organizationID, id uint64) error {
	return deleteOwned(r.db, &models.ReportConfiguration{}, organizationID, id)
}

// LoadTasks loads the tasks a report aggregates over, with project and
// primary assignee preloaded
func (r *GormReportRepository) LoadTasks(filter ReportFilter) ([]models.Task, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{}).Preload("Project").Preload("AssignedTo")
	if filter.OrganizationID != nil {
		query = query.Where("tasks.organization_id = ?", *filter.OrganizationID)
	}
	if filter.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *filter.ProjectID)
	}
	if filter.TeamMemberID != nil {
		query = query.Where("tasks.assigned_to_id = ?", *filter.TeamMemberID)
	}
	if filter.TimeTrackingOnly {
		query = query.Where("tasks.time_tracking_enabled = ?", true)
	}
	if filter.BillableOnly {
		query = query.Where("tasks.is_billable = ?", true)
	}
	if filter.WithTimeEntries {
		query = query.Preload("TimeEntries")
	}

	if err := query.Order("tasks.id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// LoadProjects loads projects with their team
func (r *GormReportRepository) LoadProjects(filter ReportFilter) ([]models.Project, error) {
	var projects []models.Project

	query := r.db.Model(&models.Project{}).Preload("TeamMembers")
	if filter.OrganizationID != nil {
		query = query.Where("projects.organization_id = ?", *filter.OrganizationID)
	}
	if filter.ProjectID != nil {
		query = query.Where("projects.id = ?", *filter.ProjectID)
	}

	if err := query.Order("projects.id ASC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// LoadMembers loads team members with their title
func (r *GormReportRepository) LoadMembers(filter ReportFilter) ([]models.TeamMember, error) {
	var members []models.TeamMember

	query := r.db.Model(&models.TeamMember{}).Preload("Title")
	if filter.OrganizationID != nil {
		query = query.Where("organization_id = ?", *filter.OrganizationID)
	}
	if filter.TeamMemberID != nil {
		query = query.Where("id = ?", *filter.TeamMemberID)
	}

	if err := query.Order("id ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
