package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/models"
)

var (
	// ErrCreateOrganization is returned when creating the organization fails inside the transaction.
	ErrCreateOrganization = errors.New("organization repository: create organization failed")
	// ErrLinkOwner is returned when pointing the owner at the new organization fails.
	ErrLinkOwner = errors.New("organization repository: link owner failed")
	// ErrCreateOwnerMember is returned when creating the owner's team member fails.
	ErrCreateOwnerMember = errors.New("organization repository: create owner member failed")
)

// GormOrganizationRepository is a GORM implementation of OrganizationRepository
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// CreateWithOwner creates the organization, makes it the owner's direct
// organization and adds the owner as a team member atomically.
func (r *GormOrganizationRepository) CreateWithOwner(org *models.Organization, owner *models.User, member *models.TeamMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		org.OwnerID = owner.ID
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateOrganization, err)
		}

		owner.OrganizationID = &org.ID
		owner.OrganizationName = org.Name
		if err := tx.Model(owner).Updates(map[string]interface{}{
			"organization_id":   org.ID,
			"organization_name": org.Name,
		}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrLinkOwner, err)
		}

		member.OrganizationID = org.ID
		member.UserID = &owner.ID
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateOwnerMember, err)
		}

		return nil
	})
}

// FindByID finds an organization by ID
func (r *GormOrganizationRepository) FindByID(id uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// ListForUser lists organizations the user owns or belongs to
func (r *GormOrganizationRepository) ListForUser(userID uint64) ([]models.Organization, error) {
	var orgs []models.Organization
	memberOf := r.db.Model(&models.TeamMember{}).
		Select("organization_id").
		Where("user_id = ?", userID)

	if err := r.db.Where("owner_id = ? OR id IN (?)", userID, memberOf).
		Order("id ASC").
		Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

// Update updates an organization
func (r *GormOrganizationRepository) Update(org *models.Organization) error {
	return r.db.Omit("Owner", "TeamMembers").Save(org).Error
}

// Delete deletes an organization and all related data in a transaction
func (r *GormOrganizationRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		tasks := tx.Model(&models.Task{}).Unscoped().Select("id").Where("organization_id = ?", id)
		for _, join := range []string{"task_assignees", "task_approvers", "task_watchers", "task_prerequisites", "task_links"} {
			if err := tx.Exec("DELETE FROM "+join+" WHERE task_id IN (?)", tasks).Error; err != nil {
				return err
			}
		}

		projects := tx.Model(&models.Project{}).Unscoped().Select("id").Where("organization_id = ?", id)
		if err := tx.Exec("DELETE FROM project_members WHERE project_id IN (?)", projects).Error; err != nil {
			return err
		}

		owned := []interface{}{
			&models.Task{}, &models.Project{}, &models.TeamMember{}, &models.Title{}, &models.Role{},
			&models.ReportConfiguration{}, &models.Conversation{}, &models.CalendarEvent{}, &models.Invitation{},
		}
		for _, model := range owned {
			if err := tx.Where("organization_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&models.User{}).
			Where("organization_id = ?", id).
			Update("organization_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Organization{}, id).Error
	})
}

// FirstOwnedBy returns the user's oldest owned organization
func (r *GormOrganizationRepository) FirstOwnedBy(userID uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.Where("owner_id = ?", userID).Order("id ASC").First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// FirstJoinedBy returns the organization of the user's first team membership
func (r *GormOrganizationRepository) FirstJoinedBy(userID uint64) (*models.Organization, error) {
	var member models.TeamMember
	if err := r.db.Where("user_id = ?", userID).Order("id ASC").First(&member).Error; err != nil {
		return nil, err
	}
	return r.FindByID(member.OrganizationID)
}

// FindByName finds an organization by exact name
func (r *GormOrganizationRepository) FindByName(name string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.Where("name = ?", name).Order("id ASC").First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}
