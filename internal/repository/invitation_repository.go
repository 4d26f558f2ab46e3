package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// GormInvitationRepository is a GORM implementation of InvitationRepository
type GormInvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new InvitationRepository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &GormInvitationRepository{db: db}
}

func (r *GormInvitationRepository) Create(inv *models.Invitation) error {
	return r.db.Omit("Organization").Create(inv).Error
}

func (r *GormInvitationRepository) FindByID(organizationID, id uint64) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.Where("organization_id = ? AND accepted = ?", organizationID, false).
		First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormInvitationRepository) FindPendingByToken(token string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.Preload("Organization").
		Where("token = ? AND accepted = ?", token, false).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormInvitationRepository) FindPendingByEmail(organizationID uint64, email string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.Where("organization_id = ? AND email = ? AND accepted = ?", organizationID, email, false).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormInvitationRepository) ListPending(organizationID uint64) ([]models.Invitation, error) {
	var invs []models.Invitation
	if err := r.db.Where("organization_id = ? AND accepted = ?", organizationID, false).
		Order("created_at DESC").
		Find(&invs).Error; err != nil {
		return nil, err
	}
	return invs, nil
}

func (r *GormInvitationRepository) Update(inv *models.Invitation) error {
	return r.db.Omit("Organization").Save(inv).Error
}

func (r *GormInvitationRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Invitation{}, id).Error
}

// Accept creates the user when new, links user and member to the
// organization and marks the invitation accepted, atomically.
func (r *GormInvitationRepository) Accept(inv *models.Invitation, user *models.User, member *models.TeamMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		user.OrganizationID = &inv.OrganizationID
		if user.ID == 0 {
			if err := tx.Create(user).Error; err != nil {
				return err
			}
		} else if err := tx.Model(user).Update("organization_id", inv.OrganizationID).Error; err != nil {
			return err
		}

		member.OrganizationID = inv.OrganizationID
		member.UserID = &user.ID
		if member.ID == 0 {
			if err := tx.Omit("Title", "Role", "User", "Organization").Create(member).Error; err != nil {
				return err
			}
		} else if err := tx.Omit("Title", "Role", "User", "Organization").Save(member).Error; err != nil {
			return err
		}

		now := time.Now()
		inv.Accepted = true
		inv.AcceptedByID = &user.ID
		inv.AcceptedAt = &now
		return tx.Omit("Organization").Save(inv).Error
	})
}
