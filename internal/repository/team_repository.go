package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// GormTeamMemberRepository is a GORM implementation of TeamMemberRepository
type GormTeamMemberRepository struct {
	db *gorm.DB
}

// NewTeamMemberRepository creates a new TeamMemberRepository
func NewTeamMemberRepository(db *gorm.DB) TeamMemberRepository {
	return &GormTeamMemberRepository{db: db}
}

func (r *GormTeamMemberRepository) Create(member *models.TeamMember) error {
	return r.db.Omit("Title", "Role", "User", "Organization").Create(member).Error
}

func (r *GormTeamMemberRepository) FindByID(organizationID, id uint64) (*models.TeamMember, error) {
	var member models.TeamMember
	if err := r.db.Preload("Title").Preload("Role").
		Where("organization_id = ?", organizationID).
		First(&member, id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *GormTeamMemberRepository) FindByEmail(organizationID uint64, email string) (*models.TeamMember, error) {
	var member models.TeamMember
	if err := r.db.Where("organization_id = ? AND LOWER(email) = ?", organizationID, strings.ToLower(email)).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *GormTeamMemberRepository) List(organizationID uint64) ([]models.TeamMember, error) {
	var members []models.TeamMember
	if err := r.db.Preload("Title").Preload("Role").
		Where("organization_id = ?", organizationID).
		Order("name ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *GormTeamMemberRepository) Update(member *models.TeamMember) error {
	return r.db.Omit("Title", "Role", "User", "Organization").Save(member).Error
}

// Delete removes the member. Tasks keep existing with the assignment cleared.
func (r *GormTeamMemberRepository) Delete(organizationID, id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).
			Where("assigned_to_id = ?", id).
			Update("assigned_to_id", nil).Error; err != nil {
			return err
		}

		for _, join := range []string{"task_assignees", "task_approvers", "task_watchers", "project_members"} {
			if err := tx.Exec("DELETE FROM "+join+" WHERE team_member_id = ?", id).Error; err != nil {
				return err
			}
		}

		result := tx.Where("organization_id = ?", organizationID).Delete(&models.TeamMember{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormTeamMemberRepository) FindByIDs(organizationID uint64, ids []uint64) ([]models.TeamMember, error) {
	var members []models.TeamMember
	if len(ids) == 0 {
		return members, nil
	}
	if err := r.db.Where("organization_id = ? AND id IN ?", organizationID, ids).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// FindMemberships matches on user id or, for members not yet linked to an
// account, on email.
func (r *GormTeamMemberRepository) FindMemberships(organizationID, userID uint64, email string) ([]models.TeamMember, error) {
	var members []models.TeamMember
	query := r.db.Preload("Title.Permissions").Preload("Role.Permissions").
		Where("organization_id = ?", organizationID)
	if email != "" {
		query = query.Where("(user_id = ? OR LOWER(email) = ?)", userID, strings.ToLower(email))
	} else {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.Order("id ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// CountUsersInOrganization counts users among userIDs who own the
// organization, have a team member in it or are directly linked to it.
func (r *GormTeamMemberRepository) CountUsersInOrganization(organizationID uint64, userIDs []uint64) (int64, error) {
	var count int64
	if len(userIDs) == 0 {
		return 0, nil
	}

	memberUsers := r.db.Model(&models.TeamMember{}).
		Select("user_id").
		Where("organization_id = ? AND user_id IS NOT NULL", organizationID)
	owner := r.db.Model(&models.Organization{}).
		Select("owner_id").
		Where("id = ?", organizationID)

	err := r.db.Model(&models.User{}).
		Where("id IN ?", userIDs).
		Where("(id IN (?) OR id IN (?) OR organization_id = ?)", memberUsers, owner, organizationID).
		Count(&count).Error

	return count, err
}

// GormRoleRepository is a GORM implementation of RoleRepository
type GormRoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new RoleRepository
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &GormRoleRepository{db: db}
}

func (r *GormRoleRepository) CreateTitle(title *models.Title) error {
	return r.db.Create(title).Error
}

func (r *GormRoleRepository) FindTitle(organizationID, id uint64) (*models.Title, error) {
	var title models.Title
	if err := r.db.Preload("Permissions").
		Where("organization_id = ?", organizationID).
		First(&title, id).Error; err != nil {
		return nil, err
	}
	return &title, nil
}

func (r *GormRoleRepository) ListTitles(organizationID uint64) ([]models.Title, error) {
	var titles []models.Title
	if err := r.db.Preload("Permissions").
		Where("organization_id = ?", organizationID).
		Order("name ASC").
		Find(&titles).Error; err != nil {
		return nil, err
	}
	return titles, nil
}

func (r *GormRoleRepository) UpdateTitle(title *models.Title, perms *[]models.Permission) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Permissions").Save(title).Error; err != nil {
			return err
		}
		if perms == nil {
			return nil
		}
		return replacePermissions(tx, title, *perms)
	})
}

func (r *GormRoleRepository) DeleteTitle(organizationID, id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TeamMember{}).
			Where("organization_id = ? AND title_id = ?", organizationID, id).
			Update("title_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM title_permissions WHERE title_id = ?", id).Error; err != nil {
			return err
		}
		return deleteOwned(tx, &models.Title{}, organizationID, id)
	})
}

func (r *GormRoleRepository) CreateRole(role *models.Role) error {
	return r.db.Create(role).Error
}

func (r *GormRoleRepository) FindRole(organizationID, id uint64) (*models.Role, error) {
	var role models.Role
	if err := r.db.Preload("Permissions").
		Where("organization_id = ?", organizationID).
		First(&role, id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *GormRoleRepository) ListRoles(organizationID uint64) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.Preload("Permissions").
		Where("organization_id = ?", organizationID).
		Order("name ASC").
		Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *GormRoleRepository) UpdateRole(role *models.Role, perms *[]models.Permission) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Permissions").Save(role).Error; err != nil {
			return err
		}
		if perms == nil {
			return nil
		}
		return replacePermissions(tx, role, *perms)
	})
}

func (r *GormRoleRepository) DeleteRole(organizationID, id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TeamMember{}).
			Where("organization_id = ? AND role_id = ?", organizationID, id).
			Update("role_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM role_permissions WHERE role_id = ?", id).Error; err != nil {
			return err
		}
		return deleteOwned(tx, &models.Role{}, organizationID, id)
	})
}

func (r *GormRoleRepository) ListPermissions() ([]models.Permission, error) {
	var perms []models.Permission
	if err := r.db.Order("id ASC").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *GormRoleRepository) FindPermissionsByCodes(codes []models.PermissionCode) ([]models.Permission, error) {
	var perms []models.Permission
	if len(codes) == 0 {
		return perms, nil
	}
	if err := r.db.Where("code IN ?", codes).Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func replacePermissions(tx *gorm.DB, owner interface{}, perms []models.Permission) error {
	assoc := tx.Model(owner).Association("Permissions")
	if len(perms) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(perms)
}

func deleteOwned(tx *gorm.DB, model interface{}, organizationID, id uint64) error {
	result := tx.Where("organization_id = ?", organizationID).Delete(model, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
