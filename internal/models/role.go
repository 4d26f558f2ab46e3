package models

import "time"

// Title is a named position carrying a permission set.
type Title struct {
	ID             uint64       `gorm:"primarykey" json:"id"`
	OrganizationID uint64       `gorm:"not null;uniqueIndex:idx_titles_org_name" json:"organization_id"`
	Name           string       `gorm:"type:varchar(100);not null;uniqueIndex:idx_titles_org_name" json:"name"`
	Description    string       `gorm:"type:text" json:"description"`
	Permissions    []Permission `gorm:"many2many:title_permissions;" json:"permissions"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Role is the older permission grouping. It stays active alongside Title.
type Role struct {
	ID             uint64       `gorm:"primarykey" json:"id"`
	OrganizationID uint64       `gorm:"not null;uniqueIndex:idx_roles_org_name" json:"organization_id"`
	Name           string       `gorm:"type:varchar(100);not null;uniqueIndex:idx_roles_org_name" json:"name"`
	Description    string       `gorm:"type:text" json:"description"`
	Permissions    []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
