package models

import "time"

// TeamMember is a person inside one organization. It may or may not be
// linked to a login account.
type TeamMember struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	OrganizationID uint64    `gorm:"not null;uniqueIndex:idx_team_members_org_email" json:"organization_id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Email          string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_team_members_org_email" json:"email"`
	UserID         *uint64   `gorm:"index" json:"user_id"`
	TitleID        *uint64   `gorm:"index" json:"title_id"`
	RoleID         *uint64   `gorm:"index" json:"role_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	User         *User         `gorm:"foreignKey:UserID" json:"-"`
	Title        *Title        `gorm:"foreignKey:TitleID" json:"title,omitempty"`
	Role         *Role         `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}
