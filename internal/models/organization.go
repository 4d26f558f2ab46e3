package models

import (
	"time"

	"gorm.io/gorm"
)

type Organization struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null;index" json:"name"`
	Industry  string         `gorm:"type:varchar(100)" json:"industry"`
	Size      string         `gorm:"type:varchar(100)" json:"size"`
	OwnerID   uint64         `gorm:"not null;index" json:"owner_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Owner       User         `gorm:"foreignKey:OwnerID" json:"-"`
	TeamMembers []TeamMember `gorm:"foreignKey:OrganizationID" json:"team_members,omitempty"`
}
