package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint64 `gorm:"primarykey" json:"id"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name         string `gorm:"type:varchar(150)" json:"name"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	IsStaff      bool   `gorm:"not null;default:false" json:"is_staff"`

	// Direct tenant link; OrganizationName is the legacy free-text form.
	OrganizationID      *uint64 `gorm:"index" json:"organization_id"`
	OrganizationName    string  `gorm:"type:varchar(255)" json:"organization_name"`
	OnboardingCompleted bool    `gorm:"not null;default:false" json:"onboarding_completed"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// DisplayName returns the name shown in history entries.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	if u.Email != "" {
		return u.Email
	}
	return "Unknown User"
}
