package models

import "time"

type Invitation struct {
	ID             uint64     `gorm:"primarykey" json:"id"`
	OrganizationID uint64     `gorm:"not null;index" json:"organization_id"`
	Email          string     `gorm:"type:varchar(255);not null" json:"email"`
	Name           string     `gorm:"type:varchar(255)" json:"name"`
	TitleID        *uint64    `json:"title_id"`
	RoleID         *uint64    `json:"role_id"`
	Token          string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	InvitedByID    uint64     `gorm:"not null" json:"invited_by_id"`
	Accepted       bool       `gorm:"not null;default:false" json:"accepted"`
	AcceptedByID   *uint64    `json:"accepted_by_id"`
	AcceptedAt     *time.Time `json:"accepted_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

// Expired reports whether the invitation can no longer be accepted at now.
func (i Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
