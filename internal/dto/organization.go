package dto

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID                  uint64  `json:"id"`
	Email               string  `json:"email"`
	Name                string  `json:"name"`
	IsStaff             bool    `json:"is_staff"`
	OrganizationID      *uint64 `json:"organization_id"`
	OnboardingCompleted bool    `json:"onboarding_completed"`
}

// UserSummaryDTO is the short form of a user embedded in other resources
type UserSummaryDTO struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Industry  string    `json:"industry"`
	Size      string    `json:"size"`
	OwnerID   uint64    `json:"owner_id"`
	IsOwner   bool      `json:"is_owner"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupingDTO is a title or role as embedded in a team member
type GroupingDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// TeamMemberDTO represents a team member in API responses
type TeamMemberDTO struct {
	ID     uint64       `json:"id"`
	Name   string       `json:"name"`
	Email  string       `json:"email"`
	UserID *uint64      `json:"user_id"`
	Title  *GroupingDTO `json:"title"`
	Role   *GroupingDTO `json:"role"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:                  user.ID,
		Email:               user.Email,
		Name:                user.Name,
		IsStaff:             user.IsStaff,
		OrganizationID:      user.OrganizationID,
		OnboardingCompleted: user.OnboardingCompleted,
	}
}

// ToUserSummaryDTO returns nil when the user was not preloaded
func ToUserSummaryDTO(user *models.User) *UserSummaryDTO {
	if user == nil || user.ID == 0 {
		return nil
	}
	return &UserSummaryDTO{ID: user.ID, Email: user.Email, Name: user.DisplayName()}
}

// ToOrganizationDTO converts an Organization model as seen by userID
func ToOrganizationDTO(org models.Organization, userID uint64) OrganizationDTO {
	return OrganizationDTO{
		ID:        org.ID,
		Name:      org.Name,
		Industry:  org.Industry,
		Size:      org.Size,
		OwnerID:   org.OwnerID,
		IsOwner:   org.OwnerID == userID,
		CreatedAt: org.CreatedAt,
	}
}

// ToOrganizationDTOs converts a slice of organizations
func ToOrganizationDTOs(orgs []models.Organization, userID uint64) []OrganizationDTO {
	out := make([]OrganizationDTO, len(orgs))
	for i, org := range orgs {
		out[i] = ToOrganizationDTO(org, userID)
	}
	return out
}

// ToTeamMemberDTO converts a TeamMember model to TeamMemberDTO
func ToTeamMemberDTO(member models.TeamMember) TeamMemberDTO {
	dto := TeamMemberDTO{
		ID:     member.ID,
		Name:   member.Name,
		Email:  member.Email,
		UserID: member.UserID,
	}
	if member.Title != nil {
		dto.Title = &GroupingDTO{ID: member.Title.ID, Name: member.Title.Name}
	}
	if member.Role != nil {
		dto.Role = &GroupingDTO{ID: member.Role.ID, Name: member.Role.Name}
	}
	return dto
}

// ToTeamMemberDTOs converts a slice of team members
func ToTeamMemberDTOs(members []models.TeamMember) []TeamMemberDTO {
	out := make([]TeamMemberDTO, len(members))
	for i, m := range members {
		out[i] = ToTeamMemberDTO(m)
	}
	return out
}
