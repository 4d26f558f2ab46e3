package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

var (
	ErrOrganizationNotFound    = errors.New("organization not found")
	ErrInvalidOrganizationName = errors.New("organization name cannot be empty")
	ErrNotOrganizationOwner    = errors.New("only the organization owner can perform this action")
)

// OrganizationService provides business logic for organization operations.
type OrganizationService struct {
	orgRepo repository.OrganizationRepository
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(orgRepo repository.OrganizationRepository) *OrganizationService {
	return &OrganizationService{
		orgRepo: orgRepo,
	}
}

// OrganizationInput represents the editable fields of an organization.
type OrganizationInput struct {
	Name     *string
	Industry *string
	Size     *string
}

// CreateOrganization creates an organization owned by owner. The owner
// becomes its first team member and it becomes the owner's organization.
func (s *OrganizationService) CreateOrganization(owner *models.User, input OrganizationInput) (*models.Organization, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, ErrInvalidOrganizationName
	}

	org := &models.Organization{Name: strings.TrimSpace(*input.Name)}
	if input.Industry != nil {
		org.Industry = *input.Industry
	}
	if input.Size != nil {
		org.Size = *input.Size
	}

	member := &models.TeamMember{
		Name:  owner.DisplayName(),
		Email: owner.Email,
	}

	if err := s.orgRepo.CreateWithOwner(org, owner, member); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	return org, nil
}

// ListOrganizationsForUser returns organizations the user owns or belongs to.
func (s *OrganizationService) ListOrganizationsForUser(userID uint64) ([]models.Organization, error) {
	orgs, err := s.orgRepo.ListForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// GetOrganization returns an organization the user owns or belongs to.
// Other organizations are reported as not found.
func (s *OrganizationService) GetOrganization(id, userID uint64) (*models.Organization, error) {
	orgs, err := s.ListOrganizationsForUser(userID)
	if err != nil {
		return nil, err
	}
	for i := range orgs {
		if orgs[i].ID == id {
			return &orgs[i], nil
		}
	}
	return nil, ErrOrganizationNotFound
}

func (s *OrganizationService) findOwned(id, userID uint64) (*models.Organization, error) {
	org, err := s.GetOrganization(id, userID)
	if err != nil {
		return nil, err
	}
	if org.OwnerID != userID {
		return nil, ErrNotOrganizationOwner
	}
	return org, nil
}

// UpdateOrganization updates an organization. Only the owner may.
func (s *OrganizationService) UpdateOrganization(id, userID uint64, input OrganizationInput) (*models.Organization, error) {
	org, err := s.findOwned(id, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidOrganizationName
		}
		org.Name = name
	}
	if input.Industry != nil {
		org.Industry = *input.Industry
	}
	if input.Size != nil {
		org.Size = *input.Size
	}

	if err := s.orgRepo.Update(org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return org, nil
}

// DeleteOrganization deletes an organization and everything it owns. Only the owner may.
func (s *OrganizationService) DeleteOrganization(id, userID uint64) error {
	if _, err := s.findOwned(id, userID); err != nil {
		return err
	}

	if err := s.orgRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	return nil
}
