package access

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// ErrNoOrganization is returned when no strategy can place the user in an organization.
var ErrNoOrganization = errors.New("no organization found for user")

// Tenant is the organization a request acts within. All is set for staff
// accounts that have no organization of their own and may read every record.
type Tenant struct {
	Organization *models.Organization
	All          bool
}

// OrganizationID returns the tenant organization id, or ErrNoOrganization for
// an unscoped staff tenant. Writes always need a concrete organization.
func (t Tenant) OrganizationID() (uint64, error) {
	if t.Organization == nil {
		return 0, ErrNoOrganization
	}
	return t.Organization.ID, nil
}

// OwnedBy reports whether user owns the tenant organization.
func (t Tenant) OwnedBy(user *models.User) bool {
	return t.Organization != nil && user != nil && t.Organization.OwnerID == user.ID
}

// TenantStore is the organization lookup surface the resolver needs.
// Lookups return gorm.ErrRecordNotFound when nothing matches.
type TenantStore interface {
	FindByID(id uint64) (*models.Organization, error)
	FirstOwnedBy(userID uint64) (*models.Organization, error)
	FirstJoinedBy(userID uint64) (*models.Organization, error)
	FindByName(name string) (*models.Organization, error)
}

type strategy struct {
	name string
	find func(user *models.User) (*models.Organization, error)
}

// Resolver places a user in exactly one tenant. Every endpoint goes through it.
type Resolver struct {
	strategies []strategy
}

func NewResolver(store TenantStore) *Resolver {
	return &Resolver{
		strategies: []strategy{
			{"direct", func(u *models.User) (*models.Organization, error) {
				if u.OrganizationID == nil {
					return nil, gorm.ErrRecordNotFound
				}
				return store.FindByID(*u.OrganizationID)
			}},
			{"owned", func(u *models.User) (*models.Organization, error) {
				return store.FirstOwnedBy(u.ID)
			}},
			{"membership", func(u *models.User) (*models.Organization, error) {
				return store.FirstJoinedBy(u.ID)
			}},
			{"legacy name", func(u *models.User) (*models.Organization, error) {
				if u.OrganizationName == "" {
					return nil, gorm.ErrRecordNotFound
				}
				return store.FindByName(u.OrganizationName)
			}},
		},
	}
}

// Resolve runs the strategies in order and returns the first match. Staff
// accounts that match nothing get the unscoped tenant.
func (r *Resolver) Resolve(user *models.User) (Tenant, error) {
	if user == nil {
		return Tenant{}, ErrNoOrganization
	}

	for _, s := range r.strategies {
		org, err := s.find(user)
		if err == nil {
			return Tenant{Organization: org}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Tenant{}, fmt.Errorf("failed to resolve organization (%s): %w", s.name, err)
		}
	}

	if user.IsStaff {
		return Tenant{All: true}, nil
	}
	return Tenant{}, ErrNoOrganization
}
