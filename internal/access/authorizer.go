package access

import (
	"strings"

	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// MembershipStore loads the team members that represent a user inside an
// organization, with Title.Permissions and Role.Permissions preloaded.
type MembershipStore interface {
	FindMemberships(organizationID, userID uint64, email string) ([]models.TeamMember, error)
}

// Capabilities is the set of permission codes a user holds in a tenant.
type Capabilities map[models.PermissionCode]bool

// Has reports whether code is in the set.
func (c Capabilities) Has(code models.PermissionCode) bool {
	return c[code]
}

func allCapabilities() Capabilities {
	caps := Capabilities{}
	for _, p := range models.DefaultPermissions() {
		caps[p.Code] = true
	}
	return caps
}

// Authorizer answers permission questions. It never returns lookup failures
// to callers of Can: any failure is logged and treated as a deny.
type Authorizer struct {
	members MembershipStore
	log     *zap.Logger
}

func NewAuthorizer(members MembershipStore, log *zap.Logger) *Authorizer {
	return &Authorizer{members: members, log: log}
}

// Capabilities returns the union of the permissions attached to the user's
// team membership through both its Title and its Role. Owners hold everything.
func (a *Authorizer) Capabilities(user *models.User, tenant Tenant) (Capabilities, error) {
	if tenant.Organization == nil {
		return Capabilities{}, ErrNoOrganization
	}
	if tenant.OwnedBy(user) {
		return allCapabilities(), nil
	}

	members, err := a.members.FindMemberships(tenant.Organization.ID, user.ID, user.Email)
	if err != nil {
		return Capabilities{}, err
	}

	caps := Capabilities{}
	for _, m := range members {
		if m.Title != nil {
			for _, p := range m.Title.Permissions {
				caps[p.Code] = true
			}
		}
		if m.Role != nil {
			for _, p := range m.Role.Permissions {
				caps[p.Code] = true
			}
		}
	}
	return caps, nil
}

// Can reports whether user may perform the action guarded by code.
func (a *Authorizer) Can(user *models.User, tenant Tenant, code models.PermissionCode) bool {
	if user == nil {
		return false
	}

	caps, err := a.Capabilities(user, tenant)
	if err != nil {
		a.log.Warn("Permission lookup failed, denying",
			zap.Uint64("user_id", user.ID),
			zap.String("permission", string(code)),
			zap.Error(err),
		)
		return false
	}
	return caps.Has(code)
}

// CanDelegate reports whether user may hand task over to someone else: the
// current primary assignee may, and so may anyone holding assign_tasks.
// task.AssignedTo must be loaded.
func (a *Authorizer) CanDelegate(user *models.User, tenant Tenant, task *models.Task) bool {
	if user == nil || task == nil {
		return false
	}
	if task.AssignedTo != nil && user.Email != "" && strings.EqualFold(task.AssignedTo.Email, user.Email) {
		return true
	}
	return a.Can(user, tenant, models.PermAssignTasks)
}

// Viewer builds the read-side identity of user. A failed membership lookup
// leaves the viewer with only its own user id.
func (a *Authorizer) Viewer(user *models.User, tenant Tenant) Viewer {
	v := Viewer{UserID: user.ID}
	if tenant.All || tenant.OwnedBy(user) {
		v.Unrestricted = true
		return v
	}
	if tenant.Organization == nil {
		return v
	}

	members, err := a.members.FindMemberships(tenant.Organization.ID, user.ID, user.Email)
	if err != nil {
		a.log.Warn("Membership lookup failed, restricting visibility",
			zap.Uint64("user_id", user.ID),
			zap.Error(err),
		)
		return v
	}
	for _, m := range members {
		v.MemberIDs = append(v.MemberIDs, m.ID)
	}
	return v
}
