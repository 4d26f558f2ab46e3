package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/constants"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
)

// UserLookup loads the session user.
type UserLookup interface {
	GetUser(id uint64) (*models.User, error)
}

// RequireTenant loads the session user, resolves its organization and
// stores an *access.Principal in the context. Must run after RequireAuth.
func RequireTenant(users UserLookup, resolver *access.Resolver, authz *access.Authorizer, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := loadPrincipal(c, users, resolver, authz, log)
		if !ok {
			return
		}
		if p.Tenant.Organization == nil && !p.Tenant.All {
			apierrors.NoOrganization(c)
			return
		}
		c.Set(constants.ContextKeyPrincipal, p)
		c.Next()
	}
}

// LoadPrincipal is RequireTenant for routes that also serve users without
// an organization, such as onboarding and organization setup.
func LoadPrincipal(users UserLookup, resolver *access.Resolver, authz *access.Authorizer, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := loadPrincipal(c, users, resolver, authz, log)
		if !ok {
			return
		}
		c.Set(constants.ContextKeyPrincipal, p)
		c.Next()
	}
}

func loadPrincipal(c *gin.Context, users UserLookup, resolver *access.Resolver, authz *access.Authorizer, log *zap.Logger) (*access.Principal, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return nil, false
	}

	user, err := users.GetUser(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			apierrors.Unauthorized(c, "")
			return nil, false
		}
		log.Error("Failed to load session user", zap.Uint64("user_id", userID), zap.Error(err))
		apierrors.InternalError(c, "")
		return nil, false
	}

	// A failed lookup never widens access: the request is refused as if
	// the user had no organization.
	tenant, err := resolver.Resolve(user)
	if err != nil && !errors.Is(err, access.ErrNoOrganization) {
		log.Error("Failed to resolve organization", zap.Uint64("user_id", userID), zap.Error(err))
		apierrors.NoOrganization(c)
		return nil, false
	}

	return &access.Principal{User: user, Tenant: tenant, Viewer: authz.Viewer(user, tenant)}, true
}

// GetPrincipal retrieves the principal stored by RequireTenant.
func GetPrincipal(c *gin.Context) (*access.Principal, bool) {
	v, exists := c.Get(constants.ContextKeyPrincipal)
	if !exists {
		return nil, false
	}
	p, ok := v.(*access.Principal)
	return p, ok
}

// RequirePermission rejects the request with 403 unless the principal
// holds code. Must run after RequireTenant.
func RequirePermission(authz *access.Authorizer, code models.PermissionCode) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}
		if !authz.Can(p.User, p.Tenant, code) {
			apierrors.Forbidden(c, "You do not have permission to perform this action")
			return
		}
		c.Next()
	}
}
