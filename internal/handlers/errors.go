package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/constants"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/reports"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/workflow"
)

var notFoundErrors = []error{
	services.ErrTaskNotFound,
	services.ErrProjectNotFound,
	services.ErrTeamMemberNotFound,
	services.ErrTitleNotFound,
	services.ErrRoleNotFound,
	services.ErrReportConfigNotFound,
	services.ErrConversationNotFound,
	services.ErrMessageNotFound,
	services.ErrParticipantNotFound,
	services.ErrEventNotFound,
	services.ErrInvitationNotFound,
	services.ErrOrganizationNotFound,
	services.ErrUserNotFound,
}

var badRequestErrors = []error{
	services.ErrInvalidTaskFilter,
	services.ErrInvalidProjectStatus,
	services.ErrInvalidProjectDates,
	services.ErrMemberNotInOrg,
	services.ErrNameRequired,
	services.ErrUnknownPermission,
	services.ErrInvalidReportType,
	services.ErrParticipantsOutside,
	services.ErrEmptyMessage,
	services.ErrEmptyReaction,
	services.ErrTitleRequired,
	services.ErrInvalidEventTimes,
	services.ErrInvalidEventType,
	services.ErrInvalidResponse,
	services.ErrInvalidRange,
	services.ErrInvitationExpired,
	services.ErrPasswordRequired,
	services.ErrNoInvitations,
	services.ErrInvalidEmail,
	services.ErrInvalidOrganizationName,
	services.ErrAINoTasksGenerated,
	services.ErrAINoValidTasks,
}

var conflictErrors = []error{
	services.ErrTeamMemberEmailTaken,
	services.ErrNameTaken,
	services.ErrReportConfigNameUsed,
	services.ErrAlreadyMember,
	services.ErrEmailTaken,
}

var forbiddenErrors = []error{
	services.ErrDelegationDenied,
	services.ErrNotEventCreator,
	services.ErrNotAttendee,
	services.ErrNotOrganizationOwner,
}

func matches(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError maps a service error onto an API error response. Unknown
// errors are attached to the context for the request logger and answered
// with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	var validation *workflow.ValidationError
	var param *reports.ParamError

	switch {
	case errors.As(err, &validation):
		apierrors.BadRequestWithDetails(c, validation.Message, validation.Details())
	case errors.As(err, &param):
		apierrors.BadRequestWithDetails(c, param.Message, map[string]string{param.Field: param.Message})
	case errors.Is(err, access.ErrNoOrganization):
		apierrors.NoOrganization(c)
	case errors.Is(err, services.ErrFileTooLarge):
		apierrors.BadRequest(c, fmt.Sprintf("File exceeds the %d MB upload limit", constants.MaxUploadSizeBytes>>20))
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")
	case matches(err, notFoundErrors):
		apierrors.NotFound(c, capitalize(err.Error()))
	case matches(err, badRequestErrors):
		apierrors.BadRequest(c, capitalize(err.Error()))
	case matches(err, conflictErrors):
		apierrors.Conflict(c, capitalize(err.Error()))
	case matches(err, forbiddenErrors):
		apierrors.Forbidden(c, capitalize(err.Error()))
	default:
		_ = c.Error(err)
		apierrors.InternalError(c, fallback)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// principal returns the principal set by the tenant middleware.
func principal(c *gin.Context) (*access.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return nil, false
	}
	return p, true
}

// organizationID returns the principal's concrete organization. Unscoped
// staff tenants have none and get NO_ORGANIZATION.
func organizationID(c *gin.Context) (uint64, bool) {
	p, ok := principal(c)
	if !ok {
		return 0, false
	}
	id, err := p.Tenant.OrganizationID()
	if err != nil {
		apierrors.NoOrganization(c)
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return false
	}
	return true
}
