package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/logger"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Auth          *services.AuthService
	Organizations *services.OrganizationService
	Team          *services.TeamService
	Projects      *services.ProjectService
	Tasks         *services.TaskService
	Reports       *services.ReportService
	Chat          *services.ChatService
	Calendar      *services.CalendarService
	Invitations   *services.InvitationService

	Resolver   *access.Resolver
	Authorizer *access.Authorizer
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(svc Services, store sessions.Store, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(log))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	authHandler := NewAuthHandler(svc.Auth)
	orgHandler := NewOrganizationHandler(svc.Organizations)
	teamHandler := NewTeamHandler(svc.Team)
	projectHandler := NewProjectHandler(svc.Projects)
	taskHandler := NewTaskHandler(svc.Tasks)
	reportHandler := NewReportHandler(svc.Reports)
	chatHandler := NewChatHandler(svc.Chat)
	calendarHandler := NewCalendarHandler(svc.Calendar)
	invitationHandler := NewInvitationHandler(svc.Invitations)

	authz := svc.Authorizer
	can := func(code models.PermissionCode) gin.HandlerFunc {
		return middleware.RequirePermission(authz, code)
	}
	taskAccess := middleware.RequireTaskAccess(svc.Tasks)
	projectAccess := middleware.RequireProjectAccess(svc.Projects)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "TaskFlow API is running",
		})
	})

	api := r.Group("/api")

	// Auth routes (public)
	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
	}

	// Invitation acceptance is anonymous
	api.GET("/invitations/accept/:token", invitationHandler.Check)
	api.POST("/invitations/accept/:token", invitationHandler.Accept)

	// Routes that also serve users without an organization
	setup := api.Group("")
	setup.Use(middleware.RequireAuth(), middleware.LoadPrincipal(svc.Auth, svc.Resolver, authz, log))
	{
		setup.GET("/onboarding/status", authHandler.OnboardingStatus)
		setup.POST("/onboarding/complete", authHandler.CompleteOnboarding)

		setup.POST("/organizations", orgHandler.CreateOrganization)
		setup.GET("/organizations", orgHandler.ListOrganizations)
		setup.GET("/organizations/:id", orgHandler.GetOrganization)
		setup.PUT("/organizations/:id", orgHandler.UpdateOrganization)
		setup.DELETE("/organizations/:id", orgHandler.DeleteOrganization)
	}

	tenant := api.Group("")
	tenant.Use(middleware.RequireAuth(), middleware.RequireTenant(svc.Auth, svc.Resolver, authz, log))

	team := tenant.Group("")
	{
		team.GET("/team-members", teamHandler.ListMembers)
		team.GET("/team-members/:id", teamHandler.GetMember)
		team.POST("/team-members", can(models.PermManageUsers), teamHandler.CreateMember)
		team.PUT("/team-members/:id", can(models.PermManageUsers), teamHandler.UpdateMember)
		team.DELETE("/team-members/:id", can(models.PermManageUsers), teamHandler.DeleteMember)

		team.GET("/titles", teamHandler.ListTitles)
		team.POST("/titles", can(models.PermManageRoles), teamHandler.CreateTitle)
		team.PUT("/titles/:id", can(models.PermManageRoles), teamHandler.UpdateTitle)
		team.DELETE("/titles/:id", can(models.PermManageRoles), teamHandler.DeleteTitle)

		team.GET("/roles", teamHandler.ListRoles)
		team.POST("/roles", can(models.PermManageRoles), teamHandler.CreateRole)
		team.PUT("/roles/:id", can(models.PermManageRoles), teamHandler.UpdateRole)
		team.DELETE("/roles/:id", can(models.PermManageRoles), teamHandler.DeleteRole)

		team.GET("/permissions", teamHandler.ListPermissions)
	}

	projects := tenant.Group("/projects")
	{
		projects.GET("", projectHandler.ListProjects)
		projects.POST("", can(models.PermCreateTasks), projectHandler.CreateProject)
		projects.GET("/:id", projectAccess, projectHandler.GetProject)
		projects.PUT("/:id", can(models.PermUpdateTasks), projectAccess, projectHandler.UpdateProject)
		projects.DELETE("/:id", can(models.PermDeleteTasks), projectAccess, projectHandler.DeleteProject)
	}

	tasks := tenant.Group("/tasks")
	{
		tasks.GET("", taskHandler.ListTasks)
		tasks.POST("", can(models.PermCreateTasks), taskHandler.CreateTask)
		tasks.POST("/generate", can(models.PermCreateTasks), taskHandler.GenerateTasks)
		tasks.GET("/:id", taskAccess, taskHandler.GetTask)
		tasks.PATCH("/:id", can(models.PermUpdateTasks), taskAccess, taskHandler.UpdateTask)
		tasks.DELETE("/:id", can(models.PermDeleteTasks), taskAccess, taskHandler.DeleteTask)
		tasks.POST("/:id/assign", can(models.PermAssignTasks), taskAccess, taskHandler.AssignTask)
		tasks.POST("/:id/delegate", taskAccess, taskHandler.DelegateTask)
		tasks.POST("/:id/approve", can(models.PermApproveTasks), taskAccess, taskHandler.ApproveTask)
		tasks.POST("/:id/reject", can(models.PermRejectTasks), taskAccess, taskHandler.RejectTask)
		tasks.POST("/:id/comments", can(models.PermComment), taskAccess, taskHandler.AddComment)
		tasks.GET("/:id/comments", can(models.PermComment), taskAccess, taskHandler.ListComments)
		tasks.POST("/:id/attachments", taskAccess, taskHandler.AddAttachment)
		tasks.POST("/:id/time", taskAccess, taskHandler.AddTime)
		tasks.GET("/:id/history", taskAccess, taskHandler.ListHistory)
	}

	reportRoutes := tenant.Group("/reports", can(models.PermViewReports))
	{
		reportRoutes.POST("/project-status", reportHandler.Generate(models.ReportProjectStatus))
		reportRoutes.POST("/team-productivity", reportHandler.Generate(models.ReportTeamProductivity))
		reportRoutes.POST("/task-completion", reportHandler.Generate(models.ReportTaskCompletion))
		reportRoutes.POST("/time-tracking", reportHandler.Generate(models.ReportTimeTracking))
		reportRoutes.POST("/overdue-tasks", reportHandler.Generate(models.ReportOverdueTasks))

		reportRoutes.GET("/configurations", reportHandler.ListConfigurations)
		reportRoutes.POST("/configurations", reportHandler.CreateConfiguration)
		reportRoutes.GET("/configurations/:id", reportHandler.GetConfiguration)
		reportRoutes.PUT("/configurations/:id", reportHandler.UpdateConfiguration)
		reportRoutes.DELETE("/configurations/:id", reportHandler.DeleteConfiguration)
		reportRoutes.POST("/configurations/:id/generate", reportHandler.GenerateConfiguration)
	}

	conversations := tenant.Group("/conversations")
	{
		conversations.GET("", chatHandler.ListConversations)
		conversations.POST("", chatHandler.CreateConversation)
		conversations.GET("/:id", chatHandler.GetConversation)
		conversations.POST("/:id/participants", chatHandler.AddParticipant)
		conversations.DELETE("/:id/participants/:user_id", chatHandler.RemoveParticipant)
		conversations.GET("/:id/messages", chatHandler.ListMessages)
		conversations.POST("/:id/messages", chatHandler.SendMessage)
		conversations.POST("/:id/typing", chatHandler.Typing)
		conversations.GET("/:id/events", chatHandler.Events)
	}

	messages := tenant.Group("/messages")
	{
		messages.GET("/saved", chatHandler.ListSaved)
		messages.POST("/:id/read", chatHandler.MarkRead())
		messages.POST("/:id/react", chatHandler.React)
		messages.POST("/:id/pin", chatHandler.Pin())
		messages.POST("/:id/unpin", chatHandler.Unpin())
		messages.POST("/:id/save", chatHandler.Save())
		messages.POST("/:id/unsave", chatHandler.Unsave())
	}

	calendar := tenant.Group("/calendar/events")
	{
		calendar.GET("", calendarHandler.ListEvents)
		calendar.POST("", calendarHandler.CreateEvent)
		calendar.GET("/upcoming", calendarHandler.Upcoming)
		calendar.GET("/range", calendarHandler.Range)
		calendar.GET("/:id", calendarHandler.GetEvent)
		calendar.PUT("/:id", calendarHandler.UpdateEvent)
		calendar.DELETE("/:id", calendarHandler.DeleteEvent)
		calendar.POST("/:id/respond", calendarHandler.Respond)
	}

	invitations := tenant.Group("/invitations", can(models.PermManageUsers))
	{
		invitations.GET("", invitationHandler.ListPending)
		invitations.POST("", invitationHandler.Invite)
		invitations.POST("/:id/resend", invitationHandler.Resend)
		invitations.DELETE("/:id", invitationHandler.Delete)
	}

	return r
}
