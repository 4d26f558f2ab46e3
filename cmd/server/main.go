package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/config"
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/handlers"
	"github.com/yukikurage/taskflow-api/internal/logger"
	"github.com/yukikurage/taskflow-api/internal/notify"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	appLog, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = appLog.Sync() }()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg, appLog); err != nil {
		appLog.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	db := database.GetDB()
	if err := database.Migrate(db, appLog); err != nil {
		appLog.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Realtime chat events go through redis pub/sub when it is reachable
	var notifier notify.Notifier = notify.NopNotifier{}
	if rn, err := notify.NewRedisNotifier(cfg.RedisAddr(), cfg.RedisPassword, appLog); err != nil {
		appLog.Warn("Redis pub/sub unavailable, realtime chat events disabled", zap.Error(err))
	} else {
		notifier = rn
	}
	defer func() { _ = notifier.Close() }()

	// Setup session middleware with Redis
	store, err := redisStore.NewStore(
		10,                        // Redis pool size
		"tcp",                     // network type
		cfg.RedisAddr(),           // Redis address from config
		"",                        // username (empty for default user)
		cfg.RedisPassword,         // password
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		appLog.Fatal("Failed to create Redis store", zap.Error(err))
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	// Initialize AI service
	var drafter services.TaskDrafter
	if cfg.OpenAIAPIKey != "" {
		drafter = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	memberRepo := repository.NewTeamMemberRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	reportRepo := repository.NewReportRepository(db)
	chatRepo := repository.NewChatRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	resolver := access.NewResolver(orgRepo)
	authz := access.NewAuthorizer(memberRepo, appLog)

	svc := handlers.Services{
		Auth:          services.NewAuthService(userRepo, resolver),
		Organizations: services.NewOrganizationService(orgRepo),
		Team:          services.NewTeamService(memberRepo, roleRepo),
		Projects:      services.NewProjectService(projectRepo, memberRepo),
		Tasks:         services.NewTaskService(taskRepo, projectRepo, memberRepo, authz, drafter, cfg.UploadDir, appLog),
		Reports:       services.NewReportService(reportRepo, appLog),
		Chat:          services.NewChatService(chatRepo, memberRepo, notifier, appLog),
		Calendar:      services.NewCalendarService(calendarRepo, memberRepo),
		Invitations:   services.NewInvitationService(invitationRepo, userRepo, memberRepo, roleRepo, services.NewLogMailer(appLog), appLog),
		Resolver:      resolver,
		Authorizer:    authz,
	}

	r := handlers.NewRouter(svc, store, appLog)

	// Start server
	appLog.Info("Server starting", zap.String("addr", cfg.HTTPAddr))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		appLog.Fatal("Failed to start server", zap.Error(err))
	}
}
