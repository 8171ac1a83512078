package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/hoshifuri/topic-assign-api/internal/config"
	"github.com/hoshifuri/topic-assign-api/internal/database"
	"github.com/hoshifuri/topic-assign-api/internal/events"
	"github.com/hoshifuri/topic-assign-api/internal/handlers"
	"github.com/hoshifuri/topic-assign-api/internal/jobs"
	"github.com/hoshifuri/topic-assign-api/internal/logging"
	"github.com/hoshifuri/topic-assign-api/internal/middleware"
	"github.com/hoshifuri/topic-assign-api/internal/notify"
	"github.com/hoshifuri/topic-assign-api/internal/repository"
	"github.com/hoshifuri/topic-assign-api/internal/services"
	"github.com/hoshifuri/topic-assign-api/internal/settings"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Engine settings
	engineSettings := settings.Load(cfg)

	// Redis backs both the session store and the tracking-state publisher
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	rdb := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	tracking := notify.NewRedisTrackingPublisher(rdb)

	// RabbitMQ backs the notification and webhook queues
	queues, err := notify.NewAMQPQueues(cfg.AMQPURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer queues.Close()

	// Repositories
	db := database.GetDB()
	assignmentRepo := repository.NewAssignmentRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	actionRepo := repository.NewActionRepository(db)

	// Services
	authService := services.NewAuthService(userRepo)
	eligibility := services.NewEligibilityService(engineSettings, groupRepo)
	assigner := services.NewAssignerService(
		assignmentRepo, topicRepo, userRepo, groupRepo,
		eligibility, engineSettings, queues, queues, tracking, logger,
	)
	distributor := services.NewDistributorService(groupRepo, actionRepo, logger, nil)
	reminders := services.NewReminderService(assignmentRepo, userRepo, queues, cfg.ReminderMaxPerSweep, logger)

	// Event bus + lifecycle trigger
	bus := events.NewBus(logger)
	trigger := events.NewTrigger(
		assigner, eligibility, assignmentRepo, topicRepo,
		userRepo, groupRepo, engineSettings, tracking, logger,
	)
	trigger.Register(bus)

	// Background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reminderJob := jobs.NewReminderJob(reminders,
		time.Duration(cfg.ReminderSweepMinutes)*time.Minute, logger)
	go reminderJob.Run(ctx)

	randomAssignJob := jobs.NewRandomAssignJob(distributor, assigner, nil, logger)
	go randomAssignJob.Run(ctx)

	// Initialize Gin router
	r := gin.Default()

	store, err := redisStore.NewStore(
		10,
		"tcp",
		redisAddr,
		"",
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions("assign_session", store))
	r.Use(middleware.EligibilityCacheMiddleware())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	assignHandler := handlers.NewAssignHandler(assigner, eligibility, authService, userRepo, groupRepo)
	listHandler := handlers.NewListHandler(eligibility, authService, assignmentRepo, userRepo, groupRepo, engineSettings)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Topic Assign API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Profile (protected)
		api.PATCH("/profile", middleware.RequireAuth(), authHandler.UpdateProfile)

		// Assignment operations (protected, eligibility-gated)
		assign := api.Group("/assign")
		assign.Use(middleware.RequireAuth(), middleware.RequireCanAssign(eligibility, authService))
		{
			assign.PUT("/assign", assignHandler.Assign)
			assign.PUT("/unassign", assignHandler.Unassign)
			assign.PUT("/claim/:topic_id", assignHandler.Claim)
			assign.POST("/bulk", assignHandler.Bulk)
			assign.GET("/assignable-groups", assignHandler.AssignableGroups)
		}

		// Assigned topic lists (protected, eligibility-gated)
		topics := api.Group("/topics")
		topics.Use(middleware.RequireAuth(), middleware.RequireCanAssign(eligibility, authService))
		{
			topics.GET("/messages-assigned/:username", listHandler.MessagesAssigned)
			topics.GET("/group-topics-assigned/:groupname", listHandler.GroupTopicsAssigned)
			topics.GET("/group-assignment-count/:groupname", listHandler.GroupAssignmentCount)
		}

		// Assignment filter (public when assigns_public is on)
		api.GET("/topics/assigned", middleware.OptionalAuth(), listHandler.FilterTopics)
	}

	// Start server
	log.Println("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
