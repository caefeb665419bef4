// Package main runs the event platform HTTP server with WebSocket push and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teamrally/backend/config"
	"github.com/teamrally/backend/internal/auth"
	"github.com/teamrally/backend/internal/events"
	"github.com/teamrally/backend/internal/invitations"
	"github.com/teamrally/backend/internal/middleware"
	"github.com/teamrally/backend/internal/notifications"
	"github.com/teamrally/backend/internal/participants"
	"github.com/teamrally/backend/internal/realtime"
	"github.com/teamrally/backend/internal/teams"
	"github.com/teamrally/backend/pkg/database"
	"github.com/teamrally/backend/pkg/queue"
	"github.com/teamrally/backend/pkg/redis"
	"github.com/teamrally/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth / participants
	participantRepo := participants.NewRepository(pool)
	authHandler := auth.NewHandler(participantRepo, jwtService, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo)

	// Teams
	teamRepo := teams.NewRepository(pool)
	teamHandler := teams.NewHandler(teamRepo, logger)

	// Invitations (issuance, redemption, stats)
	invitationRepo := invitations.NewRepository(pool)
	invitationSvc := invitations.NewService(invitationRepo, invitationRepo, eventRepo, participantRepo, cfg.App.BaseURL, logger)
	invitationHandler := invitations.NewHandler(invitationSvc, logger)

	// Notifications (in-app rows, email jobs, websocket push)
	notificationRepo := notifications.NewRepository(pool)
	notificationSvc := notifications.NewService(notificationRepo, eventRepo, teamRepo, jobQueue, hub, logger)
	notificationHandler := notifications.NewHandler(notificationSvc, notificationRepo, logger)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public invitation surface: landing-page lookup and redemption.
	// Unauthenticated by design; this is how outsiders join.
	public := router.Group("/public")
	{
		public.GET("/invitation/:token", invitationHandler.GetByToken)
		public.POST("/register-with-invitation", invitationHandler.Redeem)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Events
		api.GET("/events", eventHandler.List)
		api.GET("/events/:id", eventHandler.GetByID)
		api.GET("/events/:id/teams", teamHandler.ListByEvent)

		// Notifications (own inbox)
		api.GET("/notifications", notificationHandler.ListMine)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)
	}

	// Admin API
	admin := router.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole("admin"))
	{
		admin.GET("/participants", authHandler.List)

		admin.POST("/events", eventHandler.Create)
		admin.PATCH("/events/:id", eventHandler.Update)
		admin.DELETE("/events/:id", eventHandler.Delete)

		admin.POST("/events/:id/teams", teamHandler.Create)
		admin.POST("/teams/:id/members", teamHandler.AddMember)

		admin.POST("/event-invitations", invitationHandler.Create)
		admin.PUT("/event-invitations/:id", invitationHandler.Update)
		admin.POST("/event-invitations/:id/activate", invitationHandler.Activate)
		admin.POST("/event-invitations/:id/deactivate", invitationHandler.Deactivate)
		admin.DELETE("/event-invitations/:id", invitationHandler.Delete)
		admin.GET("/event-invitations/:id/usages", invitationHandler.Usages)
		admin.GET("/events/:id/invitations", invitationHandler.ListByEvent)
		admin.GET("/events/:id/invitation-stats", invitationHandler.Stats)

		admin.POST("/events/:id/notifications", notificationHandler.Send)
		admin.GET("/events/:id/notification-emails", notificationHandler.ListEmails)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
