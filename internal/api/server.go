package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
	"github.com/health-triage-server/internal/feedback"
	"github.com/health-triage-server/internal/middleware"
	"github.com/health-triage-server/internal/service"
)

// StatsCollector aggregates platform-wide numbers for the admin dashboard.
type StatsCollector interface {
	Collect(ctx context.Context) (*domain.AdminStats, error)
}

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	Config        *domain.Config
	Logger        *logrus.Logger
	Pipeline      *service.PredictionPipeline
	Notifier      *service.NotificationGenerator
	Generator     domain.TextGenerator
	Predictions   domain.PredictionStore
	Notifications domain.NotificationStore
	Users         domain.UserStore
	Feedback      feedback.Store
	Stats         StatsCollector
	Health        func(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	deps   Dependencies
	router *gin.Engine
	server *http.Server
	hub    *notificationHub
}

// NewServer creates a new HTTP server instance
func NewServer(deps Dependencies) *Server {
	// Set Gin mode based on environment
	if deps.Config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS([]string{"*"}))
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestTimeout(60 * time.Second))
	router.Use(middleware.RequestLogger(deps.Logger))

	server := &Server{
		deps:   deps,
		router: router,
		hub:    newNotificationHub(deps.Logger),
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router exposes the configured engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server and blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.deps.Config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.deps.Logger.WithField("addr", addr).Info("HTTP server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.hub.closeAll()
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.Use(middleware.Identity(s.deps.Users, s.deps.Logger))
	{
		predictions := api.Group("/predictions")
		{
			predictions.POST("/predict", s.handlePredict)
			predictions.GET("/history", s.handleHistory)
			predictions.POST("/feedback", s.handleFeedback)
			predictions.GET("/:id", s.handleGetPrediction)
		}

		api.GET("/symptoms", s.handleSymptoms)
		api.GET("/profile", s.handleGetProfile)
		api.PUT("/profile", s.handleUpdateProfile)
		api.POST("/chat", s.handleChat)

		notifications := api.Group("/notifications")
		{
			notifications.GET("", s.handleListNotifications)
			notifications.GET("/stats", s.handleNotificationStats)
			notifications.GET("/stream", s.handleNotificationStream)
			notifications.POST("/personalized", s.handlePersonalizedNotification)
			notifications.PATCH("/read-all", s.handleMarkAllRead)
			notifications.PATCH("/:id/read", s.handleMarkRead)
			notifications.DELETE("/:id", s.handleDeleteNotification)

			admin := notifications.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.POST("/create", s.handleAdminCreateNotification)
				admin.GET("/users", s.handleAdminListUsers)
				admin.POST("/broadcast-ai", s.handleAdminBroadcastAI)
			}
		}

		adminAPI := api.Group("/admin")
		adminAPI.Use(middleware.RequireAdmin())
		{
			adminAPI.GET("/stats", s.handleAdminStats)
		}
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
