package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/health-triage-server/internal/api"
	"github.com/health-triage-server/internal/config"
	"github.com/health-triage-server/internal/database"
	"github.com/health-triage-server/internal/feedback"
	"github.com/health-triage-server/internal/repository"
	"github.com/health-triage-server/internal/service"
	"github.com/health-triage-server/pkg/gateway"
)

func main() {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := configManager.NewLogger()
	logger.Infof("Starting health triage server on %s:%d", cfg.Server.Host, cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner, err := database.NewMigrationRunner(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to create migration runner: %v", err)
	}
	if err := runner.Up(); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	runner.Close()

	// Stores
	predictions := repository.NewPredictionRepository(db.Pool, logger)
	notifications := repository.NewNotificationRepository(db.Pool, logger)
	users := repository.NewUserRepository(db.Pool, logger)
	stats := repository.NewStatsRepository(db.Pool, logger)

	feedbackStore, err := feedback.NewPostgresStoreFromURL(database.URL(&cfg.Database))
	if err != nil {
		logger.Fatalf("Failed to open feedback store: %v", err)
	}
	defer feedbackStore.Close()

	// Text-generation gateway
	var cache gateway.ResponseCache
	if cfg.Cache.RedisURL != "" {
		redisCache, err := gateway.NewRedisCache(cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			logger.Warnf("Redis cache unavailable, using in-process cache: %v", err)
			cache = gateway.NewMemoryCache(cfg.Cache.MaxSize, cfg.Cache.TTL)
		} else {
			cache = redisCache
		}
	} else {
		cache = gateway.NewMemoryCache(cfg.Cache.MaxSize, cfg.Cache.TTL)
	}

	client := gateway.NewClient(&cfg.Gateway, logger)
	generator := gateway.NewResilientClient(client, cache, logger)

	// Services
	classifier := service.NewSymptomClassifier(logger)
	advisor := service.NewDosageAdvisor(generator, logger)
	analyzer := service.NewFreeTextAnalyzer(generator, logger)
	retention := service.NewRetentionPolicy(predictions, cfg.Retention.MaxPredictionsPerUser, logger)
	pipeline := service.NewPredictionPipeline(classifier, advisor, analyzer, predictions, retention, logger)
	notifier := service.NewNotificationGenerator(predictions, feedbackStore, notifications, users, generator, logger)

	server := api.NewServer(api.Dependencies{
		Config:        cfg,
		Logger:        logger,
		Pipeline:      pipeline,
		Notifier:      notifier,
		Generator:     generator,
		Predictions:   predictions,
		Notifications: notifications,
		Users:         users,
		Feedback:      feedbackStore,
		Stats:         stats,
		Health:        db.Health,
	})

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}
