// backend/cmd/server/main.go
package main

import (
	"log"
	"os"

	"github.com/bubblesight/backend/internal/api/handlers"
	"github.com/bubblesight/backend/internal/classifier"
	"github.com/bubblesight/backend/internal/config"
	"github.com/bubblesight/backend/internal/database"
	"github.com/bubblesight/backend/internal/health"
	"github.com/bubblesight/backend/internal/inference"
	"github.com/bubblesight/backend/internal/middleware"
	"github.com/bubblesight/backend/internal/migration"
	"github.com/bubblesight/backend/internal/repository"
	"github.com/bubblesight/backend/internal/services"
	"github.com/bubblesight/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	// Initialize logger
	logger := utils.GetLogger()
	logger.Info("Starting feedback bubbles API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := cfg.ValidateInference(); err != nil {
		logger.WithError(err).Fatal("Inference configuration validation failed")
	}

	// Initialize database and cache
	dbConfig := &database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}

	dbManager, err := database.NewManager(dbConfig, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	// Run migrations
	migrationRunner := migration.NewRunner(dbManager, logger)
	if err := migrationRunner.RunMigrations("migrations"); err != nil {
		logger.WithError(err).Fatal("Database migrations failed")
	}

	// Wire up the pipeline
	repoManager := repository.NewRepositoryManager(dbManager.DB)
	cache := database.NewCache(dbManager.Redis, logger)

	inferenceClient := inference.NewClient(
		cfg.Inference.BaseURL,
		cfg.Inference.APIKey,
		cfg.Inference.Model,
		logger,
	)
	classifierService := classifier.NewService(inferenceClient, cfg.Inference.MaxTokens, logger)
	ingestService := services.NewIngestService(classifierService, repoManager.Feedback, repoManager.Bubble, cache, logger)

	feedbackHandler := handlers.NewFeedbackHandler(ingestService, repoManager, cache, logger)
	healthChecker := health.NewHealthChecker(dbManager, logger, cfg.Inference.BaseURL)

	// Router setup
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.NewRateLimiter(120).RateLimit())

	api := router.Group("/api")
	{
		api.GET("/health", healthChecker.HandleHealth)
		api.POST("/feedback", feedbackHandler.HandleSubmit)
		api.POST("/feedback/batch", feedbackHandler.HandleBatch)
		api.GET("/feedback", feedbackHandler.HandleFeedbackList)
		api.GET("/bubbles", feedbackHandler.HandleBubbles)
		api.GET("/stats", feedbackHandler.HandleStats)
		api.DELETE("/reset", feedbackHandler.HandleReset)
	}

	logger.WithField("port", cfg.Server.Port).Info("Server listening")
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}
