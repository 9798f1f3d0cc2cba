// backend/cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bubblesight/backend/internal/classifier"
	"github.com/bubblesight/backend/internal/config"
	"github.com/bubblesight/backend/internal/database"
	"github.com/bubblesight/backend/internal/inference"
	"github.com/bubblesight/backend/internal/models"
	"github.com/bubblesight/backend/internal/repository"
	"github.com/bubblesight/backend/internal/services"
	"github.com/bubblesight/backend/internal/sources"
	"github.com/bubblesight/backend/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Demo feedback corpus covering all six channels and a spread of sentiment
var sampleFeedback = []models.FeedbackInput{
	{Content: "App crashes every time I try to save a large project. Lost two hours of work today.", SourceType: "ticket"},
	{Content: "Export to PDF silently drops embedded images when the file is over 10MB", SourceType: "github"},
	{Content: "honestly the new dark mode is gorgeous, whoever shipped that deserves a raise", SourceType: "discord"},
	{Content: "Search is unusable on large workspaces, takes 30+ seconds and often times out", SourceType: "forum"},
	{Content: "Your onboarding flow confused my whole team. Nobody could find the invite button.", SourceType: "email"},
	{Content: "switched from a competitor last month and the import tool handled everything perfectly", SourceType: "twitter"},
	{Content: "Billing charged me twice this month and support hasn't replied in four days", SourceType: "ticket"},
	{Content: "Keyboard shortcuts stopped working after the 2.3 update on Linux", SourceType: "github"},
	{Content: "would love an offline mode, train commutes are where I do most of my writing", SourceType: "forum"},
	{Content: "The mobile app is finally fast. Sync feels instant now. Great release!", SourceType: "twitter"},
	{Content: "why does the editor eat my clipboard every time I paste from excel", SourceType: "discord"},
	{Content: "Love the product overall but the pricing jump from Pro to Team is hard to justify", SourceType: "email"},
}

var (
	// Command line flags
	dryRun  = flag.Bool("dry-run", false, "Don't call the model or write to the database, just print what would be ingested")
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	limit   = flag.Int("limit", 0, "Limit number of items to ingest (0 = all)")
	delay   = flag.Duration("delay", 500*time.Millisecond, "Delay between items")
)

func main() {
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	// Initialize logger
	logger := utils.GetLogger()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	logger.Info("Starting feedback seeder...")

	items := sampleFeedback
	if *limit > 0 && *limit < len(items) {
		items = items[:*limit]
		logger.WithField("limit", *limit).Info("Limited items to ingest")
	}

	if *dryRun {
		for _, item := range items {
			logger.WithFields(logrus.Fields{
				"source":  item.SourceType,
				"weight":  sources.WeightOf(item.SourceType),
				"content": utils.TruncateContent(item.Content, 50),
			}).Info("DRY RUN: Would ingest feedback")
		}
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := cfg.ValidateInference(); err != nil {
		logger.WithError(err).Fatal("Inference configuration validation failed")
	}

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

	if err := dbManager.Migrate(); err != nil {
		logger.WithError(err).Fatal("Database migration failed")
	}

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

	ctx := context.Background()
	processed := 0
	var errs []error

	for i, item := range items {
		logger.WithFields(logrus.Fields{
			"source":   item.SourceType,
			"progress": fmt.Sprintf("%d/%d", i+1, len(items)),
		}).Info("Ingesting feedback")

		response, err := ingestService.Ingest(ctx, item.Content, item.SourceType)
		if err != nil {
			logger.WithError(err).WithField("item", i).Error("Failed to ingest item")
			errs = append(errs, fmt.Errorf("item %d: %w", i, err))
			continue
		}

		processed++
		logger.WithFields(logrus.Fields{
			"id":        response.Feedback.ID,
			"category":  response.Analysis.Category,
			"sentiment": response.Analysis.Sentiment,
			"weight":    response.Analysis.Weight,
		}).Info("Item ingested")

		time.Sleep(*delay)
	}

	logger.WithFields(logrus.Fields{
		"processed": processed,
		"errors":    len(errs),
	}).Info("Seeding completed")

	if len(errs) > 0 {
		for _, err := range errs {
			logger.WithError(err).Warn("Seeding error")
		}
	}
}
