// backend/internal/api/handlers/feedback.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bubblesight/backend/internal/database"
	"github.com/bubblesight/backend/internal/models"
	"github.com/bubblesight/backend/internal/repository"
	"github.com/bubblesight/backend/internal/services"
	"github.com/bubblesight/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const recentFeedbackLimit = 100

type FeedbackHandler struct {
	ingestService *services.IngestService
	repoManager   *repository.RepositoryManager
	cache         *database.Cache
	logger        *logrus.Logger
}

func NewFeedbackHandler(
	ingestService *services.IngestService,
	repoManager *repository.RepositoryManager,
	cache *database.Cache,
	logger *logrus.Logger,
) *FeedbackHandler {
	return &FeedbackHandler{
		ingestService: ingestService,
		repoManager:   repoManager,
		cache:         cache,
		logger:        logger,
	}
}

// HandleSubmit processes a single feedback submission
func (h *FeedbackHandler) HandleSubmit(c *gin.Context) {
	var req models.FeedbackInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Invalid feedback request")
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	response, err := h.ingestService.Ingest(ctx, req.Content, req.SourceType)
	if err != nil {
		if errors.Is(err, services.ErrMissingFields) {
			utils.ErrorResponse(c, http.StatusBadRequest, "Missing content or source_type", nil)
			return
		}
		h.logger.WithError(err).Error("Failed to process feedback")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to process feedback", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Feedback processed", response)
}

// HandleBatch processes an array of feedback submissions. Invalid items are
// skipped; the response reports how many were actually processed.
func (h *FeedbackHandler) HandleBatch(c *gin.Context) {
	var items []models.FeedbackInput
	if err := c.ShouldBindJSON(&items); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Expected array of feedback items", err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	response := h.ingestService.IngestBatch(ctx, items)

	utils.SuccessResponse(c, http.StatusOK, "Batch processed", response)
}

// HandleBubbles returns all category aggregates for the bubble UI, ordered
// by total weight
func (h *FeedbackHandler) HandleBubbles(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if h.cache != nil {
		if bubbles, err := h.cache.GetCachedBubbles(ctx); err == nil {
			h.logger.Debug("Bubbles served from cache")
			utils.SuccessResponse(c, http.StatusOK, "Bubbles retrieved", bubbles)
			return
		}
	}

	bubbles, err := h.repoManager.Bubble.GetAll()
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch bubbles")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch bubbles", err)
		return
	}

	if h.cache != nil {
		if err := h.cache.CacheBubbles(ctx, bubbles); err != nil {
			h.logger.WithError(err).Warn("Failed to cache bubbles")
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "Bubbles retrieved", bubbles)
}

// HandleFeedbackList returns recent feedback with optional category/source
// filters
func (h *FeedbackHandler) HandleFeedbackList(c *gin.Context) {
	category := c.Query("category")
	source := c.Query("source")

	feedback, err := h.repoManager.Feedback.GetRecent(category, source, recentFeedbackLimit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch feedback")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch feedback", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Feedback retrieved", feedback)
}

// HandleStats returns overview statistics for the dashboard
func (h *FeedbackHandler) HandleStats(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if h.cache != nil {
		if stats, err := h.cache.GetCachedStats(ctx); err == nil {
			h.logger.Debug("Stats served from cache")
			utils.SuccessResponse(c, http.StatusOK, "Stats retrieved", stats)
			return
		}
	}

	stats, err := h.collectStats()
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch stats")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch stats", err)
		return
	}

	if h.cache != nil {
		if err := h.cache.CacheStats(ctx, stats); err != nil {
			h.logger.WithError(err).Warn("Failed to cache stats")
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "Stats retrieved", stats)
}

func (h *FeedbackHandler) collectStats() (*models.StatsResponse, error) {
	total, err := h.repoManager.Feedback.CountAll()
	if err != nil {
		return nil, err
	}

	// Sentiment is neutral inside [-0.2, 0.2]; only clear signal is counted
	negative, positive, err := h.repoManager.Feedback.CountBySentiment(-0.2, 0.2)
	if err != nil {
		return nil, err
	}

	actionSuggestions, err := h.repoManager.Bubble.CountWithBuildIdeas()
	if err != nil {
		return nil, err
	}

	bySource, err := h.repoManager.Feedback.GetSourceStats()
	if err != nil {
		return nil, err
	}

	topPainPoints, err := h.repoManager.Bubble.GetTopNegative(5)
	if err != nil {
		return nil, err
	}

	topPraise, err := h.repoManager.Bubble.GetTopPositive(5)
	if err != nil {
		return nil, err
	}

	return &models.StatsResponse{
		TotalFeedback:         total,
		NegativeFeedbackCount: negative,
		PositiveFeedbackCount: positive,
		ActionSuggestions:     actionSuggestions,
		BySource:              bySource,
		TopPainPoints:         topPainPoints,
		TopPraise:             topPraise,
	}, nil
}

// HandleReset wipes both tables. Demo/admin surface, not part of the
// ingestion pipeline.
func (h *FeedbackHandler) HandleReset(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.repoManager.Feedback.DeleteAll(); err != nil {
		h.logger.WithError(err).Error("Failed to reset feedback table")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to reset", err)
		return
	}

	if err := h.repoManager.Bubble.DeleteAll(); err != nil {
		h.logger.WithError(err).Error("Failed to reset bubbles table")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to reset", err)
		return
	}

	if h.cache != nil {
		if err := h.cache.InvalidateAggregates(ctx); err != nil {
			h.logger.WithError(err).Warn("Failed to invalidate aggregate cache after reset")
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "Database reset", nil)
}

func (h *FeedbackHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 30*time.Second)
}
