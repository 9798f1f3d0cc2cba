// backend/internal/services/ingest.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bubblesight/backend/internal/classifier"
	"github.com/bubblesight/backend/internal/database"
	"github.com/bubblesight/backend/internal/models"
	"github.com/bubblesight/backend/internal/sources"
	"github.com/bubblesight/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

// ErrMissingFields marks a client input error: no external call is made and
// nothing is written when it is returned.
var ErrMissingFields = errors.New("missing content or source_type")

// Classifier derives a category and sentiment from feedback text. It never
// fails; degraded classifications come back as the fallback result.
type Classifier interface {
	Classify(ctx context.Context, text string) classifier.Result
}

// IngestService runs the feedback pipeline: weight lookup, classification,
// record insert, bubble upsert. It holds no state between calls; all shared
// state lives in the store.
type IngestService struct {
	classifier Classifier
	feedback   models.FeedbackRepository
	bubbles    models.BubbleRepository
	cache      *database.Cache
	logger     *logrus.Logger
}

func NewIngestService(
	cls Classifier,
	feedback models.FeedbackRepository,
	bubbles models.BubbleRepository,
	cache *database.Cache,
	logger *logrus.Logger,
) *IngestService {
	return &IngestService{
		classifier: cls,
		feedback:   feedback,
		bubbles:    bubbles,
		cache:      cache,
		logger:     logger,
	}
}

// Ingest processes a single feedback item and returns the persisted record
// plus its classification. Classification failures degrade to the fallback
// result; storage failures abort the request, since a classification with
// no durable record would silently lose the signal.
func (s *IngestService) Ingest(ctx context.Context, content, sourceType string) (*models.IngestResponse, error) {
	if strings.TrimSpace(content) == "" || strings.TrimSpace(sourceType) == "" {
		return nil, ErrMissingFields
	}

	weight := sources.WeightOf(sourceType)
	result := s.classifier.Classify(ctx, content)

	record := &models.Feedback{
		Content:        content,
		SourceType:     sourceType,
		Category:       result.Category,
		SentimentScore: result.Sentiment,
		Weight:         weight,
	}

	if err := s.feedback.Create(record); err != nil {
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}

	if err := s.bubbles.Upsert(result.Category, weight, result.Sentiment); err != nil {
		// The record is already durable; surface the aggregate failure
		return nil, fmt.Errorf("failed to update bubble aggregate: %w", err)
	}

	s.invalidateAggregates(ctx)

	s.logger.WithFields(logrus.Fields{
		"id":        record.ID,
		"source":    sourceType,
		"category":  result.Category,
		"sentiment": result.Sentiment,
		"weight":    weight,
	}).Info("Feedback ingested")

	return &models.IngestResponse{
		Feedback: record,
		Analysis: models.Analysis{
			Category:  result.Category,
			Sentiment: result.Sentiment,
			Weight:    weight,
		},
	}, nil
}

// IngestBatch processes items strictly one at a time, in input order. Items
// missing content or source_type are silently skipped; any other per-item
// failure is logged and processing continues. Already-written items stay
// durable regardless of later failures.
func (s *IngestService) IngestBatch(ctx context.Context, items []models.FeedbackInput) *models.BatchResponse {
	results := make([]models.BatchItemResult, 0, len(items))

	for i, item := range items {
		if strings.TrimSpace(item.Content) == "" || strings.TrimSpace(item.SourceType) == "" {
			continue
		}

		response, err := s.Ingest(ctx, item.Content, item.SourceType)
		if err != nil {
			s.logger.WithError(err).WithField("item", i).Warn("Batch item failed, continuing")
			continue
		}

		results = append(results, models.BatchItemResult{
			Content:   utils.TruncateContent(item.Content, 50),
			Category:  response.Analysis.Category,
			Sentiment: response.Analysis.Sentiment,
			Weight:    response.Analysis.Weight,
		})
	}

	s.logger.WithFields(logrus.Fields{
		"submitted": len(items),
		"processed": len(results),
	}).Info("Batch ingestion completed")

	return &models.BatchResponse{
		Processed: len(results),
		Results:   results,
	}
}

// invalidateAggregates drops cached dashboard payloads. Cache is optional
// (nil in tests and offline tools); a failed invalidation only means a
// slightly stale dashboard until the TTL expires.
func (s *IngestService) invalidateAggregates(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAggregates(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate aggregate cache")
	}
}
