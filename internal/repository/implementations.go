package repository

import (
	"github.com/bubblesight/backend/internal/models"
	"gorm.io/gorm"
)

// FeedbackRepositoryImpl implements FeedbackRepository
type FeedbackRepositoryImpl struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) models.FeedbackRepository {
	return &FeedbackRepositoryImpl{db: db}
}

func (r *FeedbackRepositoryImpl) Create(feedback *models.Feedback) error {
	return r.db.Create(feedback).Error
}

func (r *FeedbackRepositoryImpl) GetRecent(category, source string, limit int) ([]models.Feedback, error) {
	var feedback []models.Feedback
	query := r.db.Order("created_at DESC").Limit(limit)

	if category != "" {
		query = query.Where("category = ?", category)
	}
	if source != "" {
		query = query.Where("source_type = ?", source)
	}

	err := query.Find(&feedback).Error
	return feedback, err
}

func (r *FeedbackRepositoryImpl) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&models.Feedback{}).Count(&count).Error
	return count, err
}

func (r *FeedbackRepositoryImpl) CountBySentiment(below, above float64) (int64, int64, error) {
	var negative, positive int64

	if err := r.db.Model(&models.Feedback{}).
		Where("sentiment_score < ?", below).
		Count(&negative).Error; err != nil {
		return 0, 0, err
	}

	if err := r.db.Model(&models.Feedback{}).
		Where("sentiment_score > ?", above).
		Count(&positive).Error; err != nil {
		return 0, 0, err
	}

	return negative, positive, nil
}

func (r *FeedbackRepositoryImpl) GetSourceStats() ([]models.SourceStat, error) {
	var stats []models.SourceStat
	err := r.db.Raw(`
		SELECT source_type, COUNT(*) as count, AVG(sentiment_score) as avg_sentiment
		FROM feedback
		GROUP BY source_type
	`).Scan(&stats).Error
	return stats, err
}

func (r *FeedbackRepositoryImpl) DeleteAll() error {
	return r.db.Exec(`DELETE FROM feedback`).Error
}

// BubbleRepositoryImpl implements BubbleRepository
type BubbleRepositoryImpl struct {
	db *gorm.DB
}

func NewBubbleRepository(db *gorm.DB) models.BubbleRepository {
	return &BubbleRepositoryImpl{db: db}
}

// Upsert folds one classified item into its category aggregate. The whole
// read-combine-write runs as a single statement so concurrent ingestions
// into the same category serialize inside Postgres; application code never
// does a separate read-then-write on bubbles.
//
// avg_sentiment is an unweighted running mean over item count. Weight is
// deliberately tracked as a separate reliability mass (total_weight) and
// does not enter the sentiment average; existing aggregates depend on this
// recurrence.
func (r *BubbleRepositoryImpl) Upsert(category string, weight, sentiment float64) error {
	return r.db.Exec(`
		INSERT INTO bubbles (category, total_weight, avg_sentiment, feedback_count, created_at, updated_at)
		VALUES (?, ?, ?, 1, NOW(), NOW())
		ON CONFLICT (category)
		DO UPDATE SET
			total_weight = bubbles.total_weight + EXCLUDED.total_weight,
			avg_sentiment = (bubbles.avg_sentiment * bubbles.feedback_count + EXCLUDED.avg_sentiment) / (bubbles.feedback_count + 1),
			feedback_count = bubbles.feedback_count + 1,
			updated_at = NOW()
	`, category, weight, sentiment).Error
}

func (r *BubbleRepositoryImpl) GetAll() ([]models.Bubble, error) {
	var bubbles []models.Bubble
	err := r.db.Order("total_weight DESC").Find(&bubbles).Error
	return bubbles, err
}

func (r *BubbleRepositoryImpl) GetByCategory(category string) (*models.Bubble, error) {
	var bubble models.Bubble
	err := r.db.Where("category = ?", category).First(&bubble).Error
	if err != nil {
		return nil, err
	}
	return &bubble, nil
}

func (r *BubbleRepositoryImpl) GetTopNegative(limit int) ([]models.Bubble, error) {
	var bubbles []models.Bubble
	err := r.db.Where("avg_sentiment < 0").
		Order("total_weight DESC").
		Limit(limit).
		Find(&bubbles).Error
	return bubbles, err
}

func (r *BubbleRepositoryImpl) GetTopPositive(limit int) ([]models.Bubble, error) {
	var bubbles []models.Bubble
	err := r.db.Where("avg_sentiment > 0").
		Order("total_weight DESC").
		Limit(limit).
		Find(&bubbles).Error
	return bubbles, err
}

func (r *BubbleRepositoryImpl) CountWithBuildIdeas() (int64, error) {
	var count int64
	err := r.db.Model(&models.Bubble{}).
		Where("build_ideas IS NOT NULL AND build_ideas != ''").
		Count(&count).Error
	return count, err
}

func (r *BubbleRepositoryImpl) DeleteAll() error {
	return r.db.Exec(`DELETE FROM bubbles`).Error
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	Feedback models.FeedbackRepository
	Bubble   models.BubbleRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		Feedback: NewFeedbackRepository(db),
		Bubble:   NewBubbleRepository(db),
	}
}
