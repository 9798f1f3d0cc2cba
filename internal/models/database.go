package models

// GORM models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Known feedback channels. Unknown channels are still accepted and ingested
// with the neutral default weight.
const (
	SourceTicket  = "ticket"
	SourceGithub  = "github"
	SourceDiscord = "discord"
	SourceForum   = "forum"
	SourceTwitter = "twitter"
	SourceEmail   = "email"
)

// Feedback represents one submitted feedback item. Rows are immutable once
// written; only the bulk reset endpoint ever removes them.
type Feedback struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Content        string    `json:"content" gorm:"not null"`
	SourceType     string    `json:"source_type" gorm:"not null;index"`
	Category       string    `json:"category" gorm:"index"`
	SentimentScore float64   `json:"sentiment_score"`
	Weight         float64   `json:"weight"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

// Bubble is the per-category rolling aggregate behind the dashboard's
// bubble view. One row per distinct category, unique on category.
// ActionSummary and BuildIdeas are analyst-authored; the ingestion path
// only ever reads them.
type Bubble struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Category      string    `json:"category" gorm:"unique;not null"`
	TotalWeight   float64   `json:"total_weight"`
	AvgSentiment  float64   `json:"avg_sentiment"`
	FeedbackCount int       `json:"feedback_count"`
	ActionSummary string    `json:"action_summary"`
	BuildIdeas    string    `json:"build_ideas"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SourceStat is one row of the per-source breakdown in /api/stats
type SourceStat struct {
	SourceType   string  `json:"source_type"`
	Count        int     `json:"count"`
	AvgSentiment float64 `json:"avg_sentiment"`
}

// Database interfaces for repository pattern
type FeedbackRepository interface {
	Create(feedback *Feedback) error
	GetRecent(category, source string, limit int) ([]Feedback, error)
	CountAll() (int64, error)
	CountBySentiment(below, above float64) (negative int64, positive int64, err error)
	GetSourceStats() ([]SourceStat, error)
	DeleteAll() error
}

type BubbleRepository interface {
	Upsert(category string, weight, sentiment float64) error
	GetAll() ([]Bubble, error)
	GetByCategory(category string) (*Bubble, error)
	GetTopNegative(limit int) ([]Bubble, error)
	GetTopPositive(limit int) ([]Bubble, error)
	CountWithBuildIdeas() (int64, error)
	DeleteAll() error
}

// TableName methods for custom table names
func (Feedback) TableName() string { return "feedback" }
func (Bubble) TableName() string   { return "bubbles" }

// Model validation methods
func (f *Feedback) Validate() error {
	if f.Content == "" {
		return fmt.Errorf("content is required")
	}
	if f.SourceType == "" {
		return fmt.Errorf("source type is required")
	}
	if f.SentimentScore < -1.0 || f.SentimentScore > 1.0 {
		return fmt.Errorf("sentiment score out of range: %f", f.SentimentScore)
	}
	if f.Weight < 0 || f.Weight > 1.0 {
		return fmt.Errorf("weight out of range: %f", f.Weight)
	}
	return nil
}

func (b *Bubble) Validate() error {
	if b.Category == "" {
		return fmt.Errorf("category is required")
	}
	if b.FeedbackCount < 0 {
		return fmt.Errorf("feedback count cannot be negative")
	}
	return nil
}

// GORM hooks
func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	return f.Validate()
}

func (b *Bubble) BeforeCreate(tx *gorm.DB) error {
	return b.Validate()
}
