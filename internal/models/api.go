package models

// FeedbackInput carries one submitted item. Presence of both fields is
// enforced by the ingestion pipeline, not by binding tags: the batch
// endpoint must skip incomplete items instead of rejecting the whole array.
type FeedbackInput struct {
	Content    string `json:"content"`
	SourceType string `json:"source_type"`
}

// Analysis is the classification outcome attached to an ingested item
type Analysis struct {
	Category  string  `json:"category"`
	Sentiment float64 `json:"sentiment"`
	Weight    float64 `json:"weight"`
}

type IngestResponse struct {
	Feedback *Feedback `json:"feedback"`
	Analysis Analysis  `json:"analysis"`
}

// BatchItemResult summarizes one processed batch item
type BatchItemResult struct {
	Content   string  `json:"content"`
	Category  string  `json:"category"`
	Sentiment float64 `json:"sentiment"`
	Weight    float64 `json:"weight"`
}

type BatchResponse struct {
	Processed int               `json:"processed"`
	Results   []BatchItemResult `json:"results"`
}

type StatsResponse struct {
	TotalFeedback         int64        `json:"totalFeedback"`
	NegativeFeedbackCount int64        `json:"negativeFeedbackCount"`
	PositiveFeedbackCount int64        `json:"positiveFeedbackCount"`
	ActionSuggestions     int64        `json:"actionSuggestions"`
	BySource              []SourceStat `json:"bySource"`
	TopPainPoints         []Bubble     `json:"topPainPoints"`
	TopPraise             []Bubble     `json:"topPraise"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}
