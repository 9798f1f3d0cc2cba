package services

import (
	"context"
	"errors"
	"testing"

	"github.com/bubblesight/backend/internal/classifier"
	"github.com/bubblesight/backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClassifier returns canned results in call order, then the fallback
type stubClassifier struct {
	results []classifier.Result
	calls   int
}

func (s *stubClassifier) Classify(ctx context.Context, text string) classifier.Result {
	if s.calls < len(s.results) {
		r := s.results[s.calls]
		s.calls++
		return r
	}
	s.calls++
	return classifier.Result{Category: classifier.FallbackCategory, Sentiment: 0}
}

// fakeFeedbackRepo stores records in memory and assigns sequential IDs
type fakeFeedbackRepo struct {
	records   []models.Feedback
	failNext  bool
	failEvery map[int]bool // 0-based insert index -> fail
}

func (f *fakeFeedbackRepo) Create(feedback *models.Feedback) error {
	idx := len(f.records)
	if f.failNext || f.failEvery[idx] {
		f.failNext = false
		return errors.New("insert failed")
	}
	feedback.ID = uint(idx + 1)
	f.records = append(f.records, *feedback)
	return nil
}

func (f *fakeFeedbackRepo) GetRecent(category, source string, limit int) ([]models.Feedback, error) {
	return f.records, nil
}
func (f *fakeFeedbackRepo) CountAll() (int64, error) { return int64(len(f.records)), nil }
func (f *fakeFeedbackRepo) CountBySentiment(below, above float64) (int64, int64, error) {
	var neg, pos int64
	for _, r := range f.records {
		if r.SentimentScore < below {
			neg++
		}
		if r.SentimentScore > above {
			pos++
		}
	}
	return neg, pos, nil
}
func (f *fakeFeedbackRepo) GetSourceStats() ([]models.SourceStat, error) { return nil, nil }
func (f *fakeFeedbackRepo) DeleteAll() error {
	f.records = nil
	return nil
}

// fakeBubbleRepo folds upserts with the same recurrence the SQL statement uses
type fakeBubbleRepo struct {
	bubbles map[string]*models.Bubble
	fail    bool
}

func newFakeBubbleRepo() *fakeBubbleRepo {
	return &fakeBubbleRepo{bubbles: make(map[string]*models.Bubble)}
}

func (f *fakeBubbleRepo) Upsert(category string, weight, sentiment float64) error {
	if f.fail {
		return errors.New("upsert failed")
	}
	b, ok := f.bubbles[category]
	if !ok {
		f.bubbles[category] = &models.Bubble{
			Category:      category,
			TotalWeight:   weight,
			AvgSentiment:  sentiment,
			FeedbackCount: 1,
		}
		return nil
	}
	b.TotalWeight += weight
	b.AvgSentiment = (b.AvgSentiment*float64(b.FeedbackCount) + sentiment) / float64(b.FeedbackCount+1)
	b.FeedbackCount++
	return nil
}

func (f *fakeBubbleRepo) GetAll() ([]models.Bubble, error) {
	var out []models.Bubble
	for _, b := range f.bubbles {
		out = append(out, *b)
	}
	return out, nil
}
func (f *fakeBubbleRepo) GetByCategory(category string) (*models.Bubble, error) {
	b, ok := f.bubbles[category]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}
func (f *fakeBubbleRepo) GetTopNegative(limit int) ([]models.Bubble, error) { return nil, nil }
func (f *fakeBubbleRepo) GetTopPositive(limit int) ([]models.Bubble, error) { return nil, nil }
func (f *fakeBubbleRepo) CountWithBuildIdeas() (int64, error)               { return 0, nil }
func (f *fakeBubbleRepo) DeleteAll() error {
	f.bubbles = make(map[string]*models.Bubble)
	return nil
}

func newTestService(cls Classifier, feedback *fakeFeedbackRepo, bubbles *fakeBubbleRepo) *IngestService {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewIngestService(cls, feedback, bubbles, nil, logger)
}

func TestIngest_EndToEnd(t *testing.T) {
	cls := &stubClassifier{results: []classifier.Result{{Category: "Stability", Sentiment: -0.8}}}
	feedback := &fakeFeedbackRepo{}
	bubbles := newFakeBubbleRepo()
	svc := newTestService(cls, feedback, bubbles)

	response, err := svc.Ingest(context.Background(), "crashes on save", "github")
	require.NoError(t, err)

	assert.Equal(t, "Stability", response.Feedback.Category)
	assert.Equal(t, -0.8, response.Feedback.SentimentScore)
	assert.Equal(t, 0.8, response.Feedback.Weight)
	assert.Equal(t, uint(1), response.Feedback.ID)
	assert.Equal(t, models.Analysis{Category: "Stability", Sentiment: -0.8, Weight: 0.8}, response.Analysis)

	bubble, err := bubbles.GetByCategory("Stability")
	require.NoError(t, err)
	assert.Equal(t, 1, bubble.FeedbackCount)
	assert.Equal(t, 0.8, bubble.TotalWeight)
	assert.Equal(t, -0.8, bubble.AvgSentiment)
}

func TestIngest_SecondItemSameCategory(t *testing.T) {
	cls := &stubClassifier{results: []classifier.Result{
		{Category: "Stability", Sentiment: -0.8},
		{Category: "Stability", Sentiment: 0.0},
	}}
	feedback := &fakeFeedbackRepo{}
	bubbles := newFakeBubbleRepo()
	svc := newTestService(cls, feedback, bubbles)

	_, err := svc.Ingest(context.Background(), "crashes on save", "github")
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), "sometimes works", "discord")
	require.NoError(t, err)

	bubble, err := bubbles.GetByCategory("Stability")
	require.NoError(t, err)
	assert.Equal(t, 2, bubble.FeedbackCount)
	assert.InDelta(t, 1.3, bubble.TotalWeight, 1e-9)
	assert.InDelta(t, -0.4, bubble.AvgSentiment, 1e-9)
}

func TestIngest_MissingFields(t *testing.T) {
	cls := &stubClassifier{}
	feedback := &fakeFeedbackRepo{}
	bubbles := newFakeBubbleRepo()
	svc := newTestService(cls, feedback, bubbles)

	_, err := svc.Ingest(context.Background(), "", "github")
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.Ingest(context.Background(), "some content", "  ")
	assert.ErrorIs(t, err, ErrMissingFields)

	// No side effects, no classification attempted
	assert.Equal(t, 0, cls.calls)
	assert.Empty(t, feedback.records)
	assert.Empty(t, bubbles.bubbles)
}

func TestIngest_UnknownSourceGetsNeutralWeight(t *testing.T) {
	cls := &stubClassifier{results: []classifier.Result{{Category: "Misc", Sentiment: 0.1}}}
	feedback := &fakeFeedbackRepo{}
	bubbles := newFakeBubbleRepo()
	svc := newTestService(cls, feedback, bubbles)

	response, err := svc.Ingest(context.Background(), "hello", "telepathy")
	require.NoError(t, err)
	assert.Equal(t, 0.5, response.Feedback.Weight)
}

func TestIngest_StorageFailureAborts(t *testing.T) {
	cls := &stubClassifier{results: []classifier.Result{{Category: "Misc", Sentiment: 0.1}}}
	feedback := &fakeFeedbackRepo{failNext: true}
	bubbles := newFakeBubbleRepo()
	svc := newTestService(cls, feedback, bubbles)

	_, err := svc.Ingest(context.Background(), "hello", "email")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingFields)
	assert.Empty(t, bubbles.bubbles, "no bubble mutation after failed insert")
}

func TestIngest_UpsertFailureSurfaced(t *testing.T) {
	cls := &stubClassifier{results: []classifier.Result{{Category: "Misc", Sentiment: 0.1}}}
	feedback := &fakeFeedbackRepo{}
	bubbles := newFakeBubbleRepo()
	bubbles.fail = true
	svc := newTestService(cls, feedback, bubbles)

	_, err := svc.Ingest(context.Background(), "hello", "email")
	require.Error(t, err)
	// The record itself stays durable
	assert.Len(t, feedback.records, 1)
}

func TestIngestBatch_SkipsInvalidItems(t *testing.T) {
	cls := &stubClassifier{results: []classifier.Result{
		{Category: "A", Sentiment: 0.5},
		{Category: "B", Sentiment: -0.5},
	}}
	feedback := &fakeFeedbackRepo{}
	bubbles := newFakeBubbleRepo()
	svc := newTestService(cls, feedback, bubbles)

	response := svc.IngestBatch(context.Background(), []models.FeedbackInput{
		{Content: "first item", SourceType: "ticket"},
		{Content: "", SourceType: "ticket"},
		{Content: "third item", SourceType: "forum"},
	})

	assert.Equal(t, 2, response.Processed)
	assert.Len(t, response.Results, 2)
	assert.Len(t, feedback.records, 2)
	assert.Len(t, bubbles.bubbles, 2)
}

func TestIngestBatch_ContinuesPastItemFailure(t *testing.T) {
	cls := &stubClassifier{results: []classifier.Result{
		{Category: "A", Sentiment: 0.5},
		{Category: "B", Sentiment: -0.5},
		{Category: "C", Sentiment: 0.0},
	}}
	feedback := &fakeFeedbackRepo{failEvery: map[int]bool{1: true}}
	bubbles := newFakeBubbleRepo()
	svc := newTestService(cls, feedback, bubbles)

	response := svc.IngestBatch(context.Background(), []models.FeedbackInput{
		{Content: "ok one", SourceType: "ticket"},
		{Content: "will fail", SourceType: "email"},
		{Content: "ok two", SourceType: "forum"},
	})

	assert.Equal(t, 2, response.Processed)
	assert.Len(t, feedback.records, 2)
	// Earlier items remain durable, no rollback
	assert.Equal(t, "ok one", feedback.records[0].Content)
}

func TestIngestBatch_TruncatesContentPreview(t *testing.T) {
	long := "this feedback item is quite a bit longer than the preview limit allows"
	cls := &stubClassifier{results: []classifier.Result{{Category: "Verbose", Sentiment: 0.2}}}
	feedback := &fakeFeedbackRepo{}
	bubbles := newFakeBubbleRepo()
	svc := newTestService(cls, feedback, bubbles)

	response := svc.IngestBatch(context.Background(), []models.FeedbackInput{
		{Content: long, SourceType: "email"},
	})

	require.Len(t, response.Results, 1)
	assert.Equal(t, long[:50]+"...", response.Results[0].Content)
	// Stored record keeps the full content
	assert.Equal(t, long, feedback.records[0].Content)
}

func TestIngestBatch_PreservesInputOrder(t *testing.T) {
	cls := &stubClassifier{results: []classifier.Result{
		{Category: "One", Sentiment: 0.1},
		{Category: "Two", Sentiment: 0.2},
		{Category: "Three", Sentiment: 0.3},
	}}
	feedback := &fakeFeedbackRepo{}
	bubbles := newFakeBubbleRepo()
	svc := newTestService(cls, feedback, bubbles)

	response := svc.IngestBatch(context.Background(), []models.FeedbackInput{
		{Content: "a", SourceType: "ticket"},
		{Content: "b", SourceType: "ticket"},
		{Content: "c", SourceType: "ticket"},
	})

	require.Equal(t, 3, response.Processed)
	assert.Equal(t, "One", response.Results[0].Category)
	assert.Equal(t, "Two", response.Results[1].Category)
	assert.Equal(t, "Three", response.Results[2].Category)
}

func TestIngest_FoldedRecurrenceOverMany(t *testing.T) {
	items := []struct {
		weight    float64
		source    string
		sentiment float64
	}{
		{1.0, "ticket", -0.6},
		{0.4, "forum", 0.2},
		{0.7, "email", 0.9},
		{0.8, "github", -1.0},
	}

	var results []classifier.Result
	for _, item := range items {
		results = append(results, classifier.Result{Category: "Search", Sentiment: item.sentiment})
	}

	cls := &stubClassifier{results: results}
	feedback := &fakeFeedbackRepo{}
	bubbles := newFakeBubbleRepo()
	svc := newTestService(cls, feedback, bubbles)

	for _, item := range items {
		_, err := svc.Ingest(context.Background(), "some text", item.source)
		require.NoError(t, err)
	}

	// Fold the incremental mean, not the weighted mean
	expected := items[0].sentiment
	totalWeight := items[0].weight
	for i := 1; i < len(items); i++ {
		expected = (expected*float64(i) + items[i].sentiment) / float64(i+1)
		totalWeight += items[i].weight
	}

	bubble, err := bubbles.GetByCategory("Search")
	require.NoError(t, err)
	assert.Equal(t, len(items), bubble.FeedbackCount)
	assert.InDelta(t, totalWeight, bubble.TotalWeight, 1e-9)
	assert.InDelta(t, expected, bubble.AvgSentiment, 1e-9)
}
