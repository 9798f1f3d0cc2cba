//go:build integration

package repository

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bubblesight/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL required for integration tests")
	}

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Feedback{}, &models.Bubble{}))
	return db
}

func uniqueCategory(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestUpsert_FoldsRecurrence(t *testing.T) {
	db := testDB(t)
	repo := NewBubbleRepository(db)
	category := uniqueCategory("fold")

	items := []struct{ weight, sentiment float64 }{
		{0.8, -0.8},
		{0.5, 0.0},
		{1.0, 0.4},
	}

	for _, item := range items {
		require.NoError(t, repo.Upsert(category, item.weight, item.sentiment))
	}

	bubble, err := repo.GetByCategory(category)
	require.NoError(t, err)

	assert.Equal(t, 3, bubble.FeedbackCount)
	assert.InDelta(t, 2.3, bubble.TotalWeight, 1e-9)

	// Fold the incremental mean the same way the statement does
	expected := -0.8
	expected = (expected*1 + 0.0) / 2
	expected = (expected*2 + 0.4) / 3
	assert.InDelta(t, expected, bubble.AvgSentiment, 1e-9)
}

func TestUpsert_ConcurrentSameCategory(t *testing.T) {
	db := testDB(t)
	repo := NewBubbleRepository(db)
	category := uniqueCategory("race")

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Upsert(category, 0.5, 0.2)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	bubble, err := repo.GetByCategory(category)
	require.NoError(t, err)
	assert.Equal(t, workers, bubble.FeedbackCount)
	assert.InDelta(t, float64(workers)*0.5, bubble.TotalWeight, 1e-9)
}
