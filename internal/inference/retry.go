package inference

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
	}
}

// RunWithRetry retries transient completion failures with capped backoff.
// The ingestion path does not use this: a classification that cannot be
// produced promptly degrades to the fallback result instead of stalling the
// request. Offline callers (the seeder) retry.
func (c *Client) RunWithRetry(ctx context.Context, prompt string, maxTokens int) (string, error) {
	config := DefaultRetryConfig()

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		response, err := c.Run(ctx, prompt, maxTokens)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if attempt == config.MaxRetries {
			break
		}

		delay := time.Duration(float64(config.BaseDelay) * math.Pow(1.5, float64(attempt)))
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}

		c.logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"delay":   delay,
			"error":   err.Error(),
		}).Warn("Retrying completion request")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("completion failed after %d retries: %w", config.MaxRetries, lastErr)
}
