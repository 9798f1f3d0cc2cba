package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to a text-completion endpoint. The contract is deliberately
// thin: a prompt and a token bound go in, raw text comes out. Whatever the
// model wraps around that text is the classifier's problem.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL, apiKey, model string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// BaseURL exposes the configured endpoint for health probing
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Run sends a prompt to the completion endpoint and returns the raw
// response text.
func (c *Client) Run(ctx context.Context, prompt string, maxTokens int) (string, error) {
	url := fmt.Sprintf("%s/run/%s", c.baseURL, c.model)

	payload := RunRequest{
		Prompt:    prompt,
		MaxTokens: maxTokens,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithFields(logrus.Fields{
		"url":         url,
		"prompt_size": len(prompt),
		"max_tokens":  maxTokens,
	}).Debug("Making completion request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status_code":   resp.StatusCode,
		"response_size": len(responseBody),
	}).Debug("Completion response received")

	// Only log response body for small responses or errors
	if len(responseBody) < 500 || resp.StatusCode >= 400 {
		c.logger.WithFields(logrus.Fields{
			"status_code":   resp.StatusCode,
			"response_body": string(responseBody),
		}).Debug("Response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("completion request failed with status %d: %s", resp.StatusCode, string(responseBody))
	}

	var result RunResponse
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return result.Response, nil
}
