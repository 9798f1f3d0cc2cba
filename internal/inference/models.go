package inference

// Request models
type RunRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

// Response models
type RunResponse struct {
	Response string `json:"response"`
}
