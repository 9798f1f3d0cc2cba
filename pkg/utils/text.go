// backend/pkg/utils/text.go
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// TruncateContent shortens feedback content for batch summaries and logs.
// Cuts on bytes, appends "..." only when something was actually removed.
func TruncateContent(content string, max int) string {
	if max <= 0 || len(content) <= max {
		return content
	}
	return content[:max] + "..."
}

// GenerateRequestID generates a random hex ID for request tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
