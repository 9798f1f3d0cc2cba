// backend/internal/sources/weights.go
package sources

import "github.com/bubblesight/backend/internal/models"

// DefaultWeight is the neutral-trust fallback for channels not in the table.
// Unknown channels degrade instead of failing ingestion.
const DefaultWeight = 0.5

// Source reliability weights. Formal, moderated or paid-support channels
// carry more signal than ephemeral/anonymous ones. Product decision, not
// derived data; never adjusted at runtime.
var weights = map[string]float64{
	models.SourceTicket:  1.0, // customer support tickets, paying customers
	models.SourceGithub:  0.8, // structured, technical, actionable
	models.SourceEmail:   0.7, // direct communication, usually important
	models.SourceTwitter: 0.6, // public and visible, but less detailed
	models.SourceDiscord: 0.5, // community real-time chat, casual
	models.SourceForum:   0.4, // valuable but anonymous/unverified
}

// WeightOf returns the reliability weight for a feedback channel.
func WeightOf(sourceType string) float64 {
	if w, ok := weights[sourceType]; ok {
		return w
	}
	return DefaultWeight
}
