package internal

import "time"

// Card is one committed word with its chosen definition, as kept in the
// deck.
type Card struct {
	ID         string    `json:"id"`
	Sentence   string    `json:"sentence"`
	Word       string    `json:"word"`
	Definition string    `json:"definition"`
	VideoID    string    `json:"video_id,omitempty"`
	Start      float64   `json:"start,omitempty"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsed   time.Time `json:"last_used"`
}
