package models

import "time"

// PublishedCard is a card the owner chose to expose under a public link.
type PublishedCard struct {
	Token          string     `json:"token"`
	Card           CardData   `json:"card"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	AccessCount    int        `json:"access_count"`
}

// IsExpired reports whether the link stopped being valid at now.
func (p *PublishedCard) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(now)
}
