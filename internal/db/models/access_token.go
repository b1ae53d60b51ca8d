// Package models - access_token.go defines the AccessToken model for long-lived
// bearer API tokens. Only the bcrypt hash is stored; the plaintext prefix allows
// an indexed lookup before the expensive hash comparison.
package models

import "time"

// AccessToken represents a bearer API token for a user
type AccessToken struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Name        string     `json:"name"`        // Friendly name (e.g. "audit exporter")
	TokenHash   string     `json:"-"`           // Bcrypt hash of the full token
	TokenPrefix string     `json:"tokenPrefix"` // First 10 chars for display and lookup
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// IsUsable reports whether the token can still authenticate requests.
func (t *AccessToken) IsUsable(now time.Time) bool {
	if t.RevokedAt != nil {
		return false
	}
	if t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
		return false
	}
	return true
}
