package models

import (
	"testing"
	"time"
)

func TestAccessToken_IsUsable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		token AccessToken
		want  bool
	}{
		{"no expiry, not revoked", AccessToken{}, true},
		{"future expiry", AccessToken{ExpiresAt: &future}, true},
		{"expired", AccessToken{ExpiresAt: &past}, false},
		{"revoked", AccessToken{RevokedAt: &past}, false},
		{"revoked and future expiry", AccessToken{RevokedAt: &past, ExpiresAt: &future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.IsUsable(now); got != tt.want {
				t.Errorf("IsUsable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_Profile(t *testing.T) {
	u := &User{ID: "user-1", Username: "octocat", Email: "octo@example.com"}
	p := u.Profile()
	if p.ID != "user-1" || p.Username != "octocat" || p.Email != "octo@example.com" {
		t.Errorf("Profile() = %+v, want fields copied from user", p)
	}
}
