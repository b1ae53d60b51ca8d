// Package models - user.go defines the User model for console accounts linked to
// GitHub identities.
package models

import "time"

// User represents a user in the system
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	GitHubLogin *string   `json:"githubLogin,omitempty"` // GitHub account this user maps to
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UserProfile is the minimal public view of a user attached to audit entries
// and membership listings.
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Profile returns the minimal public view of the user.
func (u *User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Username: u.Username, Email: u.Email}
}
