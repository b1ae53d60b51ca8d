// Package models - organization.go defines the Organization model representing one
// GitHub organization managed through the console, plus membership records.
package models

import "time"

// Organization represents a managed GitHub organization
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`        // URL-safe name
	DisplayName string    `json:"displayName"` // Human-readable display name
	GitHubOrg   *string   `json:"githubOrg,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OrganizationMember represents a user's membership in an organization
type OrganizationMember struct {
	OrganizationID string    `json:"organizationId"`
	UserID         string    `json:"userId"`
	Role           string    `json:"role"` // "owner", "admin", "member"
	CreatedAt      time.Time `json:"createdAt"`
}

// OrganizationMemberWithUser includes user details for display
type OrganizationMemberWithUser struct {
	OrganizationMember
	Username string `json:"username"`
	Email    string `json:"email"`
}
