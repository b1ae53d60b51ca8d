// Package models - audit_log.go defines the AuditLog model: one immutable record of
// an administrative action, capturing actor, organization, action, affected resource,
// and an open-ended JSON detail payload.
package models

import "time"

// AuditLog represents one audit log entry. Rows are append-only: they are written
// exactly once when a state-changing operation completes and never updated or
// deleted by the application.
type AuditLog struct {
	ID             int64                  `json:"id"`
	ActorID        *string                `json:"actorId"`        // Nullable for system actions
	OrganizationID string                 `json:"organizationId"` // Every event belongs to exactly one organization
	Action         string                 `json:"action"`         // "user_login", "policy_created", "role_assigned"
	ResourceType   string                 `json:"resourceType"`   // "user", "team", "repository", "policy", "role"
	ResourceID     string                 `json:"resourceId"`     // Arbitrary format; "all" for bulk actions
	Details        map[string]interface{} `json:"details,omitempty"` // JSONB: action-specific context
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`

	// Joined fields (not stored in audit_logs)
	ActorName  *string `json:"actorName,omitempty"`  // Username joined from users
	ActorEmail *string `json:"actorEmail,omitempty"` // Email joined from users
}

// AuditStats holds the aggregate view of one organization's audit log.
type AuditStats struct {
	TotalLogs      int64           `json:"totalLogs"`
	ActionCounts   []ActionCount   `json:"actionCounts"`
	ResourceCounts []ResourceCount `json:"resourceCounts"`
	UserCounts     []UserCount     `json:"userCounts"`
}

// ActionCount is the event count for a single action tag.
type ActionCount struct {
	Action string `json:"action" db:"action"`
	Count  int64  `json:"count" db:"count"`
}

// ResourceCount is the event count for a single resource type.
type ResourceCount struct {
	ResourceType string `json:"resourceType" db:"resource_type"`
	Count        int64  `json:"count" db:"count"`
}

// UserCount is the event count attributed to a single actor. Username falls back
// to "Unknown" when the actor row no longer resolves.
type UserCount struct {
	UserID   string `json:"userId" db:"user_id"`
	Username string `json:"username" db:"username"`
	Count    int64  `json:"count" db:"count"`
}
