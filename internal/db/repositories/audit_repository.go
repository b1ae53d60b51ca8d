// audit_repository.go implements AuditRepository, providing database queries for
// writing and retrieving audit log entries with multi-dimensional filtering,
// pagination, and per-organization aggregate statistics.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/org-console/org-console/internal/db/models"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db  *sql.DB
	dbx *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{
		db:  db,
		dbx: sqlx.NewDb(db, "postgres"),
	}
}

// LogFilters contains optional filters for querying audit logs. All set filters
// are combined with logical AND; SearchTerm expands to an OR across resource id,
// action, resource type, and the serialized details payload.
type LogFilters struct {
	Action       *string
	ResourceType *string
	StartDate    *time.Time
	EndDate      *time.Time
	SearchTerm   *string
}

// CreateLog appends a new audit log entry and fills in the store-assigned id.
// created_at is the authoritative event time; updated_at mirrors it and is
// never touched again.
func (r *AuditRepository) CreateLog(ctx context.Context, log *models.AuditLog) error {
	log.CreatedAt = time.Now()
	log.UpdatedAt = log.CreatedAt

	// Marshal details to JSONB
	var detailsJSON []byte
	var err error
	if log.Details != nil {
		detailsJSON, err = json.Marshal(log.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (actor_id, organization_id, action, resource_type, resource_id, details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err = r.db.QueryRowContext(ctx, query,
		log.ActorID,
		log.OrganizationID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		detailsJSON,
		log.CreatedAt,
		log.UpdatedAt,
	).Scan(&log.ID)

	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// ListLogs retrieves an organization's audit logs, newest first, with optional
// filters and pagination. The returned total is the filtered count before
// pagination. Each row carries the actor's minimal profile when the actor still
// resolves; system events (no actor) yield null profile fields.
func (r *AuditRepository) ListLogs(ctx context.Context, organizationID string, filters LogFilters, limit, offset int) ([]*models.AuditLog, int, error) {
	// Build both queries with identical WHERE clauses so the count matches the page
	countQuery := `SELECT COUNT(*) FROM audit_logs l WHERE l.organization_id = $1`
	query := `
		SELECT l.id, l.actor_id, l.organization_id, l.action, l.resource_type, l.resource_id,
		       l.details, l.created_at, l.updated_at, u.username, u.email
		FROM audit_logs l
		LEFT JOIN users u ON u.id = l.actor_id
		WHERE l.organization_id = $1
	`

	args := []interface{}{organizationID}
	paramIndex := 2

	// Apply filters
	if filters.Action != nil {
		clause := fmt.Sprintf(` AND l.action = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.Action)
		paramIndex++
	}

	if filters.ResourceType != nil {
		clause := fmt.Sprintf(` AND l.resource_type = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.ResourceType)
		paramIndex++
	}

	if filters.StartDate != nil {
		clause := fmt.Sprintf(` AND l.created_at >= $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.StartDate)
		paramIndex++
	}

	if filters.EndDate != nil {
		clause := fmt.Sprintf(` AND l.created_at <= $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.EndDate)
		paramIndex++
	}

	if filters.SearchTerm != nil && *filters.SearchTerm != "" {
		// details::text treats the JSON payload as an opaque searchable blob;
		// no structured query into individual keys.
		clause := fmt.Sprintf(
			` AND (l.resource_id ILIKE $%d OR l.action ILIKE $%d OR l.resource_type ILIKE $%d OR l.details::text ILIKE $%d)`,
			paramIndex, paramIndex, paramIndex, paramIndex,
		)
		countQuery += clause
		query += clause
		args = append(args, "%"+*filters.SearchTerm+"%")
		paramIndex++
	}

	// Get total count
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	// Newest first; id breaks ties between equal timestamps so paging is deterministic
	query += fmt.Sprintf(` ORDER BY l.created_at DESC, l.id DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		log := &models.AuditLog{}
		var detailsJSON []byte

		err := rows.Scan(
			&log.ID,
			&log.ActorID,
			&log.OrganizationID,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&detailsJSON,
			&log.CreatedAt,
			&log.UpdatedAt,
			&log.ActorName,
			&log.ActorEmail,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit log: %w", err)
		}

		if detailsJSON != nil {
			if err := json.Unmarshal(detailsJSON, &log.Details); err != nil {
				return nil, 0, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}

		logs = append(logs, log)
	}

	return logs, total, rows.Err()
}

// GetStats computes the aggregate view of one organization's audit log: total
// event count plus the five most frequent actions, resource types, and actors.
// Everything is computed fresh on every call — the append-only table is the
// source of truth and the grouped counts are index-backed.
func (r *AuditRepository) GetStats(ctx context.Context, organizationID string) (*models.AuditStats, error) {
	stats := &models.AuditStats{
		ActionCounts:   make([]models.ActionCount, 0, 5),
		ResourceCounts: make([]models.ResourceCount, 0, 5),
		UserCounts:     make([]models.UserCount, 0, 5),
	}

	err := r.dbx.GetContext(ctx, &stats.TotalLogs,
		`SELECT COUNT(*) FROM audit_logs WHERE organization_id = $1`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit logs: %w", err)
	}

	err = r.dbx.SelectContext(ctx, &stats.ActionCounts, `
		SELECT action, COUNT(*) AS count
		FROM audit_logs
		WHERE organization_id = $1
		GROUP BY action
		ORDER BY count DESC
		LIMIT 5
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate actions: %w", err)
	}

	err = r.dbx.SelectContext(ctx, &stats.ResourceCounts, `
		SELECT resource_type, COUNT(*) AS count
		FROM audit_logs
		WHERE organization_id = $1
		GROUP BY resource_type
		ORDER BY count DESC
		LIMIT 5
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate resource types: %w", err)
	}

	// System events (NULL actor) are excluded; an actor whose user row was
	// removed still counts but reports "Unknown".
	err = r.dbx.SelectContext(ctx, &stats.UserCounts, `
		SELECT l.actor_id AS user_id, COALESCE(u.username, 'Unknown') AS username, COUNT(*) AS count
		FROM audit_logs l
		LEFT JOIN users u ON u.id = l.actor_id
		WHERE l.organization_id = $1 AND l.actor_id IS NOT NULL
		GROUP BY l.actor_id, u.username
		ORDER BY count DESC
		LIMIT 5
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate actors: %w", err)
	}

	return stats, nil
}
