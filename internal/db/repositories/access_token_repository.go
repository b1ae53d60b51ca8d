// access_token_repository.go implements AccessTokenRepository, providing database
// queries for bearer API tokens. Lookup is by plaintext prefix so the expensive
// bcrypt comparison runs against a handful of candidate rows at most.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/org-console/org-console/internal/db/models"
)

// AccessTokenRepository handles database operations for access tokens
type AccessTokenRepository struct {
	db *sql.DB
}

// NewAccessTokenRepository creates a new access token repository
func NewAccessTokenRepository(db *sql.DB) *AccessTokenRepository {
	return &AccessTokenRepository{db: db}
}

const tokenColumns = `id, user_id, name, token_hash, token_prefix, expires_at, last_used_at, revoked_at, created_at`

// CreateToken stores a new access token record
func (r *AccessTokenRepository) CreateToken(ctx context.Context, token *models.AccessToken) error {
	query := `
		INSERT INTO access_tokens (user_id, name, token_hash, token_prefix, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		token.UserID, token.Name, token.TokenHash, token.TokenPrefix, token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create access token: %w", err)
	}

	return nil
}

// GetTokensByPrefix retrieves the candidate tokens matching a display prefix
func (r *AccessTokenRepository) GetTokensByPrefix(ctx context.Context, prefix string) ([]*models.AccessToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM access_tokens WHERE token_prefix = $1`

	rows, err := r.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query access tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]*models.AccessToken, 0)
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

// ListTokensByUser retrieves a user's access tokens, newest first
func (r *AccessTokenRepository) ListTokensByUser(ctx context.Context, userID string) ([]*models.AccessToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM access_tokens WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list access tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]*models.AccessToken, 0)
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

// RevokeToken marks a token revoked. Revocation is soft so the row remains
// visible in listings with its revocation time.
func (r *AccessTokenRepository) RevokeToken(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE access_tokens SET revoked_at = NOW() WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL`,
		id, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check revoke result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("access token not found: %s", id)
	}

	return nil
}

// TouchLastUsed records when a token last authenticated a request. Failures are
// returned but callers treat this as best-effort bookkeeping.
func (r *AccessTokenRepository) TouchLastUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE access_tokens SET last_used_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update last_used_at: %w", err)
	}
	return nil
}

// FindExpiringTokens returns live tokens that expire within warningDays and
// have not had their expiry warning recorded yet.
func (r *AccessTokenRepository) FindExpiringTokens(ctx context.Context, warningDays int) ([]*models.AccessToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM access_tokens
		WHERE revoked_at IS NULL
		  AND expiry_notified_at IS NULL
		  AND expires_at IS NOT NULL
		  AND expires_at > NOW()
		  AND expires_at <= NOW() + ($1 || ' days')::interval
		ORDER BY expires_at
	`

	rows, err := r.db.QueryContext(ctx, query, warningDays)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]*models.AccessToken, 0)
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

// MarkExpiryNotified records that the expiry warning for a token has been
// emitted, so it is not repeated on later runs or after a restart.
func (r *AccessTokenRepository) MarkExpiryNotified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE access_tokens SET expiry_notified_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark expiry notified: %w", err)
	}
	return nil
}

func scanToken(rows *sql.Rows) (*models.AccessToken, error) {
	token := &models.AccessToken{}
	err := rows.Scan(
		&token.ID,
		&token.UserID,
		&token.Name,
		&token.TokenHash,
		&token.TokenPrefix,
		&token.ExpiresAt,
		&token.LastUsedAt,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan access token: %w", err)
	}
	return token, nil
}
