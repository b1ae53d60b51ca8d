// token_expiry_notifier.go implements the TokenExpiryNotifier background job,
// which periodically scans for access tokens approaching their expiry date and
// records a token_expiring audit event for each. Notification state is
// persisted in the database (expiry_notified_at column) so each token is
// warned about exactly once even across server restarts.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/org-console/org-console/internal/audit"
	"github.com/org-console/org-console/internal/config"
	"github.com/org-console/org-console/internal/db/repositories"
)

// TokenExpiryNotifier periodically records audit events for access tokens that
// are about to expire, so operators watching the log can rotate them in time.
type TokenExpiryNotifier struct {
	tokenRepo   *repositories.AccessTokenRepository
	recorder    *audit.Recorder
	systemOrgID string
	warningDays int
	interval    time.Duration
	stopChan    chan struct{}
}

// NewTokenExpiryNotifier creates a new TokenExpiryNotifier.
func NewTokenExpiryNotifier(
	tokenRepo *repositories.AccessTokenRepository,
	recorder *audit.Recorder,
	cfg *config.Config,
) *TokenExpiryNotifier {
	hours := cfg.Auth.AccessTokens.ExpiryCheckIntervalHours
	if hours <= 0 {
		hours = 24
	}
	warningDays := cfg.Auth.AccessTokens.ExpiryWarningDays
	if warningDays <= 0 {
		warningDays = 7
	}
	return &TokenExpiryNotifier{
		tokenRepo:   tokenRepo,
		recorder:    recorder,
		systemOrgID: cfg.Audit.SystemOrganizationID,
		warningDays: warningDays,
		interval:    time.Duration(hours) * time.Hour,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the background expiry-check loop. It runs an initial check
// immediately, then repeats on the configured interval. The loop exits when
// ctx is cancelled or Stop() is called.
func (n *TokenExpiryNotifier) Start(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	slog.Info("token expiry notifier started",
		"interval", n.interval, "warning_days", n.warningDays)

	n.runCheck(ctx)

	for {
		select {
		case <-ticker.C:
			n.runCheck(ctx)
		case <-n.stopChan:
			slog.Info("token expiry notifier stopped")
			return
		case <-ctx.Done():
			slog.Info("token expiry notifier context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (n *TokenExpiryNotifier) Stop() {
	close(n.stopChan)
}

// runCheck queries for expiring tokens and records one audit event per token.
func (n *TokenExpiryNotifier) runCheck(ctx context.Context) {
	tokens, err := n.tokenRepo.FindExpiringTokens(ctx, n.warningDays)
	if err != nil {
		slog.Error("token expiry notifier: failed to query expiring tokens", "error", err)
		return
	}

	if len(tokens) == 0 {
		return
	}

	slog.Info("token expiry notifier: found tokens approaching expiry", "count", len(tokens))

	for _, token := range tokens {
		// System event: no actor. Record returns false on storage failure, in
		// which case expiry_notified_at stays NULL and the next run retries.
		ok := n.recorder.Record(ctx, audit.Entry{
			OrganizationID: n.systemOrgID,
			Action:         "token_expiring",
			ResourceType:   "access_token",
			ResourceID:     token.ID,
			Details: map[string]interface{}{
				"name":      token.Name,
				"userId":    token.UserID,
				"expiresAt": token.ExpiresAt,
			},
		})
		if !ok {
			continue
		}

		if err := n.tokenRepo.MarkExpiryNotified(ctx, token.ID); err != nil {
			slog.Error("token expiry notifier: failed to mark token notified",
				"token_id", token.ID, "error", err)
		}
	}
}
