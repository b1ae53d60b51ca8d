package jobs

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/org-console/org-console/internal/audit"
	"github.com/org-console/org-console/internal/config"
	"github.com/org-console/org-console/internal/db/repositories"
)

// ---------------------------------------------------------------------------
// Test setup helpers
// ---------------------------------------------------------------------------

var tokenSQLCols = []string{
	"id", "user_id", "name", "token_hash", "token_prefix",
	"expires_at", "last_used_at", "revoked_at", "created_at",
}

func newNotifier(t *testing.T) (sqlmock.Sqlmock, *TokenExpiryNotifier) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.Audit.SystemOrganizationID = "00000000-0000-0000-0000-000000000000"
	cfg.Auth.AccessTokens.ExpiryWarningDays = 7
	cfg.Auth.AccessTokens.ExpiryCheckIntervalHours = 24

	recorder := audit.NewRecorder(repositories.NewAuditRepository(db), nil)
	n := NewTokenExpiryNotifier(repositories.NewAccessTokenRepository(db), recorder, cfg)
	return mock, n
}

func expiringTokenRow() *sqlmock.Rows {
	expires := time.Now().Add(48 * time.Hour)
	return sqlmock.NewRows(tokenSQLCols).
		AddRow("tok-1", "user-1", "audit exporter", "$2a$12$hash", "oac_abc123",
			expires, nil, nil, time.Now())
}

// ---------------------------------------------------------------------------
// runCheck
// ---------------------------------------------------------------------------

func TestRunCheck_RecordsEventAndMarksNotified(t *testing.T) {
	mock, n := newNotifier(t)

	mock.ExpectQuery("SELECT").
		WithArgs(7).
		WillReturnRows(expiringTokenRow())
	mock.ExpectQuery("INSERT INTO audit_logs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec("UPDATE access_tokens SET expiry_notified_at").
		WithArgs("tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n.runCheck(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunCheck_NoExpiringTokens(t *testing.T) {
	mock, n := newNotifier(t)

	mock.ExpectQuery("SELECT").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(tokenSQLCols))

	n.runCheck(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunCheck_RecordFailureLeavesTokenUnmarked(t *testing.T) {
	mock, n := newNotifier(t)

	mock.ExpectQuery("SELECT").
		WithArgs(7).
		WillReturnRows(expiringTokenRow())
	mock.ExpectQuery("INSERT INTO audit_logs").
		WillReturnError(sqlmock.ErrCancelled)
	// No UPDATE expected: the token stays unmarked so the next run retries.

	n.runCheck(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunCheck_QueryErrorIsSwallowed(t *testing.T) {
	mock, n := newNotifier(t)

	mock.ExpectQuery("SELECT").
		WillReturnError(sqlmock.ErrCancelled)

	n.runCheck(context.Background())
}

// ---------------------------------------------------------------------------
// Start / Stop
// ---------------------------------------------------------------------------

func TestStartStop(t *testing.T) {
	mock, n := newNotifier(t)

	// The initial check runs immediately on Start.
	mock.ExpectQuery("SELECT").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(tokenSQLCols))

	done := make(chan struct{})
	go func() {
		n.Start(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	n.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not stop")
	}
}
