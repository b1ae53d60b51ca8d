// recorder.go is the single entry point for writing audit events. Application
// code calls Record, which must never fail the operation being audited.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/org-console/org-console/internal/db/models"
	"github.com/org-console/org-console/internal/db/repositories"
	"github.com/org-console/org-console/internal/safego"
	"github.com/org-console/org-console/internal/telemetry"
)

// shipTimeout bounds the asynchronous delivery of one event to external
// shippers so a slow webhook cannot pile up goroutines.
const shipTimeout = 10 * time.Second

// Entry describes one auditable event. OrganizationID, Action, ResourceType
// and ResourceID are required; ActorID is nil for system-initiated events.
type Entry struct {
	ActorID        *string
	OrganizationID string
	Action         string
	ResourceType   string
	ResourceID     string
	Details        map[string]interface{}
}

// Recorder persists audit events and copies them to configured shippers.
type Recorder struct {
	repo    *repositories.AuditRepository
	shipper Shipper
}

// NewRecorder creates a recorder. shipper may be nil when no external
// destinations are configured.
func NewRecorder(repo *repositories.AuditRepository, shipper Shipper) *Recorder {
	return &Recorder{repo: repo, shipper: shipper}
}

// Record writes an audit event and reports whether it was persisted. It never
// returns an error and never panics: auditing is an observer of the operation,
// not a participant, so a failure here is logged and counted but must not
// block the action that triggered it.
func (r *Recorder) Record(ctx context.Context, entry Entry) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic while recording audit event", "panic", rec, "action", entry.Action)
			telemetry.AuditRecordFailures.Inc()
			ok = false
		}
	}()

	if _, err := r.Create(ctx, entry); err != nil {
		slog.Warn("failed to record audit event",
			"action", entry.Action,
			"organization_id", entry.OrganizationID,
			"resource_type", entry.ResourceType,
			"error", err)
		telemetry.AuditRecordFailures.Inc()
		return false
	}
	return true
}

// Create writes an audit event and returns the stored row. Unlike Record it
// surfaces the storage error, for callers that must report the outcome (the
// log ingestion endpoint). Missing fields are logged but do not reject the
// event; an incomplete record beats a silent gap in the trail.
func (r *Recorder) Create(ctx context.Context, entry Entry) (*models.AuditLog, error) {
	if entry.Action == "" || entry.ResourceType == "" || entry.ResourceID == "" {
		slog.Warn("audit event missing required fields",
			"action", entry.Action,
			"resource_type", entry.ResourceType,
			"resource_id", entry.ResourceID)
	}

	log := &models.AuditLog{
		ActorID:        entry.ActorID,
		OrganizationID: entry.OrganizationID,
		Action:         entry.Action,
		ResourceType:   entry.ResourceType,
		ResourceID:     entry.ResourceID,
		Details:        entry.Details,
	}

	if err := r.repo.CreateLog(ctx, log); err != nil {
		return nil, err
	}
	telemetry.AuditEventsRecorded.Inc()

	r.ship(log)
	return log, nil
}

// ship copies a stored event to the configured shippers in the background.
func (r *Recorder) ship(log *models.AuditLog) {
	if r.shipper == nil {
		return
	}

	wire := &LogEntry{
		Timestamp:      log.CreatedAt,
		Action:         log.Action,
		OrganizationID: log.OrganizationID,
		ResourceType:   log.ResourceType,
		ResourceID:     log.ResourceID,
		Details:        log.Details,
	}
	if log.ActorID != nil {
		wire.ActorID = *log.ActorID
	}

	safego.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shipTimeout)
		defer cancel()
		if err := r.shipper.Ship(ctx, wire); err != nil {
			// Already logged per destination by MultiShipper
			return
		}
		telemetry.AuditEventsShipped.Inc()
	})
}
