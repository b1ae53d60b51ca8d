// logs.go implements handlers for querying and recording organization audit
// log entries. Read access is paginated and filterable; writes go through the
// audit recorder so stored entries and shipped entries stay consistent.
package auditlogs

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/org-console/org-console/internal/audit"
	"github.com/org-console/org-console/internal/config"
	"github.com/org-console/org-console/internal/db/repositories"
	"github.com/org-console/org-console/internal/middleware"
	"github.com/org-console/org-console/internal/telemetry"
)

// AuditLogHandlers handles audit log query and ingestion endpoints
type AuditLogHandlers struct {
	cfg       *config.Config
	db        *sql.DB
	auditRepo *repositories.AuditRepository
	recorder  *audit.Recorder
}

// NewAuditLogHandlers creates a new AuditLogHandlers instance. The recorder is
// shared with the rest of the application so ingested entries flow through the
// same shippers as internally generated ones.
func NewAuditLogHandlers(cfg *config.Config, db *sql.DB, recorder *audit.Recorder) *AuditLogHandlers {
	return &AuditLogHandlers{
		cfg:       cfg,
		db:        db,
		auditRepo: repositories.NewAuditRepository(db),
		recorder:  recorder,
	}
}

// parseDate accepts both bare dates and full RFC 3339 timestamps so callers
// can pass either "2024-01-31" or "2024-01-31T15:04:05Z".
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// @Summary      List audit logs
// @Description  Get a paginated list of an organization's audit log entries, newest first. Filters combine with AND; searchTerm matches resource id, action, resource type, or details. Requires organization membership.
// @Tags         AuditLogs
// @Security     Bearer
// @Produce      json
// @Param        organizationId  path   string  true   "Organization ID"
// @Param        page            query  int     false  "Page number (default 1)"
// @Param        limit           query  int     false  "Items per page, max 100 (default 20)"
// @Param        action          query  string  false  "Exact action filter"
// @Param        resourceType    query  string  false  "Exact resource type filter"
// @Param        startDate       query  string  false  "Inclusive lower bound, date or RFC 3339"
// @Param        endDate         query  string  false  "Inclusive upper bound, date or RFC 3339"
// @Param        searchTerm      query  string  false  "Case-insensitive substring search"
// @Success      200  {object}  map[string]interface{}  "logs: []models.AuditLog, totalLogs, totalPages, currentPage"
// @Failure      400  {object}  map[string]interface{}  "Invalid date filter"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Not a member of organization"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /organization/{organizationId}/logs [get]
// ListLogsHandler lists an organization's audit logs with filtering and pagination
// GET /organization/:organizationId/logs?page=1&limit=20
func (h *AuditLogHandlers) ListLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param(middleware.OrgIDParam)

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 20
		}

		offset := (page - 1) * limit

		var filters repositories.LogFilters
		if action := c.Query("action"); action != "" {
			filters.Action = &action
		}
		if resourceType := c.Query("resourceType"); resourceType != "" {
			filters.ResourceType = &resourceType
		}
		if raw := c.Query("startDate"); raw != "" {
			start, err := parseDate(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid startDate: expected YYYY-MM-DD or RFC 3339",
				})
				return
			}
			filters.StartDate = &start
		}
		if raw := c.Query("endDate"); raw != "" {
			end, err := parseDate(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid endDate: expected YYYY-MM-DD or RFC 3339",
				})
				return
			}
			filters.EndDate = &end
		}
		if term := strings.TrimSpace(c.Query("searchTerm")); term != "" {
			filters.SearchTerm = &term
		}

		start := time.Now()
		logs, total, err := h.auditRepo.ListLogs(c.Request.Context(), orgID, filters, limit, offset)
		telemetry.AuditQueryDuration.WithLabelValues("list").Observe(time.Since(start).Seconds())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve audit logs",
			})
			return
		}

		totalPages := (total + limit - 1) / limit

		c.JSON(http.StatusOK, gin.H{
			"logs":        logs,
			"totalLogs":   total,
			"totalPages":  totalPages,
			"currentPage": page,
		})
	}
}

// createLogRequest is the ingestion payload. Details is optional; everything
// else must be present.
type createLogRequest struct {
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceId"`
	Details      map[string]interface{} `json:"details"`
}

// @Summary      Record audit log entry
// @Description  Record a new audit event for the organization. The authenticated user is recorded as the actor. Requires organization membership.
// @Tags         AuditLogs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        organizationId  path  string            true  "Organization ID"
// @Param        request         body  createLogRequest  true  "Event to record"
// @Success      201  {object}  map[string]interface{}  "message, id"
// @Failure      400  {object}  map[string]interface{}  "Missing required fields"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Not a member of organization"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /organization/{organizationId}/logs [post]
// CreateLogHandler records an audit event submitted over the API
// POST /organization/:organizationId/logs
func (h *AuditLogHandlers) CreateLogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param(middleware.OrgIDParam)

		var req createLogRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		var missing []string
		if strings.TrimSpace(req.Action) == "" {
			missing = append(missing, "action")
		}
		if strings.TrimSpace(req.ResourceType) == "" {
			missing = append(missing, "resourceType")
		}
		if strings.TrimSpace(req.ResourceID) == "" {
			missing = append(missing, "resourceId")
		}
		if len(missing) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", ")),
			})
			return
		}

		entry := audit.Entry{
			OrganizationID: orgID,
			Action:         req.Action,
			ResourceType:   req.ResourceType,
			ResourceID:     req.ResourceID,
			Details:        req.Details,
		}
		if userID, exists := c.Get("user_id"); exists {
			if id, ok := userID.(string); ok && id != "" {
				entry.ActorID = &id
			}
		}

		log, err := h.recorder.Create(c.Request.Context(), entry)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to record audit log",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Audit log created successfully",
			"id":      log.ID,
		})
	}
}
