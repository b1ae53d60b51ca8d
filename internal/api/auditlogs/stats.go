// stats.go implements the aggregate statistics handler for an organization's
// audit log: total event count plus the most frequent actions, resource types,
// and actors.
package auditlogs

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/org-console/org-console/internal/middleware"
	"github.com/org-console/org-console/internal/telemetry"
)

// @Summary      Get audit log statistics
// @Description  Get aggregate statistics for an organization's audit log: total entries and the top five actions, resource types, and actors. System events without an actor are excluded from actor counts. Requires organization membership.
// @Tags         AuditLogs
// @Security     Bearer
// @Produce      json
// @Param        organizationId  path  string  true  "Organization ID"
// @Success      200  {object}  models.AuditStats
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Not a member of organization"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /organization/{organizationId}/stats [get]
// GetStatsHandler returns aggregate audit statistics for an organization
// GET /organization/:organizationId/stats
func (h *AuditLogHandlers) GetStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param(middleware.OrgIDParam)

		start := time.Now()
		stats, err := h.auditRepo.GetStats(c.Request.Context(), orgID)
		telemetry.AuditQueryDuration.WithLabelValues("stats").Observe(time.Since(start).Seconds())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve audit statistics",
			})
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}
