// orgscope.go implements organization-scoped authorization. Every route under
// /organization/:organizationId requires the authenticated user to be a member
// of that organization; non-members get 403 regardless of whether the
// organization exists, so the check does not leak organization IDs.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/org-console/org-console/internal/db/repositories"
)

// OrgIDParam is the route parameter holding the organization ID.
const OrgIDParam = "organizationId"

// RequireOrgMember checks that the authenticated user is a member of the
// organization named in the route. On success the organization ID and the
// member's role are stored in the context for handlers.
func RequireOrgMember(orgRepo *repositories.OrganizationRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userVal, exists := c.Get("user_id")
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		userID, ok := userVal.(string)
		if !ok || userID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Invalid user ID format",
			})
			return
		}

		orgID := c.Param(OrgIDParam)
		if orgID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Organization context not found",
			})
			return
		}

		member, err := orgRepo.GetMembership(c.Request.Context(), orgID, userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check organization membership",
			})
			return
		}

		if member == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Not a member of organization",
			})
			return
		}

		c.Set("organization_id", orgID)
		c.Set("org_role", member.Role)

		c.Next()
	}
}

// RequireOrgRole layers a role check on top of membership. The membership
// check must have run first (RequireOrgMember sets org_role).
func RequireOrgRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get("org_role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Organization membership not established",
			})
			return
		}

		role, ok := roleVal.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Invalid role format",
			})
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Insufficient role for this operation",
		})
	}
}
