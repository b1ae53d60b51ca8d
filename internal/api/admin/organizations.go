// organizations.go implements handlers for organization CRUD and membership
// management. Membership rows drive the org-scoping check on the audit log
// endpoints, so add/remove are themselves audited against the organization.
package admin

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/org-console/org-console/internal/audit"
	"github.com/org-console/org-console/internal/config"
	"github.com/org-console/org-console/internal/db/models"
	"github.com/org-console/org-console/internal/db/repositories"
)

// OrganizationHandlers handles organization management endpoints
type OrganizationHandlers struct {
	cfg      *config.Config
	db       *sql.DB
	orgRepo  *repositories.OrganizationRepository
	userRepo *repositories.UserRepository
	recorder *audit.Recorder
}

// NewOrganizationHandlers creates a new OrganizationHandlers instance
func NewOrganizationHandlers(cfg *config.Config, db *sql.DB, recorder *audit.Recorder) *OrganizationHandlers {
	return &OrganizationHandlers{
		cfg:      cfg,
		db:       db,
		orgRepo:  repositories.NewOrganizationRepository(db),
		userRepo: repositories.NewUserRepository(db),
		recorder: recorder,
	}
}

// validMemberRoles are the accepted membership roles, lowest to highest.
var validMemberRoles = map[string]bool{
	"member": true,
	"admin":  true,
	"owner":  true,
}

// @Summary      List organizations
// @Description  Get a paginated list of managed organizations.
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Param        page      query  int  false  "Page number (default 1)"
// @Param        per_page  query  int  false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "organizations: []models.Organization, pagination: map"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/organizations [get]
// ListOrganizationsHandler lists all organizations with pagination
// GET /api/v1/organizations?page=1&per_page=20
func (h *OrganizationHandlers) ListOrganizationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

		if page < 1 {
			page = 1
		}
		if perPage < 1 || perPage > 100 {
			perPage = 20
		}

		offset := (page - 1) * perPage

		orgs, total, err := h.orgRepo.ListOrganizations(c.Request.Context(), perPage, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list organizations",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"organizations": orgs,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get organization
// @Description  Get an organization by ID.
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "organization: models.Organization"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/organizations/{id} [get]
// GetOrganizationHandler retrieves a specific organization by ID
// GET /api/v1/organizations/:id
func (h *OrganizationHandlers) GetOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")

		org, err := h.orgRepo.GetByID(c.Request.Context(), orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve organization"})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"organization": org})
	}
}

type createOrganizationRequest struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"displayName"`
	GitHubOrg   *string `json:"githubOrg"`
}

// @Summary      Create organization
// @Description  Register a new organization in the console.
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  createOrganizationRequest  true  "Organization to create"
// @Success      201  {object}  map[string]interface{}  "organization: models.Organization"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      409  {object}  map[string]interface{}  "Name already exists"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/organizations [post]
// CreateOrganizationHandler creates a new organization
// POST /api/v1/organizations
func (h *OrganizationHandlers) CreateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		existing, err := h.orgRepo.GetByName(c.Request.Context(), req.Name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Organization name already exists"})
			return
		}

		org := &models.Organization{
			Name:        req.Name,
			DisplayName: req.DisplayName,
			GitHubOrg:   req.GitHubOrg,
		}
		if err := h.orgRepo.CreateOrganization(c.Request.Context(), org); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
			return
		}

		h.recorder.Record(c.Request.Context(), audit.Entry{
			ActorID:        actorID(c),
			OrganizationID: org.ID,
			Action:         "organization_created",
			ResourceType:   "organization",
			ResourceID:     org.ID,
			Details:        map[string]interface{}{"name": org.Name},
		})

		c.JSON(http.StatusCreated, gin.H{"organization": org})
	}
}

type updateOrganizationRequest struct {
	DisplayName *string `json:"displayName"`
	GitHubOrg   *string `json:"githubOrg"`
}

// @Summary      Update organization
// @Description  Update an organization's display name or linked GitHub organization. The URL-safe name is immutable.
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string                     true  "Organization ID"
// @Param        request  body  updateOrganizationRequest  true  "Updated fields"
// @Success      200  {object}  map[string]interface{}  "organization: models.Organization"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/organizations/{id} [put]
// UpdateOrganizationHandler updates an existing organization
// PUT /api/v1/organizations/:id
func (h *OrganizationHandlers) UpdateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")

		var req updateOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		org, err := h.orgRepo.GetByID(c.Request.Context(), orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update organization"})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		if req.DisplayName != nil {
			org.DisplayName = *req.DisplayName
		}
		if req.GitHubOrg != nil {
			org.GitHubOrg = req.GitHubOrg
		}

		if err := h.orgRepo.UpdateOrganization(c.Request.Context(), org); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update organization"})
			return
		}

		h.recorder.Record(c.Request.Context(), audit.Entry{
			ActorID:        actorID(c),
			OrganizationID: org.ID,
			Action:         "organization_updated",
			ResourceType:   "organization",
			ResourceID:     org.ID,
			Details:        map[string]interface{}{"name": org.Name},
		})

		c.JSON(http.StatusOK, gin.H{"organization": org})
	}
}

// @Summary      Delete organization
// @Description  Delete an organization. Memberships and audit entries cascade at the schema level.
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/organizations/{id} [delete]
// DeleteOrganizationHandler deletes an organization
// DELETE /api/v1/organizations/:id
func (h *OrganizationHandlers) DeleteOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")

		org, err := h.orgRepo.GetByID(c.Request.Context(), orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete organization"})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		if err := h.orgRepo.DeleteOrganization(c.Request.Context(), orgID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete organization"})
			return
		}

		// The organization's own audit rows cascade away with it, so this event
		// is recorded against the system organization.
		h.recorder.Record(c.Request.Context(), audit.Entry{
			ActorID:        actorID(c),
			OrganizationID: h.cfg.Audit.SystemOrganizationID,
			Action:         "organization_deleted",
			ResourceType:   "organization",
			ResourceID:     orgID,
			Details:        map[string]interface{}{"name": org.Name},
		})

		c.JSON(http.StatusOK, gin.H{"message": "Organization deleted successfully"})
	}
}

// @Summary      List organization members
// @Description  Get an organization's members with user details.
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "members: []models.OrganizationMemberWithUser"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/organizations/{id}/members [get]
// ListMembersHandler lists an organization's members
// GET /api/v1/organizations/:id/members
func (h *OrganizationHandlers) ListMembersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")

		org, err := h.orgRepo.GetByID(c.Request.Context(), orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list members"})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		members, err := h.orgRepo.ListMembers(c.Request.Context(), orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list members"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"members": members})
	}
}

type addMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// @Summary      Add organization member
// @Description  Add a user to an organization with a role. Role defaults to member.
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string            true  "Organization ID"
// @Param        request  body  addMemberRequest  true  "Member to add"
// @Success      201  {object}  map[string]interface{}  "message"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organization or user not found"
// @Failure      409  {object}  map[string]interface{}  "Already a member"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/organizations/{id}/members [post]
// AddMemberHandler adds a user to an organization
// POST /api/v1/organizations/:id/members
func (h *OrganizationHandlers) AddMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")

		var req addMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
			return
		}
		if req.Role == "" {
			req.Role = "member"
		}
		if !validMemberRoles[req.Role] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be one of member, admin, owner"})
			return
		}

		org, err := h.orgRepo.GetByID(c.Request.Context(), orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member"})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		user, err := h.userRepo.GetUserByID(c.Request.Context(), req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		existing, err := h.orgRepo.GetMembership(c.Request.Context(), orgID, req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "User is already a member"})
			return
		}

		if err := h.orgRepo.AddMember(c.Request.Context(), orgID, req.UserID, req.Role); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member"})
			return
		}

		h.recorder.Record(c.Request.Context(), audit.Entry{
			ActorID:        actorID(c),
			OrganizationID: orgID,
			Action:         "member_added",
			ResourceType:   "membership",
			ResourceID:     req.UserID,
			Details: map[string]interface{}{
				"username": user.Username,
				"role":     req.Role,
			},
		})

		c.JSON(http.StatusCreated, gin.H{"message": "Member added successfully"})
	}
}

// @Summary      Remove organization member
// @Description  Remove a user from an organization.
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Param        id      path  string  true  "Organization ID"
// @Param        userId  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Membership not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/organizations/{id}/members/{userId} [delete]
// RemoveMemberHandler removes a user from an organization
// DELETE /api/v1/organizations/:id/members/:userId
func (h *OrganizationHandlers) RemoveMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")
		userID := c.Param("userId")

		membership, err := h.orgRepo.GetMembership(c.Request.Context(), orgID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
			return
		}
		if membership == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Membership not found"})
			return
		}

		if err := h.orgRepo.RemoveMember(c.Request.Context(), orgID, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
			return
		}

		h.recorder.Record(c.Request.Context(), audit.Entry{
			ActorID:        actorID(c),
			OrganizationID: orgID,
			Action:         "member_removed",
			ResourceType:   "membership",
			ResourceID:     userID,
			Details:        map[string]interface{}{"role": membership.Role},
		})

		c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
	}
}
