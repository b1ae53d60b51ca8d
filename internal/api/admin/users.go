// users.go implements handlers for user account CRUD operations. Every
// mutation records an audit event attributed to the authenticated caller.
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

// UserHandlers handles user management endpoints
type UserHandlers struct {
	cfg      *config.Config
	db       *sql.DB
	userRepo *repositories.UserRepository
	recorder *audit.Recorder
}

// NewUserHandlers creates a new UserHandlers instance
func NewUserHandlers(cfg *config.Config, db *sql.DB, recorder *audit.Recorder) *UserHandlers {
	return &UserHandlers{
		cfg:      cfg,
		db:       db,
		userRepo: repositories.NewUserRepository(db),
		recorder: recorder,
	}
}

// actorID extracts the authenticated caller's id for audit attribution.
// Returns nil when the context carries no usable user id.
func actorID(c *gin.Context) *string {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(string); ok && id != "" {
			return &id
		}
	}
	return nil
}

// @Summary      List users
// @Description  Get a paginated list of console users.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        page      query  int  false  "Page number (default 1)"
// @Param        per_page  query  int  false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "users: []models.User, pagination: map"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users [get]
// ListUsersHandler lists all users with pagination
// GET /api/v1/users?page=1&per_page=20
func (h *UserHandlers) ListUsersHandler() gin.HandlerFunc {
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

		users, total, err := h.userRepo.ListUsers(c.Request.Context(), perPage, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list users",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"users": users,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get user
// @Description  Get a user by ID.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "user: models.User"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users/{id} [get]
// GetUserHandler retrieves a specific user by ID
// GET /api/v1/users/:id
func (h *UserHandlers) GetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve user",
			})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

type createUserRequest struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	GitHubLogin *string `json:"githubLogin"`
}

// @Summary      Create user
// @Description  Create a new console user.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  createUserRequest  true  "User to create"
// @Success      201  {object}  map[string]interface{}  "user: models.User"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      409  {object}  map[string]interface{}  "Username already exists"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users [post]
// CreateUserHandler creates a new user
// POST /api/v1/users
func (h *UserHandlers) CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(req.Email)
		if req.Username == "" || req.Email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and email are required"})
			return
		}

		existing, err := h.userRepo.GetUserByUsername(c.Request.Context(), req.Username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
			return
		}

		user := &models.User{
			Username:    req.Username,
			Email:       req.Email,
			GitHubLogin: req.GitHubLogin,
		}
		if err := h.userRepo.CreateUser(c.Request.Context(), user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		h.recorder.Record(c.Request.Context(), audit.Entry{
			ActorID:        actorID(c),
			OrganizationID: h.cfg.Audit.SystemOrganizationID,
			Action:         "user_created",
			ResourceType:   "user",
			ResourceID:     user.ID,
			Details:        map[string]interface{}{"username": user.Username},
		})

		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}

type updateUserRequest struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	GitHubLogin *string `json:"githubLogin"`
}

// @Summary      Update user
// @Description  Update a user's username, email, or linked GitHub login.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "User ID"
// @Param        request  body  updateUserRequest  true  "Updated fields"
// @Success      200  {object}  map[string]interface{}  "user: models.User"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users/{id} [put]
// UpdateUserHandler updates an existing user
// PUT /api/v1/users/:id
func (h *UserHandlers) UpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		var req updateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		if req.Username != "" {
			user.Username = strings.TrimSpace(req.Username)
		}
		if req.Email != "" {
			user.Email = strings.TrimSpace(req.Email)
		}
		if req.GitHubLogin != nil {
			user.GitHubLogin = req.GitHubLogin
		}

		if err := h.userRepo.UpdateUser(c.Request.Context(), user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}

		h.recorder.Record(c.Request.Context(), audit.Entry{
			ActorID:        actorID(c),
			OrganizationID: h.cfg.Audit.SystemOrganizationID,
			Action:         "user_updated",
			ResourceType:   "user",
			ResourceID:     user.ID,
			Details:        map[string]interface{}{"username": user.Username},
		})

		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// @Summary      Delete user
// @Description  Delete a user. Existing audit entries keep their rows; the actor reference is nulled by the schema.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users/{id} [delete]
// DeleteUserHandler deletes a user
// DELETE /api/v1/users/:id
func (h *UserHandlers) DeleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		if err := h.userRepo.DeleteUser(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}

		h.recorder.Record(c.Request.Context(), audit.Entry{
			ActorID:        actorID(c),
			OrganizationID: h.cfg.Audit.SystemOrganizationID,
			Action:         "user_deleted",
			ResourceType:   "user",
			ResourceID:     userID,
			Details:        map[string]interface{}{"username": user.Username},
		})

		c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
	}
}
