// tokens.go implements handlers for bearer API access tokens. The plaintext
// token is returned exactly once at creation; only the bcrypt hash and a short
// display prefix are stored. Create and revoke are audited.
package admin

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/org-console/org-console/internal/audit"
	"github.com/org-console/org-console/internal/auth"
	"github.com/org-console/org-console/internal/config"
	"github.com/org-console/org-console/internal/db/models"
	"github.com/org-console/org-console/internal/db/repositories"
)

// TokenHandlers handles access token management endpoints
type TokenHandlers struct {
	cfg       *config.Config
	db        *sql.DB
	tokenRepo *repositories.AccessTokenRepository
	recorder  *audit.Recorder
}

// NewTokenHandlers creates a new TokenHandlers instance
func NewTokenHandlers(cfg *config.Config, db *sql.DB, recorder *audit.Recorder) *TokenHandlers {
	return &TokenHandlers{
		cfg:       cfg,
		db:        db,
		tokenRepo: repositories.NewAccessTokenRepository(db),
		recorder:  recorder,
	}
}

type createTokenRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// @Summary      Create access token
// @Description  Create a bearer API token for the authenticated user. The plaintext token is returned only in this response.
// @Tags         Tokens
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  createTokenRequest  true  "Token name and optional expiry"
// @Success      201  {object}  map[string]interface{}  "token (plaintext), accessToken: models.AccessToken"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/tokens [post]
// CreateTokenHandler creates a new access token for the caller
// POST /api/v1/tokens
func (h *TokenHandlers) CreateTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := actorID(c)
		if caller == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		var req createTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expiresAt must be in the future"})
			return
		}

		plaintext, hash, displayPrefix, err := auth.GenerateAccessToken(h.cfg.Auth.AccessTokens.Prefix)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create access token"})
			return
		}

		token := &models.AccessToken{
			UserID:      *caller,
			Name:        req.Name,
			TokenHash:   hash,
			TokenPrefix: displayPrefix,
			ExpiresAt:   req.ExpiresAt,
		}
		if err := h.tokenRepo.CreateToken(c.Request.Context(), token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create access token"})
			return
		}

		h.recorder.Record(c.Request.Context(), audit.Entry{
			ActorID:        caller,
			OrganizationID: h.cfg.Audit.SystemOrganizationID,
			Action:         "token_created",
			ResourceType:   "access_token",
			ResourceID:     token.ID,
			Details:        map[string]interface{}{"name": token.Name},
		})

		c.JSON(http.StatusCreated, gin.H{
			"token":       plaintext,
			"accessToken": token,
		})
	}
}

// @Summary      List access tokens
// @Description  List the authenticated user's access tokens. Hashes are never returned.
// @Tags         Tokens
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "tokens: []models.AccessToken"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/tokens [get]
// ListTokensHandler lists the caller's access tokens
// GET /api/v1/tokens
func (h *TokenHandlers) ListTokensHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := actorID(c)
		if caller == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		tokens, err := h.tokenRepo.ListTokensByUser(c.Request.Context(), *caller)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list access tokens"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"tokens": tokens})
	}
}

// @Summary      Revoke access token
// @Description  Revoke one of the authenticated user's access tokens. Revocation is permanent.
// @Tags         Tokens
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Token ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Token not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/tokens/{id} [delete]
// RevokeTokenHandler revokes one of the caller's access tokens
// DELETE /api/v1/tokens/:id
func (h *TokenHandlers) RevokeTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := actorID(c)
		if caller == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		tokenID := c.Param("id")

		if err := h.tokenRepo.RevokeToken(c.Request.Context(), tokenID, *caller); err != nil {
			// RevokeToken only updates rows owned by the caller that are not yet
			// revoked, so a miss is indistinguishable from a foreign token.
			c.JSON(http.StatusNotFound, gin.H{"error": "Access token not found"})
			return
		}

		h.recorder.Record(c.Request.Context(), audit.Entry{
			ActorID:        caller,
			OrganizationID: h.cfg.Audit.SystemOrganizationID,
			Action:         "token_revoked",
			ResourceType:   "access_token",
			ResourceID:     tokenID,
		})

		c.JSON(http.StatusOK, gin.H{"message": "Access token revoked successfully"})
	}
}
