// Package middleware provides Gin HTTP middleware for authentication,
// organization scoping, rate limiting, security headers, and metrics.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RateLimit → Auth → OrgScope → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any DB
// work. Auth populates the user identity; org scoping reads from that context.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/org-console/org-console/internal/auth"
	"github.com/org-console/org-console/internal/db/models"
	"github.com/org-console/org-console/internal/db/repositories"
)

// AuthMiddleware validates authentication (JWT or access token)
func AuthMiddleware(userRepo *repositories.UserRepository, tokenRepo *repositories.AccessTokenRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		// JWT validation is attempted first because it is entirely stateless:
		// a cryptographic check against the JWT secret with no database
		// round-trip. Access token validation always requires a DB query
		// (prefix lookup plus bcrypt comparison), so JWT is the lower-latency
		// path for browser sessions.
		if claims, err := auth.ValidateJWT(token); err == nil {
			user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to load user",
				})
				return
			}

			if user == nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "User not found",
				})
				return
			}

			c.Set("user", user)
			c.Set("user_id", user.ID)
			c.Set("auth_method", "jwt")

			c.Next()
			return
		}

		// Try access token.
		// We never store the raw token, only its bcrypt hash. The 10-character
		// prefix is stored plaintext alongside the hash so we can do a fast
		// indexed DB query to narrow the candidate set, then run the expensive
		// bcrypt comparison only on those few rows. Without the prefix, every
		// request would require scanning the whole access_tokens table and
		// running bcrypt on each row.
		tokenPrefix := token
		if len(token) > auth.DisplayPrefixLength {
			tokenPrefix = token[:auth.DisplayPrefixLength]
		}

		accessToken, err := authenticateAccessToken(c.Request.Context(), token, tokenPrefix, tokenRepo)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication failed",
			})
			return
		}

		if accessToken != nil {
			if !accessToken.IsUsable(time.Now()) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Access token expired or revoked",
				})
				return
			}

			// Update last-used timestamp asynchronously. Last-used tracking is
			// best-effort; a failed update is not a correctness problem, and a
			// synchronous write here would add a DB write to every
			// authenticated request. The timeout prevents leaked goroutines if
			// the DB is temporarily unreachable.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tokenRepo.TouchLastUsed(ctx, accessToken.ID)
			}()

			user, err := userRepo.GetUserByID(c.Request.Context(), accessToken.UserID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to load user",
				})
				return
			}
			if user == nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "User not found",
				})
				return
			}

			c.Set("access_token", accessToken)
			c.Set("access_token_id", accessToken.ID)
			c.Set("auth_method", "access_token")
			c.Set("user", user)
			c.Set("user_id", user.ID)

			c.Next()
			return
		}

		// Neither JWT nor access token worked
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid credentials",
		})
	}
}

// authenticateAccessToken attempts to authenticate a token by prefix lookup
// and bcrypt validation. Returns nil, nil when no candidate matches.
func authenticateAccessToken(ctx context.Context, providedToken, tokenPrefix string, tokenRepo *repositories.AccessTokenRepository) (*models.AccessToken, error) {
	tokens, err := tokenRepo.GetTokensByPrefix(ctx, tokenPrefix)
	if err != nil {
		return nil, err
	}

	for _, token := range tokens {
		if auth.ValidateAccessToken(providedToken, token.TokenHash) {
			return token, nil
		}
	}

	return nil, nil
}
