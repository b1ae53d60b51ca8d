// Package api wires together all HTTP routes for the organization access console.
//
// Route grouping philosophy:
//   - /organization/:organizationId/... are the audit log endpoints. They require
//     authentication plus membership in the path organization; non-members get a
//     403 that does not reveal whether the organization exists.
//   - /api/v1/ carries console management routes (users, organizations, members,
//     access tokens). Authentication only; these are operator-facing.
//   - /health, /ready and /version are unauthenticated probes.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/org-console/org-console/internal/api/admin"
	"github.com/org-console/org-console/internal/api/auditlogs"
	"github.com/org-console/org-console/internal/audit"
	"github.com/org-console/org-console/internal/config"
	"github.com/org-console/org-console/internal/db/repositories"
	"github.com/org-console/org-console/internal/jobs"
	"github.com/org-console/org-console/internal/middleware"
	"github.com/org-console/org-console/internal/safego"
)

// Version is the reported application version, overridable at build time with
// -ldflags "-X github.com/org-console/org-console/internal/api.Version=...".
var Version = "0.1.0"

// BackgroundServices holds references to background resources that must be
// stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	shipper        audit.Shipper
	expiryNotifier *jobs.TokenExpiryNotifier
	rateLimiters   []*middleware.RateLimiter
}

// Shutdown stops all background goroutines and flushes pending shipped events.
// It should be called after the HTTP server has been shut down so that
// in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.expiryNotifier != nil {
		bg.expiryNotifier.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.shipper != nil {
		if err := bg.shipper.Close(); err != nil {
			slog.Warn("failed to close audit shipper", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices, error) {
	router := gin.New()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	tokenRepo := repositories.NewAccessTokenRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)

	// Initialize the audit pipeline. The recorder is shared by every handler
	// that mutates state so all events flow through the same shippers.
	shipper, err := audit.NewMultiShipper(cfg.Audit.Shippers)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize audit shippers: %w", err)
	}
	recorder := audit.NewRecorder(auditRepo, shipper)

	background := &BackgroundServices{shipper: shipper}

	// Warn about access tokens approaching expiry via the audit log
	expiryNotifier := jobs.NewTokenExpiryNotifier(tokenRepo, recorder, cfg)
	background.expiryNotifier = expiryNotifier
	safego.Go(func() { expiryNotifier.Start(context.Background()) })

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health, readiness and version endpoints
	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db))
	router.GET("/version", versionHandler())

	authRequired := middleware.AuthMiddleware(userRepo, tokenRepo)

	// Audit log endpoints, scoped to one organization per request
	auditHandlers := auditlogs.NewAuditLogHandlers(cfg, db, recorder)
	orgGroup := router.Group("/organization/:" + middleware.OrgIDParam)
	orgGroup.Use(authRequired)
	orgGroup.Use(middleware.RequireOrgMember(orgRepo))
	{
		orgGroup.GET("/logs", auditHandlers.ListLogsHandler())
		orgGroup.GET("/stats", auditHandlers.GetStatsHandler())

		// Ingestion gets its own limiter; recorded events arrive in bursts
		if cfg.Security.RateLimiting.Enabled {
			ingestLimiter := middleware.NewRateLimiter(middleware.IngestRateLimitConfig())
			background.rateLimiters = append(background.rateLimiters, ingestLimiter)
			orgGroup.POST("/logs", middleware.RateLimitMiddleware(ingestLimiter), auditHandlers.CreateLogHandler())
		} else {
			orgGroup.POST("/logs", auditHandlers.CreateLogHandler())
		}
	}

	// Console management endpoints
	userHandlers := admin.NewUserHandlers(cfg, db, recorder)
	orgHandlers := admin.NewOrganizationHandlers(cfg, db, recorder)
	tokenHandlers := admin.NewTokenHandlers(cfg, db, recorder)

	apiV1 := router.Group("/api/v1")
	apiV1.Use(authRequired)
	if cfg.Security.RateLimiting.Enabled {
		apiLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
		background.rateLimiters = append(background.rateLimiters, apiLimiter)
		apiV1.Use(middleware.RateLimitMiddleware(apiLimiter))
	}
	{
		apiV1.GET("/users", userHandlers.ListUsersHandler())
		apiV1.GET("/users/:id", userHandlers.GetUserHandler())
		apiV1.POST("/users", userHandlers.CreateUserHandler())
		apiV1.PUT("/users/:id", userHandlers.UpdateUserHandler())
		apiV1.DELETE("/users/:id", userHandlers.DeleteUserHandler())

		apiV1.GET("/organizations", orgHandlers.ListOrganizationsHandler())
		apiV1.GET("/organizations/:id", orgHandlers.GetOrganizationHandler())
		apiV1.POST("/organizations", orgHandlers.CreateOrganizationHandler())
		apiV1.PUT("/organizations/:id", orgHandlers.UpdateOrganizationHandler())
		apiV1.DELETE("/organizations/:id", orgHandlers.DeleteOrganizationHandler())
		apiV1.GET("/organizations/:id/members", orgHandlers.ListMembersHandler())
		apiV1.POST("/organizations/:id/members", orgHandlers.AddMemberHandler())
		apiV1.DELETE("/organizations/:id/members/:userId", orgHandlers.RemoveMemberHandler())

		apiV1.POST("/tokens", tokenHandlers.CreateTokenHandler())
		apiV1.GET("/tokens", tokenHandlers.ListTokensHandler())
		apiV1.DELETE("/tokens/:id", tokenHandlers.RevokeTokenHandler())
	}

	return router, background, nil
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service. The database is
// the only hard dependency; shippers are fire-and-forget and never gate traffic.
func readinessHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
