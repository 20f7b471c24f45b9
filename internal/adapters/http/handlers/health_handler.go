package handlers

import (
	"unionpass-api/internal/config"
	"unionpass-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check and diagnostics endpoints
type HealthHandler struct {
	cfg       *config.Config
	checkDB   func() error
	rateLimit string
}

// NewHealthHandler creates a new health handler. checkDB pings the database.
func NewHealthHandler(cfg *config.Config, checkDB func() error) *HealthHandler {
	if checkDB == nil {
		checkDB = config.HealthCheck
	}
	return &HealthHandler{
		cfg:       cfg,
		checkDB:   checkDB,
		rateLimit: cfg.RateLimit.Backend,
	}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "UnionPass API v1.0 is running",
		"mode":    h.cfg.AppMode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API and database health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	status := fiber.StatusOK
	dbStatus := "healthy"
	if err := h.checkDB(); err != nil {
		dbStatus = "unhealthy"
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status": "ok",
		"checks": fiber.Map{
			"api":        "healthy",
			"database":   dbStatus,
			"rate_limit": h.rateLimit,
		},
	})
}

// APIInfo handles API v1 info
// @Summary API v1 Info
// @Description Returns API v1 information
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1 [get]
func (h *HealthHandler) APIInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "UnionPass API v1.0",
		"version": "1.0.0",
	})
}

// DebugEnv reports which feature flags are on (development only)
// @Summary Environment report
// @Description Which feature flags are set. Development only.
// @Tags Debug
// @Produce json
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /debug/env [get]
func (h *HealthHandler) DebugEnv(c *fiber.Ctx) error {
	flags := []string{config.FlagAllowDemoRoleUpgrade, config.FlagAllowUserManagement}

	env := fiber.Map{
		"APP_MODE":        h.cfg.AppMode,
		"ENV_FILE_LOADED": h.cfg.EnvFileLoaded,
		"DB_DRIVER":       h.cfg.Database.Driver,
		"RATE_LIMIT":      h.cfg.RateLimit.Backend,
	}
	recommendations := fiber.Map{}
	for _, flag := range flags {
		enabled := h.cfg.FlagEnabled(flag)
		env[flag] = enabled
		if enabled {
			recommendations[flag] = "enabled"
		} else {
			recommendations[flag] = "disabled, set " + flag + "=true to enable"
		}
	}

	return response.Success(c, "Environment check for debugging", fiber.Map{
		"environment":     env,
		"recommendations": recommendations,
	})
}
