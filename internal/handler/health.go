package handler

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/deppfellow/spoon/internal/middleware"
	"github.com/deppfellow/spoon/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler reports whether Postgres and Redis are reachable.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// CheckHealth answers 503 when the database is down. Redis only backs the
// listing cache and the prune queue, so a Redis outage reports "degraded".
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	checks := map[string]any{}
	status := "healthy"

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout())
	defer cancel()

	if h.enabled("database") {
		dbCheck, err := runCheck(func() error { return h.server.DB.Pool.Ping(ctx) })
		checks["database"] = dbCheck
		if err != nil {
			status = "unhealthy"
			h.recordFailure(&logger, "database", err)
		}
	}

	if h.server.Redis != nil && h.enabled("redis") {
		redisCheck, err := runCheck(func() error { return h.server.Redis.Ping(ctx).Err() })
		checks["redis"] = redisCheck
		if err != nil {
			if status == "healthy" {
				status = "degraded"
			}
			h.recordFailure(&logger, "redis", err)
		}
	}

	response := map[string]any{
		"status":      status,
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      checks,
	}

	if status == "unhealthy" {
		logger.Warn().Dur("total_duration", time.Since(start)).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Info().Dur("total_duration", time.Since(start)).Str("status", status).Msg("health check passed")

	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}

// enabled reports whether name is among the configured checks. Without an
// observability block every check runs.
func (h *HealthHandler) enabled(name string) bool {
	obs := h.server.Config.Observability
	if obs == nil {
		return true
	}
	return obs.HealthChecks.Enabled && slices.Contains(obs.HealthChecks.Checks, name)
}

func (h *HealthHandler) timeout() time.Duration {
	if obs := h.server.Config.Observability; obs != nil && obs.HealthChecks.Timeout > 0 {
		return obs.HealthChecks.Timeout
	}
	return healthCheckTimeout
}

func runCheck(ping func() error) (map[string]any, error) {
	start := time.Now()
	err := ping()

	check := map[string]any{
		"status":        "healthy",
		"response_time": time.Since(start).String(),
	}
	if err != nil {
		check["status"] = "unhealthy"
		check["error"] = err.Error()
	}
	return check, err
}

func (h *HealthHandler) recordFailure(logger *zerolog.Logger, check string, err error) {
	logger.Error().Err(err).Str("check", check).Msg("health check failed")

	if h.server.LoggerService != nil && h.server.LoggerService.GetApplication() != nil {
		h.server.LoggerService.GetApplication().RecordCustomEvent("HealthCheckError", map[string]any{
			"check_type":    check,
			"operation":     "health_check",
			"error_type":    check + "_unhealthy",
			"error_message": err.Error(),
		})
	}
}
