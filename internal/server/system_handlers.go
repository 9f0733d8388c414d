package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"makerspace/internal/api"
	"makerspace/internal/logger"
)

// @Summary      Health check
// @Description  Reports database and Redis reachability. 503 when the database is down.
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Failure      503 {object} api.HealthResponse
// @Router       /health [get]
func Health(checks HealthChecks) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		resp := api.HealthResponse{
			Status:   "ok",
			Database: checkDependency(ctx, "database", checks.Database),
			Redis:    checkDependency(ctx, "redis", checks.Redis),
		}

		status := http.StatusOK
		if resp.Database == "down" {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}

func checkDependency(ctx context.Context, name string, check HealthCheck) string {
	if check == nil {
		return "disabled"
	}
	if err := check(ctx); err != nil {
		logger.WithError(err).Warnw("Health check failed", "dependency", name)
		return "down"
	}
	return "ok"
}

// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
