package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storeforge/prodscrape/engine"
	"github.com/storeforge/prodscrape/models"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports page pool utilisation and degrades status when > 80% of pages are
// active. HTTP-only deployments pass a nil browser and always report healthy.
func Health(browser *engine.Browser, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats models.PoolStats
		if browser != nil {
			maxPages, livePages, activePages := browser.Stats()
			stats = models.PoolStats{
				MaxPages:    maxPages,
				LivePages:   livePages,
				ActivePages: activePages,
			}
		}

		status := "healthy"
		if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
			Version:   "0.1.0",
		})
	}
}
