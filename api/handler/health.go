package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagegrab/models"
	"github.com/use-agent/pagegrab/scraper"
)

// Version is reported by GET /health.
const Version = "0.1.0"

// degradedUtilisation is the share of busy sessions above which /health
// reports "degraded".
const degradedUtilisation = 0.8

// Root returns a handler for GET /.
func Root() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "Hello World!")
	}
}

// Health returns a handler for GET /health.
//
// Reports session utilisation and degrades status when > 80% of sessions are
// active.
func Health(sc *scraper.Scraper, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sc.Stats()

		status := "healthy"
		if stats.MaxSessions > 0 && float64(stats.ActiveSessions) > float64(stats.MaxSessions)*degradedUtilisation {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			SessionStats: stats,
			Version:      Version,
		})
	}
}
