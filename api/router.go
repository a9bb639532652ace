package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagegrab/api/handler"
	"github.com/use-agent/pagegrab/cleaner"
	"github.com/use-agent/pagegrab/config"
	"github.com/use-agent/pagegrab/scraper"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//
// POST /extract serves exactly one request shape, chosen by cfg.Extract.Shape.
func NewRouter(sc *scraper.Scraper, cl *cleaner.Cleaner, ex *cleaner.Extractor, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/", handler.Root())
	r.GET("/health", handler.Health(sc, startTime))
	r.GET("/scrape", handler.Scrape(sc, cl))

	switch cfg.Extract.Shape {
	case config.ExtractShapeURL:
		r.POST("/extract", handler.ExtractURL(sc, ex))
	default:
		r.POST("/extract", handler.ExtractHTML(ex))
	}

	return r
}
