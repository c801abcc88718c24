package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storeforge/prodscrape/api/handler"
	"github.com/storeforge/prodscrape/api/middleware"
	"github.com/storeforge/prodscrape/cache"
	"github.com/storeforge/prodscrape/config"
	"github.com/storeforge/prodscrape/engine"
	"github.com/storeforge/prodscrape/scraper"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(sc *scraper.Scraper, browser *engine.Browser, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(browser, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Scrape
	protected.POST("/scrape", handler.Scrape(sc, cc))

	// Batch
	batchDeps := handler.BatchDeps{
		MaxConcurrent: cfg.PagePool.HardMax,
		WebhookSecret: cfg.Webhook.SigningSecret,
	}
	protected.POST("/batch/scrape", handler.PostBatch(sc, batchDeps))
	protected.GET("/batch/:id", handler.GetBatch())

	return r
}
