package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagegrab/api/handler"
	"github.com/use-agent/pagegrab/api/middleware"
	"github.com/use-agent/pagegrab/config"
	"github.com/use-agent/pagegrab/scraper"
	"github.com/use-agent/pagegrab/store"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     RateLimit
//
// Health is outside the rate limit so monitoring probes always work.
func NewRouter(sc *scraper.Scraper, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(startTime))

	limited := v1.Group("")
	limited.Use(middleware.RateLimit(cfg.RateLimit))

	defaults := scraper.FetchOptions{
		RetryCount: cfg.Fetch.RetryCount,
		BaseDelay:  cfg.Fetch.BaseDelay,
	}
	limited.POST("/fetch", handler.Fetch(sc, defaults, store.NewNamer(cfg.Output.Dir, cfg.Output.Prefix)))

	return r
}
