package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/records-timeline/internal/config"
	"github.com/jengzang/records-timeline/internal/handler"
	"github.com/jengzang/records-timeline/internal/metrics"
	"github.com/jengzang/records-timeline/internal/middleware"
	"github.com/jengzang/records-timeline/internal/service"
	"github.com/jengzang/records-timeline/pkg/response"
)

// SetupRouter wires handlers onto a gin engine. The rate limiter's sweeper
// runs until stop is closed; a nil stop never sweeps.
func SetupRouter(cfg *config.Config, services *service.Services, m *metrics.Metrics, stop <-chan struct{}) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger(), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		response.InternalError(c, "Internal server error", fmt.Errorf("panic: %v", recovered))
	}))
	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Timeline API is running",
		})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	sampleHandler := handler.NewSampleHandler(services.Samples)
	dayHandler := handler.NewDayHandler(services)
	anchorHandler := handler.NewAnchorHandler(services.Anchors)

	api := r.Group("/api/v1")
	api.Use(middleware.Auth([]byte(cfg.Server.JWTSecret)))
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, time.Minute)
		if stop != nil {
			go limiter.Run(stop)
		}
		api.Use(middleware.RateLimit(limiter))
	}
	{
		samples := api.Group("/samples")
		{
			samples.POST("", sampleHandler.Ingest)
			samples.DELETE("", sampleHandler.Clear)
			samples.GET("/pending", sampleHandler.GetPending)
			samples.POST("/flush", sampleHandler.Flush)
		}

		days := api.Group("/days/:date")
		{
			days.GET("/blocks", dayHandler.GetBlocks)
			days.POST("/reprocess", dayHandler.Reprocess)
			days.GET("/summary", dayHandler.GetSummary)
			days.GET("/verification", dayHandler.GetVerification)
			days.GET("/anomalies", dayHandler.GetAnomalies)
			days.GET("/predictions", dayHandler.GetPredictions)
		}

		anchors := api.Group("/anchors")
		{
			anchors.GET("", anchorHandler.ListAnchors)
			anchors.PUT("/:id", anchorHandler.ConfirmAnchor)
		}
	}

	return r
}
