package api

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengzang/moodmap-backend-go/internal/config"
	"github.com/jengzang/moodmap-backend-go/internal/handler"
	"github.com/jengzang/moodmap-backend-go/internal/metrics"
	"github.com/jengzang/moodmap-backend-go/internal/middleware"
	"github.com/jengzang/moodmap-backend-go/internal/service"
)

// Dependencies are the services the router exposes
type Dependencies struct {
	Moods   *service.MoodService
	Maps    *service.MapService
	Metrics *metrics.Metrics
	Limiter *middleware.RateLimiter
	Logger  *zap.Logger
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "MoodMap API is running",
			"ready":   deps.Maps.Ready(),
			"moods":   deps.Moods.Count(),
			"map":     deps.Maps.Report(),
		})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	r.Static("/mood-icons", filepath.Join(cfg.AssetDir, "mood-icons"))

	moodHandler := handler.NewMoodHandler(deps.Moods)
	mapHandler := handler.NewMapHandler(deps.Maps, cfg.MapConfig())

	// API 路由组
	api := r.Group("/api/v1")
	if deps.Limiter != nil {
		api.Use(middleware.RateLimit(deps.Limiter))
	}
	{
		api.GET("/config", mapHandler.GetConfig)
		api.GET("/icons/:mood", mapHandler.GetIcon)

		moods := api.Group("/moods")
		{
			moods.GET("", moodHandler.ListMoods)
			moods.POST("", moodHandler.CreateMood)
			moods.GET("/options", moodHandler.GetOptions)
		}

		m := api.Group("/map")
		{
			m.GET("/source", mapHandler.GetSource)
			m.GET("/clusters", mapHandler.GetClusters)
			m.GET("/clusters/:id/expansion-zoom", mapHandler.GetExpansionZoom)
			m.GET("/clusters/:id/children", mapHandler.GetChildren)
			m.GET("/clusters/:id/leaves", mapHandler.GetLeaves)
			m.GET("/render", mapHandler.GetRender)
			m.PUT("/camera", mapHandler.UpdateCamera)
			m.POST("/click", mapHandler.Click)
		}
	}

	return r
}
