// Package httpapi exposes the placement engine over HTTP using gin.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/piwi3910/GridCut/internal/metrics"
)

// RouterConfig holds router configuration options.
type RouterConfig struct {
	CORSOrigins []string
	Compress    bool
}

// NewRouter creates and configures the gin engine.
func NewRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(
		CORS(cfg.CORSOrigins),
		RequestID(),
		Recovery(),
		metrics.PrometheusMiddleware(),
		RequestLogger(),
	)
	if cfg.Compress {
		router.Use(Compression())
	}

	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/placements/next", handler.NextPlacement)
		v1.POST("/runs", handler.Run)

		sessions := v1.Group("/sessions")
		sessions.POST("", handler.CreateSession)
		sessions.GET("/:id", handler.GetSession)
		sessions.DELETE("/:id", handler.DeleteSession)
		sessions.POST("/:id/step", handler.StepSession)
		sessions.POST("/:id/undo", handler.UndoSession)
		sessions.POST("/:id/redo", handler.RedoSession)
	}

	return router
}
