package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/reqmatch-backend/internal/http/handlers"
	httpMW "github.com/yungbote/reqmatch-backend/internal/http/middleware"
	"github.com/yungbote/reqmatch-backend/internal/observability"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware

	RequirementHandler *httpH.RequirementHandler
	DocumentHandler    *httpH.DocumentHandler
	HealthHandler      *httpH.HealthHandler
	MetricsHandler     gin.HandlerFunc
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("reqmatch"))
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(observability.Current()))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", cfg.MetricsHandler)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Requirements
	if cfg.RequirementHandler != nil {
		api.POST("/requirements", cfg.RequirementHandler.Create)
		api.GET("/requirements", cfg.RequirementHandler.List)
		api.POST("/requirements/:id/sync", cfg.RequirementHandler.Sync)
		api.GET("/requirements/:id/classifications", cfg.RequirementHandler.ListClassifications)
		api.GET("/requirements/:id/matches", cfg.RequirementHandler.ListMatches)
		api.GET("/requirements/:id/sync-state", cfg.RequirementHandler.GetSyncState)
	}

	// Documents
	if cfg.DocumentHandler != nil {
		api.POST("/documents", cfg.DocumentHandler.Create)
		api.GET("/documents", cfg.DocumentHandler.List)
		api.PUT("/documents/:id/chunks", cfg.DocumentHandler.IndexChunks)
		api.POST("/documents/:id/classify", cfg.DocumentHandler.Classify)
	}

	return r
}
