package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/reqmatch-backend/internal/http"
	httpH "github.com/yungbote/reqmatch-backend/internal/http/handlers"
	httpMW "github.com/yungbote/reqmatch-backend/internal/http/middleware"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Requirement *httpH.RequirementHandler
	Document    *httpH.DocumentHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(),
		Requirement: httpH.NewRequirementHandler(log, services.Catalog, services.Matching),
		Document:    httpH.NewDocumentHandler(log, services.Catalog, services.Matching),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{Auth: httpMW.NewAuthMiddleware(log, services.Auth)}
}

func wireRouter(log *logger.Logger, handlers Handlers, middleware Middleware, metricsHandler gin.HandlerFunc) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:                log,
		AuthMiddleware:     middleware.Auth,
		HealthHandler:      handlers.Health,
		RequirementHandler: handlers.Requirement,
		DocumentHandler:    handlers.Document,
		MetricsHandler:     metricsHandler,
	})
}
