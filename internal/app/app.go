package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/reqmatch-backend/internal/data/db"
	"github.com/yungbote/reqmatch-backend/internal/http"
	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/observability"
	"github.com/yungbote/reqmatch-backend/internal/platform/envutil"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/services"
)

// Core is everything needed to run matching without the HTTP surface.
type Core struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Cfg       Config
	EngineCfg matching.Config
	Repos     Repos
	Clients   Clients
	Services  Services

	otelShutdown func(context.Context) error
}

type App struct {
	*Core
	Router  *gin.Engine
	Server  *http.Server
	Metrics *observability.Metrics
	cancel  context.CancelFunc
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func NewCore(ctx context.Context, log *logger.Logger) (*Core, error) {
	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	engineCfg, err := matching.LoadConfig(cfg.EngineConfigPath)
	if err != nil {
		return nil, err
	}

	observability.Init(log)
	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "reqmatch"),
		Environment: cfg.Environment,
		Version:     envutil.String("APP_VERSION", ""),
	})

	gdb, err := db.Open(log, db.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	reposet := wireRepos(gdb, log)
	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		return nil, err
	}
	serviceset, err := wireServices(log, cfg, engineCfg, reposet, clients)
	if err != nil {
		clients.Close()
		return nil, err
	}

	return &Core{
		Log:          log,
		DB:           gdb,
		Cfg:          cfg,
		EngineCfg:    engineCfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		otelShutdown: shutdown,
	}, nil
}

func (c *Core) Close() {
	if c == nil {
		return
	}
	c.Clients.Close()
	if c.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = c.otelShutdown(ctx)
		cancel()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if c.Log != nil {
		c.Log.Sync()
	}
}

func New() (*App, error) {
	log, err := NewLogger()
	if err != nil {
		return nil, err
	}
	core, err := NewCore(context.Background(), log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	metrics := observability.Current()
	var metricsHandler gin.HandlerFunc
	if metrics != nil && core.Cfg.MetricsAddr == "" {
		metricsHandler = gin.WrapF(metrics.WriteHTTP)
	}

	handlerset := wireHandlers(log, core.Services)
	middleware := wireMiddleware(log, core.Services)
	router := wireRouter(log, handlerset, middleware, metricsHandler)

	return &App{
		Core:    core,
		Router:  router,
		Server:  &http.Server{Engine: router},
		Metrics: metrics,
	}, nil
}

// Start launches background work: the metrics listener and the cross-instance
// progress subscriber.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)

	if bus := a.Clients.ProgressBus; bus != nil {
		progressLog := a.Log.With("component", "ProgressSubscriber")
		if err := bus.StartForwarder(ctx, func(m services.ProgressMessage) {
			progressLog.Debug("Progress",
				"owner_user_id", m.OwnerUserID,
				"kind", m.Kind,
				"status", m.Event.Status,
				"progress", m.Event.Progress,
				"requirement_id", m.Event.RequirementID,
				"document_id", m.Event.DocumentID,
			)
		}); err != nil {
			a.Log.Warn("Progress subscriber not started", "error", err)
		}
	}
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run(a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = a.Server.Shutdown(ctx)
		cancel()
	}
	a.Core.Close()
}
