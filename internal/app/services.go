package app

import (
	"fmt"

	"github.com/yungbote/reqmatch-backend/internal/clients/redis"
	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/services"
)

type Services struct {
	Auth     services.AuthService
	Catalog  services.CatalogService
	Matching services.MatchingService
	Engine   *matching.Engine
}

// buildEngine wires the matching engine. With Redis configured the in-process
// lock is taken first so one instance never polls Redis against itself.
func buildEngine(log *logger.Logger, engineCfg matching.Config, repos Repos, clients Clients) (*matching.Engine, error) {
	var locker matching.RequirementLocker = matching.NewKeyedMutex()
	if clients.Redis != nil {
		locker = matching.ChainLockers(
			locker,
			redis.NewRequirementLock(log, clients.Redis, clients.RedisCfg.KeyPrefix, clients.RedisCfg.LockTTL),
		)
	}
	return matching.NewEngine(log, engineCfg, matching.Deps{
		Documents:       repos.Documents,
		Requirements:    repos.Requirements,
		Classifications: repos.Classifications,
		SyncStates:      repos.SyncStates,
		Embedder:        clients.OpenAI,
		Vectors:         clients.Vectors,
		LLM:             clients.OpenAI,
		Locker:          locker,
	})
}

func wireServices(log *logger.Logger, cfg Config, engineCfg matching.Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	engine, err := buildEngine(log, engineCfg, repos, clients)
	if err != nil {
		return Services{}, fmt.Errorf("init matching engine: %w", err)
	}

	var progress services.ProgressPublisher
	if clients.ProgressBus != nil {
		progress = clients.ProgressBus
	}

	return Services{
		Auth:    services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.JWTIssuer),
		Catalog: services.NewCatalogService(log, repos.Documents, repos.Requirements, clients.OpenAI, clients.Vectors, engine.Config().VectorNamespace),
		Matching: services.NewMatchingService(
			log,
			engine,
			repos.Requirements,
			repos.Classifications,
			repos.SyncStates,
			progress,
		),
		Engine: engine,
	}, nil
}
