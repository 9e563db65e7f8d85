package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/reqmatch-backend/internal/clients/redis"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/platform/openai"
	"github.com/yungbote/reqmatch-backend/internal/platform/vectorstore"
)

type Clients struct {
	OpenAI         openai.Client
	Vectors        vectorstore.Store
	VectorProvider VectorProvider

	// Redis, RedisCfg and ProgressBus are zero when REDIS_ADDR is unset.
	Redis       *goredis.Client
	RedisCfg    redis.Config
	ProgressBus redis.ProgressBus
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	vectors, provider, err := openVectorStore(ctx, log, cfg.VectorProvider)
	if err != nil {
		return Clients{}, err
	}

	out := Clients{OpenAI: openaiClient, Vectors: vectors, VectorProvider: provider}

	rcfg := redis.ConfigFromEnv()
	if rcfg.Enabled() {
		rdb, err := redis.Dial(ctx, rcfg)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		bus, err := redis.NewProgressBus(log, rdb, rcfg.Channel)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis progress bus: %w", err)
		}
		out.Redis = rdb
		out.RedisCfg = rcfg
		out.ProgressBus = bus
	} else {
		log.Info("REDIS_ADDR not set; using in-process requirement locks only")
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.ProgressBus != nil {
		_ = c.ProgressBus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
