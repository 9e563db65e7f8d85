package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/reqmatch-backend/internal/platform/envutil"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	// KeyPrefix namespaces lock keys.
	KeyPrefix string
	LockTTL   time.Duration
}

// ConfigFromEnv reads REDIS_* variables. An empty Addr disables Redis.
func ConfigFromEnv() Config {
	return Config{
		Addr:      strings.TrimSpace(envutil.String("REDIS_ADDR", "")),
		Password:  envutil.String("REDIS_PASSWORD", ""),
		DB:        envutil.Int("REDIS_DB", 0),
		Channel:   envutil.String("REDIS_CHANNEL", "reqmatch.progress"),
		KeyPrefix: envutil.String("REDIS_KEY_PREFIX", "reqmatch"),
		LockTTL:   envutil.Seconds("REDIS_LOCK_TTL_SECONDS", 2*time.Minute),
	}
}

func (c Config) Enabled() bool { return c.Addr != "" }

// Dial connects and pings.
func Dial(ctx context.Context, cfg Config) (*goredis.Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
