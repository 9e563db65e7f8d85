package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/observability"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

var (
	releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RequirementLock is a matching.RequirementLocker shared by every replica.
// The key expires after ttl unless the holder keeps extending it.
type RequirementLock struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

var _ matching.RequirementLocker = (*RequirementLock)(nil)

func NewRequirementLock(log *logger.Logger, rdb goredis.UniversalClient, prefix string, ttl time.Duration) *RequirementLock {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if prefix == "" {
		prefix = "reqmatch"
	}
	return &RequirementLock{
		log:    log.With("service", "RedisRequirementLock"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		poll:   100 * time.Millisecond,
	}
}

func (l *RequirementLock) key(id uuid.UUID) string {
	return fmt.Sprintf("%s:lock:requirement:%s", l.prefix, id)
}

func (l *RequirementLock) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	key := l.key(id)
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				observability.Current().IncRequirementLock("redis", "timeout")
				return nil, errors.Join(matching.ErrLockHeld, ctx.Err())
			}
			observability.Current().IncRequirementLock("redis", "error")
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			observability.Current().IncRequirementLock("redis", "timeout")
			return nil, errors.Join(matching.ErrLockHeld, ctx.Err())
		case <-t.C:
		}
	}
	observability.Current().IncRequirementLock("redis", "acquired")

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil {
				l.log.Warn("Redis lock release failed", "key", key, "error", err)
			}
		})
	}, nil
}

// keepAlive extends the key every ttl/3 while the holder runs.
func (l *RequirementLock) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	tick := time.NewTicker(l.ttl / 3)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := extendScript.Run(ctx, l.rdb, []string{key}, token, l.ttl.Milliseconds()).Int64()
			cancel()
			if err != nil {
				l.log.Warn("Redis lock extend failed", "key", key, "error", err)
				continue
			}
			if n == 0 {
				l.log.Warn("Redis lock lost before release", "key", key)
				return
			}
		}
	}
}
