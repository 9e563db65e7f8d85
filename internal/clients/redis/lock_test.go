package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	return Config{Addr: addr, Channel: "reqmatch.test." + uuid.NewString(), KeyPrefix: "reqmatch-test"}
}

func TestRequirementLockExcludesSecondHolder(t *testing.T) {
	cfg := testConfig(t)
	rdb, err := Dial(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer rdb.Close()

	lock := NewRequirementLock(logger.NewNop(), rdb, cfg.KeyPrefix, time.Second)
	id := uuid.New()

	unlock, err := lock.Lock(context.Background(), id)
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := lock.Lock(ctx, id); !errors.Is(err, matching.ErrLockHeld) {
		t.Fatalf("second Lock: want ErrLockHeld got=%v", err)
	}

	unlock()
	again, err := lock.Lock(context.Background(), id)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	again()
}

func TestRequirementLockSurvivesPastTTLWhileHeld(t *testing.T) {
	cfg := testConfig(t)
	rdb, err := Dial(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer rdb.Close()

	lock := NewRequirementLock(logger.NewNop(), rdb, cfg.KeyPrefix, 300*time.Millisecond)
	id := uuid.New()
	unlock, err := lock.Lock(context.Background(), id)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	time.Sleep(700 * time.Millisecond)
	if n, err := rdb.Exists(context.Background(), lock.key(id)).Result(); err != nil || n != 1 {
		t.Fatalf("key expired while held: n=%d err=%v", n, err)
	}
}

func TestLockKeyFormat(t *testing.T) {
	lock := NewRequirementLock(logger.NewNop(), nil, "", 0)
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	if got, want := lock.key(id), "reqmatch:lock:requirement:00000000-0000-0000-0000-000000000001"; got != want {
		t.Fatalf("key: want=%s got=%s", want, got)
	}
	if lock.ttl != 2*time.Minute {
		t.Fatalf("default ttl: got=%s", lock.ttl)
	}
}
