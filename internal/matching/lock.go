package matching

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/reqmatch-backend/internal/observability"
)

// RequirementLocker serializes passes over one requirement. Lock blocks until
// the lock is acquired or ctx is done; the returned func releases it.
type RequirementLocker interface {
	Lock(ctx context.Context, requirementID uuid.UUID) (func(), error)
}

// KeyedMutex is an in-process RequirementLocker.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: map[uuid.UUID]*slot{}}
}

func (k *KeyedMutex) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	k.mu.Lock()
	s := k.slots[id]
	if s == nil {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[id] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		observability.Current().IncRequirementLock("local", "acquired")
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				k.release(id, s)
			})
		}, nil
	case <-ctx.Done():
		k.release(id, s)
		observability.Current().IncRequirementLock("local", "timeout")
		return nil, errors.Join(ErrLockHeld, ctx.Err())
	}
}

func (k *KeyedMutex) release(id uuid.UUID, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, id)
	}
}

// ChainLockers acquires each locker in order and releases in reverse.
func ChainLockers(lockers ...RequirementLocker) RequirementLocker {
	out := make(chainLocker, 0, len(lockers))
	for _, l := range lockers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

type chainLocker []RequirementLocker

func (c chainLocker) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	releases := make([]func(), 0, len(c))
	unlockAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, l := range c {
		release, err := l.Lock(ctx, id)
		if err != nil {
			unlockAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return unlockAll, nil
}
