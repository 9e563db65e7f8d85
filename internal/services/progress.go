package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

// ProgressMessage is a progress event addressed to one owner.
type ProgressMessage struct {
	OwnerUserID uuid.UUID              `json:"owner_user_id"`
	Kind        string                 `json:"kind"`
	Event       matching.ProgressEvent `json:"event"`
	At          time.Time              `json:"at"`
}

type ProgressPublisher interface {
	Publish(ctx context.Context, msg ProgressMessage) error
}

// progressForwarder drains engine events into the publisher and an optional
// caller channel. Both sinks are best effort.
type progressForwarder struct {
	ch   chan matching.ProgressEvent
	done chan struct{}
}

func startProgressForwarder(ctx context.Context, log *logger.Logger, pub ProgressPublisher, caller chan<- matching.ProgressEvent, owner uuid.UUID, kind string) *progressForwarder {
	if pub == nil && caller == nil {
		return nil
	}
	f := &progressForwarder{ch: make(chan matching.ProgressEvent, 64), done: make(chan struct{})}
	pubCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(f.done)
		for ev := range f.ch {
			if caller != nil {
				select {
				case caller <- ev:
				default:
				}
			}
			if pub == nil {
				continue
			}
			sendCtx, cancel := context.WithTimeout(pubCtx, 2*time.Second)
			err := pub.Publish(sendCtx, ProgressMessage{OwnerUserID: owner, Kind: kind, Event: ev, At: time.Now().UTC()})
			cancel()
			if err != nil {
				log.Warn("Progress publish failed", "kind", kind, "status", ev.Status, "error", err)
			}
		}
	}()
	return f
}

// Events returns the channel handed to the engine; nil when nothing listens.
func (f *progressForwarder) Events() chan<- matching.ProgressEvent {
	if f == nil {
		return nil
	}
	return f.ch
}

// Close stops accepting events and waits for the drain.
func (f *progressForwarder) Close() {
	if f == nil {
		return
	}
	close(f.ch)
	<-f.done
}
