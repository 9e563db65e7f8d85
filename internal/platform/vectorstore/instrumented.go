package vectorstore

import (
	"context"
	"time"

	"github.com/yungbote/reqmatch-backend/internal/observability"
)

type instrumented struct {
	provider string
	inner    Store
	metrics  *observability.Metrics
}

// Instrument wraps inner so each call is recorded in the vector store metrics.
func Instrument(provider string, inner Store) Store {
	if inner == nil {
		return nil
	}
	return &instrumented{provider: provider, inner: inner, metrics: observability.Current()}
}

func (s *instrumented) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, namespace, vectors)
	s.observe("upsert", err, time.Since(start))
	return err
}

func (s *instrumented) Query(ctx context.Context, namespace string, q Query) ([]Match, error) {
	start := time.Now()
	out, err := s.inner.Query(ctx, namespace, q)
	s.observe("query", err, time.Since(start))
	return out, err
}

func (s *instrumented) Delete(ctx context.Context, namespace string, ids []string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, namespace, ids)
	s.observe("delete", err, time.Since(start))
	return err
}

func (s *instrumented) observe(operation string, err error, dur time.Duration) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveVectorStoreOperation(s.provider, operation, status, dur)
}
