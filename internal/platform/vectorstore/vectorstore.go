package vectorstore

import (
	"context"
	"strings"
)

// Store is the provider-neutral vector index used for chunk retrieval.
type Store interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	// Query returns matches ordered by similarity, higher first.
	Query(ctx context.Context, namespace string, q Query) ([]Match, error)
	Delete(ctx context.Context, namespace string, ids []string) error
}

type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Query struct {
	Vector []float32
	TopK   int
	Filter Filter
}

type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Filter uses the $eq / $in / $and operator dialect understood by every provider.
type Filter map[string]any

func Eq(v any) map[string]any { return map[string]any{"$eq": v} }

func In[T any](values []T) map[string]any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return map[string]any{"$in": out}
}

// MetaString reads a string metadata value, tolerating absent keys.
func (m Match) MetaString(key string) string {
	if m.Metadata == nil {
		return ""
	}
	s, _ := m.Metadata[key].(string)
	return strings.TrimSpace(s)
}

// QualifyNamespace prefixes ns, returning the bare prefix for an empty namespace.
func QualifyNamespace(prefix, ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return prefix
	}
	return prefix + ":" + ns
}
