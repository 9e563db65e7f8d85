package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process Store using cosine similarity. It understands the
// same filter dialect as the remote providers and backs tests and local runs.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]Vector
}

func NewMemory() *Memory {
	return &Memory{data: map[string]map[string]Vector{}}
}

func (m *Memory) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.data[namespace]
	if ns == nil {
		ns = map[string]Vector{}
		m.data[namespace] = ns
	}
	for _, v := range vectors {
		if v.ID == "" {
			return fmt.Errorf("vector id is required")
		}
		ns[v.ID] = v
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, namespace string, q Query) ([]Match, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Match{}
	for id, v := range m.data[namespace] {
		ok, err := matchesFilter(v.Metadata, q.Filter)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, Match{ID: id, Score: cosine(q.Vector, v.Values), Metadata: v.Metadata})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	if q.TopK > 0 && len(out) > q.TopK {
		out = out[:q.TopK]
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, namespace string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.data[namespace], id)
	}
	return nil
}

func matchesFilter(meta map[string]any, f map[string]any) (bool, error) {
	for key, cond := range f {
		if key == "$and" {
			items, ok := cond.([]any)
			if !ok {
				return false, fmt.Errorf("$and expects an array")
			}
			for _, it := range items {
				sub, ok := it.(map[string]any)
				if !ok {
					return false, fmt.Errorf("$and expects objects")
				}
				if ok, err := matchesFilter(meta, sub); err != nil || !ok {
					return false, err
				}
			}
			continue
		}
		val := meta[key]
		ops, isOps := cond.(map[string]any)
		if !isOps {
			ops = map[string]any{"$eq": cond}
		}
		for op, arg := range ops {
			switch op {
			case "$eq":
				if fmt.Sprint(val) != fmt.Sprint(arg) {
					return false, nil
				}
			case "$ne":
				if fmt.Sprint(val) == fmt.Sprint(arg) {
					return false, nil
				}
			case "$in":
				items, ok := arg.([]any)
				if !ok {
					return false, fmt.Errorf("$in expects an array")
				}
				found := false
				for _, it := range items {
					if fmt.Sprint(it) == fmt.Sprint(val) {
						found = true
						break
					}
				}
				if !found {
					return false, nil
				}
			default:
				return false, fmt.Errorf("unsupported filter operator %q", op)
			}
		}
	}
	return true, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
