package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/reqmatch-backend/internal/pkg/httpx"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/platform/vectorstore"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"result": result, "status": "ok", "time": 0.001})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(raw))}
}

// newTestVectorStore answers the bootstrap collection lookup then delegates to handler.
func newTestVectorStore(t *testing.T, distance string, handler roundTripFunc) *vectorStore {
	t.Helper()
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.Method == http.MethodGet && r.URL.Path == "/collections/chunks" {
			return okResponse(t, map[string]any{
				"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": 3, "distance": distance}}},
			}), nil
		}
		return handler(r)
	})
	s, err := newVectorStore(context.Background(), logger.NewNop(), Config{
		URL: "http://qdrant.local", Collection: "chunks", NamespacePrefix: "rm", VectorDim: 3,
	}, rt)
	if err != nil {
		t.Fatalf("newVectorStore: %v", err)
	}
	return s
}

func TestBootstrapRejectsDimensionMismatch(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return okResponse(t, map[string]any{
			"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": 8}}},
		}), nil
	})
	_, err := newVectorStore(context.Background(), logger.NewNop(), Config{
		URL: "http://qdrant.local", Collection: "chunks", VectorDim: 3,
	}, rt)
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Code != OperationErrorValidation {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestUpsertWritesNamespacedPayload(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, "Cosine", func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/chunks/points" || r.URL.RawQuery != "wait=true" {
			t.Fatalf("unexpected request %s %s?%s", r.Method, r.URL.Path, r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	meta := map[string]any{"document_id": "d1"}
	err := s.Upsert(context.Background(), "chunks", []vectorstore.Vector{{ID: "c1", Values: []float32{1, 2, 3}, Metadata: meta}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	point := captured["points"].([]any)[0].(map[string]any)
	if point["id"] != pointID("rm:chunks", "c1") {
		t.Fatalf("point id mismatch: got=%v", point["id"])
	}
	payload := point["payload"].(map[string]any)
	if payload[payloadNamespaceKey] != "rm:chunks" || payload[payloadVectorIDKey] != "c1" || payload["document_id"] != "d1" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, mutated := meta[payloadVectorIDKey]; mutated {
		t.Fatalf("input metadata mutated")
	}
}

func TestQueryReturnsMetadataAndNormalizesScores(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, "Euclid", func(r *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{"id": "p-b", "score": 0.9, "payload": map[string]any{payloadVectorIDKey: "c-b", "document_id": "d2"}},
			{"id": "p-a", "score": 0.1, "payload": map[string]any{payloadVectorIDKey: "c-a", "document_id": "d1", "filename": "a.pdf"}},
		}), nil
	})

	got, err := s.Query(context.Background(), "chunks", vectorstore.Query{
		Vector: []float32{1, 2, 3},
		TopK:   20,
		Filter: vectorstore.Filter{"owner_id": vectorstore.Eq("u1")},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c-a" || got[1].ID != "c-b" {
		t.Fatalf("ordering mismatch: %+v", got)
	}
	if got[0].MetaString("filename") != "a.pdf" {
		t.Fatalf("metadata missing: %+v", got[0].Metadata)
	}
	if _, leaked := got[0].Metadata[payloadNamespaceKey]; leaked {
		t.Fatalf("internal payload key leaked into metadata")
	}
	if captured["limit"].(float64) != 20 {
		t.Fatalf("limit: got=%v", captured["limit"])
	}
	must := captured["filter"].(map[string]any)["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("want namespace + owner conditions, got=%v", must)
	}
}

func TestQueryUpstreamFailureIsRetryableStatus(t *testing.T) {
	s := newTestVectorStore(t, "Cosine", func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 503, Header: http.Header{}, Body: io.NopCloser(bytes.NewReader([]byte("down")))}, nil
	})
	_, err := s.Query(context.Background(), "", vectorstore.Query{Vector: []float32{1, 2, 3}})
	var oe *OperationError
	if !errors.As(err, &oe) || oe.StatusCode != 503 {
		t.Fatalf("want 503 OperationError, got %v", err)
	}
	if !httpx.IsRetryableError(err) {
		t.Fatalf("503 should classify as retryable")
	}
}

func TestDeleteDedupesPointIDs(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, "Cosine", func(r *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})
	if err := s.Delete(context.Background(), "chunks", []string{"c1", "c1", " ", "c2"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if points := captured["points"].([]any); len(points) != 2 {
		t.Fatalf("points: want=2 got=%d", len(points))
	}
}

func TestClassifyCallErrorTimeout(t *testing.T) {
	var oe *OperationError
	if err := classifyCallError("query", context.DeadlineExceeded); !errors.As(err, &oe) || oe.Code != OperationErrorTimeout {
		t.Fatalf("want timeout, got %v", err)
	}
}
