package pinecone

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/reqmatch-backend/internal/pkg/httpx"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/platform/vectorstore"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func respond(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(body))}
}

func newTestStore(t *testing.T, rt roundTripFunc) vectorstore.Store {
	t.Helper()
	log := logger.NewNop()
	pc, err := New(log, Config{APIKey: "pc-key", Scheme: "http", Transport: rt})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := NewVectorStore(context.Background(), log, pc, StoreConfig{IndexHost: "index.local", NamespacePrefix: "rm"})
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}
	return s
}

func TestQueryRequestsMetadataAndFilter(t *testing.T) {
	var captured QueryRequest
	s := newTestStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.String() != "http://index.local/query" {
			t.Fatalf("url: got=%s", r.URL)
		}
		if r.Header.Get("Api-Key") != "pc-key" {
			t.Fatalf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return respond(200, `{"matches":[{"id":"c1","score":0.91,"metadata":{"document_id":"d1","filename":"a.pdf"}},{"id":"","score":0.5}]}`), nil
	})

	got, err := s.Query(context.Background(), "chunks", vectorstore.Query{
		Vector: []float32{0.1, 0.2},
		TopK:   30,
		Filter: vectorstore.Filter{"owner_id": vectorstore.Eq("u1")},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !captured.IncludeMetadata || captured.Namespace != "rm:chunks" || captured.TopK != 30 {
		t.Fatalf("unexpected request: %+v", captured)
	}
	if _, ok := captured.Filter["owner_id"]; !ok {
		t.Fatalf("filter not forwarded: %+v", captured.Filter)
	}
	if len(got) != 1 || got[0].ID != "c1" || got[0].MetaString("filename") != "a.pdf" {
		t.Fatalf("unexpected matches: %+v", got)
	}
}

func TestQueryPropagatesStatusError(t *testing.T) {
	s := newTestStore(t, func(r *http.Request) (*http.Response, error) {
		return respond(503, `unavailable`), nil
	})
	_, err := s.Query(context.Background(), "", vectorstore.Query{Vector: []float32{1}, TopK: 20})
	var se *httpx.StatusError
	if !errors.As(err, &se) || se.StatusCode != 503 {
		t.Fatalf("want 503 StatusError, got %v", err)
	}
}

func TestDeleteSkipsEmptyIDs(t *testing.T) {
	called := false
	s := newTestStore(t, func(r *http.Request) (*http.Response, error) {
		called = true
		return respond(200, `{}`), nil
	})
	if err := s.Delete(context.Background(), "chunks", nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if called {
		t.Fatalf("delete with no ids should not call the API")
	}
}
