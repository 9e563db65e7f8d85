package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/reqmatch-backend/internal/pkg/httpx"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, maxRetries int, rt roundTripFunc) Client {
	t.Helper()
	c, err := NewClientWithConfig(logger.NewNop(), Config{
		APIKey:     "sk-test",
		BaseURL:    "http://openai.local",
		Model:      "judge-model",
		EmbedModel: "embed-model",
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
		Transport:  rt,
	})
	if err != nil {
		t.Fatalf("NewClientWithConfig: %v", err)
	}
	return c
}

func TestEmbedReordersByIndex(t *testing.T) {
	c := newTestClient(t, 0, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/embeddings" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("auth header: got=%q", got)
		}
		var body embeddingsRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Model != "embed-model" || len(body.Input) != 2 {
			t.Fatalf("unexpected body: %+v", body)
		}
		return jsonResponse(200, `{"data":[{"index":1,"embedding":[0.5,0.5]},{"index":0,"embedding":[1,0]}]}`), nil
	})

	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][0] != 0.5 {
		t.Fatalf("unexpected vectors: %+v", vecs)
	}
}

func TestDoRetriesRetryableStatus(t *testing.T) {
	var calls int32
	c := newTestClient(t, 2, func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			resp := jsonResponse(503, `{"error":"busy"}`)
			resp.Header.Set("Retry-After", "0")
			return resp, nil
		}
		return jsonResponse(200, `{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{\"match\":true,\"reason\":\"ok\"}"}]}]}`), nil
	})

	text, err := c.GenerateText(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != `{"match":true,"reason":"ok"}` {
		t.Fatalf("unexpected text: %q", text)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls: want=2 got=%d", got)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, 3, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(400, `{"error":"bad"}`), nil
	})

	_, err := c.GenerateText(context.Background(), "system", "user")
	var se *httpx.StatusError
	if !errors.As(err, &se) || se.StatusCode != 400 {
		t.Fatalf("want 400 status error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls: want=1 got=%d", got)
	}
}

func TestGenerateTextReturnsRefusalAsText(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "content_item", body: `{"output":[{"type":"message","role":"assistant","content":[{"type":"refusal","refusal":"I can't help with that."}]}]}`},
		{name: "top_level", body: `{"output":[],"refusal":"I can't help with that."}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			c := newTestClient(t, 3, func(req *http.Request) (*http.Response, error) {
				atomic.AddInt32(&calls, 1)
				return jsonResponse(200, tc.body), nil
			})
			got, err := c.GenerateText(context.Background(), "system", "user")
			if err != nil {
				t.Fatalf("GenerateText: %v", err)
			}
			if got != "I can't help with that." {
				t.Fatalf("text: want refusal got=%q", got)
			}
			if n := atomic.LoadInt32(&calls); n != 1 {
				t.Fatalf("calls: want=1 got=%d", n)
			}
		})
	}
}
