package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/reqmatch-backend/internal/observability"
	"github.com/yungbote/reqmatch-backend/internal/pkg/httpx"
	"github.com/yungbote/reqmatch-backend/internal/platform/envutil"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/platform/promptstyle"
)

// Client is the OpenAI API surface used by the matching engine.
type Client interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	GenerateText(ctx context.Context, system string, user string) (string, error)
	Model() string
}

type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	EmbedModel        string
	Timeout           time.Duration
	MaxRetries        int
	Temperature       *float64
	RequestsPerSecond float64
	Burst             int
	Transport         http.RoundTripper
}

// ConfigFromEnv reads OPENAI_* variables.
func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:            envutil.String("OPENAI_API_KEY", ""),
		BaseURL:           envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		Model:             envutil.String("OPENAI_MODEL", "gpt-4.1-mini"),
		EmbedModel:        envutil.String("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		Timeout:           envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 120*time.Second),
		MaxRetries:        envutil.Int("OPENAI_MAX_RETRIES", 3),
		RequestsPerSecond: envutil.Float("OPENAI_REQUESTS_PER_SECOND", 5),
		Burst:             envutil.Int("OPENAI_BURST", 5),
	}
	if !envutil.Bool("OPENAI_DISABLE_TEMPERATURE", false) {
		t := envutil.Float("OPENAI_TEMPERATURE", 0)
		cfg.Temperature = &t
	}
	return cfg
}

type client struct {
	log        *logger.Logger
	cfg        Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(log *logger.Logger) (Client, error) {
	return NewClientWithConfig(log, ConfigFromEnv())
}

func NewClientWithConfig(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &client{
		log:        log.With("service", "OpenAIClient"),
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		limiter:    limiter,
	}, nil
}

func (c *client) Model() string { return c.cfg.Model }

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpx.StatusError{Service: "openai", StatusCode: resp.StatusCode, Body: truncate(string(raw), 2048)}
	}
	return resp, raw, nil
}

// do sends one request with bounded exponential backoff on retryable failures.
func (c *client) do(ctx context.Context, method, path, model string, body any, out any) error {
	backoff := 500 * time.Millisecond
	start := time.Now()

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if metrics := observability.Current(); metrics != nil {
				in, outTok := extractUsage(raw)
				metrics.ObserveLLMRequest(model, path, fmt.Sprint(resp.StatusCode), time.Since(start), in, outTok)
			}
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			if metrics := observability.Current(); metrics != nil {
				metrics.ObserveLLMRequest(model, path, statusLabel(resp, err), time.Since(start), 0, 0)
			}
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

// -------------------- Embeddings --------------------

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	var resp embeddingsResponse
	req := embeddingsRequest{Model: c.cfg.EmbedModel, Input: clean}
	if err := c.do(ctx, http.MethodPost, "/v1/embeddings", c.cfg.EmbedModel, req, &resp); err != nil {
		return nil, err
	}

	out := make([][]float32, len(clean))
	for pos, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) {
			idx = pos
		}
		if idx >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[idx] = vec
	}
	for i := range out {
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("openai embeddings missing index %d: requested=%d returned=%d model=%s", i, len(clean), len(resp.Data), c.cfg.EmbedModel)
		}
	}
	return out, nil
}

// -------------------- Responses API --------------------

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model       string           `json:"model"`
	Input       []responsesInput `json:"input"`
	Temperature *float64         `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" && c.Text != "" {
				out.WriteString(c.Text)
			}
		}
	}
	return out.String()
}

func extractRefusal(resp responsesResponse) string {
	if resp.Refusal != "" {
		return resp.Refusal
	}
	for _, item := range resp.Output {
		for _, c := range item.Content {
			if c.Type == "refusal" && c.Refusal != "" {
				return c.Refusal
			}
		}
	}
	return ""
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	req := responsesRequest{
		Model: c.cfg.Model,
		Input: []responsesInput{
			{Role: "system", Content: promptstyle.ApplySystem(system, "json")},
			{Role: "user", Content: user},
		},
		Temperature: c.cfg.Temperature,
	}

	var resp responsesResponse
	if err := c.do(ctx, http.MethodPost, "/v1/responses", c.cfg.Model, req, &resp); err != nil {
		return "", err
	}
	text := extractOutputText(resp)
	if text == "" {
		// A refusal is a completed call; callers treat the text as unusable output.
		if refusal := extractRefusal(resp); refusal != "" {
			c.log.Warn("Model refused", "model", c.cfg.Model, "refusal", truncate(refusal, 200))
			return refusal, nil
		}
	}
	return text, nil
}

// -------------------- helpers --------------------

func extractUsage(raw []byte) (int, int) {
	var body struct {
		Usage struct {
			InputTokens      int `json:"input_tokens"`
			OutputTokens     int `json:"output_tokens"`
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return 0, 0
	}
	in := body.Usage.InputTokens
	if in == 0 {
		in = body.Usage.PromptTokens
	}
	out := body.Usage.OutputTokens
	if out == 0 {
		out = body.Usage.CompletionTokens
	}
	return in, out
}

func statusLabel(resp *http.Response, err error) string {
	if resp != nil {
		return fmt.Sprint(resp.StatusCode)
	}
	if err != nil {
		return "transport_error"
	}
	return "0"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
