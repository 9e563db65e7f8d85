package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/reqmatch-backend/internal/pkg/ctxutil"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/platform/vectorstore"
)

const (
	payloadNamespaceKey = "_rm_namespace"
	payloadVectorIDKey  = "_rm_vector_id"
	maxErrorBodyBytes   = 1024
)

var pointIDNamespace = uuid.MustParse("6b7c1f0e-4a0d-4c55-9d51-3f0f3c6a2e11")

type vectorStore struct {
	log      *logger.Logger
	cfg      Config
	baseURL  string
	distance string
	http     *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type searchHit struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewVectorStore checks that the collection exists with the configured
// dimension before returning.
func NewVectorStore(ctx context.Context, log *logger.Logger, cfg Config) (vectorstore.Store, error) {
	return newVectorStore(ctx, log, cfg, nil)
}

func newVectorStore(ctx context.Context, log *logger.Logger, cfg Config, transport http.RoundTripper) (*vectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	s := &vectorStore{
		log:     log.With("service", "QdrantVectorStore"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second, Transport: transport},
	}
	if err := s.verifyCollection(ctx); err != nil {
		return nil, err
	}
	s.log.Info("Qdrant vector store ready",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
		"distance", s.distance,
	)
	return s, nil
}

func (s *vectorStore) Upsert(ctx context.Context, namespace string, vectors []vectorstore.Vector) error {
	const op = "upsert"
	if len(vectors) == 0 {
		return nil
	}
	ns := vectorstore.QualifyNamespace(s.cfg.NamespacePrefix, namespace)
	points := make([]map[string]any, 0, len(vectors))
	for _, v := range vectors {
		id := strings.TrimSpace(v.ID)
		if id == "" {
			return opErr(op, OperationErrorValidation, "vector id is required", nil)
		}
		if len(v.Values) != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("vector %q dimension mismatch: expected=%d got=%d", id, s.cfg.VectorDim, len(v.Values)), nil)
		}
		payload := make(map[string]any, len(v.Metadata)+2)
		for k, val := range v.Metadata {
			payload[k] = val
		}
		payload[payloadNamespaceKey] = ns
		payload[payloadVectorIDKey] = id
		points = append(points, map[string]any{
			"id":      pointID(ns, id),
			"vector":  v.Values,
			"payload": payload,
		})
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

func (s *vectorStore) Query(ctx context.Context, namespace string, q vectorstore.Query) ([]vectorstore.Match, error) {
	const op = "query"
	if len(q.Vector) != s.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(q.Vector)), nil)
	}
	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}
	ns := vectorstore.QualifyNamespace(s.cfg.NamespacePrefix, namespace)
	filter := clause{Must: []any{matchValue(payloadNamespaceKey, ns)}}
	if len(q.Filter) > 0 {
		extra, err := translateFilter(q.Filter)
		if err != nil {
			s.log.Warn("qdrant query filter rejected", "namespace", ns, "error", err)
			return nil, err
		}
		filter.merge(extra)
	}

	req := map[string]any{
		"vector":       q.Vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
		"filter":       filter.asMap(),
	}
	var hits []searchHit
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &hits); err != nil {
		return nil, err
	}

	out := make([]vectorstore.Match, 0, len(hits))
	for _, h := range hits {
		id, _ := h.Payload[payloadVectorIDKey].(string)
		if strings.TrimSpace(id) == "" {
			id = decodePointID(h.ID)
		}
		if id == "" {
			continue
		}
		meta := make(map[string]any, len(h.Payload))
		for k, v := range h.Payload {
			if k != payloadNamespaceKey && k != payloadVectorIDKey {
				meta[k] = v
			}
		}
		out = append(out, vectorstore.Match{ID: id, Score: s.normalizeScore(h.Score), Metadata: meta})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

func (s *vectorStore) Delete(ctx context.Context, namespace string, ids []string) error {
	ns := vectorstore.QualifyNamespace(s.cfg.NamespacePrefix, namespace)
	seen := map[string]struct{}{}
	points := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		p := pointID(ns, id)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil
	}
	return s.doJSON(ctx, "delete", http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"points": points}, nil)
}

func (s *vectorStore) verifyCollection(ctx context.Context) error {
	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	if err := s.doJSON(ctx, "bootstrap_verify", http.MethodGet, s.collectionPath(""), nil, &result); err != nil {
		return err
	}
	if size := result.Config.Params.Vectors.Size; size != 0 && size != s.cfg.VectorDim {
		return opErr("bootstrap_verify", OperationErrorValidation,
			fmt.Sprintf("collection %q vector size mismatch: expected=%d actual=%d", s.cfg.Collection, s.cfg.VectorDim, size), nil)
	}
	s.distance = strings.TrimSpace(result.Config.Params.Vectors.Distance)
	return nil
}

func (s *vectorStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorValidation, "encode request failed", err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyCallError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode envelope failed", err)
	}
	if msg := envelopeError(env.Status); msg != "" {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode result failed", err)
	}
	return nil
}

func envelopeError(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if strings.EqualFold(str, "ok") {
			return ""
		}
		return fmt.Sprintf("status=%q", str)
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return "status=" + status
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func pointID(qualifiedNS, vectorID string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(qualifiedNS+"|"+vectorID)).String()
}

func (s *vectorStore) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

func decodePointID(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return fmt.Sprintf("%d", n)
	}
	return ""
}

// normalizeScore maps distance metrics onto a higher-is-better similarity.
func (s *vectorStore) normalizeScore(score float64) float64 {
	switch strings.ToLower(s.distance) {
	case "euclid", "manhattan":
		if score < 0 {
			score = -score
		}
		return 1.0 / (1.0 + score)
	default:
		return score
	}
}
