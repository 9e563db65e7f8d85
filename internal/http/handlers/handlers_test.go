package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/services"
)

type fakeMatching struct {
	syncErr   error
	syncOpts  services.RunOptions
	classIDs  []uuid.UUID
	lastReqID uuid.UUID
}

func (f *fakeMatching) SyncRequirement(ctx context.Context, id uuid.UUID, opts services.RunOptions) (*matching.Result, error) {
	f.lastReqID = id
	f.syncOpts = opts
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return &matching.Result{Status: types.SyncStatusSucceeded, Version: 3}, nil
}

func (f *fakeMatching) ClassifyDocument(ctx context.Context, id uuid.UUID, reqIDs []uuid.UUID, opts services.RunOptions) (*matching.Result, error) {
	f.classIDs = reqIDs
	res := &matching.Result{Status: types.SyncStatusPartial}
	res.Errors.Add(&matching.NotFoundError{Kind: "requirement", ID: uuid.New()}, uuid.Nil, uuid.New())
	return res, nil
}

func (f *fakeMatching) ListClassifications(ctx context.Context, id uuid.UUID) ([]*types.Classification, error) {
	return []*types.Classification{}, nil
}

func (f *fakeMatching) ListMatches(ctx context.Context, id uuid.UUID) ([]*types.DocumentMatch, error) {
	return nil, &matching.NotFoundError{Kind: "requirement", ID: id}
}

func (f *fakeMatching) GetSyncState(ctx context.Context, id uuid.UUID) (*types.RequirementSyncState, error) {
	return &types.RequirementSyncState{RequirementID: id}, nil
}

type fakeCatalog struct {
	services.CatalogService
	created services.RequirementInput
}

func (f *fakeCatalog) CreateRequirement(ctx context.Context, in services.RequirementInput) (*types.Requirement, error) {
	f.created = in
	if in.MatchThreshold == nil {
		return nil, &matching.ValidationError{Field: "match_threshold", Message: "required"}
	}
	return &types.Requirement{ID: uuid.New(), Name: in.Name}, nil
}

func (f *fakeCatalog) IndexChunks(ctx context.Context, id uuid.UUID, in services.IndexInput) (int, error) {
	return len(in.Chunks), nil
}

func newTestRouter(m services.MatchingService, cat services.CatalogService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	log := logger.NewNop()
	rh := NewRequirementHandler(log, cat, m)
	dh := NewDocumentHandler(log, cat, m)
	r.GET("/healthcheck", NewHealthHandler().HealthCheck)
	r.POST("/api/requirements", rh.Create)
	r.POST("/api/requirements/:id/sync", rh.Sync)
	r.GET("/api/requirements/:id/matches", rh.ListMatches)
	r.GET("/api/requirements/:id/sync-state", rh.GetSyncState)
	r.PUT("/api/documents/:id/chunks", dh.IndexChunks)
	r.POST("/api/documents/:id/classify", dh.Classify)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v body=%s", err, w.Body.String())
	}
	return env.Error.Code
}

func TestHealthCheck(t *testing.T) {
	w := do(newTestRouter(&fakeMatching{}, &fakeCatalog{}), http.MethodGet, "/healthcheck", "")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthcheck: code=%d body=%q", w.Code, w.Body.String())
	}
}

func TestSyncInvalidID(t *testing.T) {
	w := do(newTestRouter(&fakeMatching{}, &fakeCatalog{}), http.MethodPost, "/api/requirements/nope/sync", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want=400 got=%d", w.Code)
	}
	if got := errorCode(t, w); got != "invalid_requirement_id" {
		t.Fatalf("code: got=%q", got)
	}
}

func TestSyncReturnsResult(t *testing.T) {
	m := &fakeMatching{}
	id := uuid.New()
	w := do(newTestRouter(m, &fakeCatalog{}), http.MethodPost, "/api/requirements/"+id.String()+"/sync", `{"concurrency":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	if m.lastReqID != id || m.syncOpts.Concurrency != 3 {
		t.Fatalf("service call: id=%s opts=%+v", m.lastReqID, m.syncOpts)
	}
	var body struct {
		Errors  []matching.ErrorItem `json:"errors"`
		Status  string               `json:"status"`
		Version int64                `json:"version"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != types.SyncStatusSucceeded || body.Version != 3 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Errors == nil || !strings.Contains(w.Body.String(), `"errors":[]`) {
		t.Fatalf("errors must serialize as an empty list: %s", w.Body.String())
	}
}

func TestSyncErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&matching.NotFoundError{Kind: "requirement", ID: uuid.New()}, http.StatusNotFound, "requirement_not_found"},
		{matching.ErrConcurrentSync, http.StatusConflict, "concurrent_sync"},
		{&matching.UpstreamError{Op: "embed", Err: context.DeadlineExceeded}, http.StatusBadGateway, "upstream_error"},
		{services.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
	}
	for _, tc := range cases {
		w := do(newTestRouter(&fakeMatching{syncErr: tc.err}, &fakeCatalog{}), http.MethodPost, "/api/requirements/"+uuid.NewString()+"/sync", "")
		if w.Code != tc.status {
			t.Fatalf("%v: want=%d got=%d", tc.err, tc.status, w.Code)
		}
		if got := errorCode(t, w); got != tc.code {
			t.Fatalf("%v: want code=%q got=%q", tc.err, tc.code, got)
		}
	}
}

func TestClassifyPassesRequirementIDs(t *testing.T) {
	m := &fakeMatching{}
	r1, r2 := uuid.New(), uuid.New()
	body := `{"requirement_ids":["` + r1.String() + `","` + r2.String() + `"]}`
	w := do(newTestRouter(m, &fakeCatalog{}), http.MethodPost, "/api/documents/"+uuid.NewString()+"/classify", body)
	if w.Code != http.StatusOK {
		t.Fatalf("want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	if len(m.classIDs) != 2 || m.classIDs[0] != r1 || m.classIDs[1] != r2 {
		t.Fatalf("requirement ids: %v", m.classIDs)
	}
	if !strings.Contains(w.Body.String(), `"kind":"not_found"`) {
		t.Fatalf("per-requirement errors missing: %s", w.Body.String())
	}
}

func TestClassifyRejectsMalformedBody(t *testing.T) {
	w := do(newTestRouter(&fakeMatching{}, &fakeCatalog{}), http.MethodPost, "/api/documents/"+uuid.NewString()+"/classify", `{"requirement_ids":["x"]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want=400 got=%d", w.Code)
	}
}

func TestCreateRequirementValidation(t *testing.T) {
	cat := &fakeCatalog{}
	r := newTestRouter(&fakeMatching{}, cat)
	w := do(r, http.MethodPost, "/api/requirements", `{"name":"SOC 2"}`)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "validation_error" {
		t.Fatalf("missing threshold: code=%d body=%s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/api/requirements", `{"name":"SOC 2","key_phrases":["audit"],"match_threshold":70}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: code=%d body=%s", w.Code, w.Body.String())
	}
	if len(cat.created.KeyPhrases) != 1 || *cat.created.MatchThreshold != 70 {
		t.Fatalf("input not bound: %+v", cat.created)
	}
}

func TestListMatchesNotFound(t *testing.T) {
	w := do(newTestRouter(&fakeMatching{}, &fakeCatalog{}), http.MethodGet, "/api/requirements/"+uuid.NewString()+"/matches", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("want=404 got=%d", w.Code)
	}
}

func TestIndexChunks(t *testing.T) {
	id := uuid.New()
	w := do(newTestRouter(&fakeMatching{}, &fakeCatalog{}), http.MethodPut, "/api/documents/"+id.String()+"/chunks", `{"chunks":["a","b","c"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"chunks":3`) {
		t.Fatalf("chunk count missing: %s", w.Body.String())
	}
}
