package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	matchrepo "github.com/yungbote/reqmatch-backend/internal/data/repos/matching"
	"github.com/yungbote/reqmatch-backend/internal/data/repos/testutil"
	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/pkg/ctxutil"
	"github.com/yungbote/reqmatch-backend/internal/platform/vectorstore"
)

type constEmbedder struct{}

func (constEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type yesJudge struct{}

func (yesJudge) Model() string { return "test" }
func (yesJudge) GenerateText(ctx context.Context, system, user string) (string, error) {
	return `{"match": true, "reason": "present"}`, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []ProgressMessage
}

func (p *recordingPublisher) Publish(ctx context.Context, msg ProgressMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

type fixture struct {
	catalog  CatalogService
	matching MatchingService
	store    *vectorstore.Memory
	pub      *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.SQLite(t)
	log := testutil.Logger(t)
	docs := matchrepo.NewDocumentRepo(gdb, log)
	reqs := matchrepo.NewRequirementRepo(gdb, log)
	cls := matchrepo.NewClassificationRepo(gdb, log)
	states := matchrepo.NewSyncStateRepo(gdb, log)
	store := vectorstore.NewMemory()

	cfg := matching.DefaultConfig()
	engine, err := matching.NewEngine(log, cfg, matching.Deps{
		Documents: docs, Requirements: reqs, Classifications: cls, SyncStates: states,
		Embedder: constEmbedder{}, Vectors: store, LLM: yesJudge{},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	pub := &recordingPublisher{}
	return &fixture{
		catalog:  NewCatalogService(log, docs, reqs, constEmbedder{}, store, cfg.VectorNamespace),
		matching: NewMatchingService(log, engine, reqs, cls, states, pub),
		store:    store,
		pub:      pub,
	}
}

func ownerCtx(owner uuid.UUID) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{OwnerUserID: owner})
}

func TestAuthServiceRoundTrip(t *testing.T) {
	auth := NewAuthService(testutil.Logger(t), "secret", time.Minute, "reqmatch")
	owner := uuid.New()
	tok, err := auth.IssueToken(owner)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	ctx, err := auth.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if got := ctxutil.OwnerID(ctx); got != owner {
		t.Fatalf("owner: want=%s got=%s", owner, got)
	}
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	auth := NewAuthService(testutil.Logger(t), "secret", time.Minute, "")
	other := NewAuthService(testutil.Logger(t), "other", time.Minute, "")
	foreign, _ := other.IssueToken(uuid.New())

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	expiredTok, _ := expired.SignedString([]byte("secret"))

	badSub := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})
	badSubTok, _ := badSub.SignedString([]byte("secret"))

	for name, tok := range map[string]string{
		"empty":       "",
		"garbage":     "not.a.jwt",
		"wrong key":   foreign,
		"expired":     expiredTok,
		"bad subject": badSubTok,
	} {
		if _, err := auth.SetContextFromToken(context.Background(), tok); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%s: want ErrUnauthenticated got=%v", name, err)
		}
	}
}

func TestSplitIntoChunks(t *testing.T) {
	if got := SplitIntoChunks("  ", 0, 0); got != nil {
		t.Fatalf("blank: want nil got=%v", got)
	}
	if got := SplitIntoChunks("short text", 0, 0); len(got) != 1 || got[0] != "short text" {
		t.Fatalf("short: got=%v", got)
	}
	text := strings.Repeat("ä", 1000)
	got := SplitIntoChunks(text, 400, 100)
	if len(got) != 3 {
		t.Fatalf("chunks: want=3 got=%d", len(got))
	}
	for _, c := range got {
		if len([]rune(c)) > 400 {
			t.Fatalf("chunk too long: %d runes", len([]rune(c)))
		}
	}
}

func TestIndexChunksReplacesPreviousSet(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	ctx := ownerCtx(owner)

	doc, err := f.catalog.CreateDocument(ctx, "policy.pdf")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	n, err := f.catalog.IndexChunks(ctx, doc.ID, IndexInput{Chunks: []string{"one", "two", " ", "three"}})
	if err != nil || n != 3 {
		t.Fatalf("IndexChunks: n=%d err=%v", n, err)
	}
	n, err = f.catalog.IndexChunks(ctx, doc.ID, IndexInput{Chunks: []string{"only"}})
	if err != nil || n != 1 {
		t.Fatalf("IndexChunks again: n=%d err=%v", n, err)
	}

	hits, err := f.store.Query(context.Background(), "chunks", vectorstore.Query{
		Vector: []float32{1, 0},
		TopK:   10,
		Filter: vectorstore.Filter{matching.MetaDocumentID: vectorstore.Eq(doc.ID.String())},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 1 || hits[0].MetaString(matching.MetaContent) != "only" {
		t.Fatalf("stale chunks survived: %+v", hits)
	}

	if _, err := f.catalog.IndexChunks(ownerCtx(uuid.New()), doc.ID, IndexInput{Chunks: []string{"x"}}); err == nil {
		t.Fatalf("foreign owner indexed document")
	}
	var verr *matching.ValidationError
	if _, err := f.catalog.IndexChunks(ctx, doc.ID, IndexInput{}); !errors.As(err, &verr) {
		t.Fatalf("empty input: want ValidationError got=%v", err)
	}
}

func TestCreateRequirementValidates(t *testing.T) {
	f := newFixture(t)
	ctx := ownerCtx(uuid.New())
	var verr *matching.ValidationError
	if _, err := f.catalog.CreateRequirement(ctx, RequirementInput{Name: "x"}); !errors.As(err, &verr) {
		t.Fatalf("missing threshold: want ValidationError got=%v", err)
	}
	th := 60
	req, err := f.catalog.CreateRequirement(ctx, RequirementInput{Name: " Encryption ", KeyPhrases: []string{" aes ", ""}, MatchThreshold: &th})
	if err != nil {
		t.Fatalf("CreateRequirement: %v", err)
	}
	if req.Name != "Encryption" || len(req.KeyPhrases) != 1 || req.KeyPhrases[0] != "aes" {
		t.Fatalf("normalized requirement: %+v", req)
	}
	list, err := f.catalog.ListRequirements(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListRequirements: len=%d err=%v", len(list), err)
	}
}

func TestMatchingServiceSyncPublishesProgress(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	ctx := ownerCtx(owner)

	th := 70
	req, err := f.catalog.CreateRequirement(ctx, RequirementInput{Name: "encryption", MatchThreshold: &th})
	if err != nil {
		t.Fatalf("CreateRequirement: %v", err)
	}
	doc, _ := f.catalog.CreateDocument(ctx, "a.pdf")
	if _, err := f.catalog.IndexChunks(ctx, doc.ID, IndexInput{Text: "All data is encrypted at rest."}); err != nil {
		t.Fatalf("IndexChunks: %v", err)
	}

	local := make(chan matching.ProgressEvent, 16)
	res, err := f.matching.SyncRequirement(ctx, req.ID, RunOptions{Progress: local})
	if err != nil {
		t.Fatalf("SyncRequirement: %v", err)
	}
	if len(res.Classifications) != 1 || !res.Classifications[0].IsMatched || res.Classifications[0].Score != 100 {
		t.Fatalf("classifications: %+v", res.Classifications)
	}

	f.pub.mu.Lock()
	msgs := append([]ProgressMessage(nil), f.pub.msgs...)
	f.pub.mu.Unlock()
	if len(msgs) != 3 {
		t.Fatalf("published: want=3 got=%d", len(msgs))
	}
	if msgs[2].Event.Status != matching.ProgressCompleted || msgs[2].OwnerUserID != owner || msgs[2].Kind != "sync" {
		t.Fatalf("last message: %+v", msgs[2])
	}
	if len(local) != 3 {
		t.Fatalf("caller channel: want=3 got=%d", len(local))
	}

	matches, err := f.matching.ListMatches(ctx, req.ID)
	if err != nil || len(matches) != 1 {
		t.Fatalf("ListMatches: len=%d err=%v", len(matches), err)
	}
	st, err := f.matching.GetSyncState(ctx, req.ID)
	if err != nil || st.Version != 1 || st.MatchedCount != 1 {
		t.Fatalf("GetSyncState: %+v err=%v", st, err)
	}

	var nf *matching.NotFoundError
	if _, err := f.matching.ListClassifications(ownerCtx(uuid.New()), req.ID); !errors.As(err, &nf) {
		t.Fatalf("foreign owner: want NotFoundError got=%v", err)
	}
	if _, err := f.matching.SyncRequirement(context.Background(), req.ID, RunOptions{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("no owner: want ErrUnauthenticated got=%v", err)
	}
}
