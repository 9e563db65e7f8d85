package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	matchrepo "github.com/yungbote/reqmatch-backend/internal/data/repos/matching"
	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"github.com/yungbote/reqmatch-backend/internal/observability"
	"github.com/yungbote/reqmatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/platform/vectorstore"
)

const (
	modeSync     = "sync"
	modeClassify = "classify"
)

// Deps are the collaborators of an Engine. Locker defaults to an in-process KeyedMutex.
type Deps struct {
	Documents       matchrepo.DocumentRepo
	Requirements    matchrepo.RequirementRepo
	Classifications matchrepo.ClassificationRepo
	SyncStates      matchrepo.SyncStateRepo
	Embedder        Embedder
	Vectors         vectorstore.Store
	LLM             LanguageModel
	Locker          RequirementLocker
}

type Options struct {
	// Progress receives best-effort status events. Sends never block.
	Progress chan<- ProgressEvent
	// Concurrency overrides Config.Concurrency when positive, capped at MaxConcurrency.
	Concurrency int
	// RequirementIDs restricts ClassifyDocument to these requirements.
	RequirementIDs []uuid.UUID
}

type Result struct {
	Classifications []*types.Classification `json:"classifications"`
	Errors          ErrorSummary            `json:"errors"`
	Status          string                  `json:"status,omitempty"`
	Version         int64                   `json:"version,omitempty"`
}

type Engine struct {
	log        *logger.Logger
	cfg        Config
	docs       matchrepo.DocumentRepo
	reqs       matchrepo.RequirementRepo
	retriever  *Retriever
	gate       Gate
	judge      *Judge
	reconciler *Reconciler
	locker     RequirementLocker
}

func NewEngine(log *logger.Logger, cfg Config, deps Deps) (*Engine, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Documents == nil, deps.Requirements == nil, deps.Classifications == nil, deps.SyncStates == nil:
		return nil, fmt.Errorf("matching engine: repositories required")
	case deps.Embedder == nil:
		return nil, fmt.Errorf("matching engine: embedder required")
	case deps.Vectors == nil:
		return nil, fmt.Errorf("matching engine: vector store required")
	case deps.LLM == nil:
		return nil, fmt.Errorf("matching engine: language model required")
	}
	locker := deps.Locker
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Engine{
		log:        log.With("service", "MatchingEngine"),
		cfg:        cfg,
		docs:       deps.Documents,
		reqs:       deps.Requirements,
		retriever:  NewRetriever(log, deps.Embedder, deps.Vectors, cfg),
		gate:       Gate{Threshold: cfg.Gate},
		judge:      NewJudge(log, deps.LLM, cfg),
		reconciler: NewReconciler(log, deps.Classifications, deps.SyncStates),
		locker:     locker,
	}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// ValidateRequirement checks that a requirement can be evaluated and returns its threshold.
func ValidateRequirement(req *types.Requirement) (int, error) {
	if req.MatchThreshold == nil {
		return 0, &ValidationError{Field: "match_threshold", Message: "is required"}
	}
	t := *req.MatchThreshold
	if t < 0 || t > 100 {
		return 0, &ValidationError{Field: "match_threshold", Message: fmt.Sprintf("must be within 0..100, got %d", t)}
	}
	if strings.TrimSpace(req.Name) == "" && strings.TrimSpace(req.Description) == "" {
		return 0, &ValidationError{Field: "name", Message: "name or description is required"}
	}
	return t, nil
}

// SyncRequirement re-evaluates every document of the owner against one
// requirement and replaces the requirement's stored classifications.
// Per-document upstream failures keep that document's previous row and mark
// the pass partial. Cancellation or a failed commit leaves stored rows intact.
func (e *Engine) SyncRequirement(ctx context.Context, ownerID, requirementID uuid.UUID, opts Options) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "matching.sync_requirement",
		attribute.String("requirement_id", requirementID.String()),
	)
	defer span.End()

	fail := func(err error) (*Result, error) {
		span.RecordError(err)
		emitProgress(opts.Progress, ProgressEvent{Status: ProgressError, Message: err.Error(), RequirementID: requirementID})
		return nil, err
	}

	req, err := e.reqs.GetByID(dbctx.New(ctx), requirementID)
	if err != nil {
		return fail(fmt.Errorf("load requirement: %w", err))
	}
	if req == nil || req.OwnerUserID != ownerID {
		return fail(&NotFoundError{Kind: "requirement", ID: requirementID})
	}
	threshold, err := ValidateRequirement(req)
	if err != nil {
		return fail(err)
	}

	unlock, err := e.lock(ctx, requirementID)
	if err != nil {
		return fail(err)
	}
	defer unlock()

	expected, err := e.reconciler.Begin(ctx, requirementID)
	if err != nil {
		return fail(err)
	}
	docs, err := e.docs.ListByOwner(dbctx.New(ctx), ownerID)
	if err != nil {
		return fail(fmt.Errorf("list documents: %w", err))
	}

	emitProgress(opts.Progress, ProgressEvent{
		Status:        ProgressProcessing,
		Message:       fmt.Sprintf("Evaluating %d documents", len(docs)),
		RequirementID: requirementID,
	})
	e.log.Info("Requirement sync started",
		"requirement_id", requirementID,
		"documents", len(docs),
		"expected_version", expected,
	)

	var (
		rows    = make([]*types.Classification, len(docs))
		errs    = make([]error, len(docs))
		summary ErrorSummary
	)
	if len(docs) > 0 {
		vector, err := e.retriever.EmbedRequirement(ctx, req)
		if err != nil {
			e.reconciler.RecordFailure(ctx, requirementID, err)
			return fail(err)
		}

		var done atomic.Int64
		g := &errgroup.Group{}
		g.SetLimit(e.concurrency(opts))
		for i, doc := range docs {
			i, doc := i, doc
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				rows[i], errs[i] = e.evaluateDocument(ctx, modeSync, req, threshold, vector, doc.ID)
				n := int(done.Add(1))
				emitProgress(opts.Progress, ProgressEvent{
					Status:        ProgressProcessing,
					Message:       fmt.Sprintf("Evaluated %d of %d documents", n, len(docs)),
					Progress:      percent(n, len(docs)),
					RequirementID: requirementID,
					DocumentID:    doc.ID,
				})
				return nil
			})
		}
		_ = g.Wait()
	}
	if err := ctx.Err(); err != nil {
		e.log.Warn("Requirement sync cancelled before reconcile", "requirement_id", requirementID, "error", err)
		return fail(err)
	}

	var previous map[uuid.UUID]*types.Classification
	failed := 0
	final := make([]*types.Classification, 0, len(docs))
	for i, doc := range docs {
		if errs[i] == nil {
			if rows[i] != nil {
				final = append(final, rows[i])
			}
			continue
		}
		failed++
		summary.Add(errs[i], doc.ID, requirementID)
		if previous == nil {
			if previous, err = e.reconciler.Previous(ctx, requirementID); err != nil {
				return fail(fmt.Errorf("load previous classifications: %w", err))
			}
		}
		if prior := previous[doc.ID]; prior != nil {
			carried := *prior
			carried.ID = uuid.Nil
			final = append(final, &carried)
		}
	}

	if failed > 0 && failed == len(docs) {
		err := &UpstreamError{Op: "sync", Err: summary.Err()}
		e.reconciler.RecordFailure(ctx, requirementID, err)
		return fail(err)
	}

	status := types.SyncStatusSucceeded
	lastErr := ""
	if failed > 0 {
		status = types.SyncStatusPartial
		lastErr = summary.Err().Error()
	}
	version, err := e.reconciler.Replace(ctx, matchrepo.ReplaceInput{
		RequirementID:   requirementID,
		ExpectedVersion: expected,
		Rows:            final,
		Status:          status,
		LastError:       lastErr,
	})
	if err != nil {
		if !errors.Is(err, ErrConcurrentSync) {
			e.reconciler.RecordFailure(ctx, requirementID, err)
		}
		return fail(err)
	}

	sortByDocument(final)
	emitProgress(opts.Progress, ProgressEvent{
		Status:        ProgressCompleted,
		Message:       fmt.Sprintf("Classified %d documents", len(final)),
		Progress:      100,
		RequirementID: requirementID,
	})
	e.log.Info("Requirement sync finished",
		"requirement_id", requirementID,
		"status", status,
		"version", version,
		"classified", len(final),
		"failed", failed,
	)
	return &Result{Classifications: final, Errors: summary, Status: status, Version: version}, nil
}

// ClassifyDocument evaluates one document against the owner's requirements
// and upserts each resulting pair. Requirements that fail are reported in the
// result's error summary and do not stop the others.
func (e *Engine) ClassifyDocument(ctx context.Context, ownerID, documentID uuid.UUID, opts Options) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "matching.classify_document",
		attribute.String("document_id", documentID.String()),
	)
	defer span.End()

	fail := func(err error) (*Result, error) {
		span.RecordError(err)
		emitProgress(opts.Progress, ProgressEvent{Status: ProgressError, Message: err.Error(), DocumentID: documentID})
		return nil, err
	}

	doc, err := e.docs.GetByID(dbctx.New(ctx), documentID)
	if err != nil {
		return fail(fmt.Errorf("load document: %w", err))
	}
	if doc == nil || doc.OwnerUserID != ownerID {
		return fail(&NotFoundError{Kind: "document", ID: documentID})
	}
	reqs, err := e.reqs.ListByOwner(dbctx.New(ctx), ownerID)
	if err != nil {
		return fail(fmt.Errorf("list requirements: %w", err))
	}

	var (
		mu      sync.Mutex
		summary ErrorSummary
		saved   []*types.Classification
	)
	reqs = filterRequirements(reqs, opts.RequirementIDs, &summary)

	emitProgress(opts.Progress, ProgressEvent{
		Status:     ProgressProcessing,
		Message:    fmt.Sprintf("Evaluating %d requirements", len(reqs)),
		DocumentID: documentID,
	})

	var done atomic.Int64
	g := &errgroup.Group{}
	g.SetLimit(e.concurrency(opts))
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			c, err := e.classifyPair(ctx, req, documentID)
			mu.Lock()
			if err != nil {
				summary.Add(err, documentID, req.ID)
			} else if c != nil {
				saved = append(saved, c)
			}
			mu.Unlock()

			n := int(done.Add(1))
			emitProgress(opts.Progress, ProgressEvent{
				Status:        ProgressProcessing,
				Message:       fmt.Sprintf("Evaluated %d of %d requirements", n, len(reqs)),
				Progress:      percent(n, len(reqs)),
				RequirementID: req.ID,
				DocumentID:    documentID,
			})
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if len(reqs) > 0 && len(saved) == 0 && allUpstream(summary, len(reqs)) {
		return fail(&UpstreamError{Op: "classify", DocumentID: documentID, Err: summary.Err()})
	}

	sort.Slice(saved, func(i, j int) bool {
		return saved[i].RequirementID.String() < saved[j].RequirementID.String()
	})
	emitProgress(opts.Progress, ProgressEvent{
		Status:     ProgressCompleted,
		Message:    fmt.Sprintf("Classified against %d requirements", len(saved)),
		Progress:   100,
		DocumentID: documentID,
	})
	status := types.SyncStatusSucceeded
	if !summary.Empty() {
		status = types.SyncStatusPartial
	}
	return &Result{Classifications: saved, Errors: summary, Status: status}, nil
}

// classifyPair evaluates and stores one pair. A nil classification means the
// document had no retrievable chunks for this requirement.
func (e *Engine) classifyPair(ctx context.Context, req *types.Requirement, documentID uuid.UUID) (*types.Classification, error) {
	threshold, err := ValidateRequirement(req)
	if err != nil {
		return nil, err
	}
	vector, err := e.retriever.EmbedRequirement(ctx, req)
	if err != nil {
		return nil, err
	}
	c, err := e.evaluateDocument(ctx, modeClassify, req, threshold, vector, documentID)
	if err != nil || c == nil {
		return nil, err
	}

	unlock, err := e.lock(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	out, err := e.reconciler.Upsert(ctx, []*types.Classification{c})
	if err != nil {
		return nil, fmt.Errorf("store classification: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// evaluateDocument runs retrieve, aggregate, gate, judge and fuse for one pair.
func (e *Engine) evaluateDocument(ctx context.Context, mode string, req *types.Requirement, threshold int, vector []float32, documentID uuid.UUID) (c *types.Classification, err error) {
	start := time.Now()
	outcome := "unmatched"
	defer func() {
		if err != nil {
			outcome = "error"
		}
		observability.Current().ObserveEvaluation(mode, outcome, time.Since(start))
	}()

	ctx, span := observability.StartSpan(ctx, "matching.evaluate_document",
		attribute.String("requirement_id", req.ID.String()),
		attribute.String("document_id", documentID.String()),
	)
	defer span.End()

	hits, err := e.retriever.Retrieve(ctx, req.OwnerUserID, vector, []uuid.UUID{documentID})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	scores := Aggregate(hits, e.cfg.EvidenceChunks, e.cfg.EvidenceRunes)
	if len(scores) == 0 {
		outcome = "no_hits"
		return nil, nil
	}
	ds := scores[0]

	ev := Evaluation{DocumentID: ds.DocumentID, VectorScore: ds.VectorScore, Evidence: ds.Evidence}
	if !e.gate.Allows(ds.VectorScore) {
		ev.Verdict = GatedVerdict()
		outcome = "gated"
	} else {
		v, err := e.judge.Evaluate(ctx, req, ds)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		ev.Verdict = v
		ev.Judged = true
		ev.JudgeModel = e.judge.Model()
	}

	c = Fuse(req, threshold, ev)
	if c.IsMatched {
		outcome = "matched"
	}
	span.SetAttributes(attribute.Int("score", c.Score), attribute.Bool("matched", c.IsMatched))
	return c, nil
}

func (e *Engine) lock(ctx context.Context, requirementID uuid.UUID) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, e.cfg.LockWait)
	defer cancel()
	unlock, err := e.locker.Lock(lockCtx, requirementID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrLockHeld) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrLockHeld, err)
	}
	return unlock, nil
}

// concurrency lets callers lower or raise the worker count up to MaxConcurrency.
func (e *Engine) concurrency(opts Options) int {
	if opts.Concurrency <= 0 {
		return e.cfg.Concurrency
	}
	return min(opts.Concurrency, MaxConcurrency)
}

func filterRequirements(reqs []*types.Requirement, ids []uuid.UUID, summary *ErrorSummary) []*types.Requirement {
	if len(ids) == 0 {
		return reqs
	}
	byID := make(map[uuid.UUID]*types.Requirement, len(reqs))
	for _, r := range reqs {
		byID[r.ID] = r
	}
	out := make([]*types.Requirement, 0, len(ids))
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if r := byID[id]; r != nil {
			out = append(out, r)
			continue
		}
		summary.Add(&NotFoundError{Kind: "requirement", ID: id}, uuid.Nil, id)
	}
	return out
}

func allUpstream(s ErrorSummary, total int) bool {
	n := 0
	for _, it := range s.Items {
		if it.Kind == ErrorKindUpstream {
			n++
		}
	}
	return n == total
}

func sortByDocument(rows []*types.Classification) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].DocumentID.String() < rows[j].DocumentID.String()
	})
}
