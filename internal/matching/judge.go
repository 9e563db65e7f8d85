package matching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"github.com/yungbote/reqmatch-backend/internal/observability"
	"github.com/yungbote/reqmatch-backend/internal/pkg/httpx"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

// LanguageModel completes a system/user prompt pair.
type LanguageModel interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	Model() string
}

const judgeSystemPrompt = `You evaluate whether a document satisfies a requirement.
Use only the evidence excerpts provided. Do not invent facts, quotes or content that is not in the evidence.
Respond with ONLY a JSON object of the form {"match": true|false, "reason": "<one or two sentences>"}.
No markdown, no code fences, no text before or after the object.`

type Judge struct {
	log        *logger.Logger
	llm        LanguageModel
	retryDelay time.Duration
}

func NewJudge(log *logger.Logger, llm LanguageModel, cfg Config) *Judge {
	return &Judge{
		log:        log.With("service", "Judge"),
		llm:        llm,
		retryDelay: cfg.JudgeRetryDelay,
	}
}

func (j *Judge) Model() string {
	if j.llm == nil {
		return ""
	}
	return j.llm.Model()
}

// BuildJudgePrompt renders the user prompt for one requirement/document pair.
func BuildJudgePrompt(req *types.Requirement, ds DocumentScore) string {
	var b strings.Builder
	b.WriteString("REQUIREMENT\n")
	fmt.Fprintf(&b, "Name: %s\n", strings.TrimSpace(req.Name))
	if d := strings.TrimSpace(req.Description); d != "" {
		fmt.Fprintf(&b, "Description: %s\n", d)
	}
	if phrases := req.Phrases(); len(phrases) > 0 {
		fmt.Fprintf(&b, "Key phrases: %s\n", strings.Join(phrases, ", "))
	}
	fmt.Fprintf(&b, "\nVECTOR SIMILARITY: %.2f\n", ds.VectorScore)
	b.WriteString("\nEVIDENCE\n")
	b.WriteString(EvidenceText(ds.Evidence))
	b.WriteString("\n\nDoes the document satisfy the requirement? Answer with the JSON object only.")
	return b.String()
}

// Evaluate asks the model for a verdict. Transport failures are retried once
// and call errors are returned as *UpstreamError. Unreadable output degrades to
// the fallback verdict with a nil error.
func (j *Judge) Evaluate(ctx context.Context, req *types.Requirement, ds DocumentScore) (Verdict, error) {
	ctx, span := observability.StartSpan(ctx, "matching.judge",
		attribute.String("requirement_id", req.ID.String()),
		attribute.String("document_id", ds.DocumentID.String()),
	)
	defer span.End()

	user := BuildJudgePrompt(req, ds)
	raw, err := j.complete(ctx, user)
	if err != nil {
		span.RecordError(err)
		return Verdict{}, &UpstreamError{Op: "judge", DocumentID: ds.DocumentID, Err: err}
	}

	v, perr := ParseVerdict(raw)
	if perr != nil {
		observability.Current().IncJudgeParse("fallback")
		j.log.Warn("Judge response unreadable, using fallback verdict",
			"requirement_id", req.ID,
			"document_id", ds.DocumentID,
			"error", perr,
		)
		return v, nil
	}
	observability.Current().IncJudgeParse("ok")
	return v, nil
}

// complete detaches the model call from caller cancellation. Only transport
// failures are retried, once, and the retry still honors ctx.
func (j *Judge) complete(ctx context.Context, user string) (string, error) {
	callCtx := context.WithoutCancel(ctx)
	raw, err := j.llm.GenerateText(callCtx, judgeSystemPrompt, user)
	if err == nil {
		return raw, nil
	}
	if ctx.Err() != nil || !httpx.IsRetryableError(err) {
		return "", err
	}
	j.log.Warn("Judge call failed, retrying once", "error", err)
	if serr := httpx.Sleep(ctx, j.retryDelay); serr != nil {
		return "", err
	}
	return j.llm.GenerateText(callCtx, judgeSystemPrompt, user)
}
