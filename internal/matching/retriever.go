package matching

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/platform/vectorstore"
)

// Chunk payload keys written by ingestion.
const (
	MetaDocumentID  = "document_id"
	MetaOwnerUserID = "owner_user_id"
	MetaContent     = "content"
	MetaFilename    = "filename"
)

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type ChunkHit struct {
	DocumentID uuid.UUID
	Content    string
	Score      float64
	Filename   string
}

type Retriever struct {
	log       *logger.Logger
	embedder  Embedder
	store     vectorstore.Store
	namespace string
	topK      int
}

func NewRetriever(log *logger.Logger, embedder Embedder, store vectorstore.Store, cfg Config) *Retriever {
	cfg = cfg.Normalize()
	return &Retriever{
		log:       log.With("service", "Retriever"),
		embedder:  embedder,
		store:     store,
		namespace: cfg.VectorNamespace,
		topK:      cfg.TopK,
	}
}

// QueryText is the text embedded for a requirement.
func QueryText(req *types.Requirement) string {
	parts := []string{strings.TrimSpace(req.Name), strings.TrimSpace(req.Description)}
	if phrases := req.Phrases(); len(phrases) > 0 {
		parts = append(parts, "Key phrases: "+strings.Join(phrases, ", "))
	}
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p)
	}
	return b.String()
}

// EmbedRequirement embeds the requirement query text once per pass.
func (r *Retriever) EmbedRequirement(ctx context.Context, req *types.Requirement) ([]float32, error) {
	vecs, err := r.embedder.Embed(ctx, []string{QueryText(req)})
	if err != nil {
		return nil, &UpstreamError{Op: "embed", Err: err}
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, &UpstreamError{Op: "embed", Err: fmt.Errorf("embedding gateway returned %d vectors", len(vecs))}
	}
	return vecs[0], nil
}

// Retrieve queries the owner's chunks restricted to docIDs. Hits outside the
// requested owner or document set are dropped.
func (r *Retriever) Retrieve(ctx context.Context, ownerID uuid.UUID, vector []float32, docIDs []uuid.UUID) ([]ChunkHit, error) {
	if len(docIDs) == 0 {
		return []ChunkHit{}, nil
	}
	allowed := make(map[uuid.UUID]struct{}, len(docIDs))
	ids := make([]string, 0, len(docIDs))
	for _, id := range docIDs {
		allowed[id] = struct{}{}
		ids = append(ids, id.String())
	}

	matches, err := r.store.Query(ctx, r.namespace, vectorstore.Query{
		Vector: vector,
		TopK:   r.topK,
		Filter: vectorstore.Filter{
			MetaOwnerUserID: vectorstore.Eq(ownerID.String()),
			MetaDocumentID:  vectorstore.In(ids),
		},
	})
	if err != nil {
		var docID uuid.UUID
		if len(docIDs) == 1 {
			docID = docIDs[0]
		}
		return nil, &UpstreamError{Op: "vector_query", DocumentID: docID, Err: err}
	}

	out := make([]ChunkHit, 0, len(matches))
	for _, m := range matches {
		docID, err := uuid.Parse(m.MetaString(MetaDocumentID))
		if err != nil {
			continue
		}
		if _, ok := allowed[docID]; !ok {
			r.log.Warn("Dropping chunk outside requested document set", "chunk_id", m.ID, "document_id", docID)
			continue
		}
		if owner := m.MetaString(MetaOwnerUserID); owner != "" && owner != ownerID.String() {
			r.log.Warn("Dropping chunk owned by another tenant", "chunk_id", m.ID)
			continue
		}
		out = append(out, ChunkHit{
			DocumentID: docID,
			Content:    m.MetaString(MetaContent),
			Score:      clampUnit(m.Score),
			Filename:   m.MetaString(MetaFilename),
		})
	}
	return out, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
