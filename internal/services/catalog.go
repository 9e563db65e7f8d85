package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	matchrepo "github.com/yungbote/reqmatch-backend/internal/data/repos/matching"
	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/pkg/ctxutil"
	"github.com/yungbote/reqmatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/platform/vectorstore"
)

const (
	defaultChunkSize    = 1200
	defaultChunkOverlap = 150
	embedBatchSize      = 64
)

type RequirementInput struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	KeyPhrases     []string `json:"key_phrases"`
	MatchThreshold *int     `json:"match_threshold"`
}

type IndexInput struct {
	// Chunks are stored as given. When empty, Text is split.
	Chunks       []string `json:"chunks"`
	Text         string   `json:"text"`
	ChunkSize    int      `json:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap"`
}

// CatalogService manages the owner's documents, their vector chunks and requirements.
type CatalogService interface {
	CreateDocument(ctx context.Context, filename string) (*types.Document, error)
	ListDocuments(ctx context.Context) ([]*types.Document, error)
	IndexChunks(ctx context.Context, documentID uuid.UUID, in IndexInput) (int, error)
	CreateRequirement(ctx context.Context, in RequirementInput) (*types.Requirement, error)
	ListRequirements(ctx context.Context) ([]*types.Requirement, error)
}

type catalogService struct {
	log          *logger.Logger
	documents    matchrepo.DocumentRepo
	requirements matchrepo.RequirementRepo
	embedder     matching.Embedder
	vectors      vectorstore.Store
	namespace    string
}

func NewCatalogService(
	log *logger.Logger,
	documents matchrepo.DocumentRepo,
	requirements matchrepo.RequirementRepo,
	embedder matching.Embedder,
	vectors vectorstore.Store,
	namespace string,
) CatalogService {
	return &catalogService{
		log:          log.With("service", "CatalogService"),
		documents:    documents,
		requirements: requirements,
		embedder:     embedder,
		vectors:      vectors,
		namespace:    namespace,
	}
}

func (s *catalogService) CreateDocument(ctx context.Context, filename string) (*types.Document, error) {
	owner := ctxutil.OwnerID(ctx)
	if owner == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, &matching.ValidationError{Field: "filename", Message: "is required"}
	}
	docs, err := s.documents.Create(dbctx.New(ctx), []*types.Document{{
		OwnerUserID:     owner,
		Filename:        filename,
		VectorNamespace: s.namespace,
	}})
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

func (s *catalogService) ListDocuments(ctx context.Context) ([]*types.Document, error) {
	owner := ctxutil.OwnerID(ctx)
	if owner == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.documents.ListByOwner(dbctx.New(ctx), owner)
}

// IndexChunks embeds and stores the document's chunks, replacing any earlier set.
func (s *catalogService) IndexChunks(ctx context.Context, documentID uuid.UUID, in IndexInput) (int, error) {
	owner := ctxutil.OwnerID(ctx)
	if owner == uuid.Nil {
		return 0, ErrUnauthenticated
	}
	doc, err := s.documents.GetByID(dbctx.New(ctx), documentID)
	if err != nil {
		return 0, err
	}
	if doc == nil || doc.OwnerUserID != owner {
		return 0, &matching.NotFoundError{Kind: "document", ID: documentID}
	}

	chunks := make([]string, 0, len(in.Chunks))
	for _, c := range in.Chunks {
		if c = strings.TrimSpace(c); c != "" {
			chunks = append(chunks, c)
		}
	}
	if len(chunks) == 0 {
		chunks = SplitIntoChunks(in.Text, in.ChunkSize, in.ChunkOverlap)
	}
	if len(chunks) == 0 {
		return 0, &matching.ValidationError{Field: "chunks", Message: "no text to index"}
	}

	// The engine queries one shared namespace, scoped by owner and document filters.
	namespace := s.namespace

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		vecs, err := s.embedder.Embed(ctx, chunks[start:end])
		if err != nil {
			return 0, &matching.UpstreamError{Op: "embed", DocumentID: doc.ID, Err: err}
		}
		batch := make([]vectorstore.Vector, 0, len(vecs))
		for i, v := range vecs {
			idx := start + i
			batch = append(batch, vectorstore.Vector{
				ID:     chunkID(doc.ID, idx),
				Values: v,
				Metadata: map[string]any{
					matching.MetaOwnerUserID: doc.OwnerUserID.String(),
					matching.MetaDocumentID:  doc.ID.String(),
					matching.MetaContent:     chunks[idx],
					matching.MetaFilename:    doc.Filename,
					"chunk_index":            idx,
				},
			})
		}
		if err := s.vectors.Upsert(ctx, namespace, batch); err != nil {
			return 0, &matching.UpstreamError{Op: "vector_upsert", DocumentID: doc.ID, Err: err}
		}
	}

	if doc.ChunkCount > len(chunks) {
		stale := make([]string, 0, doc.ChunkCount-len(chunks))
		for i := len(chunks); i < doc.ChunkCount; i++ {
			stale = append(stale, chunkID(doc.ID, i))
		}
		if err := s.vectors.Delete(ctx, namespace, stale); err != nil {
			return 0, &matching.UpstreamError{Op: "vector_delete", DocumentID: doc.ID, Err: err}
		}
	}
	if err := s.documents.UpdateChunkCount(dbctx.New(ctx), doc.ID, len(chunks)); err != nil {
		return 0, fmt.Errorf("update chunk count: %w", err)
	}
	s.log.Info("Indexed document chunks", "document_id", doc.ID, "chunks", len(chunks), "previous", doc.ChunkCount)
	return len(chunks), nil
}

func (s *catalogService) CreateRequirement(ctx context.Context, in RequirementInput) (*types.Requirement, error) {
	owner := ctxutil.OwnerID(ctx)
	if owner == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	req := &types.Requirement{
		OwnerUserID:    owner,
		Name:           strings.TrimSpace(in.Name),
		Description:    strings.TrimSpace(in.Description),
		KeyPhrases:     datatypes.JSONSlice[string](in.KeyPhrases),
		MatchThreshold: in.MatchThreshold,
	}
	req.KeyPhrases = req.Phrases()
	if _, err := matching.ValidateRequirement(req); err != nil {
		return nil, err
	}
	out, err := s.requirements.Create(dbctx.New(ctx), []*types.Requirement{req})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *catalogService) ListRequirements(ctx context.Context) ([]*types.Requirement, error) {
	owner := ctxutil.OwnerID(ctx)
	if owner == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.requirements.ListByOwner(dbctx.New(ctx), owner)
}

func chunkID(documentID uuid.UUID, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}

// SplitIntoChunks cuts text into overlapping windows of chunkSize runes.
func SplitIntoChunks(text string, chunkSize int, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkSize < 200 {
		chunkSize = 200
	}
	if overlap <= 0 {
		overlap = defaultChunkOverlap
	}
	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	runes := []rune(text)
	out := []string{}
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if p := strings.TrimSpace(string(runes[start:end])); p != "" {
			out = append(out, p)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
