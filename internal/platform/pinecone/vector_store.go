package pinecone

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/reqmatch-backend/internal/platform/envutil"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/platform/vectorstore"
)

type StoreConfig struct {
	IndexName       string
	IndexHost       string
	NamespacePrefix string
}

func StoreConfigFromEnv() StoreConfig {
	return StoreConfig{
		IndexName:       envutil.String("PINECONE_INDEX_NAME", ""),
		IndexHost:       envutil.String("PINECONE_INDEX_HOST", ""),
		NamespacePrefix: envutil.String("PINECONE_NAMESPACE_PREFIX", "rm"),
	}
}

type vectorStore struct {
	log       *logger.Logger
	pc        Client
	indexHost string
	nsPrefix  string
}

func NewVectorStore(ctx context.Context, log *logger.Logger, pc Client, cfg StoreConfig) (vectorstore.Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}
	host := strings.TrimSpace(cfg.IndexHost)
	if host == "" {
		if strings.TrimSpace(cfg.IndexName) == "" {
			return nil, fmt.Errorf("missing PINECONE_INDEX_NAME")
		}
		desc, err := pc.DescribeIndex(ctx, cfg.IndexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = desc.Host
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index",
			"index_name", cfg.IndexName,
			"index_host", host,
		)
	}
	prefix := strings.TrimSpace(cfg.NamespacePrefix)
	if prefix == "" {
		prefix = "rm"
	}
	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexHost: host,
		nsPrefix:  prefix,
	}, nil
}

func (s *vectorStore) Upsert(ctx context.Context, namespace string, vectors []vectorstore.Vector) error {
	_, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{
		Namespace: vectorstore.QualifyNamespace(s.nsPrefix, namespace),
		Vectors:   vectors,
	})
	return err
}

func (s *vectorStore) Query(ctx context.Context, namespace string, q vectorstore.Query) ([]vectorstore.Match, error) {
	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Namespace:       vectorstore.QualifyNamespace(s.nsPrefix, namespace),
		Vector:          q.Vector,
		TopK:            q.TopK,
		Filter:          q.Filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]vectorstore.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		out = append(out, vectorstore.Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return out, nil
}

func (s *vectorStore) Delete(ctx context.Context, namespace string, ids []string) error {
	return s.pc.DeleteVectors(ctx, s.indexHost, DeleteRequest{
		Namespace: vectorstore.QualifyNamespace(s.nsPrefix, namespace),
		IDs:       ids,
	})
}
