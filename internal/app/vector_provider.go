package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"
	"time"

	"github.com/yungbote/reqmatch-backend/internal/observability"
	"github.com/yungbote/reqmatch-backend/internal/platform/envutil"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/platform/pinecone"
	"github.com/yungbote/reqmatch-backend/internal/platform/qdrant"
	"github.com/yungbote/reqmatch-backend/internal/platform/vectorstore"
)

var (
	newPineconeClient      = pinecone.New
	newPineconeVectorStore = pinecone.NewVectorStore
	newQdrantVectorStore   = qdrant.NewVectorStore
)

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorInvalidProvider     VectorProviderBootstrapErrorCode = "invalid_provider"
	VectorProviderBootstrapErrorMissingQdrantURL    VectorProviderBootstrapErrorCode = "missing_qdrant_url"
	VectorProviderBootstrapErrorInvalidQdrantURL    VectorProviderBootstrapErrorCode = "invalid_qdrant_url"
	VectorProviderBootstrapErrorMissingQdrantColl   VectorProviderBootstrapErrorCode = "missing_qdrant_collection"
	VectorProviderBootstrapErrorInvalidQdrantVector VectorProviderBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderBootstrapErrorMissingAPIKey       VectorProviderBootstrapErrorCode = "missing_api_key"
	VectorProviderBootstrapErrorConnectFailed       VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed  VectorProviderBootstrapErrorCode = "provider_init_failed"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider VectorProvider
	Source   string
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q source=%q): %v", e.Code, e.Provider, e.Source, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// openVectorStore builds the chunk store for the resolved provider, wrapped
// with operation metrics.
func openVectorStore(ctx context.Context, log *logger.Logger, explicit string) (vectorstore.Store, VectorProvider, error) {
	provider, source := resolveVectorProvider(explicit)
	metrics := observability.Current()
	log.Info("Selecting vector store provider", "provider", provider, "provider_source", source)

	store, err := buildVectorStore(ctx, log, provider)
	if err != nil {
		classified := classifyVectorProviderBootstrapError(provider, source, err)
		code := vectorProviderBootstrapErrorCode(classified)
		metrics.ObserveVectorStoreBootstrap(string(provider), "error", string(code))
		log.Error("Vector store provider bootstrap failed", "provider", provider, "provider_source", source, "error_code", code, "error", classified)
		return nil, provider, classified
	}
	if provider == VectorProviderMemory {
		log.Warn("Using in-process vector store; indexed chunks do not survive restarts")
	}
	metrics.ObserveVectorStoreBootstrap(string(provider), "success", "none")
	return vectorstore.Instrument(string(provider), store), provider, nil
}

func buildVectorStore(ctx context.Context, log *logger.Logger, provider VectorProvider) (vectorstore.Store, error) {
	switch provider {
	case VectorProviderQdrant:
		cfg, err := qdrant.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		return newQdrantVectorStore(ctx, log, cfg)
	case VectorProviderPinecone:
		apiKey := envutil.String("PINECONE_API_KEY", "")
		if apiKey == "" {
			return nil, &VectorProviderBootstrapError{
				Code:     VectorProviderBootstrapErrorMissingAPIKey,
				Provider: provider,
				Cause:    errors.New("PINECONE_API_KEY not set"),
			}
		}
		pc, err := newPineconeClient(log, pinecone.Config{
			APIKey:     apiKey,
			APIVersion: envutil.String("PINECONE_API_VERSION", ""),
			BaseURL:    envutil.String("PINECONE_BASE_URL", ""),
			Timeout:    30 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return newPineconeVectorStore(ctx, log, pc, pinecone.StoreConfigFromEnv())
	case VectorProviderMemory:
		return vectorstore.NewMemory(), nil
	default:
		return nil, &VectorProviderBootstrapError{
			Code:     VectorProviderBootstrapErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported vector provider %q", provider),
		}
	}
}

func classifyVectorProviderBootstrapError(provider VectorProvider, source string, err error) error {
	wrap := func(code VectorProviderBootstrapErrorCode) error {
		return &VectorProviderBootstrapError{Code: code, Provider: provider, Source: source, Cause: err}
	}

	var bootErr *VectorProviderBootstrapError
	if errors.As(err, &bootErr) {
		bootErr.Source = source
		return bootErr
	}
	var urlErr *neturl.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return wrap(VectorProviderBootstrapErrorMissingQdrantURL)
		case qdrant.ConfigErrorInvalidURL:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantURL)
		case qdrant.ConfigErrorMissingCollection:
			return wrap(VectorProviderBootstrapErrorMissingQdrantColl)
		case qdrant.ConfigErrorInvalidVectorDim:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantVector)
		}
	}
	return wrap(VectorProviderBootstrapErrorProviderInitFailed)
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return VectorProviderBootstrapErrorConnectFailed
}
