package app

import (
	"strings"

	"github.com/yungbote/reqmatch-backend/internal/platform/envutil"
)

type VectorProvider string

const (
	VectorProviderPinecone VectorProvider = "pinecone"
	VectorProviderQdrant   VectorProvider = "qdrant"
	VectorProviderMemory   VectorProvider = "memory"
)

// resolveVectorProvider returns the configured provider and where the choice
// came from. Without VECTOR_PROVIDER the first configured backend wins, and
// the in-process store is the last resort.
func resolveVectorProvider(explicit string) (VectorProvider, string) {
	if p := strings.ToLower(strings.TrimSpace(explicit)); p != "" {
		return VectorProvider(p), "explicit"
	}
	if envutil.String("QDRANT_URL", "") != "" {
		return VectorProviderQdrant, "qdrant_url_default"
	}
	if envutil.String("PINECONE_API_KEY", "") != "" {
		return VectorProviderPinecone, "pinecone_api_key_default"
	}
	return VectorProviderMemory, "fallback"
}
