package app

import "testing"

func TestResolveVectorProvider(t *testing.T) {
	cases := []struct {
		name     string
		explicit string
		qdrant   string
		pinecone string
		want     VectorProvider
		source   string
	}{
		{name: "explicit wins", explicit: "Pinecone", qdrant: "http://q:6333", want: VectorProviderPinecone, source: "explicit"},
		{name: "qdrant url", qdrant: "http://q:6333", pinecone: "k", want: VectorProviderQdrant, source: "qdrant_url_default"},
		{name: "pinecone key", pinecone: "k", want: VectorProviderPinecone, source: "pinecone_api_key_default"},
		{name: "memory fallback", want: VectorProviderMemory, source: "fallback"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("QDRANT_URL", tc.qdrant)
			t.Setenv("PINECONE_API_KEY", tc.pinecone)
			got, src := resolveVectorProvider(tc.explicit)
			if got != tc.want || src != tc.source {
				t.Fatalf("want=%s/%s got=%s/%s", tc.want, tc.source, got, src)
			}
		})
	}
}
