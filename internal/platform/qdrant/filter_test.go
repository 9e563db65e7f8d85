package qdrant

import (
	"errors"
	"testing"

	"github.com/yungbote/reqmatch-backend/internal/platform/vectorstore"
)

func TestTranslateFilterOwnerAndDocumentSet(t *testing.T) {
	got, err := translateFilter(vectorstore.Filter{
		"owner_id":    vectorstore.Eq("u1"),
		"document_id": vectorstore.In([]string{"d1", "d2"}),
	})
	if err != nil {
		t.Fatalf("translateFilter: %v", err)
	}
	if len(got.Must) != 2 {
		t.Fatalf("must length: want=2 got=%d", len(got.Must))
	}
	// sorted: document_id first
	doc := got.Must[0].(map[string]any)
	if doc["key"] != "document_id" {
		t.Fatalf("first condition: got=%v", doc)
	}
	anyVals := doc["match"].(map[string]any)["any"].([]any)
	if len(anyVals) != 2 || anyVals[0] != "d1" {
		t.Fatalf("document any values: got=%v", anyVals)
	}
	owner := got.Must[1].(map[string]any)
	if owner["match"].(map[string]any)["value"] != "u1" {
		t.Fatalf("owner match: got=%v", owner)
	}
}

func TestTranslateFilterNotAndNe(t *testing.T) {
	got, err := translateFilter(map[string]any{
		"$not":   map[string]any{"kind": "draft"},
		"status": map[string]any{"$ne": "deleted"},
	})
	if err != nil {
		t.Fatalf("translateFilter: %v", err)
	}
	if len(got.MustNot) != 2 {
		t.Fatalf("must_not length: want=2 got=%d", len(got.MustNot))
	}
}

func TestTranslateFilterRejects(t *testing.T) {
	cases := []struct {
		name   string
		filter map[string]any
		code   OperationErrorCode
	}{
		{"gt", map[string]any{"n": map[string]any{"$gt": 2}}, OperationErrorUnsupportedFilter},
		{"nor", map[string]any{"$nor": []any{}}, OperationErrorUnsupportedFilter},
		{"empty in", map[string]any{"d": map[string]any{"$in": []any{}}}, OperationErrorValidation},
		{"nested value", map[string]any{"d": []int{1}}, OperationErrorValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := translateFilter(tc.filter)
			var oe *OperationError
			if !errors.As(err, &oe) || oe.Code != tc.code {
				t.Fatalf("want code %q, got %v", tc.code, err)
			}
		})
	}
}
