package matching

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/reqmatch-backend/internal/domain"
)

// DocumentScore is the per-document view of the retrieved chunks.
type DocumentScore struct {
	DocumentID  uuid.UUID
	VectorScore float64
	Evidence    []types.EvidenceItem
}

// Aggregate groups hits by document. The vector score is the maximum chunk
// score and evidence holds the best maxEvidence chunks, each cut to maxRunes.
// Documents without hits do not appear. Output is ordered by document id.
func Aggregate(hits []ChunkHit, maxEvidence, maxRunes int) []DocumentScore {
	type indexed struct {
		hit ChunkHit
		pos int
	}
	groups := map[uuid.UUID][]indexed{}
	for i, h := range hits {
		groups[h.DocumentID] = append(groups[h.DocumentID], indexed{hit: h, pos: i})
	}

	out := make([]DocumentScore, 0, len(groups))
	for docID, list := range groups {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].hit.Score == list[j].hit.Score {
				return list[i].pos < list[j].pos
			}
			return list[i].hit.Score > list[j].hit.Score
		})
		ds := DocumentScore{DocumentID: docID, VectorScore: list[0].hit.Score}
		for i := 0; i < len(list) && i < maxEvidence; i++ {
			h := list[i].hit
			ds.Evidence = append(ds.Evidence, types.EvidenceItem{
				Filename: h.Filename,
				Content:  truncateRunes(strings.TrimSpace(h.Content), maxRunes),
				Score:    h.Score,
			})
		}
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID.String() < out[j].DocumentID.String() })
	return out
}

// EvidenceText renders evidence as "[filename] content" blocks.
func EvidenceText(items []types.EvidenceItem) string {
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		name := it.Filename
		if name == "" {
			name = "unknown"
		}
		blocks = append(blocks, "["+name+"] "+it.Content)
	}
	return strings.Join(blocks, "\n\n")
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
