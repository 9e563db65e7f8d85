package matching

import types "github.com/yungbote/reqmatch-backend/internal/domain"

const GatedReason = "similarity too low to evaluate"

// Gate decides whether a document is similar enough to be judged.
type Gate struct {
	Threshold float64
}

func (g Gate) Allows(vectorScore float64) bool { return vectorScore >= g.Threshold }

// GatedVerdict is the fixed verdict for documents below the gate.
func GatedVerdict() Verdict {
	return Verdict{Match: false, Reason: GatedReason}
}

// gatedConfidence is forced for documents that never reached the judge.
const gatedConfidence = types.ConfidenceLow
