package matching

import (
	"math"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/reqmatch-backend/internal/domain"
)

// Evaluation is everything known about one document before fusion.
type Evaluation struct {
	DocumentID  uuid.UUID
	VectorScore float64
	Evidence    []types.EvidenceItem
	Verdict     Verdict
	Judged      bool
	JudgeModel  string
}

// FinalScore maps a similarity in [0,1] to an integer in [0,100].
func FinalScore(vectorScore float64) int {
	s := int(math.Round(vectorScore * 100))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// ConfidenceFor tiers a final score. Boundaries fall to the lower tier.
func ConfidenceFor(score int) types.Confidence {
	switch {
	case score > 80:
		return types.ConfidenceHigh
	case score > 60:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

// Fuse builds the classification for one (document, requirement) pair.
// The judge verdict is a veto; the score itself is the vector score.
func Fuse(req *types.Requirement, threshold int, ev Evaluation) *types.Classification {
	score := FinalScore(ev.VectorScore)
	conf := ConfidenceFor(score)
	if !ev.Judged {
		conf = gatedConfidence
	}

	matched := ev.Verdict.Match && score >= threshold
	primary := matched && score >= threshold
	// score >= 0.8 * threshold in integer form
	secondary := matched && score*10 >= threshold*8

	var ai *int
	if ev.Judged {
		v := 0
		if ev.Verdict.Match {
			v = 100
		}
		ai = &v
	}

	evidence := ev.Evidence
	if evidence == nil {
		evidence = []types.EvidenceItem{}
	}

	return &types.Classification{
		DocumentID:    ev.DocumentID,
		RequirementID: req.ID,
		OwnerUserID:   req.OwnerUserID,
		Score:         score,
		Confidence:    conf,
		IsMatched:     matched,
		IsPrimary:     primary,
		IsSecondary:   secondary,
		Evidence:      datatypes.JSONSlice[types.EvidenceItem](evidence),
		Reason:        ev.Verdict.Reason,
		RawScores: datatypes.NewJSONType(types.RawScores{
			Vector: ev.VectorScore,
			AI:     ai,
			Final:  score,
		}),
		Judged:        ev.Judged,
		JudgeModel:    ev.JudgeModel,
		SchemaVersion: types.ClassificationSchemaVersion,
	}
}
