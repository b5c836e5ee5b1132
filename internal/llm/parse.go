package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/casegraph/casegraph/internal/domain"
)

// rawJudgement matches the loose JSON shape models actually return.
type rawJudgement struct {
	Relation   string  `json:"relation"`
	Confidence float32 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// parseRelationJudgement normalizes model output into the closed relation
// set. Unrecognized relation values become NEUTRAL; confidence is clamped to
// [0, 1]. Malformed JSON is an error so callers can apply their own
// degradation policy.
func parseRelationJudgement(raw string) (*domain.RelationJudgement, error) {
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var rj rawJudgement
	if err := json.Unmarshal([]byte(raw), &rj); err != nil {
		return nil, fmt.Errorf("parse relation judgement: %w (raw: %s)", err, raw)
	}

	confidence := rj.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &domain.RelationJudgement{
		Relation:   domain.NormalizeRelationLabel(rj.Relation),
		Confidence: confidence,
		Rationale:  rj.Rationale,
	}, nil
}
