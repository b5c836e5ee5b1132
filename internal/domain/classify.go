package domain

import "strings"

// RelationLabel is the closed set of outcomes the relation classifier may
// produce. Anything else coming back from an LLM is normalized to NEUTRAL at
// the boundary.
type RelationLabel string

const (
	LabelSupports    RelationLabel = "SUPPORTS"
	LabelContradicts RelationLabel = "CONTRADICTS"
	LabelRefines     RelationLabel = "REFINES"
	LabelNeutral     RelationLabel = "NEUTRAL"
)

// NormalizeRelationLabel is the single validation point for classifier
// output. Unrecognized values fall back to NEUTRAL.
func NormalizeRelationLabel(s string) RelationLabel {
	switch RelationLabel(strings.ToUpper(strings.TrimSpace(s))) {
	case LabelSupports:
		return LabelSupports
	case LabelContradicts:
		return LabelContradicts
	case LabelRefines:
		return LabelRefines
	default:
		return LabelNeutral
	}
}

// RelationJudgement is one classification of an evidence/candidate pair.
type RelationJudgement struct {
	Relation   RelationLabel `json:"relation"`
	Confidence float32       `json:"confidence"`
	Rationale  string        `json:"rationale,omitempty"`
}
