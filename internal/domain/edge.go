package domain

import (
	"time"

	"github.com/google/uuid"
)

// Relation is the typed link between two nodes. A relation is immutable once
// an edge is created; relationship changes are expressed by creating or
// removing edges, never by mutating this field.
type Relation string

const (
	RelationSupports    Relation = "supports"
	RelationContradicts Relation = "contradicts"
	RelationDependsOn   Relation = "depends_on"
)

func ValidRelation(r string) bool {
	switch Relation(r) {
	case RelationSupports, RelationContradicts, RelationDependsOn:
		return true
	}
	return false
}

type Edge struct {
	ID         uuid.UUID `json:"id"`
	SourceID   uuid.UUID `json:"source_id"`
	TargetID   uuid.UUID `json:"target_id"`
	Relation   Relation  `json:"relation"`
	Confidence float32   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// Contradiction records that a piece of evidence was classified as
// contradicting an existing node. The host turns these into objections.
type Contradiction struct {
	ID         uuid.UUID `json:"id"`
	NodeID     uuid.UUID `json:"node_id"`
	EvidenceID uuid.UUID `json:"evidence_id"`
	Confidence float32   `json:"confidence"`
	Rationale  string    `json:"rationale,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// EdgeTally is the balance of incoming supports/contradicts edges for a node.
type EdgeTally struct {
	Supporting    int `json:"supporting"`
	Contradicting int `json:"contradicting"`
}
