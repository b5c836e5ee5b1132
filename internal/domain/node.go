package domain

import (
	"time"

	"github.com/google/uuid"
)

type NodeKind string

const (
	KindAssumption     NodeKind = "assumption"
	KindClaim          NodeKind = "claim"
	KindQuestion       NodeKind = "question"
	KindConstraint     NodeKind = "constraint"
	KindGoal           NodeKind = "goal"
	KindDecisionIntent NodeKind = "decision_intent"
	KindEvidence       NodeKind = "evidence"
	KindObjection      NodeKind = "objection"
)

func ValidNodeKind(k string) bool {
	switch NodeKind(k) {
	case KindAssumption, KindClaim, KindQuestion, KindConstraint,
		KindGoal, KindDecisionIntent, KindEvidence, KindObjection:
		return true
	}
	return false
}

// Status is the derived epistemic state of an assumption node.
// It is meaningless for every other node kind.
type Status string

const (
	StatusUntested   Status = "untested"
	StatusConfirmed  Status = "confirmed"
	StatusChallenged Status = "challenged"
	StatusRefuted    Status = "refuted"
)

func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusUntested, StatusConfirmed, StatusChallenged, StatusRefuted:
		return true
	}
	return false
}

type Node struct {
	ID             uuid.UUID  `json:"id"`
	Kind           NodeKind   `json:"kind"`
	Text           string     `json:"text"`
	Embedding      []float32  `json:"-"`
	Status         *Status    `json:"status,omitempty"`
	ThreadID       *uuid.UUID `json:"thread_id,omitempty"`
	CaseID         *uuid.UUID `json:"case_id,omitempty"`
	ProjectID      *uuid.UUID `json:"project_id,omitempty"`
	Pinned         bool       `json:"pinned"`
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CurrentStatus returns the node's derived status, defaulting to untested
// for assumption nodes that have never been recomputed.
func (n *Node) CurrentStatus() Status {
	if n.Status == nil {
		return StatusUntested
	}
	return *n.Status
}

// ScopeIDFor returns the node's identifier at the given scope level, or nil
// if the node is not attached at that level.
func (n *Node) ScopeIDFor(level ScopeLevel) *uuid.UUID {
	switch level {
	case ScopeThread:
		return n.ThreadID
	case ScopeCase:
		return n.CaseID
	case ScopeProject:
		return n.ProjectID
	}
	return nil
}

type NodeWithScore struct {
	Node
	Score float32 `json:"score"`
}
