package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NodeStore interface {
	Create(ctx context.Context, n *Node) error
	GetByID(ctx context.Context, id uuid.UUID) (*Node, error)
	UpdatePinned(ctx context.Context, id uuid.UUID, pinned bool) error

	// ListCaseCandidates returns non-evidence nodes in the case whose
	// embedding is present, for similarity gating in the linker.
	ListCaseCandidates(ctx context.Context, caseID uuid.UUID) ([]Node, error)

	// FindSimilar runs a cosine similarity search over nodes at the given
	// scope level, returning matches with score >= threshold, best first.
	FindSimilar(ctx context.Context, level ScopeLevel, scopeID uuid.UUID, embedding []float32, threshold float32, limit int) ([]NodeWithScore, error)

	// Tier queries for retrieval.
	ListPinned(ctx context.Context, level ScopeLevel, scopeID uuid.UUID, limit int) ([]Node, error)
	ListRecent(ctx context.Context, level ScopeLevel, scopeID uuid.UUID, limit int) ([]Node, error)
	ListFrequent(ctx context.Context, level ScopeLevel, scopeID uuid.UUID, minAccess, limit int) ([]Node, error)
	ListOlderThan(ctx context.Context, level ScopeLevel, scopeID uuid.UUID, cutoff time.Time, limit int) ([]Node, error)

	// UpdateStatus writes a derived status. The write is linearizable per
	// node (a single-row update); no cross-node ordering is promised.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// IncrementAccess bumps access_count and last_accessed_at. Callers treat
	// it as an eventually consistent counter and never block on it.
	IncrementAccess(ctx context.Context, id uuid.UUID) error
}

type EdgeStore interface {
	// Create persists an edge. Creating the same (source, target, relation)
	// twice is a no-op, not a duplicate.
	Create(ctx context.Context, e *Edge) error
	GetBySource(ctx context.Context, sourceID uuid.UUID) ([]Edge, error)
	GetByTarget(ctx context.Context, targetID uuid.UUID) ([]Edge, error)

	// TallyByTarget counts incoming supports and contradicts edges.
	TallyByTarget(ctx context.Context, targetID uuid.UUID) (EdgeTally, error)
}

type ContradictionStore interface {
	Create(ctx context.Context, c *Contradiction) error
	GetByNodeID(ctx context.Context, nodeID uuid.UUID) ([]Contradiction, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Classifier judges the relationship between a piece of evidence and an
// existing node. Implementations normalize loose model output through
// NormalizeRelationLabel before returning.
type Classifier interface {
	ClassifyRelation(ctx context.Context, evidenceText, candidateText string) (*RelationJudgement, error)
}
