package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/casegraph/casegraph/internal/domain"
)

var errMockNotFound = errors.New("not found")

type mockNodeStore struct {
	mu    sync.Mutex
	nodes map[uuid.UUID]*domain.Node

	updateStatusErr error
	statusWrites    map[uuid.UUID][]domain.Status

	// incremented receives node IDs as IncrementAccess lands, when set.
	incremented chan uuid.UUID

	olderThanCalls int
}

func newMockNodeStore() *mockNodeStore {
	return &mockNodeStore{
		nodes:        make(map[uuid.UUID]*domain.Node),
		statusWrites: make(map[uuid.UUID][]domain.Status),
	}
}

func (m *mockNodeStore) add(n domain.Node) domain.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	stored := n
	m.nodes[n.ID] = &stored
	return n
}

func (m *mockNodeStore) Create(ctx context.Context, n *domain.Node) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()
	m.add(*n)
	return nil
}

func (m *mockNodeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, errMockNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *mockNodeStore) UpdatePinned(ctx context.Context, id uuid.UUID, pinned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return errMockNotFound
	}
	n.Pinned = pinned
	return nil
}

func (m *mockNodeStore) ListCaseCandidates(ctx context.Context, caseID uuid.UUID) ([]domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Node
	for _, n := range m.nodes {
		if n.CaseID == nil || *n.CaseID != caseID {
			continue
		}
		if n.Kind == domain.KindEvidence || len(n.Embedding) == 0 {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockNodeStore) inScope(n *domain.Node, level domain.ScopeLevel, scopeID uuid.UUID) bool {
	id := n.ScopeIDFor(level)
	return id != nil && *id == scopeID
}

func (m *mockNodeStore) FindSimilar(ctx context.Context, level domain.ScopeLevel, scopeID uuid.UUID, embedding []float32, threshold float32, limit int) ([]domain.NodeWithScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.NodeWithScore
	for _, n := range m.nodes {
		if !m.inScope(n, level, scopeID) || len(n.Embedding) == 0 {
			continue
		}
		score := CosineSimilarity(embedding, n.Embedding)
		if score >= threshold {
			out = append(out, domain.NodeWithScore{Node: *n, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockNodeStore) listWhere(level domain.ScopeLevel, scopeID uuid.UUID, limit int, keep func(*domain.Node) bool, less func(a, b *domain.Node) bool) []domain.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*domain.Node
	for _, n := range m.nodes {
		if m.inScope(n, level, scopeID) && keep(n) {
			matched = append(matched, n)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return less(matched[i], matched[j]) })
	out := make([]domain.Node, 0, len(matched))
	for _, n := range matched {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, *n)
	}
	return out
}

func (m *mockNodeStore) ListPinned(ctx context.Context, level domain.ScopeLevel, scopeID uuid.UUID, limit int) ([]domain.Node, error) {
	return m.listWhere(level, scopeID, limit,
		func(n *domain.Node) bool { return n.Pinned },
		func(a, b *domain.Node) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (m *mockNodeStore) ListRecent(ctx context.Context, level domain.ScopeLevel, scopeID uuid.UUID, limit int) ([]domain.Node, error) {
	return m.listWhere(level, scopeID, limit,
		func(n *domain.Node) bool { return true },
		func(a, b *domain.Node) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (m *mockNodeStore) ListFrequent(ctx context.Context, level domain.ScopeLevel, scopeID uuid.UUID, minAccess, limit int) ([]domain.Node, error) {
	return m.listWhere(level, scopeID, limit,
		func(n *domain.Node) bool { return n.AccessCount >= minAccess },
		func(a, b *domain.Node) bool { return a.AccessCount > b.AccessCount }), nil
}

func (m *mockNodeStore) ListOlderThan(ctx context.Context, level domain.ScopeLevel, scopeID uuid.UUID, cutoff time.Time, limit int) ([]domain.Node, error) {
	m.mu.Lock()
	m.olderThanCalls++
	m.mu.Unlock()
	return m.listWhere(level, scopeID, limit,
		func(n *domain.Node) bool { return n.CreatedAt.Before(cutoff) },
		func(a, b *domain.Node) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (m *mockNodeStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateStatusErr != nil {
		return m.updateStatusErr
	}
	n, ok := m.nodes[id]
	if !ok || n.Kind != domain.KindAssumption {
		return errMockNotFound
	}
	s := status
	n.Status = &s
	m.statusWrites[id] = append(m.statusWrites[id], status)
	return nil
}

func (m *mockNodeStore) IncrementAccess(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	n, ok := m.nodes[id]
	if ok {
		n.AccessCount++
		now := time.Now()
		n.LastAccessedAt = &now
	}
	ch := m.incremented
	m.mu.Unlock()
	if !ok {
		return errMockNotFound
	}
	if ch != nil {
		ch <- id
	}
	return nil
}

type edgeKey struct {
	source, target uuid.UUID
	relation       domain.Relation
}

type mockEdgeStore struct {
	mu    sync.Mutex
	edges map[edgeKey]domain.Edge

	// failTargets makes Create fail for the listed target IDs.
	failTargets map[uuid.UUID]error

	// tallies overrides edge counting when set.
	tallies map[uuid.UUID]domain.EdgeTally
}

func newMockEdgeStore() *mockEdgeStore {
	return &mockEdgeStore{edges: make(map[edgeKey]domain.Edge)}
}

func (m *mockEdgeStore) Create(ctx context.Context, e *domain.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failTargets[e.TargetID]; ok {
		return err
	}
	key := edgeKey{e.SourceID, e.TargetID, e.Relation}
	if existing, ok := m.edges[key]; ok {
		*e = existing
		return nil
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.edges[key] = *e
	return nil
}

func (m *mockEdgeStore) GetBySource(ctx context.Context, sourceID uuid.UUID) ([]domain.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Edge
	for _, e := range m.edges {
		if e.SourceID == sourceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEdgeStore) GetByTarget(ctx context.Context, targetID uuid.UUID) ([]domain.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Edge
	for _, e := range m.edges {
		if e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEdgeStore) TallyByTarget(ctx context.Context, targetID uuid.UUID) (domain.EdgeTally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tallies[targetID]; ok {
		return t, nil
	}
	var tally domain.EdgeTally
	for _, e := range m.edges {
		if e.TargetID != targetID {
			continue
		}
		switch e.Relation {
		case domain.RelationSupports:
			tally.Supporting++
		case domain.RelationContradicts:
			tally.Contradicting++
		}
	}
	return tally, nil
}

type mockContradictionStore struct {
	mu        sync.Mutex
	records   []domain.Contradiction
	createErr error
}

func newMockContradictionStore() *mockContradictionStore {
	return &mockContradictionStore{}
}

func (m *mockContradictionStore) Create(ctx context.Context, c *domain.Contradiction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	c.ID = uuid.New()
	c.DetectedAt = time.Now()
	m.records = append(m.records, *c)
	return nil
}

func (m *mockContradictionStore) GetByNodeID(ctx context.Context, nodeID uuid.UUID) ([]domain.Contradiction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Contradiction
	for _, c := range m.records {
		if c.NodeID == nodeID {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockEmbedder struct {
	embedding  []float32
	embedError error
	calls      int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.embedError != nil {
		return nil, m.embedError
	}
	return m.embedding, nil
}

// mockClassifier returns judgements keyed by candidate text, with an optional
// per-candidate error and a default fallback.
type mockClassifier struct {
	mu         sync.Mutex
	judgements map[string]*domain.RelationJudgement
	errFor     map[string]error
	fallback   *domain.RelationJudgement
	calls      []string
}

func newMockClassifier() *mockClassifier {
	return &mockClassifier{
		judgements: make(map[string]*domain.RelationJudgement),
		errFor:     make(map[string]error),
		fallback:   &domain.RelationJudgement{Relation: domain.LabelNeutral},
	}
}

func (m *mockClassifier) ClassifyRelation(ctx context.Context, evidenceText, candidateText string) (*domain.RelationJudgement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, candidateText)
	if err, ok := m.errFor[candidateText]; ok {
		return nil, err
	}
	if j, ok := m.judgements[candidateText]; ok {
		return j, nil
	}
	return m.fallback, nil
}

func (m *mockClassifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
