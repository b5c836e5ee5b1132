package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casegraph/casegraph/internal/domain"
)

type linkerFixture struct {
	linker         *LinkerService
	nodes          *mockNodeStore
	edges          *mockEdgeStore
	contradictions *mockContradictionStore
	classifier     *mockClassifier
	caseID         uuid.UUID
}

func newLinkerFixture() *linkerFixture {
	nodes := newMockNodeStore()
	edges := newMockEdgeStore()
	contradictions := newMockContradictionStore()
	classifier := newMockClassifier()
	cascade := NewCascadeService(nodes, edges, nil, domain.DefaultMaxCascadeDepth, zap.NewNop())
	linker := NewLinkerService(nodes, edges, contradictions, classifier, cascade,
		0.82, 0.70, 5*time.Second, zap.NewNop())
	return &linkerFixture{
		linker:         linker,
		nodes:          nodes,
		edges:          edges,
		contradictions: contradictions,
		classifier:     classifier,
		caseID:         uuid.New(),
	}
}

func (f *linkerFixture) addNode(kind domain.NodeKind, text string, embedding []float32) domain.Node {
	return f.nodes.add(domain.Node{
		Kind:      kind,
		Text:      text,
		Embedding: embedding,
		CaseID:    &f.caseID,
	})
}

func (f *linkerFixture) evidence(text string, embedding []float32) domain.Node {
	return f.addNode(domain.KindEvidence, text, embedding)
}

func TestLinkEvidence_SupportsEdgeAndCascade(t *testing.T) {
	f := newLinkerFixture()

	assumption := f.addNode(domain.KindAssumption, "p95 latency is network-bound", []float32{1, 0, 0})
	evidence := f.evidence("trace shows 80ms in TLS handshake", []float32{1, 0, 0})
	f.classifier.judgements[assumption.Text] = &domain.RelationJudgement{
		Relation: domain.LabelSupports, Confidence: 0.9,
	}

	result, err := f.linker.LinkEvidence(context.Background(), &evidence)
	if err != nil {
		t.Fatalf("LinkEvidence failed: %v", err)
	}
	if len(result.EdgesCreated) != 1 {
		t.Fatalf("edges created = %d, want 1", len(result.EdgesCreated))
	}

	outgoing, _ := f.edges.GetBySource(context.Background(), evidence.ID)
	if len(outgoing) != 1 {
		t.Fatalf("expected one persisted edge, got %d", len(outgoing))
	}
	edge := outgoing[0]
	if edge.TargetID != assumption.ID || edge.Relation != domain.RelationSupports {
		t.Errorf("edge = %+v, want supports edge to assumption", edge)
	}
	if edge.Confidence != 0.9 {
		t.Errorf("edge confidence = %f, want 0.9", edge.Confidence)
	}

	if len(result.Cascades) != 1 || !result.Cascades[0].Changed {
		t.Fatalf("cascades = %+v, want one status change", result.Cascades)
	}
	stored, _ := f.nodes.GetByID(context.Background(), assumption.ID)
	if stored.CurrentStatus() != domain.StatusConfirmed {
		t.Errorf("assumption status = %s, want confirmed", stored.CurrentStatus())
	}
}

func TestLinkEvidence_ContradictionRecordedAndRefuted(t *testing.T) {
	f := newLinkerFixture()

	assumption := f.addNode(domain.KindAssumption, "the cache eviction never races", []float32{0, 1, 0})
	evidence := f.evidence("repro: concurrent evictions corrupt the index", []float32{0, 1, 0})
	f.classifier.judgements[assumption.Text] = &domain.RelationJudgement{
		Relation: domain.LabelContradicts, Confidence: 0.88, Rationale: "direct counterexample",
	}

	result, err := f.linker.LinkEvidence(context.Background(), &evidence)
	if err != nil {
		t.Fatalf("LinkEvidence failed: %v", err)
	}
	if len(result.EdgesCreated) != 1 {
		t.Errorf("edges created = %d, want 1", len(result.EdgesCreated))
	}
	if len(result.Contradictions) != 1 {
		t.Fatalf("contradictions = %d, want 1", len(result.Contradictions))
	}
	c := result.Contradictions[0]
	if c.NodeID != assumption.ID || c.EvidenceID != evidence.ID {
		t.Errorf("contradiction record = %+v, want node/evidence pair", c)
	}
	if c.Rationale != "direct counterexample" {
		t.Errorf("rationale = %q, want classifier rationale carried through", c.Rationale)
	}

	stored, _ := f.nodes.GetByID(context.Background(), assumption.ID)
	if stored.CurrentStatus() != domain.StatusRefuted {
		t.Errorf("assumption status = %s, want refuted", stored.CurrentStatus())
	}
}

func TestLinkEvidence_ContestedAssumptionBecomesChallenged(t *testing.T) {
	f := newLinkerFixture()

	assumption := f.addNode(domain.KindAssumption, "writes are append-only", []float32{0, 0, 1})
	prior := f.evidence("log segments only ever grow", []float32{0, 1, 0})
	if err := f.edges.Create(context.Background(), &domain.Edge{
		SourceID: prior.ID, TargetID: assumption.ID,
		Relation: domain.RelationSupports, Confidence: 0.9,
	}); err != nil {
		t.Fatalf("seed edge failed: %v", err)
	}

	evidence := f.evidence("compaction rewrites old segments in place", []float32{0, 0, 1})
	f.classifier.judgements[assumption.Text] = &domain.RelationJudgement{
		Relation: domain.LabelContradicts, Confidence: 0.8,
	}

	if _, err := f.linker.LinkEvidence(context.Background(), &evidence); err != nil {
		t.Fatalf("LinkEvidence failed: %v", err)
	}

	stored, _ := f.nodes.GetByID(context.Background(), assumption.ID)
	if stored.CurrentStatus() != domain.StatusChallenged {
		t.Errorf("contested assumption status = %s, want challenged", stored.CurrentStatus())
	}
}

func TestLinkEvidence_SkipsWithoutEmbeddingOrCase(t *testing.T) {
	f := newLinkerFixture()
	f.addNode(domain.KindAssumption, "candidate", []float32{1, 0, 0})

	noEmbedding := f.evidence("no embedding yet", nil)
	result, err := f.linker.LinkEvidence(context.Background(), &noEmbedding)
	if err != nil {
		t.Fatalf("LinkEvidence failed: %v", err)
	}
	if len(result.EdgesCreated) != 0 || f.classifier.callCount() != 0 {
		t.Error("evidence without embedding must not be linked")
	}

	noCase := f.nodes.add(domain.Node{
		Kind: domain.KindEvidence, Text: "orphaned", Embedding: []float32{1, 0, 0},
	})
	result, err = f.linker.LinkEvidence(context.Background(), &noCase)
	if err != nil {
		t.Fatalf("LinkEvidence failed: %v", err)
	}
	if len(result.EdgesCreated) != 0 || f.classifier.callCount() != 0 {
		t.Error("evidence without a case must not be linked")
	}
}

func TestLinkEvidence_SimilarityGate(t *testing.T) {
	f := newLinkerFixture()

	// cos({1,0,0}, {1,0.9,0}) is about 0.74, under the 0.82 gate.
	f.addNode(domain.KindAssumption, "vaguely related", []float32{1, 0.9, 0})
	evidence := f.evidence("new measurement", []float32{1, 0, 0})

	result, err := f.linker.LinkEvidence(context.Background(), &evidence)
	if err != nil {
		t.Fatalf("LinkEvidence failed: %v", err)
	}
	if result.CandidatesRanked != 0 {
		t.Errorf("ranked = %d, want 0", result.CandidatesRanked)
	}
	if f.classifier.callCount() != 0 {
		t.Error("candidates under the similarity gate must not reach the classifier")
	}
}

func TestLinkEvidence_LowConfidenceDiscarded(t *testing.T) {
	f := newLinkerFixture()

	assumption := f.addNode(domain.KindAssumption, "weakly judged", []float32{1, 0, 0})
	evidence := f.evidence("ambiguous note", []float32{1, 0, 0})
	f.classifier.judgements[assumption.Text] = &domain.RelationJudgement{
		Relation: domain.LabelSupports, Confidence: 0.5,
	}

	result, err := f.linker.LinkEvidence(context.Background(), &evidence)
	if err != nil {
		t.Fatalf("LinkEvidence failed: %v", err)
	}
	if len(result.EdgesCreated) != 0 {
		t.Error("judgements under the confidence floor must not create edges")
	}
	stored, _ := f.nodes.GetByID(context.Background(), assumption.ID)
	if stored.CurrentStatus() != domain.StatusUntested {
		t.Error("discarded judgement must not move status")
	}
}

func TestLinkEvidence_RefinesAndNeutralProduceNoEdges(t *testing.T) {
	f := newLinkerFixture()

	refined := f.addNode(domain.KindClaim, "deploys are slow", []float32{1, 0, 0})
	neutral := f.addNode(domain.KindClaim, "deploys are manual", []float32{1, 0.05, 0})
	evidence := f.evidence("deploys take 40 minutes on Fridays", []float32{1, 0, 0})
	f.classifier.judgements[refined.Text] = &domain.RelationJudgement{
		Relation: domain.LabelRefines, Confidence: 0.95,
	}
	f.classifier.judgements[neutral.Text] = &domain.RelationJudgement{
		Relation: domain.LabelNeutral, Confidence: 0.95,
	}

	result, err := f.linker.LinkEvidence(context.Background(), &evidence)
	if err != nil {
		t.Fatalf("LinkEvidence failed: %v", err)
	}
	if len(result.EdgesCreated) != 0 {
		t.Errorf("edges created = %d, want 0 for REFINES and NEUTRAL", len(result.EdgesCreated))
	}
	if f.classifier.callCount() != 2 {
		t.Errorf("classifier calls = %d, want 2", f.classifier.callCount())
	}
}

func TestLinkEvidence_CandidateCap(t *testing.T) {
	f := newLinkerFixture()

	for i := 0; i < maxLinkCandidates+2; i++ {
		f.addNode(domain.KindClaim, fmt.Sprintf("claim %d", i), []float32{1, float32(i) * 0.01, 0})
	}
	evidence := f.evidence("broad observation", []float32{1, 0, 0})

	result, err := f.linker.LinkEvidence(context.Background(), &evidence)
	if err != nil {
		t.Fatalf("LinkEvidence failed: %v", err)
	}
	if result.CandidatesRanked != maxLinkCandidates {
		t.Errorf("ranked = %d, want %d", result.CandidatesRanked, maxLinkCandidates)
	}
	if f.classifier.callCount() != maxLinkCandidates {
		t.Errorf("classifier calls = %d, want %d", f.classifier.callCount(), maxLinkCandidates)
	}
}

func TestLinkEvidence_ClassifierFailureSkipsOnlyThatCandidate(t *testing.T) {
	f := newLinkerFixture()

	healthy := f.addNode(domain.KindAssumption, "healthy candidate", []float32{1, 0, 0})
	broken := f.addNode(domain.KindAssumption, "broken candidate", []float32{1, 0.05, 0})
	evidence := f.evidence("supporting fact", []float32{1, 0, 0})
	f.classifier.judgements[healthy.Text] = &domain.RelationJudgement{
		Relation: domain.LabelSupports, Confidence: 0.9,
	}
	f.classifier.errFor[broken.Text] = errors.New("model timeout")

	result, err := f.linker.LinkEvidence(context.Background(), &evidence)
	if err != nil {
		t.Fatalf("classifier failure must not fail the call: %v", err)
	}
	if len(result.EdgesCreated) != 1 {
		t.Errorf("edges created = %d, want 1 despite sibling failure", len(result.EdgesCreated))
	}
	incoming, _ := f.edges.GetByTarget(context.Background(), broken.ID)
	if len(incoming) != 0 {
		t.Error("failed candidate must get no edge")
	}
}

func TestLinkEvidence_StoreFailureIsolatedPerCandidate(t *testing.T) {
	f := newLinkerFixture()

	good := f.addNode(domain.KindAssumption, "good target", []float32{1, 0, 0})
	bad := f.addNode(domain.KindAssumption, "bad target", []float32{1, 0.05, 0})
	evidence := f.evidence("relevant finding", []float32{1, 0, 0})
	f.classifier.judgements[good.Text] = &domain.RelationJudgement{
		Relation: domain.LabelSupports, Confidence: 0.9,
	}
	f.classifier.judgements[bad.Text] = &domain.RelationJudgement{
		Relation: domain.LabelSupports, Confidence: 0.9,
	}
	f.edges.failTargets = map[uuid.UUID]error{bad.ID: errors.New("connection reset")}

	result, err := f.linker.LinkEvidence(context.Background(), &evidence)
	if err == nil {
		t.Fatal("expected joined error for the failed write")
	}
	if len(result.EdgesCreated) != 1 {
		t.Errorf("edges created = %d, want the surviving sibling", len(result.EdgesCreated))
	}
	stored, _ := f.nodes.GetByID(context.Background(), good.ID)
	if stored.CurrentStatus() != domain.StatusConfirmed {
		t.Error("surviving candidate must still cascade")
	}
}

func TestLinkEvidence_RepeatLinkingIsIdempotent(t *testing.T) {
	f := newLinkerFixture()

	assumption := f.addNode(domain.KindAssumption, "repeatable", []float32{1, 0, 0})
	evidence := f.evidence("same fact twice", []float32{1, 0, 0})
	f.classifier.judgements[assumption.Text] = &domain.RelationJudgement{
		Relation: domain.LabelSupports, Confidence: 0.9,
	}

	if _, err := f.linker.LinkEvidence(context.Background(), &evidence); err != nil {
		t.Fatalf("first link failed: %v", err)
	}
	if _, err := f.linker.LinkEvidence(context.Background(), &evidence); err != nil {
		t.Fatalf("second link failed: %v", err)
	}

	incoming, _ := f.edges.GetByTarget(context.Background(), assumption.ID)
	if len(incoming) != 1 {
		t.Errorf("edges after relinking = %d, want 1", len(incoming))
	}
	if writes := f.nodes.statusWrites[assumption.ID]; len(writes) != 1 {
		t.Errorf("status writes = %d, want 1", len(writes))
	}
}
