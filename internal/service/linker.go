package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/casegraph/casegraph/internal/domain"
)

// maxLinkCandidates caps how many similar nodes one piece of evidence is
// classified against.
const maxLinkCandidates = 5

// classifyConcurrency bounds parallel classifier calls per evidence node.
const classifyConcurrency = 4

// CascadeOutcome records one assumption recomputation triggered by linking.
type CascadeOutcome struct {
	NodeID    uuid.UUID     `json:"node_id"`
	Changed   bool          `json:"changed"`
	NewStatus domain.Status `json:"new_status"`
}

// LinkResult summarizes what one LinkEvidence call produced.
type LinkResult struct {
	CandidatesRanked int                    `json:"candidates_ranked"`
	EdgesCreated     []domain.Edge          `json:"edges_created,omitempty"`
	Contradictions   []domain.Contradiction `json:"contradictions,omitempty"`
	Cascades         []CascadeOutcome       `json:"cascades,omitempty"`
}

// LinkerService connects new evidence to existing nodes in the same case.
// Candidates pass a similarity gate, a relation classifier judges each
// survivor, and confident judgements become typed edges. Contradictions are
// additionally recorded for the host to surface, and affected assumptions are
// recomputed.
type LinkerService struct {
	nodes          domain.NodeStore
	edges          domain.EdgeStore
	contradictions domain.ContradictionStore
	classifier     domain.Classifier
	cascade        *CascadeService

	simThreshold  float32
	minConfidence float32
	callTimeout   time.Duration

	logger *zap.Logger
}

func NewLinkerService(
	nodes domain.NodeStore,
	edges domain.EdgeStore,
	contradictions domain.ContradictionStore,
	classifier domain.Classifier,
	cascade *CascadeService,
	simThreshold, minConfidence float32,
	callTimeout time.Duration,
	logger *zap.Logger,
) *LinkerService {
	return &LinkerService{
		nodes:          nodes,
		edges:          edges,
		contradictions: contradictions,
		classifier:     classifier,
		cascade:        cascade,
		simThreshold:   simThreshold,
		minConfidence:  minConfidence,
		callTimeout:    callTimeout,
		logger:         logger,
	}
}

// LinkEvidence finds case-local nodes similar to the evidence, classifies
// the relation to each, and persists edges for confident SUPPORTS and
// CONTRADICTS judgements. Evidence without an embedding or a case is left
// unlinked.
//
// Failures are isolated per candidate: a failed classification or store
// write skips that candidate, the rest proceed, and the partial result is
// returned alongside the joined errors.
func (s *LinkerService) LinkEvidence(ctx context.Context, evidence *domain.Node) (*LinkResult, error) {
	result := &LinkResult{}

	if len(evidence.Embedding) == 0 {
		s.logger.Debug("evidence has no embedding, skipping linking",
			zap.String("evidence_id", evidence.ID.String()))
		return result, nil
	}
	if evidence.CaseID == nil {
		s.logger.Debug("evidence has no case, skipping linking",
			zap.String("evidence_id", evidence.ID.String()))
		return result, nil
	}

	candidates, err := s.nodes.ListCaseCandidates(ctx, *evidence.CaseID)
	if err != nil {
		return nil, fmt.Errorf("list link candidates: %w", err)
	}

	ranked := RankCandidates(evidence.Embedding, candidates, s.simThreshold, maxLinkCandidates)
	result.CandidatesRanked = len(ranked)
	if len(ranked) == 0 {
		return result, nil
	}

	judgements := make([]*domain.RelationJudgement, len(ranked))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(classifyConcurrency)
	for i, cand := range ranked {
		i, cand := i, cand
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.callTimeout)
			defer cancel()

			judgement, err := s.classifier.ClassifyRelation(callCtx, evidence.Text, cand.Text)
			if err != nil {
				s.logger.Warn("relation classification failed, candidate skipped",
					zap.String("evidence_id", evidence.ID.String()),
					zap.String("candidate_id", cand.Node.ID.String()),
					zap.Error(err))
				return nil
			}
			judgements[i] = judgement
			return nil
		})
	}
	// Goroutines never return errors; Wait only observes context cancellation.
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("classify candidates: %w", err)
	}

	var (
		storeErrs []error
		affected  []domain.Node
	)
	for i, cand := range ranked {
		judgement := judgements[i]
		if judgement == nil {
			continue
		}
		if judgement.Confidence < s.minConfidence {
			s.logger.Debug("judgement below confidence floor, discarded",
				zap.String("candidate_id", cand.Node.ID.String()),
				zap.String("relation", string(judgement.Relation)),
				zap.Float32("confidence", judgement.Confidence))
			continue
		}

		switch judgement.Relation {
		case domain.LabelSupports:
			edge := &domain.Edge{
				SourceID:   evidence.ID,
				TargetID:   cand.Node.ID,
				Relation:   domain.RelationSupports,
				Confidence: judgement.Confidence,
			}
			if err := s.edges.Create(ctx, edge); err != nil {
				s.logger.Error("failed to persist supports edge",
					zap.String("candidate_id", cand.Node.ID.String()), zap.Error(err))
				storeErrs = append(storeErrs, fmt.Errorf("supports edge for %s: %w", cand.Node.ID, err))
				continue
			}
			result.EdgesCreated = append(result.EdgesCreated, *edge)
			affected = append(affected, cand.Node)

		case domain.LabelContradicts:
			edge := &domain.Edge{
				SourceID:   evidence.ID,
				TargetID:   cand.Node.ID,
				Relation:   domain.RelationContradicts,
				Confidence: judgement.Confidence,
			}
			if err := s.edges.Create(ctx, edge); err != nil {
				s.logger.Error("failed to persist contradicts edge",
					zap.String("candidate_id", cand.Node.ID.String()), zap.Error(err))
				storeErrs = append(storeErrs, fmt.Errorf("contradicts edge for %s: %w", cand.Node.ID, err))
				continue
			}
			result.EdgesCreated = append(result.EdgesCreated, *edge)
			affected = append(affected, cand.Node)

			contradiction := &domain.Contradiction{
				NodeID:     cand.Node.ID,
				EvidenceID: evidence.ID,
				Confidence: judgement.Confidence,
				Rationale:  judgement.Rationale,
			}
			if err := s.contradictions.Create(ctx, contradiction); err != nil {
				s.logger.Error("failed to record contradiction",
					zap.String("candidate_id", cand.Node.ID.String()), zap.Error(err))
				storeErrs = append(storeErrs, fmt.Errorf("contradiction for %s: %w", cand.Node.ID, err))
			} else {
				result.Contradictions = append(result.Contradictions, *contradiction)
			}

		default:
			// REFINES and NEUTRAL produce no edges.
		}
	}

	// Each edge write may have shifted the target's tally. Recompute affected
	// assumptions from a fresh cascade context; linking is the triggering event.
	for _, node := range affected {
		if node.Kind != domain.KindAssumption {
			continue
		}
		outcome, err := s.cascade.Cascade(ctx, node.ID, domain.CascadeContext{})
		if err != nil {
			s.logger.Error("cascade after linking failed",
				zap.String("node_id", node.ID.String()), zap.Error(err))
			storeErrs = append(storeErrs, fmt.Errorf("cascade for %s: %w", node.ID, err))
			continue
		}
		result.Cascades = append(result.Cascades, CascadeOutcome{
			NodeID:    node.ID,
			Changed:   outcome.Changed,
			NewStatus: outcome.NewStatus,
		})
	}

	return result, errors.Join(storeErrs...)
}
