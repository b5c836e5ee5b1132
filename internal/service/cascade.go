package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casegraph/casegraph/internal/domain"
)

// ErrNotAssumption is returned when a cascade is requested for a node whose
// kind does not carry a derived status.
var ErrNotAssumption = errors.New("status cascade applies only to assumption nodes")

// DeriveStatus computes an assumption's status from its incoming edge tally.
// A contested assumption whose support strictly outweighs the dissent is
// still reported confirmed; use IsContested to see the dissent.
func DeriveStatus(tally domain.EdgeTally) domain.Status {
	switch {
	case tally.Supporting == 0 && tally.Contradicting == 0:
		return domain.StatusUntested
	case tally.Contradicting == 0:
		return domain.StatusConfirmed
	case tally.Supporting == 0:
		return domain.StatusRefuted
	case tally.Supporting > tally.Contradicting:
		return domain.StatusConfirmed
	default:
		return domain.StatusChallenged
	}
}

// IsContested reports whether a tally has both supporting and contradicting
// evidence.
func IsContested(tally domain.EdgeTally) bool {
	return tally.Supporting > 0 && tally.Contradicting > 0
}

// CascadeService recomputes assumption statuses when their evidence changes
// and notifies downstream consumers through sync hooks.
type CascadeService struct {
	nodes    domain.NodeStore
	edges    domain.EdgeStore
	hooks    []domain.SyncHook
	maxDepth int
	logger   *zap.Logger
}

func NewCascadeService(nodes domain.NodeStore, edges domain.EdgeStore, hooks []domain.SyncHook, maxDepth int, logger *zap.Logger) *CascadeService {
	if maxDepth <= 0 {
		maxDepth = domain.DefaultMaxCascadeDepth
	}
	return &CascadeService{
		nodes:    nodes,
		edges:    edges,
		hooks:    hooks,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// Cascade recomputes one assumption's status from its current edge tally.
// When the derived status differs from the stored one, the new status is
// persisted and every registered hook is invoked with a deepened cascade
// context. Recomputation is idempotent; calling it twice against the same
// edges leaves the second call a no-op.
//
// The depth guard applies only to actual changes. A call that would not
// change anything returns before the guard, so settled graphs never burn
// depth budget.
func (s *CascadeService) Cascade(ctx context.Context, nodeID uuid.UUID, cascade domain.CascadeContext) (*domain.CascadeResult, error) {
	node, err := s.nodes.GetByID(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("load node for cascade: %w", err)
	}
	if node.Kind != domain.KindAssumption {
		return nil, ErrNotAssumption
	}

	tally, err := s.edges.TallyByTarget(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("tally edges for cascade: %w", err)
	}

	derived := DeriveStatus(tally)
	if derived == node.CurrentStatus() {
		return &domain.CascadeResult{Changed: false, NewStatus: derived}, nil
	}

	if cascade.Depth >= s.maxDepth {
		s.logger.Warn("cascade depth limit reached, propagation stopped",
			zap.String("node_id", nodeID.String()),
			zap.Int("depth", cascade.Depth),
			zap.String("suppressed_status", string(derived)))
		return &domain.CascadeResult{Changed: false, NewStatus: node.CurrentStatus()}, nil
	}

	if err := s.nodes.UpdateStatus(ctx, nodeID, derived); err != nil {
		return nil, fmt.Errorf("persist derived status: %w", err)
	}

	s.logger.Info("assumption status changed",
		zap.String("node_id", nodeID.String()),
		zap.String("from", string(node.CurrentStatus())),
		zap.String("to", string(derived)),
		zap.Int("supporting", tally.Supporting),
		zap.Int("contradicting", tally.Contradicting),
		zap.Bool("contested", IsContested(tally)),
		zap.Int("depth", cascade.Depth))

	next := cascade.Next()
	for _, hook := range s.hooks {
		if err := hook.OnStatusChanged(ctx, nodeID, derived, next); err != nil {
			s.logger.Warn("sync hook failed",
				zap.String("hook", hook.Name()),
				zap.String("node_id", nodeID.String()),
				zap.Error(err))
		}
	}

	return &domain.CascadeResult{Changed: true, NewStatus: derived}, nil
}
