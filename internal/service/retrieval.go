package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casegraph/casegraph/internal/domain"
)

const (
	// frequentAccessFloor is the access count at which a node counts as
	// frequently used for the hot tier.
	frequentAccessFloor = 10

	// coldAge is how long a node must sit untouched before the cold tier
	// picks it up.
	coldAge = 30 * 24 * time.Hour
)

// ContextBundle is the assembled retrieval output: one slice per enabled
// tier, each already deduplicated against the hotter tiers.
type ContextBundle struct {
	Hot  []domain.Node          `json:"hot,omitempty"`
	Warm []domain.NodeWithScore `json:"warm,omitempty"`
	Cold []domain.Node          `json:"cold,omitempty"`
}

// RetrievalService assembles scoped context bundles from the graph using
// temperature tiers. Hot is pinned/recent/frequent nodes, warm is semantic
// similarity to the query, cold is aged-out material.
type RetrievalService struct {
	nodes     domain.NodeStore
	embedder  domain.EmbeddingClient
	warmFloor float32

	callTimeout time.Duration
	logger      *zap.Logger

	// now is swapped in tests to pin the cold cutoff.
	now func() time.Time
}

func NewRetrievalService(nodes domain.NodeStore, embedder domain.EmbeddingClient, warmFloor float32, callTimeout time.Duration, logger *zap.Logger) *RetrievalService {
	return &RetrievalService{
		nodes:       nodes,
		embedder:    embedder,
		warmFloor:   warmFloor,
		callTimeout: callTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// Retrieve executes a strategy and returns the matching context bundle.
// A node appears in at most one tier: hot wins over warm, warm over cold.
// Warm retrieval degrades to an empty tier when the embedding call fails;
// the hot and cold tiers still return. Cold nodes flow only when the caller
// allots a positive cold cap.
func (s *RetrievalService) Retrieve(ctx context.Context, strategy domain.RetrievalStrategy, query string) (*ContextBundle, error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	strategy.ApplyDefaults()

	bundle := &ContextBundle{}
	seen := make(map[uuid.UUID]bool)

	if strategy.IncludeHot {
		hot, err := s.hotTier(ctx, strategy)
		if err != nil {
			return nil, fmt.Errorf("hot tier: %w", err)
		}
		for _, n := range hot {
			seen[n.ID] = true
		}
		bundle.Hot = hot
	}

	if strategy.IncludeWarm && query != "" {
		warm := s.warmTier(ctx, strategy, query, seen)
		for _, n := range warm {
			seen[n.Node.ID] = true
		}
		bundle.Warm = warm
	}

	if strategy.IncludeCold && strategy.MaxCold > 0 {
		cold, err := s.coldTier(ctx, strategy, seen)
		if err != nil {
			return nil, fmt.Errorf("cold tier: %w", err)
		}
		bundle.Cold = cold
	}

	return bundle, nil
}

// hotTier merges pinned, recent, and frequently accessed nodes in that
// priority order. Pinned nodes always make the cut before the cap applies.
func (s *RetrievalService) hotTier(ctx context.Context, strategy domain.RetrievalStrategy) ([]domain.Node, error) {
	pinned, err := s.nodes.ListPinned(ctx, strategy.Scope, strategy.ScopeID, strategy.MaxHot)
	if err != nil {
		return nil, fmt.Errorf("list pinned: %w", err)
	}
	recent, err := s.nodes.ListRecent(ctx, strategy.Scope, strategy.ScopeID, strategy.MaxHot)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	frequent, err := s.nodes.ListFrequent(ctx, strategy.Scope, strategy.ScopeID, frequentAccessFloor, strategy.MaxHot)
	if err != nil {
		return nil, fmt.Errorf("list frequent: %w", err)
	}

	hot := make([]domain.Node, 0, strategy.MaxHot)
	dedup := make(map[uuid.UUID]bool)
	for _, group := range [][]domain.Node{pinned, recent, frequent} {
		for _, n := range group {
			if dedup[n.ID] || len(hot) >= strategy.MaxHot {
				continue
			}
			dedup[n.ID] = true
			hot = append(hot, n)
		}
	}
	return hot, nil
}

// warmTier embeds the query and runs a similarity search, dropping anything
// the hot tier already returned. Matches get an async access bump so repeat
// retrieval promotes them toward hot.
func (s *RetrievalService) warmTier(ctx context.Context, strategy domain.RetrievalStrategy, query string, seen map[uuid.UUID]bool) []domain.NodeWithScore {
	embedCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	embedding, err := s.embedder.Embed(embedCtx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, warm tier skipped", zap.Error(err))
		return nil
	}

	// Overfetch so hot-tier overlap does not shrink the warm tier.
	matches, err := s.nodes.FindSimilar(ctx, strategy.Scope, strategy.ScopeID, embedding, s.warmFloor, strategy.MaxWarm+len(seen))
	if err != nil {
		s.logger.Warn("similarity search failed, warm tier skipped", zap.Error(err))
		return nil
	}

	warm := make([]domain.NodeWithScore, 0, strategy.MaxWarm)
	for _, m := range matches {
		if seen[m.Node.ID] || len(warm) >= strategy.MaxWarm {
			continue
		}
		warm = append(warm, m)
	}

	for _, m := range warm {
		go func(id uuid.UUID) {
			bgCtx, bgCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer bgCancel()
			if err := s.nodes.IncrementAccess(bgCtx, id); err != nil {
				s.logger.Warn("access increment failed", zap.String("node_id", id.String()), zap.Error(err))
			}
		}(m.Node.ID)
	}

	return warm
}

func (s *RetrievalService) coldTier(ctx context.Context, strategy domain.RetrievalStrategy, seen map[uuid.UUID]bool) ([]domain.Node, error) {
	cutoff := s.now().Add(-coldAge)
	aged, err := s.nodes.ListOlderThan(ctx, strategy.Scope, strategy.ScopeID, cutoff, strategy.MaxCold+len(seen))
	if err != nil {
		return nil, fmt.Errorf("list aged nodes: %w", err)
	}

	cold := make([]domain.Node, 0, strategy.MaxCold)
	for _, n := range aged {
		if seen[n.ID] || len(cold) >= strategy.MaxCold {
			continue
		}
		cold = append(cold, n)
	}
	return cold, nil
}
