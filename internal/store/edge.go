package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/casegraph/casegraph/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EdgeStore struct {
	db *pgxpool.Pool
}

func NewEdgeStore(db *pgxpool.Pool) *EdgeStore {
	return &EdgeStore{db: db}
}

// Create persists an edge. The (source_id, target_id, relation) triple is
// unique; re-creating an existing edge loads the stored row instead of
// inserting a duplicate. The relation of a stored edge is never mutated.
func (s *EdgeStore) Create(ctx context.Context, e *domain.Edge) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO edges (source_id, target_id, relation, confidence)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (source_id, target_id, relation) DO NOTHING
		 RETURNING id, created_at`,
		e.SourceID, e.TargetID, e.Relation, e.Confidence,
	).Scan(&e.ID, &e.CreatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("create edge: %w", err)
	}

	// Conflict path: the edge already exists.
	return s.db.QueryRow(ctx,
		`SELECT id, confidence, created_at FROM edges
		 WHERE source_id = $1 AND target_id = $2 AND relation = $3`,
		e.SourceID, e.TargetID, e.Relation,
	).Scan(&e.ID, &e.Confidence, &e.CreatedAt)
}

func (s *EdgeStore) GetBySource(ctx context.Context, sourceID uuid.UUID) ([]domain.Edge, error) {
	return s.list(ctx,
		`SELECT id, source_id, target_id, relation, confidence, created_at
		 FROM edges WHERE source_id = $1 ORDER BY created_at DESC`,
		sourceID,
	)
}

func (s *EdgeStore) GetByTarget(ctx context.Context, targetID uuid.UUID) ([]domain.Edge, error) {
	return s.list(ctx,
		`SELECT id, source_id, target_id, relation, confidence, created_at
		 FROM edges WHERE target_id = $1 ORDER BY created_at DESC`,
		targetID,
	)
}

func (s *EdgeStore) list(ctx context.Context, query string, args ...any) ([]domain.Edge, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.Edge
	for rows.Next() {
		var e domain.Edge
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Relation, &e.Confidence, &e.CreatedAt); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *EdgeStore) TallyByTarget(ctx context.Context, targetID uuid.UUID) (domain.EdgeTally, error) {
	var tally domain.EdgeTally
	err := s.db.QueryRow(ctx,
		`SELECT
		     COUNT(*) FILTER (WHERE relation = 'supports'),
		     COUNT(*) FILTER (WHERE relation = 'contradicts')
		 FROM edges WHERE target_id = $1`,
		targetID,
	).Scan(&tally.Supporting, &tally.Contradicting)
	if err != nil {
		return domain.EdgeTally{}, fmt.Errorf("tally edges: %w", err)
	}
	return tally, nil
}
