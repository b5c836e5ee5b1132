package store

import (
	"context"

	"github.com/casegraph/casegraph/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContradictionStore struct {
	db *pgxpool.Pool
}

func NewContradictionStore(db *pgxpool.Pool) *ContradictionStore {
	return &ContradictionStore{db: db}
}

func (s *ContradictionStore) Create(ctx context.Context, c *domain.Contradiction) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO contradictions (node_id, evidence_id, confidence, rationale)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (node_id, evidence_id) DO UPDATE
		 SET confidence = GREATEST(contradictions.confidence, EXCLUDED.confidence)
		 RETURNING id, detected_at`,
		c.NodeID, c.EvidenceID, c.Confidence, c.Rationale,
	).Scan(&c.ID, &c.DetectedAt)
}

func (s *ContradictionStore) GetByNodeID(ctx context.Context, nodeID uuid.UUID) ([]domain.Contradiction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, node_id, evidence_id, confidence, rationale, detected_at
		 FROM contradictions WHERE node_id = $1
		 ORDER BY detected_at DESC`,
		nodeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Contradiction
	for rows.Next() {
		var c domain.Contradiction
		if err := rows.Scan(&c.ID, &c.NodeID, &c.EvidenceID, &c.Confidence, &c.Rationale, &c.DetectedAt); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}
