package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casegraph/casegraph/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type NodeStore struct {
	db *pgxpool.Pool
}

func NewNodeStore(db *pgxpool.Pool) *NodeStore {
	return &NodeStore{db: db}
}

const nodeColumns = `id, kind, text, status, thread_id, case_id, project_id, pinned, access_count, last_accessed_at, created_at`

// scopeColumn maps a validated scope level to its column. Levels come from
// domain.ValidScopeLevel, never from raw user input.
func scopeColumn(level domain.ScopeLevel) string {
	switch level {
	case domain.ScopeThread:
		return "thread_id"
	case domain.ScopeProject:
		return "project_id"
	default:
		return "case_id"
	}
}

func (s *NodeStore) Create(ctx context.Context, n *domain.Node) error {
	var embedding *pgvector.Vector
	if len(n.Embedding) > 0 {
		v := pgvector.NewVector(n.Embedding)
		embedding = &v
	}

	// Assumption nodes start untested unless the host says otherwise.
	if n.Kind == domain.KindAssumption && n.Status == nil {
		st := domain.StatusUntested
		n.Status = &st
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO nodes (kind, text, embedding, status, thread_id, case_id, project_id, pinned, access_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)
		 RETURNING id, created_at`,
		n.Kind, n.Text, embedding, n.Status, n.ThreadID, n.CaseID, n.ProjectID, n.Pinned,
	).Scan(&n.ID, &n.CreatedAt)
}

func (s *NodeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Node, error) {
	n := &domain.Node{}
	err := s.db.QueryRow(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE id = $1`,
		id,
	).Scan(&n.ID, &n.Kind, &n.Text, &n.Status, &n.ThreadID, &n.CaseID, &n.ProjectID, &n.Pinned, &n.AccessCount, &n.LastAccessedAt, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (s *NodeStore) UpdatePinned(ctx context.Context, id uuid.UUID, pinned bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE nodes SET pinned = $1 WHERE id = $2`,
		pinned, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NodeStore) ListCaseCandidates(ctx context.Context, caseID uuid.UUID) ([]domain.Node, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, kind, text, embedding, status, thread_id, case_id, project_id, pinned, access_count, last_accessed_at, created_at
		 FROM nodes
		 WHERE case_id = $1 AND kind <> 'evidence' AND embedding IS NOT NULL`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list case candidates: %w", err)
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		var n domain.Node
		var vec pgvector.Vector
		if err := rows.Scan(&n.ID, &n.Kind, &n.Text, &vec, &n.Status, &n.ThreadID, &n.CaseID, &n.ProjectID, &n.Pinned, &n.AccessCount, &n.LastAccessedAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		n.Embedding = vec.Slice()
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *NodeStore) FindSimilar(ctx context.Context, level domain.ScopeLevel, scopeID uuid.UUID, embedding []float32, threshold float32, limit int) ([]domain.NodeWithScore, error) {
	vec := pgvector.NewVector(embedding)

	query := fmt.Sprintf(
		`SELECT `+nodeColumns+`, 1 - (embedding <=> $1) AS score
		 FROM nodes
		 WHERE %s = $2 AND embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $3
		 ORDER BY score DESC
		 LIMIT $4`,
		scopeColumn(level),
	)

	rows, err := s.db.Query(ctx, query, vec, scopeID, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("find similar query: %w", err)
	}
	defer rows.Close()

	var results []domain.NodeWithScore
	for rows.Next() {
		var ns domain.NodeWithScore
		if err := rows.Scan(&ns.ID, &ns.Kind, &ns.Text, &ns.Status, &ns.ThreadID, &ns.CaseID, &ns.ProjectID, &ns.Pinned, &ns.AccessCount, &ns.LastAccessedAt, &ns.CreatedAt, &ns.Score); err != nil {
			return nil, fmt.Errorf("scan find similar row: %w", err)
		}
		results = append(results, ns)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find similar rows: %w", err)
	}

	return results, nil
}

func (s *NodeStore) ListPinned(ctx context.Context, level domain.ScopeLevel, scopeID uuid.UUID, limit int) ([]domain.Node, error) {
	query := fmt.Sprintf(
		`SELECT `+nodeColumns+` FROM nodes
		 WHERE %s = $1 AND pinned
		 ORDER BY created_at DESC
		 LIMIT $2`,
		scopeColumn(level),
	)
	return s.listNodes(ctx, query, scopeID, limit)
}

func (s *NodeStore) ListRecent(ctx context.Context, level domain.ScopeLevel, scopeID uuid.UUID, limit int) ([]domain.Node, error) {
	query := fmt.Sprintf(
		`SELECT `+nodeColumns+` FROM nodes
		 WHERE %s = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		scopeColumn(level),
	)
	return s.listNodes(ctx, query, scopeID, limit)
}

func (s *NodeStore) ListFrequent(ctx context.Context, level domain.ScopeLevel, scopeID uuid.UUID, minAccess, limit int) ([]domain.Node, error) {
	query := fmt.Sprintf(
		`SELECT `+nodeColumns+` FROM nodes
		 WHERE %s = $1 AND access_count >= $2
		 ORDER BY access_count DESC
		 LIMIT $3`,
		scopeColumn(level),
	)
	return s.listNodes(ctx, query, scopeID, minAccess, limit)
}

func (s *NodeStore) ListOlderThan(ctx context.Context, level domain.ScopeLevel, scopeID uuid.UUID, cutoff time.Time, limit int) ([]domain.Node, error) {
	query := fmt.Sprintf(
		`SELECT `+nodeColumns+` FROM nodes
		 WHERE %s = $1 AND created_at < $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		scopeColumn(level),
	)
	return s.listNodes(ctx, query, scopeID, cutoff, limit)
}

func (s *NodeStore) listNodes(ctx context.Context, query string, args ...any) ([]domain.Node, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		var n domain.Node
		if err := rows.Scan(&n.ID, &n.Kind, &n.Text, &n.Status, &n.ThreadID, &n.CaseID, &n.ProjectID, &n.Pinned, &n.AccessCount, &n.LastAccessedAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *NodeStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE nodes SET status = $1 WHERE id = $2 AND kind = 'assumption'`,
		status, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NodeStore) IncrementAccess(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE nodes
		 SET access_count = access_count + 1,
		     last_accessed_at = NOW()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
