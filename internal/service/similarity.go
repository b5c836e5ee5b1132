package service

import (
	"math"
	"sort"

	"github.com/casegraph/casegraph/internal/domain"
)

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// RankCandidates scores candidates against the query embedding and returns
// those at or above threshold, best first, capped at limit. Ties keep the
// input order so ranking is deterministic.
func RankCandidates(query []float32, candidates []domain.Node, threshold float32, limit int) []domain.NodeWithScore {
	ranked := make([]domain.NodeWithScore, 0, len(candidates))
	for _, c := range candidates {
		score := CosineSimilarity(query, c.Embedding)
		if score >= threshold {
			ranked = append(ranked, domain.NodeWithScore{Node: c, Score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
