package llm

import (
	"context"

	"github.com/casegraph/casegraph/internal/domain"
)

// MockClient is a configurable classifier for testing.
// Set the response fields to control what each method returns.
type MockClient struct {
	ClassifyResponse *domain.RelationJudgement
	ClassifyError    error

	// Judgements keyed by candidate text override ClassifyResponse when set.
	Judgements map[string]*domain.RelationJudgement

	// Call tracking for assertions
	ClassifyCalls []struct{ Evidence, Candidate string }
}

func NewMockClient() *MockClient {
	return &MockClient{
		ClassifyResponse: &domain.RelationJudgement{
			Relation:   domain.LabelNeutral,
			Confidence: 0,
		},
	}
}

func (c *MockClient) ClassifyRelation(ctx context.Context, evidenceText, candidateText string) (*domain.RelationJudgement, error) {
	c.ClassifyCalls = append(c.ClassifyCalls, struct{ Evidence, Candidate string }{evidenceText, candidateText})
	if c.ClassifyError != nil {
		return nil, c.ClassifyError
	}
	if j, ok := c.Judgements[candidateText]; ok {
		return j, nil
	}
	return c.ClassifyResponse, nil
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.ClassifyResponse = &domain.RelationJudgement{
		Relation:   domain.LabelNeutral,
		Confidence: 0,
	}
	c.ClassifyError = nil
	c.Judgements = nil
	c.ClassifyCalls = nil
}
