package llm

import (
	"testing"

	"github.com/casegraph/casegraph/internal/domain"
)

func TestParseRelationJudgement(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     domain.RelationLabel
		wantConf float32
		wantErr  bool
	}{
		{
			name:     "plain json",
			raw:      `{"relation": "SUPPORTS", "confidence": 0.9, "rationale": "direct match"}`,
			want:     domain.LabelSupports,
			wantConf: 0.9,
		},
		{
			name:     "markdown fenced",
			raw:      "```json\n{\"relation\": \"CONTRADICTS\", \"confidence\": 0.8}\n```",
			want:     domain.LabelContradicts,
			wantConf: 0.8,
		},
		{
			name:     "bare fence",
			raw:      "```\n{\"relation\": \"refines\", \"confidence\": 0.75}\n```",
			want:     domain.LabelRefines,
			wantConf: 0.75,
		},
		{
			name:     "unknown relation falls back to neutral",
			raw:      `{"relation": "KIND_OF_AGREES", "confidence": 0.95}`,
			want:     domain.LabelNeutral,
			wantConf: 0.95,
		},
		{
			name:     "confidence clamped",
			raw:      `{"relation": "SUPPORTS", "confidence": 1.7}`,
			want:     domain.LabelSupports,
			wantConf: 1,
		},
		{
			name:    "malformed json is an error",
			raw:     "the evidence clearly supports the claim",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRelationJudgement(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Relation != tt.want {
				t.Errorf("relation = %s, want %s", got.Relation, tt.want)
			}
			if got.Confidence != tt.wantConf {
				t.Errorf("confidence = %f, want %f", got.Confidence, tt.wantConf)
			}
		})
	}
}
