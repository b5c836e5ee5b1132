package domain

import (
	"errors"

	"github.com/google/uuid"
)

// ScopeLevel is the containment level retrieval filters by.
// thread is narrower than case, which is narrower than project.
type ScopeLevel string

const (
	ScopeThread  ScopeLevel = "thread"
	ScopeCase    ScopeLevel = "case"
	ScopeProject ScopeLevel = "project"
)

func ValidScopeLevel(s string) bool {
	switch ScopeLevel(s) {
	case ScopeThread, ScopeCase, ScopeProject:
		return true
	}
	return false
}

var (
	ErrInvalidScopeLevel = errors.New("strategy scope must be thread, case, or project")
	ErrScopeIDMissing    = errors.New("strategy scope id is required")
	ErrNoTierEnabled     = errors.New("at least one temperature tier must be enabled")
)

const (
	DefaultMaxHot  = 10
	DefaultMaxWarm = 10
	DefaultMaxCold = 5
)

// RetrievalStrategy selects which slice of the graph a retrieval call sees:
// one scope level and any combination of temperature tiers with per-tier caps.
type RetrievalStrategy struct {
	Scope       ScopeLevel `json:"scope"`
	ScopeID     uuid.UUID  `json:"scope_id"`
	IncludeHot  bool       `json:"include_hot"`
	IncludeWarm bool       `json:"include_warm"`
	IncludeCold bool       `json:"include_cold"`
	MaxHot      int        `json:"max_hot"`
	MaxWarm     int        `json:"max_warm"`
	MaxCold     int        `json:"max_cold"`
}

func (s *RetrievalStrategy) Validate() error {
	if !ValidScopeLevel(string(s.Scope)) {
		return ErrInvalidScopeLevel
	}
	if s.ScopeID == uuid.Nil {
		return ErrScopeIDMissing
	}
	if !s.IncludeHot && !s.IncludeWarm && !s.IncludeCold {
		return ErrNoTierEnabled
	}
	return nil
}

// ApplyDefaults fills unset tier caps. The cold cap is special: zero is an
// explicit allotment that keeps the tier enabled but empty, so only a
// negative value counts as unset there.
func (s *RetrievalStrategy) ApplyDefaults() {
	if s.MaxHot <= 0 {
		s.MaxHot = DefaultMaxHot
	}
	if s.MaxWarm <= 0 {
		s.MaxWarm = DefaultMaxWarm
	}
	if s.MaxCold < 0 {
		s.MaxCold = DefaultMaxCold
	}
}

// DefaultStrategy is case scope with hot+warm tiers, no cold.
func DefaultStrategy(caseID uuid.UUID) RetrievalStrategy {
	return RetrievalStrategy{
		Scope:       ScopeCase,
		ScopeID:     caseID,
		IncludeHot:  true,
		IncludeWarm: true,
		MaxHot:      DefaultMaxHot,
		MaxWarm:     DefaultMaxWarm,
		MaxCold:     DefaultMaxCold,
	}
}
