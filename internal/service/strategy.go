package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/casegraph/casegraph/internal/domain"
)

// coldCues are query phrasings that suggest the caller wants older material.
var coldCues = []string{"before", "earlier", "history", "originally", "last month", "previous"}

// SuggestStrategy infers a retrieval strategy from the query text and the
// scope identifiers the caller has on hand. It is a heuristic default; the
// caller may always override the result before retrieving.
//
// Scope picks the narrowest level the query asks for: explicit mentions of
// the current thread narrow to thread, cross-case phrasing widens to project,
// everything else stays at case. When no case id is on hand the scope falls
// back to the narrowest level the caller did supply an id for. Queries
// reaching into the past enable the cold tier.
func SuggestStrategy(query string, threadID, caseID, projectID *uuid.UUID) domain.RetrievalStrategy {
	q := strings.ToLower(query)

	strategy := domain.RetrievalStrategy{
		Scope:       domain.ScopeCase,
		IncludeHot:  true,
		IncludeWarm: true,
		MaxHot:      domain.DefaultMaxHot,
		MaxWarm:     domain.DefaultMaxWarm,
		MaxCold:     domain.DefaultMaxCold,
	}

	switch {
	case threadID != nil && strings.Contains(q, "this thread"):
		strategy.Scope = domain.ScopeThread
		strategy.ScopeID = *threadID
	case projectID != nil && (strings.Contains(q, "project") || strings.Contains(q, "across")):
		strategy.Scope = domain.ScopeProject
		strategy.ScopeID = *projectID
	case caseID != nil:
		strategy.ScopeID = *caseID
	case threadID != nil:
		strategy.Scope = domain.ScopeThread
		strategy.ScopeID = *threadID
	case projectID != nil:
		strategy.Scope = domain.ScopeProject
		strategy.ScopeID = *projectID
	}

	for _, cue := range coldCues {
		if strings.Contains(q, cue) {
			strategy.IncludeCold = true
			break
		}
	}

	return strategy
}
