package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casegraph/casegraph/internal/domain"
	"github.com/casegraph/casegraph/internal/service"
)

type ContextHandler struct {
	retrieval *service.RetrievalService
	logger    *zap.Logger
}

func NewContextHandler(retrieval *service.RetrievalService, logger *zap.Logger) *ContextHandler {
	return &ContextHandler{retrieval: retrieval, logger: logger}
}

type contextResponse struct {
	Strategy domain.RetrievalStrategy `json:"strategy"`
	Bundle   *service.ContextBundle   `json:"bundle"`
}

// GetContext assembles a context bundle for the query. With an explicit
// scope the caller's strategy is used as given; without one the strategy is
// inferred from the query text and whichever scope IDs were supplied.
//
// Query parameters: q, scope, scope_id, thread_id, case_id, project_id,
// hot, warm, cold (booleans), max_hot, max_warm, max_cold.
func (h *ContextHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")

	var strategy domain.RetrievalStrategy
	if q.Get("scope") != "" {
		s, err := parseStrategy(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		strategy = s
	} else {
		threadID := parseOptionalUUID(q.Get("thread_id"))
		caseID := parseOptionalUUID(q.Get("case_id"))
		projectID := parseOptionalUUID(q.Get("project_id"))
		if threadID == nil && caseID == nil && projectID == nil {
			writeError(w, http.StatusBadRequest, "scope or at least one of thread_id, case_id, project_id is required")
			return
		}
		strategy = service.SuggestStrategy(query, threadID, caseID, projectID)
	}

	bundle, err := h.retrieval.Retrieve(r.Context(), strategy, query)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidScopeLevel) ||
			errors.Is(err, domain.ErrScopeIDMissing) ||
			errors.Is(err, domain.ErrNoTierEnabled) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("retrieval failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "retrieval failed")
		return
	}

	writeJSON(w, http.StatusOK, contextResponse{Strategy: strategy, Bundle: bundle})
}

func parseStrategy(q url.Values) (domain.RetrievalStrategy, error) {
	scopeID, err := uuid.Parse(q.Get("scope_id"))
	if err != nil {
		return domain.RetrievalStrategy{}, errors.New("scope_id is required with an explicit scope")
	}

	strategy := domain.RetrievalStrategy{
		Scope:       domain.ScopeLevel(q.Get("scope")),
		ScopeID:     scopeID,
		IncludeHot:  parseBoolDefault(q.Get("hot"), true),
		IncludeWarm: parseBoolDefault(q.Get("warm"), true),
		IncludeCold: parseBoolDefault(q.Get("cold"), false),
		MaxHot:      parseIntDefault(q.Get("max_hot"), domain.DefaultMaxHot),
		MaxWarm:     parseIntDefault(q.Get("max_warm"), domain.DefaultMaxWarm),
		MaxCold:     parseIntDefault(q.Get("max_cold"), domain.DefaultMaxCold),
	}
	return strategy, nil
}

func parseOptionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func parseBoolDefault(s string, fallback bool) bool {
	if s == "" {
		return fallback
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}

func parseIntDefault(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
