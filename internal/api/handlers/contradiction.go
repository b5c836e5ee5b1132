package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casegraph/casegraph/internal/domain"
)

type ContradictionHandler struct {
	contradictions domain.ContradictionStore
	logger         *zap.Logger
}

func NewContradictionHandler(contradictions domain.ContradictionStore, logger *zap.Logger) *ContradictionHandler {
	return &ContradictionHandler{contradictions: contradictions, logger: logger}
}

type contradictionsResponse struct {
	Contradictions []domain.Contradiction `json:"contradictions"`
	Count          int                    `json:"count"`
}

func (h *ContradictionHandler) List(w http.ResponseWriter, r *http.Request) {
	nodeID, err := uuid.Parse(r.URL.Query().Get("node_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "node_id query parameter is required")
		return
	}

	records, err := h.contradictions.GetByNodeID(r.Context(), nodeID)
	if err != nil {
		h.logger.Error("failed to list contradictions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list contradictions")
		return
	}

	writeJSON(w, http.StatusOK, contradictionsResponse{
		Contradictions: records,
		Count:          len(records),
	})
}
