package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casegraph/casegraph/internal/domain"
	"github.com/casegraph/casegraph/internal/service"
)

type EvidenceHandler struct {
	nodes    domain.NodeStore
	embedder domain.EmbeddingClient
	linker   *service.LinkerService
	timeout  time.Duration
	logger   *zap.Logger
}

func NewEvidenceHandler(nodes domain.NodeStore, embedder domain.EmbeddingClient, linker *service.LinkerService, timeout time.Duration, logger *zap.Logger) *EvidenceHandler {
	return &EvidenceHandler{nodes: nodes, embedder: embedder, linker: linker, timeout: timeout, logger: logger}
}

type ingestEvidenceRequest struct {
	Text      string     `json:"text"`
	ThreadID  *uuid.UUID `json:"thread_id,omitempty"`
	CaseID    *uuid.UUID `json:"case_id,omitempty"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
}

type ingestEvidenceResponse struct {
	Evidence *domain.Node        `json:"evidence"`
	Linking  *service.LinkResult `json:"linking"`
}

// Create ingests one piece of evidence: persists the node, then links it
// against the case and cascades any assumptions it touched. A degraded
// linking run still returns 201 with whatever was committed.
func (h *EvidenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ingestEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	evidence := &domain.Node{
		Kind:      domain.KindEvidence,
		Text:      req.Text,
		ThreadID:  req.ThreadID,
		CaseID:    req.CaseID,
		ProjectID: req.ProjectID,
	}

	embedCtx, cancel := context.WithTimeout(r.Context(), h.timeout)
	embedding, err := h.embedder.Embed(embedCtx, req.Text)
	cancel()
	if err != nil {
		h.logger.Warn("evidence embedding failed, stored unlinked", zap.Error(err))
	} else {
		evidence.Embedding = embedding
	}

	if err := h.nodes.Create(r.Context(), evidence); err != nil {
		h.logger.Error("failed to create evidence", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create evidence")
		return
	}

	linking, err := h.linker.LinkEvidence(r.Context(), evidence)
	if err != nil {
		h.logger.Error("evidence linking partially failed",
			zap.String("evidence_id", evidence.ID.String()), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, ingestEvidenceResponse{
		Evidence: evidence,
		Linking:  linking,
	})
}
