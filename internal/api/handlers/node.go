package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casegraph/casegraph/internal/domain"
	"github.com/casegraph/casegraph/internal/store"
)

type NodeHandler struct {
	nodes    domain.NodeStore
	edges    domain.EdgeStore
	embedder domain.EmbeddingClient
	timeout  time.Duration
	logger   *zap.Logger
}

func NewNodeHandler(nodes domain.NodeStore, edges domain.EdgeStore, embedder domain.EmbeddingClient, timeout time.Duration, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{nodes: nodes, edges: edges, embedder: embedder, timeout: timeout, logger: logger}
}

type createNodeRequest struct {
	Kind      string     `json:"kind"`
	Text      string     `json:"text"`
	ThreadID  *uuid.UUID `json:"thread_id,omitempty"`
	CaseID    *uuid.UUID `json:"case_id,omitempty"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
	Pinned    bool       `json:"pinned,omitempty"`
}

func (h *NodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidNodeKind(req.Kind) {
		writeError(w, http.StatusBadRequest, "invalid node kind")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	node := &domain.Node{
		Kind:      domain.NodeKind(req.Kind),
		Text:      req.Text,
		ThreadID:  req.ThreadID,
		CaseID:    req.CaseID,
		ProjectID: req.ProjectID,
		Pinned:    req.Pinned,
	}
	node.Embedding = h.embed(r.Context(), req.Text)

	if err := h.nodes.Create(r.Context(), node); err != nil {
		h.logger.Error("failed to create node", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create node")
		return
	}

	writeJSON(w, http.StatusCreated, node)
}

// embed computes the node embedding, degrading to none when the provider is
// unavailable so writes never block on it.
func (h *NodeHandler) embed(ctx context.Context, text string) []float32 {
	embedCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	embedding, err := h.embedder.Embed(embedCtx, text)
	if err != nil {
		h.logger.Warn("embedding failed, node stored without one", zap.Error(err))
		return nil
	}
	return embedding
}

func (h *NodeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}

	node, err := h.nodes.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "node not found")
			return
		}
		h.logger.Error("failed to get node", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get node")
		return
	}

	writeJSON(w, http.StatusOK, node)
}

type nodeEdgesResponse struct {
	Outgoing []domain.Edge `json:"outgoing"`
	Incoming []domain.Edge `json:"incoming"`
}

func (h *NodeHandler) GetEdges(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}

	outgoing, err := h.edges.GetBySource(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list outgoing edges", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list edges")
		return
	}
	incoming, err := h.edges.GetByTarget(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list incoming edges", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list edges")
		return
	}

	writeJSON(w, http.StatusOK, nodeEdgesResponse{Outgoing: outgoing, Incoming: incoming})
}

type setPinnedRequest struct {
	Pinned bool `json:"pinned"`
}

func (h *NodeHandler) SetPinned(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}

	var req setPinnedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.nodes.UpdatePinned(r.Context(), id, req.Pinned); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "node not found")
			return
		}
		h.logger.Error("failed to update pin", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update pin")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "pinned": req.Pinned})
}
