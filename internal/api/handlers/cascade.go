package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casegraph/casegraph/internal/domain"
	"github.com/casegraph/casegraph/internal/service"
)

type CascadeHandler struct {
	cascade *service.CascadeService
	logger  *zap.Logger
}

func NewCascadeHandler(cascade *service.CascadeService, logger *zap.Logger) *CascadeHandler {
	return &CascadeHandler{cascade: cascade, logger: logger}
}

// Trigger recomputes one assumption's status from its current edges. Each
// API call is an independent triggering event, so propagation depth starts
// at zero.
func (h *CascadeHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid assumption id")
		return
	}

	result, err := h.cascade.Cascade(r.Context(), id, domain.CascadeContext{})
	if err != nil {
		if errors.Is(err, service.ErrNotAssumption) {
			writeError(w, http.StatusUnprocessableEntity, "node is not an assumption")
			return
		}
		h.logger.Error("cascade failed", zap.String("node_id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cascade failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
