package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/casegraph/casegraph/internal/domain"
)

// WebhookHook notifies a downstream consumer of a committed status change by
// POSTing to a configured URL. Plan and grounding recalculation both run
// behind this shape; only the name and URL differ.
type WebhookHook struct {
	name       string
	url        string
	httpClient *http.Client
}

func NewWebhookHook(name, url string) *WebhookHook {
	return &WebhookHook{
		name:       name,
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *WebhookHook) Name() string {
	return h.name
}

type statusChangePayload struct {
	NodeID uuid.UUID     `json:"node_id"`
	Status domain.Status `json:"status"`
	Depth  int           `json:"depth"`
}

func (h *WebhookHook) OnStatusChanged(ctx context.Context, nodeID uuid.UUID, status domain.Status, cascade domain.CascadeContext) error {
	body, err := json.Marshal(statusChangePayload{
		NodeID: nodeID,
		Status: status,
		Depth:  cascade.Depth,
	})
	if err != nil {
		return fmt.Errorf("marshal status change: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// NoopHook satisfies the hook interface without side effects.
type NoopHook struct{}

func (NoopHook) Name() string { return "noop" }

func (NoopHook) OnStatusChanged(ctx context.Context, nodeID uuid.UUID, status domain.Status, cascade domain.CascadeContext) error {
	return nil
}
