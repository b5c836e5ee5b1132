package domain

import (
	"context"

	"github.com/google/uuid"
)

// DefaultMaxCascadeDepth bounds how far a single status change may propagate,
// including cycles that re-enter the same node through a sync hook.
const DefaultMaxCascadeDepth = 3

// CascadeContext carries the propagation depth for a single triggering call.
// It is a value type passed explicitly down the call chain; concurrent
// cascades triggered by independent events each start from a zero context and
// can never observe each other's depth.
type CascadeContext struct {
	Depth int `json:"depth"`
}

// Next returns a copy of the context one level deeper.
func (c CascadeContext) Next() CascadeContext {
	return CascadeContext{Depth: c.Depth + 1}
}

type CascadeResult struct {
	Changed   bool   `json:"changed"`
	NewStatus Status `json:"new_status"`
}

// SyncHook is a downstream recalculation invoked after a committed status
// change. Hook failures are logged by the caller and never propagate; a hook
// that re-enters the cascade engine must pass the supplied context through so
// the depth bound holds across the cycle.
type SyncHook interface {
	Name() string
	OnStatusChanged(ctx context.Context, nodeID uuid.UUID, status Status, cascade CascadeContext) error
}
