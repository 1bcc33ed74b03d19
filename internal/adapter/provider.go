package adapter

import (
	"context"

	"github.com/tkoide/editbridge/internal/broker"
)

// Provider turns a live connection handle into a StorageAdapter.
type Provider interface {
	Adapter(ctx context.Context, h *broker.Handle) (StorageAdapter, error)
}
