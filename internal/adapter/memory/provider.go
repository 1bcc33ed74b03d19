package memory

import (
	"context"

	"github.com/tkoide/editbridge/internal/adapter"
	"github.com/tkoide/editbridge/internal/broker"
)

// Provider hands out one shared in-memory vendor regardless of the handle.
type Provider struct {
	Vendor *Adapter
}

func NewProvider() *Provider {
	return &Provider{Vendor: New()}
}

func (p *Provider) Adapter(_ context.Context, _ *broker.Handle) (adapter.StorageAdapter, error) {
	return p.Vendor, nil
}
