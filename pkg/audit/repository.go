package audit

import (
	"context"
	"fmt"

	"github.com/aretw0/triage/pkg/ports"
)

// Repository persists bundles in their JSON form over any AuditStore.
type Repository struct {
	store ports.AuditStore
}

// NewRepository creates a repository backed by store.
func NewRepository(store ports.AuditStore) *Repository {
	return &Repository{store: store}
}

// Save stores a finalized bundle. Bundles are write-once.
func (r *Repository) Save(ctx context.Context, b *Bundle) error {
	if b.FinalizedAt.IsZero() {
		return fmt.Errorf("bundle %s: not finalized", b.ID)
	}
	data, err := Encode(b)
	if err != nil {
		return fmt.Errorf("failed to encode bundle %s: %w", b.ID, err)
	}
	if err := r.store.Save(ctx, b.ID, data); err != nil {
		return fmt.Errorf("failed to save bundle %s: %w", b.ID, err)
	}
	return nil
}

// Load retrieves a bundle by ID.
func (r *Repository) Load(ctx context.Context, id string) (*Bundle, error) {
	data, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle %s: %w", id, err)
	}
	b, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bundle %s: %w", id, err)
	}
	return b, nil
}

// List returns stored bundle IDs.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	return r.store.List(ctx)
}
