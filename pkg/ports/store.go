package ports

import "context"

// AuditStore persists encoded audit bundles. Bundles are write-once: saving
// an existing ID fails with domain.ErrBundleExists.
type AuditStore interface {
	// Save persists the encoded bundle under id.
	Save(ctx context.Context, id string, data []byte) error

	// Load retrieves the encoded bundle for id.
	// Returns domain.ErrBundleNotFound if the bundle does not exist.
	Load(ctx context.Context, id string) ([]byte, error)

	// List returns the stored bundle IDs.
	List(ctx context.Context) ([]string, error)
}
