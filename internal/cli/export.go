package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/aretw0/triage/pkg/adapters/file"
	"github.com/aretw0/triage/pkg/audit"
	"github.com/aretw0/triage/pkg/persistence/middleware"
)

// ExportBundle writes b as <dir>/<id>.json, masking the values of every JSON
// key matching one of the redact patterns. It returns the written path.
func ExportBundle(ctx context.Context, b *audit.Bundle, dir string, redact []string) (string, error) {
	for _, p := range redact {
		if _, err := regexp.Compile(p); err != nil {
			return "", fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
	}

	store := middleware.Chain(file.New(dir), middleware.NewRedactionMiddleware(redact))
	if err := audit.NewRepository(store).Save(ctx, b); err != nil {
		return "", err
	}
	return filepath.Join(dir, b.ID+".json"), nil
}
