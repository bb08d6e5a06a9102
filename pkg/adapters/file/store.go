// Package file implements the audit store on the local filesystem, one JSON
// document per bundle.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/triage/pkg/domain"
)

const ext = ".json"

// ErrInvalidID is returned for IDs that cannot name a file in the store.
var ErrInvalidID = errors.New("invalid bundle id")

// Store implements ports.AuditStore using the local filesystem.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".triage/bundles".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".triage", "bundles")
	}
	return &Store{BasePath: basePath}
}

// Save persists an encoded bundle. The data is written to a temporary file,
// synced, then hard-linked into place; the link fails if the ID exists, so a
// stored bundle is never replaced or seen half-written.
func (s *Store) Save(ctx context.Context, id string, data []byte) error {
	destPath, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure bundle directory: %w", err)
	}

	// Same directory keeps the link on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, ".tmp-*.partial")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Link(tmpPath, destPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", id, domain.ErrBundleExists)
		}
		return fmt.Errorf("failed to link bundle file: %w", err)
	}
	return nil
}

// Load retrieves an encoded bundle.
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	filePath, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrBundleNotFound
		}
		return nil, fmt.Errorf("failed to read bundle file: %w", err)
	}
	return data, nil
}

// List returns stored bundle IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping reports whether the base directory is usable.
func (s *Store) Ping(ctx context.Context) error {
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("bundle directory: %w", err)
	}
	return nil
}

func (s *Store) path(id string) (string, error) {
	if id == "" || strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.BasePath, id+ext), nil
}
