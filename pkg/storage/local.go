package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethpandaops/trendoor/pkg/config"
)

// documentExt is the file extension for stored history documents.
const documentExt = ".json"

// Compile-time interface check.
var _ Backend = (*localBackend)(nil)

type localBackend struct {
	root string
}

// NewLocalBackend creates a Backend storing documents as files under the
// configured directory. The directory is created on first write.
func NewLocalBackend(cfg *config.LocalStorageConfig) Backend {
	return &localBackend{root: filepath.Clean(cfg.Path)}
}

// List returns document names derived from *.json files under the root.
func (b *localBackend) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading history directory: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), documentExt) {
			continue
		}

		names = append(names, strings.TrimSuffix(e.Name(), documentExt))
	}

	sort.Strings(names)

	return names, nil
}

// Get reads {root}/{name}.json. Returns (nil, nil) when the file does
// not exist.
func (b *localBackend) Get(_ context.Context, name string) ([]byte, error) {
	path, err := b.documentPath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path validated above
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading document %q: %w", name, err)
	}

	return data, nil
}

// Put writes {root}/{name}.json atomically via a temp file and rename,
// so concurrent readers never see a torn document.
func (b *localBackend) Put(_ context.Context, name string, data []byte) error {
	path, err := b.documentPath(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(b.root, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.root, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %q: %w", name, err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("writing temp file for %q: %w", name, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("closing temp file for %q: %w", name, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("replacing document %q: %w", name, err)
	}

	return nil
}

// documentPath validates the document name and resolves its file path.
func (b *localBackend) documentPath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("document name is required")
	}

	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", fmt.Errorf("document name %q is not allowed", name)
	}

	return filepath.Join(b.root, name+documentExt), nil
}
