// Package store owns the in-memory view of history documents and is the
// single mutation path for appends. Writers are serialized; reads run
// concurrently against immutable cached snapshots.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/trendoor/pkg/history"
	"github.com/ethpandaops/trendoor/pkg/storage"
)

// ErrNotFound is returned when a document does not exist in storage.
var ErrNotFound = errors.New("document not found")

// Store serves and mutates history documents backed by a storage backend.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// List returns the names of all documents in storage.
	List(ctx context.Context) ([]string, error)

	// Get returns the cached document, loading it from storage on first
	// access. The returned document is shared and must not be mutated.
	Get(ctx context.Context, doc string) (*history.Document, error)

	// Append appends one entry to a suite of the named document,
	// creating the document on first append. The entry is validated,
	// persisted to storage, and only then made visible to readers; a
	// failure at any step leaves both storage and memory unchanged.
	Append(ctx context.Context, doc, suite string, entry history.Entry) error

	// Query returns the measurement series for one suite of a document.
	Query(ctx context.Context, doc, suite, measurement string) ([]history.Point, error)

	// Invalidate drops the cached copy of a document so the next read
	// reloads it from storage. Used when a runner writes out-of-band.
	Invalidate(doc string)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log     logrus.FieldLogger
	backend storage.Backend

	mu    sync.RWMutex
	cache map[string]*history.Document

	// appendMu serializes the load-modify-persist cycle so concurrent
	// writers cannot interleave and break the non-decreasing-date
	// invariant.
	appendMu sync.Mutex
}

// NewStore creates a document store over the given backend.
func NewStore(log logrus.FieldLogger, backend storage.Backend) Store {
	return &store{
		log:     log.WithField("component", "store"),
		backend: backend,
		cache:   make(map[string]*history.Document),
	}
}

// Start verifies the backend is reachable by listing documents once.
func (s *store) Start(ctx context.Context) error {
	names, err := s.backend.List(ctx)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	s.log.WithField("documents", len(names)).Info("Document store started")

	return nil
}

// Stop releases the cache.
func (s *store) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = make(map[string]*history.Document)

	return nil
}

func (s *store) List(ctx context.Context) ([]string, error) {
	return s.backend.List(ctx)
}

func (s *store) Get(ctx context.Context, doc string) (*history.Document, error) {
	s.mu.RLock()
	cached, ok := s.cache[doc]
	s.mu.RUnlock()

	if ok {
		return cached, nil
	}

	loaded, err := s.load(ctx, doc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// Another reader may have loaded the document in the meantime;
	// keep the first copy so all readers share one snapshot.
	if cached, ok := s.cache[doc]; ok {
		s.mu.Unlock()

		return cached, nil
	}

	s.cache[doc] = loaded
	s.mu.Unlock()

	return loaded, nil
}

func (s *store) Append(
	ctx context.Context, doc, suite string, entry history.Entry,
) error {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	current, err := s.Get(ctx, doc)

	switch {
	case errors.Is(err, ErrNotFound):
		current = history.New(deriveRepoURL(entry.Commit.URL))
	case err != nil:
		return err
	}

	// Mutate a deep copy so readers of the old snapshot are unaffected
	// and a failed persist leaves nothing behind.
	updated := current.Clone()

	if err := updated.Append(suite, entry); err != nil {
		return err
	}

	data, err := history.Serialize(updated)
	if err != nil {
		return fmt.Errorf("serializing document %q: %w", doc, err)
	}

	if err := s.backend.Put(ctx, doc, data); err != nil {
		return fmt.Errorf("persisting document %q: %w", doc, err)
	}

	s.mu.Lock()
	s.cache[doc] = updated
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"document": doc,
		"suite":    suite,
		"commit":   entry.Commit.ID,
		"benches":  len(entry.Benches),
	}).Info("Entry appended")

	return nil
}

func (s *store) Query(
	ctx context.Context, doc, suite, measurement string,
) ([]history.Point, error) {
	d, err := s.Get(ctx, doc)
	if err != nil {
		return nil, err
	}

	return d.Points(suite, measurement), nil
}

func (s *store) Invalidate(doc string) {
	s.mu.Lock()
	delete(s.cache, doc)
	s.mu.Unlock()
}

// load reads and parses a document from the backend.
func (s *store) load(ctx context.Context, doc string) (*history.Document, error) {
	data, err := s.backend.Get(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("reading document %q: %w", doc, err)
	}

	if data == nil {
		return nil, fmt.Errorf("document %q: %w", doc, ErrNotFound)
	}

	loaded, err := history.Load(data)
	if err != nil {
		return nil, fmt.Errorf("document %q: %w", doc, err)
	}

	return loaded, nil
}

// deriveRepoURL recovers the repository URL from a commit URL when a new
// document is created implicitly by the first append. GitHub-style commit
// URLs end in /commit/{hash}.
func deriveRepoURL(commitURL string) string {
	if idx := strings.Index(commitURL, "/commit/"); idx > 0 {
		return commitURL[:idx]
	}

	return ""
}
