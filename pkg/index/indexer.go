package index

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/trendoor/pkg/history"
	"github.com/ethpandaops/trendoor/pkg/storage"
)

// defaultConcurrency is the number of documents indexed in parallel when
// no explicit concurrency value is configured.
const defaultConcurrency = 4

// Indexer is a background service that periodically scans the storage
// backend and refreshes the series index from every history document.
type Indexer interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Indexer = (*indexer)(nil)

type indexer struct {
	log         logrus.FieldLogger
	store       Store
	backend     storage.Backend
	interval    time.Duration
	concurrency int
	done        chan struct{}
	wg          sync.WaitGroup
}

// NewIndexer creates a new background indexer.
func NewIndexer(
	log logrus.FieldLogger,
	store Store,
	backend storage.Backend,
	interval time.Duration,
	concurrency int,
) Indexer {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &indexer{
		log:         log.WithField("component", "indexer"),
		store:       store,
		backend:     backend,
		interval:    interval,
		concurrency: concurrency,
		done:        make(chan struct{}),
	}
}

// Start launches a background goroutine that runs an immediate indexing
// pass and then ticks at the configured interval.
func (idx *indexer) Start(ctx context.Context) error {
	idx.log.WithFields(logrus.Fields{
		"interval":    idx.interval.String(),
		"concurrency": idx.concurrency,
	}).Info("Starting indexer")

	idx.wg.Add(1)

	go func() {
		defer idx.wg.Done()

		idx.runPass(ctx)

		ticker := time.NewTicker(idx.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				idx.runPass(ctx)
			case <-idx.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop signals the indexer goroutine to stop and waits for it.
func (idx *indexer) Stop() error {
	close(idx.done)
	idx.wg.Wait()

	idx.log.Info("Indexer stopped")

	return nil
}

// runPass executes one full indexing pass across all documents.
func (idx *indexer) runPass(ctx context.Context) {
	start := time.Now()

	names, err := idx.backend.List(ctx)
	if err != nil {
		idx.log.WithError(err).Warn("Listing documents failed")

		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)

	for _, name := range names {
		g.Go(func() error {
			if err := idx.indexDocument(gctx, name); err != nil {
				// One bad document must not abort the pass.
				idx.log.WithError(err).
					WithField("document", name).
					Warn("Indexing document failed")
			}

			return nil
		})
	}

	_ = g.Wait()

	idx.log.WithFields(logrus.Fields{
		"documents": len(names),
		"duration":  time.Since(start).String(),
	}).Info("Indexing pass completed")
}

// indexDocument loads one document and replaces its indexed points.
func (idx *indexer) indexDocument(ctx context.Context, name string) error {
	data, err := idx.backend.Get(ctx, name)
	if err != nil {
		return err
	}

	if data == nil {
		// Deleted between List and Get; drop its points.
		return idx.store.ReplaceDocumentPoints(ctx, name, nil)
	}

	doc, err := history.Load(data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	points := make([]*SeriesPoint, 0, 64)

	for suite, entries := range doc.Entries {
		for _, entry := range entries {
			for _, b := range entry.Benches {
				points = append(points, &SeriesPoint{
					Document:    name,
					Suite:       suite,
					Measurement: b.Name,
					CommitID:    entry.Commit.ID,
					Date:        entry.Date,
					Value:       b.Value,
					Range:       b.Range,
					Unit:        b.Unit,
					CommitURL:   entry.Commit.URL,
					IndexedAt:   now,
				})
			}
		}
	}

	return idx.store.ReplaceDocumentPoints(ctx, name, points)
}
