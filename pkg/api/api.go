// Package api exposes the history store over HTTP for dashboards and
// benchmark runners.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/trendoor/pkg/config"
	"github.com/ethpandaops/trendoor/pkg/index"
	"github.com/ethpandaops/trendoor/pkg/storage"
	"github.com/ethpandaops/trendoor/pkg/store"
)

const (
	shutdownTimeout         = 10 * time.Second
	defaultIndexingInterval = 60 * time.Second
)

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.Config
	backend    storage.Backend
	store      store.Store
	indexStore index.Store
	indexer    index.Indexer
	httpServer *http.Server
	wg         sync.WaitGroup
}

// NewServer creates a new API server.
func NewServer(log logrus.FieldLogger, cfg *config.Config) Server {
	return &server{
		log: log.WithField("component", "api"),
		cfg: cfg,
	}
}

// Start initializes the storage backend, document store, and optional
// indexing service, then starts the HTTP server.
func (s *server) Start(ctx context.Context) error {
	switch {
	case s.cfg.Storage.S3 != nil && s.cfg.Storage.S3.Enabled:
		s.backend = storage.NewS3Backend(s.cfg.Storage.S3)

		s.log.Info("S3 storage backend enabled")
	case s.cfg.Storage.Local != nil && s.cfg.Storage.Local.Enabled:
		s.backend = storage.NewLocalBackend(s.cfg.Storage.Local)

		s.log.WithField("path", s.cfg.Storage.Local.Path).
			Info("Local storage backend enabled")
	default:
		return fmt.Errorf("no storage backend configured")
	}

	s.store = store.NewStore(s.log, s.backend)
	if err := s.store.Start(ctx); err != nil {
		return fmt.Errorf("starting document store: %w", err)
	}

	// Prepare the indexing service before building the router so the
	// index endpoints are wired, but start the background indexer only
	// after the HTTP server is listening.
	if s.cfg.Indexing != nil && s.cfg.Indexing.Enabled {
		if err := s.prepareIndexing(ctx); err != nil {
			return fmt.Errorf("preparing indexing: %w", err)
		}
	}

	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.Server.Listen).
			Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	if s.indexer != nil {
		if err := s.indexer.Start(ctx); err != nil {
			return fmt.Errorf("starting indexer: %w", err)
		}
	}

	return nil
}

// Stop gracefully shuts down the HTTP server and closes the stores.
func (s *server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	if s.indexer != nil {
		if err := s.indexer.Stop(); err != nil {
			s.log.WithError(err).Warn("Indexer stop error")
		}
	}

	if s.indexStore != nil {
		if err := s.indexStore.Stop(); err != nil {
			s.log.WithError(err).Warn("Index store stop error")
		}
	}

	if s.store != nil {
		if err := s.store.Stop(); err != nil {
			return fmt.Errorf("stopping document store: %w", err)
		}
	}

	s.log.Info("API server stopped")

	return nil
}

// prepareIndexing creates the index store and indexer without starting
// the background goroutine.
func (s *server) prepareIndexing(ctx context.Context) error {
	s.indexStore = index.NewStore(s.log, &s.cfg.Indexing.Database)

	if err := s.indexStore.Start(ctx); err != nil {
		return fmt.Errorf("starting index store: %w", err)
	}

	interval := defaultIndexingInterval

	if s.cfg.Indexing.Interval != "" {
		d, err := time.ParseDuration(s.cfg.Indexing.Interval)
		if err != nil {
			return fmt.Errorf("parsing indexing interval: %w", err)
		}

		interval = d
	}

	s.indexer = index.NewIndexer(
		s.log, s.indexStore, s.backend, interval, s.cfg.Indexing.Concurrency,
	)

	s.log.Info("Indexing service enabled")

	return nil
}
