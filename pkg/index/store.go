// Package index maintains a queryable database of measurement series
// extracted from history documents. It lets dashboards answer
// cross-document trend queries without loading whole history files.
package index

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ethpandaops/trendoor/pkg/config"
)

// Store provides persistence for indexed series points.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// ReplaceDocumentPoints atomically replaces all points of one
	// document with the given set.
	ReplaceDocumentPoints(
		ctx context.Context, document string, points []*SeriesPoint,
	) error

	// ListSeries returns the points of one measurement series ordered
	// by date. Empty document matches all documents.
	ListSeries(
		ctx context.Context, document, suite, measurement string,
	) ([]SeriesPoint, error)

	// ListSuites returns the distinct suite names known to the index.
	ListSuites(ctx context.Context) ([]string, error)

	// ListMeasurements returns the distinct measurement names of a suite.
	ListMeasurements(ctx context.Context, suite string) ([]string, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates an index Store backed by the configured database driver.
func NewStore(log logrus.FieldLogger, cfg *config.DatabaseConfig) Store {
	return &store{
		log: log.WithField("component", "index"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening index database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(&SeriesPoint{}); err != nil {
		return fmt.Errorf("running index migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Index database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

const insertBatchSize = 200

// ReplaceDocumentPoints swaps the indexed points of a document in a
// single transaction: delete everything for the document, then insert
// the fresh set in batches.
func (s *store) ReplaceDocumentPoints(
	ctx context.Context, document string, points []*SeriesPoint,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document = ?", document).
			Delete(&SeriesPoint{}).Error; err != nil {
			return fmt.Errorf("deleting points for %q: %w", document, err)
		}

		for i := 0; i < len(points); i += insertBatchSize {
			end := min(i+insertBatchSize, len(points))

			batch := points[i:end]

			if err := tx.CreateInBatches(batch, len(batch)).Error; err != nil {
				return fmt.Errorf("inserting points for %q: %w", document, err)
			}
		}

		return nil
	})
}

// ListSeries returns points ordered by date, then insertion id for
// equal dates so series with repeated timestamps stay stable.
func (s *store) ListSeries(
	ctx context.Context, document, suite, measurement string,
) ([]SeriesPoint, error) {
	q := s.db.WithContext(ctx).
		Where("suite = ? AND measurement = ?", suite, measurement)

	if document != "" {
		q = q.Where("document = ?", document)
	}

	var points []SeriesPoint
	if err := q.Order("date ASC, id ASC").Find(&points).Error; err != nil {
		return nil, fmt.Errorf("listing series: %w", err)
	}

	return points, nil
}

func (s *store) ListSuites(ctx context.Context) ([]string, error) {
	var suites []string
	if err := s.db.WithContext(ctx).
		Model(&SeriesPoint{}).
		Distinct("suite").
		Order("suite ASC").
		Pluck("suite", &suites).Error; err != nil {
		return nil, fmt.Errorf("listing suites: %w", err)
	}

	return suites, nil
}

func (s *store) ListMeasurements(
	ctx context.Context, suite string,
) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).
		Model(&SeriesPoint{}).
		Where("suite = ?", suite).
		Distinct("measurement").
		Order("measurement ASC").
		Pluck("measurement", &names).Error; err != nil {
		return nil, fmt.Errorf("listing measurements: %w", err)
	}

	return names, nil
}
