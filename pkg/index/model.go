package index

import "time"

// SeriesPoint is one indexed measurement value: a single (document,
// suite, measurement, commit) data point of a trend series.
type SeriesPoint struct {
	ID          uint   `gorm:"primaryKey"`
	Document    string `gorm:"not null;uniqueIndex:idx_points_identity"`
	Suite       string `gorm:"not null;uniqueIndex:idx_points_identity"`
	Measurement string `gorm:"not null;uniqueIndex:idx_points_identity"`
	CommitID    string `gorm:"not null;uniqueIndex:idx_points_identity"`
	Date        int64  `gorm:"not null;uniqueIndex:idx_points_identity;index"`

	Value     float64
	Range     string
	Unit      string
	CommitURL string

	IndexedAt time.Time
}
