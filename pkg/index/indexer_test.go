package index_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/trendoor/pkg/config"
	"github.com/ethpandaops/trendoor/pkg/history"
	"github.com/ethpandaops/trendoor/pkg/index"
	"github.com/ethpandaops/trendoor/pkg/storage"
)

func TestIndexer_IndexesDocumentsFromStorage(t *testing.T) {
	ctx := context.Background()

	backend := storage.NewLocalBackend(&config.LocalStorageConfig{
		Path: t.TempDir(),
	})

	doc := history.New("https://github.com/example/kv")
	require.NoError(t, doc.Append("Benchmark", history.Entry{
		Commit: history.CommitInfo{
			ID:  "aaa111",
			URL: "https://github.com/example/kv/commit/aaa111",
		},
		Date: 1000,
		Tool: "cargo",
		Benches: []history.Measurement{
			{Name: "map_put", Value: 18764, Unit: "ns/iter"},
			{Name: "map_get", Value: 17122, Unit: "ns/iter"},
		},
	}))

	data, err := history.Serialize(doc)
	require.NoError(t, err)
	require.NoError(t, backend.Put(ctx, "kv-bench", data))

	s := setupTestStore(t)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	idx := index.NewIndexer(log, s, backend, time.Hour, 2)
	require.NoError(t, idx.Start(ctx))

	// The first pass runs immediately; poll until it lands.
	require.Eventually(t, func() bool {
		series, err := s.ListSeries(ctx, "kv-bench", "Benchmark", "map_put")

		return err == nil && len(series) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, idx.Stop())

	series, err := s.ListSeries(ctx, "kv-bench", "Benchmark", "map_get")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, float64(17122), series[0].Value)
	assert.Equal(t, "aaa111", series[0].CommitID)
}
