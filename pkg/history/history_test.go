package history_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/trendoor/pkg/history"
)

// testEntry builds a valid entry with the given date and measurements.
func testEntry(id string, date int64, benches ...history.Measurement) history.Entry {
	return history.Entry{
		Commit: history.CommitInfo{
			Author: history.Person{
				Name:     "Ada Lovelace",
				Email:    "ada@example.com",
				Username: "ada",
			},
			Committer: history.Person{
				Name:     "Ada Lovelace",
				Email:    "ada@example.com",
				Username: "ada",
			},
			Distinct:  true,
			ID:        id,
			Message:   "tune compaction",
			Timestamp: "2021-05-01T10:00:00+08:00",
			TreeID:    "tree-" + id,
			URL:       "https://github.com/example/kv/commit/" + id,
		},
		Date:    date,
		Tool:    "cargo",
		Benches: benches,
	}
}

func bench(name string, value float64) history.Measurement {
	return history.Measurement{
		Name:  name,
		Value: value,
		Range: "± 1000",
		Unit:  "ns/iter",
	}
}

func TestAppend_CreatesSuiteAndBumpsLastUpdate(t *testing.T) {
	doc := history.New("https://github.com/example/kv")

	require.NoError(t, doc.Append("Benchmark",
		testEntry("aaa111", 1000, bench("map_put", 18764))))

	require.Len(t, doc.Entries["Benchmark"], 1)
	assert.Equal(t, int64(1000), doc.LastUpdate)

	// Same date is allowed (non-decreasing, not strictly increasing).
	require.NoError(t, doc.Append("Benchmark",
		testEntry("bbb222", 1000, bench("map_put", 19285))))

	// Later date bumps lastUpdate again.
	require.NoError(t, doc.Append("Benchmark",
		testEntry("ccc333", 2000, bench("map_put", 19001))))
	assert.Equal(t, int64(2000), doc.LastUpdate)
}

func TestAppend_RejectsEarlierDate(t *testing.T) {
	doc := history.New("https://github.com/example/kv")

	require.NoError(t, doc.Append("Benchmark",
		testEntry("aaa111", 2000, bench("map_put", 18764))))

	before := doc.Clone()

	err := doc.Append("Benchmark",
		testEntry("bbb222", 1000, bench("map_put", 19285)))

	var verr *history.ValidationError
	require.ErrorAs(t, err, &verr)

	// Failed append leaves the document untouched.
	assert.Equal(t, before, doc)
}

func TestAppend_RejectsDuplicateMeasurementNames(t *testing.T) {
	doc := history.New("https://github.com/example/kv")

	err := doc.Append("Benchmark", testEntry("aaa111", 1000,
		bench("map_put", 18764),
		bench("map_put", 19285),
	))

	var verr *history.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, doc.Entries["Benchmark"])
	assert.Zero(t, doc.LastUpdate)
}

func TestAppend_RejectsIncompleteEntries(t *testing.T) {
	doc := history.New("https://github.com/example/kv")

	tests := []struct {
		name  string
		entry history.Entry
	}{
		{
			name: "missing commit id",
			entry: history.Entry{
				Date:    1000,
				Tool:    "cargo",
				Benches: []history.Measurement{bench("map_put", 1)},
			},
		},
		{
			name: "missing tool",
			entry: func() history.Entry {
				e := testEntry("aaa111", 1000, bench("map_put", 1))
				e.Tool = ""

				return e
			}(),
		},
		{
			name:  "no measurements",
			entry: testEntry("aaa111", 1000),
		},
		{
			name: "unnamed measurement",
			entry: testEntry("aaa111", 1000,
				history.Measurement{Value: 1, Unit: "ns/iter"}),
		},
		{
			name: "negative value",
			entry: testEntry("aaa111", 1000,
				history.Measurement{Name: "map_put", Value: -1, Unit: "ns/iter"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := doc.Append("Benchmark", tt.entry)

			var verr *history.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestQuery_ReturnsOrderedSubsequence(t *testing.T) {
	doc := history.New("https://github.com/example/kv")

	require.NoError(t, doc.Append("Benchmark", testEntry("aaa111", 1000,
		bench("map_put", 18764), bench("map_get", 17122))))
	require.NoError(t, doc.Append("Benchmark", testEntry("bbb222", 2000,
		bench("map_get", 18701))))
	require.NoError(t, doc.Append("Benchmark", testEntry("ccc333", 3000,
		bench("map_put", 19285), bench("map_get", 18000))))

	// Entries without the measurement are skipped, order preserved.
	values := make([]float64, 0, 2)
	for p := range doc.Query("Benchmark", "map_put") {
		values = append(values, p.Value)
	}

	assert.Equal(t, []float64{18764, 19285}, values)

	// The sequence is restartable: a second pass sees the same points.
	again := doc.Points("Benchmark", "map_put")
	require.Len(t, again, 2)
	assert.Equal(t, int64(1000), again[0].Date)
	assert.Equal(t, int64(3000), again[1].Date)
	assert.Equal(t, "ns/iter", again[0].Unit)
}

func TestQuery_UnknownSuiteOrMeasurementIsEmpty(t *testing.T) {
	doc := history.New("https://github.com/example/kv")

	require.NoError(t, doc.Append("Benchmark",
		testEntry("aaa111", 1000, bench("map_put", 18764))))

	assert.Empty(t, doc.Points("Nope", "map_put"))
	assert.Empty(t, doc.Points("Benchmark", "nope"))
}

func TestQuery_EarlyBreakDoesNotPanic(t *testing.T) {
	doc := history.New("https://github.com/example/kv")

	require.NoError(t, doc.Append("Benchmark",
		testEntry("aaa111", 1000, bench("map_put", 1))))
	require.NoError(t, doc.Append("Benchmark",
		testEntry("bbb222", 2000, bench("map_put", 2))))

	count := 0
	for range doc.Query("Benchmark", "map_put") {
		count++

		break
	}

	assert.Equal(t, 1, count)
}

func TestValidate_CatchesLastUpdateBehindEntries(t *testing.T) {
	doc := history.New("https://github.com/example/kv")

	require.NoError(t, doc.Append("Benchmark",
		testEntry("aaa111", 5000, bench("map_put", 1))))

	doc.LastUpdate = 4000

	err := doc.Validate()

	var verr *history.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestClone_IsIndependent(t *testing.T) {
	doc := history.New("https://github.com/example/kv")

	require.NoError(t, doc.Append("Benchmark",
		testEntry("aaa111", 1000, bench("map_put", 18764))))

	cp := doc.Clone()
	require.NoError(t, cp.Append("Benchmark",
		testEntry("bbb222", 2000, bench("map_put", 19285))))

	assert.Len(t, doc.Entries["Benchmark"], 1)
	assert.Len(t, cp.Entries["Benchmark"], 2)
	assert.Equal(t, int64(1000), doc.LastUpdate)
}
