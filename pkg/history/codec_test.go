package history_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/trendoor/pkg/history"
)

// twoEntryFixture is the dashboard form of a minimal real-world history:
// two runs of the "Benchmark" suite with map_put and map_get timings.
const twoEntryFixture = `window.BENCHMARK_DATA = {
  "lastUpdate": 1620181201425,
  "repoUrl": "https://github.com/example/kv",
  "entries": {
    "Benchmark": [
      {
        "commit": {
          "author": {
            "name": "Ada Lovelace",
            "email": "ada@example.com",
            "username": "ada"
          },
          "committer": {
            "name": "Ada Lovelace",
            "email": "ada@example.com",
            "username": "ada"
          },
          "distinct": true,
          "id": "2f9c4e11aa03e1f2b8e12e0d94bd6a52cf9e4a10",
          "message": "add sorted list compaction",
          "timestamp": "2021-05-04T10:20:01+08:00",
          "tree_id": "c9f0b9878e8eb42d3fa06bc9a1cf1df75d8f56aa",
          "url": "https://github.com/example/kv/commit/2f9c4e11aa03e1f2b8e12e0d94bd6a52cf9e4a10"
        },
        "date": 1620094801000,
        "tool": "cargo",
        "benches": [
          {
            "name": "map_put",
            "value": 18764,
            "range": "± 1204",
            "unit": "ns/iter"
          },
          {
            "name": "map_get",
            "value": 17122,
            "range": "± 993",
            "unit": "ns/iter"
          }
        ]
      },
      {
        "commit": {
          "author": {
            "name": "Ada Lovelace",
            "email": "ada@example.com",
            "username": "ada"
          },
          "committer": {
            "name": "Ada Lovelace",
            "email": "ada@example.com",
            "username": "ada"
          },
          "distinct": true,
          "id": "a30cf3e2bb19c0e0f9aa1c6e06b2f0f8a54c9d77",
          "message": "tune memtable size",
          "timestamp": "2021-05-05T10:20:01+08:00",
          "tree_id": "7d2e8b1192d3bb1d14532bd2f3a2a5a13d63eeff",
          "url": "https://github.com/example/kv/commit/a30cf3e2bb19c0e0f9aa1c6e06b2f0f8a54c9d77"
        },
        "date": 1620181201000,
        "tool": "cargo",
        "benches": [
          {
            "name": "map_put",
            "value": 19285,
            "range": "± 1367",
            "unit": "ns/iter"
          },
          {
            "name": "map_get",
            "value": 18701,
            "range": "± 1042",
            "unit": "ns/iter"
          }
        ]
      }
    ]
  }
};
`

func TestLoad_DashboardForm(t *testing.T) {
	doc, err := history.Load([]byte(twoEntryFixture))
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/example/kv", doc.RepoURL)
	assert.Equal(t, int64(1620181201425), doc.LastUpdate)
	require.Len(t, doc.Entries["Benchmark"], 2)

	first := doc.Entries["Benchmark"][0]
	assert.Equal(t, "2f9c4e11aa03e1f2b8e12e0d94bd6a52cf9e4a10", first.Commit.ID)
	assert.Equal(t, "ada", first.Commit.Author.Username)
	assert.Equal(t, "cargo", first.Tool)

	// Querying map_put over the loaded document yields the two values
	// in insertion order.
	points := doc.Points("Benchmark", "map_put")
	require.Len(t, points, 2)
	assert.Equal(t, float64(18764), points[0].Value)
	assert.Equal(t, float64(19285), points[1].Value)
	assert.Equal(t, "± 1204", points[0].Range)
}

func TestLoad_PlainJSON(t *testing.T) {
	doc, err := history.Load([]byte(twoEntryFixture))
	require.NoError(t, err)

	// The canonical JSON form loads to an equal document.
	raw, err := history.Serialize(doc)
	require.NoError(t, err)

	again, err := history.Load(raw)
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestSerialize_RoundTripsThroughJS(t *testing.T) {
	doc, err := history.Load([]byte(twoEntryFixture))
	require.NoError(t, err)

	js, err := history.EncodeJS(doc)
	require.NoError(t, err)
	assert.True(t, len(js) > 0)
	assert.Contains(t, string(js), "window.BENCHMARK_DATA = {")

	again, err := history.Load(js)
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace only", input: "  \n"},
		{name: "not an object", input: `[1, 2, 3]`},
		{name: "truncated", input: `{"lastUpdate": 1,`},
		{
			name:  "wrong type for lastUpdate",
			input: `{"lastUpdate": "soon", "repoUrl": "r", "entries": {}}`,
		},
		{
			name:  "missing entries",
			input: `{"lastUpdate": 1, "repoUrl": "r"}`,
		},
		{
			name:  "unknown field",
			input: `{"lastUpdate": 1, "repoUrl": "r", "entries": {}, "extra": 1}`,
		},
		{
			name: "duplicate measurement name in one entry",
			input: `{"lastUpdate": 2000, "repoUrl": "r", "entries": {"Benchmark": [
				{"commit": {"id": "abc"}, "date": 1000, "tool": "cargo", "benches": [
					{"name": "map_put", "value": 1, "unit": "ns/iter"},
					{"name": "map_put", "value": 2, "unit": "ns/iter"}
				]}
			]}}`,
		},
		{
			name: "decreasing dates",
			input: `{"lastUpdate": 2000, "repoUrl": "r", "entries": {"Benchmark": [
				{"commit": {"id": "abc"}, "date": 2000, "tool": "cargo", "benches": [
					{"name": "map_put", "value": 1, "unit": "ns/iter"}
				]},
				{"commit": {"id": "def"}, "date": 1000, "tool": "cargo", "benches": [
					{"name": "map_put", "value": 1, "unit": "ns/iter"}
				]}
			]}}`,
		},
		{
			name: "lastUpdate behind entry dates",
			input: `{"lastUpdate": 500, "repoUrl": "r", "entries": {"Benchmark": [
				{"commit": {"id": "abc"}, "date": 1000, "tool": "cargo", "benches": [
					{"name": "map_put", "value": 1, "unit": "ns/iter"}
				]}
			]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := history.Load([]byte(tt.input))

			var perr *history.ParseError
			require.ErrorAs(t, err, &perr)
		})
	}
}

func TestLoad_RenamedGlobalStillLoads(t *testing.T) {
	input := `var BENCH_HISTORY = {"lastUpdate": 0, "repoUrl": "r", "entries": {}};`

	doc, err := history.Load([]byte(input))
	require.NoError(t, err)
	assert.Empty(t, doc.Entries)
}
