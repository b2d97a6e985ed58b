// Package history implements the append-only benchmark history document
// consumed by the trend dashboard. Field names follow the on-disk contract
// exactly; anything that renders the history file depends on them verbatim.
package history

import (
	"fmt"
	"iter"
)

// DefaultSuite is the suite name used when a runner does not set one.
const DefaultSuite = "Benchmark"

// Document is the top-level benchmark history document.
type Document struct {
	LastUpdate int64              `json:"lastUpdate"`
	RepoURL    string             `json:"repoUrl"`
	Entries    map[string][]Entry `json:"entries"`
}

// Entry is one recorded benchmark run tied to a commit.
type Entry struct {
	Commit  CommitInfo    `json:"commit"`
	Date    int64         `json:"date"`
	Tool    string        `json:"tool"`
	Benches []Measurement `json:"benches"`
}

// CommitInfo is the provenance of the code version that was measured.
type CommitInfo struct {
	Author    Person `json:"author"`
	Committer Person `json:"committer"`
	Distinct  bool   `json:"distinct"`
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	TreeID    string `json:"tree_id"`
	URL       string `json:"url"`
}

// Person identifies a commit author or committer.
type Person struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Measurement is one named metric from a run.
type Measurement struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Range string  `json:"range,omitempty"`
	Unit  string  `json:"unit"`
}

// Point is one element of a measurement series as served to renderers.
type Point struct {
	Date  int64   `json:"date"`
	Value float64 `json:"value"`
	Range string  `json:"range,omitempty"`
	Unit  string  `json:"unit"`
}

// New creates an empty document for the given repository URL.
func New(repoURL string) *Document {
	return &Document{
		RepoURL: repoURL,
		Entries: make(map[string][]Entry),
	}
}

// Append validates entry against the document invariants and appends it to
// the named suite, creating the suite on first use. On success lastUpdate
// is bumped to at least entry date. On failure the document is unchanged.
//
// Append does not deduplicate: re-appending the same commit and date is the
// caller's responsibility to avoid.
func (d *Document) Append(suite string, entry Entry) error {
	if suite == "" {
		return &ValidationError{Reason: "suite name is required"}
	}

	if err := validateEntry(&entry); err != nil {
		return err
	}

	seq := d.Entries[suite]

	if len(seq) > 0 {
		if last := seq[len(seq)-1].Date; entry.Date < last {
			return &ValidationError{Reason: fmt.Sprintf(
				"entry date %d precedes last entry date %d for suite %q",
				entry.Date, last, suite,
			)}
		}
	}

	if d.Entries == nil {
		d.Entries = make(map[string][]Entry)
	}

	d.Entries[suite] = append(seq, entry)

	if entry.Date > d.LastUpdate {
		d.LastUpdate = entry.Date
	}

	return nil
}

// Query returns a lazy, restartable series of points for one measurement
// within one suite, in insertion order. Entries that do not contain the
// measurement are skipped. An unknown suite or measurement yields an
// empty sequence.
func (d *Document) Query(suite, measurement string) iter.Seq[Point] {
	return func(yield func(Point) bool) {
		for _, entry := range d.Entries[suite] {
			for _, b := range entry.Benches {
				if b.Name != measurement {
					continue
				}

				if !yield(Point{
					Date:  entry.Date,
					Value: b.Value,
					Range: b.Range,
					Unit:  b.Unit,
				}) {
					return
				}

				break
			}
		}
	}
}

// Points collects a Query result into a slice.
func (d *Document) Points(suite, measurement string) []Point {
	points := make([]Point, 0, len(d.Entries[suite]))
	for p := range d.Query(suite, measurement) {
		points = append(points, p)
	}

	return points
}

// Suites returns the suite names present in the document, unsorted.
func (d *Document) Suites() []string {
	suites := make([]string, 0, len(d.Entries))
	for name := range d.Entries {
		suites = append(suites, name)
	}

	return suites
}

// Clone returns a deep copy of the document. Entries share no backing
// arrays with the original, so the copy can be mutated independently.
func (d *Document) Clone() *Document {
	entries := make(map[string][]Entry, len(d.Entries))

	for suite, seq := range d.Entries {
		cp := make([]Entry, len(seq))
		copy(cp, seq)

		for i := range cp {
			benches := make([]Measurement, len(cp[i].Benches))
			copy(benches, cp[i].Benches)
			cp[i].Benches = benches
		}

		entries[suite] = cp
	}

	return &Document{
		LastUpdate: d.LastUpdate,
		RepoURL:    d.RepoURL,
		Entries:    entries,
	}
}

// Validate checks the whole document against its invariants: non-decreasing
// entry dates per suite, unique measurement names per entry, non-negative
// numeric fields, and lastUpdate covering every entry date.
func (d *Document) Validate() error {
	if d.Entries == nil {
		return &ValidationError{Reason: "entries is required"}
	}

	if d.LastUpdate < 0 {
		return &ValidationError{Reason: "lastUpdate must be non-negative"}
	}

	for suite, seq := range d.Entries {
		var lastDate int64

		for i := range seq {
			entry := &seq[i]

			if err := validateEntry(entry); err != nil {
				return fmt.Errorf("suite %q entry %d: %w", suite, i, err)
			}

			if entry.Date < lastDate {
				return &ValidationError{Reason: fmt.Sprintf(
					"suite %q entry %d: date %d precedes previous date %d",
					suite, i, entry.Date, lastDate,
				)}
			}

			lastDate = entry.Date

			if entry.Date > d.LastUpdate {
				return &ValidationError{Reason: fmt.Sprintf(
					"suite %q entry %d: date %d exceeds lastUpdate %d",
					suite, i, entry.Date, d.LastUpdate,
				)}
			}
		}
	}

	return nil
}

// validateEntry checks a single entry in isolation.
func validateEntry(entry *Entry) error {
	if entry.Commit.ID == "" {
		return &ValidationError{Reason: "commit id is required"}
	}

	if entry.Tool == "" {
		return &ValidationError{Reason: "tool is required"}
	}

	if entry.Date < 0 {
		return &ValidationError{Reason: "entry date must be non-negative"}
	}

	if len(entry.Benches) == 0 {
		return &ValidationError{Reason: fmt.Sprintf(
			"commit %s: at least one measurement is required",
			entry.Commit.ID,
		)}
	}

	seen := make(map[string]struct{}, len(entry.Benches))

	for _, b := range entry.Benches {
		if b.Name == "" {
			return &ValidationError{Reason: fmt.Sprintf(
				"commit %s: measurement name is required", entry.Commit.ID,
			)}
		}

		if _, dup := seen[b.Name]; dup {
			return &ValidationError{Reason: fmt.Sprintf(
				"commit %s: duplicate measurement name %q",
				entry.Commit.ID, b.Name,
			)}
		}

		seen[b.Name] = struct{}{}

		if b.Value < 0 {
			return &ValidationError{Reason: fmt.Sprintf(
				"commit %s: measurement %q has negative value",
				entry.Commit.ID, b.Name,
			)}
		}
	}

	return nil
}
