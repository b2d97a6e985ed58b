package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/trendoor/pkg/history"
)

var (
	appendDocument string
	appendSuite    string
	appendEntry    string
)

var appendCmd = &cobra.Command{
	Use:   "append",
	Short: "Append a benchmark entry to a history document",
	Long: `Append one benchmark entry to a suite of a history document in the
configured storage backend. The entry file may be JSON or YAML using the
document field names (commit, date, tool, benches). The document is
created on first append.`,
	RunE: runAppend,
}

func init() {
	rootCmd.AddCommand(appendCmd)

	appendCmd.Flags().StringVar(&appendDocument, "document", "",
		"Name of the history document")
	appendCmd.Flags().StringVar(&appendSuite, "suite", history.DefaultSuite,
		"Suite to append to")
	appendCmd.Flags().StringVar(&appendEntry, "entry", "",
		"Path to the entry file (JSON or YAML)")

	_ = appendCmd.MarkFlagRequired("document")
	_ = appendCmd.MarkFlagRequired("entry")
}

func runAppend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	entry, err := readEntryFile(appendEntry)
	if err != nil {
		return err
	}

	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Stop() }()

	if err := st.Append(
		cmd.Context(), appendDocument, appendSuite, *entry,
	); err != nil {
		return fmt.Errorf("appending entry: %w", err)
	}

	log.WithField("document", appendDocument).
		WithField("suite", appendSuite).
		WithField("commit", entry.Commit.ID).
		Info("Entry appended")

	return nil
}

// readEntryFile parses an entry from a JSON or YAML file. YAML is
// decoded into a generic map first and then mapped onto the entry type
// using the JSON field names, so both formats share one schema.
func readEntryFile(path string) (*history.Entry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-provided path
	if err != nil {
		return nil, fmt.Errorf("reading entry file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing entry file: %w", err)
	}

	var entry history.Entry

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &entry,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, fmt.Errorf("building entry decoder: %w", err)
	}

	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding entry: %w", err)
	}

	return &entry, nil
}
