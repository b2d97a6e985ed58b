package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/trendoor/pkg/history"
)

var (
	normalizeIn     string
	normalizeOut    string
	normalizeFormat string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Rewrite a history file in canonical form",
	Long: `Read a history document in either textual form (canonical JSON or the
dashboard's window.BENCHMARK_DATA assignment) and rewrite it as canonical
JSON or as the dashboard JS form. Validates all document invariants.`,
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().StringVar(&normalizeIn, "in", "",
		"Input history file")
	normalizeCmd.Flags().StringVar(&normalizeOut, "out", "",
		"Output file (defaults to stdout)")
	normalizeCmd.Flags().StringVar(&normalizeFormat, "format", "json",
		"Output format (json, js)")

	_ = normalizeCmd.MarkFlagRequired("in")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(normalizeIn) //nolint:gosec // operator-provided path
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}

	doc, err := history.Load(data)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	var out []byte

	switch normalizeFormat {
	case "json":
		out, err = history.Serialize(doc)
	case "js":
		out, err = history.EncodeJS(doc)
	default:
		return fmt.Errorf("unsupported format %q", normalizeFormat)
	}

	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	if normalizeOut == "" {
		_, err = os.Stdout.Write(out)

		return err
	}

	if err := os.WriteFile(normalizeOut, out, 0o644); err != nil { //nolint:gosec // document file
		return fmt.Errorf("writing output file: %w", err)
	}

	log.WithField("out", normalizeOut).Info("History normalized")

	return nil
}
