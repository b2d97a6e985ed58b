package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/trendoor/pkg/history"
)

var (
	queryDocument    string
	querySuite       string
	queryMeasurement string
	queryFormat      string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print a measurement series from a history document",
	RunE:  runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVar(&queryDocument, "document", "",
		"Name of the history document")
	queryCmd.Flags().StringVar(&querySuite, "suite", history.DefaultSuite,
		"Suite to query")
	queryCmd.Flags().StringVar(&queryMeasurement, "measurement", "",
		"Measurement name")
	queryCmd.Flags().StringVar(&queryFormat, "format", "table",
		"Output format (table, json)")

	_ = queryCmd.MarkFlagRequired("document")
	_ = queryCmd.MarkFlagRequired("measurement")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Stop() }()

	points, err := st.Query(
		cmd.Context(), queryDocument, querySuite, queryMeasurement,
	)
	if err != nil {
		return fmt.Errorf("querying series: %w", err)
	}

	switch queryFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(points)
	case "table":
		return printPointsTable(points)
	default:
		return fmt.Errorf("unsupported format %q", queryFormat)
	}
}

func printPointsTable(points []history.Point) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "DATE\tVALUE\tRANGE\tUNIT")

	for _, p := range points {
		ts := time.UnixMilli(p.Date).UTC().Format(time.RFC3339)
		fmt.Fprintf(w, "%s\t%g\t%s\t%s\n", ts, p.Value, p.Range, p.Unit)
	}

	return w.Flush()
}
