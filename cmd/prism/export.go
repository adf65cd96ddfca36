package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"prismgw/prism/pkg/calllog/export"
	"prismgw/prism/pkg/calllog/storage"
	"prismgw/prism/pkg/cli"
	"prismgw/prism/pkg/config"
)

var exportFlags struct {
	format      string
	output      string
	start       string
	end         string
	models      []string
	providers   []string
	successOnly bool
	pretty      bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export call logs for offline analysis",
	Long: `Export call logs from the configured store to Parquet, CSV, or JSON.

Parquet output is suitable for DuckDB, Polars, and pandas. Timestamps
in filters use RFC3339.

Examples:
  # Export everything to Parquet
  prism export --format parquet --output calls.parquet

  # Export one week of gpt-4 calls to CSV
  prism export --format csv --output calls.csv \
    --start 2026-08-17T00:00:00Z --end 2026-08-24T00:00:00Z --model gpt-4

  # Export only successful calls as pretty JSON to stdout
  prism export --format json --success-only --pretty`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFlags.format, "format", "parquet", "output format: parquet, csv, json")
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportFlags.start, "start", "", "start time (RFC3339)")
	exportCmd.Flags().StringVar(&exportFlags.end, "end", "", "end time (RFC3339)")
	exportCmd.Flags().StringSliceVar(&exportFlags.models, "model", nil, "filter by model (repeatable)")
	exportCmd.Flags().StringSliceVar(&exportFlags.providers, "provider", nil, "filter by provider (repeatable)")
	exportCmd.Flags().BoolVar(&exportFlags.successOnly, "success-only", false, "export only successful calls")
	exportCmd.Flags().BoolVar(&exportFlags.pretty, "pretty", false, "indent JSON output")
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	storeConfig := storage.DefaultSQLiteConfig()
	storeConfig.Path = cfg.Logging.DBPath
	store, err := storage.NewSQLiteStorage(storeConfig)
	if err != nil {
		return cli.NewCommandError("export", fmt.Errorf("failed to open call log store: %w", err))
	}
	defer store.Close()

	filters := &export.Filters{
		Models:      exportFlags.models,
		Providers:   exportFlags.providers,
		SuccessOnly: exportFlags.successOnly,
	}
	if exportFlags.start != "" {
		start, err := time.Parse(time.RFC3339, exportFlags.start)
		if err != nil {
			return fmt.Errorf("invalid start time: %w", err)
		}
		filters.StartTime = &start
	}
	if exportFlags.end != "" {
		end, err := time.Parse(time.RFC3339, exportFlags.end)
		if err != nil {
			return fmt.Errorf("invalid end time: %w", err)
		}
		filters.EndTime = &end
	}

	logs, err := export.Fetch(cmd.Context(), store, filters)
	if err != nil {
		return cli.NewCommandError("export", fmt.Errorf("query failed: %w", err))
	}

	out := os.Stdout
	if exportFlags.output != "" {
		out, err = os.Create(exportFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer out.Close()
	}

	switch exportFlags.format {
	case "parquet":
		err = export.NewParquetExporter().Export(cmd.Context(), logs, out)
	case "csv":
		err = export.NewCSVExporter(true).Export(cmd.Context(), logs, out)
	case "json":
		err = export.NewJSONExporter(exportFlags.pretty).Export(cmd.Context(), logs, out)
	default:
		return fmt.Errorf("unsupported format: %s (supported: parquet, csv, json)", exportFlags.format)
	}
	if err != nil {
		return cli.NewCommandError("export", err)
	}

	if exportFlags.output != "" {
		fmt.Printf("✓ Exported %d call logs to %s\n", len(logs), exportFlags.output)
	}
	return nil
}
