package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prismgw/prism/pkg/calllog"
	"prismgw/prism/pkg/calllog/storage"
	"prismgw/prism/pkg/cli"
	"prismgw/prism/pkg/config"
)

var statsFlags struct {
	days     int
	model    string
	provider string
	limit    int
	format   string
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show call log statistics",
	Long: `Show call log statistics from the configured store.

Reports store totals, streaming performance aggregates, and how well
cache-reuse estimates matched the actual cache usage reported by
upstream providers.

Examples:
  # Last 7 days across all models
  prism stats

  # One model over 30 days, as JSON
  prism stats --days 30 --model gpt-4 --format json`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().IntVar(&statsFlags.days, "days", 7, "aggregation window in days")
	statsCmd.Flags().StringVar(&statsFlags.model, "model", "", "filter by model")
	statsCmd.Flags().StringVar(&statsFlags.provider, "provider", "", "filter by provider")
	statsCmd.Flags().IntVar(&statsFlags.limit, "limit", 10, "recent call log entries to show")
	statsCmd.Flags().StringVar(&statsFlags.format, "format", "text", "output format: text, json")
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	storeConfig := storage.DefaultSQLiteConfig()
	storeConfig.Path = cfg.Logging.DBPath
	store, err := storage.NewSQLiteStorage(storeConfig)
	if err != nil {
		return cli.NewCommandError("stats", fmt.Errorf("failed to open call log store: %w", err))
	}
	defer store.Close()

	ctx := cmd.Context()

	dbStats, err := store.DatabaseStats(ctx)
	if err != nil {
		return cli.NewCommandError("stats", err)
	}
	perfStats, err := store.PerformanceStats(ctx, statsFlags.model, statsFlags.provider, statsFlags.days)
	if err != nil {
		return cli.NewCommandError("stats", err)
	}
	cacheStats, err := store.CacheAnalysisSummary(ctx, statsFlags.days, cfg.Analysis.CacheAccuracyThreshold)
	if err != nil {
		return cli.NewCommandError("stats", err)
	}
	recent, err := store.RecentLogs(ctx, statsFlags.limit)
	if err != nil {
		return cli.NewCommandError("stats", err)
	}

	if statsFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, map[string]interface{}{
			"database":       dbStats,
			"performance":    perfStats,
			"cache_analysis": cacheStats,
			"recent_logs":    recent,
		})
	}

	printStatsText(dbStats, perfStats, cacheStats, recent)
	return nil
}

func printStatsText(db *calllog.DatabaseStats, perf []*calllog.PerformanceStatsRow, cache *calllog.CacheAnalysisSummary, recent []*calllog.CallLog) {
	fmt.Println("Call Log Statistics")
	fmt.Println("===================")
	fmt.Printf("Total calls: %d\n", db.TotalCalls)
	fmt.Printf("Store size:  %d bytes\n", db.SizeBytes)
	fmt.Println()

	if len(db.CallsByProvider) > 0 {
		fmt.Println("By provider:")
		for provider, count := range db.CallsByProvider {
			fmt.Printf("  %s: %d\n", provider, count)
		}
		fmt.Println()
	}

	if len(db.TopModels) > 0 {
		fmt.Println("Top models:")
		for _, mc := range db.TopModels {
			fmt.Printf("  %s: %d\n", mc.Model, mc.Calls)
		}
		fmt.Println()
	}

	fmt.Printf("Streaming performance (last %d days):\n", statsFlags.days)
	if len(perf) == 0 {
		fmt.Println("  no streaming calls recorded")
	}
	for _, row := range perf {
		fmt.Printf("  %s %s %s: %d calls, ttft avg %.0f ms, tpot avg %.1f ms, %.1f tok/s, %d tokens, $%.4f\n",
			row.Date, row.Provider, row.Model, row.Calls, row.AvgTTFT, row.AvgTPOT, row.AvgTPS,
			row.TotalTokens, row.TotalCost)
	}
	fmt.Println()

	fmt.Printf("Cache estimation (last %d days):\n", cache.Days)
	if cache.TotalPredictions == 0 {
		fmt.Println("  no predictions with actuals recorded")
	} else {
		fmt.Printf("  predictions: %d, accurate: %d (%.1f%%)\n",
			cache.TotalPredictions, cache.AccuratePredictions, cache.AccuracyPercentage)
		fmt.Printf("  avg hit rate: estimated %.2f, actual %.2f, error %.3f\n",
			cache.AvgEstimatedHitRate, cache.AvgActualHitRate, cache.AvgPredictionError)
	}
	fmt.Println()

	if len(recent) > 0 {
		fmt.Printf("Recent calls (%d):\n", len(recent))
		for _, log := range recent {
			status := "ok"
			if !log.Success {
				status = "failed"
			}
			fmt.Printf("  %s %s/%s %s %dms\n",
				log.Timestamp.Format("2006-01-02 15:04:05"), log.Provider, log.Model, status, log.TotalLatencyMs)
		}
	}
}
