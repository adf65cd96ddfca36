package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "prism",
	Short: "Prism - transparent LLM API gateway",
	Long: `Prism is a transparent gateway for LLM completion APIs.

It proxies OpenAI- and Anthropic-style completion requests to the
configured upstream providers, providing:
  - Dialect translation between OpenAI and Anthropic APIs
  - Streaming passthrough with per-token timing analysis
  - Token counting, cost estimation, and cache-reuse estimation
  - A persistent call log with estimated vs actual comparisons
  - Prometheus metrics and Parquet/CSV/JSON export`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
