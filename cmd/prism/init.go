package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initFlags struct {
	force bool
}

const configTemplate = `# Prism gateway configuration.
# API keys use ${VAR} expansion from the environment.

server:
  host: "0.0.0.0"
  port: 8000
  read_timeout: 60s
  shutdown_timeout: 30s

# Outbound proxy for upstream calls (optional).
# When both are set, the SOCKS proxy takes precedence.
proxy:
  # http_proxy: "http://proxy.example.com:8080"
  # socks_proxy: "socks5://proxy.example.com:1080"
  timeout: 30s

providers:
  openai:
    api_key: "${OPENAI_API_KEY}"
    # base_url: "https://api.openai.com/v1"
  anthropic:
    api_key: "${ANTHROPIC_API_KEY}"
    # base_url: "https://api.anthropic.com"

logging:
  enabled: true
  level: info
  format: json
  db_path: "./prism_logs.db"
  async_buffer: 1000
  write_timeout: 5s

analysis:
  enable_cache_estimation: true
  enable_performance_tracking: true
  cache_estimation_accuracy_threshold: 0.1

retention:
  days: 90
  prune_schedule: "0 3 * * *"
  archive_before_delete: false
  archive_path: "data/archives/"

metrics:
  enabled: true
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a starter configuration file with commented defaults.

The file is written to the path given by --config (default: config.yaml).
An existing file is never overwritten unless --force is given.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgFile); err == nil && !initFlags.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
	}

	if err := os.WriteFile(cfgFile, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("✓ Wrote %s\n", cfgFile)
	fmt.Println("Set OPENAI_API_KEY and ANTHROPIC_API_KEY, then start with: prism run")
	return nil
}
