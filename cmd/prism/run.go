package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"prismgw/prism/pkg/calllog/recorder"
	"prismgw/prism/pkg/calllog/retention"
	"prismgw/prism/pkg/calllog/storage"
	"prismgw/prism/pkg/cli"
	"prismgw/prism/pkg/config"
	"prismgw/prism/pkg/gateway"
	"prismgw/prism/pkg/netproxy"
	"prismgw/prism/pkg/providerfactory"
	"prismgw/prism/pkg/providers"
	"prismgw/prism/pkg/server"
	"prismgw/prism/pkg/telemetry/metrics"
)

var runFlags struct {
	port     int
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"server"},
	Short:   "Start the Prism gateway server",
	Long: `Start the Prism gateway server with the specified configuration.

The server listens on the configured address and forwards completion
requests to the configured upstream providers, translating dialects
and recording call logs along the way.

Examples:
  # Start with default config
  prism run

  # Start with custom config
  prism run --config /etc/prism/config.yaml

  # Override the listen port
  prism run --port 9000

  # Validate config without starting the server
  prism run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runFlags.port, "port", "p", 0, "override listen port")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.port != 0 {
		cfg.Server.Port = runFlags.port
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	setupLogging(cfg)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Prism v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Hot-reload keeps the active config current for operational knobs.
	// Server address and provider changes still require a restart.
	watcher, err := config.NewWatcher(cfgFile, func(next *config.Config) {
		slog.Info("configuration reloaded, restart to apply server or provider changes")
	})
	if err != nil {
		slog.Warn("config watcher unavailable", "error", err)
	} else {
		defer watcher.Close()
	}

	// Outbound proxy for upstream calls
	proxyManager := netproxy.NewManager(cfg.Proxy)
	proxyEnabled := cfg.Proxy.HTTPProxy != "" || cfg.Proxy.SOCKSProxy != ""
	if proxyEnabled {
		fmt.Printf("✓ Outbound proxy: %s\n", proxyManager.Info().ActiveProxy)
	}

	// Upstream providers
	slog.Info("initializing provider manager")
	manager := providerfactory.NewManager()
	defer manager.Close()

	configs := providerConfigs(cfg)
	if len(configs) > 0 {
		if err := manager.LoadFromConfig(configs, proxyManager); err != nil {
			slog.Warn("some providers failed to initialize", "error", err)
		}
	} else {
		slog.Warn("no providers configured")
	}
	fmt.Printf("✓ Providers initialized (%d providers)\n", manager.ProviderCount())

	// Metrics
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Metrics, nil)
	}

	opts := gateway.Options{
		Manager:      manager,
		Metrics:      collector,
		Analysis:     cfg.Analysis,
		ProxyEnabled: proxyEnabled,
	}
	if proxyEnabled {
		opts.ProxyUsed = proxyManager.Info().ActiveProxy
	}

	// Call log store, recorder, and retention
	if cfg.Logging.Enabled {
		slog.Info("initializing call log store", "db_path", cfg.Logging.DBPath)

		storeConfig := storage.DefaultSQLiteConfig()
		storeConfig.Path = cfg.Logging.DBPath
		store, err := storage.NewSQLiteStorage(storeConfig)
		if err != nil {
			return fmt.Errorf("failed to create SQLite storage: %w", err)
		}
		defer store.Close()

		rec := recorder.NewRecorder(store, &recorder.Config{
			Enabled:      true,
			AsyncBuffer:  cfg.Logging.AsyncBuffer,
			WriteTimeout: cfg.Logging.WriteTimeout,
		})
		defer rec.Close()

		opts.Recorder = rec
		opts.Storage = store

		if collector != nil {
			go watchRecorderQueue(cmd.Context(), collector, rec)
		}

		if cfg.Retention.PruneSchedule != "" {
			pruner := retention.NewPruner(store, &retention.Config{
				RetentionDays:       cfg.Retention.Days,
				PruneSchedule:       cfg.Retention.PruneSchedule,
				MaxRecords:          cfg.Retention.MaxRecords,
				ArchiveBeforeDelete: cfg.Retention.ArchiveBeforeDelete,
				ArchivePath:         cfg.Retention.ArchivePath,
			})
			if err := pruner.Start(context.Background()); err != nil {
				slog.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer pruner.Stop()
				if next := pruner.NextPruning(); next != nil {
					slog.Debug("retention scheduler started", "next_pruning", next)
				}
			}
		}

		fmt.Println("✓ Call log store initialized")
	}

	gw := gateway.New(opts)
	srv := server.New(&cfg.Server, gw, collector)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", addr)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", addr)
	if collector != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", addr)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until ctx cancellation or a shutdown signal.
	ctx := cli.ShutdownContext()
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

// setupLogging installs the default slog logger from the logging config.
func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// providerConfigs converts the keyed provider configuration into the
// slice form the factory consumes.
func providerConfigs(cfg *config.Config) []providers.ProviderConfig {
	out := make([]providers.ProviderConfig, 0, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		out = append(out, providers.ProviderConfig{
			Name:       name,
			Type:       pc.Type,
			BaseURL:    pc.BaseURL,
			APIKey:     pc.APIKey,
			Timeout:    pc.Timeout,
			MaxRetries: pc.MaxRetries,
		})
	}
	return out
}

// watchRecorderQueue mirrors recorder queue depth and drop counts into
// the metrics collector.
func watchRecorderQueue(ctx context.Context, collector *metrics.Collector, rec *recorder.Recorder) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	var lastDropped int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			collector.UpdateRecorderQueueDepth(rec.QueueDepth())
			for dropped := rec.Dropped(); lastDropped < dropped; lastDropped++ {
				collector.RecordRecorderDrop()
			}
		}
	}
}
