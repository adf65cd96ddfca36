package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"prismgw/prism/pkg/cli"
	"prismgw/prism/pkg/config"
	"prismgw/prism/pkg/netproxy"
	"prismgw/prism/pkg/providerfactory"
)

var testFlags struct {
	provider string
	testURL  string
	send     bool
	timeout  time.Duration
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test proxy and provider connectivity",
	Long: `Test outbound proxy connectivity and upstream provider health.

Each configured provider is probed with a lightweight health check.
With --send, a minimal completion request is sent through the full
request path instead, which verifies API keys and dialect handling.

Examples:
  # Test everything in the config
  prism test

  # Test a single provider
  prism test --provider openai

  # Send a real completion request through each provider
  prism test --send`,
	RunE: runConnectivityTest,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringVar(&testFlags.provider, "provider", "", "test only the named provider")
	testCmd.Flags().StringVar(&testFlags.testURL, "url", "", "proxy connectivity test URL")
	testCmd.Flags().BoolVar(&testFlags.send, "send", false, "send a minimal completion request instead of a health probe")
	testCmd.Flags().DurationVar(&testFlags.timeout, "timeout", 30*time.Second, "per-test timeout")
}

func runConnectivityTest(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	proxyManager := netproxy.NewManager(cfg.Proxy)

	ctx, cancel := context.WithTimeout(cmd.Context(), testFlags.timeout)
	defer cancel()

	// Proxy connectivity first; provider tests ride the same transport.
	fmt.Printf("Testing connectivity via %s...\n", proxyManager.Info().ActiveProxy)
	result := proxyManager.TestConnectivity(ctx, testFlags.testURL)
	if result.Success {
		fmt.Printf("✓ Proxy reachable (%d, %.0f ms)\n", result.StatusCode, result.ResponseTimeMs)
	} else {
		fmt.Printf("✗ Proxy unreachable: %s\n", result.Message)
		return cli.NewCommandError("test", fmt.Errorf("proxy connectivity failed"))
	}

	manager := providerfactory.NewManager()
	defer manager.Close()

	configs := providerConfigs(cfg)
	if testFlags.provider != "" {
		filtered := configs[:0]
		for _, pc := range configs {
			if pc.Name == testFlags.provider {
				filtered = append(filtered, pc)
			}
		}
		configs = filtered
		if len(configs) == 0 {
			return fmt.Errorf("provider %q not found in config", testFlags.provider)
		}
	}
	if len(configs) == 0 {
		return fmt.Errorf("no providers configured")
	}

	if err := manager.LoadFromConfig(configs, proxyManager); err != nil {
		fmt.Printf("✗ Provider initialization: %v\n", err)
	}

	failures := 0
	for _, p := range manager.All() {
		testCtx, testCancel := context.WithTimeout(cmd.Context(), testFlags.timeout)

		var err error
		if testFlags.send {
			start := time.Now()
			var status int
			if call, sendErr := p.Send(testCtx, p.TestBody()); sendErr != nil {
				err = sendErr
			} else {
				status = call.StatusCode
			}
			if err == nil {
				fmt.Printf("✓ %s: completion ok (%d, %s)\n", p.GetName(), status, time.Since(start).Round(time.Millisecond))
			}
		} else {
			if err = p.HealthCheck(testCtx); err == nil {
				fmt.Printf("✓ %s: healthy\n", p.GetName())
			}
		}
		if err != nil {
			fmt.Printf("✗ %s: %v\n", p.GetName(), err)
			failures++
		}
		testCancel()
	}

	if failures > 0 {
		return cli.NewCommandError("test", fmt.Errorf("%d provider(s) failed", failures))
	}
	return nil
}
