// Package cli implements the serp command line interface.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	serp "github.com/serpkit/serp-go"
	"github.com/serpkit/serp-go/internal/config"
	"github.com/serpkit/serp-go/serptest"
)

var (
	baseURL    string
	timeout    time.Duration
	maxRetries int
	debug      bool
	mock       bool
)

var rootCmd = &cobra.Command{
	Use:   "serp",
	Short: "Google search results from the command line",
	Long: `serp queries the search API and prints typed results.

The API key is read from SERP_API_KEY or a .env file. With --mock the
command talks to a local in-process fake instead and needs no key.`,
	Version: serp.Version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "override the API endpoint")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-request timeout (default 30s)")
	rootCmd.PersistentFlags().IntVar(&maxRetries, "retries", -1, "retries after the first attempt (default 3)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&mock, "mock", false, "run against an in-process fake API")
}

// newClient wires a client from the environment and flags. The returned
// cleanup stops the mock server and flushes the logger.
func newClient() (*serp.Client, *zap.Logger, func()) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	logger, err := config.NewLogger(config.LogConfig{Level: level})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	clientCfg := serp.Config{
		APIKey:  cfg.API.Key,
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Retry: serp.RetryPolicy{
			MaxRetries:        cfg.Retry.MaxRetries,
			BaseDelay:         cfg.Retry.BaseDelay,
			MaxDelay:          cfg.Retry.MaxDelay,
			BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		},
		CacheTTL:       cfg.Cache.TTL,
		QuotaPerMinute: cfg.Quota.PerMinute,
	}

	stopMock := func() {}
	if mock {
		srv := serptest.NewServer()
		clientCfg.APIKey = "mock-key-0000"
		clientCfg.BaseURL = srv.URL()
		stopMock = srv.Close
	}
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	if timeout > 0 {
		clientCfg.Timeout = timeout
	}
	if maxRetries >= 0 {
		clientCfg.Retry.MaxRetries = maxRetries
	}

	client, err := serp.New(clientCfg, logger)
	if err != nil {
		stopMock()
		fmt.Fprintln(os.Stderr, "client:", err)
		os.Exit(1)
	}

	cleanup := func() {
		client.Close()
		stopMock()
		_ = logger.Sync()
	}
	return client, logger, cleanup
}
