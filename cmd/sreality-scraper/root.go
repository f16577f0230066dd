// Command sreality-scraper scrapes the sreality.cz flat-sale catalog into a
// local CSV store with raw JSON documents and watermark-cropped image
// bundles, resumable across runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nik-panekin/s-reality-scraper/pkg/auth"
	"github.com/nik-panekin/s-reality-scraper/pkg/config"
	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
	"github.com/nik-panekin/s-reality-scraper/pkg/scraper"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sreality-scraper",
	Short: "A resumable scraper for the sreality.cz flat-sale catalog",
	Long: `sreality-scraper collects flat-sale listings from sreality.cz into a
local CSV table, keeping the raw JSON document and a watermark-cropped
image bundle for every item.

Features:
  - Resumable scraping with a per-page checkpoint
  - Deduplication against already-stored items
  - Outbound identity rotation through TOR between pages
  - Reconciliation of the store against the live catalog
  - Garbage collection of removed rows and orphaned files`,
	Version: version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.sreality-scraper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`sreality-scraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration, applies global flag overrides and
// initializes the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// newScraper assembles the pipeline, pulling the TOR control password from
// the secret store when the config does not carry one.
func newScraper(cfg *config.Config) (*scraper.Scraper, error) {
	if cfg.Tor.Enabled && cfg.Tor.ControlPassword == "" {
		if store, err := auth.NewKeyringStore(); err == nil {
			password, err := store.Retrieve()
			if err == nil {
				cfg.Tor.ControlPassword = password
			} else if !errors.Is(err, auth.ErrNotFound) {
				logger.GetLogger().WithError(err).Warn("can't read control password from keyring")
			}
		}
	}
	return scraper.New(cfg, logger.GetLogger())
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, so a run
// stops cleanly between items with its progress saved.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
