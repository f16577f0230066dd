package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Mark stored items that are no longer listed",
	Long: `Reconcile the local store against the live catalog.

Every listing page is scraped first; a stored item whose identifier no
longer appears gets one confirmatory detail probe before its removal
column is marked. Marked rows stay in the store until 'cleanup' drops
them. A failed sweep changes nothing.`,
	Args: cobra.NoArgs,
	Run:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	s, err := newScraper(cfg)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to initialize scraper")
		os.Exit(1)
	}

	ctx, stop := signalContext()
	defer stop()

	marked, err := s.Check(ctx)
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("reconciliation failed")
		os.Exit(1)
	}

	fmt.Printf("Items marked as removed: %d\n", marked)
}
