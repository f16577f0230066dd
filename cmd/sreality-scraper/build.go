package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
	"github.com/nik-panekin/s-reality-scraper/pkg/scraper"
)

var (
	// Build command flags
	restartRun bool
	updateRun  bool
	todayOnly  bool
	useCache   bool
	fromPage   int
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Scrape the catalog into the local store",
	Long: `Scrape the flat-sale catalog page by page into the local CSV store,
saving the raw JSON document and a cropped image bundle for every new item.

An interrupted run resumes from the last fully processed page. Items
already present in the store are skipped, so repeated runs only add what
is new.`,
	Example: `  # Resume scraping from the checkpoint
  sreality-scraper build

  # Start over, backing up the current store
  sreality-scraper build --restart

  # Rescan the whole catalog for new items
  sreality-scraper build --update

  # Only items added today, reusing cached images
  sreality-scraper build --today --use-cache`,
	Args: cobra.NoArgs,
	Run:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&restartRun, "restart", false, "back the store up, clear progress and start over")
	buildCmd.Flags().BoolVar(&updateRun, "update", false, "rescan from the first page, skipping stored items")
	buildCmd.Flags().BoolVar(&todayOnly, "today", false, "restrict the listing to items added today")
	buildCmd.Flags().BoolVar(&useCache, "use-cache", false, "skip downloading images already on disk")
	buildCmd.Flags().IntVar(&fromPage, "from-page", 0, "force the starting page (overrides the checkpoint)")
}

func runBuild(cmd *cobra.Command, args []string) {
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

	err = s.Build(ctx, scraper.BuildOptions{
		Restart:  restartRun,
		Update:   updateRun,
		Today:    todayOnly,
		UseCache: useCache,
		FromPage: fromPage,
	})
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("scraping failed")
		os.Exit(1)
	}
}
