package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
)

var assumeYes bool

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop rows marked as removed from the store",
	Long: `Permanently drop every row that 'check' marked as removed and rewrite
the store. Their raw documents and image bundles become orphans; run
'vacuum' afterwards to delete those too.`,
	Args: cobra.NoArgs,
	Run:  runCleanup,
}

// vacuumCmd represents the vacuum command
var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Delete raw documents and image bundles no store row references",
	Long: `Delete every raw JSON document and image bundle that no current store
row references. Rows still marked as removed keep their files; run
'cleanup' first to drop the rows.`,
	Args: cobra.NoArgs,
	Run:  runVacuum,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(vacuumCmd)

	cleanupCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	vacuumCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
}

// confirm asks the user to type "ok" before a destructive operation.
func confirm(what string) bool {
	if assumeYes {
		return true
	}
	fmt.Printf("%s This cannot be undone. Type 'ok' to continue: ", what)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(input) == "ok"
}

func runCleanup(cmd *cobra.Command, args []string) {
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

	if !confirm("All rows marked as removed will be deleted.") {
		fmt.Println("Aborted.")
		return
	}

	dropped, err := s.CleanupRows()
	if err != nil {
		logger.GetLogger().WithError(err).Error("cleanup failed")
		os.Exit(1)
	}
	fmt.Printf("Rows dropped: %d\n", dropped)
}

func runVacuum(cmd *cobra.Command, args []string) {
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

	if !confirm("All files no store row references will be deleted.") {
		fmt.Println("Aborted.")
		return
	}

	docs, bundles, err := s.VacuumFiles()
	if err != nil {
		logger.GetLogger().WithError(err).Error("vacuum failed")
		os.Exit(1)
	}
	fmt.Printf("Documents deleted: %d, image folders deleted: %d\n", docs, bundles)
}
