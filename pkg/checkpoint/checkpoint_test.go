package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
)

func TestCheckpointManager(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "last_processed_page.txt")
	mgr := NewManager(path, logger.NewTestLogger())

	t.Run("LoadWithoutFile", func(t *testing.T) {
		if page := mgr.Load(); page != 0 {
			t.Errorf("Expected page 0 without a checkpoint, got %d", page)
		}
		if mgr.Exists() {
			t.Error("Expected no checkpoint file")
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		if err := mgr.Save(17); err != nil {
			t.Fatalf("Failed to save checkpoint: %v", err)
		}
		if !mgr.Exists() {
			t.Error("Expected checkpoint file to exist")
		}
		if page := mgr.Load(); page != 17 {
			t.Errorf("Expected page 17, got %d", page)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := mgr.Save(18); err != nil {
			t.Fatalf("Failed to save checkpoint: %v", err)
		}
		if page := mgr.Load(); page != 18 {
			t.Errorf("Expected page 18, got %d", page)
		}
	})

	t.Run("CorruptedFile", func(t *testing.T) {
		if err := os.WriteFile(path, []byte("not a number"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
		if page := mgr.Load(); page != 0 {
			t.Errorf("Expected page 0 for a corrupted checkpoint, got %d", page)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		if err := mgr.Save(5); err != nil {
			t.Fatalf("Failed to save checkpoint: %v", err)
		}
		if err := mgr.Clear(); err != nil {
			t.Fatalf("Failed to clear checkpoint: %v", err)
		}
		if mgr.Exists() {
			t.Error("Expected checkpoint file to be gone")
		}
		// Clearing again must not fail
		if err := mgr.Clear(); err != nil {
			t.Errorf("Clearing an absent checkpoint failed: %v", err)
		}
	})

	t.Run("WhitespaceTolerated", func(t *testing.T) {
		if err := os.WriteFile(path, []byte(" 42\n"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
		if page := mgr.Load(); page != 42 {
			t.Errorf("Expected page 42, got %d", page)
		}
	})
}
