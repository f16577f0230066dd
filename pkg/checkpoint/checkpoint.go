// Package checkpoint persists the last fully processed page number, the
// resumability anchor of the ingestion pipeline.
package checkpoint

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nik-panekin/s-reality-scraper/pkg/errors"
	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
)

// Manager handles checkpoint operations. The on-disk format is a single
// decimal integer, nothing else.
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a checkpoint manager over the given file path.
func NewManager(path string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{path: path, logger: log}
}

// Save overwrites the checkpoint with the given page number. The write is
// atomic so an interrupt never leaves a torn checkpoint behind.
func (m *Manager) Save(page int) error {
	tempPath := m.path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(strconv.Itoa(page)), 0644); err != nil {
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't save last processed page: %v", err),
		}
	}
	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't save last processed page: %v", err),
		}
	}
	return nil
}

// Load returns the last processed page, or 0 when no checkpoint exists.
// Unreadable or corrupted content is downgraded to "no checkpoint" with a
// warning; it is never fatal.
func (m *Manager) Load() int {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.WithError(err).Warn("can't load last processed page from file")
		}
		return 0
	}

	page, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		m.logger.WarnWithFields("checkpoint file is corrupted", map[string]interface{}{
			"path":  m.path,
			"error": err.Error(),
		})
		return 0
	}

	return page
}

// Clear removes the checkpoint file; an absent file is not an error.
func (m *Manager) Clear() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't delete checkpoint file: %v", err),
		}
	}
	return nil
}

// Exists checks if a checkpoint file is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}
