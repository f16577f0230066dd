// Package storage owns the cached artifacts of the pipeline: raw per-item
// JSON documents and per-item image bundles. The orchestrator writes them,
// the garbage collector deletes them, nothing else touches them.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nik-panekin/s-reality-scraper/pkg/config"
	"github.com/nik-panekin/s-reality-scraper/pkg/errors"
	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
	"github.com/nik-panekin/s-reality-scraper/pkg/sreality"
)

// ImageSource downloads one image by href. Satisfied by the sreality client.
type ImageSource interface {
	DownloadImage(href string) ([]byte, error)
}

// Manager handles the raw-document and image-bundle stores.
type Manager struct {
	jsonDir  string
	imageDir string
	baseURL  string
	cropTop  int
	cropLeft int
	source   ImageSource
	logger   logger.Logger
}

// NewManager creates the artifact store manager, creating both directories
// if needed.
func NewManager(cfg *config.Config, source ImageSource, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(cfg.Storage.JSONDir, 0755); err != nil {
		return nil, fmt.Errorf("can't create directory for JSON data: %w", err)
	}
	if err := os.MkdirAll(cfg.Storage.ImageDir, 0755); err != nil {
		return nil, fmt.Errorf("can't create directory for images: %w", err)
	}

	return &Manager{
		jsonDir:  cfg.Storage.JSONDir,
		imageDir: cfg.Storage.ImageDir,
		baseURL:  cfg.Catalog.BaseURL,
		cropTop:  cfg.Storage.CropTop,
		cropLeft: cfg.Storage.CropLeft,
		source:   source,
		logger:   log,
	}, nil
}

// SaveRawDocument persists the unmodified detail payload under the item's
// identifier, for audit and replay.
func (m *Manager) SaveRawDocument(hashID int64, payload []byte) error {
	path := m.rawDocumentPath(hashID)
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't write to file %s: %v", path, err),
		}
	}
	return nil
}

// SaveEstateImages downloads, crops and stores the item's image bundle under
// the directory derived from its canonical link. With useCache set, images
// already on disk are not downloaded again. A failed image does not stop the
// remaining ones, but makes the bundle save fail.
func (m *Manager) SaveEstateImages(estate *sreality.Estate, hashID int64, link string, useCache bool) error {
	bundleDir := m.ImageBundleDir(link)
	if err := os.MkdirAll(bundleDir, 0755); err != nil {
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't create images folder %s: %v", bundleDir, err),
		}
	}

	var images []sreality.Image
	if estate.Embedded != nil {
		images = estate.Embedded.Images
	}

	var failed int
	for index, image := range images {
		href := image.Links.Self.Href
		filename := fmt.Sprintf("%d_%03d.jpg", hashID, index)
		path := filepath.Join(bundleDir, filename)

		if useCache {
			if _, err := os.Stat(path); err == nil {
				m.logger.InfoWithFields("image cache found", map[string]interface{}{
					"file": filename,
				})
				continue
			}
		}

		m.logger.InfoWithFields("saving image", map[string]interface{}{
			"href": href,
			"file": filename,
		})

		if err := m.fetchAndCrop(href, path); err != nil {
			m.logger.WithError(err).WithField("file", filename).Error("image save failed")
			failed++
		}
	}

	if failed > 0 {
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("%d of %d images failed for item %d", failed, len(images), hashID),
		}
	}
	return nil
}

// fetchAndCrop downloads one image, removes the watermark strip and writes
// the result atomically.
func (m *Manager) fetchAndCrop(href, path string) error {
	data, err := m.source.DownloadImage(href)
	if err != nil {
		return err
	}

	cropped, err := cropWatermark(data, m.cropTop, m.cropLeft)
	if err != nil {
		return err
	}

	return saveJPEG(cropped, path)
}

// ImageBundleDir converts a canonical item link to its image bundle
// directory: the base URL is stripped and path separators become
// underscores.
func (m *Manager) ImageBundleDir(link string) string {
	name := strings.ReplaceAll(strings.TrimPrefix(link, m.baseURL), "/", "_")
	return filepath.Join(m.imageDir, name)
}

// rawDocumentPath names the raw document file for an item.
func (m *Manager) rawDocumentPath(hashID int64) string {
	return filepath.Join(m.jsonDir, fmt.Sprintf("%d.json", hashID))
}

// ListRawDocuments returns the paths of all stored raw documents.
func (m *Manager) ListRawDocuments() ([]string, error) {
	return filepath.Glob(filepath.Join(m.jsonDir, "*.json"))
}

// ListImageBundles returns the paths of all stored image bundle directories.
func (m *Manager) ListImageBundles() ([]string, error) {
	entries, err := os.ReadDir(m.imageDir)
	if err != nil {
		return nil, fmt.Errorf("can't read image directory: %w", err)
	}
	bundles := make([]string, 0, len(entries))
	for _, entry := range entries {
		bundles = append(bundles, filepath.Join(m.imageDir, entry.Name()))
	}
	return bundles, nil
}

// HashIDFromRawName parses the item identifier from a raw document filename.
func HashIDFromRawName(path string) (int64, error) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	hashID, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("file %s carries no identifier: %w", path, err)
	}
	return hashID, nil
}

// RemoveRawDocument deletes one raw document file.
func (m *Manager) RemoveRawDocument(path string) error {
	return os.Remove(path)
}

// RemoveImageBundle deletes one image bundle directory recursively.
func (m *Manager) RemoveImageBundle(path string) error {
	return os.RemoveAll(path)
}
