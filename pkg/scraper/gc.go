package scraper

import (
	"github.com/nik-panekin/s-reality-scraper/pkg/storage"
	"github.com/nik-panekin/s-reality-scraper/pkg/store"
)

// CleanupRows drops every row marked as removed and rewrites the store.
// Returns the number of rows dropped.
func (s *Scraper) CleanupRows() (int, error) {
	records, err := s.store.LoadAll()
	if err != nil {
		return 0, err
	}

	kept := records[:0]
	dropped := 0
	for _, rec := range records {
		if rec.IsRemoved() {
			dropped++
			continue
		}
		kept = append(kept, rec)
	}

	if dropped > 0 {
		if err := s.store.Rewrite(kept); err != nil {
			return 0, err
		}
	}

	s.logger.WithField("dropped", dropped).Info("removed rows cleaned up")
	return dropped, nil
}

// VacuumFiles deletes raw documents and image bundles that no store row
// references anymore. Rows still marked as removed keep their artifacts;
// run CleanupRows first to drop them. A single failed deletion is logged
// and does not stop the sweep.
func (s *Scraper) VacuumFiles() (docs, bundles int, err error) {
	records, err := s.store.LoadAll()
	if err != nil {
		return 0, 0, err
	}

	liveIDs := store.HashIDSet(records)
	liveBundles := make(map[string]struct{}, len(records))
	for _, rec := range records {
		liveBundles[s.artifacts.ImageBundleDir(rec[store.ColLink])] = struct{}{}
	}

	rawDocs, err := s.artifacts.ListRawDocuments()
	if err != nil {
		return 0, 0, err
	}
	for _, path := range rawDocs {
		hashID, err := storage.HashIDFromRawName(path)
		if err == nil {
			if _, ok := liveIDs[hashID]; ok {
				continue
			}
		}
		if err := s.artifacts.RemoveRawDocument(path); err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("can't delete file")
			continue
		}
		s.logger.WithField("path", path).Info("orphan document deleted")
		docs++
	}

	allBundles, err := s.artifacts.ListImageBundles()
	if err != nil {
		return docs, 0, err
	}
	for _, path := range allBundles {
		if _, ok := liveBundles[path]; ok {
			continue
		}
		if err := s.artifacts.RemoveImageBundle(path); err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("can't delete folder")
			continue
		}
		s.logger.WithField("path", path).Info("orphan image folder deleted")
		bundles++
	}

	s.logger.InfoWithFields("vacuum complete", map[string]interface{}{
		"documents": docs,
		"bundles":   bundles,
	})
	return docs, bundles, nil
}
