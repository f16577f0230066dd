package scraper

import (
	"context"

	"github.com/nik-panekin/s-reality-scraper/pkg/sreality"
	"github.com/nik-panekin/s-reality-scraper/pkg/store"
)

// Check reconciles the store against the live catalog. Every listing page is
// scraped first; records whose identifier no longer appears get a
// confirmatory per-item probe before their removal column is marked. The
// store is rewritten once, at the end — a failed listing sweep mutates
// nothing.
func (s *Scraper) Check(ctx context.Context) (int, error) {
	if _, err := s.rotator.Rotate(ctx); err != nil {
		return 0, err
	}

	live, err := s.scrapeHashIDs(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.WithField("count", len(live)).Info("live catalog scraped")

	records, err := s.store.LoadAll()
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if rec.IsRemoved() {
			continue
		}

		hashID, err := rec.HashID()
		if err != nil {
			s.logger.WithError(err).Warn("record carries a malformed link")
			continue
		}
		if _, ok := live[hashID]; ok {
			continue
		}
		if s.itemStillExists(hashID) {
			continue
		}

		s.logger.WithField("hash_id", hashID).Info("item no longer listed")
		rec[store.ColRemovedAt] = store.RemovedMark
		marked++
	}

	if marked > 0 {
		if err := s.store.Rewrite(records); err != nil {
			return 0, err
		}
	}

	s.logger.WithField("marked", marked).Info("reconciliation complete")
	return marked, nil
}

// scrapeHashIDs sweeps every listing page and collects the identifiers of
// all currently listed items. Any page failure aborts the sweep.
func (s *Scraper) scrapeHashIDs(ctx context.Context) (map[int64]struct{}, error) {
	pageCount, err := s.pageCount(false)
	if err != nil {
		return nil, err
	}

	live := make(map[int64]struct{})
	pagesSinceRotate := 0
	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if page != 1 {
			pagesSinceRotate++
			if pagesSinceRotate >= s.rotateEvery() {
				if _, err := s.rotator.Rotate(ctx); err != nil {
					return nil, err
				}
				pagesSinceRotate = 0
			}
		}

		s.logger.WithField("page", page).Info("listing page")
		listing, err := s.client.ListCategory(page, s.cfg.Catalog.ItemsPerPage, false)
		if err != nil {
			return nil, err
		}
		for _, estate := range listing.Embedded.Estates {
			live[estate.HashID] = struct{}{}
		}
	}

	return live, nil
}

// itemStillExists probes one item's detail endpoint. A fetchable, parseable
// document means the item is still live even though the listing sweep
// missed it.
func (s *Scraper) itemStillExists(hashID int64) bool {
	raw, err := s.client.FetchEstate(hashID)
	if err != nil {
		return false
	}
	if _, err := sreality.ParseEstate(raw); err != nil {
		return false
	}
	return true
}
