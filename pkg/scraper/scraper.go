// Package scraper drives the ingestion pipeline end to end: page listing,
// per-item fetch, artifact persistence, transformation and the tabular
// store, with checkpoint-based resumability and identity rotation between
// pages.
package scraper

import (
	"context"

	"github.com/nik-panekin/s-reality-scraper/pkg/checkpoint"
	"github.com/nik-panekin/s-reality-scraper/pkg/config"
	"github.com/nik-panekin/s-reality-scraper/pkg/identity"
	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
	"github.com/nik-panekin/s-reality-scraper/pkg/sreality"
	"github.com/nik-panekin/s-reality-scraper/pkg/storage"
	"github.com/nik-panekin/s-reality-scraper/pkg/store"
	"github.com/nik-panekin/s-reality-scraper/pkg/transform"
)

// Scraper wires the pipeline components together. It is strictly
// sequential: one request in flight at a time, the settle delay between
// requests lives in the client.
type Scraper struct {
	cfg         *config.Config
	client      *sreality.Client
	store       *store.Store
	checkpoint  *checkpoint.Manager
	artifacts   *storage.Manager
	transformer *transform.Transformer
	rotator     identity.Rotator
	logger      logger.Logger
}

// BuildOptions control one ingestion run.
type BuildOptions struct {
	// Restart backs the store up, clears the checkpoint and starts over.
	Restart bool
	// Update rescans from the first page, skipping already-stored items.
	Update bool
	// Today restricts the listing to items added today.
	Today bool
	// UseCache skips downloading images already present on disk.
	UseCache bool
	// FromPage forces the starting page; zero means resume from the
	// checkpoint.
	FromPage int
}

// New assembles a scraper from configuration. The TOR rotator is only wired
// when TOR is enabled; otherwise rotation requests are no-ops.
func New(cfg *config.Config, log logger.Logger) (*Scraper, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	client, err := sreality.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}

	artifacts, err := storage.NewManager(cfg, client, log)
	if err != nil {
		return nil, err
	}

	var rotator identity.Rotator = identity.Noop{}
	if cfg.Tor.Enabled {
		rotator = identity.NewTorRotator(&cfg.Tor, client, log)
	}

	return &Scraper{
		cfg:         cfg,
		client:      client,
		store:       store.New(cfg.Storage.CSVPath, cfg.Storage.BackupPath, log),
		checkpoint:  checkpoint.NewManager(cfg.Storage.CheckpointPath, log),
		artifacts:   artifacts,
		transformer: transform.New(cfg, log),
		rotator:     rotator,
		logger:      log,
	}, nil
}

// Build runs one ingestion pass over the category listing. Per-item failures
// are logged and skipped; listing failures, rotation failures and context
// cancellation end the run. The checkpoint is committed after every fully
// processed page, so an interrupted run resumes at the next page.
func (s *Scraper) Build(ctx context.Context, opts BuildOptions) error {
	if opts.Restart {
		if err := s.checkpoint.Clear(); err != nil {
			return err
		}
		if err := s.store.Backup(); err != nil {
			return err
		}
		s.logger.Info("previous progress cleared, starting over")
	}

	if _, err := s.rotator.Rotate(ctx); err != nil {
		return err
	}

	records, err := s.store.LoadAll()
	if err != nil {
		return err
	}
	index := store.HashIDSet(records)
	s.logger.WithField("count", len(index)).Info("store loaded")

	pageCount, err := s.pageCount(opts.Today)
	if err != nil {
		return err
	}

	firstPage := opts.FromPage
	if opts.Update {
		firstPage = 1
	}
	if firstPage <= 0 {
		firstPage = s.checkpoint.Load() + 1
	}
	if firstPage > pageCount {
		s.logger.InfoWithFields("nothing to scrape", map[string]interface{}{
			"first_page": firstPage,
			"page_count": pageCount,
		})
		return nil
	}

	s.logger.InfoWithFields("scraping started", map[string]interface{}{
		"first_page": firstPage,
		"page_count": pageCount,
	})

	added := 0
	pagesSinceRotate := 0
	for page := firstPage; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			s.logger.Info("scraping interrupted, progress saved")
			return err
		}

		if page != firstPage {
			pagesSinceRotate++
			if pagesSinceRotate >= s.rotateEvery() {
				if _, err := s.rotator.Rotate(ctx); err != nil {
					return err
				}
				pagesSinceRotate = 0
			}
		}

		s.logger.WithField("page", page).Info("processing page")
		listing, err := s.client.ListCategory(page, s.cfg.Catalog.ItemsPerPage, opts.Today)
		if err != nil {
			return err
		}

		for i := range listing.Embedded.Estates {
			if err := ctx.Err(); err != nil {
				s.logger.Info("scraping interrupted, progress saved")
				return err
			}

			summary := &listing.Embedded.Estates[i]
			if _, ok := index[summary.HashID]; ok {
				s.logger.WithField("hash_id", summary.HashID).Info("item already fetched")
				continue
			}

			first := page == 1 && i == 0
			if err := s.ingestItem(summary.HashID, first, opts.UseCache); err != nil {
				s.logger.WithError(err).WithField("hash_id", summary.HashID).
					Warn("item has not been saved")
				continue
			}
			index[summary.HashID] = struct{}{}
			added++
		}

		if err := s.checkpoint.Save(page); err != nil {
			s.logger.WithError(err).Warn("can't save scraping progress")
		}
	}

	s.logger.WithField("added", added).Info("scraping complete")
	return nil
}

// ingestItem fetches, persists and transforms one item. The order matters:
// the raw document is saved before anything can fail on content, so a later
// transform failure leaves the document for inspection.
func (s *Scraper) ingestItem(hashID int64, first, useCache bool) error {
	raw, err := s.client.FetchEstate(hashID)
	if err != nil {
		return err
	}

	if err := s.artifacts.SaveRawDocument(hashID, raw); err != nil {
		return err
	}

	estate, err := sreality.ParseEstate(raw)
	if err != nil {
		return err
	}

	link, err := s.transformer.Link(estate, hashID)
	if err != nil {
		return err
	}

	if err := s.artifacts.SaveEstateImages(estate, hashID, link, useCache); err != nil {
		return err
	}

	rec, err := s.transformer.Transform(estate, hashID)
	if err != nil {
		return err
	}

	return s.store.Append(rec, first)
}

// pageCount fetches the first listing page to learn the total result size
// and derives the page count, rounding up.
func (s *Scraper) pageCount(today bool) (int, error) {
	perPage := s.cfg.Catalog.ItemsPerPage
	listing, err := s.client.ListCategory(1, perPage, today)
	if err != nil {
		return 0, err
	}
	return (listing.ResultSize + perPage - 1) / perPage, nil
}

func (s *Scraper) rotateEvery() int {
	if s.cfg.Tor.RotateEvery > 0 {
		return s.cfg.Tor.RotateEvery
	}
	return 1
}
