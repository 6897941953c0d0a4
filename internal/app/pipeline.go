package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"chsld-scraper/internal/checksum"
	"chsld-scraper/internal/config"
	"chsld-scraper/internal/export"
	"chsld-scraper/internal/fetcher"
	"chsld-scraper/internal/normalize"
	"chsld-scraper/internal/observability"
	"chsld-scraper/internal/scraper"
	"chsld-scraper/internal/storage"
)

// Pipeline runs region discovery, facility discovery, detail extraction and
// export. Every stage reads its input from the previous stage's persisted
// file when that file already exists.
type Pipeline struct {
	cfg        *config.Config
	logger     *observability.Logger
	fetcher    *fetcher.Fetcher
	scraper    *scraper.Scraper
	repo       storage.Repository
	checksum   *checksum.Generator
	allRegions string
}

// RunStats summarizes one pipeline run.
type RunStats struct {
	Regions             int
	Facilities          int
	IncompleteAddresses int
	Requests            int
	SpreadsheetWritten  bool
	RowsNew             int
	RowsUpdated         int
}

// NewPipeline wires the stages together. repo may be nil.
func NewPipeline(
	cfg *config.Config,
	logger *observability.Logger,
	f *fetcher.Fetcher,
	s *scraper.Scraper,
	repo storage.Repository,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		logger:     logger,
		fetcher:    f,
		scraper:    s,
		repo:       repo,
		checksum:   checksum.NewGenerator(),
		allRegions: normalize.NewNormalizer(cfg.Normalize).Text(cfg.Sites.AllRegionsName),
	}
}

// EnsureDirs creates the cache, data and output directories.
func (p *Pipeline) EnsureDirs() error {
	for _, dir := range []string{p.cfg.Paths.CacheDir, p.cfg.Paths.DataDir, p.cfg.Paths.OutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Regions returns the persisted region map, discovering it first if needed.
func (p *Pipeline) Regions(ctx context.Context) (*scraper.RegionMap, error) {
	path := p.cfg.RegionsPath()
	exists, err := storage.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.DiscoverRegions(ctx)
	}

	regions := &scraper.RegionMap{}
	if err := storage.LoadJSON(path, regions); err != nil {
		return nil, err
	}
	p.logger.Info("Loaded regions", "path", path, "regions", regions.Len())
	return regions, nil
}

// DiscoverRegions reads the landing page and persists the region map.
func (p *Pipeline) DiscoverRegions(ctx context.Context) (*scraper.RegionMap, error) {
	p.logger.Info("Discovering regions", "url", p.cfg.Sites.EntryURL)

	doc, err := p.fetcher.Fetch(ctx, p.cfg.Sites.EntryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch landing page: %w", err)
	}

	regions, err := p.scraper.ParseRegions(doc, p.cfg.Sites.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse landing page %s: %w", p.cfg.Sites.EntryURL, err)
	}

	if err := storage.SaveJSON(p.cfg.RegionsPath(), regions); err != nil {
		return nil, err
	}

	p.logger.Info("Regions discovered", "regions", regions.Len(), "path", p.cfg.RegionsPath())
	return regions, nil
}

// Facilities returns the persisted facility index, discovering it first if needed.
func (p *Pipeline) Facilities(ctx context.Context, regions *scraper.RegionMap) (*scraper.FacilityIndex, error) {
	path := p.cfg.FacilitiesPath()
	exists, err := storage.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.DiscoverFacilities(ctx, regions)
	}

	index := &scraper.FacilityIndex{}
	if err := storage.LoadJSON(path, index); err != nil {
		return nil, err
	}
	p.logger.Info("Loaded facilities", "path", path, "facilities", index.Len())
	return index, nil
}

// DiscoverFacilities walks every region listing except the aggregate one and
// persists the facility index. A name seen twice keeps its first position and
// the later link and region.
func (p *Pipeline) DiscoverFacilities(ctx context.Context, regions *scraper.RegionMap) (*scraper.FacilityIndex, error) {
	index := &scraper.FacilityIndex{}

	for _, region := range regions.Regions() {
		if region.Name == p.allRegions {
			p.logger.Debug("Skipping aggregate region", "region", region.Name)
			continue
		}

		doc, err := p.fetcher.Fetch(ctx, region.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch region %s: %w", region.Name, err)
		}

		anchors := p.scraper.FindFacilityEntries(doc, region.URL)
		p.logger.Info("Region processed", "region", region.Name, "url", region.URL, "facilities", len(anchors))

		for _, anchor := range anchors {
			if previous, ok := index.Get(anchor.Name); ok && previous.URL != anchor.URL {
				p.logger.Debug("Facility name seen again",
					"facility", anchor.Name,
					"previous_region", previous.Region,
					"region", region.Name,
				)
			}
			index.Set(scraper.FacilityEntry{Name: anchor.Name, URL: anchor.URL, Region: region.Name})
		}
	}

	if err := storage.SaveJSON(p.cfg.FacilitiesPath(), index); err != nil {
		return nil, err
	}

	p.logger.Info("Facilities discovered", "facilities", index.Len(), "path", p.cfg.FacilitiesPath())
	return index, nil
}

// ExtractDetails fetches every detail page in index order. An incomplete
// address is logged and the facility is kept without one.
func (p *Pipeline) ExtractDetails(ctx context.Context, index *scraper.FacilityIndex) ([]scraper.Facility, int, error) {
	entries := index.Entries()
	facilities := make([]scraper.Facility, 0, len(entries))
	incomplete := 0

	for _, entry := range entries {
		p.logger.Info("Scraping facility", "url", entry.URL)

		doc, err := p.fetcher.Fetch(ctx, entry.URL)
		if err != nil {
			return nil, incomplete, fmt.Errorf("failed to fetch facility %s: %w", entry.Name, err)
		}

		facility, err := p.scraper.ParseDetail(doc, entry)
		if err != nil {
			var addrErr *scraper.AddressError
			if !errors.As(err, &addrErr) {
				return nil, incomplete, fmt.Errorf("failed to parse facility %s: %w", entry.Name, err)
			}
			incomplete++
			p.logger.Warn("Problem parsing address",
				"facility", entry.Name,
				"url", entry.URL,
				"parts", addrErr.Parts,
				"reason", addrErr.Reason,
			)
		}

		facilities = append(facilities, facility)
	}

	return facilities, incomplete, nil
}

// Export writes the CSV and the spreadsheet, then syncs the repository if
// one is configured. A spreadsheet that cannot be written is reported and
// skipped; the CSV is already on disk by then.
func (p *Pipeline) Export(ctx context.Context, facilities []scraper.Facility, stats *RunStats) error {
	csvPath := p.cfg.CSVPath()
	if err := export.WriteCSV(csvPath, facilities); err != nil {
		return err
	}
	p.logger.Info("CSV written", "path", csvPath, "rows", len(facilities))

	xlsxPath := p.cfg.XLSXPath()
	if err := export.WriteXLSX(xlsxPath, facilities); err != nil {
		if !errors.Is(err, export.ErrSpreadsheetWrite) {
			return err
		}
		p.logger.Error("Unable to write the spreadsheet, close it if it is open elsewhere and run again",
			"path", xlsxPath,
			"error", err.Error(),
		)
	} else {
		stats.SpreadsheetWritten = true
		p.logger.Info("Spreadsheet written", "path", xlsxPath, "rows", len(facilities))
	}

	if p.repo == nil {
		return nil
	}
	return p.sync(ctx, facilities, stats)
}

func (p *Pipeline) sync(ctx context.Context, facilities []scraper.Facility, stats *RunStats) error {
	for _, f := range facilities {
		isNew, isUpdated, err := p.repo.UpsertFacility(ctx, storage.NewFacilityRow(f, p.checksum))
		if err != nil {
			return fmt.Errorf("failed to store facility %s: %w", f.Name, err)
		}
		if isNew {
			stats.RowsNew++
		}
		if isUpdated {
			stats.RowsUpdated++
		}
	}

	total, err := p.repo.GetFacilityCount(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("Repository synced",
		"driver", p.cfg.Storage.Driver,
		"new", stats.RowsNew,
		"updated", stats.RowsUpdated,
		"total", total,
	)
	return nil
}

// Run executes the full chain.
func (p *Pipeline) Run(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{}

	if err := p.EnsureDirs(); err != nil {
		return stats, err
	}

	regions, err := p.Regions(ctx)
	if err != nil {
		return stats, err
	}
	stats.Regions = regions.Len()

	index, err := p.Facilities(ctx, regions)
	if err != nil {
		return stats, err
	}

	facilities, incomplete, err := p.ExtractDetails(ctx, index)
	stats.IncompleteAddresses = incomplete
	if err != nil {
		return stats, err
	}
	stats.Facilities = len(facilities)

	if err := p.Export(ctx, facilities, stats); err != nil {
		return stats, err
	}
	stats.Requests = p.fetcher.Requests()

	p.logger.Info("Scraping completed",
		"regions", stats.Regions,
		"facilities", stats.Facilities,
		"incomplete_addresses", stats.IncompleteAddresses,
		"requests", stats.Requests,
		"csv", p.cfg.CSVPath(),
		"xlsx", p.cfg.XLSXPath(),
		"xlsx_written", stats.SpreadsheetWritten,
	)

	return stats, nil
}
