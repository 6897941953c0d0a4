package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"chsld-scraper/internal/app"
	"chsld-scraper/internal/cache"
	"chsld-scraper/internal/config"
	"chsld-scraper/internal/fetcher"
	"chsld-scraper/internal/normalize"
	"chsld-scraper/internal/observability"
	"chsld-scraper/internal/scraper"
	"chsld-scraper/internal/storage"
)

const appName = "chsld-scraper"

var configPath string

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Scrapes the CHSLD directory into CSV and XLSX files",
	Long: `Discovers the regions of the directory, every CHSLD listed in them and the
contact details of each one, then writes CHSLDs.csv and CHSLDs.xlsx.
Downloaded pages are cached, so an interrupted run picks up where it stopped.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withPipeline(func(ctx context.Context, p *app.Pipeline) error {
			_, err := p.Run(ctx)
			return err
		})
	},
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Rediscovers the regions and rewrites the region map",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withPipeline(func(ctx context.Context, p *app.Pipeline) error {
			if err := p.EnsureDirs(); err != nil {
				return err
			}
			_, err := p.DiscoverRegions(ctx)
			return err
		})
	},
}

var facilitiesCmd = &cobra.Command{
	Use:   "facilities",
	Short: "Rediscovers the facilities of every region and rewrites the facility index",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withPipeline(func(ctx context.Context, p *app.Pipeline) error {
			if err := p.EnsureDirs(); err != nil {
				return err
			}
			regions, err := p.Regions(ctx)
			if err != nil {
				return err
			}
			_, err = p.DiscoverFacilities(ctx, regions)
			return err
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		fmt.Sprintf("path to the YAML config (default %s when present)", config.DefaultPath))
	rootCmd.AddCommand(regionsCmd, facilitiesCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withPipeline builds the pipeline from the resolved config, runs fn under a
// signal-aware context and releases everything afterwards.
func withPipeline(fn func(ctx context.Context, p *app.Pipeline) error) error {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability)
	defer func() { _ = logger.Close() }()

	selectors, err := loadSelectors(cfg)
	if err != nil {
		logger.Error("Failed to load selectors", "path", cfg.SelectorsFile, "error", err.Error())
		return err
	}

	transport := fetcher.NewTransport(cfg, logger)
	if closer, ok := transport.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Warn("Failed to close browser", "error", err.Error())
			}
		}()
	}

	f, err := fetcher.NewFetcher(cfg, logger, transport, cache.NewFileStore(cfg.Paths.CacheDir))
	if err != nil {
		return err
	}

	repo, err := app.OpenRepository(cfg, logger)
	if err != nil {
		logger.Error("Failed to open repository", "driver", cfg.Storage.Driver, "error", err.Error())
		return err
	}
	if repo != nil {
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Warn("Failed to close repository", "error", err.Error())
			}
		}()
	}

	s := scraper.NewScraper(selectors, normalize.NewNormalizer(cfg.Normalize))
	p := app.NewPipeline(cfg, logger, f, s, repo)

	ctx, cancel := app.GracefulShutdown(logger)
	defer cancel()

	if err := fn(ctx, p); err != nil {
		logger.Error("Run failed", "error", err.Error())
		return err
	}
	return nil
}

// loadSelectors falls back to the built-in selectors when no file is configured
// or the configured file is absent.
func loadSelectors(cfg *config.Config) (*scraper.Selectors, error) {
	if cfg.SelectorsFile == "" {
		return scraper.DefaultSelectors(), nil
	}
	exists, err := storage.Exists(cfg.SelectorsFile)
	if err != nil {
		return nil, err
	}
	if !exists {
		return scraper.DefaultSelectors(), nil
	}
	return scraper.LoadSelectors(cfg.SelectorsFile)
}
