package app

import (
	"fmt"

	"chsld-scraper/internal/config"
	"chsld-scraper/internal/observability"
	"chsld-scraper/internal/storage"
	"chsld-scraper/internal/storage/mssql"
	"chsld-scraper/internal/storage/sqlite"
)

// OpenRepository opens the configured database. It returns nil when no
// driver is set. For sqlite the DSN is the database file path.
func OpenRepository(cfg *config.Config, logger *observability.Logger) (storage.Repository, error) {
	switch cfg.Storage.Driver {
	case "":
		return nil, nil
	case config.DriverSQLite:
		repo, err := sqlite.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.DriverMSSQL:
		repo, err := mssql.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}
