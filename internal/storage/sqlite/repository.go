package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"chsld-scraper/internal/observability"
	"chsld-scraper/internal/storage"
)

// Repository stores facility rows in a local SQLite file.
type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository opens or creates the database file at path.
func NewRepository(path string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	r := &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}
	if err := r.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return r, nil
}

func (r *Repository) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.commandTimeout)
	defer cancel()

	schema := `
	CREATE TABLE IF NOT EXISTS facilities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		region TEXT NOT NULL,
		street_address TEXT NOT NULL,
		city TEXT NOT NULL,
		postal_code TEXT NOT NULL,
		phone TEXT NOT NULL,
		website TEXT NOT NULL,
		scraped_page TEXT NOT NULL UNIQUE,
		checksum TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_facilities_region ON facilities(region);
	`
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *Repository) UpsertFacility(ctx context.Context, row *storage.FacilityRow) (isNew bool, isUpdated bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var existing string
	err = r.db.QueryRowContext(ctx,
		`SELECT checksum FROM facilities WHERE scraped_page = ?`, row.ScrapedPage,
	).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		isNew = true
	case err != nil:
		return false, false, fmt.Errorf("failed to query database: %w", err)
	case existing == row.CheckSum:
		return false, false, nil
	default:
		isUpdated = true
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO facilities
			(name, region, street_address, city, postal_code, phone, website, scraped_page, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scraped_page) DO UPDATE SET
			name = excluded.name,
			region = excluded.region,
			street_address = excluded.street_address,
			city = excluded.city,
			postal_code = excluded.postal_code,
			phone = excluded.phone,
			website = excluded.website,
			checksum = excluded.checksum,
			updated_at = CURRENT_TIMESTAMP`,
		row.Name, row.Region, row.StreetAddress, row.City, row.PostalCode,
		row.Phone, row.Website, row.ScrapedPage, row.CheckSum,
	)
	if err != nil {
		return false, false, fmt.Errorf("failed to execute upsert: %w", err)
	}

	return isNew, isUpdated, nil
}

func (r *Repository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facilities WHERE scraped_page = ?`, url).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query database: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) GetFacilityCount(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facilities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to query database: %w", err)
	}
	return count, nil
}

// Get loads the row stored for a detail page.
func (r *Repository) Get(ctx context.Context, url string) (*storage.FacilityRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	row := &storage.FacilityRow{}
	err := r.db.QueryRowContext(ctx, `
		SELECT name, region, street_address, city, postal_code, phone, website, scraped_page, checksum
		FROM facilities WHERE scraped_page = ?`, url,
	).Scan(&row.Name, &row.Region, &row.StreetAddress, &row.City, &row.PostalCode,
		&row.Phone, &row.Website, &row.ScrapedPage, &row.CheckSum)
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	return row, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
