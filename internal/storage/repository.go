package storage

import (
	"context"

	"chsld-scraper/internal/checksum"
	"chsld-scraper/internal/scraper"
)

// FacilityRow is one exported facility as stored in a database.
type FacilityRow struct {
	Name          string
	Region        string
	StreetAddress string
	City          string
	PostalCode    string
	Phone         string
	Website       string
	ScrapedPage   string // detail page URL, unique key
	CheckSum      string // SHA256 of the other columns
}

// Repository persists facility rows.
type Repository interface {
	// UpsertFacility inserts or updates a row keyed by ScrapedPage.
	// A row whose CheckSum is unchanged is neither new nor updated.
	UpsertFacility(ctx context.Context, row *FacilityRow) (isNew bool, isUpdated bool, err error)

	ExistsByURL(ctx context.Context, url string) (bool, error)

	GetFacilityCount(ctx context.Context) (int, error)

	Close() error
}

// NewFacilityRow flattens a facility and computes its checksum.
func NewFacilityRow(f scraper.Facility, gen *checksum.Generator) *FacilityRow {
	row := &FacilityRow{
		Name:        f.Name,
		Region:      f.Region,
		Phone:       f.Phone,
		Website:     f.Website,
		ScrapedPage: f.URL,
	}
	if f.Address != nil {
		row.StreetAddress = f.Address.Street
		row.City = f.Address.City
		row.PostalCode = f.Address.PostalCode
	}
	row.CheckSum = gen.GenerateRecordHash(row.ScrapedPage,
		row.Name, row.Region, row.StreetAddress, row.City, row.PostalCode, row.Phone, row.Website)
	return row
}
