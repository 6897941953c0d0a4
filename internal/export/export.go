package export

import (
	"errors"

	"chsld-scraper/internal/scraper"
)

// Header is the fixed column order of every output file.
var Header = []string{
	"Name",
	"Region",
	"Street Address",
	"City",
	"Postal Code",
	"Phone Number",
	"Website",
	"Scraped Page",
}

// ErrSpreadsheetWrite wraps any failure to create or save the spreadsheet.
var ErrSpreadsheetWrite = errors.New("unable to write spreadsheet")

// Row renders a facility in Header order. Missing fields are empty strings.
func Row(f scraper.Facility) []string {
	var street, city, postalCode string
	if f.Address != nil {
		street = f.Address.Street
		city = f.Address.City
		postalCode = f.Address.PostalCode
	}
	return []string{f.Name, f.Region, street, city, postalCode, f.Phone, f.Website, f.URL}
}
