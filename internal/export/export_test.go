package export

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"chsld-scraper/internal/scraper"
)

func sampleFacilities() []scraper.Facility {
	return []scraper.Facility{
		{
			Name:    "CHSLD A",
			Region:  "Laval",
			URL:     "https://www.indexsante.ca/chsld/a.php",
			Phone:   "450 555-1234",
			Website: "https://chsld-a.example.ca/",
			Address: &scraper.Address{Street: "1, rue Principale", City: "Laval", PostalCode: "H7A 1A1"},
		},
		{
			Name:   "CHSLD \"B\"",
			Region: "Montréal",
			URL:    "https://www.indexsante.ca/chsld/b.php",
		},
	}
}

func TestRow(t *testing.T) {
	facilities := sampleFacilities()

	assert.Equal(t, []string{
		"CHSLD A", "Laval", "1, rue Principale", "Laval", "H7A 1A1",
		"450 555-1234", "https://chsld-a.example.ca/", "https://www.indexsante.ca/chsld/a.php",
	}, Row(facilities[0]))

	assert.Equal(t, []string{
		"CHSLD \"B\"", "Montréal", "", "", "", "", "", "https://www.indexsante.ca/chsld/b.php",
	}, Row(facilities[1]))
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "CHSLDs.csv")
	require.NoError(t, WriteCSV(path, sampleFacilities()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,Region,Street Address,City,Postal Code,Phone Number,Website,Scraped Page", lines[0])
	assert.Equal(t, `"CHSLD ""B""",Montréal,,,,,,https://www.indexsante.ca/chsld/b.php`, lines[2])
	assert.NotContains(t, string(data), "None")

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "1, rue Principale", records[1][2])
}

func TestWriteCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHSLDs.csv")
	require.NoError(t, WriteCSV(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(Header, ",")+"\n", string(data))
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHSLDs.xlsx")
	require.NoError(t, WriteXLSX(path, sampleFacilities()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, Row(sampleFacilities()[0]), rows[1])
	assert.Equal(t, "https://www.indexsante.ca/chsld/b.php", rows[2][7])
}

func TestWriteXLSXUnwritablePath(t *testing.T) {
	// A directory in place of the file behaves like a workbook held open elsewhere.
	path := filepath.Join(t.TempDir(), "CHSLDs.xlsx")
	require.NoError(t, os.Mkdir(path, 0o755))

	err := WriteXLSX(path, sampleFacilities())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSpreadsheetWrite))
}
