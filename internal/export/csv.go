package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"chsld-scraper/internal/scraper"
)

// WriteCSV writes the header and one row per facility, comma separated,
// quoting only where needed.
func WriteCSV(path string, facilities []scraper.Facility) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	w := csv.NewWriter(file)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, f := range facilities {
		if err := w.Write(Row(f)); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", f.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
