package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chsld-scraper/internal/cache"
	"chsld-scraper/internal/config"
	"chsld-scraper/internal/fetcher"
	"chsld-scraper/internal/normalize"
	"chsld-scraper/internal/observability"
	"chsld-scraper/internal/scraper"
	"chsld-scraper/internal/storage"
)

var sitePages = map[string]string{
	"/CHSLD-Quebec-1.html": `<html><body>
<div class="regions-wrap">
  <div class="colonne">
    <p><a href="CHSLD-Quebec-all.html">Tout le Québec</a></p>
    <p><a href="/CHSLD-Laval-13.html">Laval</a></p>
  </div>
  <div class="colonne">
    <p><a href="CHSLD-Montreal-6.html">Montréal</a></p>
  </div>
</div>
</body></html>`,

	"/CHSLD-Quebec-all.html": `<html><body>
<div class="regulier"><a href="/chsld/extra.php" title="CHSLD Extra">CHSLD Extra</a></div>
</body></html>`,

	"/CHSLD-Laval-13.html": `<html><body>
<div class="regulier"><a href="/chsld/a.php" title="CHSLD A">CHSLD A</a></div>
<div class="base"><a href="/chsld/commun-laval.php" title="CHSLD Commun">CHSLD Commun</a></div>
</body></html>`,

	"/CHSLD-Montreal-6.html": `<html><body>
<div class="regulier"><a href="/chsld/commun-mtl.php" title="CHSLD Commun">CHSLD Commun</a></div>
<div class="base"><a href="/chsld/court.php" title="CHSLD Court">CHSLD Court</a></div>
</body></html>`,

	"/chsld/a.php": `<html><body>
<div id="fiche-telephone-appeler"><a href="tel:4505551234">450 555-1234</a></div>
<div id="fiche-web-url"><a href="https://chsld-a.example.ca/">Site web</a></div>
<p class="adresse"><strong>Adresse :</strong><br/>1 Rue Principale<br/>Laval (Québec)<br/>H7A 1A1</p>
</body></html>`,

	"/chsld/commun-mtl.php": `<html><body>
<p class="adresse"><strong>Adresse :</strong><br/>200 Boul. Saint-Laurent<br/>Montréal (Québec)<br/>H2X 2T3</p>
</body></html>`,

	"/chsld/court.php": `<html><body>
<div id="fiche-telephone-appeler"><a href="tel:5145550000">514 555-0000</a></div>
<p class="adresse"><strong>Adresse :</strong><br/>5 Rue Courte<br/>Montréal (Québec)</p>
</body></html>`,
}

type testSite struct {
	*httptest.Server

	mu           sync.Mutex
	hits         map[string]int
	contentTypes map[string]string
}

func newTestSite(t *testing.T, pages map[string]string) *testSite {
	t.Helper()

	site := &testSite{hits: make(map[string]int), contentTypes: make(map[string]string)}
	site.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		contentType, ok := site.contentTypes[r.URL.Path]
		site.mu.Unlock()
		if !ok {
			contentType = "text/html; charset=utf-8"
		}

		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(site.Close)
	return site
}

func (s *testSite) SetContentType(path, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentTypes[path] = contentType
}

func (s *testSite) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func newTestConfig(t *testing.T, siteURL string) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Sites.BaseURL = siteURL + "/"
	cfg.Sites.EntryURL = siteURL + "/CHSLD-Quebec-1.html"
	cfg.Paths.CacheDir = filepath.Join(root, "pages")
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.OutputDir = filepath.Join(root, "out")
	cfg.HTTP.CourtesyDelayMS = 0
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestPipeline(t *testing.T, cfg *config.Config, logger *observability.Logger, repo storage.Repository) *Pipeline {
	t.Helper()

	f, err := fetcher.NewFetcher(cfg, logger, fetcher.NewHTTPTransport(cfg, logger), cache.NewFileStore(cfg.Paths.CacheDir))
	require.NoError(t, err)

	s := scraper.NewScraper(scraper.DefaultSelectors(), normalize.NewNormalizer(cfg.Normalize))
	return NewPipeline(cfg, logger, f, s, repo)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRunFullPipeline(t *testing.T) {
	site := newTestSite(t, sitePages)
	cfg := newTestConfig(t, site.URL)

	var logs bytes.Buffer
	p := newTestPipeline(t, cfg, observability.New(&logs, "info"), nil)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Regions)
	assert.Equal(t, 3, stats.Facilities)
	assert.Equal(t, 1, stats.IncompleteAddresses)
	assert.Equal(t, 6, stats.Requests)
	assert.True(t, stats.SpreadsheetWritten)

	// The aggregate region is persisted but never walked.
	assert.Equal(t, 0, site.Hits("/CHSLD-Quebec-all.html"))
	assert.Equal(t, 0, site.Hits("/chsld/extra.php"))
	// Replaced by the Montréal entry of the same name.
	assert.Equal(t, 0, site.Hits("/chsld/commun-laval.php"))

	lines := readLines(t, cfg.CSVPath())
	require.Len(t, lines, 4)
	assert.Equal(t, "Name,Region,Street Address,City,Postal Code,Phone Number,Website,Scraped Page", lines[0])
	assert.Equal(t, "CHSLD A,Laval,1 Rue Principale,Laval,H7A 1A1,450 555-1234,https://chsld-a.example.ca/,"+site.URL+"/chsld/a.php", lines[1])
	assert.Equal(t, "CHSLD Commun,Montréal,200 Boul. Saint-Laurent,Montréal,H2X 2T3,,,"+site.URL+"/chsld/commun-mtl.php", lines[2])
	assert.Equal(t, "CHSLD Court,Montréal,,,,514 555-0000,,"+site.URL+"/chsld/court.php", lines[3])
	assert.NotContains(t, strings.Join(lines, "\n"), "Extra")

	_, err = os.Stat(cfg.XLSXPath())
	assert.NoError(t, err)

	regions := &scraper.RegionMap{}
	require.NoError(t, storage.LoadJSON(cfg.RegionsPath(), regions))
	assert.Equal(t, []scraper.Region{
		{Name: "Tout le Québec", URL: site.URL + "/CHSLD-Quebec-all.html"},
		{Name: "Laval", URL: site.URL + "/CHSLD-Laval-13.html"},
		{Name: "Montréal", URL: site.URL + "/CHSLD-Montreal-6.html"},
	}, regions.Regions())

	index := &scraper.FacilityIndex{}
	require.NoError(t, storage.LoadJSON(cfg.FacilitiesPath(), index))
	entry, ok := index.Get("CHSLD Commun")
	require.True(t, ok)
	assert.Equal(t, "Montréal", entry.Region)
	assert.Equal(t, site.URL+"/chsld/commun-mtl.php", entry.URL)

	assert.Contains(t, logs.String(), "Problem parsing address")
	assert.Contains(t, logs.String(), "Scraping facility")
	assert.Contains(t, logs.String(), "Scraping completed")
}

func TestRunDecodesLatin1Pages(t *testing.T) {
	pages := map[string]string{}
	for path, body := range sitePages {
		pages[path] = body
	}
	pages["/CHSLD-Quebec-1.html"] = "<html><body>\n" +
		"<div class=\"regions-wrap\">\n" +
		"  <div class=\"colonne\">\n" +
		"    <p><a href=\"CHSLD-Quebec-all.html\">Tout le Qu\xe9bec</a></p>\n" +
		"    <p><a href=\"/CHSLD-Laval-13.html\">Laval</a></p>\n" +
		"    <p><a href=\"CHSLD-Montreal-6.html\">Montr\xe9al</a></p>\n" +
		"  </div>\n" +
		"</div>\n" +
		"</body></html>"

	site := newTestSite(t, pages)
	site.SetContentType("/CHSLD-Quebec-1.html", "text/html; charset=ISO-8859-1")
	cfg := newTestConfig(t, site.URL)

	stats, err := newTestPipeline(t, cfg, observability.Nop(), nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, site.Hits("/CHSLD-Quebec-all.html"))
	assert.Equal(t, 3, stats.Facilities)

	regions := &scraper.RegionMap{}
	require.NoError(t, storage.LoadJSON(cfg.RegionsPath(), regions))
	_, ok := regions.Get("Tout le Québec")
	assert.True(t, ok)
	_, ok = regions.Get("Montréal")
	assert.True(t, ok)

	lines := readLines(t, cfg.CSVPath())
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[2], "CHSLD Commun,Montréal,"))
	for _, line := range lines {
		assert.True(t, utf8.ValidString(line), line)
	}
}

func TestRunResumesFromCache(t *testing.T) {
	site := newTestSite(t, sitePages)
	cfg := newTestConfig(t, site.URL)

	_, err := newTestPipeline(t, cfg, observability.Nop(), nil).Run(context.Background())
	require.NoError(t, err)
	first := readLines(t, cfg.CSVPath())

	site.Close()

	stats, err := newTestPipeline(t, cfg, observability.Nop(), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Requests)
	assert.Equal(t, first, readLines(t, cfg.CSVPath()))
}

func TestRunUsesPersistedFacilities(t *testing.T) {
	site := newTestSite(t, sitePages)
	cfg := newTestConfig(t, site.URL)

	regions := &scraper.RegionMap{}
	regions.Set("Laval", site.URL+"/CHSLD-Laval-13.html")
	require.NoError(t, storage.SaveJSON(cfg.RegionsPath(), regions))

	index := &scraper.FacilityIndex{}
	index.Set(scraper.FacilityEntry{Name: "CHSLD A", URL: site.URL + "/chsld/a.php", Region: "Laval"})
	require.NoError(t, storage.SaveJSON(cfg.FacilitiesPath(), index))

	stats, err := newTestPipeline(t, cfg, observability.Nop(), nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Facilities)
	assert.Equal(t, 1, stats.Requests)
	assert.Equal(t, 0, site.Hits("/CHSLD-Quebec-1.html"))
	assert.Equal(t, 0, site.Hits("/CHSLD-Laval-13.html"))
	assert.Len(t, readLines(t, cfg.CSVPath()), 2)
}

func TestRunSpreadsheetLocked(t *testing.T) {
	site := newTestSite(t, sitePages)
	cfg := newTestConfig(t, site.URL)
	require.NoError(t, os.MkdirAll(cfg.XLSXPath(), 0o755))

	var logs bytes.Buffer
	stats, err := newTestPipeline(t, cfg, observability.New(&logs, "info"), nil).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, stats.SpreadsheetWritten)
	assert.Len(t, readLines(t, cfg.CSVPath()), 4)
	assert.Contains(t, logs.String(), "Unable to write the spreadsheet")
}

func TestRunMissingRegionStructure(t *testing.T) {
	site := newTestSite(t, map[string]string{
		"/CHSLD-Quebec-1.html": `<html><body><p>Maintenance</p></body></html>`,
	})
	cfg := newTestConfig(t, site.URL)

	_, err := newTestPipeline(t, cfg, observability.Nop(), nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, scraper.ErrStructureNotFound))

	exists, err := storage.Exists(cfg.RegionsPath())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunFetchFailure(t *testing.T) {
	pages := map[string]string{}
	for path, body := range sitePages {
		pages[path] = body
	}
	delete(pages, "/chsld/court.php")

	site := newTestSite(t, pages)
	cfg := newTestConfig(t, site.URL)

	_, err := newTestPipeline(t, cfg, observability.Nop(), nil).Run(context.Background())
	require.Error(t, err)

	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestRunSyncsRepository(t *testing.T) {
	site := newTestSite(t, sitePages)
	cfg := newTestConfig(t, site.URL)
	cfg.Storage.Driver = config.DriverSQLite
	cfg.Storage.DSN = filepath.Join(cfg.Paths.DataDir, "chslds.db")
	require.NoError(t, cfg.Validate())

	repo, err := OpenRepository(cfg, observability.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	stats, err := newTestPipeline(t, cfg, observability.Nop(), repo).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.RowsNew)

	exists, err := repo.ExistsByURL(ctx, site.URL+"/chsld/court.php")
	require.NoError(t, err)
	assert.True(t, exists)

	stats, err = newTestPipeline(t, cfg, observability.Nop(), repo).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.RowsNew)
	assert.Equal(t, 0, stats.RowsUpdated)

	count, err := repo.GetFacilityCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestOpenRepositoryWithoutDriver(t *testing.T) {
	repo, err := OpenRepository(config.Default(), observability.Nop())
	require.NoError(t, err)
	assert.Nil(t, repo)
}

func TestEnsureDirs(t *testing.T) {
	cfg := newTestConfig(t, "http://127.0.0.1")
	p := newTestPipeline(t, cfg, observability.Nop(), nil)

	require.NoError(t, p.EnsureDirs())
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.DataDir, cfg.Paths.OutputDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
