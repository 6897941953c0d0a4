package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"chsld-scraper/internal/cache"
	"chsld-scraper/internal/config"
	"chsld-scraper/internal/observability"
)

// Fetcher returns parsed pages, reading them from the cache when possible.
// A cache miss waits for the courtesy delay, downloads the page and stores a
// prettified copy under the derived key.
type Fetcher struct {
	transport Transport
	store     cache.Store
	keyFunc   cache.KeyFunc
	throttle  *Throttle
	delay     time.Duration
	logger    *observability.Logger
}

// NewFetcher собирает фетчер: стратегия ключа кэша берётся из конфига
func NewFetcher(
	cfg *config.Config,
	logger *observability.Logger,
	transport Transport,
	store cache.Store,
) (*Fetcher, error) {
	keyFunc, err := cache.KeyFuncFor(cfg.Cache.KeyStrategy)
	if err != nil {
		return nil, err
	}

	return &Fetcher{
		transport: transport,
		store:     store,
		keyFunc:   keyFunc,
		throttle:  NewThrottle(),
		delay:     cfg.GetCourtesyDelay(),
		logger:    logger,
	}, nil
}

// NewTransport picks the headless browser when rod is enabled, plain HTTP otherwise.
func NewTransport(cfg *config.Config, logger *observability.Logger) Transport {
	if cfg.Rod.Enabled {
		return NewBrowserTransport(cfg, logger)
	}
	return NewHTTPTransport(cfg, logger)
}

// Fetch uses the configured courtesy delay.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*goquery.Document, error) {
	return f.FetchWait(ctx, urlStr, f.delay)
}

func (f *Fetcher) FetchWait(ctx context.Context, urlStr string, wait time.Duration) (*goquery.Document, error) {
	key, err := f.keyFunc(urlStr)
	if err != nil {
		return nil, err
	}

	cached, ok, err := f.store.Get(key)
	if err != nil {
		return nil, err
	}
	if ok {
		f.logger.Debug("Cache hit", "url", urlStr, "key", key)
		return parseDocument(cached, urlStr)
	}

	if err := f.throttle.Wait(ctx, wait); err != nil {
		return nil, err
	}

	f.logger.Debug("Fetching page", "url", urlStr, "key", key)
	body, err := f.transport.Get(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	doc, err := parseDocument(body, urlStr)
	if err != nil {
		return nil, err
	}

	if err := f.store.Put(key, []byte(Prettify(doc.Nodes[0]))); err != nil {
		return nil, err
	}

	return doc, nil
}

// Requests reports how many uncached fetches went to the network.
func (f *Fetcher) Requests() int {
	return f.throttle.Waits()
}

func parseDocument(body []byte, urlStr string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", urlStr, err)
	}
	return doc, nil
}
