package fetcher

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/html/charset"

	"chsld-scraper/internal/config"
	"chsld-scraper/internal/observability"
)

// Transport performs the actual network retrieval of a page.
type Transport interface {
	Get(ctx context.Context, urlStr string) ([]byte, error)
}

// FetchError reports a failed network retrieval. It is never retried.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPTransport is a plain GET over net/http.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
	logger    *observability.Logger
}

// NewHTTPTransport создаёт HTTP клиент с таймаутом и User-Agent из конфига
func NewHTTPTransport(cfg *config.Config, logger *observability.Logger) *HTTPTransport {
	return &HTTPTransport{
		client:    &http.Client{Timeout: cfg.GetTotalTimeout()},
		userAgent: cfg.HTTP.UserAgent,
		logger:    logger,
	}
}

func (t *HTTPTransport) Get(ctx context.Context, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: err}
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.logger.Warn("Failed to close response body", "url", urlStr, "error", err.Error())
		}
	}()

	if err := checkStatus(urlStr, resp.StatusCode); err != nil {
		return nil, err
	}

	// Some servers gzip without being asked.
	reader := resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" && !resp.Uncompressed {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &FetchError{URL: urlStr, Err: err}
		}
		defer func() { _ = gzipReader.Close() }()
		reader = gzipReader
	}

	// Decode to UTF-8 using the declared charset, then <meta>, then sniffing.
	decoded, err := charset.NewReader(reader, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: fmt.Errorf("charset: %w", err)}
	}

	body, err := io.ReadAll(decoded)
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: err}
	}

	t.logger.Debug("Response received",
		"url", urlStr,
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
		"bytes", len(body),
	)

	return body, nil
}

// checkStatus turns a non-2xx status into a FetchError.
func checkStatus(urlStr string, status int) error {
	if status < 200 || status > 299 {
		return &FetchError{URL: urlStr, StatusCode: status}
	}
	return nil
}
