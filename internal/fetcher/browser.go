package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"chsld-scraper/internal/config"
	"chsld-scraper/internal/observability"
)

// BrowserTransport renders pages in headless Chrome. The browser is launched
// on first use and reused until Close.
type BrowserTransport struct {
	chromePath      string
	pageTimeout     time.Duration
	waitLoadTimeout time.Duration
	lazyLoadDelay   time.Duration
	logger          *observability.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewBrowserTransport(cfg *config.Config, logger *observability.Logger) *BrowserTransport {
	return &BrowserTransport{
		chromePath:      cfg.Rod.ChromePath,
		pageTimeout:     cfg.GetRodPageTimeout(),
		waitLoadTimeout: cfg.GetRodWaitLoadTimeout(),
		lazyLoadDelay:   cfg.GetRodLazyLoadDelay(),
		logger:          logger,
	}
}

func (t *BrowserTransport) connect() (*rod.Browser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.browser != nil {
		return t.browser, nil
	}

	l := launcher.New().Headless(true)
	if t.chromePath != "" {
		l = l.Bin(t.chromePath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	t.logger.Info("Headless browser started", "control_url", controlURL)
	t.launcher = l
	t.browser = browser
	return browser, nil
}

func (t *BrowserTransport) Get(ctx context.Context, urlStr string) ([]byte, error) {
	browser, err := t.connect()
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: err}
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: err}
	}
	defer func() {
		if err := page.Close(); err != nil {
			t.logger.Warn("Failed to close page", "url", urlStr, "error", err.Error())
		}
	}()

	status, err := t.navigate(page, urlStr)
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: fmt.Errorf("navigate: %w", err)}
	}
	if status != 0 {
		if err := checkStatus(urlStr, status); err != nil {
			return nil, err
		}
	}

	if err := page.Timeout(t.waitLoadTimeout).WaitLoad(); err != nil {
		return nil, &FetchError{URL: urlStr, Err: fmt.Errorf("wait load: %w", err)}
	}

	if t.lazyLoadDelay > 0 {
		if err := sleepContext(ctx, t.lazyLoadDelay); err != nil {
			return nil, &FetchError{URL: urlStr, Err: err}
		}
	}

	html, err := page.Timeout(t.pageTimeout).HTML()
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: err}
	}
	return []byte(html), nil
}

// navigate loads urlStr and returns the HTTP status of its main document,
// 0 when no response arrived within the wait-load timeout.
func (t *BrowserTransport) navigate(page *rod.Page, urlStr string) (int, error) {
	timed := page.Timeout(t.waitLoadTimeout)
	defer timed.CancelTimeout()

	status := 0
	wait := timed.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := page.Navigate(urlStr); err != nil {
		return 0, err
	}
	wait()
	return status, nil
}

// Close shuts the browser down if it was started.
func (t *BrowserTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.browser == nil {
		return nil
	}
	err := t.browser.Close()
	t.launcher.Kill()
	t.browser = nil
	t.launcher = nil
	return err
}
