package cache

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"path"
	"strings"

	"chsld-scraper/internal/config"
)

// Extension is appended to every derived key.
const Extension = ".html"

// KeyFunc derives a cache key from a page URL.
type KeyFunc func(rawURL string) (string, error)

// BasenameKey keeps only the last path segment with its extension replaced by
// ".html", so /a/foo.php and /a/foo.html share a key. Distinct URLs with the
// same basename collide.
func BasenameKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	name := ""
	if p := strings.TrimRight(u.Path, "/"); p != "" {
		name = path.Base(p)
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" {
		name = "index"
	}
	return name + Extension, nil
}

// HashKey uses the SHA256 of the whole URL.
func HashKey(rawURL string) (string, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(rawURL))) + Extension, nil
}

// KeyFuncFor maps a config key strategy to its KeyFunc.
func KeyFuncFor(strategy string) (KeyFunc, error) {
	switch strategy {
	case config.KeyStrategyBasename, "":
		return BasenameKey, nil
	case config.KeyStrategyHash:
		return HashKey, nil
	default:
		return nil, fmt.Errorf("unknown cache key strategy: %s", strategy)
	}
}
