package normalize

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"chsld-scraper/internal/config"
)

var spaces = regexp.MustCompile(`\s+`)

type Normalizer struct {
	cfg config.NormalizeConfig
}

// NewNormalizer приводит квалификаторы городов к NFC заранее
func NewNormalizer(cfg config.NormalizeConfig) *Normalizer {
	qualifiers := make([]string, 0, len(cfg.CityQualifiers))
	for _, q := range cfg.CityQualifiers {
		qualifiers = append(qualifiers, norm.NFC.String(q))
	}
	cfg.CityQualifiers = qualifiers
	return &Normalizer{cfg: cfg}
}

// Text NFC-normalizes s and applies the configured whitespace cleanup.
func (n *Normalizer) Text(s string) string {
	s = norm.NFC.String(s)

	if n.cfg.TrimNBSP {
		s = strings.ReplaceAll(s, "\u00a0", " ")
	}
	if n.cfg.CollapseSpaces {
		s = spaces.ReplaceAllString(s, " ")
	}

	return strings.TrimSpace(s)
}

// Markup turns a fragment of rendered HTML text back into plain text.
func (n *Normalizer) Markup(s string) string {
	return n.Text(html.UnescapeString(s))
}

// City drops province qualifiers such as "(Québec)".
func (n *Normalizer) City(s string) string {
	s = n.Text(s)
	for _, q := range n.cfg.CityQualifiers {
		s = strings.ReplaceAll(s, q, "")
	}
	return n.Text(s)
}

// NormalizeURL trims the URL and drops its fragment.
func NormalizeURL(urlStr string) string {
	urlStr = strings.TrimSpace(urlStr)
	if idx := strings.Index(urlStr, "#"); idx > -1 {
		urlStr = urlStr[:idx]
	}
	return urlStr
}

// ResolveURL makes ref absolute against base.
func ResolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	refURL, err := url.Parse(NormalizeURL(ref))
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", ref, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
