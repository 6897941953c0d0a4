package scraper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"chsld-scraper/internal/normalize"
)

// ErrStructureNotFound means a page lacks a container the parser cannot do without.
var ErrStructureNotFound = errors.New("expected page structure not found")

type Scraper struct {
	selectors  *Selectors
	normalizer *normalize.Normalizer
}

// NewScraper создаёт парсер с заданными селекторами и нормализатором текста
func NewScraper(selectors *Selectors, normalizer *normalize.Normalizer) *Scraper {
	return &Scraper{
		selectors:  selectors,
		normalizer: normalizer,
	}
}

// ParseRegions reads the landing page: container > groups > entries, each
// entry holding a link to one region listing.
func (s *Scraper) ParseRegions(doc *goquery.Document, baseURL string) (*RegionMap, error) {
	container := doc.Find(s.selectors.RegionContainer).First()
	if container.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrStructureNotFound, s.selectors.RegionContainer)
	}

	groups := container.Find(s.selectors.RegionGroup)
	if groups.Length() == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrStructureNotFound, s.selectors.RegionContainer, s.selectors.RegionGroup)
	}

	regions := &RegionMap{}
	groups.Each(func(_ int, group *goquery.Selection) {
		group.Find(s.selectors.RegionEntry).Each(func(_ int, entry *goquery.Selection) {
			link := entry.Find("a").First()
			href, ok := link.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return
			}
			name := s.normalizer.Text(link.Text())
			if name == "" {
				return
			}
			regionURL, err := normalize.ResolveURL(baseURL, href)
			if err != nil {
				return
			}
			regions.Set(name, regionURL)
		})
	})

	return regions, nil
}

// FindFacilityEntries returns every facility link of a region listing page,
// selector by selector, so regular entries come before base entries.
func (s *Scraper) FindFacilityEntries(doc *goquery.Document, pageURL string) []Anchor {
	var anchors []Anchor

	for _, selector := range s.selectors.FacilityEntries {
		doc.Find(selector).Each(func(_ int, entry *goquery.Selection) {
			link := entry.Find("a").First()
			href, ok := link.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return
			}

			title, _ := link.Attr("title")
			name := s.normalizer.Text(title)
			if name == "" {
				name = s.normalizer.Text(link.Text())
			}
			if name == "" {
				return
			}

			facilityURL, err := normalize.ResolveURL(pageURL, href)
			if err != nil {
				return
			}
			anchors = append(anchors, Anchor{Name: name, URL: facilityURL})
		})
	}

	return anchors
}

// ParseDetail extracts contact fields from a facility detail page. Missing
// phone or website containers give empty strings. An unusable address block
// returns the facility together with an *AddressError.
func (s *Scraper) ParseDetail(doc *goquery.Document, entry FacilityEntry) (Facility, error) {
	facility := Facility{
		Name:   entry.Name,
		Region: entry.Region,
		URL:    entry.URL,
	}

	if phone := doc.Find(s.selectors.Phone).First(); phone.Length() > 0 {
		facility.Phone = s.normalizer.Text(phone.Find("a").First().Text())
	}

	if website := doc.Find(s.selectors.Website).First(); website.Length() > 0 {
		href, _ := website.Find("a").First().Attr("href")
		facility.Website = strings.TrimSpace(href)
	}

	block := doc.Find(s.selectors.Address).First()
	if block.Length() == 0 {
		return facility, &AddressError{Reason: s.selectors.Address + " not found"}
	}

	raw, err := block.Html()
	if err != nil {
		return facility, &AddressError{Reason: err.Error()}
	}

	address, err := ParseAddressBlock(raw, s.normalizer)
	if err != nil {
		return facility, err
	}
	facility.Address = address

	return facility, nil
}
