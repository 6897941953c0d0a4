package scraper

// Selectors locates each structure of interest on the two sites.
type Selectors struct {
	RegionContainer string   `yaml:"region_container"`
	RegionGroup     string   `yaml:"region_group"`
	RegionEntry     string   `yaml:"region_entry"`
	FacilityEntries []string `yaml:"facility_entries"`
	Phone           string   `yaml:"phone"`
	Website         string   `yaml:"website"`
	Address         string   `yaml:"address"`
}

func DefaultSelectors() *Selectors {
	return &Selectors{
		RegionContainer: "div.regions-wrap",
		RegionGroup:     "div.colonne",
		RegionEntry:     "p",
		FacilityEntries: []string{"div.regulier", "div.base"},
		Phone:           "div#fiche-telephone-appeler",
		Website:         "div#fiche-web-url",
		Address:         "p.adresse",
	}
}

// Anchor is a facility link found on a region listing page.
type Anchor struct {
	Name string
	URL  string
}

type Region struct {
	Name string
	URL  string
}

// RegionMap maps region display names to listing URLs, in page order.
type RegionMap struct {
	m orderedMap[string]
}

func (r *RegionMap) Set(name, url string) {
	r.m.set(name, url)
}

func (r *RegionMap) Get(name string) (string, bool) {
	return r.m.get(name)
}

func (r *RegionMap) Len() int {
	return r.m.len()
}

func (r *RegionMap) Regions() []Region {
	regions := make([]Region, 0, r.m.len())
	r.m.each(func(name, url string) {
		regions = append(regions, Region{Name: name, URL: url})
	})
	return regions
}

func (r RegionMap) MarshalJSON() ([]byte, error) {
	return r.m.marshal()
}

func (r *RegionMap) UnmarshalJSON(data []byte) error {
	return r.m.unmarshal(data)
}

// FacilityEntry is one facility found on a region listing page.
type FacilityEntry struct {
	Name   string `json:"-"`
	URL    string `json:"link"`
	Region string `json:"region"`
}

// FacilityIndex is keyed by facility name. A name listed by several regions
// keeps its first position but takes the values of the last region seen.
type FacilityIndex struct {
	m orderedMap[FacilityEntry]
}

func (f *FacilityIndex) Set(entry FacilityEntry) {
	f.m.set(entry.Name, entry)
}

func (f *FacilityIndex) Get(name string) (FacilityEntry, bool) {
	entry, ok := f.m.get(name)
	if ok {
		entry.Name = name
	}
	return entry, ok
}

func (f *FacilityIndex) Len() int {
	return f.m.len()
}

func (f *FacilityIndex) Entries() []FacilityEntry {
	entries := make([]FacilityEntry, 0, f.m.len())
	f.m.each(func(name string, entry FacilityEntry) {
		entry.Name = name
		entries = append(entries, entry)
	})
	return entries
}

func (f FacilityIndex) MarshalJSON() ([]byte, error) {
	return f.m.marshal()
}

func (f *FacilityIndex) UnmarshalJSON(data []byte) error {
	return f.m.unmarshal(data)
}

type Address struct {
	Street     string
	City       string
	PostalCode string
}

// Facility is the consolidated record of one CHSLD. Address is nil when the
// detail page did not yield street, city and postal code.
type Facility struct {
	Name    string
	Region  string
	URL     string
	Phone   string
	Website string
	Address *Address
}
