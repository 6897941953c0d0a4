package scraper

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSelectors reads selectors from YAML. Keys missing from the file keep
// their DefaultSelectors value.
func LoadSelectors(filePath string) (*Selectors, error) {
	if filePath == "" {
		return nil, fmt.Errorf("selectors file path is empty")
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open selectors file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close selectors file: %v\n", closeErr)
		}
	}()

	selectors := DefaultSelectors()
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(selectors); err != nil {
		return nil, fmt.Errorf("failed to parse selectors YAML: %w", err)
	}

	if err := validateSelectors(selectors); err != nil {
		return nil, err
	}

	return selectors, nil
}

func validateSelectors(s *Selectors) error {
	if s.RegionContainer == "" {
		return fmt.Errorf("region_container is required")
	}
	if s.RegionGroup == "" {
		return fmt.Errorf("region_group is required")
	}
	if s.RegionEntry == "" {
		return fmt.Errorf("region_entry is required")
	}
	if len(s.FacilityEntries) == 0 {
		return fmt.Errorf("facility_entries is required")
	}
	if s.Phone == "" {
		return fmt.Errorf("phone is required")
	}
	if s.Website == "" {
		return fmt.Errorf("website is required")
	}
	if s.Address == "" {
		return fmt.Errorf("address is required")
	}
	return nil
}
