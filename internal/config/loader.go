package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is tried when no config file is given explicitly.
const DefaultPath = "configs/config.yaml"

// LoadConfig decodes the YAML file at filePath over Default() and validates the result.
func LoadConfig(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("Warning: failed to close config file: %v", closeErr)
		}
	}()

	cfg := Default()
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return cfg, nil
}

// Resolve loads filePath when set. Otherwise it loads DefaultPath if that file
// exists and falls back to Default().
func Resolve(filePath string) (*Config, error) {
	if filePath != "" {
		return LoadConfig(filePath)
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return LoadConfig(DefaultPath)
	}
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}
	return cfg, nil
}
