package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

type Config struct {
	Sites         SitesConfig         `yaml:"sites"`
	Paths         PathsConfig         `yaml:"paths"`
	HTTP          HttpConfig          `yaml:"http"`
	Cache         CacheConfig         `yaml:"cache"`
	Rod           RodConfig           `yaml:"rod"`
	SelectorsFile string              `yaml:"selectors_file"`
	Normalize     NormalizeConfig     `yaml:"normalize"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type SitesConfig struct {
	BaseURL        string `yaml:"base_url"`
	EntryURL       string `yaml:"entry_url"`
	AllRegionsName string `yaml:"all_regions_name"`
}

// PathsConfig replaces the fixed ./pages and ./data working-directory layout.
type PathsConfig struct {
	CacheDir       string `yaml:"cache_dir"`
	DataDir        string `yaml:"data_dir"`
	OutputDir      string `yaml:"output_dir"`
	RegionsFile    string `yaml:"regions_file"`
	FacilitiesFile string `yaml:"facilities_file"`
	CSVFile        string `yaml:"csv_file"`
	XLSXFile       string `yaml:"xlsx_file"`
}

type HttpConfig struct {
	UserAgent       string `yaml:"user_agent"`
	TotalTimeoutMS  int    `yaml:"total_timeout_ms"`
	CourtesyDelayMS int    `yaml:"courtesy_delay_ms"`
}

type CacheConfig struct {
	KeyStrategy string `yaml:"key_strategy"`
}

type RodConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ChromePath       string `yaml:"chrome_path"`
	PageTimeoutS     int    `yaml:"page_timeout_s"`
	WaitLoadTimeoutS int    `yaml:"wait_load_timeout_s"`
	LazyLoadDelayS   int    `yaml:"lazy_load_delay_s"`
}

type NormalizeConfig struct {
	TrimNBSP       bool     `yaml:"trim_nbsp"`
	CollapseSpaces bool     `yaml:"collapse_spaces"`
	CityQualifiers []string `yaml:"city_qualifiers"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type ObservabilityConfig struct {
	LogPath       string `yaml:"log_path"`
	LogLevel      string `yaml:"log_level"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
}

const (
	KeyStrategyBasename = "basename"
	KeyStrategyHash     = "hash"

	DriverSQLite = "sqlite"
	DriverMSSQL  = "mssql"
)

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Sites: SitesConfig{
			BaseURL:        "https://www.bottinsante.ca/",
			EntryURL:       "https://www.bottinsante.ca/CHSLD-Quebec-1.html",
			AllRegionsName: "Tout le Québec",
		},
		Paths: PathsConfig{
			CacheDir:       "pages",
			DataDir:        "data",
			OutputDir:      ".",
			RegionsFile:    "regions.json",
			FacilitiesFile: "CHSLDs.json",
			CSVFile:        "CHSLDs.csv",
			XLSXFile:       "CHSLDs.xlsx",
		},
		HTTP: HttpConfig{
			CourtesyDelayMS: 1000,
		},
		Cache: CacheConfig{
			KeyStrategy: KeyStrategyBasename,
		},
		Rod: RodConfig{
			PageTimeoutS:     30,
			WaitLoadTimeoutS: 15,
		},
		Normalize: NormalizeConfig{
			TrimNBSP:       true,
			CollapseSpaces: true,
			CityQualifiers: []string{"(Québec)"},
		},
		Storage: StorageConfig{
			CommandTimeoutMS: 5000,
		},
		Observability: ObservabilityConfig{
			LogLevel:      "info",
			LogMaxSizeMB:  10,
			LogMaxBackups: 3,
			LogMaxAgeDays: 28,
		},
	}
}

// Validation
func (c *Config) Validate() error {
	if c.Sites.BaseURL == "" {
		return fmt.Errorf("sites.base_url is required")
	}
	if _, err := url.Parse(c.Sites.BaseURL); err != nil {
		return fmt.Errorf("sites.base_url is invalid: %w", err)
	}
	if c.Sites.EntryURL == "" {
		return fmt.Errorf("sites.entry_url is required")
	}
	if c.Paths.CacheDir == "" {
		return fmt.Errorf("paths.cache_dir is required")
	}
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir is required")
	}
	if c.Paths.OutputDir == "" {
		return fmt.Errorf("paths.output_dir is required")
	}
	if c.Paths.RegionsFile == "" || c.Paths.FacilitiesFile == "" {
		return fmt.Errorf("paths.regions_file and paths.facilities_file are required")
	}
	if c.Paths.CSVFile == "" || c.Paths.XLSXFile == "" {
		return fmt.Errorf("paths.csv_file and paths.xlsx_file are required")
	}
	if c.HTTP.TotalTimeoutMS < 0 {
		return fmt.Errorf("http.total_timeout_ms must be >= 0")
	}
	if c.HTTP.CourtesyDelayMS < 0 {
		return fmt.Errorf("http.courtesy_delay_ms must be >= 0")
	}
	if c.Cache.KeyStrategy != KeyStrategyBasename && c.Cache.KeyStrategy != KeyStrategyHash {
		return fmt.Errorf("cache.key_strategy must be '%s' or '%s'", KeyStrategyBasename, KeyStrategyHash)
	}
	if c.Rod.Enabled {
		if c.Rod.PageTimeoutS <= 0 {
			return fmt.Errorf("rod.page_timeout_s must be > 0")
		}
		if c.Rod.WaitLoadTimeoutS <= 0 {
			return fmt.Errorf("rod.wait_load_timeout_s must be > 0")
		}
		if c.Rod.LazyLoadDelayS < 0 {
			return fmt.Errorf("rod.lazy_load_delay_s must be >= 0")
		}
	}
	switch c.Storage.Driver {
	case "":
	case DriverSQLite, DriverMSSQL:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required when storage.driver is set")
		}
		if c.Storage.CommandTimeoutMS <= 0 {
			return fmt.Errorf("storage.command_timeout_ms must be > 0")
		}
	default:
		return fmt.Errorf("storage.driver must be empty, '%s' or '%s'", DriverSQLite, DriverMSSQL)
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	return nil
}

// Getters
func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetCourtesyDelay() time.Duration {
	return time.Duration(c.HTTP.CourtesyDelayMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}

func (c *Config) GetRodPageTimeout() time.Duration {
	return time.Duration(c.Rod.PageTimeoutS) * time.Second
}

func (c *Config) GetRodWaitLoadTimeout() time.Duration {
	return time.Duration(c.Rod.WaitLoadTimeoutS) * time.Second
}

func (c *Config) GetRodLazyLoadDelay() time.Duration {
	return time.Duration(c.Rod.LazyLoadDelayS) * time.Second
}

func (c *Config) RegionsPath() string {
	return filepath.Join(c.Paths.DataDir, c.Paths.RegionsFile)
}

func (c *Config) FacilitiesPath() string {
	return filepath.Join(c.Paths.DataDir, c.Paths.FacilitiesFile)
}

func (c *Config) CSVPath() string {
	return filepath.Join(c.Paths.OutputDir, c.Paths.CSVFile)
}

func (c *Config) XLSXPath() string {
	return filepath.Join(c.Paths.OutputDir, c.Paths.XLSXFile)
}
