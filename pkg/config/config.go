package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the sreality scraper.
// The value is built once at startup and passed to each component; nothing
// mutates it afterwards.
type Config struct {
	// Catalog API settings
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Fetch retry / throttling settings
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// TOR identity rotation settings
	Tor TorConfig `yaml:"tor" json:"tor"`

	// On-disk layout of the data stores
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CatalogConfig holds the remote catalog endpoints and search constants.
type CatalogConfig struct {
	BaseURL      string `yaml:"base_url" json:"base_url"`
	ItemBaseURL  string `yaml:"item_base_url" json:"item_base_url"`
	APIURL       string `yaml:"api_url" json:"api_url"`
	ItemsPerPage int    `yaml:"items_per_page" json:"items_per_page"`
}

// FetchConfig holds the resilient fetcher policy. The delay is constant by
// design and is consumed after every request, success or failure.
type FetchConfig struct {
	Attempts    int           `yaml:"attempts" json:"attempts"`
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// TorConfig holds the identity rotation settings.
type TorConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	SocksAddr       string        `yaml:"socks_addr" json:"socks_addr"`
	ControlAddr     string        `yaml:"control_addr" json:"control_addr"`
	ControlPassword string        `yaml:"control_password" json:"control_password"`
	RotateEvery     int           `yaml:"rotate_every_pages" json:"rotate_every_pages"`
	RotateWait      time.Duration `yaml:"rotate_wait" json:"rotate_wait"`
	IPCheckURL      string        `yaml:"ip_check_url" json:"ip_check_url"`
}

// StorageConfig holds the flat-file store layout.
type StorageConfig struct {
	CSVPath        string `yaml:"csv_path" json:"csv_path"`
	BackupPath     string `yaml:"backup_path" json:"backup_path"`
	CheckpointPath string `yaml:"checkpoint_path" json:"checkpoint_path"`
	JSONDir        string `yaml:"json_dir" json:"json_dir"`
	ImageDir       string `yaml:"image_dir" json:"image_dir"`
	CropTop        int    `yaml:"crop_top" json:"crop_top"`
	CropLeft       int    `yaml:"crop_left" json:"crop_left"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with the scraper's stock policy.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:      "https://www.sreality.cz/",
			ItemBaseURL:  "https://www.sreality.cz/detail/prodej/byt/",
			APIURL:       "https://www.sreality.cz/api/cs/v2/estates",
			ItemsPerPage: 60,
		},
		Fetch: FetchConfig{
			Attempts:    3,
			SettleDelay: 2 * time.Second,
			Timeout:     30 * time.Second,
		},
		Tor: TorConfig{
			Enabled:     false,
			SocksAddr:   "127.0.0.1:9050",
			ControlAddr: "127.0.0.1:9051",
			RotateEvery: 1,
			RotateWait:  60 * time.Second,
			IPCheckURL:  "https://api.ipify.org",
		},
		Storage: StorageConfig{
			CSVPath:        "estates.csv",
			BackupPath:     "estates.csv.bak",
			CheckpointPath: "last_processed_page.txt",
			JSONDir:        "json",
			ImageDir:       "img",
			CropTop:        43,
			CropLeft:       187,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration overrides from environment variables.
func (c *Config) LoadFromEnv() error {
	if socks := os.Getenv("SREALITY_TOR_SOCKS_ADDR"); socks != "" {
		c.Tor.SocksAddr = socks
		c.Tor.Enabled = true
	}
	if control := os.Getenv("SREALITY_TOR_CONTROL_ADDR"); control != "" {
		c.Tor.ControlAddr = control
	}
	if password := os.Getenv("SREALITY_TOR_CONTROL_PASSWORD"); password != "" {
		c.Tor.ControlPassword = password
	}
	if csvPath := os.Getenv("SREALITY_CSV_PATH"); csvPath != "" {
		c.Storage.CSVPath = csvPath
		c.Storage.BackupPath = csvPath + ".bak"
	}
	if attempts := os.Getenv("SREALITY_FETCH_ATTEMPTS"); attempts != "" {
		var val int
		fmt.Sscanf(attempts, "%d", &val)
		if val > 0 {
			c.Fetch.Attempts = val
		}
	}
	if delay := os.Getenv("SREALITY_SETTLE_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil && d >= 0 {
			c.Fetch.SettleDelay = d
		}
	}
	if logLevel := os.Getenv("SREALITY_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".sreality-scraper.yaml",
		".sreality-scraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "sreality-scraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".sreality-scraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Catalog.BaseURL == "" {
		errs = append(errs, errors.New("catalog base URL is required"))
	}
	if c.Catalog.APIURL == "" {
		errs = append(errs, errors.New("catalog API URL is required"))
	}
	if c.Catalog.ItemsPerPage <= 0 {
		errs = append(errs, errors.New("items per page must be positive"))
	}
	if c.Fetch.Attempts <= 0 {
		errs = append(errs, errors.New("fetch attempts must be positive"))
	}
	if c.Fetch.SettleDelay < 0 {
		errs = append(errs, errors.New("settle delay cannot be negative"))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}
	if c.Tor.Enabled {
		if c.Tor.SocksAddr == "" {
			errs = append(errs, errors.New("TOR socks address is required when TOR is enabled"))
		}
		if c.Tor.ControlAddr == "" {
			errs = append(errs, errors.New("TOR control address is required when TOR is enabled"))
		}
		if c.Tor.RotateEvery <= 0 {
			errs = append(errs, errors.New("rotation cadence must be positive"))
		}
	}
	if c.Storage.CSVPath == "" {
		errs = append(errs, errors.New("CSV path is required"))
	}
	if c.Storage.JSONDir == "" {
		errs = append(errs, errors.New("JSON directory is required"))
	}
	if c.Storage.ImageDir == "" {
		errs = append(errs, errors.New("image directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: environment variables > .env file > config file > defaults.
func Load(configPath string) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".sreality-scraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
