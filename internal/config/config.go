// Package config loads moodify settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/justestif/moodify/internal/catalog"
	"github.com/justestif/moodify/internal/vision"
)

// Catalog providers.
const (
	ProviderSpotify = "spotify"
	ProviderLastFM  = "lastfm"
)

// Classifier backends.
const (
	BackendHTTP   = "http"
	BackendWorker = "worker"
)

// MaxLimit is the largest number of tracks a run may request.
const MaxLimit = 50

// Config contains the program configuration
type Config struct {
	Verbose     bool   `yaml:"verbose"`
	LogFile     string `yaml:"log_file"`
	DatabaseURL string `yaml:"database_url"` // Empty disables run history

	Server     ServerConfig     `yaml:"server"`
	Detector   DetectorConfig   `yaml:"detector"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Catalog    CatalogConfig    `yaml:"catalog"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// DetectorConfig configures face detection.
type DetectorConfig struct {
	Cascade               string `yaml:"cascade"`    // Path to a pigo cascade file
	MaxPixels             int    `yaml:"max_pixels"` // Larger images are rejected before decoding
	vision.DetectorConfig `yaml:",inline"`
}

// ClassifierConfig selects and configures the emotion model backend.
type ClassifierConfig struct {
	Backend  string        `yaml:"backend"`
	Endpoint string        `yaml:"endpoint"` // http backend
	Command  []string      `yaml:"command"`  // worker backend: program and arguments
	Timeout  time.Duration `yaml:"timeout"`
}

// CatalogConfig selects and configures the recommendation source.
type CatalogConfig struct {
	Provider string        `yaml:"provider"`
	Limit    int           `yaml:"limit"`
	Timeout  time.Duration `yaml:"timeout"`

	// Spotify
	SpotifyClientID     string `yaml:"spotify_client_id"`
	SpotifyClientSecret string `yaml:"spotify_client_secret"`
	Market              string `yaml:"market"`
	Retry               bool   `yaml:"retry"` // Let the Spotify client wait out rate limits

	// Last.fm
	LastFMAPIKey      string          `yaml:"lastfm_api_key"`
	LastFMRetryDelays []time.Duration `yaml:"lastfm_retry_delays"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 10 << 20,
		},
		Detector: DetectorConfig{
			Cascade:        "cascade/facefinder",
			MaxPixels:      vision.DefaultMaxPixels,
			DetectorConfig: vision.DefaultDetectorConfig(),
		},
		Classifier: ClassifierConfig{
			Backend:  BackendHTTP,
			Endpoint: "http://127.0.0.1:5000/predict",
			Timeout:  10 * time.Second,
		},
		Catalog: CatalogConfig{
			Provider: ProviderSpotify,
			Limit:    catalog.DefaultLimit,
			Timeout:  10 * time.Second,
		},
	}
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations and returns defaults if no
// file is found. A path given explicitly must exist.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.Detector.Cascade = ExpandHome(cfg.Detector.Cascade)
	cfg.LogFile = ExpandHome(cfg.LogFile)

	return cfg, nil
}

// ApplyEnv overrides settings from the environment. Unset or empty variables
// leave the current value.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Catalog.SpotifyClientID, "SPOTIFY_ID")
	set(&c.Catalog.SpotifyClientSecret, "SPOTIFY_SECRET")
	set(&c.Catalog.LastFMAPIKey, "LASTFM_API_KEY")
	set(&c.DatabaseURL, "DATABASE_URL")
	set(&c.Classifier.Endpoint, "MOODIFY_CLASSIFIER_URL")
	set(&c.Detector.Cascade, "MOODIFY_CASCADE")
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./moodify.yaml",
		"./moodify.yml",
		filepath.Join(home, ".config", "moodify", "config.yaml"),
		filepath.Join(home, ".config", "moodify", "config.yml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	d := c.Detector
	if d.Cascade == "" {
		errs = append(errs, fmt.Errorf("detector.cascade cannot be empty"))
	}
	if d.ScaleFactor <= 1 {
		errs = append(errs, fmt.Errorf("detector.scale_factor must be greater than 1, got %.2f", d.ScaleFactor))
	}
	if d.ShiftFactor <= 0 || d.ShiftFactor > 1 {
		errs = append(errs, fmt.Errorf("detector.shift_factor must be in (0, 1], got %.2f", d.ShiftFactor))
	}
	if d.MinSize < 1 {
		errs = append(errs, fmt.Errorf("detector.min_size must be at least 1, got %d", d.MinSize))
	}
	if d.MaxSize < d.MinSize {
		errs = append(errs, fmt.Errorf("detector.max_size (%d) cannot be below min_size (%d)", d.MaxSize, d.MinSize))
	}
	if d.IoUThreshold <= 0 || d.IoUThreshold > 1 {
		errs = append(errs, fmt.Errorf("detector.iou_threshold must be in (0, 1], got %.2f", d.IoUThreshold))
	}
	if d.MaxPixels < 1 {
		errs = append(errs, fmt.Errorf("detector.max_pixels must be positive, got %d", d.MaxPixels))
	}

	switch c.Classifier.Backend {
	case BackendHTTP:
		if !strings.HasPrefix(c.Classifier.Endpoint, "http://") && !strings.HasPrefix(c.Classifier.Endpoint, "https://") {
			errs = append(errs, fmt.Errorf("classifier.endpoint must start with http:// or https://"))
		}
	case BackendWorker:
		if len(c.Classifier.Command) == 0 {
			errs = append(errs, fmt.Errorf("classifier.command is required for the worker backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown classifier backend %q, valid backends: %s, %s", c.Classifier.Backend, BackendHTTP, BackendWorker))
	}
	if c.Classifier.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("classifier.timeout must be positive, got %s", c.Classifier.Timeout))
	}

	cat := c.Catalog
	switch cat.Provider {
	case ProviderSpotify:
		if cat.SpotifyClientID == "" || cat.SpotifyClientSecret == "" {
			errs = append(errs, fmt.Errorf("spotify_client_id and spotify_client_secret are required for the spotify provider"))
		}
	case ProviderLastFM:
		if cat.LastFMAPIKey == "" {
			errs = append(errs, fmt.Errorf("lastfm_api_key is required for the lastfm provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown catalog provider %q, valid providers: %s, %s", cat.Provider, ProviderSpotify, ProviderLastFM))
	}
	if cat.Limit < 1 || cat.Limit > MaxLimit {
		errs = append(errs, fmt.Errorf("catalog.limit must be between 1 and %d, got %d", MaxLimit, cat.Limit))
	}
	if cat.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("catalog.timeout must be positive, got %s", cat.Timeout))
	}

	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes))
	}

	return errors.Join(errs...)
}
