package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.Catalog.SpotifyClientID = "id"
		cfg.Catalog.SpotifyClientSecret = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults with credentials",
			modify: func(c *Config) {},
		},
		{
			name:    "missing spotify secret",
			modify:  func(c *Config) { c.Catalog.SpotifyClientSecret = "" },
			wantErr: true,
		},
		{
			name: "lastfm needs its key",
			modify: func(c *Config) {
				c.Catalog.Provider = ProviderLastFM
			},
			wantErr: true,
		},
		{
			name: "lastfm without spotify creds",
			modify: func(c *Config) {
				c.Catalog.Provider = ProviderLastFM
				c.Catalog.LastFMAPIKey = "key"
				c.Catalog.SpotifyClientID = ""
				c.Catalog.SpotifyClientSecret = ""
			},
		},
		{
			name:    "unknown provider",
			modify:  func(c *Config) { c.Catalog.Provider = "deezer" },
			wantErr: true,
		},
		{
			name:    "limit 0",
			modify:  func(c *Config) { c.Catalog.Limit = 0 },
			wantErr: true,
		},
		{
			name:   "limit 50",
			modify: func(c *Config) { c.Catalog.Limit = 50 },
		},
		{
			name:    "limit 51",
			modify:  func(c *Config) { c.Catalog.Limit = 51 },
			wantErr: true,
		},
		{
			name:    "zero catalog timeout",
			modify:  func(c *Config) { c.Catalog.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "zero classifier timeout",
			modify:  func(c *Config) { c.Classifier.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "endpoint without scheme",
			modify:  func(c *Config) { c.Classifier.Endpoint = "localhost:5000/predict" },
			wantErr: true,
		},
		{
			name:    "worker without command",
			modify:  func(c *Config) { c.Classifier.Backend = BackendWorker },
			wantErr: true,
		},
		{
			name: "worker with command",
			modify: func(c *Config) {
				c.Classifier.Backend = BackendWorker
				c.Classifier.Command = []string{"python3", "model_worker.py"}
			},
		},
		{
			name:    "unknown backend",
			modify:  func(c *Config) { c.Classifier.Backend = "grpc" },
			wantErr: true,
		},
		{
			name:    "scale factor 1",
			modify:  func(c *Config) { c.Detector.ScaleFactor = 1 },
			wantErr: true,
		},
		{
			name:    "shift factor 0",
			modify:  func(c *Config) { c.Detector.ShiftFactor = 0 },
			wantErr: true,
		},
		{
			name:   "shift factor 1",
			modify: func(c *Config) { c.Detector.ShiftFactor = 1 },
		},
		{
			name:    "max size below min size",
			modify:  func(c *Config) { c.Detector.MaxSize = 20 },
			wantErr: true,
		},
		{
			name:    "iou above 1",
			modify:  func(c *Config) { c.Detector.IoUThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "empty cascade",
			modify:  func(c *Config) { c.Detector.Cascade = "" },
			wantErr: true,
		},
		{
			name:    "zero pixel budget",
			modify:  func(c *Config) { c.Detector.MaxPixels = 0 },
			wantErr: true,
		},
		{
			name:    "zero upload size",
			modify:  func(c *Config) { c.Server.MaxUploadBytes = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `verbose: true
database_url: postgres://localhost/moodify
detector:
  cascade: /opt/cascade/facefinder
  min_size: 60
classifier:
  backend: worker
  command: [python3, worker.py]
  timeout: 3s
catalog:
  provider: lastfm
  limit: 8
  timeout: 1500ms
  lastfm_api_key: abc
  lastfm_retry_delays: [1s, 2s]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error: %v", err)
	}

	if !cfg.Verbose {
		t.Error("Verbose = false, want true")
	}
	if cfg.Detector.Cascade != "/opt/cascade/facefinder" {
		t.Errorf("Cascade = %q", cfg.Detector.Cascade)
	}
	if cfg.Detector.MinSize != 60 {
		t.Errorf("MinSize = %d, want 60", cfg.Detector.MinSize)
	}
	// Unset detector fields keep their defaults.
	if cfg.Detector.ScaleFactor != 1.1 {
		t.Errorf("ScaleFactor = %v, want default 1.1", cfg.Detector.ScaleFactor)
	}
	if cfg.Classifier.Backend != BackendWorker || len(cfg.Classifier.Command) != 2 {
		t.Errorf("Classifier = %+v", cfg.Classifier)
	}
	if cfg.Classifier.Timeout != 3*time.Second {
		t.Errorf("Classifier.Timeout = %s, want 3s", cfg.Classifier.Timeout)
	}
	if cfg.Catalog.Timeout != 1500*time.Millisecond {
		t.Errorf("Catalog.Timeout = %s, want 1.5s", cfg.Catalog.Timeout)
	}
	if cfg.Catalog.Limit != 8 {
		t.Errorf("Limit = %d, want 8", cfg.Catalog.Limit)
	}
	if len(cfg.Catalog.LastFMRetryDelays) != 2 || cfg.Catalog.LastFMRetryDelays[1] != 2*time.Second {
		t.Errorf("LastFMRetryDelays = %v", cfg.Catalog.LastFMRetryDelays)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadConfigFile() error = %v, want fs.ErrNotExist for an explicit path", err)
	}
}

func TestLoadConfigFile_NoFileFound(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfigFile("")
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}
	if cfg.Catalog.Limit != DefaultConfig().Catalog.Limit {
		t.Errorf("Limit = %d, want default", cfg.Catalog.Limit)
	}
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("catalog: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(path); err == nil {
		t.Error("LoadConfigFile() should fail on malformed YAML")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SPOTIFY_ID", "env-id")
	t.Setenv("SPOTIFY_SECRET", "env-secret")
	t.Setenv("LASTFM_API_KEY", "")
	t.Setenv("DATABASE_URL", "postgres://env/moodify")
	t.Setenv("MOODIFY_CLASSIFIER_URL", "http://model:5000/predict")
	t.Setenv("MOODIFY_CASCADE", "/env/facefinder")

	cfg := DefaultConfig()
	cfg.Catalog.LastFMAPIKey = "from-file"
	cfg.ApplyEnv()

	if cfg.Catalog.SpotifyClientID != "env-id" || cfg.Catalog.SpotifyClientSecret != "env-secret" {
		t.Errorf("spotify creds = %q/%q", cfg.Catalog.SpotifyClientID, cfg.Catalog.SpotifyClientSecret)
	}
	if cfg.Catalog.LastFMAPIKey != "from-file" {
		t.Errorf("LastFMAPIKey = %q, want empty env to keep from-file", cfg.Catalog.LastFMAPIKey)
	}
	if cfg.DatabaseURL != "postgres://env/moodify" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Classifier.Endpoint != "http://model:5000/predict" {
		t.Errorf("Endpoint = %q", cfg.Classifier.Endpoint)
	}
	if cfg.Detector.Cascade != "/env/facefinder" {
		t.Errorf("Cascade = %q", cfg.Detector.Cascade)
	}
}

func TestExpandHome(t *testing.T) {
	home := homeDir()

	tests := []struct {
		in   string
		want string
	}{
		{"~/cascade/facefinder", filepath.Join(home, "cascade/facefinder")},
		{"/abs/path", "/abs/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
