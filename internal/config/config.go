package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig guards the whole service except /health. Password may be
// plain text or an "$argon2id$..." hash produced by `urnik hash-password`.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// PDFConfig controls headless Chromium PDF export of the grid view.
type PDFConfig struct {
	// Width/Height are the viewport size used before printing.
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
	// TimeoutSeconds bounds a whole render.
	TimeoutSeconds int  `yaml:"timeout_seconds" json:"timeout_seconds"`
	Landscape      bool `yaml:"landscape" json:"landscape"`
}

// Config is the top-level service configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// APIURL is the base URL of the upstream timetable API.
	APIURL string `yaml:"api_url" json:"api_url"`

	// Timezone is the IANA zone of the school; it decides "today" and the
	// time indicator.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is the cron spec used to re-warm the upstream options cache.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds ETag-revalidated upstream responses.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// PrefsPath is the YAML file the preference store writes to.
	PrefsPath string `yaml:"prefs_path" json:"prefs_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// ViewURL is the base URL headless Chromium uses to reach this service.
	// Empty means http://<listen>.
	ViewURL string `yaml:"view_url" json:"view_url"`

	PDF PDFConfig `yaml:"pdf" json:"pdf"`

	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultAPIURL      = "http://127.0.0.1:3000"
	defaultTimezone    = "Europe/Ljubljana"
	defaultRefreshCron = "*/30 * * * *"
	defaultCacheDir    = "/var/lib/urnik/cache"
	defaultPrefsPath   = "/var/lib/urnik/prefs.yaml"
	defaultPDFWidth    = 1400
	defaultPDFHeight   = 1000
	defaultPDFTimeout  = 30
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		APIURL:      defaultAPIURL,
		Timezone:    defaultTimezone,
		RefreshCron: defaultRefreshCron,
		CacheDir:    defaultCacheDir,
		PrefsPath:   defaultPrefsPath,
		LogLevel:    "info",
		PDF: PDFConfig{
			Width:          defaultPDFWidth,
			Height:         defaultPDFHeight,
			TimeoutSeconds: defaultPDFTimeout,
			Landscape:      true,
		},
	}
}

// Normalize fills in missing/zero values so partially written configs
// still work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	c.ViewURL = strings.TrimRight(c.ViewURL, "/")
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.PrefsPath == "" {
		c.PrefsPath = defaultPrefsPath
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PDF.Width <= 0 {
		c.PDF.Width = defaultPDFWidth
	}
	if c.PDF.Height <= 0 {
		c.PDF.Height = defaultPDFHeight
	}
	if c.PDF.TimeoutSeconds <= 0 {
		c.PDF.TimeoutSeconds = defaultPDFTimeout
	}
	// Empty credentials disable auth.
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// EffectiveViewURL is where the PDF renderer fetches /view from.
func (c *Config) EffectiveViewURL() string {
	if c.ViewURL != "" {
		return c.ViewURL
	}
	return "http://" + c.Listen
}

// Load loads configuration from the given YAML path.
//
// A missing file is created with defaults (0600) and the defaults are
// returned. An existing file is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller decides whether a read-only default is fine.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, ".urnik-config-*.tmp")
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// WriteFileAtomic writes data next to path and renames it into place.
func WriteFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
