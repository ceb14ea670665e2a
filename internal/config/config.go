package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	QueueDir  string `toml:"queue_dir"`
	CartPath  string `toml:"cart_path"`
	AssetsDir string `toml:"assets_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Device contains configuration for the target reading device.
type Device struct {
	Name               string `toml:"name"`
	DocumentsDir       string `toml:"documents_dir"`
	CatalogFile        string `toml:"catalog_file"`
	SafetyMarginBytes  int64  `toml:"safety_margin_bytes"`
	ScanTimeoutSeconds int    `toml:"scan_timeout_seconds"`
}

// Fetch contains configuration for page downloads.
type Fetch struct {
	Concurrency    int    `toml:"concurrency"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PageWidth      int    `toml:"page_width"`
	UserAgent      string `toml:"user_agent"`
}

// Packager contains configuration for ebook packaging and conversion.
type Packager struct {
	KindlegenBinary       string `toml:"kindlegen_binary"`
	ConvertTimeoutSeconds int    `toml:"convert_timeout_seconds"`
	Author                string `toml:"author"`
}

// MangaDex contains configuration for the content catalog API.
type MangaDex struct {
	BaseURL        string `toml:"base_url"`
	UploadsURL     string `toml:"uploads_url"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	CacheMinutes   int    `toml:"cache_minutes"`
}

// History contains configuration for the delivery journal.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Notifications contains configuration for ntfy push messages.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for mangadrop.
//
// Configuration sections by subsystem:
//   - Paths: work, queue, cart, assets, log and state locations
//   - Device: target device label, catalog layout, capacity margin
//   - Fetch: page download concurrency, timeouts and page geometry
//   - Packager: kindlegen binary and ebook metadata
//   - MangaDex: content catalog API endpoints and caching
//   - History: delivery journal toggle
//   - Notifications: optional ntfy topic for batch summaries
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Device   Device   `toml:"device"`
	Fetch    Fetch    `toml:"fetch"`
	Packager Packager `toml:"packager"`
	MangaDex MangaDex `toml:"mangadex"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mangadrop/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mangadrop.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories the pipeline writes into.
// The device is never touched here; it may be absent.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.QueueDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.CartPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cart directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the location of the delivery queue database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.QueueDir, queueDBFileName)
}

// HistoryDBPath returns the location of the delivery journal.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the lock file guarding store mutations.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "mangadrop.lock")
}

// EndOfChapterImage returns the marker page appended to every chapter.
func (c *Config) EndOfChapterImage() string {
	return filepath.Join(c.Paths.AssetsDir, EndOfChapterFile)
}

// EndOfVolumeImage returns the marker page appended to every volume.
func (c *Config) EndOfVolumeImage() string {
	return filepath.Join(c.Paths.AssetsDir, EndOfVolumeFile)
}

// CoverNotFoundImage returns the overlay composited onto placeholder covers.
func (c *Config) CoverNotFoundImage() string {
	return filepath.Join(c.Paths.AssetsDir, CoverNotFoundFile)
}

// FetchTimeout returns the per-page download timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// ConvertTimeout returns the kindlegen invocation timeout.
func (c *Config) ConvertTimeout() time.Duration {
	return time.Duration(c.Packager.ConvertTimeoutSeconds) * time.Second
}

// ScanTimeout returns the device enumeration timeout.
func (c *Config) ScanTimeout() time.Duration {
	return time.Duration(c.Device.ScanTimeoutSeconds) * time.Second
}

// MangaDexTimeout returns the catalog API request timeout.
func (c *Config) MangaDexTimeout() time.Duration {
	return time.Duration(c.MangaDex.TimeoutSeconds) * time.Second
}

// NotifyTimeout returns the ntfy request timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// MangaDexCacheTTL returns how long resolved series stay memoized.
func (c *Config) MangaDexCacheTTL() time.Duration {
	return time.Duration(c.MangaDex.CacheMinutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
