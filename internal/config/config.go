package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mediasort/internal/event"
)

// ICSConfig describes a subscribed calendar whose all-day events are merged
// into the event table.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used as the event source and for logging.
	ID string `yaml:"id" json:"id"`
	// Name is a folder prefix for imported events (e.g. "Holidays"). Empty
	// means events keep their summary as name.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// SeasonNames are the folder names used by the season fallback.
type SeasonNames struct {
	Winter string `yaml:"winter" json:"winter"`
	Spring string `yaml:"spring" json:"spring"`
	Summer string `yaml:"summer" json:"summer"`
	Autumn string `yaml:"autumn" json:"autumn"`
}

// Config is the top-level application configuration.
type Config struct {
	// InputDir is scanned for media files.
	InputDir string `yaml:"input_dir" json:"input_dir"`

	// OutputDir is the root of the sorted tree. Empty means InputDir.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// UnknownDir is the folder (relative to OutputDir) for files whose name
	// carries no date.
	UnknownDir string `yaml:"unknown_dir" json:"unknown_dir"`

	// Timezone is the IANA zone in which filename dates are interpreted.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Extensions lists the media extensions to sort (lowercase, with dot).
	Extensions []string `yaml:"extensions" json:"extensions"`

	// FilenamePatterns are extra regular expressions with named groups
	// year, month and day, tried before the built-in patterns.
	FilenamePatterns []string `yaml:"filename_patterns" json:"filename_patterns"`

	Seasons SeasonNames `yaml:"seasons" json:"seasons"`

	// KeepEmptyDirs disables pruning of emptied input directories.
	KeepEmptyDirs bool `yaml:"keep_empty_dirs" json:"keep_empty_dirs"`

	// DryRun logs planned moves without touching the filesystem.
	DryRun bool `yaml:"dry_run" json:"dry_run"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Events maps event names to one or more raw date strings.
	Events Events `yaml:"events" json:"events"`

	// ICS is the list of subscribed calendars.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// CacheDir stores ICS bodies and HTTP cache metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Listen is the HTTP listen address used by "serve".
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is a cron schedule (e.g. "0 * * * *") for periodic sort
	// runs in "serve". Empty disables scheduling.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Watch enables sorting on filesystem changes in "serve".
	Watch bool `yaml:"watch" json:"watch"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

var defaultExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".heic", ".heif", ".webp", ".tif", ".tiff",
	".dng", ".cr2", ".nef", ".arw",
	".mp4", ".mov", ".m4v", ".avi", ".mkv", ".3gp", ".mts", ".webm",
}

func defaultSeasons() SeasonNames {
	return SeasonNames{Winter: "Winter", Spring: "Spring", Summer: "Summer", Autumn: "Autumn"}
}

// DefaultPath returns $XDG_CONFIG_HOME/mediasort/config.yaml (or the
// platform equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "mediasort.yaml"
	}
	return filepath.Join(dir, "mediasort", "config.yaml")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "./cache/ics-cache"
	}
	return filepath.Join(dir, "mediasort", "ics-cache")
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		InputDir:         ".",
		UnknownDir:       "Unknown",
		Timezone:         "Local",
		Extensions:       append([]string(nil), defaultExtensions...),
		FilenamePatterns: []string{},
		Seasons:          defaultSeasons(),
		LogLevel:         "info",
		Events:           Events{},
		ICS:              []ICSConfig{},
		CacheDir:         defaultCacheDir(),
		Listen:           "127.0.0.1:8080",
		RefreshCron:      "",
		BasicAuth:        nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.InputDir == "" {
		c.InputDir = "."
	}
	if c.UnknownDir == "" {
		c.UnknownDir = "Unknown"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if len(c.Extensions) == 0 {
		c.Extensions = append([]string(nil), defaultExtensions...)
	}
	for i, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extensions[i] = ext
	}
	if c.FilenamePatterns == nil {
		c.FilenamePatterns = []string{}
	}

	d := defaultSeasons()
	if c.Seasons.Winter == "" {
		c.Seasons.Winter = d.Winter
	}
	if c.Seasons.Spring == "" {
		c.Seasons.Spring = d.Spring
	}
	if c.Seasons.Summer == "" {
		c.Seasons.Summer = d.Summer
	}
	if c.Seasons.Autumn == "" {
		c.Seasons.Autumn = d.Autumn
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}
	if c.Events == nil {
		c.Events = Events{}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			if c.ICS[i].Name != "" {
				c.ICS[i].ID = c.ICS[i].Name
			} else {
				c.ICS[i].ID = c.ICS[i].URL
			}
		}
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir()
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
}

// Root returns the directory sorted files are moved under.
func (c *Config) Root() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return c.InputDir
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Definitions converts the configured events for event.BuildTable.
func (c *Config) Definitions() []event.Definition {
	defs := make([]event.Definition, 0, len(c.Events))
	for _, e := range c.Events {
		defs = append(defs, event.Definition{
			Name:   e.Name,
			Dates:  append([]string(nil), e.Dates...),
			Source: event.SourceConfig,
		})
	}
	return defs
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML config bytes and normalizes the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".mediasort-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
