// Package config provides configuration loading and validation for the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/feed-localcopy/internal/types"
)

const appName = "feed-localcopy"

// Environment variables that override file values.
const (
	EnvDatabase = "LOCALCOPY_DATABASE"
	EnvLogLevel = "LOCALCOPY_LOG_LEVEL"
)

// DefaultMaxArticles is the page size used when max_articles is not set.
const DefaultMaxArticles = 200

// ErrEmptyPath is returned by LoadConfig for an empty path.
var ErrEmptyPath = errors.New("config path is empty")

// Config represents the aggregator configuration loaded from a YAML file.
// All fields are optional except Feeds; missing values use defaults.
type Config struct {
	Title        string        `yaml:"title,omitempty"`
	Database     string        `yaml:"database,omitempty"`
	Output       string        `yaml:"output,omitempty"`
	PageTemplate string        `yaml:"page_template,omitempty"`
	ItemTemplate string        `yaml:"item_template,omitempty"`
	Schedule     string        `yaml:"schedule,omitempty"`
	MaxArticles  *int          `yaml:"max_articles,omitempty" validate:"omitempty,gte=0"`
	LogLevel     string        `yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Fetch        FetchConfig   `yaml:"fetch,omitempty"`
	Feeds        []types.Feed  `yaml:"feeds" validate:"required,min=1,dive"`
	Plugins      PluginOptions `yaml:"plugins,omitempty"`
}

// FetchConfig controls how article pages are retrieved and reduced.
type FetchConfig struct {
	Timeout   string `yaml:"timeout,omitempty"`
	UserAgent string `yaml:"user_agent,omitempty"`
	Browser   bool   `yaml:"browser,omitempty"`
	Extractor string `yaml:"extractor,omitempty" validate:"omitempty,oneof=auto readability selectors"`
}

// TimeoutDuration returns the parsed fetch timeout; zero means none.
func (f FetchConfig) TimeoutDuration() (time.Duration, error) {
	if f.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config error: invalid fetch timeout %q: %w", f.Timeout, err)
	}
	return d, nil
}

// ArticleLimit returns how many articles the page shows. An explicit zero
// means all of them.
func (c *Config) ArticleLimit() int {
	if c.MaxArticles == nil {
		return DefaultMaxArticles
	}
	return *c.MaxArticles
}

// Defaults returns the values used for anything the file leaves empty.
func Defaults() Config {
	return Config{
		Title:       "Feeds",
		Database:    DefaultDatabasePath(),
		Output:      "output.html",
		Schedule:    "@every 30m",
		MaxArticles: intPtr(DefaultMaxArticles),
		LogLevel:    "info",
		Fetch:       FetchConfig{Extractor: "auto"},
	}
}

// DefaultConfigPath returns the XDG location of the config file.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// DefaultDatabasePath returns the XDG location of the SQLite article store.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, appName, "articles.db")
}

// LoadConfig loads configuration from a YAML file, fills defaults, applies
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	merged := cfg.MergeWithDefaults(Defaults())
	merged.applyEnv()

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("config error: %s failed %q validation", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := c.Fetch.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// Feeds and plugin options are never merged.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Title == "" {
		result.Title = defaults.Title
	}
	if result.Database == "" {
		result.Database = defaults.Database
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}
	if result.PageTemplate == "" {
		result.PageTemplate = defaults.PageTemplate
	}
	if result.ItemTemplate == "" {
		result.ItemTemplate = defaults.ItemTemplate
	}
	if result.Schedule == "" {
		result.Schedule = defaults.Schedule
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.MaxArticles == nil && defaults.MaxArticles != nil {
		result.MaxArticles = intPtr(*defaults.MaxArticles)
	}
	if result.Fetch.Timeout == "" {
		result.Fetch.Timeout = defaults.Fetch.Timeout
	}
	if result.Fetch.UserAgent == "" {
		result.Fetch.UserAgent = defaults.Fetch.UserAgent
	}
	if result.Fetch.Extractor == "" {
		result.Fetch.Extractor = defaults.Fetch.Extractor
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func intPtr(n int) *int {
	return &n
}
