// Package config provides configuration loading and management for
// docforest.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/docforest/fetch"
	"github.com/c360studio/docforest/loader"
)

// Config represents the complete docforest configuration.
type Config struct {
	Fetch   FetchConfig   `yaml:"fetch"`
	Browser BrowserConfig `yaml:"browser"`
	Storage StorageConfig `yaml:"storage"`
	Watch   WatchConfig   `yaml:"watch"`
}

// FetchConfig configures the HTTP fetcher.
type FetchConfig struct {
	// Timeout is the per-request deadline
	Timeout time.Duration `yaml:"timeout"`
	// UserAgent is sent on every request
	UserAgent string `yaml:"user_agent"`
	// Concurrency caps simultaneous in-flight fetches
	Concurrency int `yaml:"concurrency"`
	// MaxContentSize limits response body bytes read per fetch
	MaxContentSize int64 `yaml:"max_content_size"`
}

// BrowserConfig configures the headless-browser fetcher.
type BrowserConfig struct {
	// Settle is the post-navigation wait before reading the DOM
	Settle time.Duration `yaml:"settle"`
	// Timeout bounds one navigation end to end
	Timeout time.Duration `yaml:"timeout"`
	// Workers is the fixed browser worker pool size
	Workers int `yaml:"workers"`
}

// StorageConfig configures where load results are persisted.
type StorageConfig struct {
	// Dir is the directory holding per-source page/artifact files
	Dir string `yaml:"dir"`
}

// WatchConfig configures file-source change watching.
type WatchConfig struct {
	// DebounceDelay is how long to wait for more changes before re-ingesting
	DebounceDelay time.Duration `yaml:"debounce_delay"`
	// ExcludeDirs lists directory names to skip
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	fetchDefaults := fetch.DefaultConfig()
	browserDefaults := fetch.DefaultBrowserConfig()
	watchDefaults := loader.DefaultWatchConfig()

	return &Config{
		Fetch: FetchConfig{
			Timeout:        fetchDefaults.Timeout,
			UserAgent:      fetchDefaults.UserAgent,
			Concurrency:    fetchDefaults.Concurrency,
			MaxContentSize: fetchDefaults.MaxContentSize,
		},
		Browser: BrowserConfig{
			Settle:  browserDefaults.Settle,
			Timeout: browserDefaults.Timeout,
			Workers: browserDefaults.Workers,
		},
		Storage: StorageConfig{
			Dir: "data",
		},
		Watch: WatchConfig{
			DebounceDelay: watchDefaults.DebounceDelay,
			ExcludeDirs:   watchDefaults.ExcludeDirs,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.ToFetch().Validate(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if c.Browser.Workers < 1 {
		return fmt.Errorf("browser.workers must be at least 1")
	}
	if c.Browser.Timeout <= 0 {
		return fmt.Errorf("browser.timeout must be positive")
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}
	if c.Watch.DebounceDelay <= 0 {
		return fmt.Errorf("watch.debounce_delay must be positive")
	}
	return nil
}

// ToFetch converts to the fetch package's config type.
func (c *Config) ToFetch() fetch.Config {
	return fetch.Config{
		Timeout:        c.Fetch.Timeout,
		UserAgent:      c.Fetch.UserAgent,
		Concurrency:    c.Fetch.Concurrency,
		MaxContentSize: c.Fetch.MaxContentSize,
	}
}

// ToBrowser converts to the fetch package's browser config type.
func (c *Config) ToBrowser() fetch.BrowserConfig {
	return fetch.BrowserConfig{
		Settle:  c.Browser.Settle,
		Timeout: c.Browser.Timeout,
		Workers: c.Browser.Workers,
	}
}

// ToWatch converts to the loader package's watch config type.
func (c *Config) ToWatch() loader.WatchConfig {
	return loader.WatchConfig{
		DebounceDelay: c.Watch.DebounceDelay,
		ExcludeDirs:   c.Watch.ExcludeDirs,
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence
// for non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Fetch
	if other.Fetch.Timeout != 0 {
		c.Fetch.Timeout = other.Fetch.Timeout
	}
	if other.Fetch.UserAgent != "" {
		c.Fetch.UserAgent = other.Fetch.UserAgent
	}
	if other.Fetch.Concurrency != 0 {
		c.Fetch.Concurrency = other.Fetch.Concurrency
	}
	if other.Fetch.MaxContentSize != 0 {
		c.Fetch.MaxContentSize = other.Fetch.MaxContentSize
	}

	// Browser
	if other.Browser.Settle != 0 {
		c.Browser.Settle = other.Browser.Settle
	}
	if other.Browser.Timeout != 0 {
		c.Browser.Timeout = other.Browser.Timeout
	}
	if other.Browser.Workers != 0 {
		c.Browser.Workers = other.Browser.Workers
	}

	// Storage
	if other.Storage.Dir != "" {
		c.Storage.Dir = other.Storage.Dir
	}

	// Watch
	if other.Watch.DebounceDelay != 0 {
		c.Watch.DebounceDelay = other.Watch.DebounceDelay
	}
	if len(other.Watch.ExcludeDirs) > 0 {
		c.Watch.ExcludeDirs = other.Watch.ExcludeDirs
	}
}
