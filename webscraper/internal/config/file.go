// CLAUDE:SUMMARY Defines webscraper config structs, parses YAML files, applies defaults and the WEBSCRAPER_* environment overlay.
// Package config handles webscraper configuration from YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is a desktop Chrome UA; several sites serve reduced markup
// to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultDataDir is where generated programs write collected data.
const DefaultDataDir = "30-collected/31-web-scraps"

// Config is the top-level webscraper configuration.
type Config struct {
	Output   OutputConfig   `yaml:"output"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Browser  BrowserConfig  `yaml:"browser"`
	Policy   PolicyConfig   `yaml:"policy"`
	Generate GenerateConfig `yaml:"generate"`
	Catalog  CatalogConfig  `yaml:"catalog"`
}

// OutputConfig controls where structure reports and screenshots are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// FetchConfig controls the static and feed tiers.
type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBytes     int64         `yaml:"max_bytes"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	BlockPrivate bool          `yaml:"block_private"`
}

// BrowserConfig controls the rendered tier.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Headless         *bool         `yaml:"headless"`
	NavTimeout       time.Duration `yaml:"nav_timeout"`
	Settle           time.Duration `yaml:"settle"`
	Screenshot       *bool         `yaml:"screenshot"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
}

// PolicyConfig controls the robots.txt gate.
type PolicyConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"` // robots group; defaults to "*"
}

// GenerateConfig holds defaults baked into generated programs.
type GenerateConfig struct {
	Format   string        `yaml:"format"` // json | csv | md | all
	DataDir  string        `yaml:"data_dir"`
	MaxItems int           `yaml:"max_items"` // 0 keeps the per-pattern default
	Sleep    time.Duration `yaml:"sleep"`
}

// CatalogConfig controls the SQLite run history. Empty Path disables it.
type CatalogConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// LoadFile reads a YAML configuration file, applies the environment overlay
// and defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a configuration built from the environment and defaults only.
func Default() *Config {
	var cfg Config
	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyEnv overlays WEBSCRAPER_* variables. Set values win over the file.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("WEBSCRAPER_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := getenv("WEBSCRAPER_DATA_DIR"); v != "" {
		c.Generate.DataDir = v
	}
	if v := getenv("WEBSCRAPER_USER_AGENT"); v != "" {
		c.Fetch.UserAgent = v
	}
	if v := getenv("WEBSCRAPER_BROWSER_REMOTE"); v != "" {
		c.Browser.Remote = v
	}
	if v := getenv("WEBSCRAPER_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = &b
		}
	}
	if v := getenv("WEBSCRAPER_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = DefaultUserAgent
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = 10 << 20
	}
	if c.Fetch.RetryBackoff <= 0 {
		c.Fetch.RetryBackoff = 500 * time.Millisecond
	}
	if c.Browser.Headless == nil {
		t := true
		c.Browser.Headless = &t
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}
	if c.Browser.Settle <= 0 {
		c.Browser.Settle = 3 * time.Second
	}
	if c.Browser.Screenshot == nil {
		t := true
		c.Browser.Screenshot = &t
	}
	if c.Policy.Timeout <= 0 {
		c.Policy.Timeout = 10 * time.Second
	}
	if c.Policy.UserAgent == "" {
		c.Policy.UserAgent = "*"
	}
	if c.Generate.Format == "" {
		c.Generate.Format = "md"
	}
	if c.Generate.DataDir == "" {
		c.Generate.DataDir = DefaultDataDir
	}
	if c.Generate.Sleep <= 0 {
		c.Generate.Sleep = 500 * time.Millisecond
	}
	if c.Catalog.Path == "" && !c.Catalog.Disabled {
		c.Catalog.Path = "webscraper.db"
	}
}

// IsHeadless reports the effective headless setting.
func (c *Config) IsHeadless() bool {
	return c.Browser.Headless == nil || *c.Browser.Headless
}

// WantScreenshot reports whether the rendered tier captures a screenshot.
func (c *Config) WantScreenshot() bool {
	return c.Browser.Screenshot == nil || *c.Browser.Screenshot
}
