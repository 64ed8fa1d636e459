// Package config loads chaprun settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CHAPRUN_"

// Driver names.
const (
	DriverUI     = "ui"
	DriverGemini = "gemini"
	DriverDryRun = "dry-run"
)

type Config struct {
	StateFile string       `yaml:"state_file"`
	LogLevel  string       `yaml:"log_level"`
	Driver    string       `yaml:"driver"`
	UI        UIConfig     `yaml:"ui"`
	Gemini    GeminiConfig `yaml:"gemini"`
	Batch     BatchConfig  `yaml:"batch"`
	ToC       ToCConfig    `yaml:"toc"`
}

// UIConfig holds the target URL and the waits between desktop gestures.
type UIConfig struct {
	URL         string        `yaml:"url"`
	BrowserLoad time.Duration `yaml:"browser_load"`
	Paste       time.Duration `yaml:"paste"`
	FileUpload  time.Duration `yaml:"file_upload"`
	PromptPaste time.Duration `yaml:"prompt_paste"`
	Submit      time.Duration `yaml:"submit"`
}

type GeminiConfig struct {
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	OutputDir         string `yaml:"output_dir"`
}

type BatchConfig struct {
	ItemDelay    time.Duration `yaml:"item_delay"`
	FileDelay    time.Duration `yaml:"file_delay"`
	AbortOnError bool          `yaml:"abort_on_error"`
}

type ToCConfig struct {
	ScanPages int `yaml:"scan_pages"`
	MaxDepth  int `yaml:"max_depth"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Driver:   DriverUI,
		UI: UIConfig{
			URL:         "https://aistudio.google.com/prompts/new_chat",
			BrowserLoad: 5 * time.Second,
			Paste:       2 * time.Second,
			FileUpload:  10 * time.Second,
			PromptPaste: 1 * time.Second,
			Submit:      1 * time.Second,
		},
		Gemini: GeminiConfig{
			Model:             "gemini-2.5-flash",
			RequestsPerMinute: 10,
			OutputDir:         "transcripts",
		},
		Batch: BatchConfig{
			ItemDelay: 3 * time.Second,
			FileDelay: 4 * time.Second,
		},
		ToC: ToCConfig{ScanPages: 16, MaxDepth: 1},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/chaprun/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "chaprun", "config.yaml")
}

// Load reads path over the defaults and applies the environment. With an
// empty path the default location is used and may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.UpdateFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// UpdateFromEnv applies CHAPRUN_ variables; a double underscore separates
// sections (CHAPRUN_GEMINI__API_KEY -> gemini.api_key). Variables that name
// no setting are skipped with a warning; bad values are errors.
// GOOGLE_API_KEY fills in a missing Gemini key.
func (c *Config) UpdateFromEnv() error {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		k, v, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(k, envPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		err := c.Set(key, v)
		if errors.Is(err, ErrUnknownKey) {
			log.Warn().Str("env", k).Msg("ignoring unknown config variable")
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	return nil
}

var ErrUnknownKey = errors.New("unknown config key")

// Set assigns a value by dotted key, e.g. "batch.item_delay".
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "state_file":
		c.StateFile = value
	case "log_level":
		c.LogLevel = value
	case "driver":
		c.Driver = value
	case "ui.url":
		c.UI.URL = value
	case "ui.browser_load":
		c.UI.BrowserLoad, err = time.ParseDuration(value)
	case "ui.paste":
		c.UI.Paste, err = time.ParseDuration(value)
	case "ui.file_upload":
		c.UI.FileUpload, err = time.ParseDuration(value)
	case "ui.prompt_paste":
		c.UI.PromptPaste, err = time.ParseDuration(value)
	case "ui.submit":
		c.UI.Submit, err = time.ParseDuration(value)
	case "gemini.api_key":
		c.Gemini.APIKey = value
	case "gemini.model":
		c.Gemini.Model = value
	case "gemini.requests_per_minute":
		c.Gemini.RequestsPerMinute, err = strconv.Atoi(value)
	case "gemini.output_dir":
		c.Gemini.OutputDir = value
	case "batch.item_delay":
		c.Batch.ItemDelay, err = time.ParseDuration(value)
	case "batch.file_delay":
		c.Batch.FileDelay, err = time.ParseDuration(value)
	case "batch.abort_on_error":
		c.Batch.AbortOnError, err = strconv.ParseBool(value)
	case "toc.scan_pages":
		c.ToC.ScanPages, err = strconv.Atoi(value)
	case "toc.max_depth":
		c.ToC.MaxDepth, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, value, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Driver {
	case DriverUI, DriverGemini, DriverDryRun:
	default:
		return fmt.Errorf("driver %q: want %s, %s or %s", c.Driver, DriverUI, DriverGemini, DriverDryRun)
	}
	for name, d := range map[string]time.Duration{
		"ui.browser_load":  c.UI.BrowserLoad,
		"ui.paste":         c.UI.Paste,
		"ui.file_upload":   c.UI.FileUpload,
		"ui.prompt_paste":  c.UI.PromptPaste,
		"ui.submit":        c.UI.Submit,
		"batch.item_delay": c.Batch.ItemDelay,
		"batch.file_delay": c.Batch.FileDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.Gemini.RequestsPerMinute < 0 {
		return errors.New("gemini.requests_per_minute must not be negative")
	}
	if c.ToC.MaxDepth < 1 {
		return errors.New("toc.max_depth must be at least 1")
	}
	return nil
}

// Redacted is a copy safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Gemini.APIKey != "" {
		cp.Gemini.APIKey = "********"
	}
	return &cp
}

// Write stores c as YAML at path, creating parent directories.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
