// Package config loads the reader configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	configDirName  = "storybook"
	logFileName    = "storybook.log"
	booksDirName   = "books"
)

// Config holds the application configuration
type Config struct {
	Library   LibraryConfig   `yaml:"library"`
	Data      DataConfig      `yaml:"data"`
	Log       LogConfig       `yaml:"log"`
	Reader    ReaderConfig    `yaml:"reader"`
	Narration NarrationConfig `yaml:"narration"`
	Input     InputConfig     `yaml:"input"`
	Keys      KeysConfig      `yaml:"keys"`
	Route     RouteConfig     `yaml:"route"`

	// Path to config file (not persisted)
	path string
}

// LibraryConfig locates book documents.
type LibraryConfig struct {
	BooksDir string `yaml:"books_dir"`
}

// DataConfig locates the database and lock file.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives logs while the TUI owns the terminal.
	File string `yaml:"file"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.Required, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&c.Format, validation.Required, validation.In("pretty", "json")),
	)
}

// ReaderConfig tunes page navigation.
type ReaderConfig struct {
	SuppressionWindow time.Duration `yaml:"suppression_window"`
}

// Validate validates the reader configuration.
func (c *ReaderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SuppressionWindow, validation.Required, validation.Min(time.Millisecond)),
	)
}

// NarrationConfig controls audio playback.
type NarrationConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Player    string        `yaml:"player"`
	FadeIn    time.Duration `yaml:"fade_in"`
	FadeOut   time.Duration `yaml:"fade_out"`
	FadeSteps int           `yaml:"fade_steps"`
}

// Validate validates the narration configuration.
func (c *NarrationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Player, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.FadeIn, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.FadeOut, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.FadeSteps, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

// InputConfig describes the terminal for pointer gestures.
type InputConfig struct {
	CellWidth  int `yaml:"cell_width"`
	CellHeight int `yaml:"cell_height"`
}

// Validate validates the input configuration.
func (c *InputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CellWidth, validation.Required, validation.Min(1)),
		validation.Field(&c.CellHeight, validation.Required, validation.Min(1)),
	)
}

// KeysConfig overrides page-turn keys. Empty lists keep the defaults.
type KeysConfig struct {
	Prev []string `yaml:"prev"`
	Next []string `yaml:"next"`
}

// reservedKeys are bound by the reader and the app before page turns are
// looked up, so a page-turn key among them would never fire.
var reservedKeys = []any{"m", "s", "g", "[", "]", "?", "esc", "q", "ctrl+c"}

// Validate validates the key overrides.
func (c *KeysConfig) Validate() error {
	keyRules := validation.Each(
		validation.Required,
		validation.NotIn(reservedKeys...).Error("is reserved"),
	)
	return validation.ValidateStruct(c,
		validation.Field(&c.Prev, keyRules),
		validation.Field(&c.Next, keyRules),
	)
}

// RouteConfig tunes location handling.
type RouteConfig struct {
	ConfirmDelay time.Duration `yaml:"confirm_delay"`
}

// Validate validates the route configuration.
func (c *RouteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ConfirmDelay, validation.Min(time.Duration(0))),
	)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Reader.Validate(); err != nil {
		return fmt.Errorf("reader: %w", err)
	}
	if err := c.Narration.Validate(); err != nil {
		return fmt.Errorf("narration: %w", err)
	}
	if err := c.Input.Validate(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := c.Route.Validate(); err != nil {
		return fmt.Errorf("route: %w", err)
	}
	if err := c.Keys.Validate(); err != nil {
		return fmt.Errorf("keys: %w", err)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	dir := defaultDir()
	return &Config{
		Data:   DataConfig{Dir: dir},
		Log:    LogConfig{Level: "info", Format: "pretty"},
		Reader: ReaderConfig{SuppressionWindow: 2 * time.Second},
		Narration: NarrationConfig{
			Enabled:   true,
			Player:    "mpv",
			FadeIn:    500 * time.Millisecond,
			FadeOut:   300 * time.Millisecond,
			FadeSteps: 10,
		},
		Input: InputConfig{CellWidth: 8, CellHeight: 16},
		Route: RouteConfig{ConfirmDelay: 50 * time.Millisecond},
	}
}

// Load loads configuration from path, or from the default location when
// path is empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := NewDefaultConfig()
	cfg.path = path

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg.fillDerived()
		return cfg, cfg.Validate()
	}
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// LogFile returns the log file path.
func (c *Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.Data.Dir, logFileName)
}

// Save persists the configuration to disk
func (c *Config) Save() error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0o600)
}

// SetPath changes where Save writes.
func (c *Config) SetPath(path string) {
	c.path = path
}

// fillDerived fills paths that default relative to other settings.
func (c *Config) fillDerived() {
	if c.Library.BooksDir == "" && c.Data.Dir != "" {
		c.Library.BooksDir = filepath.Join(c.Data.Dir, booksDirName)
	}
	if c.Log.File == "" && c.Data.Dir != "" {
		c.Log.File = filepath.Join(c.Data.Dir, logFileName)
	}
}

// DefaultPath returns the path to the config file
func DefaultPath() (string, error) {
	configDir, err := userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configDirName, configFileName), nil
}

func defaultDir() string {
	configDir, err := userConfigDir()
	if err != nil {
		return configDirName
	}
	return filepath.Join(configDir, configDirName)
}

func userConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}
	return configDir, nil
}
