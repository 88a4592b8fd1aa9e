package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/overlay/internal/logging"
	"github.com/dshills/overlay/internal/settings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OVERLAY"

// Config holds all host configuration.
type Config struct {
	Plugins PluginsConfig `toml:"plugins" envconfig:"PLUGINS"`
	Storage StorageConfig `toml:"storage" envconfig:"STORAGE"`
	Logging LogConfig     `toml:"logging" envconfig:"LOG"`
	Metrics MetricsConfig `toml:"metrics" envconfig:"METRICS"`
}

// PluginsConfig locates plugin archives.
type PluginsConfig struct {
	Dir        string `toml:"dir" envconfig:"DIR"`
	Extension  string `toml:"extension" envconfig:"EXTENSION"`
	Watch      bool   `toml:"watch" envconfig:"WATCH"`
	DebounceMS int    `toml:"debounce_ms" envconfig:"DEBOUNCE_MS"`
}

// Debounce returns the watcher settle delay.
func (p PluginsConfig) Debounce() time.Duration {
	return time.Duration(p.DebounceMS) * time.Millisecond
}

// StorageConfig locates the settings tree and snapshot store.
type StorageConfig struct {
	SettingsPath string `toml:"settings_path" envconfig:"SETTINGS_PATH"`

	// SnapshotPath defaults to snapshots.json or snapshots.db next to the
	// settings file, depending on the backend.
	SnapshotPath    string `toml:"snapshot_path,omitempty" envconfig:"SNAPSHOT_PATH"`
	SnapshotBackend string `toml:"snapshot_backend" envconfig:"SNAPSHOT_BACKEND"`
}

// Snapshots returns the effective snapshot store path.
func (s StorageConfig) Snapshots() string {
	if s.SnapshotPath != "" {
		return s.SnapshotPath
	}
	name := "snapshots.json"
	if s.SnapshotBackend == settings.BackendSQLite {
		name = "snapshots.db"
	}
	return filepath.Join(filepath.Dir(s.SettingsPath), name)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `toml:"level" envconfig:"LEVEL"`
	Development bool   `toml:"development" envconfig:"DEV"`
}

// Logger returns the logging package configuration.
func (l LogConfig) Logger() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Development = l.Development
	return cfg
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `toml:"addr" envconfig:"ADDR"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := DefaultDir()
	return &Config{
		Plugins: PluginsConfig{
			Dir:        filepath.Join(dir, "plugins"),
			Extension:  ".plugin",
			DebounceMS: 500,
		},
		Storage: StorageConfig{
			SettingsPath:    filepath.Join(dir, "settings.toml"),
			SnapshotBackend: settings.BackendJSON,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "overlay")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "overlay")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// Load builds the configuration from defaults, the TOML file at path and
// the environment, then validates it. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		perr := &ParseError{Path: path, Message: err.Error(), Err: err}

		var derr *toml.DecodeError
		var serr *toml.StrictMissingError
		switch {
		case errors.As(err, &derr):
			perr.Line, perr.Column = derr.Position()
		case errors.As(err, &serr) && len(serr.Errors) > 0:
			perr.Line, perr.Column = serr.Errors[0].Position()
			perr.Message = "unknown key " + strings.Join(serr.Errors[0].Key(), ".")
		}
		return perr
	}
	return nil
}

// Validate checks every setting and joins all problems found.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(field, msg string) {
		errs = append(errs, &FieldError{Field: field, Message: msg})
	}

	if c.Plugins.Dir == "" {
		invalid("plugins.dir", "must not be empty")
	}
	if c.Plugins.Extension == "" || c.Plugins.Extension == "." {
		invalid("plugins.extension", "must not be empty")
	}
	if c.Plugins.DebounceMS < 0 {
		invalid("plugins.debounce_ms", "must not be negative")
	}

	if c.Storage.SettingsPath == "" {
		invalid("storage.settings_path", "must not be empty")
	}
	switch c.Storage.SnapshotBackend {
	case settings.BackendJSON, settings.BackendSQLite:
	default:
		invalid("storage.snapshot_backend",
			fmt.Sprintf("%q is not one of %q, %q", c.Storage.SnapshotBackend, settings.BackendJSON, settings.BackendSQLite))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		invalid("logging.level", err.Error())
	}

	return errors.Join(errs...)
}

// TOML renders the configuration as a config file.
func (c *Config) TOML() ([]byte, error) {
	return toml.Marshal(c)
}
