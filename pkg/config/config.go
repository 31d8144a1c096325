// Package config loads phrasetower settings from a TOML file.
//
// A configuration file has four optional tables:
//
//	[build]
//	exhaustive_relink = false
//	isolated_policy = "settle"   # or "recheck"
//
//	[storage]
//	driver = "sqlite"            # memory, sqlite or badger
//	path = "phrases.db"
//	sync_writes = true
//
//	[cache]
//	enabled = true
//	dir = "/tmp/phrasetower"
//	ttl = "24h"
//
//	[log]
//	level = "info"
//
// Missing tables and keys keep the values from [Default]. Unknown keys are
// rejected so that typos surface as errors instead of silently falling back.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/phrasetower/pkg/errors"
	"github.com/matzehuels/phrasetower/pkg/graph"
)

const appName = "phrasetower"

// Storage drivers accepted in [storage] driver.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Drivers lists every supported storage driver.
var Drivers = []string{DriverMemory, DriverSQLite, DriverBadger}

// Config is the decoded configuration file.
type Config struct {
	Build   BuildConfig   `toml:"build"`
	Storage StorageConfig `toml:"storage"`
	Cache   CacheConfig   `toml:"cache"`
	Log     LogConfig     `toml:"log"`
}

// BuildConfig maps onto graph.Options.
type BuildConfig struct {
	ExhaustiveRelink bool   `toml:"exhaustive_relink"`
	IsolatedPolicy   string `toml:"isolated_policy"`
}

// StorageConfig selects where built hierarchies are persisted.
type StorageConfig struct {
	Driver     string `toml:"driver"`
	Path       string `toml:"path"`
	SyncWrites bool   `toml:"sync_writes"`
}

// CacheConfig controls the build result cache.
type CacheConfig struct {
	Enabled bool          `toml:"enabled"`
	Dir     string        `toml:"dir"`
	TTL     time.Duration `toml:"ttl"`
}

// LogConfig sets the default log level. The --verbose flag overrides it.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Build: BuildConfig{
			IsolatedPolicy: graph.IsolatedSettle.String(),
		},
		Storage: StorageConfig{
			Driver:     DriverMemory,
			SyncWrites: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Path returns the default configuration file location,
// $XDG_CONFIG_HOME/phrasetower/config.toml or ~/.config/phrasetower/config.toml.
func Path() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns the default cache directory,
// $XDG_CACHE_HOME/phrasetower or ~/.cache/phrasetower.
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads the configuration at path on top of [Default].
//
// An empty path means the default location from [Path]; a missing file
// there is not an error. A missing file at an explicit path is.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses TOML from r on top of [Default] and validates the result.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks that every value is in range.
func (c Config) Validate() error {
	if _, err := graph.ParseIsolatedPolicy(c.Build.IsolatedPolicy); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "build.isolated_policy")
	}
	if !slices.Contains(Drivers, c.Storage.Driver) {
		return errors.New(errors.ErrCodeInvalidConfig,
			"storage.driver %q: must be one of %s", c.Storage.Driver, strings.Join(Drivers, ", "))
	}
	if c.Storage.Driver != DriverMemory {
		if c.Storage.Path == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "storage.path is required for driver %q", c.Storage.Driver)
		}
		if err := errors.ValidatePath(c.Storage.Path); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "storage.path")
		}
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "log.level")
	}
	return nil
}

// BuildOptions converts the [build] table to graph.Options.
func (c Config) BuildOptions() (graph.Options, error) {
	policy, err := graph.ParseIsolatedPolicy(c.Build.IsolatedPolicy)
	if err != nil {
		return graph.Options{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "build.isolated_policy")
	}
	return graph.Options{
		ExhaustiveRelink: c.Build.ExhaustiveRelink,
		Isolated:         policy,
	}, nil
}

// LogLevel returns the configured log level, or info if it does not parse.
func (c Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// CachePath returns the cache directory from [cache] dir, or [CacheDir].
func (c Config) CachePath() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return CacheDir()
}
