// Package config loads the CLI configuration from YAML or JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/specfile/internal/logging"
	"github.com/aretw0/specfile/pkg/adapters/redis"
	"github.com/aretw0/specfile/pkg/domain"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = "specfile.yaml"

// OutputConfig controls where and how spec files are written.
type OutputConfig struct {
	Dir        string `yaml:"dir" json:"dir"`
	FilePrefix string `yaml:"file_prefix" json:"file_prefix"`
	Flush      bool   `yaml:"flush" json:"flush"`
	Stdout     bool   `yaml:"stdout" json:"stdout"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// RedisConfig sends spec files to Redis instead of the filesystem when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	TTL      string `yaml:"ttl" json:"ttl"`
}

// MetricsConfig persists export counters for the node exporter.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile"`
}

// LoggingConfig sets the log level: debug, info, warn or error.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Config represents the structure of specfile.yaml.
type Config struct {
	Output  OutputConfig  `yaml:"output" json:"output"`
	Lenient bool          `yaml:"lenient" json:"lenient"`
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Output: OutputConfig{
			Dir:        ".",
			FilePrefix: domain.DefaultFilePrefix,
		},
		Redis:   RedisConfig{Prefix: redis.DefaultPrefix},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a configuration file (YAML or JSON, by extension) over the defaults.
// A missing file is reported with an error wrapping fs.ErrNotExist.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks values that cannot be caught by decoding.
func (c Config) Validate() error {
	var errs []error
	if c.Output.Stdout && c.Redis.Addr != "" {
		errs = append(errs, errors.New("output.stdout and redis.addr cannot both be set"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.RedisTTL(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db must not be negative, got %d", c.Redis.DB))
	}
	return errors.Join(errs...)
}

// Location resolves output.timezone; empty means the local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Output.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Output.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid output.timezone: %w", err)
	}
	return loc, nil
}

// RedisTTL parses redis.ttl; empty means no expiration.
func (c Config) RedisTTL() (time.Duration, error) {
	if c.Redis.TTL == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(c.Redis.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid redis.ttl: %w", err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("invalid redis.ttl: %s is negative", c.Redis.TTL)
	}
	return ttl, nil
}

// Level parses logging.level.
func (c Config) Level() (slog.Level, error) {
	lvl, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return lvl, fmt.Errorf("invalid logging.level: %w", err)
	}
	return lvl, nil
}
