// Package config loads ddlguard settings from a YAML file, DDLGUARD_*
// environment variables and defaults, in increasing order of precedence
// below command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultFile             = "ddlguard.yml"
	DefaultMigrationsDir    = "supabase/migrations"
	DefaultCombinedFile     = "combined_migration.sql"
	DefaultSafeFile         = "combined_migration_safe.sql"
	DefaultPartsDir         = "."
	DefaultParts            = 10
	DefaultPartPrefix       = "migration_part_"
	DefaultTriggerLookahead = 15
	DefaultLockTimeout      = 5 * time.Second
	DefaultStatementTimeout = 30 * time.Second
	DefaultPartPause        = time.Second
	DefaultLogLevel         = "info"
)

// EnvPrefix prefixes every environment variable read by MergeEnv.
const EnvPrefix = "DDLGUARD_"

// ErrInvalid indicates a configuration value outside its allowed range.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	DatabaseURL      string        `env:"DATABASE_URL"`
	MigrationsDir    string        `env:"MIGRATIONS_DIR"`
	CombinedFile     string        `env:"COMBINED_FILE"`
	SafeFile         string        `env:"SAFE_FILE"`
	PartsDir         string        `env:"PARTS_DIR"`
	Parts            int           `env:"PARTS"`
	PartPrefix       string        `env:"PART_PREFIX"`
	TriggerLookahead int           `env:"TRIGGER_LOOKAHEAD"`
	LockTimeout      time.Duration `env:"LOCK_TIMEOUT"`
	StatementTimeout time.Duration `env:"STATEMENT_TIMEOUT"`
	PartPause        time.Duration `env:"PART_PAUSE"`
	LogLevel         string        `env:"LOG_LEVEL"`
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabaseURL      string `yaml:"database_url"`
	MigrationsDir    string `yaml:"migrations_dir"`
	CombinedFile     string `yaml:"combined_file"`
	SafeFile         string `yaml:"safe_file"`
	PartsDir         string `yaml:"parts_dir"`
	Parts            int    `yaml:"parts"`
	PartPrefix       string `yaml:"part_prefix"`
	TriggerLookahead int    `yaml:"trigger_lookahead"`
	LockTimeout      string `yaml:"lock_timeout"`
	StatementTimeout string `yaml:"statement_timeout"`
	PartPause        string `yaml:"part_pause"`
	LogLevel         string `yaml:"log_level"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		MigrationsDir:    DefaultMigrationsDir,
		CombinedFile:     DefaultCombinedFile,
		SafeFile:         DefaultSafeFile,
		PartsDir:         DefaultPartsDir,
		Parts:            DefaultParts,
		PartPrefix:       DefaultPartPrefix,
		TriggerLookahead: DefaultTriggerLookahead,
		LockTimeout:      DefaultLockTimeout,
		StatementTimeout: DefaultStatementTimeout,
		PartPause:        DefaultPartPause,
		LogLevel:         DefaultLogLevel,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	setString(&cfg.DatabaseURL, raw.DatabaseURL)
	setString(&cfg.MigrationsDir, raw.MigrationsDir)
	setString(&cfg.CombinedFile, raw.CombinedFile)
	setString(&cfg.SafeFile, raw.SafeFile)
	setString(&cfg.PartsDir, raw.PartsDir)
	setString(&cfg.PartPrefix, raw.PartPrefix)
	setString(&cfg.LogLevel, raw.LogLevel)

	if raw.Parts != 0 {
		cfg.Parts = raw.Parts
	}

	if raw.TriggerLookahead != 0 {
		cfg.TriggerLookahead = raw.TriggerLookahead
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"lock_timeout", raw.LockTimeout, &cfg.LockTimeout},
		{"statement_timeout", raw.StatementTimeout, &cfg.StatementTimeout},
		{"part_pause", raw.PartPause, &cfg.PartPause},
	}

	for _, d := range durations {
		if d.raw == "" {
			continue
		}

		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %q: %w", d.key, d.raw, err)
		}

		*d.dst = v
	}

	return cfg, cfg.Validate()
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// MergeEnv overrides config fields from DDLGUARD_* environment variables.
// Unset variables leave the current value untouched.
func MergeEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return cfg.Validate()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Parts < 1 {
		return fmt.Errorf("%w: parts must be at least 1, got %d", ErrInvalid, c.Parts)
	}

	if c.TriggerLookahead < 1 {
		return fmt.Errorf("%w: trigger_lookahead must be at least 1, got %d", ErrInvalid, c.TriggerLookahead)
	}

	if c.PartPause < 0 {
		return fmt.Errorf("%w: part_pause must not be negative", ErrInvalid)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}

	return nil
}
