// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-josekm.
//
// go-josekm is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads the josekm configuration from YAML files and
// JOSEKM_* environment variables.
package config

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/aead"
	"github.com/jeremyhahn/go-josekm/pkg/crypto/rand"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement/registry"
	"github.com/jeremyhahn/go-josekm/pkg/logging"
	"github.com/jeremyhahn/go-josekm/pkg/metrics"
)

// EnvPrefix is prepended to every environment override, e.g.
// JOSEKM_LOGGING_LEVEL or JOSEKM_PBES2_ITERATIONS.
const EnvPrefix = "JOSEKM"

// Config represents the complete josekm configuration
type Config struct {
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	PBES2      PBES2Config      `yaml:"pbes2" mapstructure:"pbes2"`
	AESGCMKW   AESGCMKWConfig   `yaml:"aesgcmkw" mapstructure:"aesgcmkw"`
	RNG        RNGConfig        `yaml:"rng" mapstructure:"rng"`
	Algorithms AlgorithmsConfig `yaml:"algorithms" mapstructure:"algorithms"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MetricsConfig controls Prometheus collection
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// PBES2Config holds the parameters used when wrapping with a password
type PBES2Config struct {
	SaltSize   int `yaml:"salt_size" mapstructure:"salt_size"`
	Iterations int `yaml:"iterations" mapstructure:"iterations"`
}

// AESGCMKWConfig controls AES-GCM key wrapping
type AESGCMKWConfig struct {
	// TrackIVs rejects an IV already used with the same key encryption key.
	// Tracking is in memory and grows with every wrap.
	TrackIVs bool `yaml:"track_ivs" mapstructure:"track_ivs"`
}

// RNGConfig selects the random source
type RNGConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// AlgorithmsConfig restricts the registry. An empty list enables every
// algorithm.
type AlgorithmsConfig struct {
	Enabled []string `yaml:"enabled" mapstructure:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		PBES2: PBES2Config{
			SaltSize:   keymanagement.DefaultPBES2SaltSize,
			Iterations: keymanagement.DefaultPBES2Iterations,
		},
		RNG: RNGConfig{
			Mode: string(rand.ModeAuto),
		},
	}
}

// Load reads configuration from a YAML file and applies environment
// variable overrides. An empty path loads the defaults plus environment.
func Load(path string) (*Config, error) {
	v := newViper(EnvPrefix)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// newViper returns a viper instance seeded with the defaults so that every
// key can be overridden from the environment.
func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	def := Default()
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("pbes2.salt_size", def.PBES2.SaltSize)
	v.SetDefault("pbes2.iterations", def.PBES2.Iterations)
	v.SetDefault("aesgcmkw.track_ivs", def.AESGCMKW.TrackIVs)
	v.SetDefault("rng.mode", def.RNG.Mode)
	v.SetDefault("algorithms.enabled", []string{})
	return v
}

// applyEnvOverrides normalizes values that may arrive from the environment
// with stray whitespace or case.
func applyEnvOverrides(cfg *Config) {
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.RNG.Mode = strings.ToLower(strings.TrimSpace(cfg.RNG.Mode))

	enabled := cfg.Algorithms.Enabled[:0]
	for _, name := range cfg.Algorithms.Enabled {
		if name = strings.TrimSpace(name); name != "" {
			enabled = append(enabled, name)
		}
	}
	cfg.Algorithms.Enabled = enabled
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if c.PBES2.SaltSize < keymanagement.MinPBES2SaltSize {
		return fmt.Errorf("pbes2 salt_size must be at least %d bytes, got %d",
			keymanagement.MinPBES2SaltSize, c.PBES2.SaltSize)
	}
	if c.PBES2.Iterations < keymanagement.MinPBES2Iterations || c.PBES2.Iterations > keymanagement.MaxPBES2Iterations {
		return fmt.Errorf("pbes2 iterations must be between %d and %d, got %d",
			keymanagement.MinPBES2Iterations, keymanagement.MaxPBES2Iterations, c.PBES2.Iterations)
	}

	switch rand.Mode(c.RNG.Mode) {
	case rand.ModeAuto, rand.ModeSoftware:
	default:
		return fmt.Errorf("invalid rng mode: %s (must be auto or software)", c.RNG.Mode)
	}

	known := registry.Names()
	for _, name := range c.Algorithms.Enabled {
		if !slices.Contains(known, name) {
			return fmt.Errorf("unknown algorithm in algorithms.enabled: %s", name)
		}
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// NewLogger builds the logger described by the logging section.
func (c *Config) NewLogger(out io.Writer) (*logging.Logger, error) {
	return logging.New(logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: out,
	})
}

// Options returns the algorithm options described by the rng, pbes2 and
// aesgcmkw sections.
func (c *Config) Options() ([]keymanagement.Option, error) {
	rng, err := rand.NewResolver(rand.Mode(c.RNG.Mode))
	if err != nil {
		return nil, fmt.Errorf("failed to create RNG: %w", err)
	}
	opts := []keymanagement.Option{
		keymanagement.WithRandom(rng),
		keymanagement.WithPBES2SaltSize(c.PBES2.SaltSize),
		keymanagement.WithPBES2Iterations(c.PBES2.Iterations),
	}
	if c.AESGCMKW.TrackIVs {
		opts = append(opts, keymanagement.WithNonceTracker(aead.NewNonceTracker(true)))
	}
	return opts, nil
}

// NewRegistry applies the metrics switch and builds the algorithm
// registry.
func (c *Config) NewRegistry(logger *logging.Logger) (*registry.Registry, error) {
	if c.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	return registry.New(registry.Config{
		Enabled: c.Algorithms.Enabled,
		Options: opts,
		Logger:  logger,
	})
}
