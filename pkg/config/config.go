// Package config loads and validates the trendoor configuration from
// YAML files with TRENDOOR_* environment variable overrides.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultListen is the default API listen address.
	DefaultListen = ":8080"

	// DefaultHistoryDir is the default local directory holding history
	// documents.
	DefaultHistoryDir = "./history"

	// DefaultRequestsPerMinute is the default per-IP rate limit for
	// both tiers when rate limiting is enabled without explicit values.
	DefaultRequestsPerMinute = 120
)

// Config is the root configuration for trendoor.
type Config struct {
	Global   GlobalConfig    `yaml:"global" mapstructure:"global"`
	Storage  StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Server   ServerConfig    `yaml:"server" mapstructure:"server"`
	Indexing *IndexingConfig `yaml:"indexing,omitempty" mapstructure:"indexing"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// StorageConfig selects the backend holding history documents. Exactly
// one backend may be enabled.
type StorageConfig struct {
	Local *LocalStorageConfig `yaml:"local,omitempty" mapstructure:"local"`
	S3    *S3StorageConfig    `yaml:"s3,omitempty" mapstructure:"s3"`
}

// LocalStorageConfig stores history documents as files under a directory.
type LocalStorageConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// S3StorageConfig stores history documents in an S3-compatible bucket.
type S3StorageConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
}

// Load reads one or more YAML config files (later files override earlier
// ones), applies TRENDOOR_* environment overrides, and fills defaults.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	for i, path := range paths {
		data, err := os.ReadFile(path) //nolint:gosec // operator-provided path
		if err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}

		if i == 0 {
			if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
				return nil, fmt.Errorf("parsing config file %q: %w", path, err)
			}

			continue
		}

		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("merging config file %q: %w", path, err)
		}
	}

	v.SetEnvPrefix("TRENDOOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env values through Unmarshal,
	// so bind every key known from the config files explicitly.
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Storage.Local == nil && c.Storage.S3 == nil {
		c.Storage.Local = &LocalStorageConfig{
			Enabled: true,
			Path:    DefaultHistoryDir,
		}
	}

	if c.Storage.Local != nil && c.Storage.Local.Enabled &&
		c.Storage.Local.Path == "" {
		c.Storage.Local.Path = DefaultHistoryDir
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}

	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.Public.RequestsPerMinute == 0 {
			c.Server.RateLimit.Public.RequestsPerMinute = DefaultRequestsPerMinute
		}

		if c.Server.RateLimit.Write.RequestsPerMinute == 0 {
			c.Server.RateLimit.Write.RequestsPerMinute = DefaultRequestsPerMinute
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	localEnabled := c.Storage.Local != nil && c.Storage.Local.Enabled
	s3Enabled := c.Storage.S3 != nil && c.Storage.S3.Enabled

	if localEnabled && s3Enabled {
		return fmt.Errorf("only one storage backend may be enabled")
	}

	if !localEnabled && !s3Enabled {
		return fmt.Errorf("a storage backend must be enabled")
	}

	if s3Enabled && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3 storage: bucket is required")
	}

	for i, token := range c.Server.Auth.WriteTokens {
		if token.Name == "" {
			return fmt.Errorf("write token %d: name is required", i)
		}

		if token.Hash == "" {
			return fmt.Errorf("write token %q: hash is required", token.Name)
		}
	}

	if c.Indexing != nil && c.Indexing.Enabled {
		switch c.Indexing.Database.Driver {
		case "sqlite", "postgres":
		case "":
			return fmt.Errorf("indexing: database driver is required")
		default:
			return fmt.Errorf(
				"indexing: unsupported database driver %q",
				c.Indexing.Database.Driver,
			)
		}
	}

	return nil
}
