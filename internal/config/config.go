// Package config provides configuration management for streamfold using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/jmylchreest/streamfold/internal/metadata"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/pipeline/fetcher"
	"github.com/jmylchreest/streamfold/pkg/httpclient"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "STREAMFOLD"

// Default configuration values.
const (
	defaultServerPort       = 7979
	defaultServerTimeout    = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultMaxBodySize      = 1 << 20 // 1MiB
	defaultLogMaxSizeMB     = 50
	defaultLogMaxBackups    = 3
	defaultLogMaxAgeDays    = 14
	defaultMetadataCacheTTL = metadata.DefaultCacheTTL
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline" yaml:"pipeline"`
	HTTPClient HTTPClientConfig `mapstructure:"httpclient" yaml:"httpclient"`
	Metadata   MetadataConfig   `mapstructure:"metadata" yaml:"metadata"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	// MaxBodySize limits request bodies. Supports values like "1MB".
	MaxBodySize ByteSize `mapstructure:"max_body_size" yaml:"max_body_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string        `mapstructure:"level" yaml:"level"`   // trace, debug, info, warn, error
	Format     string        `mapstructure:"format" yaml:"format"` // json, text, pretty
	AddSource  bool          `mapstructure:"add_source" yaml:"add_source"`
	TimeFormat string        `mapstructure:"time_format" yaml:"time_format"`
	NoColor    bool          `mapstructure:"no_color" yaml:"no_color"`
	File       LogFileConfig `mapstructure:"file" yaml:"file"`
}

// LogFileConfig configures an optional rotating log file.
type LogFileConfig struct {
	Path       string `mapstructure:"path" yaml:"path"` // empty disables file logging
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// PipelineConfig holds stream pipeline configuration.
type PipelineConfig struct {
	ExpressionTimeout   time.Duration `mapstructure:"expression_timeout" yaml:"expression_timeout"`
	MaxConcurrency      int           `mapstructure:"max_concurrency" yaml:"max_concurrency"` // concurrent addon requests
	EnableDeduplication bool          `mapstructure:"enable_deduplication" yaml:"enable_deduplication"`
	EnablePrecompute    bool          `mapstructure:"enable_precompute" yaml:"enable_precompute"`
}

// HTTPClientConfig holds outbound HTTP client configuration.
type HTTPClientConfig struct {
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RetryAttempts    int           `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay       time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	RetryMaxDelay    time.Duration `mapstructure:"retry_max_delay" yaml:"retry_max_delay"`
	CircuitThreshold int           `mapstructure:"circuit_threshold" yaml:"circuit_threshold"`
	CircuitTimeout   time.Duration `mapstructure:"circuit_timeout" yaml:"circuit_timeout"`
	UserAgent        string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxResponseSize  ByteSize      `mapstructure:"max_response_size" yaml:"max_response_size"`
}

// MetadataConfig holds title metadata lookup configuration.
type MetadataConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	CacheSize uint32        `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with STREAMFOLD_ and use underscores for nesting.
// Example: STREAMFOLD_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	return LoadFrom(viper.New(), configPath)
}

// LoadFrom loads configuration through v, so callers can bind command-line
// flags to it first. Flags override environment variables, which override
// the config file, which overrides defaults.
func LoadFrom(v *viper.Viper, configPath string) (*Config, error) {
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/streamfold")
		v.AddConfigPath("$HOME/.streamfold")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_body_size", defaultMaxBodySize)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
	v.SetDefault("logging.no_color", false)
	v.SetDefault("logging.file.path", "")
	v.SetDefault("logging.file.max_size_mb", defaultLogMaxSizeMB)
	v.SetDefault("logging.file.max_backups", defaultLogMaxBackups)
	v.SetDefault("logging.file.max_age_days", defaultLogMaxAgeDays)
	v.SetDefault("logging.file.compress", true)

	// Pipeline defaults
	pipeline := core.DefaultConfig()
	v.SetDefault("pipeline.expression_timeout", pipeline.ExpressionTimeout)
	v.SetDefault("pipeline.max_concurrency", fetcher.DefaultMaxConcurrency)
	v.SetDefault("pipeline.enable_deduplication", pipeline.EnableDeduplication)
	v.SetDefault("pipeline.enable_precompute", pipeline.EnablePrecompute)

	// HTTP client defaults
	v.SetDefault("httpclient.timeout", httpclient.DefaultTimeout)
	v.SetDefault("httpclient.retry_attempts", httpclient.DefaultRetryAttempts)
	v.SetDefault("httpclient.retry_delay", httpclient.DefaultRetryDelay)
	v.SetDefault("httpclient.retry_max_delay", httpclient.DefaultRetryMaxDelay)
	v.SetDefault("httpclient.circuit_threshold", httpclient.DefaultCircuitThreshold)
	v.SetDefault("httpclient.circuit_timeout", httpclient.DefaultCircuitTimeout)
	v.SetDefault("httpclient.user_agent", httpclient.DefaultUserAgentHeader)
	v.SetDefault("httpclient.max_response_size", httpclient.DefaultMaxResponseSize)

	// Metadata defaults
	v.SetDefault("metadata.enabled", true)
	v.SetDefault("metadata.base_url", metadata.DefaultBaseURL)
	v.SetDefault("metadata.cache_size", metadata.DefaultCacheSize)
	v.SetDefault("metadata.cache_ttl", defaultMetadataCacheTTL)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true, "pretty": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text, pretty")
	}

	if c.Pipeline.ExpressionTimeout <= 0 {
		return fmt.Errorf("pipeline.expression_timeout must be positive")
	}
	if c.Pipeline.MaxConcurrency < 1 {
		return fmt.Errorf("pipeline.max_concurrency must be at least 1")
	}

	if c.HTTPClient.Timeout <= 0 {
		return fmt.Errorf("httpclient.timeout must be positive")
	}
	if c.HTTPClient.RetryAttempts < 0 {
		return fmt.Errorf("httpclient.retry_attempts must not be negative")
	}

	if c.Metadata.Enabled && c.Metadata.BaseURL == "" {
		return fmt.Errorf("metadata.base_url is required when metadata is enabled")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Core returns the pipeline settings as a core.Config.
func (c *PipelineConfig) Core() core.Config {
	return core.Config{
		ExpressionTimeout:   c.ExpressionTimeout,
		EnableDeduplication: c.EnableDeduplication,
		EnablePrecompute:    c.EnablePrecompute,
	}
}

// Client returns the outbound client settings as an httpclient.Config.
func (c *HTTPClientConfig) Client() httpclient.Config {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = c.Timeout
	cfg.RetryAttempts = c.RetryAttempts
	cfg.RetryDelay = c.RetryDelay
	cfg.RetryMaxDelay = c.RetryMaxDelay
	cfg.CircuitThreshold = c.CircuitThreshold
	cfg.CircuitTimeout = c.CircuitTimeout
	cfg.UserAgent = c.UserAgent
	cfg.MaxResponseSize = c.MaxResponseSize.Bytes()
	return cfg
}

// Lookup returns the metadata client settings.
func (c *MetadataConfig) Lookup() metadata.Config {
	return metadata.Config{
		BaseURL:   c.BaseURL,
		CacheSize: c.CacheSize,
		CacheTTL:  c.CacheTTL,
	}
}
