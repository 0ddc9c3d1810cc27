package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/chronolens/chronolens/internal/bytesize"
	"github.com/chronolens/chronolens/internal/telemetry"
	"github.com/chronolens/chronolens/pkg/blob"
	"github.com/chronolens/chronolens/pkg/bus"
	"github.com/chronolens/chronolens/pkg/catalog"
)

// Config represents the Chronolens configuration.
//
// This structure captures the static configuration of the server and the
// workers:
//   - Logging configuration
//   - Telemetry/tracing configuration
//   - HTTP server settings
//   - Auth (JWT signing secret)
//   - Catalog database connection (SQLite or PostgreSQL)
//   - Object storage (S3-compatible)
//   - Message bus (NATS)
//
// Configuration sources (in order of precedence):
//  1. Environment variables (CHRONOLENS_* or the short aliases listed on
//     each field)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing and Pyroscope profiling
	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry"`

	// Server contains HTTP server configuration
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Auth contains token signing configuration
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Database configures the media catalog (SQLite or PostgreSQL)
	Database catalog.Config `mapstructure:"database" yaml:"database"`

	// ObjectStorage configures the S3-compatible blob store
	ObjectStorage blob.Config `mapstructure:"object_storage" yaml:"object_storage"`

	// Bus configures the NATS connection shared by the API and the workers
	Bus bus.Config `mapstructure:"bus" yaml:"bus"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// ListenOn is the address the HTTP server binds to, e.g. ":8080".
	// Override: LISTEN_ON
	ListenOn string `mapstructure:"listen_on" validate:"required" yaml:"listen_on"`

	// MetricsEnabled controls whether /metrics is exposed and request
	// metrics are collected
	MetricsEnabled bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// AuthConfig contains token signing configuration.
type AuthConfig struct {
	// JWTSecret is the HMAC secret used to sign access and refresh tokens.
	// Must be at least 32 characters.
	// Override: JWT_SECRET
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32" yaml:"jwt_secret"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CHRONOLENS_* or short aliases)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read configuration file if it exists; env-only operation is fine
	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal into config struct with custom decode hooks
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// Unlike Load, an explicitly requested config file must exist.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location or
//     pure environment configuration)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: User-friendly error with instructions on failure
func MustLoad(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  chronolens config init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Restricted permissions: the config carries the JWT secret and the
	// object storage credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Set up environment variable support
	// Environment variables use the CHRONOLENS_ prefix and underscores
	// Example: CHRONOLENS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("CHRONOLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Viper only unmarshals env-backed keys it knows about, so every key
	// that can be set purely through the environment is bound explicitly.
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"telemetry.enabled", "telemetry.endpoint", "telemetry.insecure",
		"telemetry.sample_rate",
		"server.metrics_enabled",
		"shutdown_timeout",
		"database.type", "database.sqlite.path", "database.postgres.ssl_mode",
		"object_storage.part_size",
	} {
		bindEnv(v, key)
	}

	// Short aliases for deployment environments that configure the server
	// purely through the environment. The prefixed form wins when both are
	// set.
	bindEnv(v, "server.listen_on", "LISTEN_ON")
	bindEnv(v, "auth.jwt_secret", "JWT_SECRET")
	bindEnv(v, "bus.endpoint", "NATS_ENDPOINT")
	bindEnv(v, "object_storage.endpoint", "OBJECT_STORAGE_ENDPOINT")
	bindEnv(v, "object_storage.bucket", "OBJECT_STORAGE_BUCKET")
	bindEnv(v, "object_storage.region", "OBJECT_STORAGE_REGION")
	bindEnv(v, "object_storage.access_key", "OBJECT_STORAGE_ACCESS_KEY")
	bindEnv(v, "object_storage.secret_key", "OBJECT_STORAGE_SECRET_KEY")
	bindEnv(v, "database.postgres.user", "DATABASE_USERNAME")
	bindEnv(v, "database.postgres.password", "DATABASE_PASSWORD")
	bindEnv(v, "database.postgres.host", "DATABASE_HOST")
	bindEnv(v, "database.postgres.port", "DATABASE_PORT")
	bindEnv(v, "database.postgres.database", "DATABASE_NAME")

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/chronolens/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnv binds a config key to its prefixed form plus optional short aliases.
func bindEnv(v *viper.Viper, key string, aliases ...string) {
	prefixed := "CHRONOLENS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	vars := append([]string{key, prefixed}, aliases...)
	// BindEnv never fails with a non-empty key
	_ = v.BindEnv(vars...)
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		// Check if error is "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use env and defaults
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			return false, nil
		}
		// Other errors are problems
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
// This includes ByteSize and time.Duration parsing.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook returns a mapstructure decode hook that converts strings
// and integers to bytesize.ByteSize. This enables config files to use
// human-readable sizes like "8MB", "16Mi", or plain byte counts.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to ByteSize
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse human-readable string like "8MB" or "16Mi"
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to time.Duration
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse duration string like "30s", "5m", "1h"
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	// Check XDG_CONFIG_HOME
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "chronolens")
	}

	// Fall back to ~/.config
	home, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use current directory as last resort
		return "."
	}

	return filepath.Join(home, ".config", "chronolens")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// config init command).
func GetConfigDir() string {
	return getConfigDir()
}
