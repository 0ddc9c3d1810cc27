package config

import (
	"time"

	"github.com/chronolens/chronolens/internal/telemetry"
)

// Default configuration values.
const (
	// DefaultListenOn is the default HTTP listen address
	DefaultListenOn = ":8080"

	// DefaultShutdownTimeout is the default graceful shutdown timeout
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultBusEndpoint is the default NATS server URL
	DefaultBusEndpoint = "nats://localhost:4222"
)

// GetDefaultConfig returns a configuration populated with default values.
// The JWT secret has no default and must be provided via JWT_SECRET or the
// config file.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in missing configuration with default values.
// Only zero values are replaced; anything the file or environment set is
// left alone.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	applyTelemetryDefaults(&cfg.Telemetry)

	if cfg.Server.ListenOn == "" {
		cfg.Server.ListenOn = DefaultListenOn
	}

	if cfg.Bus.Endpoint == "" {
		cfg.Bus.Endpoint = DefaultBusEndpoint
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Database and object storage carry their own defaulting
	cfg.Database.ApplyDefaults()
	cfg.ObjectStorage.ApplyDefaults()
}

// applyTelemetryDefaults fills in missing telemetry configuration. Enabled
// flags default to false: tracing and profiling are opt-in.
func applyTelemetryDefaults(cfg *telemetry.Config) {
	defaults := telemetry.DefaultConfig()

	if cfg.ServiceName == "" {
		cfg.ServiceName = defaults.ServiceName
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = defaults.ServiceVersion
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
		cfg.Insecure = defaults.Insecure
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = defaults.SampleRate
	}

	if cfg.Profiling.ServiceName == "" {
		cfg.Profiling.ServiceName = cfg.ServiceName
	}
	if cfg.Profiling.ServiceVersion == "" {
		cfg.Profiling.ServiceVersion = cfg.ServiceVersion
	}
	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{
			"cpu", "alloc_objects", "alloc_space",
			"inuse_objects", "inuse_space", "goroutines",
		}
	}
}
