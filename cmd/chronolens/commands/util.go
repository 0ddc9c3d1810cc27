package commands

import (
	"context"
	"fmt"

	"github.com/chronolens/chronolens/internal/logger"
	"github.com/chronolens/chronolens/internal/telemetry"
	"github.com/chronolens/chronolens/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// initTelemetry starts tracing and profiling per configuration and returns a
// combined shutdown function. Both are no-ops when disabled.
func initTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	telemetryCfg := cfg.Telemetry
	telemetryCfg.ServiceVersion = Version
	telemetryCfg.Profiling.ServiceVersion = Version

	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	profilingShutdown, err := telemetry.InitProfiling(telemetryCfg.Profiling)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}

	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", telemetryCfg.Endpoint, "sample_rate", telemetryCfg.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", telemetryCfg.Profiling.Endpoint, "profile_types", telemetryCfg.Profiling.ProfileTypes)
	}

	return func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}, nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "environment and defaults"
}
