package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chronolens/chronolens/internal/logger"
	"github.com/chronolens/chronolens/pkg/api"
	"github.com/chronolens/chronolens/pkg/api/auth"
	"github.com/chronolens/chronolens/pkg/blob"
	"github.com/chronolens/chronolens/pkg/bus"
	"github.com/chronolens/chronolens/pkg/catalog"
	"github.com/chronolens/chronolens/pkg/config"
	"github.com/chronolens/chronolens/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Chronolens API server",
	Long: `Start the Chronolens API server.

The server exposes registration, login, upload, sync, browse, faces and
search endpoints. Derivation work (previews, metadata) is handed off to the
message bus; run "chronolens preview-worker" and "chronolens metadata-worker"
alongside the server to process it.

Examples:
  # Start with the default config location
  chronolens serve

  # Start with a custom config file
  chronolens serve --config /etc/chronolens/config.yaml

  # Pure environment configuration
  JWT_SECRET=... OBJECT_STORAGE_BUCKET=photos chronolens serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := initTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer telemetryShutdown()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	store, err := catalog.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	logger.Info("Catalog ready", "type", string(cfg.Database.Type))

	blobs, err := blob.NewS3Store(ctx, cfg.ObjectStorage)
	if err != nil {
		return err
	}
	logger.Info("Object storage ready",
		logger.KeyBucket, cfg.ObjectStorage.Bucket,
		"endpoint", cfg.ObjectStorage.Endpoint,
	)

	conn, err := bus.Connect(cfg.Bus)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.EnsureStreams(ctx); err != nil {
		return err
	}
	logger.Info("Message bus ready", "endpoint", cfg.Bus.Endpoint)

	jwtService, err := auth.NewJWTService(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Server.MetricsEnabled {
		m = metrics.New()
		logger.Info("Metrics enabled", "path", "/metrics")
	}

	server := api.NewServer(cfg.Server.ListenOn, api.Deps{
		Store:      store,
		Blobs:      blobs,
		Publisher:  conn,
		Requester:  conn,
		JWTService: jwtService,
		Metrics:    m,
	})

	// Start server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")

		// Stop with the configured timeout before cancelling the run
		// context, so in-flight requests get their full grace period.
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer stopCancel()
		if err := server.Stop(stopCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			cancel()
			<-serverDone
			return err
		}
		cancel()
		<-serverDone
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}
