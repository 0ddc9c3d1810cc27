package commands

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chronolens/chronolens/internal/logger"
	"github.com/chronolens/chronolens/pkg/blob"
	"github.com/chronolens/chronolens/pkg/bus"
	"github.com/chronolens/chronolens/pkg/catalog"
	"github.com/chronolens/chronolens/pkg/config"
	"github.com/chronolens/chronolens/pkg/metrics"
	"github.com/chronolens/chronolens/pkg/worker"
	"github.com/chronolens/chronolens/pkg/worker/exif"
	"github.com/chronolens/chronolens/pkg/worker/preview"
)

var (
	workerConcurrency int
	workerMetricsAddr string
)

var previewWorkerCmd = &cobra.Command{
	Use:   "preview-worker",
	Short: "Run the preview derivation worker",
	Long: `Run the preview derivation worker.

The worker consumes media ids from the previews stream, renders a fixed-height
preview of each original and stores it next to the original. Multiple worker
processes can share the durable consumer; each message is delivered to one of
them.

Examples:
  # Run with the default config location
  chronolens preview-worker

  # Run with more parallelism
  chronolens preview-worker --concurrency 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker(bus.SubjectPreviews, bus.ConsumerPreview,
			func(store *catalog.Store, blobs blob.Store) worker.Handler {
				return preview.NewHandler(store, blobs)
			})
	},
}

var metadataWorkerCmd = &cobra.Command{
	Use:   "metadata-worker",
	Short: "Run the metadata derivation worker",
	Long: `Run the metadata derivation worker.

The worker consumes media ids from the metadata stream, parses each original's
EXIF block and records camera, exposure and GPS fields in the catalog.

Examples:
  chronolens metadata-worker
  chronolens metadata-worker --config /etc/chronolens/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker(bus.SubjectMetadata, bus.ConsumerMetadata,
			func(store *catalog.Store, blobs blob.Store) worker.Handler {
				return exif.NewHandler(store, blobs)
			})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{previewWorkerCmd, metadataWorkerCmd} {
		cmd.Flags().IntVar(&workerConcurrency, "concurrency", worker.DefaultConcurrency,
			"Maximum messages handled in parallel")
		cmd.Flags().StringVar(&workerMetricsAddr, "metrics-listen", ":9100",
			"Listen address for the worker /metrics endpoint (when metrics are enabled)")
	}
}

// runWorker is the shared lifecycle of both derivation workers: connect,
// subscribe, pump messages until SIGINT/SIGTERM, then drain in-flight work.
func runWorker(stream, durable string, build func(*catalog.Store, blob.Store) worker.Handler) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	blobs, err := blob.NewS3Store(ctx, cfg.ObjectStorage)
	if err != nil {
		return err
	}

	conn, err := bus.Connect(cfg.Bus)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.EnsureStreams(ctx); err != nil {
		return err
	}

	handler := build(store, blobs)

	var m *metrics.Metrics
	if cfg.Server.MetricsEnabled {
		m = metrics.New()
		handler = metrics.InstrumentWorker(m, stream, handler)
		go serveWorkerMetrics(ctx, m, workerMetricsAddr)
	}

	sub, err := conn.Subscribe(ctx, stream, durable, workerConcurrency)
	if err != nil {
		return err
	}

	logger.Info("Worker is running. Press Ctrl+C to stop.",
		logger.KeySubject, stream,
		logger.KeyConsumer, durable,
		"concurrency", workerConcurrency,
	)

	if err := worker.NewRunner(sub, handler, workerConcurrency).Run(ctx); err != nil {
		logger.Error("Worker error", "error", err)
		return err
	}

	logger.Info("Worker stopped gracefully")
	return nil
}

// serveWorkerMetrics exposes the worker's /metrics endpoint until the context
// ends. Failures are logged, not fatal: metrics must never take a worker down.
func serveWorkerMetrics(ctx context.Context, m *metrics.Metrics, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Worker metrics listening", "address", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("Worker metrics server failed", logger.KeyError, err.Error())
	}
}
