// Package api wires the HTTP surface: router, middleware stack and server
// lifecycle.
package api

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/chronolens/chronolens/internal/logger"
	"github.com/chronolens/chronolens/pkg/api/auth"
	"github.com/chronolens/chronolens/pkg/api/handlers"
	"github.com/chronolens/chronolens/pkg/api/middleware"
	"github.com/chronolens/chronolens/pkg/blob"
	"github.com/chronolens/chronolens/pkg/bus"
	"github.com/chronolens/chronolens/pkg/catalog"
	"github.com/chronolens/chronolens/pkg/ingest"
	"github.com/chronolens/chronolens/pkg/metrics"
)

// Deps are the collaborators the router needs. In production Publisher and
// Requester are the same bus connection. Metrics may be nil.
type Deps struct {
	Store      *catalog.Store
	Blobs      blob.Store
	Publisher  bus.Publisher
	Requester  bus.Requester
	JWTService *auth.JWTService
	Metrics    *metrics.Metrics
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The middleware stack (order matters): request id, real client IP, request
// logging, panic recovery, and a request timeout generous enough for large
// uploads.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	if deps.Metrics != nil {
		r.Use(httpMetrics(deps.Metrics))
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(10 * time.Minute))

	authHandler := handlers.NewAuthHandler(deps.Store, deps.JWTService)
	uploadHandler := handlers.NewUploadHandler(ingest.NewIngestor(deps.Store, deps.Blobs, deps.Publisher), deps.Metrics)
	syncHandler := handlers.NewSyncHandler(deps.Store)
	mediaHandler := handlers.NewMediaHandler(deps.Store, deps.Blobs)
	facesHandler := handlers.NewFacesHandler(deps.Store, deps.Blobs)
	logsHandler := handlers.NewLogsHandler(deps.Store)
	searchHandler := handlers.NewSearchHandler(deps.Requester)

	// Public routes
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Post("/refresh", authHandler.Refresh)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(deps.JWTService))

		r.Post("/image/upload", uploadHandler.Upload)

		r.Get("/sync/full", syncHandler.Full)
		r.Get("/sync/partial", syncHandler.Partial)

		r.Get("/previews", mediaHandler.Previews)
		r.Get("/preview/{media_id}", mediaHandler.Preview)
		r.Get("/media/{media_id}", mediaHandler.Media)

		r.Get("/logs", logsHandler.Logs)

		r.Get("/faces", facesHandler.Faces)
		r.Get("/cluster/{id}", facesHandler.ClusterPreviews)
		r.Get("/face/{id}", facesHandler.FacePreviews)
		r.Post("/create_face", facesHandler.CreateFace)

		r.Get("/search", searchHandler.Search)
	})

	return r
}

// httpMetrics observes handler latency per route pattern.
func httpMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequestDuration.
				WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).
				Observe(logger.Duration(start))
		})
	}
}

// requestLogger logs request start and completion using the internal logger
// and seeds the per-request LogContext carried by the Ctx log variants.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimiddleware.GetReqID(r.Context())

		clientIP := r.RemoteAddr
		if host, _, err := net.SplitHostPort(clientIP); err == nil {
			clientIP = host
		}

		lc := logger.NewLogContext(clientIP)
		lc.RequestID = requestID
		ctx := logger.WithContext(r.Context(), lc)

		logger.DebugCtx(ctx, "API request started",
			"method", r.Method,
			"path", r.URL.Path,
		)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.InfoCtx(ctx, "API request completed",
			"method", r.Method,
			"path", r.URL.Path,
			logger.KeyStatus, ww.Status(),
			logger.KeySize, ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start),
		)
	})
}
