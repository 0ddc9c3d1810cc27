package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/chronolens/chronolens/pkg/api/middleware"
	"github.com/chronolens/chronolens/pkg/ingest"
	"github.com/chronolens/chronolens/pkg/metrics"
)

// UploadHandler handles POST /image/upload.
type UploadHandler struct {
	ingestor *ingest.Ingestor
	metrics  *metrics.Metrics
}

// NewUploadHandler creates a new UploadHandler. metrics may be nil.
func NewUploadHandler(ingestor *ingest.Ingestor, m *metrics.Metrics) *UploadHandler {
	return &UploadHandler{ingestor: ingestor, metrics: m}
}

// Upload streams the raw request body into the blob store.
//
// The client supplies the capture time in a Timestamp header (ms since
// epoch) and the content digest as "Content-Digest: sha-1=:<base64>:".
// On success the response body is the bare media id.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	hash, err := ingest.ParseContentDigest(r.Header.Get("Content-Digest"))
	if err != nil {
		h.count(metrics.OutcomeRejected)
		BadRequest(w, "Content-Digest header must be of the form sha-1=:<base64>:")
		return
	}

	timestamp, err := strconv.ParseInt(r.Header.Get("Timestamp"), 10, 64)
	if err != nil {
		h.count(metrics.OutcomeRejected)
		BadRequest(w, "Timestamp header must be an integer (ms since epoch)")
		return
	}

	result, err := h.ingestor.Ingest(r.Context(), ingest.Request{
		UserID:      userID,
		Hash:        hash,
		ContentType: r.Header.Get("Content-Type"),
		Timestamp:   timestamp,
		Body:        r.Body,
	})
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrDuplicate):
			h.count(metrics.OutcomeDuplicate)
			PreconditionFailed(w, "Media with this digest already exists")
		case errors.Is(err, ingest.ErrUnsupportedType):
			h.count(metrics.OutcomeRejected)
			UnsupportedMediaType(w, "Content type must be image/png, image/jpeg, image/heic or image/heif")
		default:
			h.count(metrics.OutcomeError)
			InternalServerError(w, "Upload failed")
		}
		return
	}

	h.count(metrics.OutcomeOK)
	if h.metrics != nil {
		h.metrics.UploadBytesTotal.Add(float64(result.Size))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(result.MediaID))
}

func (h *UploadHandler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.UploadsTotal.WithLabelValues(outcome).Inc()
	}
}
