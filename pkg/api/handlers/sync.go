package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chronolens/chronolens/internal/telemetry"
	"github.com/chronolens/chronolens/pkg/api/middleware"
	"github.com/chronolens/chronolens/pkg/catalog"
)

// SinceHeader carries the sync watermark in both directions: the server sets
// it on every sync response, the client echoes it on the next partial sync.
const SinceHeader = "Since"

// SyncHandler handles GET /sync/full and GET /sync/partial.
type SyncHandler struct {
	store *catalog.Store
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(store *catalog.Store) *SyncHandler {
	return &SyncHandler{store: store}
}

// PartialSyncResponse partitions the rows modified after the watermark.
type PartialSyncResponse struct {
	Uploaded []catalog.MediaSummary `json:"uploaded"`
	Deleted  []string               `json:"deleted"`
}

// Full handles GET /sync/full: every live row, plus a fresh watermark.
func (h *SyncHandler) Full(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), telemetry.SpanSync)
	defer span.End()
	userID := middleware.GetUserID(ctx)
	span.SetAttributes(telemetry.AttrUserID.String(userID))

	summaries, err := h.store.SyncFull(ctx, userID)
	if err != nil {
		InternalServerError(w, "Failed to load media")
		return
	}
	if summaries == nil {
		summaries = []catalog.MediaSummary{}
	}

	w.Header().Set(SinceHeader, strconv.FormatInt(time.Now().UnixMilli(), 10))
	WriteJSONOK(w, summaries)
}

// Partial handles GET /sync/partial: rows modified after the client's
// watermark, partitioned into uploaded and deleted.
func (h *SyncHandler) Partial(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), telemetry.SpanSync)
	defer span.End()
	userID := middleware.GetUserID(ctx)
	span.SetAttributes(telemetry.AttrUserID.String(userID))

	since, err := strconv.ParseInt(r.Header.Get(SinceHeader), 10, 64)
	if err != nil {
		BadRequest(w, "Since header must be an integer (ms since epoch)")
		return
	}

	uploaded, deleted, err := h.store.SyncPartial(ctx, userID, since)
	if err != nil {
		InternalServerError(w, "Failed to load media")
		return
	}
	if uploaded == nil {
		uploaded = []catalog.MediaSummary{}
	}
	if deleted == nil {
		deleted = []string{}
	}

	w.Header().Set(SinceHeader, strconv.FormatInt(time.Now().UnixMilli(), 10))
	WriteJSONOK(w, PartialSyncResponse{Uploaded: uploaded, Deleted: deleted})
}
