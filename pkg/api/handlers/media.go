package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chronolens/chronolens/internal/logger"
	"github.com/chronolens/chronolens/pkg/api/middleware"
	"github.com/chronolens/chronolens/pkg/blob"
	"github.com/chronolens/chronolens/pkg/catalog"
)

// PresignTTL is the lifetime of every presigned GET URL the API mints.
const PresignTTL = 24 * time.Hour

// MediaHandler handles the browse endpoints: preview listings and
// single-media fetches.
type MediaHandler struct {
	store *catalog.Store
	blobs blob.Store
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(store *catalog.Store, blobs blob.Store) *MediaHandler {
	return &MediaHandler{store: store, blobs: blobs}
}

// PreviewItem is one entry of a preview listing. PreviewURL is empty while
// the preview worker has not derived the preview yet.
type PreviewItem struct {
	ID         string `json:"id"`
	PreviewURL string `json:"preview_url"`
}

// MediaResponse is the single-media fetch response: the catalog row plus a
// presigned GET on the original.
type MediaResponse struct {
	*catalog.Media
	MediaURL string `json:"media_url"`
}

// Previews handles GET /previews: the user's live media, newest first.
func (h *MediaHandler) Previews(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	page, pageSize := parsePagination(r)

	refs, err := h.store.GetPreviews(r.Context(), userID, page, pageSize)
	if err != nil {
		InternalServerError(w, "Failed to load previews")
		return
	}

	WriteJSONOK(w, h.toPreviewItems(r.Context(), refs))
}

// Preview handles GET /preview/{media_id}: a presigned URL for one preview,
// as a plain string. Media owned by another user collapses to 403.
func (h *MediaHandler) Preview(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	mediaID := chi.URLParam(r, "media_id")

	previewID, err := h.store.GetPreviewFromUser(r.Context(), userID, mediaID)
	if err != nil {
		if errors.Is(err, catalog.ErrMediaNotFound) {
			Forbidden(w, "Media does not exist or user does not have permissions")
			return
		}
		InternalServerError(w, "Failed to load preview")
		return
	}
	if previewID == nil {
		NotFound(w, "Preview has not been derived yet")
		return
	}

	url, err := h.blobs.PresignGet(r.Context(), *previewID, PresignTTL)
	if err != nil {
		InternalServerError(w, "Failed to presign preview")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(url))
}

// Media handles GET /media/{media_id}: the full metadata row plus a
// presigned GET on the original.
func (h *MediaHandler) Media(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	mediaID := chi.URLParam(r, "media_id")

	media, err := h.store.GetMedia(r.Context(), userID, mediaID)
	if err != nil {
		if errors.Is(err, catalog.ErrMediaNotFound) {
			Forbidden(w, "Media does not exist or user does not have permissions")
			return
		}
		InternalServerError(w, "Failed to load media")
		return
	}

	url, err := h.blobs.PresignGet(r.Context(), media.ID, PresignTTL)
	if err != nil {
		InternalServerError(w, "Failed to presign media")
		return
	}

	WriteJSONOK(w, MediaResponse{Media: media, MediaURL: url})
}

// toPreviewItems presigns each preview key. A failed presign degrades to an
// empty URL rather than failing the whole listing.
func (h *MediaHandler) toPreviewItems(ctx context.Context, refs []catalog.PreviewRef) []PreviewItem {
	items := make([]PreviewItem, len(refs))
	for i, ref := range refs {
		items[i] = PreviewItem{ID: ref.MediaID}
		if ref.PreviewID == nil {
			continue
		}
		url, err := h.blobs.PresignGet(ctx, *ref.PreviewID, PresignTTL)
		if err != nil {
			logger.WarnCtx(ctx, "failed to presign preview",
				logger.KeyPreviewID, *ref.PreviewID,
				logger.KeyError, err.Error(),
			)
			continue
		}
		items[i].PreviewURL = url
	}
	return items
}
