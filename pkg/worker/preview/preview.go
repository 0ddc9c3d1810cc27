// Package preview implements the preview derivation worker: it consumes
// media ids from the previews subject, fetches the original, renders a
// reduced copy and reflects the preview key back into the catalog.
package preview

import (
	"bytes"
	"context"
	"errors"
	"image"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"

	"github.com/chronolens/chronolens/internal/logger"
	"github.com/chronolens/chronolens/internal/telemetry"
	"github.com/chronolens/chronolens/pkg/blob"
	"github.com/chronolens/chronolens/pkg/catalog"
	"github.com/chronolens/chronolens/pkg/worker"
)

// Height is the fixed preview height in pixels; width follows the aspect
// ratio of the original.
const Height = 200

// heifTypes are decoded with the HEIF decoder instead of the generic one.
var heifTypes = map[string]bool{
	"image/heic": true,
	"image/heif": true,
}

// Handler derives one preview per message. Redelivery is harmless: the
// preview object is overwritten and the catalog update writes the same key.
type Handler struct {
	store *catalog.Store
	blobs blob.Store
}

// NewHandler creates a preview Handler.
func NewHandler(store *catalog.Store, blobs blob.Store) *Handler {
	return &Handler{store: store, blobs: blobs}
}

// Handle processes one previews message. The payload is the media id.
func (h *Handler) Handle(ctx context.Context, payload []byte) (disp worker.Disposition) {
	mediaID := string(payload)

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPreview)
	defer func() {
		span.SetAttributes(telemetry.AttrDisposition.String(disp.String()))
		span.End()
	}()
	span.SetAttributes(telemetry.AttrMediaID.String(mediaID))

	obj, err := h.blobs.Get(ctx, mediaID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			logger.WarnCtx(ctx, "original missing, discarding message", logger.KeyKey, mediaID)
			return worker.Discard
		}
		logger.WarnCtx(ctx, "failed to fetch original", logger.KeyError, err.Error())
		return worker.Retry
	}
	defer func() { _ = obj.Body.Close() }()

	var img image.Image
	if heifTypes[obj.ContentType] {
		img, err = goheif.Decode(obj.Body)
	} else {
		img, err = imaging.Decode(obj.Body, imaging.AutoOrientation(true))
	}
	if err != nil {
		logger.WarnCtx(ctx, "undecodable image, discarding message", logger.KeyError, err.Error())
		return worker.Discard
	}

	resized := imaging.Resize(img, 0, Height, imaging.Linear)

	// JPEG unless the source carries transparency.
	format, contentType := imaging.JPEG, "image/jpeg"
	if hasAlpha(img) {
		format, contentType = imaging.PNG, "image/png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		logger.WarnCtx(ctx, "failed to encode preview", logger.KeyError, err.Error())
		return worker.Discard
	}

	previewKey := blob.PreviewKey(mediaID)
	span.SetAttributes(telemetry.AttrKey.String(previewKey))
	if err := h.blobs.Put(ctx, previewKey, contentType, buf.Bytes()); err != nil {
		logger.WarnCtx(ctx, "failed to store preview", logger.KeyError, err.Error())
		return worker.Retry
	}

	if err := h.store.UpdateMediaPreview(ctx, mediaID, previewKey); err != nil {
		if errors.Is(err, catalog.ErrMediaNotFound) {
			// The row is gone; the preview object is harmless leftover.
			logger.WarnCtx(ctx, "media row missing, discarding message", logger.KeyKey, mediaID)
			return worker.Discard
		}
		logger.WarnCtx(ctx, "failed to record preview", logger.KeyError, err.Error())
		return worker.Retry
	}

	logger.InfoCtx(ctx, "preview derived", logger.KeyPreviewID, previewKey)
	return worker.Ack
}

// hasAlpha reports whether the image carries any transparency.
func hasAlpha(img image.Image) bool {
	type opaquer interface{ Opaque() bool }
	if o, ok := img.(opaquer); ok {
		return !o.Opaque()
	}
	return false
}
