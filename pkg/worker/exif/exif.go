// Package exif implements the metadata derivation worker: it consumes media
// ids from the metadata subject, parses the original's EXIF block and writes
// the structured camera fields into the catalog.
package exif

import (
	"context"
	"errors"
	"fmt"

	goexif "github.com/rwcarlsen/goexif/exif"

	"github.com/chronolens/chronolens/internal/logger"
	"github.com/chronolens/chronolens/internal/telemetry"
	"github.com/chronolens/chronolens/pkg/blob"
	"github.com/chronolens/chronolens/pkg/catalog"
	"github.com/chronolens/chronolens/pkg/worker"
)

// Handler extracts EXIF metadata for one media id per message. All fields
// are written on every run, so a redelivered message cannot leave stale
// values behind.
type Handler struct {
	store *catalog.Store
	blobs blob.Store
}

// NewHandler creates a metadata Handler.
func NewHandler(store *catalog.Store, blobs blob.Store) *Handler {
	return &Handler{store: store, blobs: blobs}
}

// Handle processes one metadata message. The payload is the media id.
// Unparseable EXIF is poison: the row keeps its null metadata fields and the
// message is discarded.
func (h *Handler) Handle(ctx context.Context, payload []byte) (disp worker.Disposition) {
	mediaID := string(payload)

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanMetadata)
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

	parsed, err := goexif.Decode(obj.Body)
	if err != nil {
		logger.WarnCtx(ctx, "unparseable EXIF, discarding message", logger.KeyError, err.Error())
		return worker.Discard
	}

	meta := extract(parsed)
	meta.FileSize = &obj.Size

	if err := h.store.SetMediaMetadata(ctx, mediaID, meta); err != nil {
		if errors.Is(err, catalog.ErrMediaNotFound) {
			logger.WarnCtx(ctx, "media row missing, discarding message", logger.KeyKey, mediaID)
			return worker.Discard
		}
		logger.WarnCtx(ctx, "failed to record metadata", logger.KeyError, err.Error())
		return worker.Retry
	}

	logger.InfoCtx(ctx, "metadata extracted", logger.KeyMediaID, mediaID)
	return worker.Ack
}

// extract pulls the supported fields out of a parsed EXIF block. Every field
// is optional; absent or malformed tags stay nil.
func extract(x *goexif.Exif) catalog.MediaMetadata {
	var meta catalog.MediaMetadata

	// LatLong already folds the (deg, min, sec) rationals and the N/S, E/W
	// hemisphere refs into signed decimal degrees.
	if lat, long, err := x.LatLong(); err == nil {
		meta.Latitude = &lat
		meta.Longitude = &long
	}

	meta.ImageWidth = intField(x, goexif.ImageWidth)
	meta.ImageLength = intField(x, goexif.ImageLength)
	meta.Make = stringField(x, goexif.Make)
	meta.Model = stringField(x, goexif.Model)
	meta.FNumber = ratField(x, goexif.FNumber)
	meta.ExposureTime = ratStringField(x, goexif.ExposureTime)
	meta.PhotographicSensitivity = intField(x, goexif.ISOSpeedRatings)
	meta.Orientation = intField(x, goexif.Orientation)

	return meta
}

func intField(x *goexif.Exif, name goexif.FieldName) *int64 {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	v, err := tag.Int64(0)
	if err != nil {
		return nil
	}
	return &v
}

func stringField(x *goexif.Exif, name goexif.FieldName) *string {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	v, err := tag.StringVal()
	if err != nil {
		return nil
	}
	return &v
}

func ratField(x *goexif.Exif, name goexif.FieldName) *float64 {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}

// ratStringField keeps the rational form ("1/250") instead of a float, which
// is how exposure times are conventionally displayed.
func ratStringField(x *goexif.Exif, name goexif.FieldName) *string {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return nil
	}
	v := fmt.Sprintf("%d/%d", num, den)
	return &v
}
