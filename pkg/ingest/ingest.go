// Package ingest implements the upload ingress: streaming one request body
// into a multipart blob upload, per-user dedup, the compensating delete on
// catalog failure, and fan-out of derivation requests on the bus.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/chronolens/chronolens/internal/logger"
	"github.com/chronolens/chronolens/internal/telemetry"
	"github.com/chronolens/chronolens/pkg/blob"
	"github.com/chronolens/chronolens/pkg/bus"
	"github.com/chronolens/chronolens/pkg/catalog"
)

// Errors the HTTP layer maps to status codes.
var (
	ErrMalformedDigest = errors.New("malformed content digest")
	ErrDuplicate       = errors.New("media with this hash already exists")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrPublishFailed   = errors.New("failed to enqueue derivation work")
	ErrUploadFailed    = errors.New("failed to store media")
)

// supportedTypes are the content types the ingress accepts.
var supportedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/heic": true,
	"image/heif": true,
}

// derivationSubjects receive the media id after a committed upload.
var derivationSubjects = []string{
	bus.SubjectPreviews,
	bus.SubjectMetadata,
	bus.SubjectImageProcess,
}

// Request describes one upload.
type Request struct {
	UserID      string
	Hash        string // base64 sha-1 payload from ParseContentDigest
	ContentType string
	Timestamp   int64 // client capture time, ms since epoch
	Body        io.Reader
}

// Result reports a committed upload.
type Result struct {
	MediaID string
	Size    int64
}

// Ingestor runs the upload protocol against the catalog, blob store and bus.
type Ingestor struct {
	store *catalog.Store
	blobs blob.Store
	pub   bus.Publisher
}

// NewIngestor creates an Ingestor.
func NewIngestor(store *catalog.Store, blobs blob.Store, pub bus.Publisher) *Ingestor {
	return &Ingestor{store: store, blobs: blobs, pub: pub}
}

// Ingest streams one upload to completion. The body is never buffered whole;
// peak memory is one part buffer. On any failure after the multipart upload
// started and before the catalog row is committed, the upload is aborted
// best-effort. A catalog insert failure after completion triggers the
// compensating object delete. Every user-visible failure is also appended to
// the user's log; success appends an info entry.
func (i *Ingestor) Ingest(ctx context.Context, req Request) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanIngest)
	defer span.End()
	span.SetAttributes(
		telemetry.AttrUserID.String(req.UserID),
		telemetry.AttrContentType.String(req.ContentType),
	)

	lc := logger.FromContext(ctx)

	exists, err := i.store.HasMediaHash(ctx, req.UserID, req.Hash)
	if err != nil {
		return nil, i.fail(ctx, req.UserID, fmt.Errorf("failed to check for duplicates: %w", err))
	}
	if exists {
		return nil, i.fail(ctx, req.UserID, ErrDuplicate)
	}

	if !supportedTypes[req.ContentType] {
		return nil, i.fail(ctx, req.UserID, fmt.Errorf("%w: %s", ErrUnsupportedType, req.ContentType))
	}

	mediaID := uuid.New().String()
	span.SetAttributes(telemetry.AttrMediaID.String(mediaID))
	if lc != nil {
		ctx = logger.WithContext(ctx, lc.WithMedia(mediaID))
	}

	size, err := i.streamToBlob(ctx, mediaID, req.ContentType, req.Body)
	if err != nil {
		return nil, i.fail(ctx, req.UserID, fmt.Errorf("%w: %s", ErrUploadFailed, err))
	}

	media := &catalog.Media{
		ID:        mediaID,
		UserID:    req.UserID,
		Hash:      req.Hash,
		CreatedAt: req.Timestamp,
	}
	if err := i.store.AddMedia(ctx, media); err != nil {
		// The object is already committed; undo it so the blob store does
		// not accumulate rows the catalog knows nothing about.
		if delErr := i.blobs.Delete(ctx, mediaID); delErr != nil {
			logger.ErrorCtx(ctx, "compensating delete failed, object orphaned",
				logger.KeyKey, mediaID,
				logger.KeyError, delErr.Error(),
			)
		}
		if errors.Is(err, catalog.ErrDuplicateMedia) {
			return nil, i.fail(ctx, req.UserID, ErrDuplicate)
		}
		return nil, i.fail(ctx, req.UserID, fmt.Errorf("failed to commit media row: %w", err))
	}

	for _, subject := range derivationSubjects {
		if err := i.pub.Publish(ctx, subject, []byte(mediaID)); err != nil {
			// The upload itself is durable; re-enqueueing is a separate
			// concern, so only the fan-out failure is reported.
			logger.ErrorCtx(ctx, "failed to publish derivation request",
				logger.KeySubject, subject,
				logger.KeyError, err.Error(),
			)
			return nil, i.fail(ctx, req.UserID, fmt.Errorf("%w: %s", ErrPublishFailed, subject))
		}
	}

	if err := i.store.AddLog(ctx, req.UserID, catalog.LogLevelInfo, "uploaded successfully"); err != nil {
		logger.WarnCtx(ctx, "failed to append upload log", logger.KeyError, err.Error())
	}
	logger.InfoCtx(ctx, "uploaded successfully", logger.KeySize, size)
	span.SetAttributes(telemetry.AttrSize.Int64(size))

	return &Result{MediaID: mediaID, Size: size}, nil
}

// streamToBlob drives the multipart upload with a fixed part-size buffer.
// An empty body still uploads a single empty part so the upload can complete.
func (i *Ingestor) streamToBlob(ctx context.Context, key, contentType string, body io.Reader) (int64, error) {
	upload, err := i.blobs.BeginMultipartUpload(ctx, key, contentType)
	if err != nil {
		return 0, fmt.Errorf("failed to begin multipart upload: %w", err)
	}

	abort := func() {
		if err := upload.Abort(ctx); err != nil {
			logger.WarnCtx(ctx, "failed to abort multipart upload",
				logger.KeyKey, key,
				logger.KeyError, err.Error(),
			)
		}
	}

	buf := make([]byte, i.blobs.PartSize())
	var total int64
	parts := 0
	for {
		n, err := io.ReadFull(body, buf)
		if n > 0 {
			if upErr := upload.UploadPart(ctx, buf[:n]); upErr != nil {
				abort()
				return 0, fmt.Errorf("failed to upload part: %w", upErr)
			}
			parts++
			total += int64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			abort()
			return 0, fmt.Errorf("failed to read request body: %w", err)
		}
	}

	if parts == 0 {
		// S3 rejects a complete with zero parts.
		if err := upload.UploadPart(ctx, nil); err != nil {
			abort()
			return 0, fmt.Errorf("failed to upload empty part: %w", err)
		}
	}

	if err := upload.Complete(ctx); err != nil {
		abort()
		return 0, fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	return total, nil
}

// fail appends an error entry to the user's log and passes the error through.
func (i *Ingestor) fail(ctx context.Context, userID string, err error) error {
	telemetry.RecordError(ctx, err)
	if logErr := i.store.AddLog(ctx, userID, catalog.LogLevelError, err.Error()); logErr != nil {
		logger.WarnCtx(ctx, "failed to append error log", logger.KeyError, logErr.Error())
	}
	return err
}
