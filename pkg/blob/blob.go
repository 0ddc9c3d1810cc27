// Package blob provides the object store used for originals and previews.
//
// Originals live at key <media_id>, previews at prev/<media_id>. The S3
// implementation uses path-style addressing so it works against MinIO and
// other S3-compatible endpoints.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when the requested object key does not exist.
var ErrNotFound = errors.New("object not found")

// PreviewKeyPrefix is prepended to a media id to form its preview key.
const PreviewKeyPrefix = "prev/"

// PreviewKey returns the object key of the preview derived from a media id.
func PreviewKey(mediaID string) string {
	return PreviewKeyPrefix + mediaID
}

// Object is a fetched blob. Callers own Body and must close it.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Upload is one in-flight multipart upload. Parts are sized by the store's
// configured part size; only the final part may be smaller. Exactly one of
// Complete or Abort must be called.
type Upload interface {
	// UploadPart uploads the next part. Parts are implicitly numbered in
	// call order.
	UploadPart(ctx context.Context, data []byte) error

	// Complete assembles the uploaded parts into the final object.
	Complete(ctx context.Context) error

	// Abort cancels the upload and discards uploaded parts. Idempotent.
	Abort(ctx context.Context) error
}

// Store is the object store interface the ingress and the workers use.
type Store interface {
	// Get fetches an object. Missing keys return ErrNotFound.
	Get(ctx context.Context, key string) (*Object, error)

	// Put writes a small object in one request.
	Put(ctx context.Context, key, contentType string, data []byte) error

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// BeginMultipartUpload starts a streaming upload for the given key.
	BeginMultipartUpload(ctx context.Context, key, contentType string) (Upload, error)

	// PresignGet mints a time-limited GET URL for the key.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)

	// PartSize is the configured multipart part size in bytes. Callers
	// streaming into a multipart upload buffer this much at a time.
	PartSize() int64
}
