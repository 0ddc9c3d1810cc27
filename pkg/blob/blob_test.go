package blob

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronolens/chronolens/internal/bytesize"
)

func TestPreviewKey(t *testing.T) {
	assert.Equal(t, "prev/abc-123", PreviewKey("abc-123"))
}

func TestConfigValidation(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := Config{Bucket: "photos"}
		cfg.ApplyDefaults()
		assert.Equal(t, bytesize.ByteSize(5*1024*1024), cfg.PartSize)
		assert.Equal(t, "us-east-1", cfg.Region)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing bucket", func(t *testing.T) {
		cfg := Config{}
		cfg.ApplyDefaults()
		assert.Error(t, cfg.Validate())
	})

	t.Run("part size below S3 minimum", func(t *testing.T) {
		cfg := Config{Bucket: "photos", PartSize: 1024}
		assert.Error(t, cfg.Validate())
	})
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "key-1", "image/png", []byte("payload")))

	obj, err := store.Get(ctx, "key-1")
	require.NoError(t, err)
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, int64(7), obj.Size)

	t.Run("missing key", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "key-1"))
		require.NoError(t, store.Delete(ctx, "key-1"))
		_, err := store.Get(ctx, "key-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStoreMultipart(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	t.Run("complete assembles parts in order", func(t *testing.T) {
		upload, err := store.BeginMultipartUpload(ctx, "multi", "image/jpeg")
		require.NoError(t, err)
		require.NoError(t, upload.UploadPart(ctx, []byte("part-1|")))
		require.NoError(t, upload.UploadPart(ctx, []byte("part-2")))
		require.NoError(t, upload.Complete(ctx))

		data, ok := store.ObjectData("multi")
		require.True(t, ok)
		assert.Equal(t, []byte("part-1|part-2"), data)
	})

	t.Run("abort leaves nothing behind", func(t *testing.T) {
		upload, err := store.BeginMultipartUpload(ctx, "aborted", "image/jpeg")
		require.NoError(t, err)
		require.NoError(t, upload.UploadPart(ctx, []byte("data")))
		require.NoError(t, upload.Abort(ctx))

		_, err = store.Get(ctx, "aborted")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStorePresign(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, PreviewKey("m1"), "image/jpeg", []byte("x")))

	url, err := store.PresignGet(ctx, PreviewKey("m1"), 24*time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "prev/m1")

	// Expiry is at most 24h out.
	var expires int64
	_, err = fmt.Sscanf(url[len(url)-10:], "%d", &expires)
	require.NoError(t, err)
	assert.LessOrEqual(t, expires, time.Now().Add(24*time.Hour).Unix())

	t.Run("missing key", func(t *testing.T) {
		_, err := store.PresignGet(ctx, "nope", time.Hour)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
