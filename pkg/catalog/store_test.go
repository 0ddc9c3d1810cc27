package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore creates an in-memory SQLite store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(&Config{
		Type: DatabaseTypeSQLite,
		SQLite: SQLiteConfig{
			Path: ":memory:",
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// addTestMedia inserts a live media row and returns its id.
func addTestMedia(t *testing.T, store *Store, userID, hash string, createdAt int64) string {
	t.Helper()
	media := &Media{
		ID:        uuid.New().String(),
		UserID:    userID,
		Hash:      hash,
		CreatedAt: createdAt,
	}
	require.NoError(t, store.AddMedia(context.Background(), media))
	return media.ID
}

func TestConfigDefaults(t *testing.T) {
	t.Run("empty config uses sqlite", func(t *testing.T) {
		config := &Config{}
		config.ApplyDefaults()
		assert.Equal(t, DatabaseTypeSQLite, config.Type)
		assert.NotEmpty(t, config.SQLite.Path)
	})

	t.Run("postgres pool defaults", func(t *testing.T) {
		config := &Config{Type: DatabaseTypePostgres}
		config.ApplyDefaults()
		assert.Equal(t, 5432, config.Postgres.Port)
		assert.Equal(t, 100, config.Postgres.MaxOpenConns)
		assert.Equal(t, 5, config.Postgres.MaxIdleConns)
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		_, err := New(&Config{Type: "invalid"})
		assert.Error(t, err)
	})
}

func TestUserOperations(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	t.Run("add user", func(t *testing.T) {
		id, err := store.AddUser(ctx, "alice", "password")
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	})

	t.Run("duplicate username fails", func(t *testing.T) {
		_, err := store.AddUser(ctx, "alice", "other")
		assert.ErrorIs(t, err, ErrDuplicateUser)
	})

	t.Run("get user", func(t *testing.T) {
		user, err := store.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.NotEqual(t, "password", user.PasswordHash)
	})

	t.Run("get user not found", func(t *testing.T) {
		_, err := store.GetUser(ctx, "nobody")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("validate credentials", func(t *testing.T) {
		user, err := store.ValidateCredentials(ctx, "alice", "password")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("wrong password collapses to invalid credentials", func(t *testing.T) {
		_, err := store.ValidateCredentials(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user collapses to invalid credentials", func(t *testing.T) {
		_, err := store.ValidateCredentials(ctx, "nobody", "password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestMediaDedup(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	alice, err := store.AddUser(ctx, "alice", "pw")
	require.NoError(t, err)
	bob, err := store.AddUser(ctx, "bob", "pw")
	require.NoError(t, err)

	addTestMedia(t, store, alice, "digest-1", 1700000000000)

	t.Run("hash visible to owner", func(t *testing.T) {
		has, err := store.HasMediaHash(ctx, alice, "digest-1")
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("dedup is per user", func(t *testing.T) {
		has, err := store.HasMediaHash(ctx, bob, "digest-1")
		require.NoError(t, err)
		assert.False(t, has)

		// Bob can store the same bytes under his own account.
		addTestMedia(t, store, bob, "digest-1", 1700000000000)
	})

	t.Run("same user same hash fails", func(t *testing.T) {
		dup := &Media{
			ID:        uuid.New().String(),
			UserID:    alice,
			Hash:      "digest-1",
			CreatedAt: 1700000000000,
		}
		assert.ErrorIs(t, store.AddMedia(ctx, dup), ErrDuplicateMedia)
	})

	t.Run("tombstoned media still counts as duplicate", func(t *testing.T) {
		id := addTestMedia(t, store, alice, "digest-2", 1700000000000)
		require.NoError(t, store.DeleteMedia(ctx, alice, id))

		has, err := store.HasMediaHash(ctx, alice, "digest-2")
		require.NoError(t, err)
		assert.True(t, has)
	})
}

func TestMediaAccessScoping(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	alice, _ := store.AddUser(ctx, "alice", "pw")
	bob, _ := store.AddUser(ctx, "bob", "pw")
	mediaID := addTestMedia(t, store, alice, "digest-1", 1700000000000)

	t.Run("owner sees media", func(t *testing.T) {
		media, err := store.GetMedia(ctx, alice, mediaID)
		require.NoError(t, err)
		assert.Equal(t, mediaID, media.ID)
	})

	t.Run("cross-user lookup collapses to not found", func(t *testing.T) {
		_, err := store.GetMedia(ctx, bob, mediaID)
		assert.ErrorIs(t, err, ErrMediaNotFound)
	})

	t.Run("tombstoned media not returned", func(t *testing.T) {
		require.NoError(t, store.DeleteMedia(ctx, alice, mediaID))
		_, err := store.GetMedia(ctx, alice, mediaID)
		assert.ErrorIs(t, err, ErrMediaNotFound)
	})

	t.Run("double delete fails", func(t *testing.T) {
		assert.ErrorIs(t, store.DeleteMedia(ctx, alice, mediaID), ErrMediaNotFound)
	})
}

func TestUpdateMediaPreview(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	alice, _ := store.AddUser(ctx, "alice", "pw")
	mediaID := addTestMedia(t, store, alice, "digest-1", 1700000000000)

	before, err := store.GetMedia(ctx, alice, mediaID)
	require.NoError(t, err)
	assert.Nil(t, before.PreviewID)

	previewKey := "prev/" + mediaID
	require.NoError(t, store.UpdateMediaPreview(ctx, mediaID, previewKey))

	after, err := store.GetMedia(ctx, alice, mediaID)
	require.NoError(t, err)
	require.NotNil(t, after.PreviewID)
	assert.Equal(t, previewKey, *after.PreviewID)
	assert.GreaterOrEqual(t, after.LastModifiedAt, before.LastModifiedAt)

	t.Run("redelivery writes the same key", func(t *testing.T) {
		require.NoError(t, store.UpdateMediaPreview(ctx, mediaID, previewKey))
		again, err := store.GetMedia(ctx, alice, mediaID)
		require.NoError(t, err)
		assert.Equal(t, previewKey, *again.PreviewID)
	})

	t.Run("unknown media fails", func(t *testing.T) {
		err := store.UpdateMediaPreview(ctx, uuid.New().String(), "prev/none")
		assert.ErrorIs(t, err, ErrMediaNotFound)
	})
}

func TestSetMediaMetadata(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	alice, _ := store.AddUser(ctx, "alice", "pw")
	mediaID := addTestMedia(t, store, alice, "digest-1", 1700000000000)

	size := int64(2048)
	lon := 9.19
	lat := -45.46
	width := int64(4032)
	camMake := "Apple"
	fnumber := 1.8

	meta := MediaMetadata{
		FileSize:   &size,
		Longitude:  &lon,
		Latitude:   &lat,
		ImageWidth: &width,
		Make:       &camMake,
		FNumber:    &fnumber,
	}
	require.NoError(t, store.SetMediaMetadata(ctx, mediaID, meta))

	media, err := store.GetMedia(ctx, alice, mediaID)
	require.NoError(t, err)
	require.NotNil(t, media.FileSize)
	assert.Equal(t, size, *media.FileSize)
	assert.Equal(t, lon, *media.Longitude)
	assert.Equal(t, lat, *media.Latitude)
	assert.Equal(t, width, *media.ImageWidth)
	assert.Equal(t, "Apple", *media.Make)
	assert.Equal(t, 1.8, *media.FNumber)

	// Absent fields stay null.
	assert.Nil(t, media.Model)
	assert.Nil(t, media.ExposureTime)
	assert.Nil(t, media.Orientation)

	t.Run("redelivery with less data clears stale fields", func(t *testing.T) {
		require.NoError(t, store.SetMediaMetadata(ctx, mediaID, MediaMetadata{FileSize: &size}))
		media, err := store.GetMedia(ctx, alice, mediaID)
		require.NoError(t, err)
		assert.Nil(t, media.Longitude)
		assert.NotNil(t, media.FileSize)
	})
}

func TestGetPreviewsPagination(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	alice, _ := store.AddUser(ctx, "alice", "pw")
	for i := 0; i < 25; i++ {
		addTestMedia(t, store, alice, uuid.New().String(), int64(1700000000000+i))
	}

	t.Run("default page size is 10", func(t *testing.T) {
		refs, err := store.GetPreviews(ctx, alice, 1, 0)
		require.NoError(t, err)
		assert.Len(t, refs, 10)
	})

	t.Run("newest first", func(t *testing.T) {
		refs, err := store.GetPreviews(ctx, alice, 1, 2)
		require.NoError(t, err)
		require.Len(t, refs, 2)

		first, err := store.GetMedia(ctx, alice, refs[0].MediaID)
		require.NoError(t, err)
		second, err := store.GetMedia(ctx, alice, refs[1].MediaID)
		require.NoError(t, err)
		assert.Greater(t, first.CreatedAt, second.CreatedAt)
	})

	t.Run("page size capped at 30", func(t *testing.T) {
		refs, err := store.GetPreviews(ctx, alice, 1, 100)
		require.NoError(t, err)
		assert.Len(t, refs, 10)
	})

	t.Run("last page is short", func(t *testing.T) {
		refs, err := store.GetPreviews(ctx, alice, 3, 10)
		require.NoError(t, err)
		assert.Len(t, refs, 5)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		refs, err := store.GetPreviews(ctx, alice, 4, 10)
		require.NoError(t, err)
		assert.Empty(t, refs)
	})
}

func TestSync(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	alice, _ := store.AddUser(ctx, "alice", "pw")
	first := addTestMedia(t, store, alice, "digest-1", 1700000000000)

	t.Run("full sync returns live rows", func(t *testing.T) {
		rows, err := store.SyncFull(ctx, alice)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, first, rows[0].ID)
		assert.Equal(t, int64(1700000000000), rows[0].CreatedAt)
		assert.Equal(t, "digest-1", rows[0].Hash)
	})

	media, err := store.GetMedia(ctx, alice, first)
	require.NoError(t, err)
	watermark := media.LastModifiedAt

	// last_modified_at has millisecond resolution; wait for the clock to
	// tick past the watermark so the next writes land strictly after it.
	for nowMillis() <= watermark {
		time.Sleep(time.Millisecond)
	}

	second := addTestMedia(t, store, alice, "digest-2", 1700000001000)
	require.NoError(t, store.DeleteMedia(ctx, alice, first))

	t.Run("partial sync partitions by tombstone", func(t *testing.T) {
		uploaded, deleted, err := store.SyncPartial(ctx, alice, watermark)
		require.NoError(t, err)
		require.Len(t, uploaded, 1)
		assert.Equal(t, second, uploaded[0].ID)
		assert.Equal(t, []string{first}, deleted)
	})

	t.Run("future watermark returns nothing", func(t *testing.T) {
		uploaded, deleted, err := store.SyncPartial(ctx, alice, nowMillis()+60_000)
		require.NoError(t, err)
		assert.Empty(t, uploaded)
		assert.Empty(t, deleted)
	})

	t.Run("full sync skips tombstones", func(t *testing.T) {
		rows, err := store.SyncFull(ctx, alice)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, second, rows[0].ID)
	})
}
