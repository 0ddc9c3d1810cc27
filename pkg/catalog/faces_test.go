package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addTestDetection inserts a cluster (if new) and a detection row.
func addTestDetection(t *testing.T, store *Store, userID, clusterID, mediaID string, bbox []int) {
	t.Helper()
	ctx := context.Background()

	var existing Cluster
	err := store.db.WithContext(ctx).Where("id = ?", clusterID).First(&existing).Error
	if err != nil {
		require.NoError(t, store.db.WithContext(ctx).Create(&Cluster{ID: clusterID, UserID: userID}).Error)
	}

	detection := &MediaFace{
		ID:        uuid.New().String(),
		MediaID:   mediaID,
		ClusterID: clusterID,
		BBox:      bbox,
	}
	require.NoError(t, store.db.WithContext(ctx).Create(detection).Error)
}

func TestClusterAndFacePreviews(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	alice, _ := store.AddUser(ctx, "alice", "pw")
	bob, _ := store.AddUser(ctx, "bob", "pw")

	m1 := addTestMedia(t, store, alice, "h1", 1700000000000)
	m2 := addTestMedia(t, store, alice, "h2", 1700000002000)
	m3 := addTestMedia(t, store, alice, "h3", 1700000001000)

	addTestDetection(t, store, alice, "cluster-a", m1, []int{10, 10, 40, 40})
	addTestDetection(t, store, alice, "cluster-a", m2, []int{5, 5, 30, 30})
	addTestDetection(t, store, alice, "cluster-b", m3, []int{0, 0, 20, 20})

	t.Run("cluster previews ordered newest first", func(t *testing.T) {
		refs, err := store.GetClusterPreviews(ctx, alice, "cluster-a", 1, 10)
		require.NoError(t, err)
		require.Len(t, refs, 2)
		assert.Equal(t, m2, refs[0].MediaID)
		assert.Equal(t, m1, refs[1].MediaID)
	})

	t.Run("cross-user cluster lookup is empty", func(t *testing.T) {
		refs, err := store.GetClusterPreviews(ctx, bob, "cluster-a", 1, 10)
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("face previews span all bound clusters", func(t *testing.T) {
		faceID, err := store.InsertFace(ctx, alice, []string{m1, m3}, "Ada")
		require.NoError(t, err)

		refs, err := store.GetFacePreviews(ctx, alice, faceID, 1, 10)
		require.NoError(t, err)
		// cluster-a (via m1) and cluster-b (via m3) are both bound.
		require.Len(t, refs, 3)
		assert.Equal(t, m2, refs[0].MediaID)
	})

	t.Run("tombstoned media drops out", func(t *testing.T) {
		require.NoError(t, store.DeleteMedia(ctx, alice, m2))
		refs, err := store.GetClusterPreviews(ctx, alice, "cluster-a", 1, 10)
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, m1, refs[0].MediaID)
	})
}

func TestGetFaces(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	alice, _ := store.AddUser(ctx, "alice", "pw")

	m1 := addTestMedia(t, store, alice, "h1", 1700000000000)
	m2 := addTestMedia(t, store, alice, "h2", 1700000001000)
	m3 := addTestMedia(t, store, alice, "h3", 1700000002000)

	addTestDetection(t, store, alice, "cluster-a", m1, []int{1, 2, 3, 4})
	addTestDetection(t, store, alice, "cluster-b", m2, []int{5, 6, 7, 8})
	addTestDetection(t, store, alice, "cluster-c", m3, []int{9, 10, 11, 12})

	t.Run("all clusters unlabeled", func(t *testing.T) {
		summary, err := store.GetFaces(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, summary.Faces)
		assert.Len(t, summary.Clusters, 3)
	})

	t.Run("naming merges clusters into one face entry", func(t *testing.T) {
		faceID, err := store.InsertFace(ctx, alice, []string{m1, m2}, "Ada")
		require.NoError(t, err)

		summary, err := store.GetFaces(ctx, alice)
		require.NoError(t, err)

		// cluster-a and cluster-b share the face: one face entry, one
		// remaining unlabeled cluster.
		require.Len(t, summary.Faces, 1)
		assert.Equal(t, faceID, summary.Faces[0].FaceID)
		assert.Equal(t, "Ada", summary.Faces[0].Name)
		// Featured photo is the first media id passed to InsertFace.
		assert.Equal(t, m1, summary.Faces[0].MediaID)
		assert.Equal(t, []int{1, 2, 3, 4}, summary.Faces[0].BBox)

		require.Len(t, summary.Clusters, 1)
		assert.Equal(t, "cluster-c", summary.Clusters[0].ClusterID)
	})

	t.Run("cluster with only tombstoned media is skipped", func(t *testing.T) {
		require.NoError(t, store.DeleteMedia(ctx, alice, m3))
		summary, err := store.GetFaces(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, summary.Clusters)
	})
}

func TestInsertFaceValidation(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	alice, _ := store.AddUser(ctx, "alice", "pw")

	_, err := store.InsertFace(ctx, alice, nil, "Ada")
	assert.Error(t, err)
}
