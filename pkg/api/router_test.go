package api

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronolens/chronolens/pkg/api/auth"
	"github.com/chronolens/chronolens/pkg/api/handlers"
	"github.com/chronolens/chronolens/pkg/blob"
	"github.com/chronolens/chronolens/pkg/bus"
	"github.com/chronolens/chronolens/pkg/catalog"
)

const testSecret = "router-test-secret-which-is-long-enough"

// fakeBus satisfies both bus interfaces for handler tests.
type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	reply     []byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string][][]byte), reply: []byte("[]")}
}

func (b *fakeBus) Publish(ctx context.Context, subject string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[subject] = append(b.published[subject], payload)
	return nil
}

func (b *fakeBus) Request(ctx context.Context, subject string, payload []byte) ([]byte, error) {
	return b.reply, nil
}

func (b *fakeBus) count(subject string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published[subject])
}

type testAPI struct {
	handler http.Handler
	store   *catalog.Store
	blobs   *blob.MemoryStore
	bus     *fakeBus
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store, err := catalog.New(&catalog.Config{
		Type:   catalog.DatabaseTypeSQLite,
		SQLite: catalog.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	jwtService, err := auth.NewJWTService(testSecret)
	require.NoError(t, err)

	blobs := blob.NewMemoryStore()
	fb := newFakeBus()

	return &testAPI{
		handler: NewRouter(Deps{
			Store:      store,
			Blobs:      blobs,
			Publisher:  fb,
			Requester:  fb,
			JWTService: jwtService,
		}),
		store: store,
		blobs: blobs,
		bus:   fb,
	}
}

func (a *testAPI) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) postJSON(t *testing.T, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.do(t, req)
}

func (a *testAPI) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.do(t, req)
}

// registerAndLogin creates a user and returns its token pair.
func (a *testAPI) registerAndLogin(t *testing.T, username, password string) *auth.TokenPair {
	t.Helper()
	rec := a.postJSON(t, "/register", map[string]string{"username": username, "password": password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.postJSON(t, "/login", map[string]string{"username": username, "password": password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	return &pair
}

func contentDigest(data []byte) string {
	sum := sha1.Sum(data)
	return fmt.Sprintf("sha-1=:%s:", base64.StdEncoding.EncodeToString(sum[:]))
}

// upload posts raw bytes and returns the response.
func (a *testAPI) upload(t *testing.T, token string, data []byte, contentType string, timestamp int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/image/upload", bytes.NewReader(data))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Digest", contentDigest(data))
	req.Header.Set("Timestamp", strconv.FormatInt(timestamp, 10))
	return a.do(t, req)
}

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t)

	rec := api.postJSON(t, "/register", map[string]string{"username": "alice", "password": "pw"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	t.Run("duplicate username is forbidden", func(t *testing.T) {
		rec := api.postJSON(t, "/register", map[string]string{"username": "alice", "password": "other"}, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("wrong password is forbidden", func(t *testing.T) {
		rec := api.postJSON(t, "/login", map[string]string{"username": "alice", "password": "wrong"}, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown user is forbidden", func(t *testing.T) {
		rec := api.postJSON(t, "/login", map[string]string{"username": "nobody", "password": "pw"}, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing fields are a bad request", func(t *testing.T) {
		rec := api.postJSON(t, "/login", map[string]string{"username": "alice"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRefresh(t *testing.T) {
	api := newTestAPI(t)
	pair := api.registerAndLogin(t, "alice", "pw")

	t.Run("valid pair refreshes", func(t *testing.T) {
		rec := api.postJSON(t, "/refresh", map[string]string{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
		}, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("undecodable tokens are a bad request", func(t *testing.T) {
		rec := api.postJSON(t, "/refresh", map[string]string{
			"access_token":  "garbage",
			"refresh_token": "garbage",
		}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("mismatched pair is forbidden", func(t *testing.T) {
		time.Sleep(2 * time.Millisecond) // distinct iat
		rec := api.postJSON(t, "/login", map[string]string{"username": "alice", "password": "pw"}, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var second auth.TokenPair
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
		require.NotEqual(t, pair.AccessToken, second.AccessToken)

		rec = api.postJSON(t, "/refresh", map[string]string{
			"access_token":  pair.AccessToken,
			"refresh_token": second.RefreshToken,
		}, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestUpload(t *testing.T) {
	api := newTestAPI(t)
	pair := api.registerAndLogin(t, "alice", "pw")
	png := []byte("not a real png but bytes are bytes")

	rec := api.upload(t, pair.AccessToken, png, "image/png", 1700000000000)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	mediaID := rec.Body.String()
	assert.NotEmpty(t, mediaID)

	stored, ok := api.blobs.ObjectData(mediaID)
	require.True(t, ok)
	assert.Equal(t, png, stored)

	for _, subject := range []string{bus.SubjectPreviews, bus.SubjectMetadata, bus.SubjectImageProcess} {
		assert.Equal(t, 1, api.bus.count(subject), subject)
	}

	t.Run("duplicate upload is a precondition failure", func(t *testing.T) {
		rec := api.upload(t, pair.AccessToken, png, "image/png", 1700000000000)
		assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	})

	t.Run("unsupported content type leaves no row", func(t *testing.T) {
		pdf := []byte("%PDF-1.4")
		rec := api.upload(t, pair.AccessToken, pdf, "application/pdf", 1700000000000)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

		users, err := api.store.ListUsers(context.Background())
		require.NoError(t, err)
		require.Len(t, users, 1)
		summaries, err := api.store.SyncFull(context.Background(), users[0].ID)
		require.NoError(t, err)
		assert.Len(t, summaries, 1) // only the first upload
	})

	t.Run("malformed digest is a bad request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/image/upload", bytes.NewReader(png))
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		req.Header.Set("Content-Type", "image/png")
		req.Header.Set("Content-Digest", "sha-256=:abc=:")
		req.Header.Set("Timestamp", "1700000000000")
		rec := api.do(t, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated upload is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/image/upload", bytes.NewReader(png))
		rec := api.do(t, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSyncRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	pair := api.registerAndLogin(t, "alice", "pw")

	first := []byte("first image")
	rec := api.upload(t, pair.AccessToken, first, "image/jpeg", 1700000000000)
	require.Equal(t, http.StatusOK, rec.Code)
	firstID := rec.Body.String()

	rec = api.get(t, "/sync/full", pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	since := rec.Header().Get(handlers.SinceHeader)
	require.NotEmpty(t, since)

	var full []catalog.MediaSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &full))
	require.Len(t, full, 1)
	assert.Equal(t, firstID, full[0].ID)
	assert.Equal(t, int64(1700000000000), full[0].CreatedAt)

	// Rows change after the watermark: one upload, one delete.
	time.Sleep(2 * time.Millisecond)
	second := []byte("second image")
	rec = api.upload(t, pair.AccessToken, second, "image/jpeg", 1700000001000)
	require.Equal(t, http.StatusOK, rec.Code)
	secondID := rec.Body.String()

	users, err := api.store.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.NoError(t, api.store.DeleteMedia(context.Background(), users[0].ID, firstID))

	req := httptest.NewRequest(http.MethodGet, "/sync/partial", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	req.Header.Set(handlers.SinceHeader, since)
	rec = api.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(handlers.SinceHeader))

	var partial handlers.PartialSyncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &partial))
	require.Len(t, partial.Uploaded, 1)
	assert.Equal(t, secondID, partial.Uploaded[0].ID)
	assert.Equal(t, []string{firstID}, partial.Deleted)

	t.Run("missing Since header is a bad request", func(t *testing.T) {
		rec := api.get(t, "/sync/partial", pair.AccessToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBrowseAndScoping(t *testing.T) {
	api := newTestAPI(t)
	alice := api.registerAndLogin(t, "alice", "pw")
	bob := api.registerAndLogin(t, "bob", "pw")

	data := []byte("alice's photo")
	rec := api.upload(t, alice.AccessToken, data, "image/jpeg", 1700000000000)
	require.Equal(t, http.StatusOK, rec.Code)
	mediaID := rec.Body.String()

	// Simulate the preview worker's write.
	previewKey := blob.PreviewKey(mediaID)
	require.NoError(t, api.blobs.Put(context.Background(), previewKey, "image/jpeg", []byte("tiny")))
	require.NoError(t, api.store.UpdateMediaPreview(context.Background(), mediaID, previewKey))

	t.Run("previews listing presigns the preview key", func(t *testing.T) {
		rec := api.get(t, "/previews", alice.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var items []handlers.PreviewItem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
		require.Len(t, items, 1)
		assert.Equal(t, mediaID, items[0].ID)
		assert.Contains(t, items[0].PreviewURL, previewKey)
	})

	t.Run("single preview returns a presigned URL string", func(t *testing.T) {
		rec := api.get(t, "/preview/"+mediaID, alice.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), previewKey)
	})

	t.Run("single media returns metadata and media_url", func(t *testing.T) {
		rec := api.get(t, "/media/"+mediaID, alice.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			ID       string `json:"id"`
			Hash     string `json:"hash"`
			MediaURL string `json:"media_url"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, mediaID, resp.ID)
		assert.Contains(t, resp.MediaURL, mediaID)
	})

	t.Run("cross-user reads collapse to forbidden", func(t *testing.T) {
		for _, path := range []string{"/preview/" + mediaID, "/media/" + mediaID} {
			rec := api.get(t, path, bob.AccessToken)
			assert.Equal(t, http.StatusForbidden, rec.Code, path)
		}
	})

	t.Run("logs include the upload entry", func(t *testing.T) {
		rec := api.get(t, "/logs", alice.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp handlers.LogsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Logs)
		assert.Equal(t, "uploaded successfully", resp.Logs[0].Message)
	})
}

func TestSearch(t *testing.T) {
	api := newTestAPI(t)
	pair := api.registerAndLogin(t, "alice", "pw")

	t.Run("empty query is a bad request", func(t *testing.T) {
		rec := api.get(t, "/search", pair.AccessToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reply is forwarded verbatim", func(t *testing.T) {
		api.bus.reply = []byte(`[{"id":"m1","preview_url":"u1"}]`)
		rec := api.get(t, "/search?query=sunset", pair.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"id":"m1","preview_url":"u1"}]`, rec.Body.String())
	})
}

func TestCreateFace(t *testing.T) {
	api := newTestAPI(t)
	pair := api.registerAndLogin(t, "alice", "pw")

	rec := api.upload(t, pair.AccessToken, []byte("photo"), "image/jpeg", 1700000000000)
	require.Equal(t, http.StatusOK, rec.Code)
	mediaID := rec.Body.String()

	users, err := api.store.ListUsers(context.Background())
	require.NoError(t, err)
	userID := users[0].ID

	// One detection so the media id resolves to a cluster.
	require.NoError(t, api.store.DB().Create(&catalog.Cluster{ID: "c1", UserID: userID}).Error)
	require.NoError(t, api.store.DB().Create(&catalog.MediaFace{
		ID: "d1", MediaID: mediaID, ClusterID: "c1", BBox: []int{1, 2, 3, 4},
	}).Error)

	rec = api.postJSON(t, "/create_face", map[string]any{"ids": []string{mediaID}, "name": "Ada"}, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created handlers.CreateFaceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	rec = api.get(t, "/faces", pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var faces handlers.FacesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &faces))
	require.Len(t, faces.Faces, 1)
	assert.Equal(t, "Ada", faces.Faces[0].Name)
	assert.Equal(t, mediaID, faces.Faces[0].MediaID)
	assert.NotEmpty(t, faces.Faces[0].PhotoURL)
	assert.Empty(t, faces.Clusters)

	t.Run("empty ids are a bad request", func(t *testing.T) {
		rec := api.postJSON(t, "/create_face", map[string]any{"ids": []string{}, "name": "Ada"}, pair.AccessToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
