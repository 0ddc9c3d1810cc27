package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chronolens/chronolens/internal/logger"
	"github.com/chronolens/chronolens/pkg/api/middleware"
	"github.com/chronolens/chronolens/pkg/blob"
	"github.com/chronolens/chronolens/pkg/catalog"
)

// FacesHandler handles the face grouping endpoints.
type FacesHandler struct {
	store *catalog.Store
	blobs blob.Store
}

// NewFacesHandler creates a new FacesHandler.
func NewFacesHandler(store *catalog.Store, blobs blob.Store) *FacesHandler {
	return &FacesHandler{store: store, blobs: blobs}
}

// FaceItem is one named person in the faces summary. PhotoURL presigns the
// original media of the representative detection; the bbox coordinates are
// in original-image space.
type FaceItem struct {
	FaceID    string `json:"face_id"`
	Name      string `json:"name"`
	ClusterID string `json:"cluster_id"`
	MediaID   string `json:"media_id"`
	BBox      []int  `json:"bbox"`
	PhotoURL  string `json:"photo_url"`
}

// ClusterItem is one unlabeled cluster in the faces summary.
type ClusterItem struct {
	ClusterID string `json:"cluster_id"`
	MediaID   string `json:"media_id"`
	BBox      []int  `json:"bbox"`
	PhotoURL  string `json:"photo_url"`
}

// FacesResponse is the response body for GET /faces.
type FacesResponse struct {
	Faces    []FaceItem    `json:"faces"`
	Clusters []ClusterItem `json:"clusters"`
}

// CreateFaceRequest is the request body for POST /create_face.
type CreateFaceRequest struct {
	IDs  []string `json:"ids"`
	Name string   `json:"name"`
}

// CreateFaceResponse is the response body for POST /create_face.
type CreateFaceResponse struct {
	ID string `json:"id"`
}

// Faces handles GET /faces: named faces and unlabeled clusters, each with a
// representative detection.
func (h *FacesHandler) Faces(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	summary, err := h.store.GetFaces(r.Context(), userID)
	if err != nil {
		InternalServerError(w, "Failed to load faces")
		return
	}

	resp := FacesResponse{
		Faces:    make([]FaceItem, len(summary.Faces)),
		Clusters: make([]ClusterItem, len(summary.Clusters)),
	}
	for i, f := range summary.Faces {
		resp.Faces[i] = FaceItem{
			FaceID:    f.FaceID,
			Name:      f.Name,
			ClusterID: f.ClusterID,
			MediaID:   f.MediaID,
			BBox:      f.BBox,
			PhotoURL:  h.presignMedia(r, f.MediaID),
		}
	}
	for i, c := range summary.Clusters {
		resp.Clusters[i] = ClusterItem{
			ClusterID: c.ClusterID,
			MediaID:   c.MediaID,
			BBox:      c.BBox,
			PhotoURL:  h.presignMedia(r, c.MediaID),
		}
	}

	WriteJSONOK(w, resp)
}

// ClusterPreviews handles GET /cluster/{id}: the user's live media containing
// a detection of the cluster.
func (h *FacesHandler) ClusterPreviews(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	page, pageSize := parsePagination(r)

	refs, err := h.store.GetClusterPreviews(r.Context(), userID, chi.URLParam(r, "id"), page, pageSize)
	if err != nil {
		InternalServerError(w, "Failed to load cluster previews")
		return
	}

	media := NewMediaHandler(h.store, h.blobs)
	WriteJSONOK(w, media.toPreviewItems(r.Context(), refs))
}

// FacePreviews handles GET /face/{id}: the user's live media containing a
// detection of any cluster bound to the face.
func (h *FacesHandler) FacePreviews(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	page, pageSize := parsePagination(r)

	refs, err := h.store.GetFacePreviews(r.Context(), userID, chi.URLParam(r, "id"), page, pageSize)
	if err != nil {
		InternalServerError(w, "Failed to load face previews")
		return
	}

	media := NewMediaHandler(h.store, h.blobs)
	WriteJSONOK(w, media.toPreviewItems(r.Context(), refs))
}

// CreateFace handles POST /create_face: names a person and binds the clusters
// detected in the given media to it.
func (h *FacesHandler) CreateFace(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateFaceRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 || req.Name == "" {
		BadRequest(w, "Media ids and a name are required")
		return
	}

	id, err := h.store.InsertFace(r.Context(), userID, req.IDs, req.Name)
	if err != nil {
		InternalServerError(w, "Failed to create face")
		return
	}

	WriteJSONOK(w, CreateFaceResponse{ID: id})
}

func (h *FacesHandler) presignMedia(r *http.Request, mediaID string) string {
	url, err := h.blobs.PresignGet(r.Context(), mediaID, PresignTTL)
	if err != nil {
		logger.WarnCtx(r.Context(), "failed to presign media",
			logger.KeyMediaID, mediaID,
			logger.KeyError, err.Error(),
		)
		return ""
	}
	return url
}
