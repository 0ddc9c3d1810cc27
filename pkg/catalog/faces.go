package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FaceThumb is one named person in the faces summary: the face identity plus
// a representative detection (media + bounding box) to render as a thumbnail.
type FaceThumb struct {
	FaceID    string
	Name      string
	ClusterID string
	MediaID   string
	BBox      []int
}

// ClusterThumb is one unlabeled cluster in the faces summary.
type ClusterThumb struct {
	ClusterID string
	MediaID   string
	BBox      []int
}

// FacesSummary is the result of GetFaces: named faces, one entry per face id,
// and unlabeled clusters, one entry per cluster.
type FacesSummary struct {
	Faces    []FaceThumb
	Clusters []ClusterThumb
}

// GetClusterPreviews lists the user's live media containing a detection of
// the given cluster, newest capture first, paginated.
func (s *Store) GetClusterPreviews(ctx context.Context, userID, clusterID string, page, pageSize int) ([]PreviewRef, error) {
	limit, offset := normalizePage(page, pageSize)

	var rows []Media
	err := s.db.WithContext(ctx).
		Model(&Media{}).
		Distinct().
		Joins("JOIN media_faces ON media_faces.media_id = media.id").
		Where("media_faces.cluster_id = ?", clusterID).
		Scopes(liveMediaScope(userID)).
		Order("media.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return toPreviewRefs(rows), nil
}

// GetFacePreviews lists the user's live media containing a detection of any
// cluster bound to the given face, newest capture first, paginated.
func (s *Store) GetFacePreviews(ctx context.Context, userID, faceID string, page, pageSize int) ([]PreviewRef, error) {
	limit, offset := normalizePage(page, pageSize)

	clusterIDs := s.db.
		Model(&Cluster{}).
		Select("id").
		Where("user_id = ? AND face_id = ?", userID, faceID)

	var rows []Media
	err := s.db.WithContext(ctx).
		Model(&Media{}).
		Distinct().
		Joins("JOIN media_faces ON media_faces.media_id = media.id").
		Where("media_faces.cluster_id IN (?)", clusterIDs).
		Scopes(liveMediaScope(userID)).
		Order("media.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return toPreviewRefs(rows), nil
}

// GetFaces builds the faces summary. Labeled faces get one entry per face id
// even when several clusters share it; unlabeled clusters get one entry each.
// Clusters whose detections all point at tombstoned media are skipped.
func (s *Store) GetFaces(ctx context.Context, userID string) (*FacesSummary, error) {
	var clusters []Cluster
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&clusters).Error
	if err != nil {
		return nil, err
	}

	summary := &FacesSummary{
		Faces:    []FaceThumb{},
		Clusters: []ClusterThumb{},
	}

	seenFaces := make(map[string]bool)
	for _, cluster := range clusters {
		if cluster.FaceID == nil {
			detection, err := s.clusterRepresentative(ctx, userID, cluster.ID, nil)
			if err != nil {
				return nil, err
			}
			if detection == nil {
				continue
			}
			summary.Clusters = append(summary.Clusters, ClusterThumb{
				ClusterID: cluster.ID,
				MediaID:   detection.MediaID,
				BBox:      detection.BBox,
			})
			continue
		}

		// One cluster per face id.
		if seenFaces[*cluster.FaceID] {
			continue
		}

		var face Face
		if err := s.db.WithContext(ctx).Where("id = ?", *cluster.FaceID).First(&face).Error; err != nil {
			return nil, convertNotFoundError(err, ErrFaceNotFound)
		}

		detection, err := s.clusterRepresentative(ctx, userID, cluster.ID, face.FeaturedPhotoID)
		if err != nil {
			return nil, err
		}
		if detection == nil {
			continue
		}

		seenFaces[*cluster.FaceID] = true
		summary.Faces = append(summary.Faces, FaceThumb{
			FaceID:    face.ID,
			Name:      face.Name,
			ClusterID: cluster.ID,
			MediaID:   detection.MediaID,
			BBox:      detection.BBox,
		})
	}

	return summary, nil
}

// clusterRepresentative picks the detection to render for a cluster: the one
// on the preferred media when given and present, otherwise the first
// detection whose media is still live. Returns nil when the cluster has no
// renderable detection.
func (s *Store) clusterRepresentative(ctx context.Context, userID, clusterID string, preferredMediaID *string) (*MediaFace, error) {
	query := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Model(&MediaFace{}).
			Select("media_faces.*").
			Joins("JOIN media ON media.id = media_faces.media_id").
			Where("media_faces.cluster_id = ?", clusterID).
			Scopes(liveMediaScope(userID))
	}

	if preferredMediaID != nil {
		var detection MediaFace
		err := query().
			Where("media_faces.media_id = ?", *preferredMediaID).
			First(&detection).Error
		if err == nil {
			return &detection, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var detection MediaFace
	err := query().Order("media_faces.id").First(&detection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &detection, nil
}

// InsertFace names a person: it creates the Face row, binds every cluster
// containing a detection of the given media to it, and features the first
// media id. Returns the new face id.
func (s *Store) InsertFace(ctx context.Context, userID string, mediaIDs []string, name string) (string, error) {
	if len(mediaIDs) == 0 {
		return "", fmt.Errorf("at least one media id is required")
	}

	face := &Face{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            name,
		FeaturedPhotoID: &mediaIDs[0],
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(face).Error; err != nil {
			return err
		}

		var clusterIDs []string
		err := tx.Model(&MediaFace{}).
			Distinct("media_faces.cluster_id").
			Joins("JOIN clusters ON clusters.id = media_faces.cluster_id").
			Where("media_faces.media_id IN ? AND clusters.user_id = ?", mediaIDs, userID).
			Pluck("media_faces.cluster_id", &clusterIDs).Error
		if err != nil {
			return err
		}

		if len(clusterIDs) == 0 {
			return nil
		}

		return tx.Model(&Cluster{}).
			Where("id IN ?", clusterIDs).
			Update("face_id", face.ID).Error
	})
	if err != nil {
		return "", err
	}

	return face.ID, nil
}
