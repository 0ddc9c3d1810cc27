package catalog

import (
	"context"

	"gorm.io/gorm"
)

// PreviewRef pairs a media id with its (possibly still missing) preview key.
type PreviewRef struct {
	MediaID   string
	PreviewID *string
}

// HasMediaHash reports whether the user already owns a media row with the
// given content digest. Tombstoned rows count: re-uploading deleted bytes is
// still a duplicate.
func (s *Store) HasMediaHash(ctx context.Context, userID, hash string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Media{}).
		Where("user_id = ? AND hash = ?", userID, hash).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddMedia inserts the row for a freshly committed original. CreatedAt is the
// client-supplied capture timestamp; LastModifiedAt is set to now.
func (s *Store) AddMedia(ctx context.Context, media *Media) error {
	media.LastModifiedAt = nowMillis()
	if err := s.db.WithContext(ctx).Create(media).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateMedia
		}
		return err
	}
	return nil
}

// UserHasMedia reports whether the user owns a live (non-tombstoned) media row.
func (s *Store) UserHasMedia(ctx context.Context, userID, mediaID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Media{}).
		Where("user_id = ? AND id = ? AND deleted = ?", userID, mediaID, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetMedia returns a live media row owned by the user.
// Misses, tombstones and cross-user lookups all collapse to ErrMediaNotFound.
func (s *Store) GetMedia(ctx context.Context, userID, mediaID string) (*Media, error) {
	var media Media
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ? AND deleted = ?", userID, mediaID, false).
		First(&media).Error
	if err != nil {
		return nil, convertNotFoundError(err, ErrMediaNotFound)
	}
	return &media, nil
}

// UpdateMediaPreview records the derived preview key and bumps the watermark.
// The update is idempotent: message redelivery writes the same key again.
func (s *Store) UpdateMediaPreview(ctx context.Context, mediaID, previewID string) error {
	result := s.db.WithContext(ctx).
		Model(&Media{}).
		Where("id = ?", mediaID).
		Updates(map[string]any{
			"preview_id":       previewID,
			"last_modified_at": nowMillis(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMediaNotFound
	}
	return nil
}

// MediaMetadata carries the fields the metadata worker extracts.
// Nil pointers are written as NULL: a redelivered message with less data
// must not leave stale values behind.
type MediaMetadata struct {
	FileSize                *int64
	Longitude               *float64
	Latitude                *float64
	ImageWidth              *int64
	ImageLength             *int64
	Make                    *string
	Model                   *string
	FNumber                 *float64
	ExposureTime            *string
	PhotographicSensitivity *int64
	Orientation             *int64
}

// SetMediaMetadata writes the extracted EXIF fields and bumps the watermark.
func (s *Store) SetMediaMetadata(ctx context.Context, mediaID string, meta MediaMetadata) error {
	result := s.db.WithContext(ctx).
		Model(&Media{}).
		Where("id = ?", mediaID).
		Updates(map[string]any{
			"file_size":                meta.FileSize,
			"longitude":                meta.Longitude,
			"latitude":                 meta.Latitude,
			"image_width":              meta.ImageWidth,
			"image_length":             meta.ImageLength,
			"make":                     meta.Make,
			"model":                    meta.Model,
			"f_number":                 meta.FNumber,
			"exposure_time":            meta.ExposureTime,
			"photographic_sensitivity": meta.PhotographicSensitivity,
			"orientation":              meta.Orientation,
			"last_modified_at":         nowMillis(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMediaNotFound
	}
	return nil
}

// DeleteMedia tombstones a media row. The row stays behind so partial sync
// can report the deletion; the blob store object is untouched.
func (s *Store) DeleteMedia(ctx context.Context, userID, mediaID string) error {
	result := s.db.WithContext(ctx).
		Model(&Media{}).
		Where("user_id = ? AND id = ? AND deleted = ?", userID, mediaID, false).
		Updates(map[string]any{
			"deleted":          true,
			"last_modified_at": nowMillis(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMediaNotFound
	}
	return nil
}

// GetPreviews lists the user's live media, newest capture first, paginated.
func (s *Store) GetPreviews(ctx context.Context, userID string, page, pageSize int) ([]PreviewRef, error) {
	limit, offset := normalizePage(page, pageSize)

	var rows []Media
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND deleted = ?", userID, false).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return toPreviewRefs(rows), nil
}

// GetPreviewFromUser returns the preview key of one media row owned by the
// user, or nil if the preview has not been derived yet.
func (s *Store) GetPreviewFromUser(ctx context.Context, userID, mediaID string) (*string, error) {
	media, err := s.GetMedia(ctx, userID, mediaID)
	if err != nil {
		return nil, err
	}
	return media.PreviewID, nil
}

func toPreviewRefs(rows []Media) []PreviewRef {
	refs := make([]PreviewRef, len(rows))
	for i, m := range rows {
		refs[i] = PreviewRef{MediaID: m.ID, PreviewID: m.PreviewID}
	}
	return refs
}

// liveMediaScope restricts a query to the user's non-tombstoned media.
func liveMediaScope(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("media.user_id = ? AND media.deleted = ?", userID, false)
	}
}
