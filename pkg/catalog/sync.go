package catalog

import "context"

// MediaSummary is the per-row payload of the sync endpoints.
type MediaSummary struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
	Hash      string `json:"hash"`
}

// SyncFull returns every live media row of the user.
func (s *Store) SyncFull(ctx context.Context, userID string) ([]MediaSummary, error) {
	var rows []Media
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND deleted = ?", userID, false).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]MediaSummary, len(rows))
	for i, m := range rows {
		summaries[i] = MediaSummary{ID: m.ID, CreatedAt: m.CreatedAt, Hash: m.Hash}
	}
	return summaries, nil
}

// SyncPartial returns the rows touched after the given watermark, split into
// uploads and tombstones. The two sets are disjoint by construction: a row is
// either live or deleted.
func (s *Store) SyncPartial(ctx context.Context, userID string, since int64) (uploaded []MediaSummary, deleted []string, err error) {
	var rows []Media
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND last_modified_at > ?", userID, since).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	uploaded = make([]MediaSummary, 0, len(rows))
	deleted = make([]string, 0)
	for _, m := range rows {
		if m.Deleted {
			deleted = append(deleted, m.ID)
			continue
		}
		uploaded = append(uploaded, MediaSummary{ID: m.ID, CreatedAt: m.CreatedAt, Hash: m.Hash})
	}
	return uploaded, deleted, nil
}
