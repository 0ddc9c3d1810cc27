package catalog

import "context"

// AddLog appends an entry to the user's activity stream.
// This is the one mutation that never touches media watermarks.
func (s *Store) AddLog(ctx context.Context, userID string, level LogLevel, message string) error {
	entry := &Log{
		UserID:  userID,
		Level:   level,
		Date:    nowMillis(),
		Message: message,
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

// GetLogs returns the user's log entries, newest first, paginated.
func (s *Store) GetLogs(ctx context.Context, userID string, page, pageSize int) ([]Log, error) {
	limit, offset := normalizePage(page, pageSize)

	var entries []Log
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
