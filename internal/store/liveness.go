package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"signage-backend/internal/model"
)

// DefaultLivenessWindow is how long a silent device stays online.
const DefaultLivenessWindow = 5 * time.Minute

// MarkOfflineSweep flips is_online to false for every online device whose
// last_seen is older than window and returns the devices it flipped.
// Rerunning it, or running it concurrently, only finds fewer rows.
func (s *gormStore) MarkOfflineSweep(ctx context.Context, window time.Duration) ([]uuid.UUID, error) {
	if window <= 0 {
		window = DefaultLivenessWindow
	}
	cutoff := s.Now().Add(-window)

	var flipped []uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []uuid.UUID
		if err := tx.Model(&model.Device{}).
			Where("is_online = ? AND last_seen < ?", true, cutoff).
			Pluck("id", &stale).Error; err != nil {
			return fmt.Errorf("failed to select stale devices: %w", err)
		}
		if len(stale) == 0 {
			return nil
		}

		// Re-check the predicate so a heartbeat landing between the two
		// statements keeps its device online.
		res := tx.Model(&model.Device{}).
			Where("id IN ? AND is_online = ? AND last_seen < ?", stale, true, cutoff).
			Update("is_online", false)
		if res.Error != nil {
			return fmt.Errorf("failed to mark devices offline: %w", res.Error)
		}
		if res.RowsAffected == int64(len(stale)) {
			flipped = stale
			return nil
		}
		return tx.Model(&model.Device{}).
			Where("id IN ? AND is_online = ?", stale, false).
			Pluck("id", &flipped).Error
	})
	if err != nil {
		return nil, err
	}
	return flipped, nil
}
