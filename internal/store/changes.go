package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"signage-backend/internal/model"
)

// Change scopes accepted by NotifyDevicesChanged.
const (
	ScopeScene    = "scene"
	ScopeTheme    = "theme"
	ScopePlaylist = "playlist"
	ScopeLayout   = "layout"
	ScopeSchedule = "schedule"
	ScopeTenant   = "tenant"
)

// ChangeScope names the content that changed. ID is ignored for the theme and
// tenant scopes.
type ChangeScope struct {
	Kind     string    `json:"scope"`
	TenantID uuid.UUID `json:"tenant_id"`
	ID       uuid.UUID `json:"id"`
}

// NotifyDevicesChanged flags every device of the tenant that depends on the
// changed content with needs_refresh and returns how many it flagged.
func (s *gormStore) NotifyDevicesChanged(ctx context.Context, scope ChangeScope) (int64, error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&model.Device{}).Where("tenant_id = ?", scope.TenantID)

	switch scope.Kind {
	case ScopeScene:
		// Every language variant of the scene is affected.
		variants := db.Model(&model.Scene{}).Select("id").
			Where("language_group_id IS NOT NULL AND language_group_id = (?)",
				db.Model(&model.Scene{}).Select("language_group_id").Where("id = ?", scope.ID))
		q = q.Where("active_scene_id = ? OR active_scene_id IN (?)", scope.ID, variants)
	case ScopeTheme:
		q = q.Where("active_scene_id IS NOT NULL")
	case ScopeLayout:
		scenes := db.Model(&model.Scene{}).Select("id").Where("layout_id = ?", scope.ID)
		q = q.Where("assigned_layout_id = ? OR active_scene_id IN (?)", scope.ID, scenes)
	case ScopePlaylist:
		layouts := db.Model(&model.LayoutZone{}).Select("layout_id").Where("playlist_id = ?", scope.ID)
		scenes := db.Model(&model.Scene{}).Select("id").
			Where("primary_playlist_id = ? OR secondary_playlist_id = ? OR layout_id IN (?)", scope.ID, scope.ID, layouts)
		q = q.Where("assigned_playlist_id = ? OR assigned_layout_id IN (?) OR active_scene_id IN (?)", scope.ID, layouts, scenes)
	case ScopeSchedule:
		q = q.Where("assigned_schedule_id = ?", scope.ID)
	case ScopeTenant:
	default:
		return 0, fmt.Errorf("%w: unknown change scope %q", ErrInvalidInput, scope.Kind)
	}

	res := q.Update("needs_refresh", true)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to flag devices for %s change: %w", scope.Kind, res.Error)
	}
	return res.RowsAffected, nil
}

// SetEmergency starts a tenant-wide emergency override.
func (s *gormStore) SetEmergency(ctx context.Context, tenantID uuid.UUID, e Emergency) error {
	if !e.ContentType.Valid() || e.ContentID == uuid.Nil {
		return fmt.Errorf("%w: emergency content is required", ErrInvalidInput)
	}
	if e.DurationMinutes != nil && *e.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration_minutes must be positive", ErrInvalidInput)
	}
	return s.updateEmergency(ctx, tenantID, map[string]any{
		"emergency_content_type":     e.ContentType,
		"emergency_content_id":       e.ContentID,
		"emergency_started_at":       s.Now(),
		"emergency_duration_minutes": e.DurationMinutes,
	})
}

// ClearEmergency ends the tenant's emergency override.
func (s *gormStore) ClearEmergency(ctx context.Context, tenantID uuid.UUID) error {
	return s.updateEmergency(ctx, tenantID, map[string]any{
		"emergency_content_type":     nil,
		"emergency_content_id":       nil,
		"emergency_started_at":       nil,
		"emergency_duration_minutes": nil,
	})
}

func (s *gormStore) updateEmergency(ctx context.Context, tenantID uuid.UUID, updates map[string]any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Tenant{}).Where("id = ?", tenantID).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update emergency override: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("tenant %s: %w", tenantID, ErrNotFound)
		}
		return tx.Model(&model.Device{}).Where("tenant_id = ?", tenantID).Update("needs_refresh", true).Error
	})
}
