package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"signage-backend/internal/model"
)

func (s *gormStore) Tenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var t model.Tenant
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("tenant %s: %w", id, translate(err))
	}
	return &t, nil
}

func (s *gormStore) Scene(ctx context.Context, id uuid.UUID) (*model.Scene, error) {
	var sc model.Scene
	if err := s.db.WithContext(ctx).First(&sc, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("scene %s: %w", id, translate(err))
	}
	return &sc, nil
}

// LanguageGroup loads a group and its active variants.
func (s *gormStore) LanguageGroup(ctx context.Context, id uuid.UUID) (*model.LanguageGroup, []model.Scene, error) {
	var g model.LanguageGroup
	if err := s.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, nil, fmt.Errorf("language group %s: %w", id, translate(err))
	}
	var scenes []model.Scene
	if err := s.db.WithContext(ctx).
		Where("language_group_id = ? AND is_active = ?", id, true).
		Find(&scenes).Error; err != nil {
		return nil, nil, fmt.Errorf("language group %s variants: %w", id, err)
	}
	return &g, scenes, nil
}

// ActiveCampaigns returns the tenant's active campaigns whose date range
// contains now, with targets and items loaded.
func (s *gormStore) ActiveCampaigns(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]model.Campaign, error) {
	var campaigns []model.Campaign
	err := s.db.WithContext(ctx).
		Preload("Targets").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("tenant_id = ? AND is_active = ? AND start_date <= ? AND end_date >= ?", tenantID, true, now, now).
		Order("priority DESC, created_at DESC").
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active campaigns: %w", err)
	}
	return campaigns, nil
}

// CampaignPlays counts plays per campaign item on one device since a moment.
func (s *gormStore) CampaignPlays(ctx context.Context, campaignID, deviceID uuid.UUID, since time.Time) (map[uuid.UUID]int64, error) {
	var rows []struct {
		CampaignItemID uuid.UUID
		Plays          int64
	}
	err := s.db.WithContext(ctx).Model(&model.CampaignPlay{}).
		Select("campaign_item_id, COUNT(*) AS plays").
		Where("campaign_id = ? AND device_id = ? AND played_at >= ?", campaignID, deviceID, since).
		Group("campaign_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count campaign plays: %w", err)
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		counts[r.CampaignItemID] = r.Plays
	}
	return counts, nil
}

func (s *gormStore) RecordCampaignPlay(ctx context.Context, play *model.CampaignPlay) error {
	return s.db.WithContext(ctx).Create(play).Error
}

// Schedule loads a schedule with its entries.
func (s *gormStore) Schedule(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	var sc model.Schedule
	if err := s.db.WithContext(ctx).Preload("Entries").First(&sc, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("schedule %s: %w", id, translate(err))
	}
	return &sc, nil
}

// Playlist loads a playlist with its items and their media.
func (s *gormStore) Playlist(ctx context.Context, id uuid.UUID) (*model.Playlist, error) {
	var p model.Playlist
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Items.Media").
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("playlist %s: %w", id, translate(err))
	}
	return &p, nil
}

// Layout loads a layout with its zones.
func (s *gormStore) Layout(ctx context.Context, id uuid.UUID) (*model.Layout, error) {
	var l model.Layout
	err := s.db.WithContext(ctx).
		Preload("Zones", func(db *gorm.DB) *gorm.DB { return db.Order("z_index") }).
		First(&l, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", id, translate(err))
	}
	return &l, nil
}

func (s *gormStore) MediaAsset(ctx context.Context, id uuid.UUID) (*model.MediaAsset, error) {
	var m model.MediaAsset
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("media %s: %w", id, translate(err))
	}
	return &m, nil
}
