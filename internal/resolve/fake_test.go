package resolve

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"signage-backend/internal/model"
	"signage-backend/internal/store"
)

// memSource is an in-memory Source for engine tests.
type memSource struct {
	tenants   map[uuid.UUID]*model.Tenant
	scenes    map[uuid.UUID]*model.Scene
	groups    map[uuid.UUID]*model.LanguageGroup
	campaigns []model.Campaign
	plays     []model.CampaignPlay
	schedules map[uuid.UUID]*model.Schedule
	playlists map[uuid.UUID]*model.Playlist
	layouts   map[uuid.UUID]*model.Layout
	media     map[uuid.UUID]*model.MediaAsset
}

func newMemSource() *memSource {
	return &memSource{
		tenants:   map[uuid.UUID]*model.Tenant{},
		scenes:    map[uuid.UUID]*model.Scene{},
		groups:    map[uuid.UUID]*model.LanguageGroup{},
		schedules: map[uuid.UUID]*model.Schedule{},
		playlists: map[uuid.UUID]*model.Playlist{},
		layouts:   map[uuid.UUID]*model.Layout{},
		media:     map[uuid.UUID]*model.MediaAsset{},
	}
}

func find[T any](m map[uuid.UUID]*T, id uuid.UUID, kind string) (*T, error) {
	v, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return v, nil
}

func (m *memSource) Tenant(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	return find(m.tenants, id, "tenant")
}

func (m *memSource) Scene(_ context.Context, id uuid.UUID) (*model.Scene, error) {
	return find(m.scenes, id, "scene")
}

func (m *memSource) LanguageGroup(_ context.Context, id uuid.UUID) (*model.LanguageGroup, []model.Scene, error) {
	g, err := find(m.groups, id, "language group")
	if err != nil {
		return nil, nil, err
	}
	var scenes []model.Scene
	for _, s := range m.scenes {
		if s.LanguageGroupID != nil && *s.LanguageGroupID == id {
			scenes = append(scenes, *s)
		}
	}
	return g, scenes, nil
}

func (m *memSource) ActiveCampaigns(_ context.Context, tenantID uuid.UUID, now time.Time) ([]model.Campaign, error) {
	var out []model.Campaign
	for _, c := range m.campaigns {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memSource) CampaignPlays(_ context.Context, campaignID, deviceID uuid.UUID, since time.Time) (map[uuid.UUID]int64, error) {
	counts := map[uuid.UUID]int64{}
	for _, p := range m.plays {
		if p.CampaignID == campaignID && p.DeviceID == deviceID && !p.PlayedAt.Before(since) {
			counts[p.CampaignItemID]++
		}
	}
	return counts, nil
}

func (m *memSource) RecordCampaignPlay(_ context.Context, play *model.CampaignPlay) error {
	m.plays = append(m.plays, *play)
	return nil
}

func (m *memSource) Schedule(_ context.Context, id uuid.UUID) (*model.Schedule, error) {
	return find(m.schedules, id, "schedule")
}

func (m *memSource) Playlist(_ context.Context, id uuid.UUID) (*model.Playlist, error) {
	return find(m.playlists, id, "playlist")
}

func (m *memSource) Layout(_ context.Context, id uuid.UUID) (*model.Layout, error) {
	return find(m.layouts, id, "layout")
}

func (m *memSource) MediaAsset(_ context.Context, id uuid.UUID) (*model.MediaAsset, error) {
	return find(m.media, id, "media")
}

func intPtr(v int) *int { return &v }

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func strPtr(s string) *string { return &s }

func (m *memSource) addMedia(tenantID uuid.UUID, duration *int) *model.MediaAsset {
	a := &model.MediaAsset{Base: model.Base{ID: uuid.New()}, TenantID: tenantID, Name: "asset", MediaType: "image", URL: "https://cdn.example/a.png", DurationSeconds: duration}
	m.media[a.ID] = a
	return a
}

func (m *memSource) addPlaylist(tenantID uuid.UUID, def *int, items ...model.PlaylistItem) *model.Playlist {
	p := &model.Playlist{Base: model.Base{ID: uuid.New()}, TenantID: tenantID, Name: "playlist", DefaultDuration: def, Items: items}
	m.playlists[p.ID] = p
	return p
}

func (m *memSource) addLayout(tenantID uuid.UUID, zones ...model.LayoutZone) *model.Layout {
	l := &model.Layout{Base: model.Base{ID: uuid.New()}, TenantID: tenantID, Name: "layout", Width: 1920, Height: 1080, Zones: zones}
	m.layouts[l.ID] = l
	return l
}

func item(media *model.MediaAsset, pos int, duration *int) model.PlaylistItem {
	return model.PlaylistItem{Base: model.Base{ID: uuid.New()}, MediaID: media.ID, Media: *media, Position: pos, Duration: duration}
}
