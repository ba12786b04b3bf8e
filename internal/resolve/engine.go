package resolve

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signage-backend/internal/model"
	"signage-backend/internal/store"
)

// Engine walks the strategy chain and materializes the first match.
type Engine struct {
	strategies []Strategy
	logger     *zap.Logger
	intn       func(int) int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithIntn replaces the random source used by weighted campaign rotation.
func WithIntn(intn func(int) int) Option {
	return func(e *Engine) { e.intn = intn }
}

// NewEngine returns an engine using the default chain:
// emergency, scene, campaign, schedule, layout, playlist.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop(), intn: rand.Intn}
	for _, opt := range opts {
		opt(e)
	}
	e.strategies = DefaultStrategies(e.intn)
	return e
}

// Resolve computes what the device should display at now. A device with
// nothing assigned gets ModeNone, not an error. Targets pointing at rows that
// no longer exist fall through to the next strategy.
func (e *Engine) Resolve(ctx context.Context, src Source, device *model.Device, now time.Time) (*Content, error) {
	req := &Request{Device: device, Now: now, Logger: e.logger}
	tenant, err := src.Tenant(ctx, device.TenantID)
	switch {
	case err == nil:
		req.Tenant = tenant
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load tenant: %w", err)
	}

	for _, s := range e.strategies {
		for {
			target, err := s.Candidate(ctx, src, req)
			if err != nil {
				return nil, fmt.Errorf("%s strategy: %w", s.Name(), err)
			}
			if target == nil {
				break
			}

			content, err := e.materialize(ctx, src, device, target)
			if errors.Is(err, store.ErrNotFound) {
				e.logger.Info("Resolved target is missing, falling through",
					zap.String("device_id", device.ID.String()),
					zap.String("strategy", s.Name()),
					zap.String("content_type", string(target.ContentType)),
					zap.String("content_id", target.ContentID.String()))
				if target.Campaign == nil {
					break
				}
				// A lower ranked campaign may still be eligible.
				req.skipCampaign(target.Campaign.ID)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("materialize %s %s: %w", target.ContentType, target.ContentID, err)
			}

			if target.CampaignItem != nil {
				play := &model.CampaignPlay{
					CampaignID:     target.Campaign.ID,
					CampaignItemID: target.CampaignItem.ID,
					DeviceID:       device.ID,
					PlayedAt:       now,
				}
				if err := src.RecordCampaignPlay(ctx, play); err != nil {
					return nil, fmt.Errorf("record campaign play: %w", err)
				}
			}
			return e.finish(content, target.Source, device, now), nil
		}
	}

	return e.finish(&Content{Mode: ModeNone, Items: []Item{}}, "", device, now), nil
}

func (e *Engine) finish(c *Content, source string, device *model.Device, now time.Time) *Content {
	c.Source = source
	c.Device = newDeviceView(device)
	c.ResolvedAt = now
	c.ConfigHash = computeHash(c)
	return c
}

func (e *Engine) materialize(ctx context.Context, src Source, device *model.Device, t *Target) (*Content, error) {
	c := &Content{Items: []Item{}}
	switch t.ContentType {
	case model.ContentPlaylist:
		p, err := e.playlist(ctx, src, device, t.ContentID)
		if err != nil {
			return nil, err
		}
		c.Mode, c.Playlist, c.Items = ModePlaylist, p, p.Items
	case model.ContentMedia:
		m, err := src.MediaAsset(ctx, t.ContentID)
		if err != nil {
			return nil, err
		}
		if m.TenantID != device.TenantID {
			return nil, store.ErrNotFound
		}
		p := wrapMedia(m)
		c.Mode, c.Playlist, c.Items = ModePlaylist, p, p.Items
	case model.ContentLayout:
		l, err := e.layout(ctx, src, device, t.ContentID)
		if err != nil {
			return nil, err
		}
		c.Mode, c.Layout = ModeLayout, l
	default:
		return nil, fmt.Errorf("%w: content type %q", store.ErrInvalidInput, t.ContentType)
	}

	if t.Scene != nil {
		c.Scene = e.sceneView(ctx, src, device, t)
		// A scene with both a layout and a primary playlist exposes the
		// playlist items alongside the layout.
		if c.Mode == ModeLayout && t.Scene.PrimaryPlaylistID != nil {
			if p, err := e.playlist(ctx, src, device, *t.Scene.PrimaryPlaylistID); err == nil {
				c.Playlist, c.Items = p, p.Items
			}
		}
	}
	if t.Campaign != nil {
		c.Campaign = &CampaignView{
			ID:       t.Campaign.ID,
			Name:     t.Campaign.Name,
			ItemID:   t.CampaignItem.ID,
			Priority: t.Campaign.Priority,
		}
	}
	return c, nil
}

func (e *Engine) playlist(ctx context.Context, src Source, device *model.Device, id uuid.UUID) (*PlaylistView, error) {
	p, err := src.Playlist(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.TenantID != device.TenantID {
		return nil, store.ErrNotFound
	}
	return expandPlaylist(p), nil
}

func (e *Engine) layout(ctx context.Context, src Source, device *model.Device, id uuid.UUID) (*LayoutView, error) {
	l, err := src.Layout(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.TenantID != device.TenantID {
		return nil, store.ErrNotFound
	}
	view := &LayoutView{
		ID:         l.ID,
		Name:       l.Name,
		Width:      l.Width,
		Height:     l.Height,
		Background: l.Background,
		Zones:      make([]ZoneView, 0, len(l.Zones)),
	}
	for _, z := range l.Zones {
		zv := ZoneView{
			ID: z.ID, Name: z.Name,
			X: z.X, Y: z.Y, Width: z.Width, Height: z.Height, ZIndex: z.ZIndex,
			PlaylistID: z.PlaylistID,
			Items:      []Item{},
		}
		if z.PlaylistID != nil {
			p, err := e.playlist(ctx, src, device, *z.PlaylistID)
			switch {
			case err == nil:
				zv.Items = p.Items
			case errors.Is(err, store.ErrNotFound):
				e.logger.Warn("Layout zone references a missing playlist",
					zap.String("zone_id", z.ID.String()),
					zap.String("playlist_id", z.PlaylistID.String()))
			default:
				return nil, err
			}
		}
		view.Zones = append(view.Zones, zv)
	}
	sortZones(view.Zones)
	return view, nil
}

func (e *Engine) sceneView(ctx context.Context, src Source, device *model.Device, t *Target) *SceneView {
	s := t.Scene
	view := &SceneView{
		ID:          s.ID,
		RequestedID: t.RequestedSceneID,
		Name:        s.Name,
		Settings:    s.Settings,
	}
	if s.LanguageCode != nil {
		view.LanguageCode = *s.LanguageCode
	}
	if s.SecondaryPlaylistID != nil {
		if p, err := e.playlist(ctx, src, device, *s.SecondaryPlaylistID); err == nil {
			view.SecondaryPlaylist = p
		}
	}
	return view
}

func sortZones(zones []ZoneView) {
	sort.SliceStable(zones, func(i, j int) bool { return zones[i].ZIndex < zones[j].ZIndex })
}
