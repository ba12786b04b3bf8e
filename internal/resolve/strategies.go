package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signage-backend/internal/model"
	"signage-backend/internal/parse"
	"signage-backend/internal/store"
)

// Source names.
const (
	SourceEmergency = "emergency"
	SourceScene     = "scene"
	SourceCampaign  = "campaign"
	SourceSchedule  = "schedule"
	SourceLayout    = "layout"
	SourcePlaylist  = "playlist"
)

// Source is the read side the engine resolves against. Lookups of missing
// rows return an error wrapping store.ErrNotFound.
type Source interface {
	Tenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	Scene(ctx context.Context, id uuid.UUID) (*model.Scene, error)
	LanguageGroup(ctx context.Context, id uuid.UUID) (*model.LanguageGroup, []model.Scene, error)
	ActiveCampaigns(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]model.Campaign, error)
	CampaignPlays(ctx context.Context, campaignID, deviceID uuid.UUID, since time.Time) (map[uuid.UUID]int64, error)
	RecordCampaignPlay(ctx context.Context, play *model.CampaignPlay) error
	Schedule(ctx context.Context, id uuid.UUID) (*model.Schedule, error)
	Playlist(ctx context.Context, id uuid.UUID) (*model.Playlist, error)
	Layout(ctx context.Context, id uuid.UUID) (*model.Layout, error)
	MediaAsset(ctx context.Context, id uuid.UUID) (*model.MediaAsset, error)
}

// Request is the input every strategy sees.
type Request struct {
	Device *model.Device
	Tenant *model.Tenant // nil when the tenant row is missing
	Now    time.Time
	Logger *zap.Logger

	skippedCampaigns map[uuid.UUID]bool
}

func (r *Request) skipCampaign(id uuid.UUID) {
	if r.skippedCampaigns == nil {
		r.skippedCampaigns = make(map[uuid.UUID]bool)
	}
	r.skippedCampaigns[id] = true
}

func (r *Request) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Target is what a strategy decided to show, before materialization.
type Target struct {
	Source      string
	ContentType model.ContentType
	ContentID   uuid.UUID

	Scene            *model.Scene
	RequestedSceneID uuid.UUID
	Campaign         *model.Campaign
	CampaignItem     *model.CampaignItem
	Entry            *model.ScheduleEntry
}

// Strategy is one link of the resolution chain. A nil target with a nil
// error means "not applicable, try the next one".
type Strategy interface {
	Name() string
	Candidate(ctx context.Context, src Source, req *Request) (*Target, error)
}

// DefaultStrategies returns the chain in priority order.
func DefaultStrategies(intn func(int) int) []Strategy {
	return []Strategy{
		EmergencyStrategy{},
		SceneStrategy{},
		CampaignStrategy{Intn: intn},
		ScheduleStrategy{},
		StaticLayoutStrategy{},
		StaticPlaylistStrategy{},
	}
}

// EmergencyStrategy serves the tenant-wide emergency override.
type EmergencyStrategy struct{}

func (EmergencyStrategy) Name() string { return SourceEmergency }

func (EmergencyStrategy) Candidate(_ context.Context, _ Source, req *Request) (*Target, error) {
	t := req.Tenant
	if t == nil || !t.EmergencyActive(req.Now) {
		return nil, nil
	}
	return &Target{
		Source:      SourceEmergency,
		ContentType: *t.EmergencyContentType,
		ContentID:   *t.EmergencyContentID,
	}, nil
}

// SceneStrategy serves the device's active scene, substituting the language
// variant for the device's display language.
type SceneStrategy struct{}

func (SceneStrategy) Name() string { return SourceScene }

func (SceneStrategy) Candidate(ctx context.Context, src Source, req *Request) (*Target, error) {
	d := req.Device
	if d.ActiveSceneID == nil {
		return nil, nil
	}
	requested, err := src.Scene(ctx, *d.ActiveSceneID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !requested.IsActive || requested.TenantID != d.TenantID {
		return nil, nil
	}

	scene := requested
	if requested.LanguageGroupID != nil {
		scene, err = substituteVariant(ctx, src, requested, d.DisplayLanguage)
		if err != nil {
			return nil, err
		}
	}

	target := &Target{Source: SourceScene, Scene: scene, RequestedSceneID: requested.ID}
	switch {
	case scene.LayoutID != nil:
		target.ContentType, target.ContentID = model.ContentLayout, *scene.LayoutID
	case scene.PrimaryPlaylistID != nil:
		target.ContentType, target.ContentID = model.ContentPlaylist, *scene.PrimaryPlaylistID
	default:
		return nil, nil
	}
	return target, nil
}

// substituteVariant degrades to the requested scene on any missing row.
func substituteVariant(ctx context.Context, src Source, requested *model.Scene, lang string) (*model.Scene, error) {
	group, scenes, err := src.LanguageGroup(ctx, *requested.LanguageGroupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return requested, nil
		}
		return nil, err
	}
	id := SelectVariant(requested.ID, lang, NewLanguageVariants(group, scenes))
	if id == requested.ID {
		return requested, nil
	}
	for i := range scenes {
		if scenes[i].ID == id {
			return &scenes[i], nil
		}
	}
	return requested, nil
}

// CampaignStrategy serves the highest-priority eligible campaign targeting the
// device, subject to per-device frequency caps.
type CampaignStrategy struct {
	Intn func(n int) int
}

func (CampaignStrategy) Name() string { return SourceCampaign }

func (s CampaignStrategy) Candidate(ctx context.Context, src Source, req *Request) (*Target, error) {
	d := req.Device
	campaigns, err := src.ActiveCampaigns(ctx, d.TenantID, req.Now)
	if err != nil {
		return nil, err
	}

	eligible := campaigns[:0]
	for _, c := range campaigns {
		if !c.IsActive || req.Now.Before(c.StartDate) || req.Now.After(c.EndDate) || req.skippedCampaigns[c.ID] {
			continue
		}
		if CampaignTargets(&c, d) {
			eligible = append(eligible, c)
		}
	}
	RankCampaigns(eligible)

	for i := range eligible {
		c := &eligible[i]
		plays, err := loadPlays(ctx, src, c.ID, d.ID, req.Now)
		if err != nil {
			return nil, err
		}
		if CampaignCapped(c, plays) {
			continue
		}
		item := PickItem(c, plays, s.Intn)
		if item == nil {
			continue
		}
		return &Target{
			Source:       SourceCampaign,
			ContentType:  item.ContentType,
			ContentID:    item.ContentID,
			Campaign:     c,
			CampaignItem: item,
		}, nil
	}
	return nil, nil
}

func loadPlays(ctx context.Context, src Source, campaignID, deviceID uuid.UUID, now time.Time) (PlayCounts, error) {
	hour, err := src.CampaignPlays(ctx, campaignID, deviceID, now.Add(-time.Hour))
	if err != nil {
		return PlayCounts{}, fmt.Errorf("hourly plays: %w", err)
	}
	day, err := src.CampaignPlays(ctx, campaignID, deviceID, now.Add(-24*time.Hour))
	if err != nil {
		return PlayCounts{}, fmt.Errorf("daily plays: %w", err)
	}
	return PlayCounts{Hour: hour, Day: day}, nil
}

// ScheduleStrategy serves the best entry of the device's assigned schedule
// whose window contains the device-local time.
type ScheduleStrategy struct{}

func (ScheduleStrategy) Name() string { return SourceSchedule }

func (ScheduleStrategy) Candidate(ctx context.Context, src Source, req *Request) (*Target, error) {
	d := req.Device
	if d.AssignedScheduleID == nil {
		return nil, nil
	}
	sched, err := src.Schedule(ctx, *d.AssignedScheduleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !sched.IsActive || sched.TenantID != d.TenantID {
		return nil, nil
	}

	local := req.Now.In(d.Location())
	var best *model.ScheduleEntry
	for i := range sched.Entries {
		e := &sched.Entries[i]
		if !e.IsEnabled || !EntryTargets(e, d) || !parse.InDateRange(e.StartDate, e.EndDate, local) {
			continue
		}
		w, err := parse.ParseWindow(e)
		if err != nil {
			req.logger().Warn("Skipping malformed schedule entry",
				zap.String("entry_id", e.ID.String()), zap.Error(err))
			continue
		}
		if !w.Contains(local) {
			continue
		}
		if best == nil || e.Priority > best.Priority ||
			(e.Priority == best.Priority && e.CreatedAt.After(best.CreatedAt)) {
			best = e
		}
	}
	if best == nil {
		return nil, nil
	}
	return &Target{
		Source:      SourceSchedule,
		ContentType: best.ContentType,
		ContentID:   best.ContentID,
		Entry:       best,
	}, nil
}

// EntryTargets reports whether a schedule entry applies to the device.
func EntryTargets(e *model.ScheduleEntry, d *model.Device) bool {
	switch e.TargetType {
	case model.EntryTargetAll:
		return true
	case model.EntryTargetDevice:
		return e.TargetID != nil && *e.TargetID == d.ID
	case model.EntryTargetGroup:
		return e.TargetID != nil && d.GroupID != nil && *e.TargetID == *d.GroupID
	}
	return false
}

// StaticLayoutStrategy serves the device's assigned layout.
type StaticLayoutStrategy struct{}

func (StaticLayoutStrategy) Name() string { return SourceLayout }

func (StaticLayoutStrategy) Candidate(_ context.Context, _ Source, req *Request) (*Target, error) {
	if req.Device.AssignedLayoutID == nil {
		return nil, nil
	}
	return &Target{Source: SourceLayout, ContentType: model.ContentLayout, ContentID: *req.Device.AssignedLayoutID}, nil
}

// StaticPlaylistStrategy serves the device's assigned playlist.
type StaticPlaylistStrategy struct{}

func (StaticPlaylistStrategy) Name() string { return SourcePlaylist }

func (StaticPlaylistStrategy) Candidate(_ context.Context, _ Source, req *Request) (*Target, error) {
	if req.Device.AssignedPlaylistID == nil {
		return nil, nil
	}
	return &Target{Source: SourcePlaylist, ContentType: model.ContentPlaylist, ContentID: *req.Device.AssignedPlaylistID}, nil
}
