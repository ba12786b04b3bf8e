package resolve

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"signage-backend/internal/model"
)

// DefaultItemDuration is the global item duration, in seconds, used when
// neither the item, its media nor its playlist define one.
const DefaultItemDuration = 10

// Content modes.
const (
	ModePlaylist = "playlist"
	ModeLayout   = "layout"
	ModeNone     = "none"
)

// Content is the resolved answer to "what should this screen show now".
type Content struct {
	Mode       string        `json:"mode"`
	Source     string        `json:"source,omitempty"`
	Device     DeviceView    `json:"device"`
	Playlist   *PlaylistView `json:"playlist,omitempty"`
	Layout     *LayoutView   `json:"layout,omitempty"`
	Items      []Item        `json:"items"`
	Scene      *SceneView    `json:"scene,omitempty"`
	Campaign   *CampaignView `json:"campaign,omitempty"`
	ConfigHash string        `json:"config_hash"`
	ResolvedAt time.Time     `json:"resolved_at"`
}

// DeviceView is the part of the device record a player needs.
type DeviceView struct {
	ID               uuid.UUID  `json:"id"`
	TenantID         uuid.UUID  `json:"tenant_id"`
	Name             string     `json:"name"`
	Timezone         string     `json:"timezone,omitempty"`
	DisplayLanguage  string     `json:"display_language,omitempty"`
	KioskModeEnabled bool       `json:"kiosk_mode_enabled"`
	NeedsRefresh     bool       `json:"needs_refresh"`
	IsOnline         bool       `json:"is_online"`
	LastSeen         *time.Time `json:"last_seen,omitempty"`
}

// PlaylistView is an expanded playlist. Synthetic playlists wrap a single
// media asset and carry the asset's id.
type PlaylistView struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DefaultDuration int       `json:"default_duration"`
	Synthetic       bool      `json:"synthetic,omitempty"`
	Items           []Item    `json:"items,omitempty"`
}

// LayoutView is an expanded layout.
type LayoutView struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Background string     `json:"background,omitempty"`
	Zones      []ZoneView `json:"zones"`
}

// ZoneView is a layout zone with its playlist items.
type ZoneView struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	X          int        `json:"x"`
	Y          int        `json:"y"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	ZIndex     int        `json:"z_index"`
	PlaylistID *uuid.UUID `json:"playlist_id,omitempty"`
	Items      []Item     `json:"items"`
}

// Item is one playable entry with a guaranteed positive duration.
type Item struct {
	ID           uuid.UUID `json:"id"`
	MediaID      uuid.UUID `json:"media_id"`
	Position     int       `json:"position"`
	Name         string    `json:"name"`
	MediaType    string    `json:"media_type"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Duration     int       `json:"duration"`
}

// SceneView describes the scene that produced the content.
type SceneView struct {
	ID                uuid.UUID      `json:"id"`
	RequestedID       uuid.UUID      `json:"requested_id"`
	Name              string         `json:"name"`
	LanguageCode      string         `json:"language_code,omitempty"`
	Settings          datatypes.JSON `json:"settings,omitempty"`
	SecondaryPlaylist *PlaylistView  `json:"secondary_playlist,omitempty"`
}

// CampaignView describes the campaign item that produced the content.
type CampaignView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	ItemID   uuid.UUID `json:"item_id"`
	Priority int       `json:"priority"`
}

// EffectiveDuration applies the item -> media -> playlist -> global fallback.
// Non-positive values count as unset.
func EffectiveDuration(item, media, playlistDefault *int) int {
	for _, d := range []*int{item, media, playlistDefault} {
		if d != nil && *d > 0 {
			return *d
		}
	}
	return DefaultItemDuration
}

func newDeviceView(d *model.Device) DeviceView {
	return DeviceView{
		ID:               d.ID,
		TenantID:         d.TenantID,
		Name:             d.Name,
		Timezone:         d.Timezone,
		DisplayLanguage:  d.DisplayLanguage,
		KioskModeEnabled: d.KioskModeEnabled,
		NeedsRefresh:     d.NeedsRefresh,
		IsOnline:         d.IsOnline,
		LastSeen:         d.LastSeen,
	}
}

// expandPlaylist joins the playlist's items to their media, ordered by position.
func expandPlaylist(p *model.Playlist) *PlaylistView {
	items := make([]model.PlaylistItem, len(p.Items))
	copy(items, p.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })

	view := &PlaylistView{
		ID:              p.ID,
		Name:            p.Name,
		DefaultDuration: EffectiveDuration(nil, nil, p.DefaultDuration),
		Items:           make([]Item, 0, len(items)),
	}
	for _, it := range items {
		view.Items = append(view.Items, Item{
			ID:           it.ID,
			MediaID:      it.MediaID,
			Position:     it.Position,
			Name:         it.Media.Name,
			MediaType:    it.Media.MediaType,
			URL:          it.Media.URL,
			ThumbnailURL: it.Media.ThumbnailURL,
			Duration:     EffectiveDuration(it.Duration, it.Media.DurationSeconds, p.DefaultDuration),
		})
	}
	return view
}

// wrapMedia turns a single media asset into a one-item playlist.
func wrapMedia(m *model.MediaAsset) *PlaylistView {
	return &PlaylistView{
		ID:              m.ID,
		Name:            m.Name,
		DefaultDuration: DefaultItemDuration,
		Synthetic:       true,
		Items: []Item{{
			ID:           m.ID,
			MediaID:      m.ID,
			Position:     0,
			Name:         m.Name,
			MediaType:    m.MediaType,
			URL:          m.URL,
			ThumbnailURL: m.ThumbnailURL,
			Duration:     EffectiveDuration(nil, m.DurationSeconds, nil),
		}},
	}
}

// computeHash fingerprints everything but the liveness-dependent fields.
func computeHash(c *Content) string {
	hashed := *c
	hashed.Device = DeviceView{ID: c.Device.ID}
	hashed.ConfigHash = ""
	hashed.ResolvedAt = time.Time{}
	b, err := json.Marshal(hashed)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
