package model

import (
	"time"

	"github.com/google/uuid"
)

// MediaAsset is a read-only view of the media store: the binary lives
// elsewhere, this row carries what players need to fetch and time it.
type MediaAsset struct {
	Base
	TenantID        uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Name            string    `gorm:"size:256" json:"name"`
	MediaType       string    `gorm:"size:32" json:"media_type"`
	URL             string    `gorm:"size:1024;not null" json:"url"`
	ThumbnailURL    string    `gorm:"size:1024" json:"thumbnail_url,omitempty"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Playlist is an ordered list of media items.
type Playlist struct {
	Base
	TenantID        uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Name            string    `gorm:"size:256" json:"name"`
	DefaultDuration *int      `json:"default_duration,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Items []PlaylistItem `gorm:"foreignKey:PlaylistID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// PlaylistItem places one media asset in a playlist.
type PlaylistItem struct {
	Base
	PlaylistID uuid.UUID  `gorm:"type:uuid;index;not null" json:"playlist_id"`
	MediaID    uuid.UUID  `gorm:"type:uuid;not null" json:"media_id"`
	Position   int        `gorm:"not null" json:"position"`
	Duration   *int       `json:"duration,omitempty"`
	Media      MediaAsset `gorm:"foreignKey:MediaID" json:"media"`
}

// Layout is a multi-zone screen arrangement.
type Layout struct {
	Base
	TenantID   uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Name       string    `gorm:"size:256" json:"name"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Background string    `gorm:"size:64" json:"background,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Zones []LayoutZone `gorm:"foreignKey:LayoutID;constraint:OnDelete:CASCADE" json:"zones,omitempty"`
}

// LayoutZone is a rectangle of a layout that plays its own playlist.
type LayoutZone struct {
	Base
	LayoutID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"layout_id"`
	Name       string     `gorm:"size:128" json:"name"`
	X          int        `json:"x"`
	Y          int        `json:"y"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	ZIndex     int        `json:"z_index"`
	PlaylistID *uuid.UUID `gorm:"type:uuid" json:"playlist_id,omitempty"`
}
