package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Liveness states of a device.
const (
	LivenessUnknown = "unknown"
	LivenessOnline  = "online"
	LivenessOffline = "offline"
)

// Device is a registered screen or player.
type Device struct {
	Base
	TenantID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Name       string     `gorm:"size:256" json:"name"`
	GroupID    *uuid.UUID `gorm:"type:uuid;index" json:"group_id,omitempty"`
	LocationID *uuid.UUID `gorm:"type:uuid;index" json:"location_id,omitempty"`

	// Pairing
	OTPCode      *string    `gorm:"size:6;index" json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	APIKeyHash   *string    `gorm:"size:64;uniqueIndex" json:"-"`
	IsPaired     bool       `gorm:"not null" json:"is_paired"`
	PairedAt     *time.Time `json:"paired_at,omitempty"`
	UnpairedAt   *time.Time `json:"unpaired_at,omitempty"`

	// Liveness
	LastSeen      *time.Time `gorm:"index" json:"last_seen,omitempty"`
	IsOnline      bool       `gorm:"index;not null" json:"is_online"`
	PlayerVersion string     `gorm:"size:64" json:"player_version,omitempty"`
	AppVersion    string     `gorm:"size:64" json:"app_version,omitempty"`
	OSVersion     string     `gorm:"size:64" json:"os_version,omitempty"`

	// Platform metadata submitted at pairing.
	Platform        string         `gorm:"size:64" json:"platform,omitempty"`
	ScreenWidth     int            `json:"screen_width,omitempty"`
	ScreenHeight    int            `json:"screen_height,omitempty"`
	Locale          string         `gorm:"size:32" json:"locale,omitempty"`
	Timezone        string         `gorm:"size:64" json:"timezone,omitempty"`
	DisplayLanguage string         `gorm:"size:16" json:"display_language,omitempty"`
	Metadata        datatypes.JSON `json:"metadata,omitempty"`

	// Content assignment stack, highest priority first.
	ActiveSceneID      *uuid.UUID `gorm:"type:uuid;index" json:"active_scene_id,omitempty"`
	AssignedScheduleID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_schedule_id,omitempty"`
	AssignedLayoutID   *uuid.UUID `gorm:"type:uuid;index" json:"assigned_layout_id,omitempty"`
	AssignedPlaylistID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_playlist_id,omitempty"`

	// Change detection
	LastConfigHash string     `gorm:"size:64" json:"last_config_hash,omitempty"`
	NeedsRefresh   bool       `gorm:"not null" json:"needs_refresh"`
	LastRefreshAt  *time.Time `json:"last_refresh_at,omitempty"`

	KioskModeEnabled bool   `gorm:"not null" json:"kiosk_mode_enabled"`
	KioskPINHash     string `gorm:"size:128" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Tenant Tenant `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Liveness derives the liveness state from the stored flag and timestamp.
func (d *Device) Liveness() string {
	switch {
	case d.LastSeen == nil:
		return LivenessUnknown
	case d.IsOnline:
		return LivenessOnline
	default:
		return LivenessOffline
	}
}

// Location returns the device's IANA zone, falling back to UTC.
func (d *Device) Location() *time.Location {
	if d.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
