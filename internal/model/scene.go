package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LanguageGroup ties localized variants of one scene together.
type LanguageGroup struct {
	Base
	TenantID        uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Name            string    `gorm:"size:256" json:"name"`
	DefaultLanguage string    `gorm:"size:16;not null" json:"default_language"`
	CreatedAt       time.Time `json:"created_at"`
}

// Scene bundles a layout and up to two playlists with display settings.
// At most one scene exists per (language group, language code).
type Scene struct {
	Base
	TenantID            uuid.UUID      `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Name                string         `gorm:"size:256" json:"name"`
	LayoutID            *uuid.UUID     `gorm:"type:uuid" json:"layout_id,omitempty"`
	PrimaryPlaylistID   *uuid.UUID     `gorm:"type:uuid" json:"primary_playlist_id,omitempty"`
	SecondaryPlaylistID *uuid.UUID     `gorm:"type:uuid" json:"secondary_playlist_id,omitempty"`
	Settings            datatypes.JSON `json:"settings,omitempty"`
	IsActive            bool           `gorm:"not null" json:"is_active"`
	LanguageGroupID     *uuid.UUID     `gorm:"type:uuid;uniqueIndex:idx_scene_language_variant" json:"language_group_id,omitempty"`
	LanguageCode        *string        `gorm:"size:16;uniqueIndex:idx_scene_language_variant" json:"language_code,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}
