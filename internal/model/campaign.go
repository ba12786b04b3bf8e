package model

import (
	"time"

	"github.com/google/uuid"
)

// Campaign target types.
const (
	TargetScreen      = "screen"
	TargetScreenGroup = "screen_group"
	TargetLocation    = "location"
	TargetAll         = "all"
)

// Campaign rotation modes.
const (
	RotationSequential = "sequential"
	RotationWeighted   = "weighted"
	RotationPercentage = "percentage"
)

// Campaign is time-boxed, targeted, prioritized content.
type Campaign struct {
	Base
	TenantID        uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Name            string    `gorm:"size:256" json:"name"`
	Priority        int       `gorm:"not null" json:"priority"`
	IsActive        bool      `gorm:"not null" json:"is_active"`
	StartDate       time.Time `gorm:"not null" json:"start_date"`
	EndDate         time.Time `gorm:"not null" json:"end_date"`
	RotationMode    string    `gorm:"size:16" json:"rotation_mode"`
	MaxPlaysPerHour *int      `json:"max_plays_per_hour,omitempty"`
	MaxPlaysPerDay  *int      `json:"max_plays_per_day,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Targets []CampaignTarget `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE" json:"targets,omitempty"`
	Items   []CampaignItem   `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// CampaignTarget selects the devices a campaign applies to.
type CampaignTarget struct {
	Base
	CampaignID uuid.UUID  `gorm:"type:uuid;index;not null" json:"campaign_id"`
	TargetType string     `gorm:"size:16;not null" json:"target_type"`
	TargetID   *uuid.UUID `gorm:"type:uuid" json:"target_id,omitempty"`
}

// CampaignItem is one rotated piece of campaign content.
type CampaignItem struct {
	Base
	CampaignID      uuid.UUID   `gorm:"type:uuid;index;not null" json:"campaign_id"`
	ContentType     ContentType `gorm:"size:16;not null" json:"content_type"`
	ContentID       uuid.UUID   `gorm:"type:uuid;not null" json:"content_id"`
	Position        int         `json:"position"`
	Weight          int         `json:"weight"`
	MaxPlaysPerHour *int        `json:"max_plays_per_hour,omitempty"`
	MaxPlaysPerDay  *int        `json:"max_plays_per_day,omitempty"`
}

// CampaignPlay records that a campaign item was served to a device.
type CampaignPlay struct {
	Base
	CampaignID     uuid.UUID `gorm:"type:uuid;index:idx_campaign_play_window;not null"`
	CampaignItemID uuid.UUID `gorm:"type:uuid;not null"`
	DeviceID       uuid.UUID `gorm:"type:uuid;index:idx_campaign_play_window;not null"`
	PlayedAt       time.Time `gorm:"index:idx_campaign_play_window;not null"`
}
