package model

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the owning organisation of devices and content. Only the fields
// the device core reads are modelled here; the tenant directory owns the rest.
type Tenant struct {
	Base
	Name string `gorm:"size:256;not null" json:"name"`

	// Emergency override, tenant-wide.
	EmergencyContentType     *ContentType `gorm:"size:16" json:"emergency_content_type,omitempty"`
	EmergencyContentID       *uuid.UUID   `gorm:"type:uuid" json:"emergency_content_id,omitempty"`
	EmergencyStartedAt       *time.Time   `json:"emergency_started_at,omitempty"`
	EmergencyDurationMinutes *int         `json:"emergency_duration_minutes,omitempty"`

	ActiveThemeID *uuid.UUID `gorm:"type:uuid" json:"active_theme_id,omitempty"`
	MasterPINHash string     `gorm:"size:128" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmergencyActive reports whether the tenant's emergency content applies at now.
// A missing duration means the override lasts until cleared.
func (t *Tenant) EmergencyActive(now time.Time) bool {
	if t.EmergencyContentID == nil || t.EmergencyContentType == nil {
		return false
	}
	if t.EmergencyDurationMinutes == nil {
		return true
	}
	if t.EmergencyStartedAt == nil {
		return false
	}
	end := t.EmergencyStartedAt.Add(time.Duration(*t.EmergencyDurationMinutes) * time.Minute)
	return now.Before(end)
}
