package model

import (
	"time"

	"github.com/google/uuid"
)

// Schedule entry target types.
const (
	EntryTargetDevice = "device"
	EntryTargetGroup  = "group"
	EntryTargetAll    = "all"
)

// Schedule owns recurring time windows mapped to content.
type Schedule struct {
	Base
	TenantID  uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Name      string    `gorm:"size:256" json:"name"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Entries []ScheduleEntry `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE" json:"entries,omitempty"`
}

// ScheduleEntry is a daily [StartTime, EndTime) window on a set of weekdays.
// StartTime/EndTime are "HH:MM" or "HH:MM:SS" in device-local time;
// DaysOfWeek is a comma separated list with Sunday = 0.
type ScheduleEntry struct {
	Base
	ScheduleID  uuid.UUID   `gorm:"type:uuid;index;not null" json:"schedule_id"`
	TargetType  string      `gorm:"size:16;not null" json:"target_type"`
	TargetID    *uuid.UUID  `gorm:"type:uuid" json:"target_id,omitempty"`
	ContentType ContentType `gorm:"size:16;not null" json:"content_type"`
	ContentID   uuid.UUID   `gorm:"type:uuid;not null" json:"content_id"`
	StartTime   string      `gorm:"size:8;not null" json:"start_time"`
	EndTime     string      `gorm:"size:8;not null" json:"end_time"`
	DaysOfWeek  string      `gorm:"size:32;not null" json:"days_of_week"`
	StartDate   *time.Time  `json:"start_date,omitempty"`
	EndDate     *time.Time  `json:"end_date,omitempty"`
	Priority    int         `gorm:"not null" json:"priority"`
	IsEnabled   bool        `gorm:"not null" json:"is_enabled"`
	CreatedAt   time.Time   `json:"created_at"`
}
