package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TelemetryEvent is an append-only, device-scoped event. Never updated.
type TelemetryEvent struct {
	Base
	DeviceID   uuid.UUID      `gorm:"type:uuid;index;not null" json:"device_id"`
	EventType  string         `gorm:"size:64;index;not null" json:"event_type"`
	Payload    datatypes.JSON `json:"payload,omitempty"`
	OccurredAt time.Time      `gorm:"not null" json:"occurred_at"`
	ReceivedAt time.Time      `gorm:"not null" json:"received_at"`
}
