package model

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription is an operator's browser push endpoint for fleet alerts.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID    string    `gorm:"size:128"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
