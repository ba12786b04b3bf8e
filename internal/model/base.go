package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the UUID primary key shared by every entity.
type Base struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
}

// BeforeCreate GORM hook: ensure the UUID is set.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ContentType names what an assignment, emergency override, campaign item or
// schedule entry points at.
type ContentType string

const (
	ContentPlaylist ContentType = "playlist"
	ContentLayout   ContentType = "layout"
	ContentMedia    ContentType = "media"
)

// Valid reports whether c is a known content type.
func (c ContentType) Valid() bool {
	switch c {
	case ContentPlaylist, ContentLayout, ContentMedia:
		return true
	}
	return false
}
