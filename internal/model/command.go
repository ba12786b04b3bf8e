package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CommandType is a remote operation a device can be asked to perform.
type CommandType string

const (
	CommandReboot      CommandType = "reboot"
	CommandReload      CommandType = "reload"
	CommandReset       CommandType = "reset"
	CommandClearCache  CommandType = "clear_cache"
	CommandUnpair      CommandType = "unpair"
	CommandScreenshot  CommandType = "screenshot"
	CommandPlayContent CommandType = "play_content"
	CommandStopContent CommandType = "stop_content"
	CommandSetVolume   CommandType = "set_volume"
	CommandCustom      CommandType = "custom"
)

// Valid reports whether t is a known command type.
func (t CommandType) Valid() bool {
	switch t {
	case CommandReboot, CommandReload, CommandReset, CommandClearCache, CommandUnpair,
		CommandScreenshot, CommandPlayContent, CommandStopContent, CommandSetVolume, CommandCustom:
		return true
	}
	return false
}

// CommandStatus is the delivery state of a command.
// pending -> delivered -> acknowledged | failed; pending/delivered -> expired by cleanup.
type CommandStatus string

const (
	CommandPending      CommandStatus = "pending"
	CommandDelivered    CommandStatus = "delivered"
	CommandAcknowledged CommandStatus = "acknowledged"
	CommandFailed       CommandStatus = "failed"
	CommandExpired      CommandStatus = "expired"
)

// CommandStatuses lists every status in lifecycle order.
var CommandStatuses = []CommandStatus{CommandPending, CommandDelivered, CommandAcknowledged, CommandFailed, CommandExpired}

// Terminal reports whether no further transition is allowed.
func (s CommandStatus) Terminal() bool {
	return s == CommandAcknowledged || s == CommandFailed || s == CommandExpired
}

// DeviceCommand is one unit of remote work queued for a device.
type DeviceCommand struct {
	Base
	DeviceID       uuid.UUID      `gorm:"type:uuid;index:idx_device_command_queue,priority:1;not null" json:"device_id"`
	CommandType    CommandType    `gorm:"size:32;not null" json:"command_type"`
	Payload        datatypes.JSON `json:"payload,omitempty"`
	Status         CommandStatus  `gorm:"size:16;index:idx_device_command_queue,priority:2;not null" json:"status"`
	CreatedBy      *uuid.UUID     `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt      time.Time      `gorm:"index:idx_device_command_queue,priority:3" json:"created_at"`
	ExpiresAt      time.Time      `gorm:"index;not null" json:"expires_at"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	DeliveryCount  int            `gorm:"not null" json:"delivery_count"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	Result         datatypes.JSON `json:"result,omitempty"`
	ErrorMessage   string         `gorm:"size:1024" json:"error_message,omitempty"`
}
