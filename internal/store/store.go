package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"signage-backend/internal/model"
	"signage-backend/internal/pairing"
)

// Store defines the interface for all database operations.
type Store interface {
	// Transaction runs fn against a store bound to a single transaction.
	Transaction(ctx context.Context, fn func(Store) error) error
	Now() time.Time

	// Registry
	CreateDevice(ctx context.Context, d *model.Device) error
	ListDevices(ctx context.Context, tenantID uuid.UUID) ([]model.Device, error)
	GetDevice(ctx context.Context, tenantID, deviceID uuid.UUID) (*model.Device, error)
	DeviceByID(ctx context.Context, deviceID uuid.UUID) (*model.Device, error)
	UnpairDevice(ctx context.Context, tenantID, deviceID uuid.UUID) error
	AssignContent(ctx context.Context, tenantID, deviceID uuid.UUID, a Assignment) (*model.Device, error)
	SetKioskMode(ctx context.Context, tenantID, deviceID uuid.UUID, enabled bool, pin *string) error
	VerifyKioskPIN(ctx context.Context, deviceID uuid.UUID, pin string) (bool, error)

	// Pairing and identity
	GenerateOTP(ctx context.Context, tenantID, deviceID uuid.UUID, gen *pairing.Generator, ttl time.Duration) (*OTP, error)
	ClaimOTP(ctx context.Context, code string, info ClaimInfo, gen *pairing.Generator) (*ClaimResult, error)
	DeviceByOTP(ctx context.Context, code string) (*model.Device, error)
	ValidateAPIKey(ctx context.Context, deviceID uuid.UUID, apiKey string) (*model.Device, error)

	// Heartbeat and liveness
	Heartbeat(ctx context.Context, deviceID uuid.UUID, apiKey string, info HeartbeatInfo, drainLimit int) (*HeartbeatResult, error)
	TouchDevice(ctx context.Context, deviceID uuid.UUID) error
	AckRefresh(ctx context.Context, deviceID uuid.UUID, configHash string) error
	MarkOfflineSweep(ctx context.Context, window time.Duration) ([]uuid.UUID, error)
	NotifyDevicesChanged(ctx context.Context, scope ChangeScope) (int64, error)
	SetEmergency(ctx context.Context, tenantID uuid.UUID, e Emergency) error
	ClearEmergency(ctx context.Context, tenantID uuid.UUID) error

	// Command queue
	EnqueueCommand(ctx context.Context, tenantID, deviceID uuid.UUID, cmd NewCommand) (*model.DeviceCommand, error)
	DrainCommands(ctx context.Context, deviceID uuid.UUID, limit int) ([]model.DeviceCommand, error)
	AcknowledgeCommand(ctx context.Context, deviceID, commandID uuid.UUID, ack CommandAck) error
	CommandHistory(ctx context.Context, tenantID, deviceID uuid.UUID, f HistoryFilter) ([]model.DeviceCommand, error)
	ExpireCommands(ctx context.Context) (int64, error)

	// Schedules
	AddScheduleEntry(ctx context.Context, tenantID, scheduleID uuid.UUID, e *model.ScheduleEntry) error

	// Telemetry
	RecordTelemetry(ctx context.Context, deviceID uuid.UUID, events []model.TelemetryEvent) (int, error)

	// Offline alert subscriptions
	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, tenantID uuid.UUID, endpoint string) error
	GetSubscription(ctx context.Context, tenantID uuid.UUID, endpoint string) (*model.PushSubscription, error)
	TenantSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]model.PushSubscription, error)

	// Content reads used by the resolution engine.
	Tenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	Scene(ctx context.Context, id uuid.UUID) (*model.Scene, error)
	LanguageGroup(ctx context.Context, id uuid.UUID) (*model.LanguageGroup, []model.Scene, error)
	ActiveCampaigns(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]model.Campaign, error)
	CampaignPlays(ctx context.Context, campaignID, deviceID uuid.UUID, since time.Time) (map[uuid.UUID]int64, error)
	RecordCampaignPlay(ctx context.Context, play *model.CampaignPlay) error
	Schedule(ctx context.Context, id uuid.UUID) (*model.Schedule, error)
	Playlist(ctx context.Context, id uuid.UUID) (*model.Playlist, error)
	Layout(ctx context.Context, id uuid.UUID) (*model.Layout, error)
	MediaAsset(ctx context.Context, id uuid.UUID) (*model.MediaAsset, error)
}

var _ Store = (*gormStore)(nil)

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db    *gorm.DB
	clock func() time.Time
}

// Option configures the GORM store.
type Option func(*gormStore)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *gormStore) { s.clock = now }
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts ...Option) Store {
	s := &gormStore{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time in UTC.
func (s *gormStore) Now() time.Time {
	return s.clock().UTC()
}

func (s *gormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, clock: s.clock})
	})
}

func (s *gormStore) isPostgres() bool {
	return s.db.Dialector.Name() == "postgres"
}

// Assignment replaces a device's scene, schedule, layout and playlist pointers.
type Assignment struct {
	ActiveSceneID      *uuid.UUID `json:"active_scene_id"`
	AssignedScheduleID *uuid.UUID `json:"assigned_schedule_id"`
	AssignedLayoutID   *uuid.UUID `json:"assigned_layout_id"`
	AssignedPlaylistID *uuid.UUID `json:"assigned_playlist_id"`
}

// OTP is a freshly generated pairing code.
type OTP struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ClaimInfo is the metadata a device submits when claiming a pairing code.
type ClaimInfo struct {
	Name            string          `json:"name"`
	Platform        string          `json:"platform"`
	ScreenWidth     int             `json:"screen_width"`
	ScreenHeight    int             `json:"screen_height"`
	Locale          string          `json:"locale"`
	Timezone        string          `json:"timezone"`
	DisplayLanguage string          `json:"display_language"`
	PlayerVersion   string          `json:"player_version"`
	AppVersion      string          `json:"app_version"`
	OSVersion       string          `json:"os_version"`
	Metadata        json.RawMessage `json:"metadata"`
}

// ClaimResult carries the credentials issued by a successful claim. APIKey is
// only ever available here; the store keeps its hash.
type ClaimResult struct {
	DeviceID uuid.UUID `json:"device_id"`
	APIKey   string    `json:"api_key"`
	TenantID uuid.UUID `json:"tenant_id"`
}

// HeartbeatInfo is what a device reports about itself on each check-in.
type HeartbeatInfo struct {
	AppVersion    string `json:"app_version"`
	OSVersion     string `json:"os_version"`
	PlayerVersion string `json:"player_version"`
}

// HeartbeatResult is returned to the device after a check-in.
type HeartbeatResult struct {
	NeedsRefresh    bool                  `json:"needs_refresh"`
	ActiveSceneID   *uuid.UUID            `json:"active_scene_id"`
	LastRefreshAt   *time.Time            `json:"last_refresh_at"`
	LastConfigHash  string                `json:"last_config_hash,omitempty"`
	Online          bool                  `json:"online"`
	PendingCommands []model.DeviceCommand `json:"pending_commands"`
}

// NewCommand is an operator request to queue a command.
type NewCommand struct {
	Type      model.CommandType
	Payload   json.RawMessage
	CreatedBy *uuid.UUID
	TTL       time.Duration
}

// CommandAck is a device's report on a delivered command.
type CommandAck struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   string          `json:"error"`
}

// HistoryFilter narrows CommandHistory.
type HistoryFilter struct {
	Status model.CommandStatus
	Type   model.CommandType
	Limit  int
}

// Emergency is a tenant-wide override request.
type Emergency struct {
	ContentType     model.ContentType `json:"content_type"`
	ContentID       uuid.UUID         `json:"content_id"`
	DurationMinutes *int              `json:"duration_minutes"`
}
