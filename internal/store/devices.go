package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"signage-backend/internal/model"
	"signage-backend/internal/pairing"
)

// CreateDevice registers an unpaired device under its tenant.
func (s *gormStore) CreateDevice(ctx context.Context, d *model.Device) error {
	if d.TenantID == uuid.Nil {
		return fmt.Errorf("%w: tenant is required", ErrInvalidInput)
	}
	d.IsPaired = false
	d.IsOnline = false
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

func (s *gormStore) ListDevices(ctx context.Context, tenantID uuid.UUID) ([]model.Device, error) {
	var devices []model.Device
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name, created_at").
		Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// GetDevice loads a device on behalf of an operator of tenantID.
func (s *gormStore) GetDevice(ctx context.Context, tenantID, deviceID uuid.UUID) (*model.Device, error) {
	d, err := s.DeviceByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d.TenantID != tenantID {
		return nil, ErrForbidden
	}
	return d, nil
}

// DeviceByID loads a device without ownership checks.
func (s *gormStore) DeviceByID(ctx context.Context, deviceID uuid.UUID) (*model.Device, error) {
	var d model.Device
	if err := s.db.WithContext(ctx).First(&d, "id = ?", deviceID).Error; err != nil {
		return nil, fmt.Errorf("device %s: %w", deviceID, translate(err))
	}
	return &d, nil
}

// UnpairDevice soft-retires a device: its credentials are revoked and it
// drops offline, but the row and its history stay.
func (s *gormStore) UnpairDevice(ctx context.Context, tenantID, deviceID uuid.UUID) error {
	if _, err := s.GetDevice(ctx, tenantID, deviceID); err != nil {
		return err
	}
	now := s.Now()
	return s.db.WithContext(ctx).Model(&model.Device{}).
		Where("id = ?", deviceID).
		Updates(map[string]any{
			"api_key_hash":   nil,
			"otp_code":       nil,
			"otp_expires_at": nil,
			"is_paired":      false,
			"is_online":      false,
			"unpaired_at":    now,
		}).Error
}

// AssignContent replaces the device's assignment stack and flags it for refresh.
func (s *gormStore) AssignContent(ctx context.Context, tenantID, deviceID uuid.UUID, a Assignment) (*model.Device, error) {
	if _, err := s.GetDevice(ctx, tenantID, deviceID); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Model(&model.Device{}).
		Where("id = ?", deviceID).
		Updates(map[string]any{
			"active_scene_id":      a.ActiveSceneID,
			"assigned_schedule_id": a.AssignedScheduleID,
			"assigned_layout_id":   a.AssignedLayoutID,
			"assigned_playlist_id": a.AssignedPlaylistID,
			"needs_refresh":        true,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to assign content to device %s: %w", deviceID, err)
	}
	return s.DeviceByID(ctx, deviceID)
}

// SetKioskMode toggles kiosk mode and optionally replaces the device exit PIN.
// An empty pin clears it.
func (s *gormStore) SetKioskMode(ctx context.Context, tenantID, deviceID uuid.UUID, enabled bool, pin *string) error {
	if _, err := s.GetDevice(ctx, tenantID, deviceID); err != nil {
		return err
	}
	updates := map[string]any{
		"kiosk_mode_enabled": enabled,
		"needs_refresh":      true,
	}
	if pin != nil {
		hash := ""
		if *pin != "" {
			var err error
			if hash, err = pairing.HashPIN(*pin); err != nil {
				return err
			}
		}
		updates["kiosk_pin_hash"] = hash
	}
	return s.db.WithContext(ctx).Model(&model.Device{}).Where("id = ?", deviceID).Updates(updates).Error
}

// VerifyKioskPIN checks pin against the device PIN, then the tenant master PIN.
func (s *gormStore) VerifyKioskPIN(ctx context.Context, deviceID uuid.UUID, pin string) (bool, error) {
	d, err := s.DeviceByID(ctx, deviceID)
	if err != nil {
		return false, err
	}
	if d.KioskPINHash != "" && pairing.PINMatches(d.KioskPINHash, pin) {
		return true, nil
	}
	t, err := s.Tenant(ctx, d.TenantID)
	if err != nil {
		return false, err
	}
	return t.MasterPINHash != "" && pairing.PINMatches(t.MasterPINHash, pin), nil
}

// ValidateAPIKey authenticates a device. Unknown devices yield ErrNotFound;
// unpaired devices and wrong keys yield ErrInvalidCredentials.
func (s *gormStore) ValidateAPIKey(ctx context.Context, deviceID uuid.UUID, apiKey string) (*model.Device, error) {
	d, err := s.DeviceByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !d.IsPaired || d.APIKeyHash == nil || !pairing.KeyMatches(*d.APIKeyHash, apiKey) {
		return nil, ErrInvalidCredentials
	}
	return d, nil
}

// TouchDevice records a liveness ping.
func (s *gormStore) TouchDevice(ctx context.Context, deviceID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&model.Device{}).
		Where("id = ?", deviceID).
		Updates(map[string]any{"last_seen": s.Now(), "is_online": true})
	if res.Error != nil {
		return fmt.Errorf("failed to touch device %s: %w", deviceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	return nil
}

// Heartbeat authenticates the device, records the check-in and drains its
// command queue, all in one transaction.
func (s *gormStore) Heartbeat(ctx context.Context, deviceID uuid.UUID, apiKey string, info HeartbeatInfo, drainLimit int) (*HeartbeatResult, error) {
	var result *HeartbeatResult
	err := s.Transaction(ctx, func(st Store) error {
		tx := st.(*gormStore)
		d, err := tx.ValidateAPIKey(ctx, deviceID, apiKey)
		if err != nil {
			return err
		}

		now := tx.Now()
		updates := map[string]any{"last_seen": now, "is_online": true}
		if info.AppVersion != "" {
			updates["app_version"] = info.AppVersion
		}
		if info.OSVersion != "" {
			updates["os_version"] = info.OSVersion
		}
		if info.PlayerVersion != "" {
			updates["player_version"] = info.PlayerVersion
		}
		if err := tx.db.WithContext(ctx).Model(&model.Device{}).Where("id = ?", d.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to record heartbeat: %w", err)
		}

		commands, err := tx.DrainCommands(ctx, d.ID, drainLimit)
		if err != nil {
			return err
		}
		result = &HeartbeatResult{
			NeedsRefresh:    d.NeedsRefresh,
			ActiveSceneID:   d.ActiveSceneID,
			LastRefreshAt:   d.LastRefreshAt,
			LastConfigHash:  d.LastConfigHash,
			Online:          true,
			PendingCommands: commands,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AckRefresh clears needs_refresh after the device applied new content.
func (s *gormStore) AckRefresh(ctx context.Context, deviceID uuid.UUID, configHash string) error {
	updates := map[string]any{
		"needs_refresh":   false,
		"last_refresh_at": s.Now(),
	}
	if configHash != "" {
		updates["last_config_hash"] = configHash
	}
	res := s.db.WithContext(ctx).Model(&model.Device{}).Where("id = ?", deviceID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	return nil
}

// RecordTelemetry appends device events. Events without a timestamp are
// stamped with the receive time.
func (s *gormStore) RecordTelemetry(ctx context.Context, deviceID uuid.UUID, events []model.TelemetryEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	now := s.Now()
	for i := range events {
		if events[i].EventType == "" {
			return 0, fmt.Errorf("%w: event %d has no event_type", ErrInvalidInput, i)
		}
		events[i].ID = uuid.Nil
		events[i].DeviceID = deviceID
		events[i].ReceivedAt = now
		if events[i].OccurredAt.IsZero() {
			events[i].OccurredAt = now
		}
	}
	err := s.db.WithContext(ctx).Session(&gorm.Session{CreateBatchSize: 100}).Create(&events).Error
	if err != nil {
		return 0, fmt.Errorf("failed to record telemetry: %w", err)
	}
	return len(events), nil
}
