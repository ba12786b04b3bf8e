package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"signage-backend/internal/model"
	"signage-backend/internal/pairing"
	"signage-backend/internal/parse"
)

// GenerateOTP issues a pairing code for a device owned by tenantID,
// replacing any previous code.
func (s *gormStore) GenerateOTP(ctx context.Context, tenantID, deviceID uuid.UUID, gen *pairing.Generator, ttl time.Duration) (*OTP, error) {
	var otp *OTP
	err := s.Transaction(ctx, func(st Store) error {
		tx := st.(*gormStore)
		if _, err := tx.GetDevice(ctx, tenantID, deviceID); err != nil {
			return err
		}

		now := tx.Now()
		code, err := gen.UniqueCode(ctx, func(ctx context.Context, code string) (bool, error) {
			var n int64
			err := tx.db.WithContext(ctx).Model(&model.Device{}).
				Where("otp_code = ? AND otp_expires_at > ?", code, now).
				Count(&n).Error
			return n > 0, err
		})
		if err != nil {
			return fmt.Errorf("failed to generate pairing code: %w", err)
		}

		expires := now.Add(ttl)
		if err := tx.db.WithContext(ctx).Model(&model.Device{}).
			Where("id = ?", deviceID).
			Updates(map[string]any{"otp_code": code, "otp_expires_at": expires}).Error; err != nil {
			return fmt.Errorf("failed to store pairing code: %w", err)
		}
		otp = &OTP{Code: code, ExpiresAt: expires}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return otp, nil
}

// DeviceByOTP finds the device holding an unexpired code.
func (s *gormStore) DeviceByOTP(ctx context.Context, code string) (*model.Device, error) {
	code = parse.PairingCode(code)
	if len(code) != pairing.CodeLength {
		return nil, ErrInvalidCode
	}
	var d model.Device
	err := s.db.WithContext(ctx).
		Where("otp_code = ? AND otp_expires_at > ?", code, s.Now()).
		First(&d).Error
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	return &d, nil
}

// ClaimOTP exchanges a pairing code for long-lived credentials.
func (s *gormStore) ClaimOTP(ctx context.Context, code string, info ClaimInfo, gen *pairing.Generator) (*ClaimResult, error) {
	var result *ClaimResult
	err := s.Transaction(ctx, func(st Store) error {
		tx := st.(*gormStore)
		d, err := tx.DeviceByOTP(ctx, code)
		if err != nil {
			return err
		}

		key, err := gen.APIKey()
		if err != nil {
			return err
		}

		now := tx.Now()
		updates := map[string]any{
			"api_key_hash":   pairing.HashAPIKey(key),
			"otp_code":       nil,
			"otp_expires_at": nil,
			"is_paired":      true,
			"paired_at":      now,
			"unpaired_at":    nil,
			"is_online":      true,
			"last_seen":      now,
			"needs_refresh":  true,
		}
		setIf := func(column, value string) {
			if value != "" {
				updates[column] = value
			}
		}
		setIf("name", info.Name)
		setIf("platform", info.Platform)
		setIf("locale", info.Locale)
		setIf("timezone", info.Timezone)
		setIf("display_language", info.DisplayLanguage)
		setIf("player_version", info.PlayerVersion)
		setIf("app_version", info.AppVersion)
		setIf("os_version", info.OSVersion)
		if info.ScreenWidth > 0 && info.ScreenHeight > 0 {
			updates["screen_width"] = info.ScreenWidth
			updates["screen_height"] = info.ScreenHeight
		}
		if len(info.Metadata) > 0 {
			updates["metadata"] = datatypes.JSON(info.Metadata)
		}

		// The code match in the WHERE makes a concurrent claim of the same
		// code lose instead of issuing a second key.
		res := tx.db.WithContext(ctx).Model(&model.Device{}).
			Where("id = ? AND otp_code = ?", d.ID, *d.OTPCode).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to claim pairing code: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidCode
		}
		result = &ClaimResult{DeviceID: d.ID, APIKey: key, TenantID: d.TenantID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
