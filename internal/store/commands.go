package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"signage-backend/internal/model"
)

// DefaultCommandTTL applies when a command is queued without a TTL.
const DefaultCommandTTL = time.Hour

// openStatuses are the statuses a drain, ack or expiry may still move on from.
var openStatuses = func() []model.CommandStatus {
	var open []model.CommandStatus
	for _, st := range model.CommandStatuses {
		if !st.Terminal() {
			open = append(open, st)
		}
	}
	return open
}()

// EnqueueCommand queues a command for a device owned by tenantID.
func (s *gormStore) EnqueueCommand(ctx context.Context, tenantID, deviceID uuid.UUID, cmd NewCommand) (*model.DeviceCommand, error) {
	if !cmd.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown command type %q", ErrInvalidInput, cmd.Type)
	}
	if _, err := s.GetDevice(ctx, tenantID, deviceID); err != nil {
		return nil, err
	}
	ttl := cmd.TTL
	if ttl <= 0 {
		ttl = DefaultCommandTTL
	}
	now := s.Now()
	c := &model.DeviceCommand{
		DeviceID:    deviceID,
		CommandType: cmd.Type,
		Payload:     datatypes.JSON(cmd.Payload),
		Status:      model.CommandPending,
		CreatedBy:   cmd.CreatedBy,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue command: %w", err)
	}
	return c, nil
}

// DrainCommands returns up to limit unexpired, unacknowledged commands,
// oldest first, and marks them delivered. Commands delivered earlier but not
// yet acknowledged are returned again.
func (s *gormStore) DrainCommands(ctx context.Context, deviceID uuid.UUID, limit int) ([]model.DeviceCommand, error) {
	if limit <= 0 {
		limit = 10
	}
	var drained []model.DeviceCommand
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.Now()
		q := tx.Model(&model.DeviceCommand{}).
			Where("device_id = ? AND status IN ? AND expires_at > ?", deviceID, openStatuses, now).
			Order("created_at ASC").
			Limit(limit)
		if s.isPostgres() {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var ids []uuid.UUID
		if err := q.Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to select pending commands: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		// Only rows still open are flipped, so a concurrent ack wins.
		if err := tx.Model(&model.DeviceCommand{}).
			Where("id IN ? AND status IN ?", ids, openStatuses).
			Updates(map[string]any{
				"status":         model.CommandDelivered,
				"delivered_at":   now,
				"delivery_count": gorm.Expr("delivery_count + 1"),
			}).Error; err != nil {
			return fmt.Errorf("failed to mark commands delivered: %w", err)
		}

		return tx.Where("id IN ? AND status = ?", ids, model.CommandDelivered).
			Order("created_at ASC").
			Find(&drained).Error
	})
	if err != nil {
		return nil, err
	}
	if drained == nil {
		drained = []model.DeviceCommand{}
	}
	return drained, nil
}

// AcknowledgeCommand moves an open command of deviceID to acknowledged or
// failed. Unknown and already terminal commands yield ErrNotFound.
func (s *gormStore) AcknowledgeCommand(ctx context.Context, deviceID, commandID uuid.UUID, ack CommandAck) error {
	status := model.CommandAcknowledged
	if !ack.Success {
		status = model.CommandFailed
	}
	updates := map[string]any{
		"status":          status,
		"acknowledged_at": s.Now(),
		"error_message":   ack.Error,
	}
	if len(ack.Result) > 0 {
		updates["result"] = datatypes.JSON(ack.Result)
	}
	res := s.db.WithContext(ctx).Model(&model.DeviceCommand{}).
		Where("id = ? AND device_id = ? AND status IN ?", commandID, deviceID, openStatuses).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to acknowledge command %s: %w", commandID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("command %s: %w", commandID, ErrNotFound)
	}
	return nil
}

// CommandHistory lists a device's commands, newest first.
func (s *gormStore) CommandHistory(ctx context.Context, tenantID, deviceID uuid.UUID, f HistoryFilter) ([]model.DeviceCommand, error) {
	if _, err := s.GetDevice(ctx, tenantID, deviceID); err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Where("device_id = ?", deviceID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("command_type = ?", f.Type)
	}
	var commands []model.DeviceCommand
	if err := q.Order("created_at DESC").Limit(limit).Find(&commands).Error; err != nil {
		return nil, fmt.Errorf("failed to load command history: %w", err)
	}
	return commands, nil
}

// ExpireCommands marks open commands past their expiry as expired.
func (s *gormStore) ExpireCommands(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.DeviceCommand{}).
		Where("status IN ? AND expires_at <= ?", openStatuses, s.Now()).
		Update("status", model.CommandExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire commands: %w", res.Error)
	}
	return res.RowsAffected, nil
}
