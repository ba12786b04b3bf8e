package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"signage-backend/internal/model"
)

// SaveSubscription creates or replaces an operator's push subscription. An
// endpoint already registered by another tenant yields ErrConflict.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	sub.CreatedAt = s.Now()
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "push_subscriptions.tenant_id = excluded.tenant_id"},
		}},
	}).Create(sub)
	if res.Error != nil {
		return fmt.Errorf("failed to save subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("endpoint registered to another tenant: %w", ErrConflict)
	}
	return nil
}

// DeleteSubscription removes a subscription. A zero tenantID skips the
// ownership check, which the alert workers rely on for expired endpoints.
func (s *gormStore) DeleteSubscription(ctx context.Context, tenantID uuid.UUID, endpoint string) error {
	q := s.db.WithContext(ctx).Where("endpoint = ?", endpoint)
	if tenantID != uuid.Nil {
		q = q.Where("tenant_id = ?", tenantID)
	}
	return q.Delete(&model.PushSubscription{}).Error
}

func (s *gormStore) GetSubscription(ctx context.Context, tenantID uuid.UUID, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("endpoint = ? AND tenant_id = ?", endpoint, tenantID).
		First(&sub).Error
	if err != nil {
		return nil, fmt.Errorf("subscription: %w", translate(err))
	}
	return &sub, nil
}

func (s *gormStore) TenantSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	return subs, nil
}
