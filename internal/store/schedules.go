package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"signage-backend/internal/model"
	"signage-backend/internal/parse"
)

// AddScheduleEntry validates and stores a new entry. It fails with
// ErrConflict when an enabled entry of the same schedule targeting the same
// scope overlaps it in time window, weekdays and date range.
func (s *gormStore) AddScheduleEntry(ctx context.Context, tenantID, scheduleID uuid.UUID, e *model.ScheduleEntry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	return s.Transaction(ctx, func(st Store) error {
		tx := st.(*gormStore)
		sched, err := tx.Schedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if sched.TenantID != tenantID {
			return ErrForbidden
		}

		if e.IsEnabled {
			for i := range sched.Entries {
				other := &sched.Entries[i]
				if !other.IsEnabled || !sameScope(e, other) {
					continue
				}
				clash, err := parse.EntriesConflict(e, other)
				if err != nil {
					// Stored entries were validated on insert.
					continue
				}
				if clash {
					return fmt.Errorf("%w: overlaps entry %s", ErrConflict, other.ID)
				}
			}
		}

		e.ScheduleID = scheduleID
		if err := tx.db.WithContext(ctx).Create(e).Error; err != nil {
			return fmt.Errorf("failed to create schedule entry: %w", err)
		}
		_, err = tx.NotifyDevicesChanged(ctx, ChangeScope{Kind: ScopeSchedule, TenantID: tenantID, ID: scheduleID})
		return err
	})
}

func validateEntry(e *model.ScheduleEntry) error {
	if !e.ContentType.Valid() || e.ContentID == uuid.Nil {
		return fmt.Errorf("%w: entry content is required", ErrInvalidInput)
	}
	switch e.TargetType {
	case model.EntryTargetAll:
		e.TargetID = nil
	case model.EntryTargetDevice, model.EntryTargetGroup:
		if e.TargetID == nil {
			return fmt.Errorf("%w: target_id is required for %s targets", ErrInvalidInput, e.TargetType)
		}
	default:
		return fmt.Errorf("%w: unknown target type %q", ErrInvalidInput, e.TargetType)
	}
	if _, err := parse.ParseWindow(e); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	days, err := parse.NormalizeDays(e.DaysOfWeek)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	e.DaysOfWeek = days
	if e.StartDate != nil && e.EndDate != nil && e.EndDate.Before(*e.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	}
	return nil
}

func sameScope(a, b *model.ScheduleEntry) bool {
	if a.TargetType != b.TargetType {
		return false
	}
	if a.TargetID == nil || b.TargetID == nil {
		return a.TargetID == nil && b.TargetID == nil
	}
	return *a.TargetID == *b.TargetID
}
