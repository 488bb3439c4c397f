package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/model"
)

func (r *blockedRepository) IsDateBlocked(ctx context.Context, localDate time.Time) (bool, error) {
	var exists bool
	err := r.store.q(ctx).GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM blocked_dates WHERE date = $1)`, localDate.Format("2006-01-02"))
	if err != nil {
		return false, fmt.Errorf("failed to check blocked date: %w", err)
	}
	return exists, nil
}

func (r *blockedRepository) IsSlotBlocked(ctx context.Context, startAt time.Time) (bool, error) {
	var exists bool
	err := r.store.q(ctx).GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM blocked_time_slots WHERE start_at = $1)`, startAt)
	if err != nil {
		return false, fmt.Errorf("failed to check blocked slot: %w", err)
	}
	return exists, nil
}

func (r *blockedRepository) CreateDate(ctx context.Context, b *model.BlockedDate) (bool, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now().UTC()

	result, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO blocked_dates (id, date, reason, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date) DO NOTHING
	`, b.ID, b.Date.Format("2006-01-02"), b.Reason, b.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create blocked date: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *blockedRepository) DeleteDate(ctx context.Context, localDate time.Time) error {
	if _, err := r.store.q(ctx).ExecContext(ctx,
		`DELETE FROM blocked_dates WHERE date = $1`, localDate.Format("2006-01-02")); err != nil {
		return fmt.Errorf("failed to delete blocked date: %w", err)
	}
	return nil
}

func (r *blockedRepository) ListDates(ctx context.Context) ([]*model.BlockedDate, error) {
	var dates []*model.BlockedDate
	err := r.store.q(ctx).SelectContext(ctx, &dates,
		`SELECT id, date, reason, created_at FROM blocked_dates ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked dates: %w", err)
	}
	return dates, nil
}

func (r *blockedRepository) CreateSlot(ctx context.Context, b *model.BlockedTimeSlot) (bool, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now().UTC()

	result, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO blocked_time_slots (id, start_at, reason, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (start_at) DO NOTHING
	`, b.ID, b.StartAt, b.Reason, b.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create blocked slot: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *blockedRepository) DeleteSlot(ctx context.Context, startAt time.Time) error {
	if _, err := r.store.q(ctx).ExecContext(ctx,
		`DELETE FROM blocked_time_slots WHERE start_at = $1`, startAt); err != nil {
		return fmt.Errorf("failed to delete blocked slot: %w", err)
	}
	return nil
}

func (r *blockedRepository) ListSlots(ctx context.Context) ([]*model.BlockedTimeSlot, error) {
	var slots []*model.BlockedTimeSlot
	err := r.store.q(ctx).SelectContext(ctx, &slots,
		`SELECT id, start_at, reason, created_at FROM blocked_time_slots ORDER BY start_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked slots: %w", err)
	}
	return slots, nil
}
