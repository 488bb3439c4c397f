package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sacrapods/nutrivet-api/internal/model"
)

// The settings table holds exactly one row keyed by a fixed id, matching the
// singleton semantics of the admin configuration.
const settingsRowID = 1

const settingsColumns = `
	start_hour, end_hour, duration_minutes, buffer_minutes, daily_limit,
	follow_up_enabled, follow_up_days, lock_minutes, upi_id, updated_at
`

func (r *settingsRepository) Get(ctx context.Context) (*model.BookingSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM booking_settings WHERE id = $1`

	var s model.BookingSettings
	err := r.store.q(ctx).GetContext(ctx, &s, query, settingsRowID)
	if errors.Is(err, sql.ErrNoRows) {
		return r.seedDefaults(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking settings: %w", err)
	}
	return &s, nil
}

func (r *settingsRepository) seedDefaults(ctx context.Context) (*model.BookingSettings, error) {
	s := model.DefaultBookingSettings()
	s.UpdatedAt = time.Now().UTC()

	_, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO booking_settings (
			id, start_hour, end_hour, duration_minutes, buffer_minutes,
			daily_limit, follow_up_enabled, follow_up_days, lock_minutes,
			upi_id, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`, settingsRowID, s.StartHour, s.EndHour, s.DurationMinutes, s.BufferMinutes,
		s.DailyLimit, s.FollowUpEnabled, s.FollowUpDays, s.LockMinutes,
		s.UPIID, s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to seed booking settings: %w", err)
	}

	// Re-read in case a concurrent first access won the insert.
	var out model.BookingSettings
	if err := r.store.q(ctx).GetContext(ctx, &out,
		`SELECT `+settingsColumns+` FROM booking_settings WHERE id = $1`, settingsRowID); err != nil {
		return nil, fmt.Errorf("failed to read booking settings: %w", err)
	}
	return &out, nil
}

func (r *settingsRepository) Save(ctx context.Context, s *model.BookingSettings) error {
	s.UpdatedAt = time.Now().UTC()

	_, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE booking_settings
		SET start_hour = $1, end_hour = $2, duration_minutes = $3,
			buffer_minutes = $4, daily_limit = $5, follow_up_enabled = $6,
			follow_up_days = $7, lock_minutes = $8, upi_id = $9, updated_at = $10
		WHERE id = $11
	`, s.StartHour, s.EndHour, s.DurationMinutes, s.BufferMinutes, s.DailyLimit,
		s.FollowUpEnabled, s.FollowUpDays, s.LockMinutes, s.UPIID, s.UpdatedAt,
		settingsRowID)
	if err != nil {
		return fmt.Errorf("failed to save booking settings: %w", err)
	}
	return nil
}
