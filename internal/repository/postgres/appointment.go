package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
)

const uniqueViolation = "23505"

const appointmentColumns = `
	id, user_id, pet_id, provider_id, assigned_at, last_modified_by,
	start_at, end_at, status, payment_status, payment_reference,
	appt_type, staff_notes, reschedule_count, is_follow_up, follow_up_of,
	reminder_24h_sent_at, reminder_1h_sent_at, created_at, updated_at
`

func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, user_id, pet_id, provider_id, assigned_at, last_modified_by,
			start_at, end_at, status, payment_status, payment_reference,
			appt_type, staff_notes, reschedule_count, is_follow_up, follow_up_of,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	appt.CreatedAt = time.Now().UTC()
	appt.UpdatedAt = appt.CreatedAt

	_, err := r.store.q(ctx).ExecContext(ctx, query,
		appt.ID,
		appt.UserID,
		appt.PetID,
		appt.ProviderID,
		appt.AssignedAt,
		appt.LastModifiedBy,
		appt.StartAt,
		appt.EndAt,
		appt.Status,
		appt.PaymentStatus,
		appt.PaymentReference,
		appt.ApptType,
		appt.StaffNotes,
		appt.RescheduleCount,
		appt.IsFollowUp,
		appt.FollowUpOf,
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicateStart
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appt model.Appointment
	err := r.store.q(ctx).GetContext(ctx, &appt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	query := `
		UPDATE appointments
		SET provider_id = $1, assigned_at = $2, last_modified_by = $3,
			status = $4, payment_status = $5, payment_reference = $6,
			staff_notes = $7, updated_at = $8
		WHERE id = $9
	`
	appt.UpdatedAt = time.Now().UTC()

	result, err := r.store.q(ctx).ExecContext(ctx, query,
		appt.ProviderID,
		appt.AssignedAt,
		appt.LastModifiedBy,
		appt.Status,
		appt.PaymentStatus,
		appt.PaymentReference,
		appt.StaffNotes,
		appt.UpdatedAt,
		appt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) CountInWindow(ctx context.Context, start, end time.Time, excludeID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE start_at >= $1 AND start_at < $2
		AND status NOT IN ('cancelled', 'rescheduled')
	`
	args := []interface{}{start, end}
	if excludeID != uuid.Nil {
		query += " AND id != $3"
		args = append(args, excludeID)
	}

	var count int
	if err := r.store.q(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

func (r *appointmentRepository) AnyOverlapping(ctx context.Context, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE status IN ('pending', 'confirmed', 'completed', 'no_show')
			AND start_at < $2 AND end_at > $1
	`
	args := []interface{}{start, end}
	if excludeID != uuid.Nil {
		query += " AND id != $3"
		args = append(args, excludeID)
	}
	query += ")"

	var overlaps bool
	if err := r.store.q(ctx).GetContext(ctx, &overlaps, query, args...); err != nil {
		return false, fmt.Errorf("failed to check overlaps: %w", err)
	}
	return overlaps, nil
}

func (r *appointmentRepository) CountForProvider(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE provider_id = $1
		AND start_at >= $2 AND start_at < $3
		AND status NOT IN ('cancelled', 'rescheduled')
	`
	args := []interface{}{providerID, start, end}
	if excludeID != uuid.Nil {
		query += " AND id != $4"
		args = append(args, excludeID)
	}

	var count int
	if err := r.store.q(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count provider appointments: %w", err)
	}
	return count, nil
}

func (r *appointmentRepository) HasFollowUpOf(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.store.q(ctx).GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM appointments WHERE follow_up_of = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check follow-up: %w", err)
	}
	return exists, nil
}

func (r *appointmentRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE start_at >= $1 AND start_at < $2
		ORDER BY start_at ASC
	`
	var appts []*model.Appointment
	if err := r.store.q(ctx).SelectContext(ctx, &appts, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

func (r *appointmentRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE user_id = $1
		ORDER BY start_at ASC
	`
	var appts []*model.Appointment
	if err := r.store.q(ctx).SelectContext(ctx, &appts, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user appointments: %w", err)
	}
	return appts, nil
}

func (r *appointmentRepository) ListDueForReminder(ctx context.Context, kind string, start, end time.Time) ([]*model.Appointment, error) {
	col, err := reminderColumn(kind)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE start_at >= $1 AND start_at <= $2
		AND status NOT IN ('cancelled', 'rescheduled')
		AND ` + col + ` IS NULL
		ORDER BY start_at ASC
	`
	var appts []*model.Appointment
	if err := r.store.q(ctx).SelectContext(ctx, &appts, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to list reminder-due appointments: %w", err)
	}
	return appts, nil
}

func (r *appointmentRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, kind string, at time.Time) error {
	col, err := reminderColumn(kind)
	if err != nil {
		return err
	}
	query := `UPDATE appointments SET ` + col + ` = $1, updated_at = $1 WHERE id = $2`
	if _, err := r.store.q(ctx).ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}

func reminderColumn(kind string) (string, error) {
	switch kind {
	case "24h":
		return "reminder_24h_sent_at", nil
	case "1h":
		return "reminder_1h_sent_at", nil
	default:
		return "", fmt.Errorf("unknown reminder kind %q", kind)
	}
}
