package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
)

const rescheduleColumns = `
	id, appointment_id, requested_by, requested_start_at, requested_end_at,
	status, admin_note, reviewed_by, reviewed_at, resulting_appointment_id, created_at
`

func (r *rescheduleRequestRepository) Create(ctx context.Context, req *model.RescheduleRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = time.Now().UTC()

	_, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO reschedule_requests (
			id, appointment_id, requested_by, requested_start_at, requested_end_at,
			status, admin_note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, req.ID, req.AppointmentID, req.RequestedBy, req.RequestedStartAt,
		req.RequestedEndAt, req.Status, req.AdminNote, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reschedule request: %w", err)
	}
	return nil
}

func (r *rescheduleRequestRepository) Get(ctx context.Context, id uuid.UUID) (*model.RescheduleRequest, error) {
	return r.get(ctx, id, false)
}

func (r *rescheduleRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.RescheduleRequest, error) {
	return r.get(ctx, id, true)
}

func (r *rescheduleRequestRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*model.RescheduleRequest, error) {
	query := `SELECT ` + rescheduleColumns + ` FROM reschedule_requests WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var req model.RescheduleRequest
	err := r.store.q(ctx).GetContext(ctx, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reschedule request: %w", err)
	}
	return &req, nil
}

func (r *rescheduleRequestRepository) Update(ctx context.Context, req *model.RescheduleRequest) error {
	result, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE reschedule_requests
		SET status = $1, admin_note = $2, reviewed_by = $3, reviewed_at = $4,
			resulting_appointment_id = $5
		WHERE id = $6
	`, req.Status, req.AdminNote, req.ReviewedBy, req.ReviewedAt,
		req.ResultingAppointmentID, req.ID)
	if err != nil {
		return fmt.Errorf("failed to update reschedule request: %w", err)
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

func (r *rescheduleRequestRepository) HasAnyForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.store.q(ctx).GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM reschedule_requests WHERE appointment_id = $1)`, appointmentID)
	if err != nil {
		return false, fmt.Errorf("failed to check reschedule requests: %w", err)
	}
	return exists, nil
}

func (r *rescheduleRequestRepository) ListPending(ctx context.Context) ([]*model.RescheduleRequest, error) {
	var reqs []*model.RescheduleRequest
	err := r.store.q(ctx).SelectContext(ctx, &reqs,
		`SELECT `+rescheduleColumns+` FROM reschedule_requests WHERE status = 'pending' ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reschedule requests: %w", err)
	}
	return reqs, nil
}

func (r *rescheduleRequestRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.RescheduleRequest, error) {
	var reqs []*model.RescheduleRequest
	err := r.store.q(ctx).SelectContext(ctx, &reqs,
		`SELECT `+rescheduleColumns+` FROM reschedule_requests WHERE requested_by = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reschedule requests: %w", err)
	}
	return reqs, nil
}
