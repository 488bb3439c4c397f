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

const slotLockColumns = `id, user_id, slot_start_at, lock_token, expires_at, created_at`

func (r *slotLockRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.store.q(ctx).ExecContext(ctx,
		`DELETE FROM slot_locks WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired locks: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func (r *slotLockRepository) GetBySlotForUpdate(ctx context.Context, slotStart time.Time) (*model.SlotLock, error) {
	query := `SELECT ` + slotLockColumns + ` FROM slot_locks WHERE slot_start_at = $1 FOR UPDATE`

	var lock model.SlotLock
	err := r.store.q(ctx).GetContext(ctx, &lock, query, slotStart)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot lock: %w", err)
	}
	return &lock, nil
}

func (r *slotLockRepository) GetByTokenForUpdate(ctx context.Context, token, userID uuid.UUID) (*model.SlotLock, error) {
	query := `SELECT ` + slotLockColumns + ` FROM slot_locks WHERE lock_token = $1 AND user_id = $2 FOR UPDATE`

	var lock model.SlotLock
	err := r.store.q(ctx).GetContext(ctx, &lock, query, token, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot lock by token: %w", err)
	}
	return &lock, nil
}

func (r *slotLockRepository) ActiveOnSlot(ctx context.Context, slotStart, now time.Time) (*model.SlotLock, error) {
	query := `SELECT ` + slotLockColumns + ` FROM slot_locks WHERE slot_start_at = $1 AND expires_at > $2`

	var lock model.SlotLock
	err := r.store.q(ctx).GetContext(ctx, &lock, query, slotStart, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active slot lock: %w", err)
	}
	return &lock, nil
}

func (r *slotLockRepository) Create(ctx context.Context, lock *model.SlotLock) error {
	query := `
		INSERT INTO slot_locks (id, user_id, slot_start_at, lock_token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if lock.ID == uuid.Nil {
		lock.ID = uuid.New()
	}
	if lock.Token == uuid.Nil {
		lock.Token = uuid.New()
	}
	lock.CreatedAt = time.Now().UTC()

	_, err := r.store.q(ctx).ExecContext(ctx, query,
		lock.ID, lock.UserID, lock.SlotStartAt, lock.Token, lock.ExpiresAt, lock.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create slot lock: %w", err)
	}
	return nil
}

func (r *slotLockRepository) UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	result, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE slot_locks SET expires_at = $1 WHERE id = $2`, expiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to extend slot lock: %w", err)
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

func (r *slotLockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.store.q(ctx).ExecContext(ctx,
		`DELETE FROM slot_locks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete slot lock: %w", err)
	}
	return nil
}
