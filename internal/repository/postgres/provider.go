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

func (r *providerCapacityRepository) Get(ctx context.Context, providerID uuid.UUID) (*model.ProviderCapacity, error) {
	var cap model.ProviderCapacity
	err := r.store.q(ctx).GetContext(ctx, &cap, `
		SELECT provider_id, daily_limit, active, updated_at
		FROM provider_capacities
		WHERE provider_id = $1
	`, providerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider capacity: %w", err)
	}
	return &cap, nil
}

func (r *providerCapacityRepository) Upsert(ctx context.Context, cap *model.ProviderCapacity) error {
	cap.UpdatedAt = time.Now().UTC()

	_, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO provider_capacities (provider_id, daily_limit, active, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_id) DO UPDATE
		SET daily_limit = EXCLUDED.daily_limit,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`, cap.ProviderID, cap.DailyLimit, cap.Active, cap.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert provider capacity: %w", err)
	}
	return nil
}
