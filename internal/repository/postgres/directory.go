package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
)

// The users and pets tables belong to the identity and intake subsystems;
// only contact and ownership projections are read here.

func (r *directoryRepository) GetPet(ctx context.Context, id uuid.UUID) (*model.Pet, error) {
	var pet model.Pet
	err := r.store.q(ctx).GetContext(ctx, &pet,
		`SELECT id, owner_id, name, species FROM pets WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pet: %w", err)
	}
	return &pet, nil
}

func (r *directoryRepository) GetUserContact(ctx context.Context, id uuid.UUID) (*model.UserContact, error) {
	var contact model.UserContact
	err := r.store.q(ctx).GetContext(ctx, &contact,
		`SELECT id, email, phone, name FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user contact: %w", err)
	}
	return &contact, nil
}
