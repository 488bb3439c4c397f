package model

import (
	"time"

	"github.com/google/uuid"
)

// SlotLock is a short-lived, single-holder reservation of a slot pending
// commit. At most one lock exists per slot instant. Locks are advisory: the
// appointment table's start_at uniqueness is the authoritative guard.
type SlotLock struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	SlotStartAt time.Time `db:"slot_start_at" json:"slot_start_at"`
	Token       uuid.UUID `db:"lock_token" json:"lock_token"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func (l *SlotLock) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
