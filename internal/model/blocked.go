package model

import (
	"time"

	"github.com/google/uuid"
)

// BlockedDate marks a local calendar date fully unavailable for booking.
// Date is local midnight; unique per date.
type BlockedDate struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Date      time.Time `db:"date" json:"date"`
	Reason    string    `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BlockedTimeSlot marks a specific UTC instant unavailable, finer-grained
// than a blocked date. Unique per instant.
type BlockedTimeSlot struct {
	ID        uuid.UUID `db:"id" json:"id"`
	StartAt   time.Time `db:"start_at" json:"start_at"`
	Reason    string    `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
