package model

import (
	"time"

	"github.com/google/uuid"
)

// ProviderCapacity is a per-provider override of the global daily limit.
// Absence (or Active=false) means "use the global config default".
type ProviderCapacity struct {
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	DailyLimit int       `db:"daily_limit" json:"daily_limit"`
	Active     bool      `db:"active" json:"active"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// UpsertProviderCapacityRequest sets a provider's daily limit.
type UpsertProviderCapacityRequest struct {
	DailyLimit int  `json:"daily_limit" binding:"required,min=1"`
	Active     bool `json:"active"`
}

// BulkAssignProviderRequest assigns one provider to many appointments.
type BulkAssignProviderRequest struct {
	ProviderID     uuid.UUID   `json:"provider_id" binding:"required"`
	AppointmentIDs []uuid.UUID `json:"appointment_ids" binding:"required,min=1"`
}

// BulkAssignResult reports what the capacity gate let through.
type BulkAssignResult struct {
	Assigned   int         `json:"assigned"`
	Skipped    int         `json:"skipped"`
	SkippedIDs []uuid.UUID `json:"skipped_ids,omitempty"`
}
