package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Audit entity types
const (
	AuditEntityAppointment = "appointment"
	AuditEntityReschedule  = "reschedule_request"
	AuditEntityBlockedDate = "blocked_date"
	AuditEntityBlockedSlot = "blocked_slot"
	AuditEntitySettings    = "settings"
	AuditEntityProvider    = "provider"
	AuditEntitySystem      = "system"
)

// AuditLog records an admin-side action for the audit trail.
type AuditLog struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	EntityType string     `db:"entity_type" json:"entity_type"`
	EntityID   string     `db:"entity_id" json:"entity_id"`
	Action     string     `db:"action" json:"action"`
	ChangedBy  *uuid.UUID `db:"changed_by" json:"changed_by,omitempty"`
	Summary    string     `db:"summary" json:"summary,omitempty"`
	Metadata   JSONMap    `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported JSONMap source type %T", src)
	}
}
