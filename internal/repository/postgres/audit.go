package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/model"
)

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now().UTC()

	_, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO admin_audit_logs (
			id, entity_type, entity_id, action, changed_by, summary, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.EntityType, entry.EntityID, entry.Action,
		entry.ChangedBy, entry.Summary, entry.Metadata, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}
