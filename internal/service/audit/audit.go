// Package audit records admin-side actions. Logging is best effort: a failed
// audit write must never fail the action it describes.
package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
	"github.com/sacrapods/nutrivet-api/pkg/logger"
)

type Service struct {
	repo   repository.AuditRepository
	logger *logger.Logger
}

func NewService(repo repository.AuditRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// Log writes one audit entry. Errors are logged and swallowed.
func (s *Service) Log(ctx context.Context, entityType, entityID, action string, actor *model.Identity, summary string, metadata model.JSONMap) {
	var changedBy *uuid.UUID
	if actor != nil {
		id := actor.ID
		changedBy = &id
	}
	entry := &model.AuditLog{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ChangedBy:  changedBy,
		Summary:    summary,
		Metadata:   metadata,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error(err, "failed to write audit log",
			"entity_type", entityType,
			"action", action,
		)
	}
}
