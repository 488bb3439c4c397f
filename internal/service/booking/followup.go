package booking

import (
	"context"
	"errors"
	"time"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
)

// maybeCreateFollowUp generates the follow-up appointment after a first-time
// transition into completed. Runs post-commit; a collision with an existing
// appointment on the target slot is logged and swallowed, never surfaced to
// the staff caller.
func (s *Service) maybeCreateFollowUp(ctx context.Context, completed *model.Appointment) {
	if completed.IsFollowUp {
		return
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Error(err, "follow-up generation: failed to load settings")
		return
	}
	if !settings.FollowUpEnabled {
		return
	}

	var followUp *model.Appointment
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exists, err := s.appointments.HasFollowUpOf(ctx, completed.ID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		offset := time.Duration(settings.FollowUpDays) * 24 * time.Hour
		sourceID := completed.ID
		followUp = &model.Appointment{
			UserID:        completed.UserID,
			PetID:         completed.PetID,
			StartAt:       completed.StartAt.Add(offset),
			EndAt:         completed.EndAt.Add(offset),
			Status:        model.AppointmentStatusPending,
			PaymentStatus: model.PaymentStatusPending,
			ApptType:      model.AppointmentTypeFollowUp,
			IsFollowUp:    true,
			FollowUpOf:    &sourceID,
		}
		return s.appointments.Create(ctx, followUp)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateStart) {
			s.metrics.FollowUpCollisions.Inc()
			s.logger.Warn("follow-up slot already taken, skipping",
				"appointment_id", completed.ID,
			)
			return
		}
		s.logger.Error(err, "follow-up generation failed",
			"appointment_id", completed.ID,
		)
		return
	}
	if followUp == nil {
		return
	}

	s.metrics.FollowUpsCreated.Inc()
	s.logger.Info("follow-up appointment created",
		"appointment_id", followUp.ID,
		"follow_up_of", completed.ID,
		"start_at", followUp.StartAt,
	)
	s.notifier.FollowUpCreated(ctx, followUp)
}
