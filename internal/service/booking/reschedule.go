package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
)

const (
	reasonNotYourAppointment = "You are not allowed to reschedule this appointment."
	reasonRescheduleOnce     = "You can reschedule only once."
	reasonRescheduleCutoff   = "Reschedule is allowed only up to 12 hours before appointment time."
	reasonRescheduleState    = "Only pending or confirmed appointments can be rescheduled."
	reasonRequestExists      = "A reschedule request was already submitted for this appointment."
	reasonRequestProcessed   = "This request has already been processed."
)

// rescheduleCutoff is the minimum lead time before the appointment start at
// which a reschedule may still be requested.
const rescheduleCutoff = 12 * time.Hour

// checkReschedulable runs the eligibility gates shared by every reschedule
// path. The once-per-lineage limit rides on reschedule_count, which each
// successor appointment inherits incremented.
func (s *Service) checkReschedulable(identity *model.Identity, appt *model.Appointment) error {
	if appt.UserID != identity.ID {
		return reject(CodePermissionDenied, reasonNotYourAppointment)
	}
	if appt.RescheduleCount >= 1 {
		return reject(CodeRescheduleNotAllowed, reasonRescheduleOnce)
	}
	if appt.StartAt.Sub(s.now()) < rescheduleCutoff {
		return reject(CodeRescheduleNotAllowed, reasonRescheduleCutoff)
	}
	if appt.Status != model.AppointmentStatusPending && appt.Status != model.AppointmentStatusConfirmed {
		return reject(CodeRescheduleNotAllowed, reasonRescheduleState)
	}
	return nil
}

// supersede marks old rescheduled and creates its successor at startUTC,
// carrying payment state, follow-up lineage and the incremented reschedule
// count. Runs inside the ambient transaction.
func (s *Service) supersede(ctx context.Context, old *model.Appointment, startUTC, endUTC time.Time, actor *uuid.UUID) (*model.Appointment, error) {
	old.Status = model.AppointmentStatusRescheduled
	if actor != nil {
		old.LastModifiedBy = actor
	}
	if err := s.appointments.Update(ctx, old); err != nil {
		return nil, err
	}

	next := &model.Appointment{
		UserID:           old.UserID,
		PetID:            old.PetID,
		ProviderID:       old.ProviderID,
		AssignedAt:       old.AssignedAt,
		StartAt:          startUTC,
		EndAt:            endUTC,
		Status:           model.AppointmentStatusPending,
		PaymentStatus:    old.PaymentStatus,
		PaymentReference: old.PaymentReference,
		ApptType:         old.ApptType,
		RescheduleCount:  old.RescheduleCount + 1,
		IsFollowUp:       old.IsFollowUp,
		FollowUpOf:       old.FollowUpOf,
		LastModifiedBy:   actor,
	}
	if err := s.appointments.Create(ctx, next); err != nil {
		if errors.Is(err, repository.ErrDuplicateStart) {
			s.metrics.SlotConflicts.Inc()
			return nil, reject(CodeSlotTaken, reasonSlotJustTaken)
		}
		return nil, err
	}
	return next, nil
}

// RescheduleDirect moves an appointment to a new slot in one call, without a
// lock. The old appointment stays as a rescheduled tombstone.
func (s *Service) RescheduleDirect(ctx context.Context, identity *model.Identity, id uuid.UUID, date, clock string) (*model.Appointment, error) {
	startUTC, err := s.parseSlot(date, clock)
	if err != nil {
		return nil, err
	}

	var next *model.Appointment
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		appt, err := s.appointments.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkReschedulable(identity, appt); err != nil {
			return err
		}

		settings, err := s.settings.Get(ctx)
		if err != nil {
			return err
		}
		opts := validateOpts{excludeID: appt.ID, durationMinutes: settings.DurationMinutes}
		if err := s.validate.validateSlot(ctx, settings, startUTC, opts); err != nil {
			return err
		}

		endUTC := startUTC.Add(time.Duration(settings.DurationMinutes) * time.Minute)
		next, err = s.supersede(ctx, appt, startUTC, endUTC, nil)
		return err
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	s.metrics.BookingsCreated.WithLabelValues("reschedule").Inc()
	s.notifier.BookingRescheduled(ctx, next)
	return next, nil
}

// RescheduleFromLock moves an appointment onto a slot the caller has locked.
// The lock is consumed on success.
func (s *Service) RescheduleFromLock(ctx context.Context, identity *model.Identity, id uuid.UUID, token uuid.UUID) (*model.Appointment, error) {
	var next *model.Appointment

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		appt, err := s.appointments.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkReschedulable(identity, appt); err != nil {
			return err
		}

		s.sweepExpiredLocks(ctx)
		lock, err := s.locks.GetByTokenForUpdate(ctx, token, identity.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return reject(CodeLockInvalid, reasonBadToken)
			}
			return err
		}
		if lock.Expired(s.now()) {
			if err := s.locks.Delete(ctx, lock.ID); err != nil {
				return err
			}
			return reject(CodeLockInvalid, reasonLockExpired)
		}

		settings, err := s.settings.Get(ctx)
		if err != nil {
			return err
		}
		opts := validateOpts{excludeID: appt.ID, durationMinutes: settings.DurationMinutes}
		if err := s.validate.validateSlot(ctx, settings, lock.SlotStartAt, opts); err != nil {
			return err
		}

		endUTC := lock.SlotStartAt.Add(time.Duration(settings.DurationMinutes) * time.Minute)
		next, err = s.supersede(ctx, appt, lock.SlotStartAt, endUTC, nil)
		if err != nil {
			return err
		}
		return s.locks.Delete(ctx, lock.ID)
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	s.metrics.BookingsCreated.WithLabelValues("reschedule").Inc()
	s.notifier.BookingRescheduled(ctx, next)
	return next, nil
}

// SubmitReschedule records a pet parent's proposal for a new slot, pending
// staff review. Eligibility and slot rules are checked up front so obviously
// dead requests never enter the queue; they are re-checked at approval.
func (s *Service) SubmitReschedule(ctx context.Context, identity *model.Identity, id uuid.UUID, req *model.SubmitRescheduleRequest) (*model.RescheduleRequest, error) {
	startUTC, err := s.parseSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	var out *model.RescheduleRequest
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		appt, err := s.appointments.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkReschedulable(identity, appt); err != nil {
			return err
		}

		exists, err := s.reschedules.HasAnyForAppointment(ctx, appt.ID)
		if err != nil {
			return err
		}
		if exists {
			return reject(CodeRescheduleNotAllowed, reasonRequestExists)
		}

		settings, err := s.settings.Get(ctx)
		if err != nil {
			return err
		}
		opts := validateOpts{excludeID: appt.ID}
		if err := s.validate.validateSlot(ctx, settings, startUTC, opts); err != nil {
			return err
		}

		out = &model.RescheduleRequest{
			AppointmentID:    appt.ID,
			RequestedBy:      identity.ID,
			RequestedStartAt: startUTC,
			RequestedEndAt:   startUTC.Add(time.Duration(settings.DurationMinutes) * time.Minute),
			Status:           model.RescheduleStatusPending,
		}
		return s.reschedules.Create(ctx, out)
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}
	return out, nil
}

// ApproveReschedule performs the staff approval: slot rules are re-validated
// at decision time, and a failure flips the request to rejected with an
// auto-reject note instead of approving a now-invalid slot.
func (s *Service) ApproveReschedule(ctx context.Context, staff *model.Identity, requestID uuid.UUID, note string) (*model.RescheduleRequest, error) {
	var out *model.RescheduleRequest

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		req, err := s.reschedules.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != model.RescheduleStatusPending {
			return reject(CodeRescheduleNotAllowed, reasonRequestProcessed)
		}

		appt, err := s.appointments.Get(ctx, req.AppointmentID)
		if err != nil {
			return err
		}

		now := s.now()
		staffID := staff.ID

		settings, err := s.settings.Get(ctx)
		if err != nil {
			return err
		}
		opts := validateOpts{excludeID: appt.ID}
		if verr := s.validate.validateSlot(ctx, settings, req.RequestedStartAt, opts); verr != nil {
			rej, ok := AsRejection(verr)
			if !ok {
				return verr
			}
			req.Status = model.RescheduleStatusRejected
			req.ReviewedBy = &staffID
			req.ReviewedAt = &now
			req.AdminNote = fmt.Sprintf("Auto-rejected at approval: %s", rej.Reason)
			if err := s.reschedules.Update(ctx, req); err != nil {
				return err
			}
			out = req
			return nil
		}

		next, err := s.supersede(ctx, appt, req.RequestedStartAt, req.RequestedEndAt, &staffID)
		if err != nil {
			return err
		}

		req.Status = model.RescheduleStatusApproved
		req.ReviewedBy = &staffID
		req.ReviewedAt = &now
		req.AdminNote = note
		req.ResultingAppointmentID = &next.ID
		if err := s.reschedules.Update(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	if out.Status == model.RescheduleStatusApproved {
		s.metrics.BookingsCreated.WithLabelValues("reschedule").Inc()
	}
	s.notifier.RescheduleDecided(ctx, out)
	return out, nil
}

// RejectReschedule records the staff rejection with an optional note.
func (s *Service) RejectReschedule(ctx context.Context, staff *model.Identity, requestID uuid.UUID, note string) (*model.RescheduleRequest, error) {
	var out *model.RescheduleRequest

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		req, err := s.reschedules.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != model.RescheduleStatusPending {
			return reject(CodeRescheduleNotAllowed, reasonRequestProcessed)
		}

		now := s.now()
		staffID := staff.ID
		req.Status = model.RescheduleStatusRejected
		req.ReviewedBy = &staffID
		req.ReviewedAt = &now
		req.AdminNote = note
		if err := s.reschedules.Update(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	s.notifier.RescheduleDecided(ctx, out)
	return out, nil
}

// BulkReviewResult reports the per-request outcome of a bulk decision.
type BulkReviewResult struct {
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
	FailedIDs []uuid.UUID `json:"failed_ids,omitempty"`
}

// BulkReview applies one decision to several requests. Each request is
// processed in its own transaction so one bad request does not sink the
// batch.
func (s *Service) BulkReview(ctx context.Context, staff *model.Identity, review *model.BulkRescheduleReview) (*BulkReviewResult, error) {
	result := &BulkReviewResult{}
	for _, id := range review.RequestIDs {
		var err error
		if review.Action == "approve" {
			_, err = s.ApproveReschedule(ctx, staff, id, review.Note)
		} else {
			_, err = s.RejectReschedule(ctx, staff, id, review.Note)
		}
		if err != nil {
			result.Failed++
			result.FailedIDs = append(result.FailedIDs, id)
			s.logger.Warn("bulk reschedule review item failed",
				"request_id", id,
				"action", review.Action,
				"error", err.Error(),
			)
			continue
		}
		result.Processed++
	}
	return result, nil
}

// ListPendingReschedules is the staff review queue, newest first.
func (s *Service) ListPendingReschedules(ctx context.Context) ([]*model.RescheduleRequest, error) {
	return s.reschedules.ListPending(ctx)
}

// ListMyReschedules returns the caller's own requests, newest first.
func (s *Service) ListMyReschedules(ctx context.Context, identity *model.Identity) ([]*model.RescheduleRequest, error) {
	return s.reschedules.ListForUser(ctx, identity.ID)
}
