package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
)

// AcquireLock reserves a slot for the caller while they complete the booking
// form. Re-acquiring a slot you already hold renews the expiry instead of
// failing. Expired locks found on the slot are removed and replaced.
func (s *Service) AcquireLock(ctx context.Context, identity *model.Identity, req *model.LockSlotRequest) (*model.SlotLock, error) {
	startUTC, err := s.parseSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	var lock *model.SlotLock
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		s.sweepExpiredLocks(ctx)

		settings, err := s.settings.Get(ctx)
		if err != nil {
			return err
		}
		if err := s.validate.validateSlot(ctx, settings, startUTC, validateOpts{}); err != nil {
			return err
		}

		now := s.now()
		expiry := now.Add(time.Duration(settings.LockMinutes) * time.Minute)

		existing, err := s.locks.GetBySlotForUpdate(ctx, startUTC)
		switch {
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return err
		case err == nil && existing.ExpiresAt.After(now) && existing.UserID != identity.ID:
			s.metrics.LockContention.Inc()
			return reject(CodeSlotLocked, reasonSlotHeld)
		case err == nil && existing.UserID == identity.ID && existing.ExpiresAt.After(now):
			// Renewal keeps the same token, so an in-flight form stays valid.
			if err := s.locks.UpdateExpiry(ctx, existing.ID, expiry); err != nil {
				return err
			}
			existing.ExpiresAt = expiry
			lock = existing
			return nil
		case err == nil:
			// Expired leftover the sweep raced past.
			if err := s.locks.Delete(ctx, existing.ID); err != nil {
				return err
			}
		}

		lock = &model.SlotLock{
			UserID:      identity.ID,
			SlotStartAt: startUTC,
			ExpiresAt:   expiry,
		}
		return s.locks.Create(ctx, lock)
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	s.metrics.LocksAcquired.Inc()
	return lock, nil
}

// ReleaseLock drops the caller's own lock, freeing the slot early.
func (s *Service) ReleaseLock(ctx context.Context, identity *model.Identity, token uuid.UUID) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		lock, err := s.locks.GetByTokenForUpdate(ctx, token, identity.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}
		return s.locks.Delete(ctx, lock.ID)
	})
}
