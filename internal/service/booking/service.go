// Package booking implements slot validation, advisory slot locks, and the
// transactional creation of appointments. Lock checks are advisory; the
// unique start_at constraint in storage is the final arbiter, so two commits
// racing for one slot resolve to exactly one appointment.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/clinictime"
	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
	"github.com/sacrapods/nutrivet-api/pkg/logger"
	"github.com/sacrapods/nutrivet-api/pkg/metrics"
)

const (
	reasonSlotHeld      = "This slot is temporarily locked by another user. Please try again."
	reasonBadToken      = "Invalid or expired slot lock token."
	reasonLockExpired   = "Your lock expired. Please select the slot again."
	reasonSlotJustTaken = "This slot was just booked. Please choose another slot."
	reasonNotYourPet    = "You can only book appointments for your own pets."

	reasonProviderLimitFmt = "Provider daily limit reached for %s. Increase capacity in settings or choose another provider."
)

// SettingsProvider yields the current clinic settings. The settings service
// satisfies it with a short-lived cache in front of the repository.
type SettingsProvider interface {
	Get(ctx context.Context) (*model.BookingSettings, error)
}

// CapacityGate reports a provider's daily limit and current load on a day.
// The capacity service satisfies it.
type CapacityGate interface {
	LimitFor(ctx context.Context, providerID uuid.UUID) (int, error)
	LoadOn(ctx context.Context, providerID uuid.UUID, at time.Time, excludeID uuid.UUID) (int, error)
}

// Notifier receives post-commit booking events. Implementations must not
// block the caller; failures are theirs to log.
type Notifier interface {
	BookingCreated(ctx context.Context, appt *model.Appointment)
	BookingRescheduled(ctx context.Context, appt *model.Appointment)
	FollowUpCreated(ctx context.Context, appt *model.Appointment)
	RescheduleDecided(ctx context.Context, req *model.RescheduleRequest)
}

type Service struct {
	tx           repository.TxRunner
	appointments repository.AppointmentRepository
	locks        repository.SlotLockRepository
	blocked      repository.BlockedRepository
	reschedules  repository.RescheduleRequestRepository
	directory    repository.DirectoryRepository
	capacity     CapacityGate
	settings     SettingsProvider
	clinic       *clinictime.Clinic
	validate     *validator
	notifier     Notifier
	metrics      *metrics.Metrics
	logger       *logger.Logger
	now          func() time.Time
}

func NewService(
	tx repository.TxRunner,
	appointments repository.AppointmentRepository,
	locks repository.SlotLockRepository,
	blocked repository.BlockedRepository,
	reschedules repository.RescheduleRequestRepository,
	directory repository.DirectoryRepository,
	capacity CapacityGate,
	settings SettingsProvider,
	clinic *clinictime.Clinic,
	notifier Notifier,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		tx:           tx,
		appointments: appointments,
		locks:        locks,
		blocked:      blocked,
		reschedules:  reschedules,
		directory:    directory,
		capacity:     capacity,
		settings:     settings,
		clinic:       clinic,
		validate:     &validator{appointments: appointments, blocked: blocked, clinic: clinic},
		notifier:     notifier,
		metrics:      m,
		logger:       log,
		now:          time.Now,
	}
}

// WithClock replaces the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateFromLock commits a pet-parent booking against a previously acquired
// slot lock. The pet must belong to the caller. The full rule set is
// re-validated inside the transaction; the lock is consumed on success.
func (s *Service) CreateFromLock(ctx context.Context, identity *model.Identity, req *model.CreateBookingRequest) (*model.Appointment, error) {
	pet, err := s.directory.GetPet(ctx, req.PetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, reject(CodePermissionDenied, reasonNotYourPet)
		}
		return nil, err
	}
	if pet.OwnerID != identity.ID {
		return nil, reject(CodePermissionDenied, reasonNotYourPet)
	}

	var appt *model.Appointment

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		s.sweepExpiredLocks(ctx)

		lock, err := s.locks.GetByTokenForUpdate(ctx, req.LockToken, identity.ID)
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
		if err := s.validate.validateSlot(ctx, settings, lock.SlotStartAt, validateOpts{}); err != nil {
			return err
		}

		appt = &model.Appointment{
			UserID:           identity.ID,
			PetID:            req.PetID,
			StartAt:          lock.SlotStartAt,
			EndAt:            lock.SlotStartAt.Add(time.Duration(settings.DurationMinutes) * time.Minute),
			Status:           model.AppointmentStatusPending,
			PaymentStatus:    model.PaymentStatusPending,
			PaymentReference: req.PaymentReference,
			ApptType:         model.AppointmentTypeConsultation,
		}
		if err := s.appointments.Create(ctx, appt); err != nil {
			if errors.Is(err, repository.ErrDuplicateStart) {
				s.metrics.SlotConflicts.Inc()
				return reject(CodeSlotTaken, reasonSlotJustTaken)
			}
			return err
		}

		return s.locks.Delete(ctx, lock.ID)
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	s.metrics.BookingsCreated.WithLabelValues("pet_parent").Inc()
	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"user_id", identity.ID,
		"start_at", appt.StartAt,
	)
	s.notifier.BookingCreated(ctx, appt)
	return appt, nil
}

// StaffBook creates an appointment on behalf of a client, with arbitrary
// duration and an optional rule override. No slot lock is involved.
func (s *Service) StaffBook(ctx context.Context, staff *model.Identity, req *model.StaffBookingRequest) (*model.Appointment, error) {
	startUTC, err := s.parseSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	dur := req.DurationMinutes
	if dur == 0 {
		dur = settings.DurationMinutes
	}
	status := req.Status
	if status == "" {
		status = model.AppointmentStatusConfirmed
	}
	apptType := req.ApptType
	if apptType == "" {
		apptType = model.AppointmentTypeConsultation
	}

	var appt *model.Appointment
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if !req.OverrideRules {
			opts := validateOpts{durationMinutes: dur, allowSubHour: true}
			if err := s.validate.validateSlot(ctx, settings, startUTC, opts); err != nil {
				return err
			}
		}

		now := s.now()
		staffID := staff.ID
		appt = &model.Appointment{
			UserID:         req.UserID,
			PetID:          req.PetID,
			StartAt:        startUTC,
			EndAt:          startUTC.Add(time.Duration(dur) * time.Minute),
			Status:         status,
			PaymentStatus:  model.PaymentStatusUnpaid,
			ApptType:       apptType,
			StaffNotes:     req.StaffNotes,
			LastModifiedBy: &staffID,
		}
		if req.ProviderID != nil {
			appt.ProviderID = req.ProviderID
			appt.AssignedAt = &now
		}
		if err := s.appointments.Create(ctx, appt); err != nil {
			if errors.Is(err, repository.ErrDuplicateStart) {
				s.metrics.SlotConflicts.Inc()
				return reject(CodeSlotTaken, reasonSlotJustTaken)
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	s.metrics.BookingsCreated.WithLabelValues("staff").Inc()
	s.logger.Info("staff booking created",
		"appointment_id", appt.ID,
		"staff_id", staff.ID,
		"override", req.OverrideRules,
	)
	s.notifier.BookingCreated(ctx, appt)
	return appt, nil
}

// UpdateAppointment applies a staff patch. A transition into completed
// triggers follow-up generation. Provider assignment is gated on the
// provider's remaining capacity for the appointment's day; the first
// assignment stamps assigned_at.
func (s *Service) UpdateAppointment(ctx context.Context, staff *model.Identity, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	var (
		appt      *model.Appointment
		completed bool
	)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.appointments.Get(ctx, id)
		if err != nil {
			return err
		}

		prevStatus := appt.Status
		if req.Status != nil {
			appt.Status = *req.Status
		}
		if req.PaymentStatus != nil {
			appt.PaymentStatus = *req.PaymentStatus
		}
		if req.PaymentReference != nil {
			appt.PaymentReference = *req.PaymentReference
		}
		if req.StaffNotes != nil {
			appt.StaffNotes = *req.StaffNotes
		}
		if req.ProviderID != nil {
			limit, err := s.capacity.LimitFor(ctx, *req.ProviderID)
			if err != nil {
				return err
			}
			load, err := s.capacity.LoadOn(ctx, *req.ProviderID, appt.StartAt, appt.ID)
			if err != nil {
				return err
			}
			if load >= limit {
				day := s.clinic.FormatDate(appt.StartAt)
				return reject(CodeRuleViolation, fmt.Sprintf(reasonProviderLimitFmt, day))
			}
			if appt.ProviderID == nil {
				now := s.now()
				appt.AssignedAt = &now
			}
			appt.ProviderID = req.ProviderID
		}
		staffID := staff.ID
		appt.LastModifiedBy = &staffID

		completed = appt.Status == model.AppointmentStatusCompleted && prevStatus != model.AppointmentStatusCompleted
		return s.appointments.Update(ctx, appt)
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	if completed {
		s.maybeCreateFollowUp(ctx, appt)
	}
	return appt, nil
}

// GetForUser loads an appointment and enforces ownership.
func (s *Service) GetForUser(ctx context.Context, identity *model.Identity, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.UserID != identity.ID && !identity.IsStaff() {
		return nil, repository.ErrNotFound
	}
	return appt, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	return s.appointments.ListForUser(ctx, userID)
}

// ListDay returns all appointments whose local calendar day matches date.
func (s *Service) ListDay(ctx context.Context, date string) ([]*model.Appointment, error) {
	day, err := s.clinic.ParseDate(date)
	if err != nil {
		return nil, err
	}
	start, end := s.clinic.DayWindow(day)
	return s.appointments.ListBetween(ctx, start, end)
}

// parseSlot converts a local date and clock string into the slot's UTC start.
func (s *Service) parseSlot(date, clock string) (time.Time, error) {
	day, err := s.clinic.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := s.clinic.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return s.clinic.At(day, hour, minute), nil
}

// sweepExpiredLocks is the lazy cleanup run at the head of every lock or
// booking operation. There is no background sweeper.
func (s *Service) sweepExpiredLocks(ctx context.Context) {
	n, err := s.locks.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Error(err, "failed to sweep expired slot locks")
		return
	}
	if n > 0 {
		s.metrics.LocksExpiredSwept.Add(float64(n))
	}
}

func (s *Service) countRejection(err error) {
	if rej, ok := AsRejection(err); ok {
		s.metrics.BookingRejections.WithLabelValues(string(rej.Code)).Inc()
	}
}
