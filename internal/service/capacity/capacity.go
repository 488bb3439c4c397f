// Package capacity tracks per-provider daily load against configured limits
// and gates provider assignment on them.
package capacity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/clinictime"
	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
	"github.com/sacrapods/nutrivet-api/pkg/logger"
)

// SettingsProvider yields the clinic settings that carry the default daily
// limit.
type SettingsProvider interface {
	Get(ctx context.Context) (*model.BookingSettings, error)
}

type Service struct {
	tx           repository.TxRunner
	appointments repository.AppointmentRepository
	capacities   repository.ProviderCapacityRepository
	settings     SettingsProvider
	clinic       *clinictime.Clinic
	logger       *logger.Logger
	now          func() time.Time
}

func NewService(
	tx repository.TxRunner,
	appointments repository.AppointmentRepository,
	capacities repository.ProviderCapacityRepository,
	settings SettingsProvider,
	clinic *clinictime.Clinic,
	log *logger.Logger,
) *Service {
	return &Service{
		tx:           tx,
		appointments: appointments,
		capacities:   capacities,
		settings:     settings,
		clinic:       clinic,
		logger:       log,
		now:          time.Now,
	}
}

// WithClock replaces the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// LimitFor resolves the provider's daily limit: the active per-provider
// override when one exists, else the global default.
func (s *Service) LimitFor(ctx context.Context, providerID uuid.UUID) (int, error) {
	cap, err := s.capacities.Get(ctx, providerID)
	if err == nil && cap.Active {
		return cap.DailyLimit, nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return 0, err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	return settings.DailyLimit, nil
}

// LoadOn counts the provider's countable appointments on the local calendar
// day containing at, excluding excludeID.
func (s *Service) LoadOn(ctx context.Context, providerID uuid.UUID, at time.Time, excludeID uuid.UUID) (int, error) {
	start, end := s.clinic.DayWindow(at)
	return s.appointments.CountForProvider(ctx, providerID, start, end, excludeID)
}

// DayLoad is one day of a provider's schedule.
type DayLoad struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DailyLoad returns the provider's load for `days` consecutive local days
// starting today.
func (s *Service) DailyLoad(ctx context.Context, providerID uuid.UUID, days int) ([]DayLoad, error) {
	out := make([]DayLoad, 0, days)
	day := s.now()
	for i := 0; i < days; i++ {
		at := day.AddDate(0, 0, i)
		count, err := s.LoadOn(ctx, providerID, at, uuid.Nil)
		if err != nil {
			return nil, err
		}
		out = append(out, DayLoad{Date: s.clinic.FormatDate(at), Count: count})
	}
	return out, nil
}

// SetCapacity upserts the provider's daily-limit override.
func (s *Service) SetCapacity(ctx context.Context, providerID uuid.UUID, req *model.UpsertProviderCapacityRequest) (*model.ProviderCapacity, error) {
	cap := &model.ProviderCapacity{
		ProviderID: providerID,
		DailyLimit: req.DailyLimit,
		Active:     req.Active,
	}
	if err := s.capacities.Upsert(ctx, cap); err != nil {
		return nil, err
	}
	return cap, nil
}

// GetCapacity returns the override row, or ErrNotFound when none exists.
func (s *Service) GetCapacity(ctx context.Context, providerID uuid.UUID) (*model.ProviderCapacity, error) {
	return s.capacities.Get(ctx, providerID)
}

// BulkAssign assigns the provider to each appointment whose local day still
// has headroom under the provider's limit. Over-limit appointments are
// skipped, not failed; each assignment runs in its own transaction.
func (s *Service) BulkAssign(ctx context.Context, staff *model.Identity, req *model.BulkAssignProviderRequest) (*model.BulkAssignResult, error) {
	result := &model.BulkAssignResult{}

	for _, id := range req.AppointmentIDs {
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			appt, err := s.appointments.Get(ctx, id)
			if err != nil {
				return err
			}

			limit, err := s.LimitFor(ctx, req.ProviderID)
			if err != nil {
				return err
			}
			load, err := s.LoadOn(ctx, req.ProviderID, appt.StartAt, appt.ID)
			if err != nil {
				return err
			}
			if load >= limit {
				result.Skipped++
				result.SkippedIDs = append(result.SkippedIDs, id)
				return nil
			}

			now := s.now()
			staffID := staff.ID
			providerID := req.ProviderID
			appt.ProviderID = &providerID
			appt.AssignedAt = &now
			appt.LastModifiedBy = &staffID
			if err := s.appointments.Update(ctx, appt); err != nil {
				return err
			}
			result.Assigned++
			return nil
		})
		if err != nil {
			s.logger.Warn("bulk assign item failed",
				"appointment_id", id,
				"provider_id", req.ProviderID,
				"error", err.Error(),
			)
			result.Skipped++
			result.SkippedIDs = append(result.SkippedIDs, id)
		}
	}

	return result, nil
}
