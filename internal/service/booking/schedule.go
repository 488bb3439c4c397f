package booking

import (
	"context"

	"github.com/sacrapods/nutrivet-api/internal/model"
)

// BlockDate marks one local calendar date unavailable. Returns whether a new
// block was created; re-blocking an already blocked date is a no-op.
func (s *Service) BlockDate(ctx context.Context, date, reason string) (*model.BlockedDate, bool, error) {
	day, err := s.clinic.ParseDate(date)
	if err != nil {
		return nil, false, err
	}
	b := &model.BlockedDate{Date: day, Reason: reason}
	created, err := s.blocked.CreateDate(ctx, b)
	if err != nil {
		return nil, false, err
	}
	return b, created, nil
}

// BlockDateRange blocks every date in [from, to], inclusive. Already blocked
// dates inside the range are skipped. Returns the number of new blocks.
func (s *Service) BlockDateRange(ctx context.Context, from, to, reason string) (int, error) {
	start, err := s.clinic.ParseDate(from)
	if err != nil {
		return 0, err
	}
	end, err := s.clinic.ParseDate(to)
	if err != nil {
		return 0, err
	}

	created := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		b := &model.BlockedDate{Date: day, Reason: reason}
		ok, err := s.blocked.CreateDate(ctx, b)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// UnblockDate removes the block on a local calendar date.
func (s *Service) UnblockDate(ctx context.Context, date string) error {
	day, err := s.clinic.ParseDate(date)
	if err != nil {
		return err
	}
	return s.blocked.DeleteDate(ctx, day)
}

func (s *Service) ListBlockedDates(ctx context.Context) ([]*model.BlockedDate, error) {
	return s.blocked.ListDates(ctx)
}

// BlockSlot marks one slot instant unavailable.
func (s *Service) BlockSlot(ctx context.Context, date, clock, reason string) (*model.BlockedTimeSlot, bool, error) {
	startUTC, err := s.parseSlot(date, clock)
	if err != nil {
		return nil, false, err
	}
	b := &model.BlockedTimeSlot{StartAt: startUTC, Reason: reason}
	created, err := s.blocked.CreateSlot(ctx, b)
	if err != nil {
		return nil, false, err
	}
	return b, created, nil
}

// UnblockSlot removes the block on a slot instant.
func (s *Service) UnblockSlot(ctx context.Context, date, clock string) error {
	startUTC, err := s.parseSlot(date, clock)
	if err != nil {
		return err
	}
	return s.blocked.DeleteSlot(ctx, startUTC)
}

func (s *Service) ListBlockedSlots(ctx context.Context) ([]*model.BlockedTimeSlot, error) {
	return s.blocked.ListSlots(ctx)
}

// CalendarDay is one day in the staff calendar view.
type CalendarDay struct {
	Date         string               `json:"date"`
	Blocked      bool                 `json:"blocked"`
	Weekend      bool                 `json:"weekend"`
	Appointments []*model.Appointment `json:"appointments"`
}

// Calendar groups appointments by local calendar day over [from, to]
// inclusive, annotating blocked dates and weekends.
func (s *Service) Calendar(ctx context.Context, from, to string) ([]CalendarDay, error) {
	start, err := s.clinic.ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := s.clinic.ParseDate(to)
	if err != nil {
		return nil, err
	}

	windowStart, _ := s.clinic.DayWindow(start)
	_, windowEnd := s.clinic.DayWindow(end)
	appts, err := s.appointments.ListBetween(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]*model.Appointment)
	for _, appt := range appts {
		key := s.clinic.FormatDate(appt.StartAt)
		byDay[key] = append(byDay[key], appt)
	}

	var days []CalendarDay
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := s.clinic.FormatDate(day)
		blocked, err := s.blocked.IsDateBlocked(ctx, s.clinic.ToLocal(day))
		if err != nil {
			return nil, err
		}
		dayAppts := byDay[key]
		if dayAppts == nil {
			dayAppts = []*model.Appointment{}
		}
		days = append(days, CalendarDay{
			Date:         key,
			Blocked:      blocked,
			Weekend:      s.clinic.IsWeekend(day),
			Appointments: dayAppts,
		})
	}
	return days, nil
}
