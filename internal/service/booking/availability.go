package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/repository"
)

const reasonTemporarilyLocked = "Temporarily locked"

// Slot is one entry in the daily availability grid.
type Slot struct {
	Hour      int    `json:"hour"`
	Minute    int    `json:"minute"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// DailySlotsOpts tune the grid generation. The zero value is the pet-parent
// view: configured duration, hourly steps, no viewer.
type DailySlotsOpts struct {
	// Viewer, when set, keeps slots locked by that user visible as available,
	// so the holder can still see the slot they are booking.
	Viewer uuid.UUID
	// DurationMinutes overrides the configured appointment length.
	DurationMinutes int
	// AllowSubHour steps the grid by the duration instead of full hours.
	AllowSubHour bool
}

// DailySlots builds the availability grid for one local calendar date. Every
// candidate slot is run through the full rule set; unavailable slots carry
// the first failing rule's reason. Expired locks are swept first.
func (s *Service) DailySlots(ctx context.Context, date string, opts DailySlotsOpts) ([]Slot, int, error) {
	day, err := s.clinic.ParseDate(date)
	if err != nil {
		return nil, 0, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, 0, err
	}
	dur := opts.DurationMinutes
	if dur == 0 {
		dur = settings.DurationMinutes
	}
	step := 60
	if opts.AllowSubHour {
		step = dur
	}

	s.sweepExpiredLocks(ctx)
	now := s.now()

	var slots []Slot
	startMinute := settings.StartHour * 60
	endMinute := settings.EndHour * 60

	for cursor := startMinute; cursor+dur <= endMinute; cursor += step {
		hour, minute := cursor/60, cursor%60
		startUTC := s.clinic.At(day, hour, minute)

		slot := Slot{
			Hour:      hour,
			Minute:    minute,
			Label:     s.clinic.SlotLabel(startUTC),
			Available: true,
		}

		verr := s.validate.validateSlot(ctx, settings, startUTC, validateOpts{
			durationMinutes: dur,
			allowSubHour:    opts.AllowSubHour,
		})
		if verr != nil {
			rej, ok := AsRejection(verr)
			if !ok {
				return nil, 0, verr
			}
			slot.Available = false
			slot.Reason = rej.Reason
		}

		lock, lerr := s.locks.ActiveOnSlot(ctx, startUTC, now)
		if lerr != nil && !errors.Is(lerr, repository.ErrNotFound) {
			return nil, 0, lerr
		}
		if lerr == nil && (opts.Viewer == uuid.Nil || lock.UserID != opts.Viewer) {
			slot.Available = false
			slot.Reason = reasonTemporarilyLocked
		}

		slots = append(slots, slot)
	}

	remaining := 0
	for _, slot := range slots {
		if slot.Available {
			remaining++
		}
	}
	return slots, remaining, nil
}
