package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/clinictime"
	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
)

// Slot rule reasons, shown verbatim to the caller. Order of evaluation is
// fixed: calendar rules, hours, blocks, capacity, overlap. The first failing
// rule wins.
const (
	reasonWeekend      = "Appointments are available Monday to Friday only."
	reasonSubHour      = "Only full-hour slots are allowed."
	reasonOutsideHours = "This slot is outside booking hours."
	reasonDateBlocked  = "This date is blocked."
	reasonSlotBlocked  = "This time slot is blocked."
	reasonDailyLimit   = "Daily appointment limit reached for this date."
	reasonOverlap      = "This slot is not available due to buffer/overlap rules."
)

// validateOpts tune a single validation pass. The zero value is the
// pet-parent path: default duration, full-hour slots only, no exclusion.
type validateOpts struct {
	// excludeID removes one appointment from capacity and overlap checks,
	// so a reschedule does not collide with the appointment it replaces.
	excludeID uuid.UUID
	// durationMinutes overrides the configured duration when non-zero.
	durationMinutes int
	// allowSubHour skips the full-hour restriction (staff bookings).
	allowSubHour bool
}

// validator runs the ordered slot bookability rules. It is advisory at lock
// time and authoritative (inside the commit transaction) at booking time;
// the unique start_at constraint backstops whatever it misses.
type validator struct {
	appointments repository.AppointmentRepository
	blocked      repository.BlockedRepository
	clinic       *clinictime.Clinic
}

// validateSlot checks every rule against the slot starting at startUTC and
// returns a CodeRuleViolation rejection naming the first rule that failed.
func (v *validator) validateSlot(ctx context.Context, settings *model.BookingSettings, startUTC time.Time, opts validateOpts) error {
	local := v.clinic.ToLocal(startUTC)
	dur := opts.durationMinutes
	if dur == 0 {
		dur = settings.DurationMinutes
	}

	if v.clinic.IsWeekend(startUTC) {
		return reject(CodeRuleViolation, reasonWeekend)
	}

	if !opts.allowSubHour && (local.Minute() != 0 || local.Second() != 0) {
		return reject(CodeRuleViolation, reasonSubHour)
	}

	if local.Hour() < settings.StartHour {
		return reject(CodeRuleViolation, reasonOutsideHours)
	}

	// The appointment end must also fit within clinic hours.
	endLocal := local.Add(time.Duration(dur) * time.Minute)
	if endLocal.Hour() > settings.EndHour || (endLocal.Hour() == settings.EndHour && endLocal.Minute() > 0) {
		return reject(CodeRuleViolation, reasonOutsideHours)
	}

	dateBlocked, err := v.blocked.IsDateBlocked(ctx, local)
	if err != nil {
		return err
	}
	if dateBlocked {
		return reject(CodeRuleViolation, reasonDateBlocked)
	}

	slotBlocked, err := v.blocked.IsSlotBlocked(ctx, startUTC)
	if err != nil {
		return err
	}
	if slotBlocked {
		return reject(CodeRuleViolation, reasonSlotBlocked)
	}

	dayStart, dayEnd := v.clinic.DayWindow(local)
	count, err := v.appointments.CountInWindow(ctx, dayStart, dayEnd, opts.excludeID)
	if err != nil {
		return err
	}
	if count >= settings.DailyLimit {
		return reject(CodeRuleViolation, reasonDailyLimit)
	}

	// Overlap over the buffer-padded interval, against blocking statuses.
	buffer := time.Duration(settings.BufferMinutes) * time.Minute
	paddedStart := startUTC.Add(-buffer)
	paddedEnd := startUTC.Add(time.Duration(dur) * time.Minute).Add(buffer)
	overlap, err := v.appointments.AnyOverlapping(ctx, paddedStart, paddedEnd, opts.excludeID)
	if err != nil {
		return err
	}
	if overlap {
		return reject(CodeRuleViolation, reasonOverlap)
	}

	return nil
}
