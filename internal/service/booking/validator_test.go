package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository/memory"
)

func validate(f *fixture, date string, hour, minute int, opts validateOpts) error {
	day, err := f.clinic.ParseDate(date)
	if err != nil {
		panic(err)
	}
	settings, err := f.settings.Get(context.Background())
	if err != nil {
		panic(err)
	}
	return f.service.validate.validateSlot(context.Background(), settings, f.clinic.At(day, hour, minute), opts)
}

func requireRejection(t *testing.T, err error, code RejectionCode, reason string) {
	t.Helper()
	require.Error(t, err)
	rej, ok := AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, code, rej.Code)
	assert.Equal(t, reason, rej.Reason)
}

func TestValidateSlotWeekend(t *testing.T) {
	f := newFixture()

	// 2024-01-06 is a Saturday, 2024-01-07 a Sunday.
	err := validate(f, "2024-01-06", 10, 0, validateOpts{})
	requireRejection(t, err, CodeRuleViolation, reasonWeekend)

	err = validate(f, "2024-01-07", 10, 0, validateOpts{})
	requireRejection(t, err, CodeRuleViolation, reasonWeekend)
}

func TestValidateSlotSubHour(t *testing.T) {
	f := newFixture()

	err := validate(f, testDate, 10, 30, validateOpts{})
	requireRejection(t, err, CodeRuleViolation, reasonSubHour)

	// Staff bookings may start off the hour.
	err = validate(f, testDate, 10, 30, validateOpts{allowSubHour: true, durationMinutes: 30})
	assert.NoError(t, err)
}

func TestValidateSlotOutsideHours(t *testing.T) {
	f := newFixture()

	err := validate(f, testDate, 8, 0, validateOpts{})
	requireRejection(t, err, CodeRuleViolation, reasonOutsideHours)

	// 17:00 start would end at 18:00, past the 17:00 close.
	err = validate(f, testDate, 17, 0, validateOpts{})
	requireRejection(t, err, CodeRuleViolation, reasonOutsideHours)

	// 16:00 ends exactly at close and is allowed.
	err = validate(f, testDate, 16, 0, validateOpts{})
	assert.NoError(t, err)
}

func TestValidateSlotEndMustFitDuration(t *testing.T) {
	f := newFixture()

	// A 90-minute booking at 16:00 would end at 17:30.
	err := validate(f, testDate, 16, 0, validateOpts{durationMinutes: 90, allowSubHour: true})
	requireRejection(t, err, CodeRuleViolation, reasonOutsideHours)

	err = validate(f, testDate, 15, 0, validateOpts{durationMinutes: 90, allowSubHour: true})
	assert.NoError(t, err)
}

func TestValidateSlotBlockedDate(t *testing.T) {
	f := newFixture()
	blocked := memory.NewBlockedRepo(f.store)
	day, err := f.clinic.ParseDate(testDate)
	require.NoError(t, err)
	_, err = blocked.CreateDate(context.Background(), &model.BlockedDate{Date: day})
	require.NoError(t, err)

	verr := validate(f, testDate, 10, 0, validateOpts{})
	requireRejection(t, verr, CodeRuleViolation, reasonDateBlocked)
}

func TestValidateSlotBlockedInstant(t *testing.T) {
	f := newFixture()
	blocked := memory.NewBlockedRepo(f.store)
	_, err := blocked.CreateSlot(context.Background(), &model.BlockedTimeSlot{StartAt: f.slotAt(testDate, 10)})
	require.NoError(t, err)

	verr := validate(f, testDate, 10, 0, validateOpts{})
	requireRejection(t, verr, CodeRuleViolation, reasonSlotBlocked)

	// Other slots on the day stay open.
	assert.NoError(t, validate(f, testDate, 11, 0, validateOpts{}))
}

func TestValidateSlotDailyLimit(t *testing.T) {
	f := newFixture()
	appts := memory.NewAppointmentRepo(f.store)

	// Fill the day to the default limit of 8 with spread-out hours so the
	// buffer overlap rule does not fire first for the candidate slot.
	for i := 0; i < 8; i++ {
		start := f.slotAt(testDate, 9).Add(time.Duration(i) * 45 * time.Minute)
		require.NoError(t, appts.Create(context.Background(), &model.Appointment{
			UserID:  uuid.New(),
			PetID:   uuid.New(),
			StartAt: start,
			EndAt:   start.Add(30 * time.Minute),
			Status:  model.AppointmentStatusCancelled,
		}))
	}

	// Cancelled appointments do not count; the day is still open.
	assert.NoError(t, validate(f, testDate, 14, 0, validateOpts{}))

	f2 := newFixture()
	appts2 := memory.NewAppointmentRepo(f2.store)
	for i := 0; i < 8; i++ {
		start := f2.slotAt(testDate, 9+i)
		require.NoError(t, appts2.Create(context.Background(), &model.Appointment{
			UserID:  uuid.New(),
			PetID:   uuid.New(),
			StartAt: start,
			EndAt:   start.Add(60 * time.Minute),
			Status:  model.AppointmentStatusConfirmed,
		}))
	}
	err := validate(f2, testDate, 12, 30, validateOpts{allowSubHour: true, durationMinutes: 30})
	requireRejection(t, err, CodeRuleViolation, reasonDailyLimit)
}

func TestValidateSlotBufferOverlap(t *testing.T) {
	f := newFixture()
	appts := memory.NewAppointmentRepo(f.store)

	// Existing appointment 10:00-11:00 local.
	start := f.slotAt(testDate, 10)
	require.NoError(t, appts.Create(context.Background(), &model.Appointment{
		UserID:  uuid.New(),
		PetID:   uuid.New(),
		StartAt: start,
		EndAt:   start.Add(60 * time.Minute),
		Status:  model.AppointmentStatusPending,
	}))

	// 11:00 starts within the 15-minute buffer after the existing end.
	err := validate(f, testDate, 11, 0, validateOpts{})
	requireRejection(t, err, CodeRuleViolation, reasonOverlap)

	// 12:00 clears the buffer.
	assert.NoError(t, validate(f, testDate, 12, 0, validateOpts{}))

	// Excluding the existing appointment frees its own window.
	existing, err2 := appts.ListBetween(context.Background(), start, start.Add(time.Hour))
	require.NoError(t, err2)
	require.Len(t, existing, 1)
	assert.NoError(t, validate(f, testDate, 10, 0, validateOpts{excludeID: existing[0].ID}))
}

func TestValidateSlotRuleOrder(t *testing.T) {
	f := newFixture()
	blocked := memory.NewBlockedRepo(f.store)
	day, err := f.clinic.ParseDate("2024-01-06") // Saturday
	require.NoError(t, err)
	_, err = blocked.CreateDate(context.Background(), &model.BlockedDate{Date: day})
	require.NoError(t, err)

	// Weekend fires before the blocked-date rule.
	verr := validate(f, "2024-01-06", 10, 30, validateOpts{})
	requireRejection(t, verr, CodeRuleViolation, reasonWeekend)
}

func TestValidateSlotCancelledDoesNotBlock(t *testing.T) {
	f := newFixture()
	appts := memory.NewAppointmentRepo(f.store)

	start := f.slotAt(testDate, 10)
	for i, status := range []model.AppointmentStatus{
		model.AppointmentStatusCancelled,
		model.AppointmentStatusRescheduled,
	} {
		s := start.Add(time.Duration(i) * 2 * time.Hour)
		require.NoError(t, appts.Create(context.Background(), &model.Appointment{
			UserID:  uuid.New(),
			PetID:   uuid.New(),
			StartAt: s,
			EndAt:   s.Add(time.Hour),
			Status:  status,
		}))
	}

	assert.NoError(t, validate(f, testDate, 10, 0, validateOpts{}))
	assert.NoError(t, validate(f, testDate, 12, 0, validateOpts{}))
}

func TestRejectionErrorMessage(t *testing.T) {
	err := reject(CodeRuleViolation, "nope")
	assert.Equal(t, "nope", err.Error())
	assert.Equal(t, fmt.Sprintf("%v", err), "nope")
}
