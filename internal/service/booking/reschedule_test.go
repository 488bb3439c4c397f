package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository/memory"
)

func TestRescheduleDirect(t *testing.T) {
	f := newFixture()
	user := petParent()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)

	next, err := f.service.RescheduleDirect(context.Background(), user, appt.ID, testNextDate, "11:00")
	require.NoError(t, err)

	assert.Equal(t, f.slotAt(testNextDate, 11), next.StartAt)
	assert.Equal(t, f.slotAt(testNextDate, 12), next.EndAt)
	assert.Equal(t, model.AppointmentStatusPending, next.Status)
	assert.Equal(t, 1, next.RescheduleCount)
	assert.Equal(t, appt.UserID, next.UserID)
	assert.Equal(t, appt.PetID, next.PetID)
	assert.Equal(t, appt.PaymentStatus, next.PaymentStatus)

	// The old appointment stays behind as a rescheduled tombstone.
	appts := memory.NewAppointmentRepo(f.store)
	old, err := appts.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRescheduled, old.Status)

	require.Len(t, f.events.rescheduled, 1)
	assert.Equal(t, next.ID, f.events.rescheduled[0].ID)
}

func TestRescheduleOnlyOnce(t *testing.T) {
	f := newFixture()
	user := petParent()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)

	next, err := f.service.RescheduleDirect(context.Background(), user, appt.ID, testNextDate, "11:00")
	require.NoError(t, err)

	// The limit follows the lineage, not the row.
	_, err = f.service.RescheduleDirect(context.Background(), user, next.ID, testNextDate, "14:00")
	requireRejection(t, err, CodeRescheduleNotAllowed, reasonRescheduleOnce)
}

func TestRescheduleCutoff(t *testing.T) {
	f := newFixture()
	user := petParent()

	// testNow is 15:30 IST on 2024-01-01; a 16:00 slot the same day is only
	// 30 minutes away.
	staff := staffMember()
	appt, err := f.service.StaffBook(context.Background(), staff, &model.StaffBookingRequest{
		UserID:        user.ID,
		PetID:         uuid.New(),
		Date:          "2024-01-01",
		Time:          "16:00",
		OverrideRules: true,
	})
	require.NoError(t, err)

	_, err = f.service.RescheduleDirect(context.Background(), user, appt.ID, testDate, "11:00")
	requireRejection(t, err, CodeRescheduleNotAllowed, reasonRescheduleCutoff)
}

func TestRescheduleOwnership(t *testing.T) {
	f := newFixture()
	owner, stranger := petParent(), petParent()

	appt, err := f.bookSlot(owner, testDate, "10:00")
	require.NoError(t, err)

	_, err = f.service.RescheduleDirect(context.Background(), stranger, appt.ID, testNextDate, "11:00")
	requireRejection(t, err, CodePermissionDenied, reasonNotYourAppointment)
}

func TestRescheduleStateGate(t *testing.T) {
	f := newFixture()
	user := petParent()
	staff := staffMember()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)

	cancelled := model.AppointmentStatusCancelled
	_, err = f.service.UpdateAppointment(context.Background(), staff, appt.ID, &model.UpdateAppointmentRequest{
		Status: &cancelled,
	})
	require.NoError(t, err)

	_, err = f.service.RescheduleDirect(context.Background(), user, appt.ID, testNextDate, "11:00")
	requireRejection(t, err, CodeRescheduleNotAllowed, reasonRescheduleState)
}

func TestRescheduleOnceBeforeStateGate(t *testing.T) {
	f := newFixture()
	user := petParent()

	// A cancelled appointment that already used its one reschedule reports
	// the lineage limit, not its state.
	appts := memory.NewAppointmentRepo(f.store)
	appt := &model.Appointment{
		UserID:          user.ID,
		PetID:           uuid.New(),
		StartAt:         f.slotAt(testDate, 10),
		EndAt:           f.slotAt(testDate, 11),
		Status:          model.AppointmentStatusCancelled,
		RescheduleCount: 1,
	}
	require.NoError(t, appts.Create(context.Background(), appt))

	_, err := f.service.RescheduleDirect(context.Background(), user, appt.ID, testNextDate, "11:00")
	requireRejection(t, err, CodeRescheduleNotAllowed, reasonRescheduleOnce)
}

func TestRescheduleFromLock(t *testing.T) {
	f := newFixture()
	user := petParent()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)

	lock, err := f.service.AcquireLock(context.Background(), user, &model.LockSlotRequest{
		Date: testNextDate, Time: "11:00",
	})
	require.NoError(t, err)

	next, err := f.service.RescheduleFromLock(context.Background(), user, appt.ID, lock.Token)
	require.NoError(t, err)
	assert.Equal(t, f.slotAt(testNextDate, 11), next.StartAt)
	assert.Equal(t, 1, next.RescheduleCount)

	// Lock consumed.
	locks := memory.NewSlotLockRepo(f.store)
	_, err = locks.GetByTokenForUpdate(context.Background(), lock.Token, user.ID)
	assert.Error(t, err)
}

func TestRescheduleFromLockBadToken(t *testing.T) {
	f := newFixture()
	user := petParent()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)

	_, err = f.service.RescheduleFromLock(context.Background(), user, appt.ID, uuid.New())
	requireRejection(t, err, CodeLockInvalid, reasonBadToken)
}

func TestRescheduleRollsBackOnSlotConflict(t *testing.T) {
	f := newFixture()
	user, other := petParent(), petParent()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)
	_, err = f.bookSlot(other, testNextDate, "11:00")
	require.NoError(t, err)

	// The occupied target slot fails validation; the tombstone write must
	// not survive the failed transaction.
	_, err = f.service.RescheduleDirect(context.Background(), user, appt.ID, testNextDate, "11:00")
	requireRejection(t, err, CodeRuleViolation, reasonOverlap)

	appts := memory.NewAppointmentRepo(f.store)
	got, err := appts.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, got.Status)
}

func TestSubmitReschedule(t *testing.T) {
	f := newFixture()
	user := petParent()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)

	req, err := f.service.SubmitReschedule(context.Background(), user, appt.ID, &model.SubmitRescheduleRequest{
		Date: testNextDate, Time: "11:00",
	})
	require.NoError(t, err)

	assert.Equal(t, appt.ID, req.AppointmentID)
	assert.Equal(t, user.ID, req.RequestedBy)
	assert.Equal(t, f.slotAt(testNextDate, 11), req.RequestedStartAt)
	assert.Equal(t, f.slotAt(testNextDate, 12), req.RequestedEndAt)
	assert.Equal(t, model.RescheduleStatusPending, req.Status)

	// One request per appointment, regardless of outcome.
	_, err = f.service.SubmitReschedule(context.Background(), user, appt.ID, &model.SubmitRescheduleRequest{
		Date: testNextDate, Time: "14:00",
	})
	requireRejection(t, err, CodeRescheduleNotAllowed, reasonRequestExists)
}

func TestApproveReschedule(t *testing.T) {
	f := newFixture()
	user := petParent()
	staff := staffMember()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)
	req, err := f.service.SubmitReschedule(context.Background(), user, appt.ID, &model.SubmitRescheduleRequest{
		Date: testNextDate, Time: "11:00",
	})
	require.NoError(t, err)

	decided, err := f.service.ApproveReschedule(context.Background(), staff, req.ID, "ok")
	require.NoError(t, err)

	assert.Equal(t, model.RescheduleStatusApproved, decided.Status)
	assert.Equal(t, "ok", decided.AdminNote)
	require.NotNil(t, decided.ReviewedBy)
	assert.Equal(t, staff.ID, *decided.ReviewedBy)
	assert.NotNil(t, decided.ReviewedAt)
	require.NotNil(t, decided.ResultingAppointmentID)

	appts := memory.NewAppointmentRepo(f.store)
	next, err := appts.Get(context.Background(), *decided.ResultingAppointmentID)
	require.NoError(t, err)
	assert.Equal(t, f.slotAt(testNextDate, 11), next.StartAt)
	assert.Equal(t, 1, next.RescheduleCount)

	old, err := appts.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRescheduled, old.Status)

	require.Len(t, f.events.decided, 1)
}

func TestApproveRescheduleAutoRejectsInvalidSlot(t *testing.T) {
	f := newFixture()
	user, other := petParent(), petParent()
	staff := staffMember()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)
	req, err := f.service.SubmitReschedule(context.Background(), user, appt.ID, &model.SubmitRescheduleRequest{
		Date: testNextDate, Time: "11:00",
	})
	require.NoError(t, err)

	// The requested slot is taken between submission and review.
	_, err = f.bookSlot(other, testNextDate, "11:00")
	require.NoError(t, err)

	decided, err := f.service.ApproveReschedule(context.Background(), staff, req.ID, "ok")
	require.NoError(t, err)

	assert.Equal(t, model.RescheduleStatusRejected, decided.Status)
	assert.Equal(t, "Auto-rejected at approval: "+reasonOverlap, decided.AdminNote)
	assert.Nil(t, decided.ResultingAppointmentID)

	// The original appointment is untouched.
	appts := memory.NewAppointmentRepo(f.store)
	got, err := appts.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, got.Status)
}

func TestRejectReschedule(t *testing.T) {
	f := newFixture()
	user := petParent()
	staff := staffMember()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)
	req, err := f.service.SubmitReschedule(context.Background(), user, appt.ID, &model.SubmitRescheduleRequest{
		Date: testNextDate, Time: "11:00",
	})
	require.NoError(t, err)

	decided, err := f.service.RejectReschedule(context.Background(), staff, req.ID, "clinic closed")
	require.NoError(t, err)
	assert.Equal(t, model.RescheduleStatusRejected, decided.Status)
	assert.Equal(t, "clinic closed", decided.AdminNote)

	// A processed request cannot be decided again.
	_, err = f.service.ApproveReschedule(context.Background(), staff, req.ID, "")
	requireRejection(t, err, CodeRescheduleNotAllowed, reasonRequestProcessed)
}

func TestBulkReviewMixedResults(t *testing.T) {
	f := newFixture()
	staff := staffMember()

	var ids []uuid.UUID
	for i, clock := range []string{"09:00", "11:00"} {
		user := petParent()
		appt, err := f.bookSlot(user, testDate, clock)
		require.NoError(t, err)
		req, err := f.service.SubmitReschedule(context.Background(), user, appt.ID, &model.SubmitRescheduleRequest{
			Date: testNextDate, Time: []string{"10:00", "14:00"}[i],
		})
		require.NoError(t, err)
		ids = append(ids, req.ID)
	}
	// An unknown ID fails its own transaction without sinking the batch.
	ids = append(ids, uuid.New())

	result, err := f.service.BulkReview(context.Background(), staff, &model.BulkRescheduleReview{
		Action:     "approve",
		RequestIDs: ids,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.FailedIDs, 1)
	assert.Equal(t, ids[2], result.FailedIDs[0])
}

func TestListReschedules(t *testing.T) {
	f := newFixture()
	user := petParent()
	staff := staffMember()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)
	req, err := f.service.SubmitReschedule(context.Background(), user, appt.ID, &model.SubmitRescheduleRequest{
		Date: testNextDate, Time: "11:00",
	})
	require.NoError(t, err)

	pending, err := f.service.ListPendingReschedules(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)

	mine, err := f.service.ListMyReschedules(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	none, err := f.service.ListMyReschedules(context.Background(), petParent())
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.service.RejectReschedule(context.Background(), staff, req.ID, "")
	require.NoError(t, err)
	pending, err = f.service.ListPendingReschedules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}
