package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository/memory"
)

func TestCreateFromLock(t *testing.T) {
	f := newFixture()
	user := petParent()

	lock, err := f.service.AcquireLock(context.Background(), user, &model.LockSlotRequest{
		Date: testDate, Time: "10:00",
	})
	require.NoError(t, err)

	petID := f.ownedPet(user)
	appt, err := f.service.CreateFromLock(context.Background(), user, &model.CreateBookingRequest{
		PetID:            petID,
		LockToken:        lock.Token,
		PaymentReference: "UPI-123",
	})
	require.NoError(t, err)

	assert.Equal(t, user.ID, appt.UserID)
	assert.Equal(t, petID, appt.PetID)
	assert.Equal(t, f.slotAt(testDate, 10), appt.StartAt)
	assert.Equal(t, f.slotAt(testDate, 11), appt.EndAt)
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.Equal(t, model.PaymentStatusPending, appt.PaymentStatus)
	assert.Equal(t, "UPI-123", appt.PaymentReference)

	// The lock is consumed: the token no longer resolves.
	_, err = f.service.CreateFromLock(context.Background(), user, &model.CreateBookingRequest{
		PetID:     petID,
		LockToken: lock.Token,
	})
	requireRejection(t, err, CodeLockInvalid, reasonBadToken)

	require.Len(t, f.events.created, 1)
	assert.Equal(t, appt.ID, f.events.created[0].ID)
}

func TestCreateFromLockUnknownToken(t *testing.T) {
	f := newFixture()
	user := petParent()

	_, err := f.service.CreateFromLock(context.Background(), user, &model.CreateBookingRequest{
		PetID:     f.ownedPet(user),
		LockToken: uuid.New(),
	})
	requireRejection(t, err, CodeLockInvalid, reasonBadToken)
}

func TestCreateFromLockForeignPet(t *testing.T) {
	f := newFixture()
	owner, other := petParent(), petParent()

	lock, err := f.service.AcquireLock(context.Background(), owner, &model.LockSlotRequest{
		Date: testDate, Time: "10:00",
	})
	require.NoError(t, err)

	// Someone else's pet, and a pet that does not exist at all, both read as
	// an ownership failure.
	_, err = f.service.CreateFromLock(context.Background(), owner, &model.CreateBookingRequest{
		PetID:     f.ownedPet(other),
		LockToken: lock.Token,
	})
	requireRejection(t, err, CodePermissionDenied, reasonNotYourPet)

	_, err = f.service.CreateFromLock(context.Background(), owner, &model.CreateBookingRequest{
		PetID:     uuid.New(),
		LockToken: lock.Token,
	})
	requireRejection(t, err, CodePermissionDenied, reasonNotYourPet)
}

func TestCreateFromLockForeignToken(t *testing.T) {
	f := newFixture()
	owner, thief := petParent(), petParent()

	lock, err := f.service.AcquireLock(context.Background(), owner, &model.LockSlotRequest{
		Date: testDate, Time: "10:00",
	})
	require.NoError(t, err)

	// Another user's token behaves exactly like a bad token.
	_, err = f.service.CreateFromLock(context.Background(), thief, &model.CreateBookingRequest{
		PetID:     f.ownedPet(thief),
		LockToken: lock.Token,
	})
	requireRejection(t, err, CodeLockInvalid, reasonBadToken)
}

func TestCreateFromLockExpired(t *testing.T) {
	f := newFixture()
	user := petParent()

	lock, err := f.service.AcquireLock(context.Background(), user, &model.LockSlotRequest{
		Date: testDate, Time: "10:00",
	})
	require.NoError(t, err)

	locks := memory.NewSlotLockRepo(f.store)
	require.NoError(t, locks.UpdateExpiry(context.Background(), lock.ID, testNow.Add(-time.Second)))

	_, err = f.service.CreateFromLock(context.Background(), user, &model.CreateBookingRequest{
		PetID:     f.ownedPet(user),
		LockToken: lock.Token,
	})
	requireRejection(t, err, CodeLockInvalid, reasonBadToken)
}

func TestCreateFromLockSlotJustTaken(t *testing.T) {
	f := newFixture()
	holder := petParent()

	lock, err := f.service.AcquireLock(context.Background(), holder, &model.LockSlotRequest{
		Date: testDate, Time: "10:00",
	})
	require.NoError(t, err)

	// Someone lands on the same instant behind the lock's back (override
	// bookings bypass locks entirely).
	appts := memory.NewAppointmentRepo(f.store)
	require.NoError(t, appts.Create(context.Background(), &model.Appointment{
		UserID:  uuid.New(),
		PetID:   uuid.New(),
		StartAt: f.slotAt(testDate, 10),
		EndAt:   f.slotAt(testDate, 11),
		Status:  model.AppointmentStatusConfirmed,
	}))

	_, err = f.service.CreateFromLock(context.Background(), holder, &model.CreateBookingRequest{
		PetID:     f.ownedPet(holder),
		LockToken: lock.Token,
	})
	// The validator catches the occupied slot before the insert is tried.
	requireRejection(t, err, CodeRuleViolation, reasonOverlap)

	// The rejected transaction rolled back: the lock survives, so the holder
	// can pick another slot without re-locking.
	locks := memory.NewSlotLockRepo(f.store)
	_, err = locks.GetByTokenForUpdate(context.Background(), lock.Token, holder.ID)
	assert.NoError(t, err)
}

func TestConcurrentCommitsSingleWinner(t *testing.T) {
	f := newFixture()
	staff := staffMember()

	// Override bookings skip the advisory lock and the rule set, leaving
	// only the storage uniqueness guard. Fire many at one instant.
	const workers = 12
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.StaffBook(context.Background(), staff, &model.StaffBookingRequest{
				UserID:        uuid.New(),
				PetID:         uuid.New(),
				Date:          testDate,
				Time:          "10:00",
				OverrideRules: true,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		rej, ok := AsRejection(err)
		require.True(t, ok)
		require.Equal(t, CodeSlotTaken, rej.Code)
		conflicts++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
}

func TestStaffBook(t *testing.T) {
	f := newFixture()
	staff := staffMember()
	providerID := uuid.New()

	appt, err := f.service.StaffBook(context.Background(), staff, &model.StaffBookingRequest{
		UserID:          uuid.New(),
		PetID:           uuid.New(),
		ProviderID:      &providerID,
		Date:            testDate,
		Time:            "10:30",
		DurationMinutes: 30,
		ApptType:        model.AppointmentTypeVaccination,
		StaffNotes:      "annual shots",
	})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusConfirmed, appt.Status)
	assert.Equal(t, model.PaymentStatusUnpaid, appt.PaymentStatus)
	assert.Equal(t, model.AppointmentTypeVaccination, appt.ApptType)
	assert.Equal(t, 30*time.Minute, appt.EndAt.Sub(appt.StartAt))
	require.NotNil(t, appt.ProviderID)
	assert.Equal(t, providerID, *appt.ProviderID)
	assert.NotNil(t, appt.AssignedAt)
	require.NotNil(t, appt.LastModifiedBy)
	assert.Equal(t, staff.ID, *appt.LastModifiedBy)
}

func TestStaffBookRespectsRulesWithoutOverride(t *testing.T) {
	f := newFixture()
	staff := staffMember()

	_, err := f.service.StaffBook(context.Background(), staff, &model.StaffBookingRequest{
		UserID: uuid.New(),
		PetID:  uuid.New(),
		Date:   "2024-01-06", // Saturday
		Time:   "10:00",
	})
	requireRejection(t, err, CodeRuleViolation, reasonWeekend)

	// Override bypasses the same rule.
	_, err = f.service.StaffBook(context.Background(), staff, &model.StaffBookingRequest{
		UserID:        uuid.New(),
		PetID:         uuid.New(),
		Date:          "2024-01-06",
		Time:          "10:00",
		OverrideRules: true,
	})
	assert.NoError(t, err)
}

func TestUpdateAppointmentPatch(t *testing.T) {
	f := newFixture()
	staff := staffMember()
	user := petParent()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)

	confirmed := model.AppointmentStatusConfirmed
	paid := model.PaymentStatusPaid
	notes := "deposit received"
	updated, err := f.service.UpdateAppointment(context.Background(), staff, appt.ID, &model.UpdateAppointmentRequest{
		Status:        &confirmed,
		PaymentStatus: &paid,
		StaffNotes:    &notes,
	})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusConfirmed, updated.Status)
	assert.Equal(t, model.PaymentStatusPaid, updated.PaymentStatus)
	assert.Equal(t, "deposit received", updated.StaffNotes)
	require.NotNil(t, updated.LastModifiedBy)
	assert.Equal(t, staff.ID, *updated.LastModifiedBy)
}

func TestUpdateAppointmentFirstProviderAssignmentStamps(t *testing.T) {
	f := newFixture()
	staff := staffMember()
	user := petParent()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)
	require.Nil(t, appt.ProviderID)

	providerID := uuid.New()
	updated, err := f.service.UpdateAppointment(context.Background(), staff, appt.ID, &model.UpdateAppointmentRequest{
		ProviderID: &providerID,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ProviderID)
	assert.Equal(t, providerID, *updated.ProviderID)
	require.NotNil(t, updated.AssignedAt)
	firstAssignment := *updated.AssignedAt

	// Reassignment switches the provider but does not restamp assigned_at.
	other := uuid.New()
	updated, err = f.service.UpdateAppointment(context.Background(), staff, appt.ID, &model.UpdateAppointmentRequest{
		ProviderID: &other,
	})
	require.NoError(t, err)
	assert.Equal(t, other, *updated.ProviderID)
	assert.Equal(t, firstAssignment, *updated.AssignedAt)
}

func TestUpdateAppointmentProviderCapacityGate(t *testing.T) {
	f := newFixture()
	staff := staffMember()
	user := petParent()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)

	providerID := uuid.New()
	require.NoError(t, f.capacities.Upsert(context.Background(), &model.ProviderCapacity{
		ProviderID: providerID,
		DailyLimit: 0,
		Active:     true,
	}))

	_, err = f.service.UpdateAppointment(context.Background(), staff, appt.ID, &model.UpdateAppointmentRequest{
		ProviderID: &providerID,
	})
	requireRejection(t, err, CodeRuleViolation,
		"Provider daily limit reached for "+testDate+". Increase capacity in settings or choose another provider.")

	fresh, err := f.service.GetForUser(context.Background(), staff, appt.ID)
	require.NoError(t, err)
	assert.Nil(t, fresh.ProviderID)
	assert.Nil(t, fresh.AssignedAt)
}

func TestUpdateAppointmentCapacityExcludesSelf(t *testing.T) {
	f := newFixture()
	staff := staffMember()
	user := petParent()

	appt, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)

	providerID := uuid.New()
	require.NoError(t, f.capacities.Upsert(context.Background(), &model.ProviderCapacity{
		ProviderID: providerID,
		DailyLimit: 1,
		Active:     true,
	}))

	updated, err := f.service.UpdateAppointment(context.Background(), staff, appt.ID, &model.UpdateAppointmentRequest{
		ProviderID: &providerID,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ProviderID)

	// Re-saving the same assignment does not count the appointment against
	// its own provider's load.
	confirmed := model.AppointmentStatusConfirmed
	_, err = f.service.UpdateAppointment(context.Background(), staff, appt.ID, &model.UpdateAppointmentRequest{
		Status:     &confirmed,
		ProviderID: &providerID,
	})
	require.NoError(t, err)

	// A second appointment on the same day is over the limit.
	second, err := f.bookSlot(user, testDate, "11:00")
	require.NoError(t, err)
	_, err = f.service.UpdateAppointment(context.Background(), staff, second.ID, &model.UpdateAppointmentRequest{
		ProviderID: &providerID,
	})
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, CodeRuleViolation, rej.Code)
}

func TestGetForUserOwnership(t *testing.T) {
	f := newFixture()
	owner, stranger := petParent(), petParent()
	staff := staffMember()

	appt, err := f.bookSlot(owner, testDate, "10:00")
	require.NoError(t, err)

	_, err = f.service.GetForUser(context.Background(), owner, appt.ID)
	assert.NoError(t, err)

	_, err = f.service.GetForUser(context.Background(), stranger, appt.ID)
	assert.Error(t, err)

	// Staff can read any appointment.
	_, err = f.service.GetForUser(context.Background(), staff, appt.ID)
	assert.NoError(t, err)
}
