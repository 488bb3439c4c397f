package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacrapods/nutrivet-api/internal/model"
)

func TestDailySlotsDefaultGrid(t *testing.T) {
	f := newFixture()

	slots, remaining, err := f.service.DailySlots(context.Background(), testDate, DailySlotsOpts{})
	require.NoError(t, err)

	// 09:00 through 16:00 at one-hour steps, the last slot ending at 17:00.
	require.Len(t, slots, 8)
	assert.Equal(t, 8, remaining)
	assert.Equal(t, 9, slots[0].Hour)
	assert.Equal(t, 0, slots[0].Minute)
	assert.Equal(t, "09:00 AM", slots[0].Label)
	assert.Equal(t, 16, slots[7].Hour)
	for _, slot := range slots {
		assert.True(t, slot.Available)
		assert.Empty(t, slot.Reason)
	}
}

func TestDailySlotsBookedSlotUnavailable(t *testing.T) {
	f := newFixture()
	user := petParent()

	_, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)

	slots, remaining, err := f.service.DailySlots(context.Background(), testDate, DailySlotsOpts{})
	require.NoError(t, err)
	require.Len(t, slots, 8)
	assert.Equal(t, 7, remaining)

	assert.False(t, slots[1].Available)
	assert.Equal(t, reasonOverlap, slots[1].Reason)
	assert.True(t, slots[0].Available)
	assert.True(t, slots[2].Available)
}

func TestDailySlotsForeignLockShown(t *testing.T) {
	f := newFixture()
	holder, viewer := petParent(), petParent()

	_, err := f.service.AcquireLock(context.Background(), holder, &model.LockSlotRequest{
		Date: testDate, Time: "11:00",
	})
	require.NoError(t, err)

	slots, remaining, err := f.service.DailySlots(context.Background(), testDate, DailySlotsOpts{
		Viewer: viewer.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)
	assert.False(t, slots[2].Available)
	assert.Equal(t, reasonTemporarilyLocked, slots[2].Reason)
}

func TestDailySlotsOwnLockStaysAvailable(t *testing.T) {
	f := newFixture()
	holder := petParent()

	_, err := f.service.AcquireLock(context.Background(), holder, &model.LockSlotRequest{
		Date: testDate, Time: "11:00",
	})
	require.NoError(t, err)

	slots, remaining, err := f.service.DailySlots(context.Background(), testDate, DailySlotsOpts{
		Viewer: holder.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, remaining)
	assert.True(t, slots[2].Available)

	// Without a viewer the same lock hides the slot.
	_, remaining, err = f.service.DailySlots(context.Background(), testDate, DailySlotsOpts{})
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)
}

func TestDailySlotsSubHourGrid(t *testing.T) {
	f := newFixture()

	slots, _, err := f.service.DailySlots(context.Background(), testDate, DailySlotsOpts{
		DurationMinutes: 30,
		AllowSubHour:    true,
	})
	require.NoError(t, err)

	// 8 hours at 30-minute steps.
	require.Len(t, slots, 16)
	assert.Equal(t, 9, slots[0].Hour)
	assert.Equal(t, 30, slots[1].Minute)
	assert.Equal(t, 16, slots[15].Hour)
	assert.Equal(t, 30, slots[15].Minute)
}

func TestDailySlotsWeekend(t *testing.T) {
	f := newFixture()

	slots, remaining, err := f.service.DailySlots(context.Background(), "2024-01-06", DailySlotsOpts{})
	require.NoError(t, err)
	require.Len(t, slots, 8)
	assert.Equal(t, 0, remaining)
	for _, slot := range slots {
		assert.False(t, slot.Available)
		assert.Equal(t, reasonWeekend, slot.Reason)
	}
}

func TestDailySlotsBlockedDate(t *testing.T) {
	f := newFixture()

	_, created, err := f.service.BlockDate(context.Background(), testDate, "maintenance")
	require.NoError(t, err)
	assert.True(t, created)

	_, remaining, err := f.service.DailySlots(context.Background(), testDate, DailySlotsOpts{})
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}
