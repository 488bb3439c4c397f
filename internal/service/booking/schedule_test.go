package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockDateIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, created, err := f.service.BlockDate(ctx, testDate, "maintenance")
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = f.service.BlockDate(ctx, testDate, "again")
	require.NoError(t, err)
	assert.False(t, created)

	dates, err := f.service.ListBlockedDates(ctx)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "maintenance", dates[0].Reason)

	require.NoError(t, f.service.UnblockDate(ctx, testDate))
	dates, err = f.service.ListBlockedDates(ctx)
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestBlockDateRange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Pre-block the middle day; the range skips it.
	_, _, err := f.service.BlockDate(ctx, "2024-01-09", "holiday")
	require.NoError(t, err)

	created, err := f.service.BlockDateRange(ctx, "2024-01-08", "2024-01-10", "renovation")
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	dates, err := f.service.ListBlockedDates(ctx)
	require.NoError(t, err)
	assert.Len(t, dates, 3)
}

func TestBlockSlot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, created, err := f.service.BlockSlot(ctx, testDate, "11:00", "equipment service")
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = f.service.BlockSlot(ctx, testDate, "11:00", "")
	require.NoError(t, err)
	assert.False(t, created)

	slots, err := f.service.ListBlockedSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, f.slotAt(testDate, 11), slots[0].StartAt)

	require.NoError(t, f.service.UnblockSlot(ctx, testDate, "11:00"))
	slots, err = f.service.ListBlockedSlots(ctx)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestCalendar(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := petParent()

	_, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)
	_, err = f.bookSlot(user, testDate, "14:00")
	require.NoError(t, err)
	_, _, err = f.service.BlockDate(ctx, "2024-01-10", "holiday")
	require.NoError(t, err)

	// Saturday 2024-01-06 through Wednesday 2024-01-10.
	days, err := f.service.Calendar(ctx, "2024-01-06", "2024-01-10")
	require.NoError(t, err)
	require.Len(t, days, 5)

	assert.Equal(t, "2024-01-06", days[0].Date)
	assert.True(t, days[0].Weekend)
	assert.True(t, days[1].Weekend)

	monday := days[2]
	assert.Equal(t, testDate, monday.Date)
	assert.False(t, monday.Weekend)
	assert.Len(t, monday.Appointments, 2)

	wednesday := days[4]
	assert.True(t, wednesday.Blocked)
	assert.Empty(t, wednesday.Appointments)
	assert.NotNil(t, wednesday.Appointments)
}

func TestListDay(t *testing.T) {
	f := newFixture()
	user := petParent()

	_, err := f.bookSlot(user, testDate, "10:00")
	require.NoError(t, err)
	_, err = f.bookSlot(user, testNextDate, "10:00")
	require.NoError(t, err)

	appts, err := f.service.ListDay(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, f.slotAt(testDate, 10), appts[0].StartAt)
}
