package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository/memory"
	"github.com/sacrapods/nutrivet-api/pkg/logger"
	"github.com/sacrapods/nutrivet-api/pkg/metrics"
)

var testNow = time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)

type sentReminder struct {
	apptID uuid.UUID
	kind   string
}

type fakeSender struct {
	sent    []sentReminder
	failFor uuid.UUID
}

func (s *fakeSender) SendReminder(_ context.Context, appt *model.Appointment, kind string) error {
	if appt.ID == s.failFor {
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, sentReminder{apptID: appt.ID, kind: kind})
	return nil
}

func newWorker(t *testing.T) (*ReminderWorker, *memory.Store, *fakeSender) {
	t.Helper()
	store := memory.NewStore()
	sender := &fakeSender{}
	w := NewReminderWorker(
		memory.NewAppointmentRepo(store),
		sender,
		metrics.NewUnregistered("test"),
		logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard}),
		time.Minute,
	).WithClock(func() time.Time { return testNow })
	return w, store, sender
}

func addAppointment(t *testing.T, store *memory.Store, start time.Time, status model.AppointmentStatus) *model.Appointment {
	t.Helper()
	appt := &model.Appointment{
		UserID:  uuid.New(),
		PetID:   uuid.New(),
		StartAt: start,
		EndAt:   start.Add(time.Hour),
		Status:  status,
	}
	repo := memory.NewAppointmentRepo(store)
	require.NoError(t, repo.Create(context.Background(), appt))
	return appt
}

func TestSweepOnceSendsAndMarks(t *testing.T) {
	w, store, sender := newWorker(t)

	dayOut := addAppointment(t, store, testNow.Add(24*time.Hour), model.AppointmentStatusConfirmed)
	hourOut := addAppointment(t, store, testNow.Add(time.Hour), model.AppointmentStatusPending)
	farOut := addAppointment(t, store, testNow.Add(72*time.Hour), model.AppointmentStatusConfirmed)

	w.SweepOnce(context.Background())

	require.Len(t, sender.sent, 2)
	assert.Equal(t, sentReminder{apptID: dayOut.ID, kind: "24h"}, sender.sent[0])
	assert.Equal(t, sentReminder{apptID: hourOut.ID, kind: "1h"}, sender.sent[1])

	repo := memory.NewAppointmentRepo(store)
	got, err := repo.Get(context.Background(), dayOut.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Reminder24hAt)
	assert.Equal(t, testNow, *got.Reminder24hAt)
	assert.Nil(t, got.Reminder1hAt)

	got, err = repo.Get(context.Background(), farOut.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Reminder24hAt)
}

func TestSweepOnceSkipsAlreadySent(t *testing.T) {
	w, store, sender := newWorker(t)

	addAppointment(t, store, testNow.Add(24*time.Hour), model.AppointmentStatusConfirmed)

	w.SweepOnce(context.Background())
	require.Len(t, sender.sent, 1)

	w.SweepOnce(context.Background())
	assert.Len(t, sender.sent, 1)
}

func TestSweepOnceSkipsCancelled(t *testing.T) {
	w, store, sender := newWorker(t)

	addAppointment(t, store, testNow.Add(24*time.Hour), model.AppointmentStatusCancelled)
	addAppointment(t, store, testNow.Add(time.Hour), model.AppointmentStatusRescheduled)

	w.SweepOnce(context.Background())
	assert.Empty(t, sender.sent)
}

func TestSweepOnceSendFailureLeavesUnmarked(t *testing.T) {
	w, store, sender := newWorker(t)

	appt := addAppointment(t, store, testNow.Add(24*time.Hour), model.AppointmentStatusConfirmed)
	sender.failFor = appt.ID

	w.SweepOnce(context.Background())
	assert.Empty(t, sender.sent)

	repo := memory.NewAppointmentRepo(store)
	got, err := repo.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Reminder24hAt)

	// The next sweep retries it.
	sender.failFor = uuid.Nil
	w.SweepOnce(context.Background())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, appt.ID, sender.sent[0].apptID)
}

func TestRunStopsOnCancel(t *testing.T) {
	w, _, _ := newWorker(t)
	w.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
