// Package worker runs the periodic reminder sweeps. Each sweep queries
// appointments entering a reminder window whose reminder has not been sent,
// sends, then marks them, so a crashed sweep re-sends at most the in-flight
// appointment.
package worker

import (
	"context"
	"time"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
	"github.com/sacrapods/nutrivet-api/pkg/logger"
	"github.com/sacrapods/nutrivet-api/pkg/metrics"
)

// ReminderSender delivers one reminder; the notification service satisfies
// it.
type ReminderSender interface {
	SendReminder(ctx context.Context, appt *model.Appointment, kind string) error
}

type ReminderWorker struct {
	appointments repository.AppointmentRepository
	sender       ReminderSender
	metrics      *metrics.Metrics
	logger       *logger.Logger
	interval     time.Duration
	now          func() time.Time
}

func NewReminderWorker(
	appointments repository.AppointmentRepository,
	sender ReminderSender,
	m *metrics.Metrics,
	log *logger.Logger,
	interval time.Duration,
) *ReminderWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ReminderWorker{
		appointments: appointments,
		sender:       sender,
		metrics:      m,
		logger:       log,
		interval:     interval,
		now:          time.Now,
	}
}

// WithClock replaces the worker clock, for tests.
func (w *ReminderWorker) WithClock(now func() time.Time) *ReminderWorker {
	w.now = now
	return w
}

// Run sweeps on the configured interval until ctx is cancelled.
func (w *ReminderWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reminder worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs both reminder sweeps. The windows are wide enough that a
// missed tick does not silently skip an appointment.
func (w *ReminderWorker) SweepOnce(ctx context.Context) {
	now := w.now()
	w.sweep(ctx, "24h", now.Add(23*time.Hour), now.Add(25*time.Hour))
	w.sweep(ctx, "1h", now.Add(30*time.Minute), now.Add(90*time.Minute))
}

func (w *ReminderWorker) sweep(ctx context.Context, kind string, start, end time.Time) {
	due, err := w.appointments.ListDueForReminder(ctx, kind, start, end)
	if err != nil {
		w.logger.Error(err, "reminder sweep query failed", "kind", kind)
		return
	}

	for _, appt := range due {
		if err := w.sender.SendReminder(ctx, appt, kind); err != nil {
			w.logger.Error(err, "reminder send failed",
				"kind", kind,
				"appointment_id", appt.ID,
			)
			continue
		}
		if err := w.appointments.MarkReminderSent(ctx, appt.ID, kind, w.now()); err != nil {
			w.logger.Error(err, "failed to mark reminder sent",
				"kind", kind,
				"appointment_id", appt.ID,
			)
			continue
		}
		w.metrics.RemindersSent.WithLabelValues(kind).Inc()
	}
}
