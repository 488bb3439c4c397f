package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all booking engine metrics
type Metrics struct {
	BookingsCreated    *prometheus.CounterVec
	BookingRejections  *prometheus.CounterVec
	SlotConflicts      prometheus.Counter
	LocksAcquired      prometheus.Counter
	LockContention     prometheus.Counter
	LocksExpiredSwept  prometheus.Counter
	FollowUpsCreated   prometheus.Counter
	FollowUpCollisions prometheus.Counter
	RemindersSent      *prometheus.CounterVec
}

// NewMetrics creates and registers all booking metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		BookingsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Total number of appointments created",
		}, []string{"path"}),
		BookingRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_rejections_total",
			Help:      "Total number of user-facing booking rejections",
		}, []string{"code"}),
		SlotConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_commit_conflicts_total",
			Help:      "Total number of unique-constraint conflicts detected at commit",
		}),
		LocksAcquired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_locks_acquired_total",
			Help:      "Total number of slot locks acquired or renewed",
		}),
		LockContention: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_lock_contention_total",
			Help:      "Total number of lock acquisitions rejected because another user held the slot",
		}),
		LocksExpiredSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_locks_expired_swept_total",
			Help:      "Total number of expired slot locks removed by lazy cleanup",
		}),
		FollowUpsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "follow_ups_created_total",
			Help:      "Total number of follow-up appointments generated",
		}),
		FollowUpCollisions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "follow_up_collisions_total",
			Help:      "Total number of follow-up creations skipped due to slot collision",
		}),
		RemindersSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Total number of appointment reminders sent",
		}, []string{"kind"}),
	}
}

// NewUnregistered creates metrics bound to a private registry, for tests.
func NewUnregistered(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		BookingsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "bookings_created_total", Help: "Total number of appointments created",
		}, []string{"path"}),
		BookingRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "booking_rejections_total", Help: "Total number of user-facing booking rejections",
		}, []string{"code"}),
		SlotConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "slot_commit_conflicts_total", Help: "Total number of unique-constraint conflicts detected at commit",
		}),
		LocksAcquired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "slot_locks_acquired_total", Help: "Total number of slot locks acquired or renewed",
		}),
		LockContention: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "slot_lock_contention_total", Help: "Total number of lock acquisitions rejected because another user held the slot",
		}),
		LocksExpiredSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "slot_locks_expired_swept_total", Help: "Total number of expired slot locks removed by lazy cleanup",
		}),
		FollowUpsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "follow_ups_created_total", Help: "Total number of follow-up appointments generated",
		}),
		FollowUpCollisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "follow_up_collisions_total", Help: "Total number of follow-up creations skipped due to slot collision",
		}),
		RemindersSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reminders_sent_total", Help: "Total number of appointment reminders sent",
		}, []string{"kind"}),
	}
}
