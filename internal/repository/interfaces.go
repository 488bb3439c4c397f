package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/model"
)

// Sentinel errors shared by all store implementations.
var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateStart is returned when an appointment insert collides
	// with the unique start_at constraint. This is the storage-level
	// anti-double-booking signal.
	ErrDuplicateStart = errors.New("appointment start time already taken")
)

// TxRunner executes fn inside a single storage transaction. Repository calls
// made with the ctx passed to fn join that transaction; row locks taken
// inside it are held until fn returns.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SettingsRepository persists the singleton clinic configuration row.
type SettingsRepository interface {
	// Get returns the settings row, creating the default one on first access.
	Get(ctx context.Context) (*model.BookingSettings, error)
	Save(ctx context.Context, s *model.BookingSettings) error
}

type AppointmentRepository interface {
	// Create inserts the appointment, returning ErrDuplicateStart when
	// another appointment already holds the same start_at.
	Create(ctx context.Context, appt *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Update(ctx context.Context, appt *model.Appointment) error

	// CountInWindow counts countable (non-cancelled, non-rescheduled)
	// appointments with start_at in [start, end), excluding excludeID when
	// non-nil-UUID.
	CountInWindow(ctx context.Context, start, end time.Time, excludeID uuid.UUID) (int, error)
	// AnyOverlapping reports whether any appointment in a blocking status
	// overlaps the half-open padded window [start, end).
	AnyOverlapping(ctx context.Context, start, end time.Time, excludeID uuid.UUID) (bool, error)
	// CountForProvider counts countable appointments assigned to the
	// provider with start_at in [start, end).
	CountForProvider(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (int, error)
	// HasFollowUpOf reports whether a follow-up generated from the given
	// appointment already exists.
	HasFollowUpOf(ctx context.Context, id uuid.UUID) (bool, error)

	ListBetween(ctx context.Context, start, end time.Time) ([]*model.Appointment, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error)
	// ListDueForReminder returns countable appointments with start_at in
	// [start, end) whose reminder of the given kind ("24h" or "1h") has not
	// been sent.
	ListDueForReminder(ctx context.Context, kind string, start, end time.Time) ([]*model.Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, kind string, at time.Time) error
}

type SlotLockRepository interface {
	// DeleteExpired removes locks with expires_at before now, returning the
	// number removed. Lazy cleanup; there is no background sweeper.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	// GetBySlotForUpdate loads the lock on the exact instant with a
	// row-level exclusive lock, serializing concurrent acquirers.
	GetBySlotForUpdate(ctx context.Context, slotStart time.Time) (*model.SlotLock, error)
	// GetByTokenForUpdate loads a lock by token and owner with a row-level
	// exclusive lock. ErrNotFound covers both a bad token and a foreign owner.
	GetByTokenForUpdate(ctx context.Context, token, userID uuid.UUID) (*model.SlotLock, error)
	// ActiveOnSlot returns the unexpired lock on the instant, if any.
	ActiveOnSlot(ctx context.Context, slotStart, now time.Time) (*model.SlotLock, error)
	Create(ctx context.Context, lock *model.SlotLock) error
	UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type BlockedRepository interface {
	IsDateBlocked(ctx context.Context, localDate time.Time) (bool, error)
	IsSlotBlocked(ctx context.Context, startAt time.Time) (bool, error)

	// CreateDate and CreateSlot are idempotent get-or-create writes;
	// created reports whether a new row was inserted.
	CreateDate(ctx context.Context, b *model.BlockedDate) (created bool, err error)
	DeleteDate(ctx context.Context, localDate time.Time) error
	ListDates(ctx context.Context) ([]*model.BlockedDate, error)
	CreateSlot(ctx context.Context, b *model.BlockedTimeSlot) (created bool, err error)
	DeleteSlot(ctx context.Context, startAt time.Time) error
	ListSlots(ctx context.Context) ([]*model.BlockedTimeSlot, error)
}

type RescheduleRequestRepository interface {
	Create(ctx context.Context, req *model.RescheduleRequest) error
	Get(ctx context.Context, id uuid.UUID) (*model.RescheduleRequest, error)
	// GetForUpdate takes a row-level exclusive lock so concurrent reviews of
	// the same request serialize.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.RescheduleRequest, error)
	Update(ctx context.Context, req *model.RescheduleRequest) error
	HasAnyForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error)
	ListPending(ctx context.Context) ([]*model.RescheduleRequest, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.RescheduleRequest, error)
}

type ProviderCapacityRepository interface {
	// Get returns ErrNotFound when no capacity override exists.
	Get(ctx context.Context, providerID uuid.UUID) (*model.ProviderCapacity, error)
	Upsert(ctx context.Context, cap *model.ProviderCapacity) error
}

// DirectoryRepository reads identity/intake records owned by other
// subsystems. Strictly read-only projections.
type DirectoryRepository interface {
	GetPet(ctx context.Context, id uuid.UUID) (*model.Pet, error)
	GetUserContact(ctx context.Context, id uuid.UUID) (*model.UserContact, error)
}

type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
}
