// Package memory is an in-process implementation of the booking repositories
// used by service tests. RunInTx holds a store-wide mutex for the duration of
// the callback and restores a snapshot on error, modeling the serializable
// transaction the postgres layer provides, including the unique start_at
// constraint.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/model"
)

type txKey struct{}

// Store holds all tables behind one mutex. Repository views over it are
// created with the New*Repo constructors.
type Store struct {
	mu sync.Mutex

	settings     *model.BookingSettings
	appointments map[uuid.UUID]*model.Appointment
	locks        map[uuid.UUID]*model.SlotLock
	blockedDates map[string]*model.BlockedDate
	blockedSlots map[int64]*model.BlockedTimeSlot
	requests     map[uuid.UUID]*model.RescheduleRequest
	capacities   map[uuid.UUID]*model.ProviderCapacity
	pets         map[uuid.UUID]*model.Pet
	users        map[uuid.UUID]*model.UserContact
	audits       []*model.AuditLog
}

func NewStore() *Store {
	return &Store{
		appointments: make(map[uuid.UUID]*model.Appointment),
		locks:        make(map[uuid.UUID]*model.SlotLock),
		blockedDates: make(map[string]*model.BlockedDate),
		blockedSlots: make(map[int64]*model.BlockedTimeSlot),
		requests:     make(map[uuid.UUID]*model.RescheduleRequest),
		capacities:   make(map[uuid.UUID]*model.ProviderCapacity),
		pets:         make(map[uuid.UUID]*model.Pet),
		users:        make(map[uuid.UUID]*model.UserContact),
	}
}

// acquire locks the store unless the context already runs inside RunInTx.
func (s *Store) acquire(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	settings     *model.BookingSettings
	appointments map[uuid.UUID]*model.Appointment
	locks        map[uuid.UUID]*model.SlotLock
	blockedDates map[string]*model.BlockedDate
	blockedSlots map[int64]*model.BlockedTimeSlot
	requests     map[uuid.UUID]*model.RescheduleRequest
	capacities   map[uuid.UUID]*model.ProviderCapacity
	audits       []*model.AuditLog
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		settings:     cloneValue(s.settings),
		appointments: cloneMap(s.appointments),
		locks:        cloneMap(s.locks),
		blockedDates: cloneMap(s.blockedDates),
		blockedSlots: cloneMap(s.blockedSlots),
		requests:     cloneMap(s.requests),
		capacities:   cloneMap(s.capacities),
		audits:       append([]*model.AuditLog(nil), s.audits...),
	}
}

func (s *Store) restore(snap snapshot) {
	s.settings = snap.settings
	s.appointments = snap.appointments
	s.locks = snap.locks
	s.blockedDates = snap.blockedDates
	s.blockedSlots = snap.blockedSlots
	s.requests = snap.requests
	s.capacities = snap.capacities
	s.audits = snap.audits
}

func cloneMap[K comparable, V any](m map[K]*V) map[K]*V {
	out := make(map[K]*V, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue[V any](v *V) *V {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

const dateKeyLayout = "2006-01-02"

// Seed helpers for tests.

func (s *Store) AddPet(pet *model.Pet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pets[pet.ID] = cloneValue(pet)
}

func (s *Store) AddUser(contact *model.UserContact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[contact.ID] = cloneValue(contact)
}

// Audits returns a copy of the audit trail, for assertions.
func (s *Store) Audits() []*model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.AuditLog(nil), s.audits...)
}
