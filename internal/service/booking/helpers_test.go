package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/clinictime"
	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository/memory"
	"github.com/sacrapods/nutrivet-api/internal/service/capacity"
	"github.com/sacrapods/nutrivet-api/pkg/logger"
	"github.com/sacrapods/nutrivet-api/pkg/metrics"
)

// Monday 2024-01-01 10:00 UTC (15:30 IST). Bookings in tests target the
// following Monday so every slot is comfortably past the reschedule cutoff.
var testNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

const (
	testDate     = "2024-01-08" // Monday
	testNextDate = "2024-01-09" // Tuesday
)

type capturedEvents struct {
	mu          sync.Mutex
	created     []*model.Appointment
	rescheduled []*model.Appointment
	followUps   []*model.Appointment
	decided     []*model.RescheduleRequest
}

func (n *capturedEvents) BookingCreated(_ context.Context, appt *model.Appointment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, appt)
}

func (n *capturedEvents) BookingRescheduled(_ context.Context, appt *model.Appointment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rescheduled = append(n.rescheduled, appt)
}

func (n *capturedEvents) FollowUpCreated(_ context.Context, appt *model.Appointment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.followUps = append(n.followUps, appt)
}

func (n *capturedEvents) RescheduleDecided(_ context.Context, req *model.RescheduleRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.decided = append(n.decided, req)
}

type fixture struct {
	service    *Service
	store      *memory.Store
	settings   *memory.SettingsRepo
	capacities *memory.ProviderCapacityRepo
	events     *capturedEvents
	clinic     *clinictime.Clinic
}

func newFixture() *fixture {
	store := memory.NewStore()
	clinic := clinictime.MustNew(clinictime.DefaultZone)
	events := &capturedEvents{}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel})
	settingsRepo := memory.NewSettingsRepo(store)
	appointmentRepo := memory.NewAppointmentRepo(store)
	capacityRepo := memory.NewProviderCapacityRepo(store)

	capacitySvc := capacity.NewService(
		store, appointmentRepo, capacityRepo, settingsRepo, clinic, log,
	).WithClock(func() time.Time { return testNow })

	svc := NewService(
		store,
		appointmentRepo,
		memory.NewSlotLockRepo(store),
		memory.NewBlockedRepo(store),
		memory.NewRescheduleRepo(store),
		memory.NewDirectoryRepo(store),
		capacitySvc,
		settingsRepo,
		clinic,
		events,
		metrics.NewUnregistered("test"),
		log,
	).WithClock(func() time.Time { return testNow })

	return &fixture{
		service:    svc,
		store:      store,
		settings:   settingsRepo,
		capacities: capacityRepo,
		events:     events,
		clinic:     clinic,
	}
}

func petParent() *model.Identity {
	return &model.Identity{ID: uuid.New(), Email: "parent@example.com", Roles: []string{model.RolePetParent}}
}

func staffMember() *model.Identity {
	return &model.Identity{ID: uuid.New(), Email: "vet@example.com", Roles: []string{model.RoleVet}}
}

// slotAt returns the UTC instant of hour:00 local time on testDate.
func (f *fixture) slotAt(date string, hour int) time.Time {
	day, err := f.clinic.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return f.clinic.At(day, hour, 0)
}

// ownedPet seeds a pet belonging to the given identity and returns its ID.
func (f *fixture) ownedPet(identity *model.Identity) uuid.UUID {
	pet := &model.Pet{ID: uuid.New(), OwnerID: identity.ID, Name: "Bruno", Species: "dog"}
	f.store.AddPet(pet)
	return pet.ID
}

// bookSlot acquires a lock and commits a booking for it.
func (f *fixture) bookSlot(identity *model.Identity, date, clock string) (*model.Appointment, error) {
	ctx := context.Background()
	lock, err := f.service.AcquireLock(ctx, identity, &model.LockSlotRequest{Date: date, Time: clock})
	if err != nil {
		return nil, err
	}
	return f.service.CreateFromLock(ctx, identity, &model.CreateBookingRequest{
		PetID:     f.ownedPet(identity),
		LockToken: lock.Token,
	})
}
