package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
)

// --- settings ---

type SettingsRepo struct{ s *Store }

func NewSettingsRepo(s *Store) *SettingsRepo { return &SettingsRepo{s: s} }

func (r *SettingsRepo) Get(ctx context.Context) (*model.BookingSettings, error) {
	defer r.s.acquire(ctx)()
	if r.s.settings == nil {
		r.s.settings = model.DefaultBookingSettings()
		r.s.settings.UpdatedAt = time.Now().UTC()
	}
	return cloneValue(r.s.settings), nil
}

func (r *SettingsRepo) Save(ctx context.Context, settings *model.BookingSettings) error {
	defer r.s.acquire(ctx)()
	settings.UpdatedAt = time.Now().UTC()
	r.s.settings = cloneValue(settings)
	return nil
}

// --- appointments ---

type AppointmentRepo struct{ s *Store }

func NewAppointmentRepo(s *Store) *AppointmentRepo { return &AppointmentRepo{s: s} }

func (r *AppointmentRepo) Create(ctx context.Context, appt *model.Appointment) error {
	defer r.s.acquire(ctx)()
	for _, existing := range r.s.appointments {
		if existing.StartAt.Equal(appt.StartAt) {
			return repository.ErrDuplicateStart
		}
	}
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	appt.CreatedAt = time.Now().UTC()
	appt.UpdatedAt = appt.CreatedAt
	r.s.appointments[appt.ID] = cloneValue(appt)
	return nil
}

func (r *AppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	defer r.s.acquire(ctx)()
	appt, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneValue(appt), nil
}

func (r *AppointmentRepo) Update(ctx context.Context, appt *model.Appointment) error {
	defer r.s.acquire(ctx)()
	if _, ok := r.s.appointments[appt.ID]; !ok {
		return repository.ErrNotFound
	}
	appt.UpdatedAt = time.Now().UTC()
	r.s.appointments[appt.ID] = cloneValue(appt)
	return nil
}

func (r *AppointmentRepo) CountInWindow(ctx context.Context, start, end time.Time, excludeID uuid.UUID) (int, error) {
	defer r.s.acquire(ctx)()
	count := 0
	for _, appt := range r.s.appointments {
		if appt.ID == excludeID || !model.IsCountable(appt.Status) {
			continue
		}
		if !appt.StartAt.Before(start) && appt.StartAt.Before(end) {
			count++
		}
	}
	return count, nil
}

func (r *AppointmentRepo) AnyOverlapping(ctx context.Context, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	defer r.s.acquire(ctx)()
	for _, appt := range r.s.appointments {
		if appt.ID == excludeID || !model.IsBlocking(appt.Status) {
			continue
		}
		if appt.StartAt.Before(end) && appt.EndAt.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *AppointmentRepo) CountForProvider(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (int, error) {
	defer r.s.acquire(ctx)()
	count := 0
	for _, appt := range r.s.appointments {
		if appt.ID == excludeID || appt.ProviderID == nil || *appt.ProviderID != providerID {
			continue
		}
		if !model.IsCountable(appt.Status) {
			continue
		}
		if !appt.StartAt.Before(start) && appt.StartAt.Before(end) {
			count++
		}
	}
	return count, nil
}

func (r *AppointmentRepo) HasFollowUpOf(ctx context.Context, id uuid.UUID) (bool, error) {
	defer r.s.acquire(ctx)()
	for _, appt := range r.s.appointments {
		if appt.FollowUpOf != nil && *appt.FollowUpOf == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *AppointmentRepo) ListBetween(ctx context.Context, start, end time.Time) ([]*model.Appointment, error) {
	defer r.s.acquire(ctx)()
	var out []*model.Appointment
	for _, appt := range r.s.appointments {
		if !appt.StartAt.Before(start) && appt.StartAt.Before(end) {
			out = append(out, cloneValue(appt))
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *AppointmentRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	defer r.s.acquire(ctx)()
	var out []*model.Appointment
	for _, appt := range r.s.appointments {
		if appt.UserID == userID {
			out = append(out, cloneValue(appt))
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *AppointmentRepo) ListDueForReminder(ctx context.Context, kind string, start, end time.Time) ([]*model.Appointment, error) {
	defer r.s.acquire(ctx)()
	var out []*model.Appointment
	for _, appt := range r.s.appointments {
		if !model.IsCountable(appt.Status) {
			continue
		}
		if appt.StartAt.Before(start) || !appt.StartAt.Before(end) {
			continue
		}
		sent := appt.Reminder24hAt
		if kind == "1h" {
			sent = appt.Reminder1hAt
		}
		if sent == nil {
			out = append(out, cloneValue(appt))
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *AppointmentRepo) MarkReminderSent(ctx context.Context, id uuid.UUID, kind string, at time.Time) error {
	defer r.s.acquire(ctx)()
	appt, ok := r.s.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	stamp := at
	if kind == "1h" {
		appt.Reminder1hAt = &stamp
	} else {
		appt.Reminder24hAt = &stamp
	}
	return nil
}

func sortByStart(appts []*model.Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		return appts[i].StartAt.Before(appts[j].StartAt)
	})
}

// --- slot locks ---

type SlotLockRepo struct{ s *Store }

func NewSlotLockRepo(s *Store) *SlotLockRepo { return &SlotLockRepo{s: s} }

func (r *SlotLockRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	defer r.s.acquire(ctx)()
	n := 0
	for id, lock := range r.s.locks {
		if lock.ExpiresAt.Before(now) {
			delete(r.s.locks, id)
			n++
		}
	}
	return n, nil
}

func (r *SlotLockRepo) GetBySlotForUpdate(ctx context.Context, slotStart time.Time) (*model.SlotLock, error) {
	defer r.s.acquire(ctx)()
	for _, lock := range r.s.locks {
		if lock.SlotStartAt.Equal(slotStart) {
			return cloneValue(lock), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *SlotLockRepo) GetByTokenForUpdate(ctx context.Context, token, userID uuid.UUID) (*model.SlotLock, error) {
	defer r.s.acquire(ctx)()
	for _, lock := range r.s.locks {
		if lock.Token == token && lock.UserID == userID {
			return cloneValue(lock), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *SlotLockRepo) ActiveOnSlot(ctx context.Context, slotStart, now time.Time) (*model.SlotLock, error) {
	defer r.s.acquire(ctx)()
	for _, lock := range r.s.locks {
		if lock.SlotStartAt.Equal(slotStart) && lock.ExpiresAt.After(now) {
			return cloneValue(lock), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *SlotLockRepo) Create(ctx context.Context, lock *model.SlotLock) error {
	defer r.s.acquire(ctx)()
	if lock.ID == uuid.Nil {
		lock.ID = uuid.New()
	}
	if lock.Token == uuid.Nil {
		lock.Token = uuid.New()
	}
	lock.CreatedAt = time.Now().UTC()
	r.s.locks[lock.ID] = cloneValue(lock)
	return nil
}

func (r *SlotLockRepo) UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	defer r.s.acquire(ctx)()
	lock, ok := r.s.locks[id]
	if !ok {
		return repository.ErrNotFound
	}
	lock.ExpiresAt = expiresAt
	return nil
}

func (r *SlotLockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.acquire(ctx)()
	delete(r.s.locks, id)
	return nil
}

// --- blocked dates and slots ---

type BlockedRepo struct{ s *Store }

func NewBlockedRepo(s *Store) *BlockedRepo { return &BlockedRepo{s: s} }

func (r *BlockedRepo) IsDateBlocked(ctx context.Context, localDate time.Time) (bool, error) {
	defer r.s.acquire(ctx)()
	_, ok := r.s.blockedDates[localDate.Format(dateKeyLayout)]
	return ok, nil
}

func (r *BlockedRepo) IsSlotBlocked(ctx context.Context, startAt time.Time) (bool, error) {
	defer r.s.acquire(ctx)()
	_, ok := r.s.blockedSlots[startAt.UnixNano()]
	return ok, nil
}

func (r *BlockedRepo) CreateDate(ctx context.Context, b *model.BlockedDate) (bool, error) {
	defer r.s.acquire(ctx)()
	key := b.Date.Format(dateKeyLayout)
	if _, ok := r.s.blockedDates[key]; ok {
		return false, nil
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now().UTC()
	r.s.blockedDates[key] = cloneValue(b)
	return true, nil
}

func (r *BlockedRepo) DeleteDate(ctx context.Context, localDate time.Time) error {
	defer r.s.acquire(ctx)()
	delete(r.s.blockedDates, localDate.Format(dateKeyLayout))
	return nil
}

func (r *BlockedRepo) ListDates(ctx context.Context) ([]*model.BlockedDate, error) {
	defer r.s.acquire(ctx)()
	var out []*model.BlockedDate
	for _, b := range r.s.blockedDates {
		out = append(out, cloneValue(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *BlockedRepo) CreateSlot(ctx context.Context, b *model.BlockedTimeSlot) (bool, error) {
	defer r.s.acquire(ctx)()
	key := b.StartAt.UnixNano()
	if _, ok := r.s.blockedSlots[key]; ok {
		return false, nil
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now().UTC()
	r.s.blockedSlots[key] = cloneValue(b)
	return true, nil
}

func (r *BlockedRepo) DeleteSlot(ctx context.Context, startAt time.Time) error {
	defer r.s.acquire(ctx)()
	delete(r.s.blockedSlots, startAt.UnixNano())
	return nil
}

func (r *BlockedRepo) ListSlots(ctx context.Context) ([]*model.BlockedTimeSlot, error) {
	defer r.s.acquire(ctx)()
	var out []*model.BlockedTimeSlot
	for _, b := range r.s.blockedSlots {
		out = append(out, cloneValue(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

// --- reschedule requests ---

type RescheduleRepo struct{ s *Store }

func NewRescheduleRepo(s *Store) *RescheduleRepo { return &RescheduleRepo{s: s} }

func (r *RescheduleRepo) Create(ctx context.Context, req *model.RescheduleRequest) error {
	defer r.s.acquire(ctx)()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = time.Now().UTC()
	r.s.requests[req.ID] = cloneValue(req)
	return nil
}

func (r *RescheduleRepo) Get(ctx context.Context, id uuid.UUID) (*model.RescheduleRequest, error) {
	defer r.s.acquire(ctx)()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneValue(req), nil
}

func (r *RescheduleRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.RescheduleRequest, error) {
	return r.Get(ctx, id)
}

func (r *RescheduleRepo) Update(ctx context.Context, req *model.RescheduleRequest) error {
	defer r.s.acquire(ctx)()
	if _, ok := r.s.requests[req.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.requests[req.ID] = cloneValue(req)
	return nil
}

func (r *RescheduleRepo) HasAnyForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	defer r.s.acquire(ctx)()
	for _, req := range r.s.requests {
		if req.AppointmentID == appointmentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *RescheduleRepo) ListPending(ctx context.Context) ([]*model.RescheduleRequest, error) {
	defer r.s.acquire(ctx)()
	var out []*model.RescheduleRequest
	for _, req := range r.s.requests {
		if req.Status == model.RescheduleStatusPending {
			out = append(out, cloneValue(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *RescheduleRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.RescheduleRequest, error) {
	defer r.s.acquire(ctx)()
	var out []*model.RescheduleRequest
	for _, req := range r.s.requests {
		if req.RequestedBy == userID {
			out = append(out, cloneValue(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- provider capacity ---

type ProviderCapacityRepo struct{ s *Store }

func NewProviderCapacityRepo(s *Store) *ProviderCapacityRepo { return &ProviderCapacityRepo{s: s} }

func (r *ProviderCapacityRepo) Get(ctx context.Context, providerID uuid.UUID) (*model.ProviderCapacity, error) {
	defer r.s.acquire(ctx)()
	c, ok := r.s.capacities[providerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneValue(c), nil
}

func (r *ProviderCapacityRepo) Upsert(ctx context.Context, c *model.ProviderCapacity) error {
	defer r.s.acquire(ctx)()
	c.UpdatedAt = time.Now().UTC()
	r.s.capacities[c.ProviderID] = cloneValue(c)
	return nil
}

// --- directory ---

type DirectoryRepo struct{ s *Store }

func NewDirectoryRepo(s *Store) *DirectoryRepo { return &DirectoryRepo{s: s} }

func (r *DirectoryRepo) GetPet(ctx context.Context, id uuid.UUID) (*model.Pet, error) {
	defer r.s.acquire(ctx)()
	pet, ok := r.s.pets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneValue(pet), nil
}

func (r *DirectoryRepo) GetUserContact(ctx context.Context, id uuid.UUID) (*model.UserContact, error) {
	defer r.s.acquire(ctx)()
	contact, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneValue(contact), nil
}

// --- audit ---

type AuditRepo struct{ s *Store }

func NewAuditRepo(s *Store) *AuditRepo { return &AuditRepo{s: s} }

func (r *AuditRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	defer r.s.acquire(ctx)()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now().UTC()
	r.s.audits = append(r.s.audits, cloneValue(entry))
	return nil
}
