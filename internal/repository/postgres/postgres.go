// Package postgres implements the booking repositories over sqlx/lib/pq.
//
// Transactionality: Store.RunInTx opens a transaction and threads it through
// the context; every repository method joins the ambient transaction when one
// is present. FOR UPDATE reads inside a transaction serialize concurrent
// work on the same slot-lock or reschedule-request row, and the unique
// constraint on appointments.start_at backstops double-booking races.
package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sacrapods/nutrivet-api/internal/repository"
)

type txKey struct{}

// querier is the query surface shared by *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Store owns the database handle and the transaction runner.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// q returns the ambient transaction if the context carries one, else the
// plain connection pool.
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

// RunInTx executes fn within a transaction. Nested calls join the existing
// transaction instead of opening a second one.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

type settingsRepository struct{ store *Store }

type appointmentRepository struct{ store *Store }

type slotLockRepository struct{ store *Store }

type blockedRepository struct{ store *Store }

type rescheduleRequestRepository struct{ store *Store }

type providerCapacityRepository struct{ store *Store }

type directoryRepository struct{ store *Store }

type auditRepository struct{ store *Store }

func NewSettingsRepository(store *Store) repository.SettingsRepository {
	return &settingsRepository{store: store}
}

func NewAppointmentRepository(store *Store) repository.AppointmentRepository {
	return &appointmentRepository{store: store}
}

func NewSlotLockRepository(store *Store) repository.SlotLockRepository {
	return &slotLockRepository{store: store}
}

func NewBlockedRepository(store *Store) repository.BlockedRepository {
	return &blockedRepository{store: store}
}

func NewRescheduleRequestRepository(store *Store) repository.RescheduleRequestRepository {
	return &rescheduleRequestRepository{store: store}
}

func NewProviderCapacityRepository(store *Store) repository.ProviderCapacityRepository {
	return &providerCapacityRepository{store: store}
}

func NewDirectoryRepository(store *Store) repository.DirectoryRepository {
	return &directoryRepository{store: store}
}

func NewAuditRepository(store *Store) repository.AuditRepository {
	return &auditRepository{store: store}
}
