package repository

import (
	"context"

	"ticketCountManagement/internal/db"
)

// Store bundles every repository over one database handle. It is built once
// at startup and passed to the services and handlers that need it.
type Store struct {
	Users       UserRepositoryI
	Units       UnitRepositoryI
	Counts      CountRepositoryI
	Locks       LockRepositoryI
	Sessions    SessionRepositoryI
	Maintenance MaintenanceRepositoryI

	db *db.Handle
}

func NewStore(h *db.Handle) *Store {
	return &Store{
		Users:       NewUserRepository(h),
		Units:       NewUnitRepository(h),
		Counts:      NewCountRepository(h),
		Locks:       NewLockRepository(h),
		Sessions:    NewSessionRepository(h),
		Maintenance: NewMaintenanceRepository(h),
		db:          h,
	}
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Dialect reports the backend of the store.
func (s *Store) Dialect() db.Dialect {
	return s.db.Dialect
}
