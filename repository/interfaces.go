package repository

import (
	"context"
	"time"

	"ticketCountManagement/models"
)

// UserRepositoryI defines operations on User accounts.
type UserRepositoryI interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	CreateEditor(ctx context.Context, username, passwordHash string, unitID int64) (*models.User, error)
	EnsureAdmin(ctx context.Context, admin *models.Admin) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	CountByUnit(ctx context.Context, unitID int64) (int, error)
}

// UnitRepositoryI defines operations on the unit reference data.
type UnitRepositoryI interface {
	GetByID(ctx context.Context, id int64) (*models.Unit, error)
	List(ctx context.Context) ([]models.Unit, error)
	Seed(ctx context.Context, units []models.Unit) error
}

// CountRepositoryI defines operations on daily counts.
type CountRepositoryI interface {
	ForMonth(ctx context.Context, ym string) (map[models.CountKey]models.Tally, error)
	ForUnitMonth(ctx context.Context, unitID int64, ym string) (map[string]models.Tally, error)
	Upsert(ctx context.Context, unitID int64, date string, manual, electronic int64) error
	UpsertUnlocked(ctx context.Context, counts []models.Count) (saved, skipped int, err error)
}

// LockRepositoryI defines operations on date locks.
type LockRepositoryI interface {
	Lock(ctx context.Context, date string) error
	Unlock(ctx context.Context, date string) error
	IsLocked(ctx context.Context, date string) (bool, error)
	LockedDatesForMonth(ctx context.Context, ym string) ([]string, error)
	LockedSetForMonth(ctx context.Context, ym string) (map[string]bool, error)
	LockMonth(ctx context.Context, ym string) error
	UnlockMonth(ctx context.Context, ym string) error
}

// SessionRepositoryI defines operations on login sessions.
type SessionRepositoryI interface {
	Create(ctx context.Context, s *models.Session) error
	Lookup(ctx context.Context, id string, now time.Time) (*models.Session, *models.User, error)
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MaintenanceRepositoryI defines administrative bulk operations.
type MaintenanceRepositoryI interface {
	Reset(ctx context.Context) error
}

var (
	_ UserRepositoryI        = (*UserRepository)(nil)
	_ UnitRepositoryI        = (*UnitRepository)(nil)
	_ CountRepositoryI       = (*CountRepository)(nil)
	_ LockRepositoryI        = (*LockRepository)(nil)
	_ SessionRepositoryI     = (*SessionRepository)(nil)
	_ MaintenanceRepositoryI = (*MaintenanceRepository)(nil)
)
