package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"ticketCountManagement/internal/calendar"
	"ticketCountManagement/internal/db"
)

// LockRepository manages the set of read-only dates.
type LockRepository struct {
	db *db.Handle
}

func NewLockRepository(h *db.Handle) *LockRepository {
	return &LockRepository{db: h}
}

const (
	lockSQL   = `INSERT INTO locks (date) VALUES (?) ON CONFLICT (date) DO NOTHING`
	unlockSQL = `DELETE FROM locks WHERE date = ?`
)

// Lock marks date as read-only. Locking a locked date is a no-op.
func (r *LockRepository) Lock(ctx context.Context, date string) error {
	if err := calendar.ValidDate(date); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(lockSQL), date)
	return err
}

// Unlock makes date editable again. Unlocking an unlocked date is a no-op.
func (r *LockRepository) Unlock(ctx context.Context, date string) error {
	if err := calendar.ValidDate(date); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(unlockSQL), date)
	return err
}

func (r *LockRepository) IsLocked(ctx context.Context, date string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()
	var d string
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT date FROM locks WHERE date = ?`), date).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LockedDatesForMonth returns the locked dates of ym in ascending order.
func (r *LockRepository) LockedDatesForMonth(ctx context.Context, ym string) ([]string, error) {
	pattern, err := calendar.LikePattern(ym)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT date FROM locks WHERE date LIKE ?`), pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// LockedSetForMonth is LockedDatesForMonth as a lookup set.
func (r *LockRepository) LockedSetForMonth(ctx context.Context, ym string) (map[string]bool, error) {
	dates, err := r.LockedDatesForMonth(ctx, ym)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(dates))
	for _, d := range dates {
		set[d] = true
	}
	return set, nil
}

// LockMonth locks every day of ym in one transaction.
func (r *LockRepository) LockMonth(ctx context.Context, ym string) error {
	return r.applyMonth(ctx, ym, lockSQL)
}

// UnlockMonth unlocks every day of ym in one transaction.
func (r *LockRepository) UnlockMonth(ctx context.Context, ym string) error {
	return r.applyMonth(ctx, ym, unlockSQL)
}

func (r *LockRepository) applyMonth(ctx context.Context, ym, query string) error {
	days, err := calendar.DaysOfMonth(ym)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, bulkTimeout)
	defer cancel()

	q := r.db.Rebind(query)
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, d := range days {
			if _, err := tx.ExecContext(ctx, q, d.ISO); err != nil {
				return err
			}
		}
		return nil
	})
}
