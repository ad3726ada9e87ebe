package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ticketCountManagement/internal/calendar"
	"ticketCountManagement/internal/db"
	"ticketCountManagement/models"
)

// CountRepository stores the daily manual/electronic counts.
type CountRepository struct {
	db *db.Handle
}

func NewCountRepository(h *db.Handle) *CountRepository {
	return &CountRepository{db: h}
}

const upsertCountSQL = `
INSERT INTO counts (unit_id, date, manual, electronic) VALUES (?, ?, ?, ?)
ON CONFLICT (unit_id, date) DO UPDATE SET manual = excluded.manual, electronic = excluded.electronic`

// ForMonth returns every count of month ym keyed by "unit_id|date".
func (r *CountRepository) ForMonth(ctx context.Context, ym string) (map[models.CountKey]models.Tally, error) {
	pattern, err := calendar.LikePattern(ym)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
SELECT unit_id, date, COALESCE(manual, 0), COALESCE(electronic, 0)
FROM counts WHERE date LIKE ?`), pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[models.CountKey]models.Tally{}
	for rows.Next() {
		var c models.Count
		if err := rows.Scan(&c.UnitID, &c.Date, &c.Manual, &c.Electronic); err != nil {
			return nil, err
		}
		out[models.NewCountKey(c.UnitID, c.Date)] = models.Tally{Manual: c.Manual, Electronic: c.Electronic}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ForUnitMonth returns the counts of one unit in month ym keyed by date.
func (r *CountRepository) ForUnitMonth(ctx context.Context, unitID int64, ym string) (map[string]models.Tally, error) {
	pattern, err := calendar.LikePattern(ym)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
SELECT date, COALESCE(manual, 0), COALESCE(electronic, 0)
FROM counts WHERE unit_id = ? AND date LIKE ?`), unitID, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]models.Tally{}
	for rows.Next() {
		var date string
		var t models.Tally
		if err := rows.Scan(&date, &t.Manual, &t.Electronic); err != nil {
			return nil, err
		}
		out[date] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert stores the count for (unitID, date), replacing any previous values.
func (r *CountRepository) Upsert(ctx context.Context, unitID int64, date string, manual, electronic int64) error {
	if err := validateCount(models.Count{UnitID: unitID, Date: date, Manual: manual, Electronic: electronic}); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(upsertCountSQL), unitID, date, manual, electronic)
	return err
}

func validateCount(c models.Count) error {
	if err := calendar.ValidDate(c.Date); err != nil {
		return err
	}
	if c.Manual < 0 || c.Electronic < 0 {
		return ErrNegativeCount
	}
	if c.Manual > models.MaxCount || c.Electronic > models.MaxCount {
		return ErrCountTooLarge
	}
	return nil
}

// UpsertUnlocked stores counts whose date is not locked, checking the lock
// table inside the same transaction. It returns how many rows were written
// and how many were skipped because their date was locked.
func (r *CountRepository) UpsertUnlocked(ctx context.Context, counts []models.Count) (saved, skipped int, err error) {
	for _, c := range counts {
		if err := validateCount(c); err != nil {
			return 0, 0, err
		}
	}
	if len(counts) == 0 {
		return 0, 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, bulkTimeout)
	defer cancel()

	lockedQ := r.db.Rebind(`SELECT COUNT(*) FROM locks WHERE date = ?`)
	upsertQ := r.db.Rebind(upsertCountSQL)
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		locked := map[string]bool{}
		for _, c := range counts {
			if _, seen := locked[c.Date]; seen {
				continue
			}
			var n int
			if err := tx.QueryRowContext(ctx, lockedQ, c.Date).Scan(&n); err != nil {
				return err
			}
			locked[c.Date] = n > 0
		}
		saved, skipped = 0, 0
		for _, c := range counts {
			if locked[c.Date] {
				skipped++
				continue
			}
			if _, err := tx.ExecContext(ctx, upsertQ, c.UnitID, c.Date, c.Manual, c.Electronic); err != nil {
				return fmt.Errorf("upsert %d %s: %w", c.UnitID, c.Date, err)
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return saved, skipped, nil
}
