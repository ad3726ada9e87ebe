package repository

import (
	"context"
	"database/sql"
	"errors"

	"ticketCountManagement/internal/db"
	"ticketCountManagement/models"
)

// UnitRepository reads the static unit reference data.
type UnitRepository struct {
	db *db.Handle
}

func NewUnitRepository(h *db.Handle) *UnitRepository {
	return &UnitRepository{db: h}
}

func (r *UnitRepository) GetByID(ctx context.Context, id int64) (*models.Unit, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	var u models.Unit
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT id, COALESCE(area_id, 0), COALESCE(name, '') FROM units WHERE id = ?`), id).
		Scan(&u.ID, &u.AreaID, &u.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// List returns all units ordered by area and id.
func (r *UnitRepository) List(ctx context.Context) ([]models.Unit, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT id, COALESCE(area_id, 0), COALESCE(name, '') FROM units ORDER BY area_id, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Unit
	for rows.Next() {
		var u models.Unit
		if err := rows.Scan(&u.ID, &u.AreaID, &u.Name); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Seed inserts the given units, leaving rows that already exist untouched.
func (r *UnitRepository) Seed(ctx context.Context, units []models.Unit) error {
	ctx, cancel := context.WithTimeout(ctx, bulkTimeout)
	defer cancel()

	q := r.db.Rebind(`INSERT INTO units (id, area_id, name) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`)
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, u := range units {
			if _, err := tx.ExecContext(ctx, q, u.ID, u.AreaID, u.Name); err != nil {
				return err
			}
		}
		return nil
	})
}
