// Package migrate copies a sqlite database into postgres.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"ticketCountManagement/internal/db"
)

// Report counts the source rows handed to the target per table.
type Report struct {
	Units  int
	Users  int
	Counts int
	Locks  int
}

func (r Report) String() string {
	return fmt.Sprintf("units=%d users=%d counts=%d locks=%d", r.Units, r.Users, r.Counts, r.Locks)
}

type unitRow struct {
	id     int64
	areaID sql.NullInt64
	name   sql.NullString
}

type userRow struct {
	id           int64
	username     sql.NullString
	passwordHash sql.NullString
	role         sql.NullString
	unitID       sql.NullInt64
}

type countRow struct {
	unitID     int64
	date       string
	manual     sql.NullInt64
	electronic sql.NullInt64
}

// Copy moves units, users, counts and locks from src into dst in one
// transaction, keeping ids. Units, users and locks already present in dst are
// left alone; counts overwrite the (unit, date) row. Sessions are not copied.
// Copy can be rerun safely.
func Copy(ctx context.Context, src, dst *db.Handle) (Report, error) {
	var rep Report
	units, err := readUnits(ctx, src)
	if err != nil {
		return rep, err
	}
	users, err := readUsers(ctx, src)
	if err != nil {
		return rep, err
	}
	counts, err := readCounts(ctx, src)
	if err != nil {
		return rep, err
	}
	locks, err := readLocks(ctx, src)
	if err != nil {
		return rep, err
	}

	tx, err := dst.BeginTx(ctx, nil)
	if err != nil {
		return rep, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = each(ctx, tx, dst.Rebind(`INSERT INTO units (id, area_id, name) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`), len(units), func(i int) []any {
		u := units[i]
		return []any{u.id, u.areaID, u.name}
	})
	if err != nil {
		return rep, fmt.Errorf("copy units: %w", err)
	}
	rep.Units = len(units)

	err = each(ctx, tx, dst.Rebind(`INSERT INTO users (id, username, password_hash, role, unit_id) VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`), len(users), func(i int) []any {
		u := users[i]
		return []any{u.id, u.username, u.passwordHash, u.role, u.unitID}
	})
	if err != nil {
		return rep, fmt.Errorf("copy users: %w", err)
	}
	rep.Users = len(users)

	err = each(ctx, tx, dst.Rebind(`INSERT INTO counts (unit_id, date, manual, electronic) VALUES (?, ?, ?, ?)
ON CONFLICT (unit_id, date) DO UPDATE SET manual = excluded.manual, electronic = excluded.electronic`), len(counts), func(i int) []any {
		c := counts[i]
		// NULL counts from old rows become 0
		return []any{c.unitID, c.date, c.manual.Int64, c.electronic.Int64}
	})
	if err != nil {
		return rep, fmt.Errorf("copy counts: %w", err)
	}
	rep.Counts = len(counts)

	err = each(ctx, tx, dst.Rebind(`INSERT INTO locks (date) VALUES (?) ON CONFLICT (date) DO NOTHING`), len(locks), func(i int) []any {
		return []any{locks[i]}
	})
	if err != nil {
		return rep, fmt.Errorf("copy locks: %w", err)
	}
	rep.Locks = len(locks)

	if dst.Dialect == db.Postgres {
		// explicit ids leave the serial behind
		if _, err := tx.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('users', 'id'), COALESCE((SELECT MAX(id) FROM users), 0) + 1, false)`); err != nil {
			return rep, fmt.Errorf("reset users sequence: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return rep, fmt.Errorf("commit: %w", err)
	}
	slog.Info("migration copied", "units", rep.Units, "users", rep.Users, "counts", rep.Counts, "locks", rep.Locks, "target", dst.Dialect.String())
	return rep, nil
}

func each(ctx context.Context, tx *sql.Tx, query string, n int, args func(int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return nil
}

func readCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}

func readUnits(ctx context.Context, h *db.Handle) ([]unitRow, error) {
	ctx, cancel := readCtx(ctx)
	defer cancel()
	rows, err := h.QueryContext(ctx, `SELECT id, area_id, name FROM units ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read units: %w", err)
	}
	defer rows.Close()
	var out []unitRow
	for rows.Next() {
		var u unitRow
		if err := rows.Scan(&u.id, &u.areaID, &u.name); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func readUsers(ctx context.Context, h *db.Handle) ([]userRow, error) {
	ctx, cancel := readCtx(ctx)
	defer cancel()
	rows, err := h.QueryContext(ctx, `SELECT id, username, password_hash, role, unit_id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	defer rows.Close()
	var out []userRow
	for rows.Next() {
		var u userRow
		if err := rows.Scan(&u.id, &u.username, &u.passwordHash, &u.role, &u.unitID); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func readCounts(ctx context.Context, h *db.Handle) ([]countRow, error) {
	ctx, cancel := readCtx(ctx)
	defer cancel()
	rows, err := h.QueryContext(ctx, `SELECT unit_id, date, manual, electronic FROM counts ORDER BY unit_id, date`)
	if err != nil {
		return nil, fmt.Errorf("read counts: %w", err)
	}
	defer rows.Close()
	var out []countRow
	for rows.Next() {
		var c countRow
		if err := rows.Scan(&c.unitID, &c.date, &c.manual, &c.electronic); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func readLocks(ctx context.Context, h *db.Handle) ([]string, error) {
	ctx, cancel := readCtx(ctx)
	defer cancel()
	rows, err := h.QueryContext(ctx, `SELECT date FROM locks ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("read locks: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan lock: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
