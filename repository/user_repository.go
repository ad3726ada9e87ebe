package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ticketCountManagement/internal/catalog"
	"ticketCountManagement/internal/db"
	"ticketCountManagement/models"
)

type UserRepository struct {
	db *db.Handle
}

func NewUserRepository(h *db.Handle) *UserRepository {
	return &UserRepository{db: h}
}

const userColumns = `id, username, COALESCE(password_hash, ''), COALESCE(role, ''), unit_id`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var role string
	var unitID sql.NullInt64
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &unitID); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	if unitID.Valid {
		v := unitID.Int64
		u.UnitID = &v
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE username = ?`), username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// List returns every user ordered by id, with the name of its unit when it has one.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
SELECT u.id, u.username, COALESCE(u.role, ''), u.unit_id, COALESCE(units.name, '')
FROM users u
LEFT JOIN units ON units.id = u.unit_id
ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		var u models.User
		var role string
		var unitID sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Username, &role, &unitID, &u.UnitName); err != nil {
			return nil, err
		}
		u.Role = models.Role(role)
		if unitID.Valid {
			v := unitID.Int64
			u.UnitID = &v
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateEditor inserts an editor bound to unitID.
// Fails with ErrUsernameTaken when the username exists and with
// ErrRuralEditorExists when unitID is the rural unit and it already has a user.
// The pre-insert checks give the common case its error; the unique indexes
// decide concurrent inserts.
func (r *UserRepository) CreateEditor(ctx context.Context, username, passwordHash string, unitID int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	var id int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, r.db.Rebind(`SELECT COUNT(*) FROM users WHERE username = ?`), username).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return ErrUsernameTaken
		}
		if catalog.IsRural(unitID) {
			c, err := countByUnit(ctx, r.db, tx, unitID)
			if err != nil {
				return err
			}
			if c > 0 {
				return ErrRuralEditorExists
			}
		}
		return tx.QueryRowContext(ctx,
			r.db.Rebind(`INSERT INTO users (username, password_hash, role, unit_id) VALUES (?, ?, ?, ?) RETURNING id`),
			username, passwordHash, string(models.RoleEditor), unitID).Scan(&id)
	})
	if err != nil {
		return nil, editorInsertError(err)
	}
	uid := unitID
	return &models.User{ID: id, Username: username, PasswordHash: passwordHash, Role: models.RoleEditor, UnitID: &uid}, nil
}

// EnsureAdmin creates the admin account when no user with that username exists.
// It reports whether a row was inserted.
func (r *UserRepository) EnsureAdmin(ctx context.Context, admin *models.Admin) (bool, error) {
	if admin == nil {
		return false, errors.New("admin is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO users (username, password_hash, role, unit_id) VALUES (?, ?, ?, NULL) ON CONFLICT (username) DO NOTHING`),
		admin.Username, admin.PasswordHash, string(models.RoleAdmin))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdatePassword replaces the password hash of a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET password_hash = ? WHERE id = ?`), passwordHash, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// Delete removes a non-admin user and its sessions. Deleting a missing user is
// a no-op; deleting an admin returns ErrAdminUndeletable and changes nothing.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var role sql.NullString
		err := tx.QueryRowContext(ctx, r.db.Rebind(`SELECT role FROM users WHERE id = ?`), id).Scan(&role)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if role.String == string(models.RoleAdmin) {
			return ErrAdminUndeletable
		}
		if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE user_id = ?`), id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ? AND (role IS NULL OR role <> ?)`), id, string(models.RoleAdmin))
		return err
	})
}

// CountByUnit returns how many users are bound to unitID.
func (r *UserRepository) CountByUnit(ctx context.Context, unitID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()
	return countByUnit(ctx, r.db, r.db, unitID)
}

func countByUnit(ctx context.Context, h *db.Handle, q execer, unitID int64) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, h.Rebind(`SELECT COUNT(*) FROM users WHERE unit_id = ?`), unitID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users by unit: %w", err)
	}
	return n, nil
}
