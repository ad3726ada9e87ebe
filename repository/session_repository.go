package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ticketCountManagement/internal/db"
	"ticketCountManagement/models"
)

// SessionRepository persists login sessions. Expiry is stored as unix seconds.
type SessionRepository struct {
	db *db.Handle
}

func NewSessionRepository(h *db.Handle) *SessionRepository {
	return &SessionRepository{db: h}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	if s == nil {
		return errors.New("session is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)`),
		s.ID, s.UserID, s.ExpiresAt.Unix())
	return err
}

// Lookup returns the session with its user. Missing and expired sessions
// yield (nil, nil, nil).
func (r *SessionRepository) Lookup(ctx context.Context, id string, now time.Time) (*models.Session, *models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, r.db.Rebind(`
SELECT s.id, s.user_id, s.expires_at,
       u.id, u.username, COALESCE(u.password_hash, ''), COALESCE(u.role, ''), u.unit_id
FROM sessions s
JOIN users u ON u.id = s.user_id
WHERE s.id = ? AND s.expires_at > ?`), id, now.Unix())

	var s models.Session
	var expires int64
	var u models.User
	var role string
	var unitID sql.NullInt64
	err := row.Scan(&s.ID, &s.UserID, &expires,
		&u.ID, &u.Username, &u.PasswordHash, &role, &unitID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	s.ExpiresAt = time.Unix(expires, 0)
	u.Role = models.Role(role)
	if unitID.Valid {
		v := unitID.Int64
		u.UnitID = &v
	}
	return &s, &u, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
	return err
}

// DeleteForUser ends every session of a user.
func (r *SessionRepository) DeleteForUser(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE user_id = ?`), userID)
	return err
}

// DeleteExpired removes sessions that expired at or before now and returns how many.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
