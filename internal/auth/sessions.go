package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ticketCountManagement/models"
	"ticketCountManagement/repository"
)

// SessionCookieName is the cookie holding the session id.
const SessionCookieName = "boletas_session"

// ErrInvalidCredentials is the single error for unknown users and wrong
// passwords so the two cannot be told apart.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Manager authenticates users and tracks their server-side sessions.
type Manager struct {
	users    repository.UserRepositoryI
	sessions repository.SessionRepositoryI
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

// NewManager builds a Manager. ttl bounds both the cookie and the stored session.
func NewManager(users repository.UserRepositoryI, sessions repository.SessionRepositoryI, ttl time.Duration, secure bool) *Manager {
	return &Manager{users: users, sessions: sessions, ttl: ttl, secure: secure, now: time.Now}
}

// Authenticate checks username and password.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := m.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		burnDummyHash(password)
		return nil, ErrInvalidCredentials
	}
	ok, err := VerifyPassword(password, u.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Start creates a session for u and sets the session cookie.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, u *models.User) (*models.Session, error) {
	id, err := randomToken(32)
	if err != nil {
		return nil, err
	}
	// expired rows are cleared here rather than on a timer
	if n, err := m.Sweep(ctx); err != nil {
		slog.Warn("session sweep", "error", err)
	} else if n > 0 {
		slog.Debug("session sweep", "removed", n)
	}
	s := &models.Session{ID: id, UserID: u.ID, ExpiresAt: m.now().Add(m.ttl)}
	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// Load resolves the session cookie of r. It returns ok=false when the
// request carries no live session.
func (m *Manager) Load(ctx context.Context, r *http.Request) (Principal, bool, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return Principal{}, false, nil
	}
	s, u, err := m.sessions.Lookup(ctx, c.Value, m.now())
	if err != nil {
		return Principal{}, false, err
	}
	if s == nil || u == nil {
		return Principal{}, false, nil
	}
	return PrincipalFromUser(u), true, nil
}

// End deletes the session of r and expires its cookie.
func (m *Manager) End(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var err error
	if c, cerr := r.Cookie(SessionCookieName); cerr == nil && c.Value != "" {
		err = m.sessions.Delete(ctx, c.Value)
	}
	expireSessionCookie(w, m.secure)
	return err
}

// EndAll deletes every session of the user, signing them out everywhere.
func (m *Manager) EndAll(ctx context.Context, userID int64) error {
	return m.sessions.DeleteForUser(ctx, userID)
}

// Sweep removes expired sessions.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx, m.now())
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

func expireSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
