package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ticketCountManagement/internal/auth"
)

const msgInvalidLogin = "Usuario o contraseña inválidos"

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, p.HomePath(), http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginPage struct{ err string }

func (l loginPage) pageError() string { return l.err }

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.FromContext(r.Context()); ok {
		http.Redirect(w, r, p.HomePath(), http.StatusSeeOther)
		return
	}
	s.render(w, r, "login.html", "Ingresar", loginPage{})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// readCredentials accepts a JSON or form encoded body.
func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if isJSONBody(r) {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		err := dec.Decode(&c)
		return c, err
	}
	if err := r.ParseForm(); err != nil {
		return c, err
	}
	c.Username = r.PostForm.Get("username")
	c.Password = r.PostForm.Get("password")
	return c, nil
}

// handleLogin serves the browser login form. Programmatic clients use
// /api/token instead, which carries no cookie and needs no csrf token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	u, err := s.sessions.Authenticate(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			internalError(w, r, err)
			return
		}
		slog.Info("login failed", "request_id", requestID(r.Context()), "username", username)
		s.render(w, r, "login.html", "Ingresar", loginPage{err: msgInvalidLogin})
		return
	}
	if _, err := s.sessions.Start(r.Context(), w, u); err != nil {
		internalError(w, r, err)
		return
	}
	slog.Info("login", "request_id", requestID(r.Context()), "user_id", u.ID, "role", u.Role)
	http.Redirect(w, r, auth.PrincipalFromUser(u).HomePath(), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.End(r.Context(), w, r); err != nil {
		slog.Warn("logout", "request_id", requestID(r.Context()), "error", err)
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleToken exchanges credentials for a bearer token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := s.sessions.Authenticate(r.Context(), c.Username, c.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, msgInvalidLogin)
			return
		}
		internalError(w, r, err)
		return
	}
	now := s.now()
	tok, err := auth.IssueToken(auth.PrincipalFromUser(u), s.secret, s.tokenTTL, now)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"token_type": "Bearer",
		"expires_at": now.Add(s.tokenTTL).UTC().Format("2006-01-02T15:04:05Z"),
	})
}
