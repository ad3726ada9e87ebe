package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"

	"ticketCountManagement/internal/auth"
	"ticketCountManagement/models"
)

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging tags every request with an id and logs its outcome.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		slog.Info("request completed",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// withCSRF protects cookie-authenticated requests. Bearer requests and the
// token endpoint carry no ambient credentials and skip the check. Over HTTPS
// the Origin or Referer must match the host or one of origins; plain HTTP
// deployments (secure=false) only check the token.
func withCSRF(key []byte, secure bool, origins []string, next http.Handler) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.TrustedOrigins(origins),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slog.Warn("csrf rejected", "request_id", requestID(r.Context()), "path", r.URL.Path, "reason", csrf.FailureReason(r))
			if wantsJSON(r) {
				writeError(w, http.StatusForbidden, "invalid csrf token")
				return
			}
			http.Error(w, "invalid csrf token", http.StatusForbidden)
		})),
	)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.BearerToken(r.Header.Get("Authorization")); ok || strings.HasPrefix(r.URL.Path, "/api/") {
			r = csrf.UnsafeSkipCheck(r)
		}
		if !secure {
			r = csrf.PlaintextHTTPRequest(r)
		}
		protect.ServeHTTP(w, r)
	})
}

// identify resolves the caller from a bearer token or the session cookie
// and stores the principal in the request context.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok, err := s.principal(r)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if ok {
			r = r.WithContext(auth.WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) principal(r *http.Request) (auth.Principal, bool, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		tok, ok := auth.BearerToken(header)
		if !ok {
			return auth.Principal{}, false, nil
		}
		claimed, err := auth.ParseToken(tok, s.secret)
		if err != nil {
			return auth.Principal{}, false, nil
		}
		// the account may have changed since the token was issued
		u, err := s.store.Users.GetByID(r.Context(), claimed.UserID)
		if err != nil {
			return auth.Principal{}, false, err
		}
		if u == nil {
			return auth.Principal{}, false, nil
		}
		return auth.PrincipalFromUser(u), true, nil
	}
	return s.sessions.Load(r.Context(), r)
}

// requireRole lets through only callers holding role. Browsers are sent to
// the login page; programmatic callers get 401 or 403.
func requireRole(role models.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := auth.Authorize(r.Context(), role)
		if err == nil {
			next(w, r)
			return
		}
		if !wantsJSON(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if errors.Is(err, auth.ErrForbidden) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
}
