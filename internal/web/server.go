// Package web serves the browser forms and the JSON API.
package web

import (
	"crypto/sha256"
	"errors"
	"html/template"
	"net/http"
	"time"

	"ticketCountManagement/internal/auth"
	"ticketCountManagement/internal/catalog"
	"ticketCountManagement/internal/entry"
	"ticketCountManagement/models"
	"ticketCountManagement/repository"
)

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Store         *repository.Store
	Catalog       *catalog.Catalog
	Sessions      *auth.Manager
	Entries       *entry.Service
	SessionSecret string
	TokenTTL      time.Duration
	SecureCookies bool
	// TrustedOrigins are extra hosts accepted by the HTTPS origin check.
	TrustedOrigins []string
}

// Server holds the handlers and their dependencies.
type Server struct {
	store     *repository.Store
	catalog   *catalog.Catalog
	sessions  *auth.Manager
	entries   *entry.Service
	secret    string
	tokenTTL  time.Duration
	secure    bool
	origins   []string
	templates map[string]*template.Template
	now       func() time.Time
}

// NewServer validates deps and parses the templates.
func NewServer(d Deps) (*Server, error) {
	if d.Store == nil || d.Catalog == nil || d.Sessions == nil || d.Entries == nil {
		return nil, errors.New("web: missing dependency")
	}
	if d.SessionSecret == "" {
		return nil, errors.New("web: session secret is empty")
	}
	tpls, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	ttl := d.TokenTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Server{
		store:     d.Store,
		catalog:   d.Catalog,
		sessions:  d.Sessions,
		entries:   d.Entries,
		secret:    d.SessionSecret,
		tokenTTL:  ttl,
		secure:    d.SecureCookies,
		origins:   d.TrustedOrigins,
		templates: tpls,
		now:       time.Now,
	}, nil
}

// Handler returns the full middleware chain around the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /api/token", s.handleToken)

	admin := func(h http.HandlerFunc) http.HandlerFunc { return requireRole(models.RoleAdmin, h) }
	mux.HandleFunc("GET /admin", admin(s.handleAdmin))
	mux.HandleFunc("GET /admin/locks", admin(s.handleLocks))
	mux.HandleFunc("GET /admin/locks/{$}", admin(s.handleLocks))
	mux.HandleFunc("GET /admin/export", admin(s.handleExport))
	mux.HandleFunc("GET /admin/users", admin(s.handleUsers))
	mux.HandleFunc("POST /admin/users", admin(s.handleCreateUser))
	mux.HandleFunc("POST /admin/users/update", admin(s.handleUpdatePassword))
	mux.HandleFunc("POST /admin/users/delete/{id}", admin(s.handleDeleteUser))
	mux.HandleFunc("POST /admin/lock/{date}", admin(s.handleLockDate))
	mux.HandleFunc("POST /admin/unlock/{date}", admin(s.handleUnlockDate))
	mux.HandleFunc("POST /admin/lock-month/{ym}", admin(s.handleLockMonth))
	mux.HandleFunc("POST /admin/unlock-month/{ym}", admin(s.handleUnlockMonth))
	mux.HandleFunc("POST /admin/reset", admin(s.handleReset))

	editor := func(h http.HandlerFunc) http.HandlerFunc { return requireRole(models.RoleEditor, h) }
	mux.HandleFunc("GET /editor", editor(s.handleEditor))
	mux.HandleFunc("POST /editor/save", editor(s.handleSave))

	csrfKey := sha256.Sum256([]byte("csrf:" + s.secret))
	return withLogging(withCSRF(csrfKey[:], s.secure, s.origins, s.identify(mux)))
}
