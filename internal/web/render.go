package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"ticketCountManagement/internal/auth"
	"ticketCountManagement/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = []string{"login.html", "admin.html", "admin_locks.html", "admin_users.html", "editor.html"}

var funcs = template.FuncMap{
	"tally": func(counts map[models.CountKey]models.Tally, unitID int64, iso string) models.Tally {
		return counts[models.NewCountKey(unitID, iso)]
	},
}

// parseTemplates builds one template set per page, each combined with the layout.
func parseTemplates() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		out[page] = t
	}
	return out, nil
}

type pageData struct {
	Title     string
	Principal *auth.Principal
	CSRFField template.HTML
	Error     string
	Notice    string
	Data      any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, page, title string, data any) {
	t, ok := s.templates[page]
	if !ok {
		internalError(w, r, fmt.Errorf("unknown template %s", page))
		return
	}
	pd := pageData{
		Title:     title,
		CSRFField: csrf.TemplateField(r),
		Error:     r.URL.Query().Get("error"),
		Data:      data,
	}
	if p, ok := auth.FromContext(r.Context()); ok {
		pd.Principal = &p
	}
	if e, ok := data.(interface{ pageError() string }); ok && e.pageError() != "" {
		pd.Error = e.pageError()
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, pd); err != nil {
		internalError(w, r, fmt.Errorf("render %s: %w", page, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("write response", "request_id", requestID(r.Context()), "error", err)
	}
}
