package web

import (
	"errors"
	"net/http"
	"net/url"

	"ticketCountManagement/internal/auth"
	"ticketCountManagement/internal/calendar"
	"ticketCountManagement/internal/catalog"
	"ticketCountManagement/internal/entry"
)

type editorPage struct {
	View  *entry.View
	Saved bool
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	v, err := s.entries.View(r.Context(), p, r.URL.Query().Get("month"))
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidMonth) {
			fail(w, r, http.StatusBadRequest, "/editor", msgInvalidMonth)
			return
		}
		internalError(w, r, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, v)
		return
	}
	s.render(w, r, "editor.html", v.Unit.Name, editorPage{View: v, Saved: r.URL.Query().Get("saved") != ""})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	// flat manual[date] keys belong to the editor's own unit; the rural
	// editor must name the member unit
	defaultUnit := p.UnitID
	if catalog.IsRural(p.UnitID) {
		defaultUnit = 0
	}

	var (
		f   *entry.Form
		err error
	)
	if isJSONBody(r) {
		f, err = entry.FromJSON(r.Body, defaultUnit)
	} else if err = r.ParseForm(); err == nil {
		f, err = entry.FromValues(r.PostForm, defaultUnit)
	}
	if err != nil {
		fail(w, r, http.StatusBadRequest, "/editor", err.Error())
		return
	}

	res, err := s.entries.Save(r.Context(), p, f)
	switch {
	case errors.Is(err, calendar.ErrInvalidMonth):
		fail(w, r, http.StatusBadRequest, "/editor", msgInvalidMonth)
		return
	case errors.Is(err, entry.ErrUnknownField):
		fail(w, r, http.StatusBadRequest, editorRedirect(f.Month, false), err.Error())
		return
	case errors.Is(err, entry.ErrCountTooLarge):
		fail(w, r, http.StatusBadRequest, editorRedirect(f.Month, false), msgCountTooBig)
		return
	case err != nil:
		internalError(w, r, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, res)
		return
	}
	http.Redirect(w, r, editorRedirect(res.Month, true), http.StatusSeeOther)
}

func editorRedirect(ym string, saved bool) string {
	q := url.Values{}
	if ym != "" {
		q.Set("month", ym)
	}
	if saved {
		q.Set("saved", "1")
	}
	if len(q) == 0 {
		return "/editor"
	}
	return "/editor?" + q.Encode()
}
