package web

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ticketCountManagement/internal/auth"
	"ticketCountManagement/internal/calendar"
	"ticketCountManagement/internal/export"
	"ticketCountManagement/models"
	"ticketCountManagement/repository"
)

const (
	msgIncomplete   = "Datos incompletos"
	msgUserExists   = "El usuario ya existe"
	msgRuralTaken   = "Ya existe un editor para Policía Rural"
	msgInvalidUnit  = "Unidad inválida"
	msgUserNotFound = "Usuario no encontrado"
	msgInvalidMonth = "Mes inválido"
	msgInvalidDate  = "Fecha inválida"
	msgCountTooBig  = "Valor demasiado grande"
)

type areaBlock struct {
	Area   models.Area       `json:"area"`
	Units  []models.Unit     `json:"units"`
	Totals export.AreaTotals `json:"totals"`
}

type adminPage struct {
	Month  string                           `json:"month"`
	Days   []calendar.Day                   `json:"days"`
	Areas  []areaBlock                      `json:"areas"`
	Counts map[models.CountKey]models.Tally `json:"counts"`
	Locked map[string]bool                  `json:"locked"`
}

// month reads ?month=, defaulting to the current month.
func (s *Server) month(r *http.Request) (string, error) {
	return calendar.MonthOrCurrent(r.URL.Query().Get("month"), s.now())
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	ym, err := s.month(r)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "/admin", msgInvalidMonth)
		return
	}
	days, _ := calendar.DaysOfMonth(ym)
	counts, err := s.store.Counts.ForMonth(r.Context(), ym)
	if err != nil {
		internalError(w, r, err)
		return
	}
	locked, err := s.store.Locks.LockedSetForMonth(r.Context(), ym)
	if err != nil {
		internalError(w, r, err)
		return
	}
	page := adminPage{Month: ym, Days: days, Counts: counts, Locked: locked}
	for _, a := range s.catalog.Areas {
		units := s.catalog.Units[a.ID]
		page.Areas = append(page.Areas, areaBlock{Area: a, Units: units, Totals: export.Totals(units, days, counts)})
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, page)
		return
	}
	s.render(w, r, "admin.html", "Resumen", page)
}

type locksPage struct {
	Month  string          `json:"month"`
	Days   []calendar.Day  `json:"days"`
	Locked map[string]bool `json:"locked"`
}

func (s *Server) handleLocks(w http.ResponseWriter, r *http.Request) {
	ym, err := s.month(r)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "/admin/locks", msgInvalidMonth)
		return
	}
	days, _ := calendar.DaysOfMonth(ym)
	locked, err := s.store.Locks.LockedSetForMonth(r.Context(), ym)
	if err != nil {
		internalError(w, r, err)
		return
	}
	page := locksPage{Month: ym, Days: days, Locked: locked}
	if wantsJSON(r) {
		dates, err := s.store.Locks.LockedDatesForMonth(r.Context(), ym)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if dates == nil {
			dates = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"month": ym, "locked": dates})
		return
	}
	s.render(w, r, "admin_locks.html", "Bloqueos", page)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ym, err := s.month(r)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "/admin", msgInvalidMonth)
		return
	}
	counts, err := s.store.Counts.ForMonth(r.Context(), ym)
	if err != nil {
		internalError(w, r, err)
		return
	}
	f, err := export.Build(ym, s.catalog, counts)
	if err != nil {
		internalError(w, r, err)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Disposition", export.ContentDisposition(ym))
	w.Header().Set("Content-Type", export.ContentType)
	if _, err := f.WriteTo(w); err != nil {
		slog.Error("write export", "request_id", requestID(r.Context()), "month", ym, "error", err)
	}
}

type usersPage struct {
	Users []models.User `json:"users"`
	Areas []areaBlock   `json:"areas"`
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.Users.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
		return
	}
	page := usersPage{Users: users}
	for _, a := range s.catalog.Areas {
		page.Areas = append(page.Areas, areaBlock{Area: a, Units: s.catalog.Units[a.ID]})
	}
	s.render(w, r, "admin_users.html", "Usuarios", page)
}

type createUserRequest struct {
	Username string
	Password string
	UnitID   string
}

func readForm(r *http.Request, v *createUserRequest) error {
	if isJSONBody(r) {
		var raw struct {
			Username string `json:"username"`
			Password string `json:"password"`
			UnitID   any    `json:"unit_id"`
		}
		if err := strictDecode(r, &raw); err != nil {
			return err
		}
		v.Username, v.Password = raw.Username, raw.Password
		switch id := raw.UnitID.(type) {
		case float64:
			v.UnitID = strconv.FormatInt(int64(id), 10)
		case string:
			v.UnitID = id
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	v.Username = r.PostForm.Get("username")
	v.Password = r.PostForm.Get("password")
	v.UnitID = r.PostForm.Get("unit_id")
	return nil
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := readForm(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "/admin/users", msgIncomplete)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" || strings.TrimSpace(req.UnitID) == "" {
		fail(w, r, http.StatusBadRequest, "/admin/users", msgIncomplete)
		return
	}
	unitID, err := strconv.ParseInt(strings.TrimSpace(req.UnitID), 10, 64)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "/admin/users", msgInvalidUnit)
		return
	}
	if _, ok := s.catalog.Unit(unitID); !ok {
		fail(w, r, http.StatusBadRequest, "/admin/users", msgInvalidUnit)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		internalError(w, r, err)
		return
	}
	u, err := s.store.Users.CreateEditor(r.Context(), username, hash, unitID)
	switch {
	case errors.Is(err, repository.ErrUsernameTaken):
		fail(w, r, http.StatusConflict, "/admin/users", msgUserExists)
		return
	case errors.Is(err, repository.ErrRuralEditorExists):
		fail(w, r, http.StatusConflict, "/admin/users", msgRuralTaken)
		return
	case err != nil:
		internalError(w, r, err)
		return
	}
	slog.Info("editor created", "request_id", requestID(r.Context()), "user_id", u.ID, "unit_id", unitID)
	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, u)
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var idRaw, password string
	if isJSONBody(r) {
		var body struct {
			ID       int64  `json:"id"`
			Password string `json:"password"`
		}
		if err := strictDecode(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, msgIncomplete)
			return
		}
		idRaw, password = strconv.FormatInt(body.ID, 10), body.Password
	} else {
		if err := r.ParseForm(); err != nil {
			fail(w, r, http.StatusBadRequest, "/admin/users", msgIncomplete)
			return
		}
		idRaw, password = r.PostForm.Get("id"), r.PostForm.Get("password")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idRaw), 10, 64)
	if err != nil || id <= 0 || password == "" {
		fail(w, r, http.StatusBadRequest, "/admin/users", msgIncomplete)
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if err := s.store.Users.UpdatePassword(r.Context(), id, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			fail(w, r, http.StatusNotFound, "/admin/users", msgUserNotFound)
			return
		}
		internalError(w, r, err)
		return
	}
	// the old password must not keep any browser signed in
	if err := s.sessions.EndAll(r.Context(), id); err != nil {
		internalError(w, r, err)
		return
	}
	slog.Info("password changed", "request_id", requestID(r.Context()), "user_id", id)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "updated": true})
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "/admin/users", msgUserNotFound)
		return
	}
	err = s.store.Users.Delete(r.Context(), id)
	deleted := err == nil
	if errors.Is(err, repository.ErrAdminUndeletable) {
		// refusing is the expected outcome, not a failure
		err = nil
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": deleted})
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func locksRedirect(ym string) string {
	return "/admin/locks?" + url.Values{"month": {ym}}.Encode()
}

func (s *Server) handleLockDate(w http.ResponseWriter, r *http.Request) {
	s.toggleDate(w, r, true)
}

func (s *Server) handleUnlockDate(w http.ResponseWriter, r *http.Request) {
	s.toggleDate(w, r, false)
}

func (s *Server) toggleDate(w http.ResponseWriter, r *http.Request, lock bool) {
	date := r.PathValue("date")
	ym, err := calendar.MonthOf(date)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "/admin/locks", msgInvalidDate)
		return
	}
	if lock {
		err = s.store.Locks.Lock(r.Context(), date)
	} else {
		err = s.store.Locks.Unlock(r.Context(), date)
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	slog.Info("date lock changed", "request_id", requestID(r.Context()), "date", date, "locked", lock)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"date": date, "locked": lock})
		return
	}
	http.Redirect(w, r, locksRedirect(ym), http.StatusSeeOther)
}

func (s *Server) handleLockMonth(w http.ResponseWriter, r *http.Request) {
	s.toggleMonth(w, r, true)
}

func (s *Server) handleUnlockMonth(w http.ResponseWriter, r *http.Request) {
	s.toggleMonth(w, r, false)
}

func (s *Server) toggleMonth(w http.ResponseWriter, r *http.Request, lock bool) {
	ym := r.PathValue("ym")
	if _, err := calendar.ParseMonth(ym); err != nil {
		fail(w, r, http.StatusBadRequest, "/admin/locks", msgInvalidMonth)
		return
	}
	var err error
	if lock {
		err = s.store.Locks.LockMonth(r.Context(), ym)
	} else {
		err = s.store.Locks.UnlockMonth(r.Context(), ym)
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	slog.Info("month lock changed", "request_id", requestID(r.Context()), "month", ym, "locked", lock)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"month": ym, "locked": lock})
		return
	}
	http.Redirect(w, r, locksRedirect(ym), http.StatusSeeOther)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Maintenance.Reset(r.Context()); err != nil {
		internalError(w, r, err)
		return
	}
	p, _ := auth.FromContext(r.Context())
	slog.Warn("application reset", "request_id", requestID(r.Context()), "by_user", p.UserID)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
