package web

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketCountManagement/internal/auth"
	"ticketCountManagement/internal/catalog"
	"ticketCountManagement/internal/entry"
	"ticketCountManagement/internal/testutil"
	"ticketCountManagement/models"
	"ticketCountManagement/repository"
)

const testSecret = "web-test-secret"

type testApp struct {
	srv       *httptest.Server
	store     *repository.Store
	transport http.RoundTripper
	// referer is sent with form posts; HTTPS deployments check it
	referer string
}

func newTestApp(t *testing.T, name string) *testApp {
	t.Helper()
	return newTestAppWith(t, name, false, nil)
}

// newTestAppWith serves over TLS with secure cookies when secure is set.
func newTestAppWith(t *testing.T, name string, secure bool, origins []string) *testApp {
	t.Helper()
	h := testutil.OpenSeededDB(t, name)
	store := repository.NewStore(h)
	cat := catalog.Default()
	ctx := context.Background()

	hash, err := auth.HashPassword("admin-pw")
	require.NoError(t, err)
	_, err = store.Users.EnsureAdmin(ctx, models.NewAdmin("admin", hash))
	require.NoError(t, err)

	s, err := NewServer(Deps{
		Store:          store,
		Catalog:        cat,
		Sessions:       auth.NewManager(store.Users, store.Sessions, time.Hour, secure),
		Entries:        entry.NewService(store.Counts, store.Locks, cat),
		SessionSecret:  testSecret,
		TokenTTL:       time.Hour,
		SecureCookies:  secure,
		TrustedOrigins: origins,
	})
	require.NoError(t, err)
	var srv *httptest.Server
	if secure {
		srv = httptest.NewTLSServer(s.Handler())
	} else {
		srv = httptest.NewServer(s.Handler())
	}
	t.Cleanup(srv.Close)
	app := &testApp{srv: srv, store: store, transport: srv.Client().Transport}
	if secure {
		app.referer = srv.URL + "/login"
	}
	return app
}

func (a *testApp) createEditor(t *testing.T, username, password string, unitID int64) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	u, err := a.store.Users.CreateEditor(context.Background(), username, hash, unitID)
	require.NoError(t, err)
	return u
}

// browser returns a client that keeps cookies and does not follow redirects.
func (a *testApp) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:       jar,
		Transport: a.transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

var csrfFieldRe = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

func (a *testApp) get(t *testing.T, c *http.Client, path, accept string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", accept)
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

// csrfToken loads an HTML page and extracts the hidden CSRF field.
func (a *testApp) csrfToken(t *testing.T, c *http.Client, path string) string {
	t.Helper()
	resp, body := a.get(t, c, path, "text/html")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	m := csrfFieldRe.FindStringSubmatch(body)
	require.NotNil(t, m, "no csrf field on %s", path)
	return html.UnescapeString(m[1])
}

func (a *testApp) postForm(t *testing.T, c *http.Client, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	if a.referer != "" {
		req.Header.Set("Referer", a.referer)
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (a *testApp) login(t *testing.T, c *http.Client, username, password string) *http.Response {
	t.Helper()
	tok := a.csrfToken(t, c, "/login")
	resp, _ := a.postForm(t, c, "/login", url.Values{
		"username":           {username},
		"password":           {password},
		"gorilla.csrf.Token": {tok},
	})
	return resp
}

func (a *testApp) token(t *testing.T, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := a.srv.Client().Post(a.srv.URL+"/api/token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "Bearer", out.TokenType)
	return out.Token
}

func (a *testApp) api(t *testing.T, method, path, token string, payload any) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	c := &http.Client{
		Transport:     a.transport,
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp, raw
}

func TestBrowserLoginLogout(t *testing.T) {
	app := newTestApp(t, "weblogin")
	c := app.browser(t)

	resp, body := app.get(t, c, "/admin", "text/html")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	tok := app.csrfToken(t, c, "/login")
	resp, body = app.postForm(t, c, "/login", url.Values{
		"username": {"admin"}, "password": {"wrong"}, "gorilla.csrf.Token": {tok},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, msgInvalidLogin)

	resp = app.login(t, c, "admin", "admin-pw")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	resp, body = app.get(t, c, "/admin?month=2024-03", "text/html")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Resumen 2024-03")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, _ = app.get(t, c, "/", "text/html")
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	resp, _ = app.get(t, c, "/logout", "text/html")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = app.get(t, c, "/admin", "text/html")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestUnknownUserGetsSameMessage(t *testing.T) {
	app := newTestApp(t, "webenum")
	resp, raw := app.api(t, http.MethodPost, "/api/token", "", map[string]string{"username": "ghost", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(raw), msgInvalidLogin)
	resp, raw2 := app.api(t, http.MethodPost, "/api/token", "", map[string]string{"username": "admin", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, string(raw), string(raw2))

	// cookie login outside the browser form still needs the csrf token
	resp, _ = app.api(t, http.MethodPost, "/login", "", map[string]string{"username": "admin", "password": "admin-pw"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCSRFRequiredForCookieSessions(t *testing.T) {
	app := newTestApp(t, "webcsrf")
	c := app.browser(t)
	require.Equal(t, http.StatusSeeOther, app.login(t, c, "admin", "admin-pw").StatusCode)

	resp, _ := app.postForm(t, c, "/admin/lock/2024-03-05", url.Values{})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	locked, err := app.store.Locks.IsLocked(context.Background(), "2024-03-05")
	require.NoError(t, err)
	assert.False(t, locked)

	tok := app.csrfToken(t, c, "/admin/locks?month=2024-03")
	resp, _ = app.postForm(t, c, "/admin/lock/2024-03-05", url.Values{"gorilla.csrf.Token": {tok}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/locks?month=2024-03", resp.Header.Get("Location"))
	locked, _ = app.store.Locks.IsLocked(context.Background(), "2024-03-05")
	assert.True(t, locked)
}

func TestCSRFOriginCheckOverTLS(t *testing.T) {
	app := newTestAppWith(t, "webcsrftls", true, []string{"boletas.example.org"})
	c := app.browser(t)
	resp := app.login(t, c, "admin", "admin-pw")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	tok := app.csrfToken(t, c, "/admin/locks?month=2024-03")
	post := func(referer string) int {
		form := url.Values{"gorilla.csrf.Token": {tok}}
		req, err := http.NewRequest(http.MethodPost, app.srv.URL+"/admin/lock/2024-03-05", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "text/html")
		if referer != "" {
			req.Header.Set("Referer", referer)
		}
		resp, err := c.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	// a valid token from another site is not enough
	assert.Equal(t, http.StatusForbidden, post("https://evil.example.com/page"))
	assert.Equal(t, http.StatusForbidden, post(""))
	locked, err := app.store.Locks.IsLocked(context.Background(), "2024-03-05")
	require.NoError(t, err)
	assert.False(t, locked)

	assert.Equal(t, http.StatusSeeOther, post("https://boletas.example.org/admin/locks"))
	assert.Equal(t, http.StatusSeeOther, post(app.srv.URL+"/admin/locks?month=2024-03"))
	locked, _ = app.store.Locks.IsLocked(context.Background(), "2024-03-05")
	assert.True(t, locked)

	// bearer clients carry no cookie and skip the origin check
	adminTok := app.token(t, "admin", "admin-pw")
	resp2, _ := app.api(t, http.MethodPost, "/admin/unlock/2024-03-05", adminTok, nil)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestProgrammaticGuards(t *testing.T) {
	app := newTestApp(t, "webguards")
	app.createEditor(t, "ed", "ed-pw", 1001)

	resp, raw := app.api(t, http.MethodGet, "/admin", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"unauthorized"}`, string(raw))

	edTok := app.token(t, "ed", "ed-pw")
	resp, raw = app.api(t, http.MethodGet, "/admin", edTok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.JSONEq(t, `{"error":"forbidden"}`, string(raw))

	resp, _ = app.api(t, http.MethodGet, "/admin", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	adminTok := app.token(t, "admin", "admin-pw")
	resp, raw = app.api(t, http.MethodGet, "/admin?month=2024-02", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Month string `json:"month"`
		Days  []any  `json:"days"`
		Areas []any  `json:"areas"`
	}
	require.NoError(t, json.Unmarshal(raw, &page))
	assert.Equal(t, "2024-02", page.Month)
	assert.Len(t, page.Days, 29)
	assert.Len(t, page.Areas, 4)

	resp, _ = app.api(t, http.MethodGet, "/admin?month=2024-13", adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// the token stops working once the account is gone
	u, _ := app.store.Users.GetByUsername(context.Background(), "ed")
	require.NoError(t, app.store.Users.Delete(context.Background(), u.ID))
	resp, _ = app.api(t, http.MethodGet, "/editor", edTok, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEditorFormSaveEndToEnd(t *testing.T) {
	app := newTestApp(t, "webeditor")
	app.createEditor(t, "ed1001", "pw", 1001)
	c := app.browser(t)

	resp := app.login(t, c, "ed1001", "pw")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/editor", resp.Header.Get("Location"))

	tok := app.csrfToken(t, c, "/editor?month=2024-03")
	resp, _ = app.postForm(t, c, "/editor/save", url.Values{
		"month":                  {"2024-03"},
		"manual[2024-03-05]":     {"5"},
		"electronic[2024-03-05]": {""},
		"gorilla.csrf.Token":     {tok},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/editor?month=2024-03&saved=1", resp.Header.Get("Location"))

	got, err := app.store.Counts.ForUnitMonth(context.Background(), 1001, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, models.Tally{Manual: 5, Electronic: 0}, got["2024-03-05"])

	// an editor cannot reach admin pages
	resp, _ = app.get(t, c, "/admin", "text/html")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	// foreign unit keys are rejected
	resp, _ = app.postForm(t, c, "/editor/save", url.Values{
		"month":                    {"2024-03"},
		"manual[1002][2024-03-05]": {"5"},
		"gorilla.csrf.Token":       {tok},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "error=")
}

func TestEditorJSONSaveSkipsLockedDates(t *testing.T) {
	app := newTestApp(t, "webeditorjson")
	app.createEditor(t, "rural", "pw", catalog.RuralUnitID)
	ctx := context.Background()
	require.NoError(t, app.store.Counts.Upsert(ctx, 4001, "2024-05-02", 7, 7))
	require.NoError(t, app.store.Locks.Lock(ctx, "2024-05-02"))

	tok := app.token(t, "rural", "pw")
	resp, raw := app.api(t, http.MethodPost, "/editor/save", tok, map[string]any{
		"month":      "2024-05",
		"manual":     map[string]any{"4001": map[string]any{"2024-05-01": 3, "2024-05-02": 99}},
		"electronic": map[string]any{"4002": map[string]any{"2024-05-01": "4"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var res entry.Result
	require.NoError(t, json.Unmarshal(raw, &res))
	assert.Equal(t, "2024-05", res.Month)
	assert.Equal(t, 3*30, res.Saved)
	assert.Equal(t, 3, res.SkippedLocked)

	all, err := app.store.Counts.ForMonth(ctx, "2024-05")
	require.NoError(t, err)
	assert.Equal(t, models.Tally{Manual: 3}, all[models.NewCountKey(4001, "2024-05-01")])
	assert.Equal(t, models.Tally{Electronic: 4}, all[models.NewCountKey(4002, "2024-05-01")])
	assert.Equal(t, models.Tally{Manual: 7, Electronic: 7}, all[models.NewCountKey(4001, "2024-05-02")])

	// values the database cannot hold are a validation error, not a 500
	resp, raw = app.api(t, http.MethodPost, "/editor/save", tok, map[string]any{
		"month":  "2024-05",
		"manual": map[string]any{"4001": map[string]any{"2024-05-03": 3000000000}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), msgCountTooBig)

	// flat keys need a unit for the rural editor
	resp, _ = app.api(t, http.MethodPost, "/editor/save", tok, map[string]any{
		"month":  "2024-05",
		"manual": map[string]any{"2024-05-01": 1},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = app.api(t, http.MethodGet, "/editor?month=2024-05", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		Unit  models.Unit     `json:"unit"`
		Units []models.Unit   `json:"units"`
		Lock  map[string]bool `json:"locked"`
	}
	require.NoError(t, json.Unmarshal(raw, &view))
	assert.Equal(t, catalog.RuralUnitID, view.Unit.ID)
	assert.Len(t, view.Units, 3)
	assert.True(t, view.Lock["2024-05-02"])
}

func TestAdminUserManagement(t *testing.T) {
	app := newTestApp(t, "webusers")
	tok := app.token(t, "admin", "admin-pw")

	resp, raw := app.api(t, http.MethodPost, "/admin/users", tok, map[string]any{"username": "ed", "password": "pw", "unit_id": 1001})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var created models.User
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, models.RoleEditor, created.Role)

	resp, raw = app.api(t, http.MethodPost, "/admin/users", tok, map[string]any{"username": "ed", "password": "pw", "unit_id": 1002})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(raw), msgUserExists)

	resp, _ = app.api(t, http.MethodPost, "/admin/users", tok, map[string]any{"username": "r1", "password": "pw", "unit_id": "4000"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, raw = app.api(t, http.MethodPost, "/admin/users", tok, map[string]any{"username": "r2", "password": "pw", "unit_id": "4000"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(raw), "Policía Rural")

	resp, raw = app.api(t, http.MethodPost, "/admin/users", tok, map[string]any{"username": "x", "password": "", "unit_id": 1001})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), msgIncomplete)
	resp, _ = app.api(t, http.MethodPost, "/admin/users", tok, map[string]any{"username": "x", "password": "pw", "unit_id": 999})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	edBrowser := app.browser(t)
	require.Equal(t, http.StatusSeeOther, app.login(t, edBrowser, "ed", "pw").StatusCode)
	resp, _ = app.get(t, edBrowser, "/editor", "text/html")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.api(t, http.MethodPost, "/admin/users/update", tok, map[string]any{"id": created.ID, "password": "new-pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	app.token(t, "ed", "new-pw")

	// the password change signed the editor out
	resp, _ = app.get(t, edBrowser, "/editor", "text/html")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	admin, _ := app.store.Users.GetByUsername(context.Background(), "admin")
	resp, raw = app.api(t, http.MethodPost, "/admin/users/delete/"+itoa(admin.ID), tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":`+itoa(admin.ID)+`,"deleted":false}`, string(raw))
	still, _ := app.store.Users.GetByID(context.Background(), admin.ID)
	assert.NotNil(t, still)

	resp, raw = app.api(t, http.MethodPost, "/admin/users/delete/"+itoa(created.ID), tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":`+itoa(created.ID)+`,"deleted":true}`, string(raw))

	resp, raw = app.api(t, http.MethodGet, "/admin/users", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Users []models.User `json:"users"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list.Users, 2)
}

func TestLocksMonthAndExport(t *testing.T) {
	app := newTestApp(t, "weblocks")
	tok := app.token(t, "admin", "admin-pw")
	ctx := context.Background()

	resp, _ := app.api(t, http.MethodPost, "/admin/lock-month/2024-02", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, raw := app.api(t, http.MethodGet, "/admin/locks?month=2024-02", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var locks struct {
		Locked []string `json:"locked"`
	}
	require.NoError(t, json.Unmarshal(raw, &locks))
	assert.Len(t, locks.Locked, 29)

	resp, _ = app.api(t, http.MethodPost, "/admin/unlock/2024-02-10", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dates, _ := app.store.Locks.LockedDatesForMonth(ctx, "2024-02")
	assert.Len(t, dates, 28)

	resp, _ = app.api(t, http.MethodPost, "/admin/unlock-month/2024-02", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dates, _ = app.store.Locks.LockedDatesForMonth(ctx, "2024-02")
	assert.Empty(t, dates)

	resp, _ = app.api(t, http.MethodPost, "/admin/lock/2024-02-30", tok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = app.api(t, http.MethodPost, "/admin/lock-month/2024-2", tok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.NoError(t, app.store.Counts.Upsert(ctx, 1001, "2024-02-05", 3, 1))
	resp, raw = app.api(t, http.MethodGet, "/admin/export?month=2024-02", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "attachment; filename=boletas-2024-02.xlsx", resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(raw, []byte("PK")), "xlsx is a zip archive")
}

func TestResetAndHealth(t *testing.T) {
	app := newTestApp(t, "webreset")
	app.createEditor(t, "ed", "pw", 1001)
	ctx := context.Background()
	require.NoError(t, app.store.Counts.Upsert(ctx, 1001, "2024-02-05", 3, 1))
	tok := app.token(t, "admin", "admin-pw")

	resp, _ := app.api(t, http.MethodPost, "/admin/reset", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users, _ := app.store.Users.List(ctx)
	assert.Len(t, users, 1)
	counts, _ := app.store.Counts.ForMonth(ctx, "2024-02")
	assert.Empty(t, counts)

	resp, raw := app.api(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}

func itoa(n int64) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}
