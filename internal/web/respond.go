package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"ticketCountManagement/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal_error", "request_id", requestID(r.Context()), "path", r.URL.Path, "error", err.Error())
	if wantsJSON(r) {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func isFormPost(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// wantsJSON reports whether the caller is programmatic: bearer-authenticated,
// sending JSON, or not asking for HTML.
func wantsJSON(r *http.Request) bool {
	if _, ok := auth.BearerToken(r.Header.Get("Authorization")); ok {
		return true
	}
	if isJSONBody(r) {
		return true
	}
	if isHTMLRequest(r) || isFormPost(r) {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// redirectWithError sends browsers back to path with an ?error= message.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, message string) {
	q := url.Values{}
	q.Set("error", message)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	http.Redirect(w, r, path+sep+q.Encode(), http.StatusSeeOther)
}

// fail answers a handled failure: JSON with status for programmatic
// callers, a redirect carrying the message for browsers.
func fail(w http.ResponseWriter, r *http.Request, status int, redirectTo, message string) {
	if wantsJSON(r) {
		writeError(w, status, message)
		return
	}
	redirectWithError(w, r, redirectTo, message)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
