package server

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/rs/zerolog/log"
)

const contentTypeHTML = "text/html; charset=utf-8"

// PageData is the template model shared by every page
type PageData struct {
	AppName  string
	Title    string
	State    sessions.State
	Notice   string
	Error    string
	Redirect string // where to go after login
	Email    string // preserved form input
	FullName string // preserved form input
	Token    string // password reset token
	Issued   bool   // a reset request was answered
}

func (s *Server) pageData(w http.ResponseWriter, r *http.Request, title string) PageData {
	return PageData{
		AppName: s.appName,
		Title:   title,
		State:   s.session.State(),
		Notice:  s.popNotice(w, r),
	}
}

func render(w http.ResponseWriter, tmpl *template.Template, status int, data PageData) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, layoutTemplate, data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
	}
}

// renderError re-renders a form page with the failure and a status matching it
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data PageData, err error) {
	data.State = s.session.State()
	data.Error = err.Error()
	render(w, tmpl, statusFor(err), data)
}

func statusFor(err error) int {
	var validationErr *sessions.ValidationError
	var authErr *sessions.AuthError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sessions.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, sessions.ErrTransient):
		return http.StatusBadGateway
	case errors.As(err, &authErr) && authErr.StatusCode >= http.StatusBadRequest:
		return authErr.StatusCode
	default:
		return http.StatusBadRequest
	}
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
