package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-client/sessions"
)

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData(w, r, "Sign in")
		data.Email = r.URL.Query().Get("email")
		data.Redirect = r.URL.Query().Get("redirect")
		render(w, tmpl, http.StatusOK, data)
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := strings.TrimSpace(r.PostFormValue("username"))
		password := r.PostFormValue("password")
		redirect := r.PostFormValue("redirect")

		if err := s.session.Login(r.Context(), email, password); err != nil {
			data := s.pageData(w, r, "Sign in")
			data.Email = email
			data.Redirect = redirect
			s.renderError(w, r, tmpl, data, err)
			return
		}

		redirectSuccess(w, r, sessions.SafeRedirect(redirect, RouteProfile))
	}
}

// LogoutHandler ends the session locally whether or not the server agrees
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.session.Logout(r.Context())
		s.addNotice(w, r, "You have been signed out.")
		redirectSuccess(w, r, RouteHome)
	}
}
