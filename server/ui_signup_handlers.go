package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// SignupGetHandler renders the registration page
func (s *Server) SignupGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("register.html")

	return func(w http.ResponseWriter, r *http.Request) {
		render(w, tmpl, http.StatusOK, s.pageData(w, r, "Create account"))
	}
}

// SignupPostHandler creates the account and sends the user to sign in
func (s *Server) SignupPostHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("register.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := strings.TrimSpace(r.PostFormValue("email"))
		fullName := strings.TrimSpace(r.PostFormValue("full_name"))
		password := r.PostFormValue("password")

		if err := s.session.Register(r.Context(), email, fullName, password); err != nil {
			data := s.pageData(w, r, "Create account")
			data.Email = email
			data.FullName = fullName
			s.renderError(w, r, tmpl, data, err)
			return
		}

		log.Info().Str("email", email).Msg("account created")
		s.addNotice(w, r, "Account created. Please sign in.")
		redirectSuccess(w, r, RouteLogin+"?email="+url.QueryEscape(email))
	}
}
