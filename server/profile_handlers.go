package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// ProfileHandler shows the signed in account, reloading it first
func (s *Server) ProfileHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("profile.html")

	return func(w http.ResponseWriter, r *http.Request) {
		s.session.FetchProfile(r.Context())
		if followNavigation(w, r) {
			return
		}
		render(w, tmpl, http.StatusOK, s.pageData(w, r, "Profile"))
	}
}

// DeleteAccountHandler deletes the account and returns home
func (s *Server) DeleteAccountHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("profile.html")

	return func(w http.ResponseWriter, r *http.Request) {
		err := s.session.DeleteAccount(r.Context())
		if followNavigation(w, r) {
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("account deletion failed")
			s.renderError(w, r, tmpl, s.pageData(w, r, "Profile"), err)
			return
		}

		s.addNotice(w, r, "Your account has been deleted.")
		redirectSuccess(w, r, RouteHome)
	}
}
