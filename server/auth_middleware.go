package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-client/sessions"
)

// RequireAuth sends visitors without a session to the login page, which
// brings them back here afterwards. Auth routes and logout pass through.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.session.IsAuthenticated() || sessions.IsAuthRoute(r.URL.Path) || r.URL.Path == RouteLogout {
				next(w, r)
				return
			}
			returnTo := RequestNavigator{}.Location(r.Context())
			if returnTo == "" || sessions.IsAuthRoute(returnTo) {
				returnTo = RouteProfile
			}
			redirectSuccess(w, r, sessions.LoginRedirect(returnTo))
		}
	}
}
