package sessions

import (
	"context"
	"net/url"
	"strings"
)

// View routes shared by the facade and the web front end.
const (
	RouteHome           = "/"
	RouteLogin          = "/login"
	RouteRegister       = "/register"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"
	RouteProfile        = "/profile"
)

// Navigator is the host's notion of "where the user is" and "go there".
// Location returns the current path with its query, or "" when unknown.
type Navigator interface {
	Location(ctx context.Context) string
	Navigate(ctx context.Context, to string)
}

var authRoutes = []string{RouteLogin, RouteRegister, RouteForgotPassword, RouteResetPassword}

// IsAuthRoute reports whether location (path, optionally with a query) is one
// of the sign-in views, which are reachable without a session.
func IsAuthRoute(location string) bool {
	path, _, _ := strings.Cut(location, "?")
	for _, route := range authRoutes {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

// LoginRedirect builds the login location that returns to returnTo afterwards.
func LoginRedirect(returnTo string) string {
	if returnTo == "" {
		return RouteLogin
	}
	return RouteLogin + "?redirect=" + url.QueryEscape(returnTo)
}

// SafeRedirect returns target when it is a local path, fallback otherwise.
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	if IsAuthRoute(target) {
		return fallback
	}
	return target
}
