package server

import "github.com/jrsteele09/go-auth-client/sessions"

// Route path constants
const (
	RouteHome = sessions.RouteHome

	// Auth Routes - reachable without a session
	RouteLogin          = sessions.RouteLogin
	RouteRegister       = sessions.RouteRegister
	RouteForgotPassword = sessions.RouteForgotPassword
	RouteResetPassword  = sessions.RouteResetPassword

	// Account Routes
	RouteProfile       = sessions.RouteProfile
	RouteProfileDelete = "/profile/delete"
	RouteLogout        = "/logout"

	// Static Asset Routes (patterns)
	RouteStatic = "/static/{file...}"
)
