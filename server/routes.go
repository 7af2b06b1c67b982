package server

import (
	"net/http"
	"strings"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHome+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageUIHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// SIGNUP
	s.RegisterRouteHandler("GET "+RouteRegister, ChainMiddleware(s.SignupGetHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.SignupPostHandler(), s.HTMLMiddleWare()...))

	// PASSWORD RESET
	s.RegisterRouteHandler("GET "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordGetHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordPostHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteResetPassword, ChainMiddleware(s.ResetPasswordGetHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteResetPassword, ChainMiddleware(s.ResetPasswordPostHandler(), s.HTMLMiddleWare()...))

	// ACCOUNT
	s.RegisterRouteHandler("GET "+RouteProfile, ChainMiddleware(s.ProfileHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteProfileDelete, ChainMiddleware(s.DeleteAccountHandler(), s.HTMLMiddleWare()...))

	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.serveFileHandler(), s.CacheMiddleware))

	// Anything else goes home
	s.RegisterRouteHandler("/", ChainMiddleware(s.UnknownPathHandler(), s.LoggingMiddleware, s.FrameSecurityMiddleware))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.PathValue("file"), "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError("GET", filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}
