package server

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"

	gsessions "github.com/gorilla/sessions"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/rs/zerolog/log"
)

// Server is the local web front end over a single account session.
type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	appName string
	mux     *http.ServeMux
	routes  []string
	session *sessions.Session
	notices *gsessions.CookieStore
}

// New builds the UI. The session must have been created with RequestNavigator
// so that a lost session redirects the current request.
func New(cfg config.Config, session *sessions.Session) (*Server, error) {
	secret, err := cookieSecret(cfg.GetCookieSecret())
	if err != nil {
		return nil, fmt.Errorf("[Server New] cookie secret: %w", err)
	}

	s := &Server{
		env:     cfg.GetEnv(),
		appName: cfg.GetAppName(),
		mux:     http.NewServeMux(),
		session: session,
		notices: newNoticeStore(secret, cfg.GetSecureCookies()),
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

func logError(method, path, error string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	errorString := Red + error + ResetColor
	log.Error().Msgf("[%-19s] %s %s", displayMethod, path, errorString)
}

// cookieSecret returns the configured secret, or a random one that lives as
// long as the process.
func cookieSecret(configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	log.Warn().Msg("no cookie secret configured, notices will not survive a restart")
	return secret, nil
}
