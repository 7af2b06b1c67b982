package server

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/jrsteele09/go-auth-client/sessions"
)

type navigationKey struct{}

// navigation is the per-request record of where the user is and where the
// session wants them to go.
type navigation struct {
	location string

	mu     sync.Mutex
	target string
}

// RequestNavigator implements sessions.Navigator for the web UI. The location
// is the page the current request belongs to, and a navigation requested
// while handling it becomes a redirect in the response.
type RequestNavigator struct{}

var _ sessions.Navigator = RequestNavigator{}

func (RequestNavigator) Location(ctx context.Context) string {
	if nav := navigationFrom(ctx); nav != nil {
		return nav.location
	}
	return ""
}

func (RequestNavigator) Navigate(ctx context.Context, to string) {
	nav := navigationFrom(ctx)
	if nav == nil {
		return
	}
	nav.mu.Lock()
	nav.target = to
	nav.mu.Unlock()
}

func navigationFrom(ctx context.Context) *navigation {
	nav, _ := ctx.Value(navigationKey{}).(*navigation)
	return nav
}

// NavigationMiddleware attaches the navigation record to the request context.
func (s *Server) NavigationMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nav := &navigation{location: pageLocation(r)}
		next(w, r.WithContext(context.WithValue(r.Context(), navigationKey{}, nav)))
	}
}

// followNavigation redirects when the session asked to navigate during this
// request. It reports whether a response was written.
func followNavigation(w http.ResponseWriter, r *http.Request) bool {
	nav := navigationFrom(r.Context())
	if nav == nil {
		return false
	}
	nav.mu.Lock()
	target := nav.target
	nav.mu.Unlock()
	if target == "" {
		return false
	}
	redirectSuccess(w, r, target)
	return true
}

// pageLocation is the page the user is looking at. For GET it is the request
// itself; form posts belong to the page that submitted them.
func pageLocation(r *http.Request) string {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return r.URL.RequestURI()
	}
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Host != r.Host || ref.Path == "" {
		return ""
	}
	return ref.RequestURI()
}
