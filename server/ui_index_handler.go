package server

import (
	"net/http"
)

// IndexHandler renders the home page
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		render(w, tmpl, http.StatusOK, s.pageData(w, r, "Home"))
	}
}

// UnknownPathHandler sends any path without a page of its own to the home page.
func (s *Server) UnknownPathHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectSuccess(w, r, RouteHome)
	}
}
