// Package fakeapi is an in-process stand-in for the remote auth API, used by
// tests across the module. It issues opaque tokens named A1/R1, A2/R2, ...
package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/users"
)

const Prefix = "/api/v1"

type account struct {
	password string
	profile  users.Profile
}

// Call is one request observed by the fake.
type Call struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	Body          string
}

type Server struct {
	*httptest.Server

	mu          sync.Mutex
	accounts    map[string]*account // email -> account
	access      map[string]string   // access token -> email
	refresh     map[string]string   // refresh token -> email
	resetTokens map[string]string   // reset token -> email
	issued      int
	calls       []Call

	// RefreshGate, when set, blocks every refresh call until it is closed.
	RefreshGate chan struct{}
	// RefreshStarted receives a value each time a refresh call arrives (non-blocking).
	RefreshStarted chan struct{}
	// LogoutStatus overrides the logout response status when non-zero.
	LogoutStatus int
	// MeStatus overrides the /auth/me response status when non-zero.
	MeStatus int
}

// New starts the fake and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts:       make(map[string]*account),
		access:         make(map[string]string),
		refresh:        make(map[string]string),
		resetTokens:    make(map[string]string),
		RefreshStarted: make(chan struct{}, 64),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+Prefix+"/auth/login", s.login)
	mux.HandleFunc("POST "+Prefix+"/auth/register", s.register)
	mux.HandleFunc("POST "+Prefix+"/auth/refresh", s.refreshTokens)
	mux.HandleFunc("POST "+Prefix+"/auth/logout", s.logout)
	mux.HandleFunc("GET "+Prefix+"/auth/me", s.me)
	mux.HandleFunc("DELETE "+Prefix+"/auth/me", s.deleteMe)
	mux.HandleFunc("POST "+Prefix+"/auth/forgot-password", s.forgotPassword)
	mux.HandleFunc("POST "+Prefix+"/auth/reset-password", s.resetPassword)
	mux.HandleFunc(Prefix+"/items", s.items)

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the value to configure as the API base URL.
func (s *Server) BaseURL() string {
	return s.URL + Prefix
}

// AddUser registers an account directly.
func (s *Server) AddUser(email, fullName, password string) users.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, fullName, password)
}

func (s *Server) addUserLocked(email, fullName, password string) users.Profile {
	now := time.Now().UTC().Truncate(time.Second)
	p := users.Profile{
		ID:        uuid.NewString(),
		Email:     email,
		FullName:  fullName,
		Role:      users.RoleUser,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.accounts[email] = &account{password: password, profile: p}
	return p
}

// Issue creates a valid pair for email as if the user had logged in.
func (s *Server) Issue(email string) token.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(email)
}

func (s *Server) issueLocked(email string) token.Pair {
	s.issued++
	p := token.Pair{
		Access:  fmt.Sprintf("A%d", s.issued),
		Refresh: fmt.Sprintf("R%d", s.issued),
	}
	s.access[p.Access] = email
	s.refresh[p.Refresh] = email
	return p
}

// ExpireAccess makes the access token be rejected with 401.
func (s *Server) ExpireAccess(access string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.access, access)
}

// RevokeRefresh makes the refresh token be rejected with 401.
func (s *Server) RevokeRefresh(refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, refreshToken)
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the calls whose path ends with suffix, e.g. "/auth/refresh".
func (s *Server) CallsTo(suffix string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if strings.HasSuffix(c.Path, suffix) {
			out = append(out, c)
		}
	}
	return out
}

// HasUser reports whether an account exists for email.
func (s *Server) HasUser(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[email]
	return ok
}

// PasswordFor returns the current password of email.
func (s *Server) PasswordFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[email]; ok {
		return a.password
	}
	return ""
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			Body:          string(body),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "password" {
		writeDetail(w, http.StatusBadRequest, "unsupported grant type")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[r.PostForm.Get("username")]
	if !ok || a.password != r.PostForm.Get("password") {
		writeDetail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	p := s.issueLocked(a.profile.Email)
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  p.Access,
		"refresh_token": p.Refresh,
		"token_type":    "bearer",
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Email]; exists {
		writeDetail(w, http.StatusBadRequest, "user already exists")
		return
	}
	writeJSON(w, http.StatusCreated, s.addUserLocked(req.Email, req.FullName, req.Password))
}

func (s *Server) refreshTokens(w http.ResponseWriter, r *http.Request) {
	select {
	case s.RefreshStarted <- struct{}{}:
	default:
	}
	if s.RefreshGate != nil {
		<-s.RefreshGate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rt := r.URL.Query().Get("refresh_token")
	email, ok := s.refresh[rt]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	delete(s.refresh, rt)
	p := s.issueLocked(email)
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  p.Access,
		"refresh_token": p.Refresh,
		"token_type":    "bearer",
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if s.LogoutStatus != 0 {
		writeDetail(w, s.LogoutStatus, "logout failed")
		return
	}
	s.mu.Lock()
	delete(s.access, r.URL.Query().Get("token"))
	delete(s.refresh, r.URL.Query().Get("refresh_token"))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	if s.MeStatus != 0 {
		writeDetail(w, s.MeStatus, "profile unavailable")
		return
	}
	a, ok := s.authenticate(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, a.profile)
}

func (s *Server) deleteMe(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	s.mu.Lock()
	email := a.profile.Email
	delete(s.accounts, email)
	for k, v := range s.access {
		if v == email {
			delete(s.access, k)
		}
	}
	for k, v := range s.refresh {
		if v == email {
			delete(s.refresh, k)
		}
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	defer s.mu.Unlock()
	var resp struct {
		Token *string `json:"token"`
	}
	if _, ok := s.accounts[req.Email]; ok {
		resp.Token = utils.Ptr("reset-" + uuid.NewString())
		s.resetTokens[*resp.Token] = req.Email
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.resetTokens[req.Token]
	if !ok {
		writeDetail(w, http.StatusBadRequest, "invalid or expired token")
		return
	}
	delete(s.resetTokens, req.Token)
	s.accounts[email].password = req.Password
	w.WriteHeader(http.StatusNoContent)
}

// items is a protected resource that echoes the request body back.
func (s *Server) items(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(r); !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	body, _ := io.ReadAll(r.Body)
	writeJSON(w, http.StatusOK, map[string]string{
		"method": r.Method,
		"body":   string(body),
		"bearer": strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
	})
}

func (s *Server) authenticate(r *http.Request) (*account, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.access[strings.TrimPrefix(header, "Bearer ")]
	if !ok {
		return nil, false
	}
	a, ok := s.accounts[email]
	return a, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
