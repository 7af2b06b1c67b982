// Package sessions is the application-facing account API. A Session owns the
// credential store and the API client, and exposes login, registration,
// password reset, profile and logout as plain calls with typed errors.
package sessions

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// State is a snapshot of the session as seen by the UI.
type State struct {
	User            *users.Profile
	IsAuthenticated bool
	Loading         bool
	Error           string
	// AccessExpiresAt is zero unless the access token is a JWT with an exp claim.
	AccessExpiresAt time.Time
}

type Options struct {
	Navigator Navigator
	Logger    zerolog.Logger
}

type Session struct {
	store       *token.Store
	api         *apiclient.Client
	nav         Navigator
	logger      zerolog.Logger
	installOnce sync.Once

	mu      sync.RWMutex
	user    *users.Profile
	loading int
	errMsg  string
}

func New(store *token.Store, api *apiclient.Client, opts Options) *Session {
	return &Session{
		store:  store,
		api:    api,
		nav:    opts.Navigator,
		logger: opts.Logger.With().Str("component", "session").Logger(),
	}
}

// Init restores the persisted credentials, installs the unauthorized handler
// and fetches the profile when a session was restored. It is safe to call
// more than once.
func (s *Session) Init(ctx context.Context) error {
	s.installOnce.Do(func() {
		s.api.Transport().SetOnUnauthorized(s.handleUnauthorized)
	})
	if err := s.store.Load(ctx); err != nil {
		return err
	}
	if s.IsAuthenticated() {
		s.logger.Info().Msg("restored persisted session")
		s.FetchProfile(ctx)
	}
	return nil
}

func (s *Session) Close() error {
	return s.store.Close()
}

func (s *Session) IsAuthenticated() bool {
	return s.store.Get().HasAccess()
}

func (s *Session) State() State {
	pair := s.store.Get()

	s.mu.RLock()
	st := State{
		User:            s.user,
		IsAuthenticated: pair.HasAccess(),
		Loading:         s.loading > 0,
		Error:           s.errMsg,
	}
	s.mu.RUnlock()

	if exp, ok := token.AccessExpiry(pair.Access); ok {
		st.AccessExpiresAt = exp
	}
	return st
}

// Login exchanges the identifier and secret for a credential pair using the
// password grant, persists it and loads the profile.
func (s *Session) Login(ctx context.Context, identifier, secret string) error {
	done := s.begin()
	defer done()

	identifier = strings.TrimSpace(identifier)
	if err := ValidateLogin(identifier, secret); err != nil {
		return s.fail(err, MsgLoginFailed)
	}

	cfg := oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  s.api.URL(apiclient.PathLogin, nil),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	tok, err := cfg.PasswordCredentialsToken(context.WithValue(ctx, oauth2.HTTPClient, s.api.HTTPClient()), identifier, secret)
	if err != nil {
		s.logger.Info().Err(err).Str("username", identifier).Msg("login rejected")
		return s.fail(err, MsgLoginFailed)
	}

	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	if err := s.store.Set(ctx, tok.AccessToken, tok.RefreshToken); err != nil {
		s.logger.Warn().Err(err).Msg("credentials not persisted, session kept in memory")
	}
	s.logger.Info().Str("username", identifier).Msg("logged in")

	s.FetchProfile(ctx)
	return nil
}

// Register creates an account. It does not sign the user in.
func (s *Session) Register(ctx context.Context, email, fullName, secret string) error {
	done := s.begin()
	defer done()

	email, fullName = strings.TrimSpace(email), strings.TrimSpace(fullName)
	if err := ValidateRegistration(email, fullName, secret); err != nil {
		return s.fail(err, MsgRegistrationFailed)
	}

	req := apiclient.RegisterRequest{Email: email, FullName: fullName, Password: secret}
	if err := s.api.Do(ctx, http.MethodPost, apiclient.PathRegister, nil, req, nil); err != nil {
		return s.fail(err, MsgRegistrationFailed)
	}
	s.logger.Info().Str("email", email).Msg("registered")
	return nil
}

// FetchProfile refreshes the cached profile. It does nothing without a
// session, and failures are logged but not reported.
func (s *Session) FetchProfile(ctx context.Context) {
	if !s.IsAuthenticated() {
		return
	}

	var profile users.Profile
	if err := s.api.Do(ctx, http.MethodGet, apiclient.PathMe, nil, nil, &profile); err != nil {
		s.logger.Debug().Err(err).Msg("profile fetch failed")
		return
	}
	if !s.IsAuthenticated() {
		return
	}

	s.mu.Lock()
	s.user = &profile
	s.mu.Unlock()
}

// Logout revokes the tokens on the server when it can and always forgets
// them locally.
func (s *Session) Logout(ctx context.Context) {
	pair := s.store.Get()
	if !pair.IsZero() {
		query := url.Values{"token": {pair.Access}}
		if pair.HasRefresh() {
			query.Set("refresh_token", pair.Refresh)
		}
		err := s.api.Do(apiclient.WithoutRecovery(ctx), http.MethodPost, apiclient.PathLogout, query, nil, nil)
		if err != nil {
			s.logger.Debug().Err(err).Msg("server logout failed, clearing locally")
		}
	}
	s.clear(ctx)
	s.logger.Info().Msg("logged out")
}

// RequestPasswordReset asks for a reset token for email. The token is
// returned directly, or "" when the server issued none.
func (s *Session) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	done := s.begin()
	defer done()

	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return "", s.fail(err, MsgResetRequestFailed)
	}

	var resp apiclient.ForgotPasswordResponse
	req := apiclient.ForgotPasswordRequest{Email: email}
	if err := s.api.Do(ctx, http.MethodPost, apiclient.PathForgotPassword, nil, req, &resp); err != nil {
		return "", s.fail(err, MsgResetRequestFailed)
	}
	return resp.ResetToken(), nil
}

func (s *Session) ConfirmPasswordReset(ctx context.Context, resetToken, newSecret string) error {
	done := s.begin()
	defer done()

	resetToken = strings.TrimSpace(resetToken)
	if err := check(resetForm{Token: resetToken, Password: newSecret}); err != nil {
		return s.fail(err, MsgResetConfirmFailed)
	}

	req := apiclient.ResetPasswordRequest{Token: resetToken, Password: newSecret}
	if err := s.api.Do(ctx, http.MethodPost, apiclient.PathResetPassword, nil, req, nil); err != nil {
		return s.fail(err, MsgResetConfirmFailed)
	}
	s.logger.Info().Msg("password reset confirmed")
	return nil
}

// DeleteAccount deletes the signed in account and then forgets the session.
func (s *Session) DeleteAccount(ctx context.Context) error {
	done := s.begin()
	defer done()

	if err := s.api.Do(ctx, http.MethodDelete, apiclient.PathMe, nil, nil, nil); err != nil {
		return s.failAuthenticated(err, MsgDeleteAccountFailed)
	}
	s.clear(ctx)
	s.logger.Info().Msg("account deleted")
	return nil
}

// handleUnauthorized runs when the pipeline gives up on the session.
func (s *Session) handleUnauthorized(ctx context.Context) {
	s.clear(ctx)
	if s.nav == nil {
		return
	}
	location := s.nav.Location(ctx)
	if location == "" || IsAuthRoute(location) {
		return
	}
	s.nav.Navigate(ctx, LoginRedirect(location))
}

func (s *Session) clear(ctx context.Context) {
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear persisted credentials")
	}
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

// begin marks an operation as running and resets the last error.
func (s *Session) begin() func() {
	s.mu.Lock()
	s.loading++
	s.errMsg = ""
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.loading--
		s.mu.Unlock()
	}
}

func (s *Session) fail(err error, fallback string) error {
	return s.record(classify(err, fallback, false))
}

// failAuthenticated is fail for calls that need a session: a 401 that left
// no credentials behind means the session has expired.
func (s *Session) failAuthenticated(err error, fallback string) error {
	return s.record(classify(err, fallback, !s.IsAuthenticated()))
}

func (s *Session) record(typed error) error {
	s.mu.Lock()
	s.errMsg = typed.Error()
	s.mu.Unlock()
	return typed
}
