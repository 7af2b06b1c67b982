package sessions

import (
	"context"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-auth-client/apiclient"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"golang.org/x/oauth2"
)

var (
	ErrValidation     = apperrors.ErrValidation
	ErrAuth           = apperrors.ErrAuth
	ErrSessionExpired = apperrors.ErrSessionExpired
	ErrTransient      = apperrors.ErrTransient
)

// ValidationError is a client-side rejection; nothing was sent to the server.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// AuthError means the server rejected the credentials, token or request.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() []error {
	return []error{ErrAuth, e.Err}
}

// SessionExpiredError means the credentials are gone and could not be
// refreshed; the user has to sign in again.
type SessionExpiredError struct {
	Message string
	Err     error
}

func (e *SessionExpiredError) Error() string {
	return e.Message
}

func (e *SessionExpiredError) Unwrap() []error {
	return []error{ErrSessionExpired, e.Err}
}

// TransientError is a network failure or a 5xx; it is never retried automatically.
type TransientError struct {
	Message string
	Err     error
}

func (e *TransientError) Error() string {
	return e.Message
}

func (e *TransientError) Unwrap() []error {
	return []error{ErrTransient, e.Err}
}

// classify turns err into one of the typed errors above, using the server's
// detail as the message when present and fallback otherwise. sessionLost
// reports whether the local credentials are gone after the call.
func classify(err error, fallback string, sessionLost bool) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}

	status, detail := responseOf(err)
	msg := detail
	if msg == "" {
		msg = fallback
	}

	switch {
	case status == 0 || status >= http.StatusInternalServerError:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &TransientError{Message: fallback, Err: err}
		}
		return &TransientError{Message: msg, Err: err}
	case status == http.StatusUnauthorized && sessionLost:
		if detail == "" {
			msg = MsgSessionExpired
		}
		return &SessionExpiredError{Message: msg, Err: err}
	default:
		return &AuthError{StatusCode: status, Message: msg, Err: err}
	}
}

// responseOf extracts the HTTP status and server detail from errors returned
// by the API client or by the oauth2 token exchange. Status 0 means no
// response was received.
func responseOf(err error) (int, string) {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.Detail
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		detail := apiclient.ParseDetail(retrieveErr.Body)
		if detail == "" {
			detail = retrieveErr.ErrorDescription
		}
		return retrieveErr.Response.StatusCode, detail
	}
	return 0, ""
}
