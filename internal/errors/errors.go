package errors

import (
	"errors"
	"fmt"
)

// Common error types for the account client
var (
	// Client-side validation, never reaches the network
	ErrValidation = errors.New("validation failed")

	// The server rejected the credentials, token or request
	ErrAuth = errors.New("authentication failed")

	// Refresh failed or no refresh token is held; the local session is gone
	ErrSessionExpired = errors.New("session expired")

	// Network failure or 5xx from the server
	ErrTransient = errors.New("transient failure")

	// Token storage
	ErrNotFound       = errors.New("not found")
	ErrCorruptStorage = errors.New("corrupt token storage")

	// Refresh coordination
	ErrRefreshFailed  = errors.New("token refresh failed")
	ErrNoRefreshToken = errors.New("no refresh token")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, discarding nils
func Join(errs ...error) error {
	return errors.Join(errs...)
}
