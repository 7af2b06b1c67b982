package apiclient

import (
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/token"
)

// TokenResponse is the body returned by the login and refresh endpoints.
type TokenResponse struct {
	// AccessToken is sent as "Authorization: Bearer <access_token>".
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged at /auth/refresh for a new pair. The server
	// rotates it on every refresh.
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "bearer".
	TokenType string `json:"token_type,omitempty"`
}

func (r TokenResponse) Pair() token.Pair {
	return token.Pair{Access: r.AccessToken, Refresh: r.RefreshToken}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse carries the reset token directly; there is no email
// delivery in this deployment. Token is null when the server issued none.
type ForgotPasswordResponse struct {
	Token *string `json:"token"`
}

func (r ForgotPasswordResponse) ResetToken() string {
	return utils.Value(r.Token)
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}
