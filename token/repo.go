package token

import (
	"context"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// Fixed storage keys. A missing key means the user is logged out.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// ErrNotFound is returned by Repo.Get when the key is absent.
var ErrNotFound = apperrors.ErrNotFound

// Repo is the durable key/value storage that survives a restart of the client.
// Delete on a missing key is not an error.
type Repo interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
