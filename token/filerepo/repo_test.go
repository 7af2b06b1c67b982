package filerepo_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/token/filerepo"
	"github.com/stretchr/testify/require"
)

func TestPlaintextRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")

	r, err := filerepo.New(path, "")
	require.NoError(t, err)

	_, err = r.Get(ctx, token.AccessTokenKey)
	require.ErrorIs(t, err, token.ErrNotFound)

	require.NoError(t, r.Set(ctx, token.AccessTokenKey, "A1"))
	require.NoError(t, r.Set(ctx, token.RefreshTokenKey, "R1"))

	reopened, err := filerepo.New(path, "")
	require.NoError(t, err)
	v, err := reopened.Get(ctx, token.AccessTokenKey)
	require.NoError(t, err)
	require.Equal(t, "A1", v)

	require.NoError(t, reopened.Delete(ctx, token.AccessTokenKey))
	require.NoError(t, reopened.Delete(ctx, token.AccessTokenKey))
	_, err = reopened.Get(ctx, token.AccessTokenKey)
	require.ErrorIs(t, err, token.ErrNotFound)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEncryptedFileHidesTokens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	r, err := filerepo.New(path, "correct horse")
	require.NoError(t, err)
	require.NoError(t, r.Set(ctx, token.RefreshTokenKey, "super-secret-refresh"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "super-secret-refresh"))

	reopened, err := filerepo.New(path, "correct horse")
	require.NoError(t, err)
	v, err := reopened.Get(ctx, token.RefreshTokenKey)
	require.NoError(t, err)
	require.Equal(t, "super-secret-refresh", v)

	wrongKey, err := filerepo.New(path, "wrong")
	require.NoError(t, err)
	_, err = wrongKey.Get(ctx, token.RefreshTokenKey)
	require.ErrorIs(t, err, apperrors.ErrCorruptStorage)

	noKey, err := filerepo.New(path, "")
	require.NoError(t, err)
	_, err = noKey.Get(ctx, token.RefreshTokenKey)
	require.ErrorIs(t, err, apperrors.ErrCorruptStorage)
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	r, err := filerepo.New(path, "")
	require.NoError(t, err)
	_, err = r.Get(context.Background(), token.AccessTokenKey)
	require.ErrorIs(t, err, apperrors.ErrCorruptStorage)
}
