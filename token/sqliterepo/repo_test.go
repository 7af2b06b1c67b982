package sqliterepo_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/token/sqliterepo"
	"github.com/stretchr/testify/require"
)

func TestRepoPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.db")

	r, err := sqliterepo.New(ctx, path)
	require.NoError(t, err)

	_, err = r.Get(ctx, token.AccessTokenKey)
	require.ErrorIs(t, err, token.ErrNotFound)

	require.NoError(t, r.Set(ctx, token.AccessTokenKey, "A1"))
	require.NoError(t, r.Set(ctx, token.AccessTokenKey, "A2"))
	require.NoError(t, r.Set(ctx, token.RefreshTokenKey, "R2"))
	require.NoError(t, r.Close())

	reopened, err := sqliterepo.New(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, token.AccessTokenKey)
	require.NoError(t, err)
	require.Equal(t, "A2", v)

	require.NoError(t, reopened.Delete(ctx, token.AccessTokenKey))
	require.NoError(t, reopened.Delete(ctx, token.AccessTokenKey))
	_, err = reopened.Get(ctx, token.AccessTokenKey)
	require.ErrorIs(t, err, token.ErrNotFound)

	v, err = reopened.Get(ctx, token.RefreshTokenKey)
	require.NoError(t, err)
	require.Equal(t, "R2", v)
}
