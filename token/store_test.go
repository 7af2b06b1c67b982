package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-client/token"
	tokenfakerepo "github.com/jrsteele09/go-auth-client/token/repofake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestStoreSetMirrorsDurableCopy(t *testing.T) {
	ctx := context.Background()
	repo := tokenfakerepo.NewFakeTokenRepo()
	store := token.NewStore(repo, zerolog.Nop())

	require.True(t, store.Get().IsZero())
	require.NoError(t, store.Set(ctx, "A1", "R1"))
	require.Equal(t, token.Pair{Access: "A1", Refresh: "R1"}, store.Get())

	v, err := repo.Get(ctx, token.AccessTokenKey)
	require.NoError(t, err)
	require.Equal(t, "A1", v)
	v, err = repo.Get(ctx, token.RefreshTokenKey)
	require.NoError(t, err)
	require.Equal(t, "R1", v)

	require.NoError(t, store.Clear(ctx))
	require.True(t, store.Get().IsZero())
	require.False(t, repo.Has(token.AccessTokenKey))
	require.False(t, repo.Has(token.RefreshTokenKey))
}

func TestStoreLoadRestoresPair(t *testing.T) {
	ctx := context.Background()
	repo := tokenfakerepo.NewFakeTokenRepo()
	require.NoError(t, repo.Set(ctx, token.AccessTokenKey, "A1"))
	require.NoError(t, repo.Set(ctx, token.RefreshTokenKey, "R1"))

	store := token.NewStore(repo, zerolog.Nop())
	require.NoError(t, store.Load(ctx))
	require.Equal(t, token.Pair{Access: "A1", Refresh: "R1"}, store.Get())
}

func TestStoreLoadWithNothingPersisted(t *testing.T) {
	store := token.NewStore(tokenfakerepo.NewFakeTokenRepo(), zerolog.Nop())
	require.NoError(t, store.Load(context.Background()))
	require.False(t, store.Get().HasAccess())
	require.False(t, store.Get().HasRefresh())
}

func TestStoreMemoryWinsWhenDurableWriteFails(t *testing.T) {
	repo := tokenfakerepo.NewFakeTokenRepo()
	repo.FailWrites = true
	store := token.NewStore(repo, zerolog.Nop())

	err := store.Set(context.Background(), "A1", "R1")
	require.Error(t, err)
	require.Equal(t, "A1", store.Get().Access)
}

func TestAccessExpiry(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("unknown-to-the-client"))
	require.NoError(t, err)

	got, ok := token.AccessExpiry(signed)
	require.True(t, ok)
	require.True(t, got.Equal(exp))

	_, ok = token.AccessExpiry("opaque-token")
	require.False(t, ok)
	_, ok = token.AccessExpiry("")
	require.False(t, ok)
}
