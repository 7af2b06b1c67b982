package apiclient_test

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/apiclient"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/fakeapi"
	"github.com/jrsteele09/go-auth-client/token"
	tokenfakerepo "github.com/jrsteele09/go-auth-client/token/repofake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "a@b.com"
	testPassword = "secret"
)

type itemResponse struct {
	Method string `json:"method"`
	Body   string `json:"body"`
	Bearer string `json:"bearer"`
}

type testFixture struct {
	api          *fakeapi.Server
	repo         *tokenfakerepo.FakeTokenRepo
	store        *token.Store
	client       *apiclient.Client
	unauthorized atomic.Int32
}

func setupTestFixture(t *testing.T, base http.RoundTripper) *testFixture {
	t.Helper()
	f := &testFixture{api: fakeapi.New(t), repo: tokenfakerepo.NewFakeTokenRepo()}
	f.api.AddUser(testEmail, "Ada Byron", testPassword)
	f.store = token.NewStore(f.repo, zerolog.Nop())
	f.client = apiclient.New(f.store, apiclient.Options{
		BaseURL: f.api.BaseURL(),
		Timeout: 5 * time.Second,
		Base:    base,
		Logger:  zerolog.Nop(),
	})
	f.client.Transport().SetOnUnauthorized(func(ctx context.Context) {
		f.unauthorized.Add(1)
	})
	return f
}

// signIn stores a freshly issued pair, as a completed login would.
func (f *testFixture) signIn(t *testing.T) token.Pair {
	t.Helper()
	p := f.api.Issue(testEmail)
	require.NoError(t, f.store.Set(context.Background(), p.Access, p.Refresh))
	return p
}

func TestBearerAttachedWhenAuthenticated(t *testing.T) {
	f := setupTestFixture(t, nil)
	p := f.signIn(t)

	var out itemResponse
	require.NoError(t, f.client.Do(context.Background(), http.MethodGet, "/items", nil, nil, &out))
	require.Equal(t, p.Access, out.Bearer)

	calls := f.api.CallsTo("/items")
	require.Len(t, calls, 1)
	require.Equal(t, "Bearer "+p.Access, calls[0].Authorization)
}

func TestNoBearerWhenUnauthenticated(t *testing.T) {
	f := setupTestFixture(t, nil)

	err := f.client.Do(context.Background(), http.MethodGet, "/items", nil, nil, nil)
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Not authenticated", apiErr.Detail)

	require.Empty(t, f.api.CallsTo("/items")[0].Authorization)
	require.Empty(t, f.api.CallsTo("/auth/refresh"))
	require.EqualValues(t, 1, f.unauthorized.Load())
}

func TestExpiredAccessIsRefreshedAndReplayed(t *testing.T) {
	f := setupTestFixture(t, nil)
	p := f.signIn(t)
	require.Equal(t, token.Pair{Access: "A1", Refresh: "R1"}, p)
	f.api.ExpireAccess("A1")

	var out itemResponse
	require.NoError(t, f.client.Do(context.Background(), http.MethodGet, "/items", nil, nil, &out))
	require.Equal(t, "A2", out.Bearer)

	refreshCalls := f.api.CallsTo("/auth/refresh")
	require.Len(t, refreshCalls, 1)
	q, err := url.ParseQuery(refreshCalls[0].Query)
	require.NoError(t, err)
	require.Equal(t, "R1", q.Get("refresh_token"))

	items := f.api.CallsTo("/items")
	require.Len(t, items, 2)
	require.Equal(t, "Bearer A1", items[0].Authorization)
	require.Equal(t, "Bearer A2", items[1].Authorization)

	require.Equal(t, token.Pair{Access: "A2", Refresh: "R2"}, f.store.Get())
	v, err := f.repo.Get(context.Background(), token.AccessTokenKey)
	require.NoError(t, err)
	require.Equal(t, "A2", v)
	require.Zero(t, f.unauthorized.Load())
}

func TestReplayResendsRequestBody(t *testing.T) {
	f := setupTestFixture(t, nil)
	p := f.signIn(t)
	f.api.ExpireAccess(p.Access)

	var out itemResponse
	body := map[string]string{"name": "widget"}
	require.NoError(t, f.client.Do(context.Background(), http.MethodPost, "/items", nil, body, &out))
	require.JSONEq(t, `{"name":"widget"}`, out.Body)

	items := f.api.CallsTo("/items")
	require.Len(t, items, 2)
	require.Equal(t, items[0].Body, items[1].Body)
}

func TestConcurrentUnauthorizedCallsShareOneRefresh(t *testing.T) {
	const n = 10
	f := setupTestFixture(t, nil)
	p := f.signIn(t)
	f.api.ExpireAccess(p.Access)
	f.api.RefreshGate = make(chan struct{})

	var wg sync.WaitGroup
	results := make(chan error, n)
	bearers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out itemResponse
			err := f.client.Do(context.Background(), http.MethodGet, "/items", nil, nil, &out)
			results <- err
			bearers <- out.Bearer
		}()
	}

	require.Eventually(t, func() bool {
		return f.client.Coordinator().Stats().Queued == n-1
	}, 3*time.Second, 5*time.Millisecond)
	close(f.api.RefreshGate)
	wg.Wait()
	close(results)
	close(bearers)

	for err := range results {
		require.NoError(t, err)
	}
	for b := range bearers {
		require.Equal(t, "A2", b)
	}
	require.Len(t, f.api.CallsTo("/auth/refresh"), 1)
	require.Len(t, f.api.CallsTo("/items"), 2*n)
	require.Zero(t, f.unauthorized.Load())
}

func TestConcurrentCallsAllFailWhenRefreshFails(t *testing.T) {
	const n = 6
	f := setupTestFixture(t, nil)
	p := f.signIn(t)
	f.api.ExpireAccess(p.Access)
	f.api.RevokeRefresh(p.Refresh)
	f.api.RefreshGate = make(chan struct{})

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- f.client.Do(context.Background(), http.MethodGet, "/items", nil, nil, nil)
		}()
	}

	require.Eventually(t, func() bool {
		return f.client.Coordinator().Stats().Queued == n-1
	}, 3*time.Second, 5*time.Millisecond)
	close(f.api.RefreshGate)
	wg.Wait()
	close(results)

	for err := range results {
		var apiErr *apiclient.Error
		require.ErrorAs(t, err, &apiErr)
		require.True(t, apiErr.IsUnauthorized())
	}
	require.Len(t, f.api.CallsTo("/auth/refresh"), 1)
	require.Len(t, f.api.CallsTo("/items"), n)
	require.EqualValues(t, 1, f.unauthorized.Load())
	require.True(t, f.store.Get().IsZero())
	require.False(t, f.repo.Has(token.AccessTokenKey))
	require.False(t, f.repo.Has(token.RefreshTokenKey))
}

func TestLoginUnauthorizedIsNeverRetried(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.signIn(t)

	form := url.Values{"username": {testEmail}, "password": {"wrong"}, "grant_type": {"password"}}
	err := f.client.PostForm(context.Background(), apiclient.PathLogin, form, nil)

	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "invalid credentials", apiErr.Detail)
	require.ErrorIs(t, err, apperrors.ErrAuth)
	require.Len(t, f.api.CallsTo("/auth/login"), 1)
	require.Empty(t, f.api.CallsTo("/auth/refresh"))
	require.Zero(t, f.unauthorized.Load())
	require.True(t, f.store.Get().HasAccess())
}

func TestRefreshUnauthorizedIsNeverRetried(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.signIn(t)

	err := f.client.Do(context.Background(), http.MethodPost, apiclient.PathRefresh, url.Values{"refresh_token": {"bogus"}}, nil, nil)
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	require.True(t, apiErr.IsUnauthorized())
	require.Len(t, f.api.CallsTo("/auth/refresh"), 1)
	require.Zero(t, f.unauthorized.Load())
}

func TestReplayIsAttemptedOnlyOnce(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.signIn(t)
	f.api.MeStatus = http.StatusUnauthorized

	err := f.client.Do(context.Background(), http.MethodGet, apiclient.PathMe, nil, nil, nil)
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	require.True(t, apiErr.IsUnauthorized())

	require.Len(t, f.api.CallsTo("/auth/me"), 2)
	require.Len(t, f.api.CallsTo("/auth/refresh"), 1)
	require.Zero(t, f.unauthorized.Load())
}

func TestWithoutRecoveryLeavesSessionAlone(t *testing.T) {
	f := setupTestFixture(t, nil)
	p := f.signIn(t)
	f.api.ExpireAccess(p.Access)

	err := f.client.Do(apiclient.WithoutRecovery(context.Background()), http.MethodGet, "/items", nil, nil, nil)
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	require.True(t, apiErr.IsUnauthorized())

	require.Empty(t, f.api.CallsTo("/auth/refresh"))
	require.Equal(t, p, f.store.Get())
	require.Zero(t, f.unauthorized.Load())
}

func TestServerErrorsAreNotRetried(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.signIn(t)
	f.api.MeStatus = http.StatusServiceUnavailable

	err := f.client.Do(context.Background(), http.MethodGet, apiclient.PathMe, nil, nil, nil)
	require.ErrorIs(t, err, apperrors.ErrTransient)
	require.Len(t, f.api.CallsTo("/auth/me"), 1)
	require.Empty(t, f.api.CallsTo("/auth/refresh"))
}

func TestNetworkErrorsAreTransient(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.api.Close()

	err := f.client.Do(context.Background(), http.MethodGet, apiclient.PathMe, nil, nil, nil)
	require.ErrorIs(t, err, apperrors.ErrTransient)
}

// rotatingTransport swaps in a new pair before the first response is
// returned, simulating another caller finishing a refresh meanwhile.
type rotatingTransport struct {
	once   sync.Once
	rotate func()
}

func (rt *rotatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := http.DefaultTransport.RoundTrip(req)
	rt.once.Do(rt.rotate)
	return resp, err
}

func TestRotatedCredentialsReplayWithoutRefresh(t *testing.T) {
	rt := &rotatingTransport{}
	f := setupTestFixture(t, rt)
	p := f.signIn(t)
	f.api.ExpireAccess(p.Access)
	rt.rotate = func() {
		next := f.api.Issue(testEmail)
		require.NoError(t, f.store.Set(context.Background(), next.Access, next.Refresh))
	}

	var out itemResponse
	require.NoError(t, f.client.Do(context.Background(), http.MethodGet, "/items", nil, nil, &out))
	require.Equal(t, "A2", out.Bearer)
	require.Empty(t, f.api.CallsTo("/auth/refresh"))
}

func TestParseDetail(t *testing.T) {
	require.Equal(t, "invalid credentials", apiclient.ParseDetail([]byte(`{"detail":"invalid credentials"}`)))
	require.Equal(t, "field required; too short",
		apiclient.ParseDetail([]byte(`{"detail":[{"msg":"field required"},{"msg":"too short"}]}`)))
	require.Empty(t, apiclient.ParseDetail([]byte(`<html>bad gateway</html>`)))
	require.Empty(t, apiclient.ParseDetail([]byte(`{"error":"x"}`)))
}
