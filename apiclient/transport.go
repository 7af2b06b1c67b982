package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/token/refresh"
	"github.com/rs/zerolog"
)

// Refresher obtains a new credential pair, coalescing concurrent callers.
type Refresher interface {
	Refresh(ctx context.Context) (refresh.Result, error)
}

// UnauthorizedFunc is called when the session cannot be recovered. ctx is the
// context of the request that detected it.
type UnauthorizedFunc func(ctx context.Context)

type retriedKey struct{}

// Transport is the single chokepoint for outbound API calls. It attaches the
// bearer credential and turns a 401 into refresh-and-replay, or into a
// session loss when no refresh is possible.
type Transport struct {
	base      http.RoundTripper
	store     *token.Store
	refresher Refresher
	logger    zerolog.Logger

	mu             sync.RWMutex
	onUnauthorized UnauthorizedFunc
}

var _ http.RoundTripper = (*Transport)(nil)

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, store *token.Store, refresher Refresher, logger zerolog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:      base,
		store:     store,
		refresher: refresher,
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// SetOnUnauthorized installs the single unauthorized observer. The last
// registration wins; nil removes it.
func (t *Transport) SetOnUnauthorized(fn UnauthorizedFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUnauthorized = fn
}

func (t *Transport) unauthorizedHandler() UnauthorizedFunc {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onUnauthorized
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	sentWith := t.store.Get().Access
	resp, err := t.send(req, sentWith)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	return t.recover(req, sentWith, resp)
}

// recover handles a 401. It returns either the replayed response or the
// original 401 response.
func (t *Transport) recover(req *http.Request, sentWith string, resp *http.Response) (*http.Response, error) {
	ctx := req.Context()
	logger := t.logger.With().Str("path", req.URL.Path).Logger()

	if isAuthEndpoint(req.URL.Path) {
		return resp, nil
	}
	if isRetried(ctx) {
		logger.Debug().Msg("401 after replay, giving up")
		return resp, nil
	}

	current := t.store.Get()
	if !current.HasRefresh() {
		t.sessionLost(ctx, "no refresh token")
		return resp, nil
	}
	if !canReplay(req) {
		logger.Warn().Msg("401 on a request whose body cannot be replayed")
		return resp, nil
	}

	next := current
	if current.Access == "" || current.Access == sentWith {
		result, err := t.refresher.Refresh(ctx)
		switch {
		case err == nil:
			next = result.Pair
		case ctx.Err() != nil:
			drain(resp)
			return nil, ctx.Err()
		case result.Leader || errors.Is(err, refresh.ErrNoRefreshToken):
			t.sessionLost(ctx, err.Error())
			return resp, nil
		default:
			// a queued caller; the leader already reported the session loss
			return resp, nil
		}
	} else {
		logger.Debug().Msg("credentials rotated while in flight, replaying")
	}

	retry, err := rewind(req)
	if err != nil {
		return resp, nil
	}
	drain(resp)
	return t.send(retry, next.Access)
}

func (t *Transport) send(req *http.Request, access string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if access != "" {
		out.Header.Set("Authorization", "Bearer "+access)
	} else {
		out.Header.Del("Authorization")
	}
	if out.Header.Get(headerRequestID) == "" {
		out.Header.Set(headerRequestID, uuid.NewString())
	}
	if out.Header.Get("Accept") == "" {
		out.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(out)
	event := t.logger.Debug().
		Str("method", out.Method).
		Str("path", out.URL.Path).
		Str("request_id", out.Header.Get(headerRequestID)).
		Bool("bearer", access != "").
		Dur("elapsed", time.Since(start))
	if err != nil {
		event.Err(err).Msg("api call failed")
		return nil, err
	}
	event.Int("status", resp.StatusCode).Msg("api call")
	return resp, nil
}

// sessionLost clears the credentials and notifies the observer.
func (t *Transport) sessionLost(ctx context.Context, reason string) {
	if err := t.store.Clear(context.WithoutCancel(ctx)); err != nil {
		t.logger.Error().Err(err).Msg("failed to clear credentials")
	}
	t.logger.Warn().Str("reason", reason).Msg("session lost")
	if fn := t.unauthorizedHandler(); fn != nil {
		fn(ctx)
	}
}

// isAuthEndpoint reports whether a 401 from path must never trigger recovery.
func isAuthEndpoint(path string) bool {
	return strings.HasSuffix(path, PathLogin) || strings.HasSuffix(path, PathRefresh)
}

// WithoutRecovery marks ctx so that a 401 on requests made with it is returned
// as is, with no refresh and no session loss.
func WithoutRecovery(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

func hasBody(req *http.Request) bool {
	return req.Body != nil && req.Body != http.NoBody
}

func canReplay(req *http.Request) bool {
	return !hasBody(req) || req.GetBody != nil
}

// rewind returns a copy of req tagged as retried, with a fresh body.
func rewind(req *http.Request) (*http.Request, error) {
	out := req.Clone(context.WithValue(req.Context(), retriedKey{}, true))
	if hasBody(req) {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind body: %w", err)
		}
		out.Body = body
	}
	return out, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
