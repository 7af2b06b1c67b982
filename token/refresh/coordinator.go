package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/rs/zerolog"
)

var (
	ErrRefreshFailed  = apperrors.ErrRefreshFailed
	ErrNoRefreshToken = apperrors.ErrNoRefreshToken
)

// Exchanger trades a refresh token for a new credential pair.
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (token.Pair, error)
}

// ExchangerFunc adapts a function to Exchanger.
type ExchangerFunc func(ctx context.Context, refreshToken string) (token.Pair, error)

func (f ExchangerFunc) Exchange(ctx context.Context, refreshToken string) (token.Pair, error) {
	return f(ctx, refreshToken)
}

type State int

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

// Result describes how a Refresh call settled for one caller.
type Result struct {
	Pair token.Pair
	// Leader is true for the single caller that performed the exchange.
	Leader bool
	// Position is the 1-based order in which a queued caller was released;
	// 0 for the leader.
	Position int
}

// Stats are counters kept for logging and tests.
type Stats struct {
	Exchanges int // network exchanges started
	Waiters   int // callers that queued behind an in-flight exchange
	Queued    int // callers currently queued
}

type outcome struct {
	pair     token.Pair
	err      error
	position int
}

// Coordinator guarantees at most one refresh exchange is in flight. Callers
// arriving while an exchange runs are queued and released, in arrival order,
// exactly once when it settles.
type Coordinator struct {
	store     *token.Store
	exchanger Exchanger
	logger    zerolog.Logger

	mu      sync.Mutex
	state   State
	waiters []chan outcome
	stats   Stats
}

func NewCoordinator(store *token.Store, exchanger Exchanger, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:     store,
		exchanger: exchanger,
		logger:    logger.With().Str("component", "refresh").Logger(),
	}
}

// Refresh exchanges the stored refresh token for a new pair, or waits for the
// exchange already in flight. On success the store holds the new pair before
// any caller is released; on failure the store has been cleared and every
// caller receives an error wrapping ErrRefreshFailed.
//
// The exchange itself is detached from the leader's cancellation so one
// abandoned request cannot fail the refresh for everyone queued behind it.
func (c *Coordinator) Refresh(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.state == Refreshing {
		ch := make(chan outcome, 1)
		c.waiters = append(c.waiters, ch)
		c.stats.Waiters++
		c.mu.Unlock()

		select {
		case o := <-ch:
			return Result{Pair: o.pair, Position: o.position}, o.err
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	refreshToken := c.store.Get().Refresh
	if refreshToken == "" {
		c.mu.Unlock()
		return Result{}, ErrNoRefreshToken
	}
	c.state = Refreshing
	c.stats.Exchanges++
	c.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	pair, err := c.exchanger.Exchange(detached, refreshToken)
	if err == nil && pair.Access == "" {
		err = errors.New("refresh response missing access_token")
	}

	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		if clearErr := c.store.Clear(detached); clearErr != nil {
			c.logger.Error().Err(clearErr).Msg("failed to clear credentials after refresh failure")
		}
		pair = token.Pair{}
	} else if setErr := c.store.Set(detached, pair.Access, pair.Refresh); setErr != nil {
		// The in-memory pair is already updated; replays can proceed.
		c.logger.Error().Err(setErr).Msg("failed to persist refreshed credentials")
	}

	released := c.settle(outcome{pair: pair, err: err})
	if err != nil {
		c.logger.Warn().Err(err).Int("released", released).Msg("token refresh failed")
	} else {
		c.logger.Debug().Int("released", released).Msg("token refreshed")
	}
	return Result{Pair: pair, Leader: true}, err
}

// settle drains the whole queue, in append order, and returns to Idle.
func (c *Coordinator) settle(o outcome) int {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.state = Idle
	c.mu.Unlock()

	for i, ch := range waiters {
		o.position = i + 1
		ch <- o
	}
	return len(waiters)
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Queued = len(c.waiters)
	return s
}
