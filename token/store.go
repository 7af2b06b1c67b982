package token

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/rs/zerolog"
)

// Store holds the process-wide credential pair and mirrors every change to a
// durable Repo. The in-memory pair is authoritative: it is updated even when
// the durable write fails.
type Store struct {
	mu     sync.RWMutex
	pair   Pair
	repo   Repo
	logger zerolog.Logger
}

// NewStore creates an empty store backed by repo. Call Load to restore a
// previously persisted pair.
func NewStore(repo Repo, logger zerolog.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger.With().Str("component", "token-store").Logger(),
	}
}

// Load restores the pair from durable storage.
func (s *Store) Load(ctx context.Context) error {
	access, err := s.read(ctx, AccessTokenKey)
	if err != nil {
		return err
	}
	refresh, err := s.read(ctx, RefreshTokenKey)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pair = Pair{Access: access, Refresh: refresh}
	s.mu.Unlock()

	s.logger.Debug().Bool("access", access != "").Bool("refresh", refresh != "").Msg("restored credentials")
	return nil
}

// Get returns a copy of the current pair.
func (s *Store) Get() Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair
}

// Set replaces the pair in memory and in durable storage.
func (s *Store) Set(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = Pair{Access: access, Refresh: refresh}
	err := apperrors.Join(
		s.write(ctx, AccessTokenKey, access),
		s.write(ctx, RefreshTokenKey, refresh),
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to persist credentials")
		return fmt.Errorf("[Store Set] %w", err)
	}
	return nil
}

// Clear removes the pair from memory and from durable storage.
func (s *Store) Clear(ctx context.Context) error {
	return s.Set(ctx, "", "")
}

// Close releases the durable storage.
func (s *Store) Close() error {
	return s.repo.Close()
}

func (s *Store) read(ctx context.Context, key string) (string, error) {
	value, err := s.repo.Get(ctx, key)
	if apperrors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("[Store Load] read %s: %w", key, err)
	}
	return value, nil
}

// write stores value under key; an empty value removes the key.
func (s *Store) write(ctx context.Context, key, value string) error {
	if value == "" {
		return s.repo.Delete(ctx, key)
	}
	return s.repo.Set(ctx, key, value)
}
