package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/core/port"
	"github.com/CyberDuck79/fullstack-template/internal/infra/security"
	"github.com/CyberDuck79/fullstack-template/internal/repository"
)

// casRetries bounds how often a write is retried after losing the
// row-version race to a writer in another process.
const casRetries = 3

// RefreshTokenStore manages the per-user list of hashed refresh tokens.
// Raw tokens never reach storage; only their Argon2id hashes do. The list
// is oldest-first and capped at domain.MaxRefreshTokens.
//
// Mutations are serialized twice: a per-user mutex orders writers inside
// this process, and the repository's row-version compare-and-swap catches
// writers in other processes. Losing the CAS reloads the row and retries.
type RefreshTokenStore struct {
	users port.UserRepository
	pool  *security.HashPool

	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

// NewRefreshTokenStore builds a store around the user repository.
func NewRefreshTokenStore(users port.UserRepository, pool *security.HashPool) *RefreshTokenStore {
	return &RefreshTokenStore{
		users: users,
		pool:  pool,
		locks: make(map[int64]*userLock),
	}
}

func (s *RefreshTokenStore) lockUser(id int64) *userLock {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &userLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return l
}

func (s *RefreshTokenStore) unlockUser(id int64, l *userLock) {
	l.Unlock()

	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
	s.mu.Unlock()
}

// match returns the index of the stored hash the raw token verifies
// against, or -1. Every comparison runs to completion before its result is
// inspected.
func (s *RefreshTokenStore) match(ctx context.Context, rawToken string, hashes []string) (int, error) {
	for i, hash := range hashes {
		ok, err := s.pool.Verify(ctx, rawToken, hash)
		if err != nil {
			return -1, fmt.Errorf("compare refresh token: %w", err)
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

// Validate reports whether the raw token belongs to the user's stored
// session list. It returns ErrUnauthorized when no stored hash matches.
func (s *RefreshTokenStore) Validate(ctx context.Context, user *domain.User, rawToken string) error {
	idx, err := s.match(ctx, rawToken, user.RefreshTokenHashes)
	if err != nil {
		return err
	}
	if idx < 0 {
		return ErrUnauthorized
	}
	return nil
}

// mutate loads the user's current list, applies fn, and writes the result
// under the row-version CAS, retrying on conflict. fn returning (nil, nil)
// skips the write.
func (s *RefreshTokenStore) mutate(ctx context.Context, userID int64, fn func(hashes []string) ([]string, error)) error {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load user %d: %w", userID, err)
		}

		next, err := fn(user.RefreshTokenHashes)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		err = s.users.UpdateRefreshTokens(ctx, userID, next, user.TokenVersion)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return fmt.Errorf("store refresh tokens: %w", err)
		}
		lastErr = err
	}
	return fmt.Errorf("store refresh tokens after %d attempts: %w", casRetries, lastErr)
}

// Append hashes the raw token and adds it to the user's list, evicting the
// oldest entry once the list would exceed domain.MaxRefreshTokens.
func (s *RefreshTokenStore) Append(ctx context.Context, userID int64, rawToken string) error {
	hash, err := s.pool.Hash(ctx, rawToken)
	if err != nil {
		return fmt.Errorf("hash refresh token: %w", err)
	}

	l := s.lockUser(userID)
	defer s.unlockUser(userID, l)

	return s.mutate(ctx, userID, func(hashes []string) ([]string, error) {
		next := append(append([]string(nil), hashes...), hash)
		if overflow := len(next) - domain.MaxRefreshTokens; overflow > 0 {
			next = next[overflow:]
		}
		return next, nil
	})
}

// Rotate atomically replaces the presented token with its successor: the
// matched hash is removed and the new one appended in a single storage
// write. A token absent from the list fails with ErrUnauthorized, which
// callers treat as a revoked session.
func (s *RefreshTokenStore) Rotate(ctx context.Context, userID int64, oldToken, newToken string) error {
	newHash, err := s.pool.Hash(ctx, newToken)
	if err != nil {
		return fmt.Errorf("hash refresh token: %w", err)
	}

	l := s.lockUser(userID)
	defer s.unlockUser(userID, l)

	return s.mutate(ctx, userID, func(hashes []string) ([]string, error) {
		idx, err := s.match(ctx, oldToken, hashes)
		if err != nil {
			return nil, err
		}
		if idx < 0 {
			return nil, ErrUnauthorized
		}

		next := make([]string, 0, len(hashes))
		next = append(next, hashes[:idx]...)
		next = append(next, hashes[idx+1:]...)
		next = append(next, newHash)
		if overflow := len(next) - domain.MaxRefreshTokens; overflow > 0 {
			next = next[overflow:]
		}
		return next, nil
	})
}

// Revoke removes the presented token from the user's list. Revoking a
// token that is not stored is a no-op.
func (s *RefreshTokenStore) Revoke(ctx context.Context, userID int64, rawToken string) error {
	l := s.lockUser(userID)
	defer s.unlockUser(userID, l)

	return s.mutate(ctx, userID, func(hashes []string) ([]string, error) {
		idx, err := s.match(ctx, rawToken, hashes)
		if err != nil {
			return nil, err
		}
		if idx < 0 {
			return nil, nil
		}

		next := make([]string, 0, len(hashes)-1)
		next = append(next, hashes[:idx]...)
		next = append(next, hashes[idx+1:]...)
		return next, nil
	})
}

// RevokeAll clears every stored session for the user.
func (s *RefreshTokenStore) RevokeAll(ctx context.Context, userID int64) error {
	l := s.lockUser(userID)
	defer s.unlockUser(userID, l)

	return s.mutate(ctx, userID, func(hashes []string) ([]string, error) {
		if len(hashes) == 0 {
			return nil, nil
		}
		return []string{}, nil
	})
}
