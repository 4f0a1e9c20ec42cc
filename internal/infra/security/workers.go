package security

import (
	"context"
	"fmt"
	"runtime"
)

// HashPool bounds the number of Argon2id computations running at once.
// Hashing is deliberately expensive (~100ms of CPU per call); without a cap
// a burst of logins could saturate every scheduler thread and starve the
// request-accept path. Callers block on a semaphore slot and honour context
// cancellation while waiting.
type HashPool struct {
	sem chan struct{}
}

// NewHashPool creates a pool limited to size concurrent computations.
// A non-positive size defaults to GOMAXPROCS-1 with a floor of one.
func NewHashPool(size int) *HashPool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0) - 1
		if size < 1 {
			size = 1
		}
	}
	return &HashPool{sem: make(chan struct{}, size)}
}

func (p *HashPool) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquire hash slot: %w", ctx.Err())
	}
}

func (p *HashPool) release() {
	<-p.sem
}

// Hash computes an Argon2id hash inside the pool.
func (p *HashPool) Hash(ctx context.Context, secret string) (string, error) {
	if err := p.acquire(ctx); err != nil {
		return "", err
	}
	defer p.release()

	return HashSecret(secret)
}

// Verify compares a secret against a stored hash inside the pool.
func (p *HashPool) Verify(ctx context.Context, secret, encoded string) (bool, error) {
	if err := p.acquire(ctx); err != nil {
		return false, err
	}
	defer p.release()

	return VerifySecret(secret, encoded)
}
