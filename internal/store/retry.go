package store

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryOpts configures query retry behavior.
type RetryOpts struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Jitter      bool
}

// DefaultRetry provides sensible retry defaults for a network-backed store.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	InitialWait: 100 * time.Millisecond,
	MaxWait:     2 * time.Second,
	Jitter:      true,
}

// RetryingStore decorates a remote store with bounded exponential
// backoff on Query. Upsert is not retried here: the batch loader owns
// its own pacing and a double upsert is harmless but noisy.
type RetryingStore struct {
	inner  Store
	opts   RetryOpts
	logger *zap.Logger
}

var _ Store = (*RetryingStore)(nil)

// WithRetry wraps a store with DefaultRetry.
func WithRetry(inner Store, logger *zap.Logger) *RetryingStore {
	return &RetryingStore{inner: inner, opts: DefaultRetry, logger: logger}
}

// WithOpts overrides the retry options.
func (s *RetryingStore) WithOpts(opts RetryOpts) *RetryingStore {
	s.opts = opts
	return s
}

// Upsert delegates to the inner store.
func (s *RetryingStore) Upsert(ctx context.Context, points []Point) error {
	return s.inner.Upsert(ctx, points)
}

// Query retries the inner query up to MaxAttempts times.
func (s *RetryingStore) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	var hits []Hit
	var err error
	wait := s.opts.InitialWait

	for attempt := 0; attempt < s.opts.MaxAttempts; attempt++ {
		hits, err = s.inner.Query(ctx, vector, k)
		if err == nil {
			return hits, nil
		}
		if attempt == s.opts.MaxAttempts-1 {
			break
		}

		sleep := wait
		if s.opts.Jitter {
			sleep = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if sleep > s.opts.MaxWait {
			sleep = s.opts.MaxWait
		}

		s.logger.Warn("vector store query failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", sleep),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}

		wait *= 2
		if wait > s.opts.MaxWait {
			wait = s.opts.MaxWait
		}
	}
	return nil, err
}
