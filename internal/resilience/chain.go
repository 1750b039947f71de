// Package resilience provides the ordered fallback chain used by every
// external-provider gateway (synthesis, transcription, scoring, question
// generation).
//
// A Chain holds a primary and zero or more fallback instances of the same
// provider type. Each tier gets a uniform per-call timeout and its own
// breaker, so a provider that keeps failing is skipped outright instead of
// burning its timeout on every call. Tiers are tried in registration order;
// a timed-out call is treated identically to a provider error.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrAllFailed is returned when every tier in a [Chain] fails or is
// currently suspended by its breaker.
var ErrAllFailed = errors.New("all providers failed")

// ErrSuspended is the per-tier error recorded when a breaker skips a call.
var ErrSuspended = errors.New("provider suspended after repeated failures")

// breaker suspends a tier after maxFailures consecutive failures until
// retryAfter has elapsed. A single success closes it again.
type breaker struct {
	mu          sync.Mutex
	maxFailures int
	retryAfter  time.Duration
	failures    int
	lastFailure time.Time
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.maxFailures {
		return true
	}
	return time.Since(b.lastFailure) >= b.retryAfter
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		return
	}
	b.failures = 0
}

// tier pairs a provider value with its name and breaker.
type tier[T any] struct {
	name    string
	value   T
	breaker *breaker
}

// Config tunes a [Chain]. Zero values get sensible defaults.
type Config struct {
	// Timeout bounds each individual tier attempt. Default: 15s.
	Timeout time.Duration

	// MaxFailures is how many consecutive failures suspend a tier. Default: 3.
	MaxFailures int

	// RetryAfter is how long a suspended tier stays skipped. Default: 30s.
	RetryAfter time.Duration
}

// Chain is an ordered list of same-typed providers tried until one succeeds.
type Chain[T any] struct {
	mu    sync.RWMutex
	name  string
	tiers []tier[T]
	cfg   Config
	log   zerolog.Logger
}

// NewChain creates an empty Chain. name labels the chain in logs
// (e.g., "tts", "scoring").
func NewChain[T any](name string, cfg Config, log zerolog.Logger) *Chain[T] {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = 30 * time.Second
	}
	return &Chain[T]{
		name: name,
		cfg:  cfg,
		log:  log.With().Str("chain", name).Logger(),
	}
}

// Add appends a tier. Tiers are tried in the order they were added.
func (c *Chain[T]) Add(name string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiers = append(c.tiers, tier[T]{
		name:  name,
		value: value,
		breaker: &breaker{
			maxFailures: c.cfg.MaxFailures,
			retryAfter:  c.cfg.RetryAfter,
		},
	})
}

// Len returns the number of registered tiers.
func (c *Chain[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tiers)
}

// Execute tries fn against each tier in order until one succeeds, applying
// the chain's per-call timeout to each attempt. Suspended tiers are skipped.
// Returns [ErrAllFailed] wrapped with the last error if every tier fails,
// or ErrAllFailed alone when the chain is empty.
//
// This is a package-level function because Go does not support method-level
// type parameters.
func Execute[T any, R any](ctx context.Context, c *Chain[T], fn func(context.Context, T) (R, error)) (R, error) {
	var zero R

	c.mu.RLock()
	tiers := make([]tier[T], len(c.tiers))
	copy(tiers, c.tiers)
	c.mu.RUnlock()

	var lastErr error
	for i := range tiers {
		t := &tiers[i]

		if !t.breaker.allow() {
			c.log.Debug().Str("provider", t.name).Msg("skipping suspended provider")
			lastErr = ErrSuspended
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		result, err := fn(attemptCtx, t.value)
		cancel()

		t.breaker.record(err)

		if err == nil {
			return result, nil
		}
		lastErr = err
		c.log.Warn().
			Str("provider", t.name).
			Err(err).
			Msg("provider failed, trying next tier")

		// A cancelled parent means the caller is gone; stop trying tiers.
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%w: %v", ErrAllFailed, ctx.Err())
		}
	}

	if lastErr == nil {
		return zero, ErrAllFailed
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
