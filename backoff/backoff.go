// Package backoff computes the delay before a job's next retry attempt.
// A worker reaches for a Strategy when a step returns
// jobs.RetryWithBackoff rather than a fixed jobs.Retry(delay); the
// registry's RunningJob.Retries is what feeds Strategy.Delay its
// retries count. Strategies are stateless except ExponentialWithJitter's
// optional Source, which an engine can share across every worker.
package backoff

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Strategy computes the delay before a job's next retry. retries is the
// handler's cumulative retry count as reported by
// registry.RunningJob.Retries before this attempt is committed — 0 for
// the first retry.
type Strategy interface {
	Delay(retries int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of retry count.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Linear
// ──────────────────────────────────────────────────

// Linear increases the delay linearly with the retry count.
// Delay = min(Initial * (retries+1), Max).
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear creates a linear backoff strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * (retries+1), capped at Max.
func (l *Linear) Delay(retries int) time.Duration {
	d := l.Initial * time.Duration(retries+1)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay with each retry.
// Delay = min(Initial * 2^retries, Max).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * 2^retries, capped at Max.
func (e *Exponential) Delay(retries int) time.Duration {
	d := time.Duration(float64(e.Initial) * math.Pow(2, float64(retries)))
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter (full jitter)
// ──────────────────────────────────────────────────

// Source supplies the jitter fraction ExponentialWithJitter scales its
// exponential base by. A JobsEngine can construct one Source with
// NewSource and hand it to every retrying worker via WithBackoffStrategy
// so the whole engine draws jitter from a single generator instead of
// each strategy instance reaching for the package-level one
// independently.
type Source interface {
	Float64() float64
}

// globalSource delegates to math/rand/v2's top-level generator, which is
// already safe for concurrent use by multiple worker goroutines.
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// lockedSource wraps a *rand.Rand so a seeded generator can be shared
// safely across worker goroutines, none of which otherwise coordinate
// with each other.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource creates a Source seeded from seed1/seed2, for an engine that
// wants every retry delay reproducible across a run (e.g. in tests)
// instead of drawing from the global generator.
func NewSource(seed1, seed2 uint64) Source {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// ExponentialWithJitter applies full jitter to an exponential base.
// Delay = random value in [0, min(Initial * 2^retries, Max)]. This
// prevents many simultaneously retrying jobs from all waking up at
// once and re-contending for the same worker pool.
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration

	// Source supplies the jitter fraction. Nil uses the package-level
	// generator.
	Source Source
}

// NewExponentialWithJitter creates an exponential backoff with full
// jitter, drawing from the package-level generator.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

// NewExponentialWithJitterFromSource is like NewExponentialWithJitter
// but draws jitter from src rather than the package-level generator.
func NewExponentialWithJitterFromSource(initial, maxDelay time.Duration, src Source) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay, Source: src}
}

// Delay returns a random duration in [0, min(Initial * 2^retries, Max)].
func (e *ExponentialWithJitter) Delay(retries int) time.Duration {
	base := float64(e.Initial) * math.Pow(2, float64(retries))
	if e.Max > 0 && base > float64(e.Max) {
		base = float64(e.Max)
	}

	src := e.Source
	if src == nil {
		src = globalSource{}
	}
	return time.Duration(src.Float64() * base)
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the default backoff used by the engine:
// ExponentialWithJitter with 1s initial and 1m max.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(1*time.Second, 1*time.Minute)
}
