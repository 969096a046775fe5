package errors

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// RetryConfig tunes backoff for one class of dependency. MaxAttempts
// counts the first try, so MaxAttempts=1 means no retries at all.
type RetryConfig struct {
	MaxAttempts    int           `json:"max_attempts"`
	BaseDelay      time.Duration `json:"base_delay"`
	MaxDelay       time.Duration `json:"max_delay"`
	Multiplier     float64       `json:"multiplier"`
	JitterFraction float64       `json:"jitter_fraction"`
	RetryOn        []ErrorType   `json:"retry_on"`
}

// DefaultRetryConfig covers callers that did not pick a dependency-specific
// profile
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    4,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       15 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
		RetryOn: []ErrorType{
			ErrTypeExternal,
			ErrTypeDatabase,
			ErrTypeNetwork,
			ErrTypeTimeout,
			ErrTypeRateLimit,
		},
	}
}

// EmbeddingServiceRetryConfig is tuned for the remote embedding endpoint:
// patient with rate limits and transient 5xx responses, because a missed
// vector surfaces as a degraded chunk rather than a failed request.
func EmbeddingServiceRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    5,
		BaseDelay:      250 * time.Millisecond,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
		RetryOn: []ErrorType{
			ErrTypeExternal,
			ErrTypeNetwork,
			ErrTypeTimeout,
			ErrTypeRateLimit,
		},
	}
}

// DatabaseRetryConfig keeps chunk writes snappy: short delays, few
// attempts, since the pool reconnects underneath and the pipeline marks
// the document failed rather than blocking ingestion
func DatabaseRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    3,
		BaseDelay:      50 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		Multiplier:     1.5,
		JitterFraction: 0.2,
		RetryOn: []ErrorType{
			ErrTypeDatabase,
			ErrTypeNetwork,
			ErrTypeTimeout,
		},
	}
}

// Operation is a unit of work handed to the retryer or circuit breaker
type Operation func() error

// Retryer replays a failing operation with capped exponential backoff.
// Whether a failure is worth replaying is decided by the error taxonomy,
// not by the caller.
type Retryer struct {
	config *RetryConfig
}

// NewRetryer builds a retryer; nil config falls back to the default profile
func NewRetryer(config *RetryConfig) *Retryer {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &Retryer{config: config}
}

// Execute runs op until it succeeds, exhausts the attempt budget, returns
// a non-retryable error, or the context ends while waiting out a delay
func (r *Retryer) Execute(ctx context.Context, op Operation) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := r.wait(ctx, r.backoff(attempt)); err != nil {
				return err
			}
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !r.retryable(lastErr) {
			return lastErr
		}
	}

	return r.exhausted(lastErr)
}

// wait sleeps for delay or until the context ends, whichever comes first
func (r *Retryer) wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff computes the delay before the given attempt (attempt >= 2),
// growing geometrically from BaseDelay, capped at MaxDelay, then smeared
// by ±JitterFraction so a burst of failed chunks does not replay in
// lockstep against an already struggling endpoint
func (r *Retryer) backoff(attempt int) time.Duration {
	delay := float64(r.config.BaseDelay) * math.Pow(r.config.Multiplier, float64(attempt-2))
	if ceiling := float64(r.config.MaxDelay); delay > ceiling {
		delay = ceiling
	}
	if f := r.config.JitterFraction; f > 0 {
		delay += delay * f * (rand.Float64()*2 - 1)
	}
	return time.Duration(delay)
}

// retryable decides whether a failure is worth replaying. Dimension
// mismatches are carved out explicitly: the endpoint returns the same
// wrongly-sized vector on every replay, so the generator must discard
// instead.
func (r *Retryer) retryable(err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return IsRetryable(err)
	}
	if !appErr.IsRetryable() {
		return false
	}
	if appErr.Code == ErrCodeDimensionMismatch {
		return false
	}
	for _, t := range r.config.RetryOn {
		if appErr.Type == t {
			return true
		}
	}
	return false
}

// exhausted annotates the final error with the spent attempt budget
func (r *Retryer) exhausted(err error) error {
	if appErr, ok := AsAppError(err); ok {
		appErr.Details = fmt.Sprintf("gave up after %d attempts", r.config.MaxAttempts)
		return appErr
	}
	return WrapError(err, ErrTypeInternal, ErrCodeProcessingError,
		fmt.Sprintf("operation gave up after %d attempts", r.config.MaxAttempts))
}

// ErrCodeCircuitOpen is returned while the breaker is rejecting calls
const ErrCodeCircuitOpen = "EMBEDDING_CIRCUIT_OPEN"

// CircuitBreakerConfig tunes when the breaker trips and recovers
type CircuitBreakerConfig struct {
	// FailureThreshold is the run of consecutive failures that opens the
	// breaker
	FailureThreshold int `json:"failure_threshold"`
	// Cooldown is how long the breaker stays open before probing again
	Cooldown time.Duration `json:"cooldown"`
	// HalfOpenProbes is how many trial calls the half-open state admits
	HalfOpenProbes int `json:"half_open_probes"`
}

// CircuitBreakerState enumerates the breaker's three states
type CircuitBreakerState int

const (
	CircuitBreakerClosed CircuitBreakerState = iota
	CircuitBreakerOpen
	CircuitBreakerHalfOpen
)

// String returns the state name for logs
func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitBreakerClosed:
		return "closed"
	case CircuitBreakerOpen:
		return "open"
	case CircuitBreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker sheds load from a failing dependency: after a run of
// failures every call is rejected locally until a cooldown passes, then a
// few probes decide whether to close again. Safe for concurrent use; the
// embedding worker pool shares one breaker per client.
type CircuitBreaker struct {
	config *CircuitBreakerConfig

	mu       sync.Mutex
	state    CircuitBreakerState
	failures int
	probes   int
	openedAt time.Time
}

// NewCircuitBreaker builds a breaker; nil config gets conservative
// defaults sized for the embedding endpoint
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = &CircuitBreakerConfig{
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
			HalfOpenProbes:   2,
		}
	}
	return &CircuitBreaker{config: config, state: CircuitBreakerClosed}
}

// Execute runs op unless the breaker is rejecting calls
func (cb *CircuitBreaker) Execute(ctx context.Context, op Operation) error {
	if !cb.admit() {
		return NewExternalServiceError(ErrCodeCircuitOpen,
			"embedding endpoint circuit open, call rejected locally", nil)
	}

	err := op()
	cb.observe(err)
	return err
}

// admit reports whether a call may proceed, transitioning open -> half-open
// once the cooldown has passed
func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitBreakerClosed:
		return true
	case CircuitBreakerOpen:
		if time.Since(cb.openedAt) < cb.config.Cooldown {
			return false
		}
		cb.state = CircuitBreakerHalfOpen
		cb.probes = 0
		return true
	case CircuitBreakerHalfOpen:
		return cb.probes < cb.config.HalfOpenProbes
	default:
		return false
	}
}

// observe folds one call outcome into the breaker state
func (cb *CircuitBreaker) observe(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitBreakerClosed:
		if err == nil {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.trip()
		}
	case CircuitBreakerHalfOpen:
		cb.probes++
		if err != nil {
			cb.trip()
			return
		}
		if cb.probes >= cb.config.HalfOpenProbes {
			cb.state = CircuitBreakerClosed
			cb.failures = 0
		}
	}
}

// trip opens the breaker; callers hold cb.mu
func (cb *CircuitBreaker) trip() {
	cb.state = CircuitBreakerOpen
	cb.openedAt = time.Now()
	cb.failures = cb.config.FailureThreshold
}

// GetState returns the current breaker state
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
