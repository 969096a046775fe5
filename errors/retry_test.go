package errors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxAttempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    maxAttempts,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     1.5,
		JitterFraction: 0,
		RetryOn:        []ErrorType{ErrTypeExternal, ErrTypeRateLimit, ErrTypeNetwork},
	}
}

func TestRetryer_ReplaysTransientFailures(t *testing.T) {
	retryer := NewRetryer(fastRetryConfig(4))

	calls := 0
	err := retryer.Execute(context.Background(), func() error {
		calls++
		if calls < 3 {
			return NewExternalServiceError(ErrCodeEmbeddingServiceFailed, "upstream 503", nil)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryer_StopsOnNonRetryable(t *testing.T) {
	retryer := NewRetryer(fastRetryConfig(4))

	calls := 0
	err := retryer.Execute(context.Background(), func() error {
		calls++
		return NewValidationError(ErrCodeInvalidInput, "bad request", nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryer_DimensionMismatchNeverReplayed(t *testing.T) {
	retryer := NewRetryer(fastRetryConfig(4))

	// the endpoint returns the same wrongly-sized vector on every call, so
	// replaying is pure waste even though the error type is retryable
	calls := 0
	err := retryer.Execute(context.Background(), func() error {
		calls++
		return NewExternalServiceError(ErrCodeDimensionMismatch, "got 512 dims, want 1536", nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryer_ExhaustsAttemptBudget(t *testing.T) {
	retryer := NewRetryer(fastRetryConfig(3))

	calls := 0
	err := retryer.Execute(context.Background(), func() error {
		calls++
		return NewExternalServiceError(ErrCodeEmbeddingServiceFailed, "still down", nil)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Details, "3 attempts")
}

func TestRetryer_ContextEndsTheWait(t *testing.T) {
	retryer := NewRetryer(fastRetryConfig(4))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retryer.Execute(ctx, func() error {
		calls++
		return NewExternalServiceError(ErrCodeEmbeddingServiceFailed, "upstream 503", nil)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCircuitBreaker_OpensAfterFailureRun(t *testing.T) {
	breaker := NewCircuitBreaker(&CircuitBreakerConfig{
		FailureThreshold: 2,
		Cooldown:         time.Minute,
		HalfOpenProbes:   1,
	})

	fail := func() error {
		return NewExternalServiceError(ErrCodeEmbeddingServiceFailed, "down", nil)
	}
	require.Error(t, breaker.Execute(context.Background(), fail))
	require.Error(t, breaker.Execute(context.Background(), fail))
	assert.Equal(t, CircuitBreakerOpen, breaker.GetState())

	// calls are now rejected locally without reaching the operation
	calls := 0
	err := breaker.Execute(context.Background(), func() error {
		calls++
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 0, calls)

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeCircuitOpen, appErr.Code)
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	breaker := NewCircuitBreaker(&CircuitBreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Millisecond,
		HalfOpenProbes:   2,
	})

	require.Error(t, breaker.Execute(context.Background(), func() error {
		return NewExternalServiceError(ErrCodeEmbeddingServiceFailed, "down", nil)
	}))
	require.Equal(t, CircuitBreakerOpen, breaker.GetState())

	time.Sleep(5 * time.Millisecond)

	ok := func() error { return nil }
	require.NoError(t, breaker.Execute(context.Background(), ok))
	assert.Equal(t, CircuitBreakerHalfOpen, breaker.GetState())
	require.NoError(t, breaker.Execute(context.Background(), ok))
	assert.Equal(t, CircuitBreakerClosed, breaker.GetState())
}

func TestCircuitBreaker_ReopensOnHalfOpenFailure(t *testing.T) {
	breaker := NewCircuitBreaker(&CircuitBreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Millisecond,
		HalfOpenProbes:   2,
	})

	fail := func() error {
		return NewExternalServiceError(ErrCodeEmbeddingServiceFailed, "down", nil)
	}
	require.Error(t, breaker.Execute(context.Background(), fail))
	time.Sleep(5 * time.Millisecond)

	require.Error(t, breaker.Execute(context.Background(), fail))
	assert.Equal(t, CircuitBreakerOpen, breaker.GetState())
}
