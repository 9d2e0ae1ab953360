package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(context.Context) (int, error) {
	return 0, NewTransientError(errors.New("down"), http.StatusServiceUnavailable)
}

func rejected(context.Context) (int, error) {
	return 0, errors.New("inat: unexpected status 422: bad query")
}

func succeeding(context.Context) (int, error) { return 1, nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("inat", BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	_, _ = Call(ctx, b, failing)
	assert.False(t, b.Open())
	_, _ = Call(ctx, b, failing)
	assert.True(t, b.Open())

	_, err := Call(ctx, b, succeeding)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_ProbeAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker("inat", BreakerConfig{FailureThreshold: 1, Cooldown: time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Call(ctx, b, failing)
	require.True(t, b.Open())

	now = now.Add(2 * time.Second)
	assert.False(t, b.Open())

	// A failed probe reopens immediately.
	_, _ = Call(ctx, b, failing)
	assert.True(t, b.Open())

	now = now.Add(2 * time.Second)
	v, err := Call(ctx, b, succeeding)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.False(t, b.Open())
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker("inat", BreakerConfig{FailureThreshold: 2})
	ctx := context.Background()

	_, _ = Call(ctx, b, failing)
	_, _ = Call(ctx, b, succeeding)
	_, _ = Call(ctx, b, failing)
	assert.False(t, b.Open())
}

func TestBreaker_IgnoresPermanentErrors(t *testing.T) {
	b := NewBreaker("inat", BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	for range 5 {
		_, err := Call(ctx, b, rejected)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.False(t, b.Open())

	// Permanent errors do not reset the transient count either.
	_, _ = Call(ctx, b, failing)
	_, _ = Call(ctx, b, rejected)
	_, _ = Call(ctx, b, failing)
	assert.True(t, b.Open())
}

func TestBreaker_IgnoresCallerCancellation(t *testing.T) {
	b := NewBreaker("inat", BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Call(ctx, b, func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, b.Open())

	_, err = Call(context.Background(), b, failing)
	require.Error(t, err)
	assert.True(t, b.Open())
}
