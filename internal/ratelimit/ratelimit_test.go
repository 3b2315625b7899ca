package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReturnsNoopForZeroDelay(t *testing.T) {
	_, ok := New(0, 0).(Noop)
	assert.True(t, ok)

	_, ok = New(time.Millisecond, 2*time.Millisecond).(*SimpleRateLimiter)
	assert.True(t, ok)
}

func TestSimpleRateLimiterSpacesCalls(t *testing.T) {
	l := NewSimpleRateLimiter(30*time.Millisecond, 30*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestSimpleRateLimiterFirstCallIsImmediate(t *testing.T) {
	l := NewSimpleRateLimiter(time.Hour, time.Hour)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSimpleRateLimiterHonoursCancel(t *testing.T) {
	l := NewSimpleRateLimiter(time.Hour, time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimpleRateLimiterFailsFastPastDeadline(t *testing.T) {
	l := NewSimpleRateLimiter(time.Hour, time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	assert.Error(t, l.Wait(ctx))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSimpleRateLimiterJitterStaysInBounds(t *testing.T) {
	l := NewSimpleRateLimiter(10*time.Millisecond, 40*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx))

	for i := 0; i < 3; i++ {
		start := time.Now()
		require.NoError(t, l.Wait(ctx))
		gap := time.Since(start)
		assert.GreaterOrEqual(t, gap, 9*time.Millisecond)
		assert.Less(t, gap, 500*time.Millisecond)
	}
}

func TestNoopReportsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Noop{}.Wait(ctx), context.Canceled)
	assert.NoError(t, Noop{}.Wait(context.Background()))
}
