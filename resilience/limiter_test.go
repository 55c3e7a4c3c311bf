package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket_Burst(t *testing.T) {
	tb := NewTokenBucket(TokenBucketConfig{Capacity: 3, RefillRate: 0.001})

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "token %d", i)
	}
	assert.False(t, tb.Allow())
}

func TestTokenBucket_WaitRefills(t *testing.T) {
	tb := NewTokenBucket(TokenBucketConfig{Capacity: 1, RefillRate: 100})
	require.True(t, tb.Allow())

	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestTokenBucket_WaitCanceled(t *testing.T) {
	tb := NewTokenBucket(TokenBucketConfig{Capacity: 1, RefillRate: 0.001})
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tb.Wait(ctx), context.DeadlineExceeded)
}

func TestPerSourceLimiter_SeparateBuckets(t *testing.T) {
	p := NewPerSourceLimiter(TokenBucketConfig{Capacity: 1, RefillRate: 0.001})

	assert.True(t, p.Allow("api.nuget.org"))
	assert.False(t, p.Allow("api.nuget.org"))
	assert.True(t, p.Allow("pkgs.dev.azure.com"))
	require.NoError(t, p.Wait(context.Background(), "myget.org"))
}
