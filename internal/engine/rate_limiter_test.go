package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsUpToBudget(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < messagesPerMinute; i++ {
		require.True(t, rl.Allow("conn-1"), "send %d should be within budget", i)
	}
	require.False(t, rl.Allow("conn-1"))
}

func TestRateLimiter_TracksConnectionsIndependently(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < messagesPerMinute; i++ {
		rl.Allow("conn-1")
	}
	require.False(t, rl.Allow("conn-1"))
	require.True(t, rl.Allow("conn-2"))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < messagesPerMinute; i++ {
		rl.Allow("conn-1")
	}
	require.False(t, rl.Allow("conn-1"))

	rl.mu.Lock()
	rl.clients["conn-1"].windowStart = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	require.True(t, rl.Allow("conn-1"))
}

func TestRateLimiter_ForgetDropsState(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < messagesPerMinute; i++ {
		rl.Allow("conn-1")
	}
	rl.Forget("conn-1")
	require.True(t, rl.Allow("conn-1"))
}

func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	rl := NewRateLimiter()
	rl.Allow("stale")
	rl.Allow("fresh")

	rl.mu.Lock()
	rl.clients["stale"].windowStart = time.Now().Add(-10 * time.Minute)
	rl.mu.Unlock()

	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	require.NotContains(t, rl.clients, "stale")
	require.Contains(t, rl.clients, "fresh")
}
