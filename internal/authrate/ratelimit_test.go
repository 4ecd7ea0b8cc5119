package authrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
)

// TestRateLimitExactlyAtThreshold covers spec scenario S5/§8.3: the M-th
// request in a minute succeeds, the (M+1)-th fails.
func TestRateLimitExactlyAtThreshold(t *testing.T) {
	l := New(Config{PerMinute: 60, PerHour: 1000, BlockDuration: time.Hour})
	now := time.Now()

	for i := 0; i < 60; i++ {
		require.NoError(t, l.Allow("1.2.3.4", now))
	}
	err := l.Allow("1.2.3.4", now)
	require.Error(t, err)
	assert.True(t, engramerr.Is(err, engramerr.KindRateLimited))
}

func TestRateLimitResetsAfterMinuteWindow(t *testing.T) {
	l := New(Config{PerMinute: 2, PerHour: 1000, BlockDuration: time.Hour})
	now := time.Now()

	require.NoError(t, l.Allow("5.5.5.5", now))
	require.NoError(t, l.Allow("5.5.5.5", now))
	require.Error(t, l.Allow("5.5.5.5", now))

	later := now.Add(time.Minute + time.Second)
	require.NoError(t, l.Allow("5.5.5.5", later))
}

func TestRateLimitHourBreachBlocksClient(t *testing.T) {
	l := New(Config{PerMinute: 1000, PerHour: 2, BlockDuration: 10 * time.Minute})
	now := time.Now()

	require.NoError(t, l.Allow("9.9.9.9", now))
	require.NoError(t, l.Allow("9.9.9.9", now))
	err := l.Allow("9.9.9.9", now)
	require.Error(t, err)
	assert.True(t, engramerr.Is(err, engramerr.KindRateLimited))

	// Even a minute later, still within the block window.
	err = l.Allow("9.9.9.9", now.Add(90*time.Second))
	require.Error(t, err)
	assert.True(t, engramerr.Is(err, engramerr.KindRateLimited))
}

func TestRateLimitTracksClientsIndependently(t *testing.T) {
	l := New(Config{PerMinute: 1, PerHour: 1000, BlockDuration: time.Hour})
	now := time.Now()

	require.NoError(t, l.Allow("alice-ip", now))
	require.NoError(t, l.Allow("bob-ip", now))
	require.Error(t, l.Allow("alice-ip", now))
}
