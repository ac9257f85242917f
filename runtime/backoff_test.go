package runtime

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextBackoffDelay_Doubles_Until_Max(t *testing.T) {
	req := require.New(t)
	cfg := BackoffConfig{InitialDelay: time.Second, Multiplier: 2, MaxDelay: 30 * time.Second}

	req.Equal(time.Second, NextBackoffDelay(cfg, 1, nil))
	req.Equal(2*time.Second, NextBackoffDelay(cfg, 2, nil))
	req.Equal(8*time.Second, NextBackoffDelay(cfg, 4, nil))
	req.Equal(30*time.Second, NextBackoffDelay(cfg, 10, nil))
	req.Equal(time.Second, NextBackoffDelay(cfg, 0, nil))
}

func TestNextBackoffDelay_Jitter_Bounds(t *testing.T) {
	req := require.New(t)
	cfg := DefaultBackoff()
	rng := rand.New(rand.NewSource(42))

	for attempt := 1; attempt <= 8; attempt++ {
		cfg.Jitter = false
		base := NextBackoffDelay(cfg, attempt, nil)
		cfg.Jitter = true
		delay := NextBackoffDelay(cfg, attempt, rng)
		req.GreaterOrEqual(delay, base/2)
		req.Less(delay, base*3/2)
	}

	// Without a source the lower bound is used
	req.Equal(500*time.Millisecond, NextBackoffDelay(cfg, 1, nil))
}

func TestNextBackoffDelay_Disabled(t *testing.T) {
	require.Zero(t, NextBackoffDelay(BackoffConfig{}, 3, nil))
}

func TestWaitBackoff_Cancelled(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.ErrorIs(waitBackoff(ctx, time.Hour), context.Canceled)
	req.NoError(waitBackoff(context.Background(), time.Millisecond))
}
