package workers

import (
	"chat-session/errors"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionLoop_RunsClosuresInOrder(t *testing.T) {
	req := require.New(t)
	loop := NewSessionLoop(discardLogger(), 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	var order []int
	for i := 0; i < 5; i++ {
		req.NoError(loop.Post(ctx, func() { order = append(order, i) }))
	}
	// Do waits for everything queued before it
	req.NoError(loop.Do(ctx, func() {}))

	req.Equal([]int{0, 1, 2, 3, 4}, order)
}

func TestSessionLoop_Closed(t *testing.T) {
	req := require.New(t)
	loop := NewSessionLoop(discardLogger(), 0)

	loop.Close()
	loop.Close()

	req.ErrorIs(loop.Post(context.Background(), func() {}), errors.ErrSessionClosed)
	req.ErrorIs(loop.Do(context.Background(), func() {}), errors.ErrSessionClosed)
	req.NoError(loop.Run(context.Background()))
}

func TestSessionLoop_DoHonoursContext(t *testing.T) {
	req := require.New(t)
	// Nobody runs the loop
	loop := NewSessionLoop(discardLogger(), 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := loop.Do(ctx, func() {})

	req.ErrorIs(err, context.DeadlineExceeded)
}
