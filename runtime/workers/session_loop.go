package workers

import (
	"chat-session/errors"
	"context"
	"log/slog"
	"sync"
)

// SessionLoop is the single goroutine allowed to touch session state.
// Everything else submits closures to it.
type SessionLoop struct {
	log       *slog.Logger
	actions   chan func()
	quit      chan struct{}
	closeOnce sync.Once
}

func NewSessionLoop(log *slog.Logger, buffer int) *SessionLoop {
	return &SessionLoop{
		log:     log,
		actions: make(chan func(), buffer),
		quit:    make(chan struct{}),
	}
}

func (l *SessionLoop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.quit:
			return nil
		case fn := <-l.actions:
			fn()
		}
	}
}

// Post queues fn without waiting for it to run.
func (l *SessionLoop) Post(ctx context.Context, fn func()) error {
	select {
	case <-l.quit:
		return errors.ErrSessionClosed
	default:
	}
	select {
	case l.actions <- fn:
		return nil
	case <-l.quit:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the loop and waits for it to return.
// It must not be called from the loop itself.
func (l *SessionLoop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := l.Post(ctx, func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-l.quit:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop. Pending closures are dropped.
func (l *SessionLoop) Close() {
	l.closeOnce.Do(func() { close(l.quit) })
}
