package workers

import (
	"chat-session/contract"
	"chat-session/domain"
	"context"
	"log/slog"
	"time"
)

// EventFanout delivers session notifications to the sinks subscribed to their topic.
//
// Delivery happens on the fanout goroutine, never on the session loop, so a sink
// may call back into the session. Each sink gets a bounded time per notification.
// A slow sink delays later notifications but never loses them.
type EventFanout struct {
	log         *slog.Logger
	queue       *NotificationQueue
	registry    contract.IRegistry
	sinkTimeout time.Duration
}

func NewEventFanout(
	log *slog.Logger,
	queue *NotificationQueue,
	registry contract.IRegistry,
	sinkTimeout time.Duration,
) *EventFanout {
	return &EventFanout{
		log:         log,
		queue:       queue,
		registry:    registry,
		sinkTimeout: sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-w.queue.Ready():
			for _, n := range w.queue.Drain() {
				if ctx.Err() != nil {
					return nil
				}
				w.Fanout(ctx, n)
			}
		case <-ctx.Done():
			w.log.Debug("Context done, stopping notification fanout")
			return nil
		}
	}
}

// Fanout hands one notification to every sink of its topic, in subscription order.
func (w *EventFanout) Fanout(ctx context.Context, n domain.Notification) {
	for _, sink := range w.registry.SinksFor(n.Topic) {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, n); err != nil {
			w.log.Warn("Sink failed to consume notification", "topic", n.Topic, "error", err)
		}
		cancel()
	}
}
