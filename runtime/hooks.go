package runtime

import (
	"chat-session/domain"
	"context"
)

// SinkFunc adapts a function to contract.EventSink.
type SinkFunc func(ctx context.Context, n domain.Notification) error

func (f SinkFunc) Consume(ctx context.Context, n domain.Notification) error {
	return f(ctx, n)
}

// SubscribeEvents calls fn for every lifecycle event. The returned function unsubscribes.
func (o *Orchestrator) SubscribeEvents(fn func(domain.ChatEvent)) func() {
	id := o.registry.Subscribe(domain.TopicLifecycle, SinkFunc(func(_ context.Context, n domain.Notification) error {
		fn(n.Event)
		return nil
	}))
	return func() { o.registry.Unsubscribe(id) }
}

// SubscribeTranscriptItem calls fn each time a single item is added or changed.
func (o *Orchestrator) SubscribeTranscriptItem(fn func(domain.TranscriptItem)) func() {
	id := o.registry.Subscribe(domain.TopicItem, SinkFunc(func(_ context.Context, n domain.Notification) error {
		fn(n.Item)
		return nil
	}))
	return func() { o.registry.Unsubscribe(id) }
}

// SubscribeTranscript calls fn with the full ordered transcript after each structural change.
func (o *Orchestrator) SubscribeTranscript(fn func([]domain.TranscriptItem)) func() {
	id := o.registry.Subscribe(domain.TopicTranscript, SinkFunc(func(_ context.Context, n domain.Notification) error {
		fn(n.Transcript)
		return nil
	}))
	return func() { o.registry.Unsubscribe(id) }
}

// Hooks are optional per-event callbacks for hosts that don't want to switch on event types.
type Hooks struct {
	OnConnectionEstablished   func()
	OnConnectionReEstablished func()
	OnConnectionBroken        func()
	OnDeepHeartbeatFailure    func()
	OnChatEnded               func()
	OnTyping                  func(item *domain.TranscriptItem)
	OnReceipt                 func(evt domain.ChatEvent)
}

// Register subscribes every non-nil hook at once.
func (h Hooks) Register(o *Orchestrator) func() {
	call := func(fn func()) {
		if fn != nil {
			fn()
		}
	}
	return o.SubscribeEvents(func(evt domain.ChatEvent) {
		switch evt.Type {
		case domain.ConnectionEstablished:
			call(h.OnConnectionEstablished)
		case domain.ConnectionReEstablished:
			call(h.OnConnectionReEstablished)
		case domain.ConnectionBroken:
			call(h.OnConnectionBroken)
		case domain.DeepHeartbeatFailure:
			call(h.OnDeepHeartbeatFailure)
		case domain.ChatEnded:
			call(h.OnChatEnded)
		case domain.Typing:
			if h.OnTyping != nil {
				h.OnTyping(evt.Item)
			}
		case domain.ReadReceipt, domain.DeliveredReceipt:
			if h.OnReceipt != nil {
				h.OnReceipt(evt)
			}
		}
	})
}
