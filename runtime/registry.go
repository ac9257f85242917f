package runtime

import (
	"chat-session/contract"
	"chat-session/domain"
	"sync"

	"github.com/google/uuid"
)

type subscription struct {
	topic domain.Topic
	sink  contract.EventSink
}

// Registry keeps the host's subscriptions per notification topic.
type Registry struct {
	mu            sync.RWMutex
	subscriptions map[string]subscription   // subscription id -> subscription
	byTopic       map[domain.Topic][]string // topic -> subscription ids, in subscribe order
}

func NewRegistry() *Registry {
	return &Registry{
		subscriptions: make(map[string]subscription),
		byTopic:       make(map[domain.Topic][]string),
	}
}

// Subscribe registers sink for topic and returns the id to unsubscribe with.
func (r *Registry) Subscribe(topic domain.Topic, sink contract.EventSink) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	r.subscriptions[id] = subscription{topic: topic, sink: sink}
	r.byTopic[topic] = append(r.byTopic[topic], id)
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[id]
	if !ok {
		return
	}
	delete(r.subscriptions, id)

	ids := r.byTopic[sub.topic]
	for i, existing := range ids {
		if existing == id {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	// No empty topic entries left behind
	if len(ids) == 0 {
		delete(r.byTopic, sub.topic)
		return
	}
	r.byTopic[sub.topic] = ids
}

// SinksFor returns a snapshot of the sinks subscribed to topic.
func (r *Registry) SinksFor(topic domain.Topic) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, ok := r.byTopic[topic]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(ids))
	for _, id := range ids {
		sinks = append(sinks, r.subscriptions[id].sink)
	}
	return sinks
}

func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscriptions = make(map[string]subscription)
	r.byTopic = make(map[domain.Topic][]string)
}
