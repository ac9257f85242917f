package runtime

import (
	"chat-session/domain"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type Sink struct {
	name string
}

func (s *Sink) Consume(ctx context.Context, n domain.Notification) error {
	return nil
}

func TestRegistry_Subscribe_One_Topic(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := &Sink{name: "events"}

	// Given nothing is subscribed
	req.Empty(registry.SinksFor(domain.TopicLifecycle))

	// When a sink subscribes to lifecycle events
	id := registry.Subscribe(domain.TopicLifecycle, sink)

	// Then only that topic reaches it
	req.NotEmpty(id)
	req.Equal([]*Sink{sink}, toSinks(registry, domain.TopicLifecycle))
	req.Empty(registry.SinksFor(domain.TopicItem))
}

func TestRegistry_Subscribe_Keeps_Order(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first := &Sink{name: "first"}
	second := &Sink{name: "second"}

	registry.Subscribe(domain.TopicItem, first)
	registry.Subscribe(domain.TopicItem, second)

	req.Equal([]*Sink{first, second}, toSinks(registry, domain.TopicItem))
}

func TestRegistry_Unsubscribe(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first := &Sink{name: "first"}
	second := &Sink{name: "second"}
	id1 := registry.Subscribe(domain.TopicTranscript, first)
	id2 := registry.Subscribe(domain.TopicTranscript, second)

	// When the first subscription is removed
	registry.Unsubscribe(id1)

	// Then the second keeps receiving
	req.Equal([]*Sink{second}, toSinks(registry, domain.TopicTranscript))

	// And removing twice or an unknown id is harmless
	registry.Unsubscribe(id1)
	registry.Unsubscribe("unknown")
	registry.Unsubscribe(id2)
	req.Empty(registry.SinksFor(domain.TopicTranscript))
	req.Empty(registry.byTopic)
}

func TestRegistry_Same_Sink_Twice(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := &Sink{name: "twice"}

	id1 := registry.Subscribe(domain.TopicItem, sink)
	id2 := registry.Subscribe(domain.TopicItem, sink)
	req.NotEqual(id1, id2)
	req.Len(registry.SinksFor(domain.TopicItem), 2)

	registry.Unsubscribe(id1)
	req.Len(registry.SinksFor(domain.TopicItem), 1)
}

func TestRegistry_Clear(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Subscribe(domain.TopicItem, &Sink{})
	registry.Subscribe(domain.TopicLifecycle, &Sink{})

	registry.Clear()

	req.Empty(registry.SinksFor(domain.TopicItem))
	req.Empty(registry.SinksFor(domain.TopicLifecycle))
}

func toSinks(registry *Registry, topic domain.Topic) []*Sink {
	var res []*Sink
	for _, s := range registry.SinksFor(topic) {
		res = append(res, s.(*Sink))
	}
	return res
}
