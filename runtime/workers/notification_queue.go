package workers

import (
	"chat-session/domain"
	"sync"

	"github.com/samber/lo"
)

// NotificationQueue hands notifications from the session loop to the fanout.
// Push never blocks and never drops lifecycle or item notifications.
// Full transcript snapshots are coalesced: only the newest pending one is kept.
type NotificationQueue struct {
	mu      sync.Mutex
	pending []domain.Notification
	ready   chan struct{}
}

func NewNotificationQueue() *NotificationQueue {
	return &NotificationQueue{ready: make(chan struct{}, 1)}
}

func (q *NotificationQueue) Push(n domain.Notification) {
	q.mu.Lock()
	if n.Topic == domain.TopicTranscript {
		q.pending = lo.Reject(q.pending, func(p domain.Notification, _ int) bool {
			return p.Topic == domain.TopicTranscript
		})
	}
	q.pending = append(q.pending, n)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready fires after a Push. One signal may cover several notifications.
func (q *NotificationQueue) Ready() <-chan struct{} {
	return q.ready
}

// Drain returns everything pending in push order and empties the queue.
func (q *NotificationQueue) Drain() []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.pending
	q.pending = nil
	return drained
}

func (q *NotificationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
