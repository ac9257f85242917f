// Package receipts batches delivered and read acknowledgements before they are sent.
package receipts

import (
	"chat-session/domain"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultWindow         = 5 * time.Second
	DefaultDeliveredGrace = 3 * time.Second
)

// Throttler deduplicates receipt requests and flushes them at most once per window.
//
// A read receipt is accepted once per message. A delivered receipt is accepted
// once per message, only while no read receipt exists for it, and only after a
// grace period during which a read receipt for the same message cancels it.
type Throttler struct {
	log     *slog.Logger
	enabled bool
	window  time.Duration
	grace   time.Duration
	flush   func(domain.PendingReceipts)

	mu          sync.Mutex
	read        map[string]struct{}
	delivered   map[string]struct{}
	pending     domain.PendingReceipts
	flushTimer  *time.Timer
	graceTimers map[string]*time.Timer
	generation  uint64
}

func NewThrottler(
	log *slog.Logger,
	enabled bool,
	window, grace time.Duration,
	flush func(domain.PendingReceipts),
) *Throttler {
	return &Throttler{
		log:         log,
		enabled:     enabled,
		window:      window,
		grace:       grace,
		flush:       flush,
		read:        make(map[string]struct{}),
		delivered:   make(map[string]struct{}),
		graceTimers: make(map[string]*time.Timer),
	}
}

func (t *Throttler) Request(kind domain.ReceiptKind, messageID string) {
	if !t.enabled || messageID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	switch kind {
	case domain.ReceiptRead:
		t.requestRead(messageID)
	case domain.ReceiptDelivered:
		t.requestDelivered(messageID)
	}
}

func (t *Throttler) requestRead(id string) {
	if _, seen := t.read[id]; seen {
		return
	}
	t.read[id] = struct{}{}
	if timer, ok := t.graceTimers[id]; ok {
		timer.Stop()
		delete(t.graceTimers, id)
	}
	if t.pending.DeliveredMessageID == id {
		t.pending.DeliveredMessageID = ""
	}
	t.pending.ReadMessageID = id
	t.ensureFlushTimer()
}

func (t *Throttler) requestDelivered(id string) {
	if _, seen := t.read[id]; seen {
		return
	}
	if _, seen := t.delivered[id]; seen {
		return
	}
	t.delivered[id] = struct{}{}
	generation := t.generation
	t.graceTimers[id] = time.AfterFunc(t.grace, func() { t.acceptDelivered(id, generation) })
	t.ensureFlushTimer()
}

func (t *Throttler) acceptDelivered(id string, generation uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if generation != t.generation {
		return
	}
	delete(t.graceTimers, id)
	if _, seen := t.read[id]; seen {
		return
	}
	t.pending.DeliveredMessageID = id
	t.ensureFlushTimer()
}

// ensureFlushTimer must be called with mu held.
func (t *Throttler) ensureFlushTimer() {
	if t.flushTimer != nil {
		return
	}
	generation := t.generation
	t.flushTimer = time.AfterFunc(t.window, func() { t.flushPending(generation) })
}

func (t *Throttler) flushPending(generation uint64) {
	t.mu.Lock()
	if generation != t.generation {
		t.mu.Unlock()
		return
	}
	pending := t.pending.Normalize()
	t.pending = domain.PendingReceipts{}
	t.flushTimer = nil
	if len(t.graceTimers) > 0 {
		// Delivered receipts still in their grace period go out with the next window
		t.ensureFlushTimer()
	}
	t.mu.Unlock()

	if pending.IsEmpty() {
		return
	}
	t.log.Debug("Flushing receipts", "read", pending.ReadMessageID, "delivered", pending.DeliveredMessageID)
	t.flush(pending)
}

// Cancel stops every timer and drops unsent receipts, so they can be requested again later.
func (t *Throttler) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTimers()
	if id := t.pending.ReadMessageID; id != "" {
		delete(t.read, id)
	}
	if id := t.pending.DeliveredMessageID; id != "" {
		delete(t.delivered, id)
	}
	t.pending = domain.PendingReceipts{}
}

// Reset forgets every receipt ever requested.
func (t *Throttler) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTimers()
	t.pending = domain.PendingReceipts{}
	t.read = make(map[string]struct{})
	t.delivered = make(map[string]struct{})
}

func (t *Throttler) stopTimers() {
	t.generation++
	if t.flushTimer != nil {
		t.flushTimer.Stop()
		t.flushTimer = nil
	}
	for id, timer := range t.graceTimers {
		timer.Stop()
		delete(t.delivered, id)
	}
	t.graceTimers = make(map[string]*time.Timer)
}
