package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// HeartbeatMonitor sends a keep-alive every interval and expects an ack before the next one.
// A tick that finds the previous heartbeat still unacknowledged reports a miss, then sends again.
type HeartbeatMonitor struct {
	log      *slog.Logger
	name     string
	deep     bool
	interval time.Duration
	send     func() error
	missed   func()

	mu         sync.Mutex
	pending    bool
	generation uint64
	cancel     context.CancelFunc
}

func NewHeartbeatMonitor(
	log *slog.Logger,
	name string,
	deep bool,
	interval time.Duration,
	send func() error,
	missed func(),
) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		log:      log,
		name:     name,
		deep:     deep,
		interval: interval,
		send:     send,
		missed:   missed,
	}
}

func (h *HeartbeatMonitor) IsDeep() bool { return h.deep }

// Start (re)starts the monitor. The first heartbeat goes out immediately.
func (h *HeartbeatMonitor) Start() {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.generation++
	h.pending = false
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	generation := h.generation
	h.mu.Unlock()

	go h.run(ctx, generation)
}

// Stop cancels the timer. Idempotent.
func (h *HeartbeatMonitor) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.generation++
	h.pending = false
}

func (h *HeartbeatMonitor) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancel != nil
}

// Ack clears the outstanding heartbeat.
func (h *HeartbeatMonitor) Ack() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = false
}

// Fail reports a reply that arrived but did not confirm health.
func (h *HeartbeatMonitor) Fail() {
	h.mu.Lock()
	running := h.cancel != nil
	h.pending = false
	h.mu.Unlock()
	if running {
		h.missed()
	}
}

func (h *HeartbeatMonitor) run(ctx context.Context, generation uint64) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.beat(generation)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.beat(generation)
		}
	}
}

func (h *HeartbeatMonitor) beat(generation uint64) {
	h.mu.Lock()
	if generation != h.generation {
		h.mu.Unlock()
		return
	}
	wasPending := h.pending
	h.pending = true
	h.mu.Unlock()

	if wasPending {
		h.log.Debug("Heartbeat not acknowledged", "monitor", h.name)
		h.missed()
	}
	if err := h.send(); err != nil {
		h.log.Warn("Heartbeat send failed", "monitor", h.name, "error", err)
	}
}
