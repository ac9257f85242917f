package runtime

import (
	"chat-session/connection"
	"chat-session/domain"
	"chat-session/errors"
	"context"
	"time"
)

// connectionListener receives connection supervisor callbacks on supervisor goroutines
// and hands them to the session loop.
type connectionListener struct {
	o *Orchestrator
}

func (l connectionListener) OnConnectionEvent(evt domain.ChatEventType) {
	l.o.post(func() { l.o.handleConnectionEvent(evt) })
}

func (l connectionListener) OnTranscriptItem(item domain.TranscriptItem) {
	l.o.post(func() {
		if l.o.applyItem(item) {
			l.o.publishTranscript()
		}
	})
}

func (l connectionListener) OnReconnectRequired() {
	l.o.requestReconnect()
}

func (o *Orchestrator) handleConnectionEvent(evt domain.ChatEventType) {
	o.log.Info("Connection event", "event", evt)
	epoch := o.epoch.Load()
	switch evt {
	case domain.ConnectionEstablished:
		o.session.SetActive(true)
		go o.loadTranscript(epoch)
	case domain.ConnectionReEstablished:
		cursor := o.backfillCursor()
		go o.backfill(epoch, cursor)
	}
	o.publishEvent(evt, nil)
}

// requestReconnect starts a reconnection run unless one is already going.
func (o *Orchestrator) requestReconnect() {
	o.reconnectMu.Lock()
	defer o.reconnectMu.Unlock()
	if o.reconnecting {
		o.log.Debug("Reconnection already in progress")
		return
	}
	o.reconnecting = true
	go o.reconnect()
}

// reconnect mints fresh connections until one opens, the session ends or the
// network is reported lost. Attempts after the first are spaced with backoff.
func (o *Orchestrator) reconnect() {
	defer func() {
		o.reconnectMu.Lock()
		o.reconnecting = false
		o.reconnectMu.Unlock()
	}()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := o.nextDelay(attempt)
			o.log.Info("Waiting before next reconnection attempt", "attempt", attempt, "delay", delay)
			if err := waitBackoff(o.ctx, delay); err != nil {
				return
			}
		}
		if !o.mayReconnect() {
			return
		}
		err := o.openFreshConnection(o.ctx)
		switch {
		case err == nil:
			return
		case errors.Is(err, errors.ErrAccessDenied):
			o.log.Warn("Participant token rejected, ending chat", "error", err)
			o.post(o.endChatOnAccessDenied)
			return
		case errors.Is(err, errors.ErrValidation):
			o.log.Error("Unusable connection details", "error", err)
			return
		case connection.Classify(err) == connection.ClassNetworkLost:
			o.log.Info("Network lost, waiting for it to come back", "error", err)
			return
		}
		o.log.Warn("Reconnection attempt failed", "attempt", attempt, "error", err)
	}
}

func (o *Orchestrator) nextDelay(attempt int) time.Duration {
	o.reconnectMu.Lock()
	defer o.reconnectMu.Unlock()
	return NextBackoffDelay(o.opts.Backoff, attempt, o.rng)
}

func (o *Orchestrator) mayReconnect() bool {
	if o.ctx.Err() != nil || !o.session.IsActive() {
		return false
	}
	o.reconnectMu.Lock()
	defer o.reconnectMu.Unlock()
	return !o.suspended
}

func (o *Orchestrator) openFreshConnection(ctx context.Context) error {
	chat, ok := o.session.ChatDetails()
	if !ok {
		return errors.ErrNoConnection
	}
	details, err := o.mintConnection(ctx, chat.ParticipantToken)
	if err != nil {
		return err
	}
	return o.conn.Connect(ctx, details.WebsocketURL, true)
}

const chatEndedEventID = "chat-ended-event"

// endChatOnAccessDenied records a synthetic chat-ended event so the host sees the chat is over.
func (o *Orchestrator) endChatOnAccessDenied() {
	item := domain.TranscriptItem{
		ID:          chatEndedEventID,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		ContentType: domain.ContentTypeChatEnded,
		Kind:        domain.KindEvent,
		Event: domain.Event{
			ParticipantRole: domain.RoleSystem,
			Direction:       domain.Common,
		},
	}
	if o.applyItem(item) {
		o.publishTranscript()
	}
}
