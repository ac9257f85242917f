package runtime

import (
	"chat-session/domain"
	"chat-session/errors"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SendMessage shows the message immediately as Sending, sends it, then reconciles
// the placeholder with the id the service assigned.
func (o *Orchestrator) SendMessage(ctx context.Context, contentType, text string) error {
	token, err := o.connectionToken()
	if err != nil {
		return err
	}
	var placeholderID string
	if err := o.loop.Do(ctx, func() {
		placeholderID = o.addPlaceholder(contentType, text, "").ID
	}); err != nil {
		return err
	}
	return o.deliverMessage(ctx, token, placeholderID, contentType, text)
}

func (o *Orchestrator) deliverMessage(ctx context.Context, token, placeholderID, contentType, text string) error {
	id, err := o.service.SendMessage(ctx, token, contentType, text)
	o.metrics.APICall("sendMessage", err)
	if err != nil {
		if loopErr := o.loop.Do(o.ctx, func() { o.markFailed(placeholderID) }); loopErr != nil {
			o.log.Warn("Failed message not marked", "id", placeholderID, "error", loopErr)
		}
		return fmt.Errorf("send message: %w", err)
	}
	return o.loop.Do(o.ctx, func() { o.reconcile(placeholderID, id) })
}

// reconcile keeps exactly one entry for a sent message. A live copy that beat
// the acknowledgement wins over the placeholder.
func (o *Orchestrator) reconcile(placeholderID, serverID string) {
	if serverID == "" || !o.store.Contains(placeholderID) {
		return
	}
	if serverID != placeholderID && o.store.Contains(serverID) {
		o.log.Debug("Live copy arrived first, dropping placeholder", "placeholder", placeholderID, "id", serverID)
		o.store.Remove(placeholderID)
		o.publishTranscript()
		return
	}
	o.store.Rename(placeholderID, serverID)
	o.store.Update(serverID, func(item *domain.TranscriptItem) {
		if item.Message.Status == domain.StatusSending {
			item.Message.Status = domain.StatusSent
		}
	})
	sent, _ := o.store.Get(serverID)
	o.publishItem(sent)
	o.publishTranscript()
}

// addPlaceholder stores a local Sending message at the tail. It has no timestamp until reconciled.
func (o *Orchestrator) addPlaceholder(contentType, text, attachmentID string) domain.TranscriptItem {
	chat, _ := o.session.ChatDetails()
	item := domain.TranscriptItem{
		ID:          uuid.NewString(),
		ContentType: contentType,
		Kind:        domain.KindMessage,
		Message: domain.Message{
			ParticipantRole: domain.RoleCustomer,
			ParticipantID:   chat.ParticipantID,
			Text:            text,
			Direction:       domain.Outgoing,
			AttachmentID:    attachmentID,
			DisplayName:     o.customerDisplayName(),
			Status:          domain.StatusSending,
		},
	}
	o.store.Upsert(item)
	o.publishItem(item)
	o.publishTranscript()
	return item
}

func (o *Orchestrator) customerDisplayName() string {
	last, ok := o.store.Last(func(item domain.TranscriptItem) bool {
		return item.IsMessage() && item.Message.ParticipantRole == domain.RoleCustomer && item.Message.DisplayName != ""
	})
	if !ok {
		return ""
	}
	return last.Message.DisplayName
}

func (o *Orchestrator) markFailed(id string) {
	changed := o.store.Update(id, func(item *domain.TranscriptItem) {
		item.Message.Status = domain.StatusFailed
	})
	if !changed {
		return
	}
	failed, _ := o.store.Get(id)
	o.publishItem(failed)
	o.publishTranscript()
}

// ResendFailedMessage removes a Failed or Unknown message and sends it again,
// through the attachment pipeline when a staged file was kept for it.
func (o *Orchestrator) ResendFailedMessage(ctx context.Context, id string) error {
	if _, err := o.connectionToken(); err != nil {
		return err
	}
	var (
		stale    domain.TranscriptItem
		filePath string
		err      error
	)
	if loopErr := o.loop.Do(ctx, func() {
		item, ok := o.store.Get(id)
		if !ok || !item.IsMessage() {
			err = fmt.Errorf("%w: %s", errors.ErrMessageNotFound, id)
			return
		}
		if !item.Message.Status.Resendable() {
			err = fmt.Errorf("%w: %s is %s", errors.ErrMessageNotResendable, id, item.Message.Status)
			return
		}
		stale = item
		filePath = o.tempFiles[id]
		delete(o.tempFiles, id)
		for attachmentID, placeholderID := range o.attachmentToTemp {
			if placeholderID == id {
				delete(o.attachmentToTemp, attachmentID)
			}
		}
		o.store.Remove(id)
		o.publishTranscript()
	}); loopErr != nil {
		return loopErr
	}
	if err != nil {
		return err
	}

	o.log.Info("Resending message", "id", id, "attachment", filePath != "")
	if filePath != "" {
		return o.SendAttachment(ctx, filePath)
	}
	return o.SendMessage(ctx, stale.ContentType, stale.Message.Text)
}

// SendEvent sends an event. Typing events are throttled: within the throttle
// window further typing events complete without reaching the wire.
func (o *Orchestrator) SendEvent(ctx context.Context, contentType, content string) error {
	token, err := o.connectionToken()
	if err != nil {
		return err
	}
	if contentType == domain.ContentTypeTyping {
		allowed := true
		if err := o.loop.Do(ctx, func() { allowed = o.typingLimiter.Allow() }); err != nil {
			return err
		}
		if !allowed {
			o.log.Debug("Typing event throttled")
			return nil
		}
	}
	err = o.service.SendEvent(ctx, token, contentType, content)
	o.metrics.APICall("sendEvent", err)
	if err != nil {
		return fmt.Errorf("send event %s: %w", contentType, err)
	}
	return nil
}

// SendMessageReceipt queues a delivered or read receipt for a message written by
// another participant. Receipts for own messages, empty messages, and read
// receipts for messages already Read are ignored.
func (o *Orchestrator) SendMessageReceipt(ctx context.Context, item domain.TranscriptItem, kind domain.ReceiptKind) error {
	eligible := false
	err := o.loop.Do(ctx, func() {
		if stored, ok := o.store.Get(item.ID); ok {
			item = stored
		}
		eligible = receiptEligible(item, kind)
	})
	if err != nil {
		return err
	}
	if eligible {
		o.receipts.Request(kind, item.ID)
	}
	return nil
}

func receiptEligible(item domain.TranscriptItem, kind domain.ReceiptKind) bool {
	if !item.IsMessage() || item.Message.Text == "" || item.Message.ParticipantRole == domain.RoleCustomer {
		return false
	}
	return !(kind == domain.ReceiptRead && item.Message.Status == domain.StatusRead)
}

type receiptContent struct {
	MessageID string `json:"messageId"`
}

// flushReceipts runs on the throttler timer and sends each pending receipt as an event.
func (o *Orchestrator) flushReceipts(pending domain.PendingReceipts) {
	token, err := o.connectionToken()
	if err != nil {
		o.log.Warn("Receipts dropped", "error", err)
		return
	}
	send := func(kind domain.ReceiptKind, id string) {
		if id == "" {
			return
		}
		content, _ := json.Marshal(receiptContent{MessageID: id})
		err := o.service.SendEvent(o.ctx, token, kind.ContentType(), string(content))
		o.metrics.APICall("sendEvent", err)
		if err != nil {
			o.log.Warn("Receipt not sent", "kind", kind, "id", id, "error", err)
		}
	}
	send(domain.ReceiptRead, pending.ReadMessageID)
	send(domain.ReceiptDelivered, pending.DeliveredMessageID)
}
