package runtime

import (
	"chat-session/domain"
	"time"
)

// applyItem merges one decoded item into the transcript and publishes per-item
// and lifecycle notifications. Live frames and transcript pages both come through here.
// It reports whether the transcript changed; the caller publishes the full list.
func (o *Orchestrator) applyItem(item domain.TranscriptItem) bool {
	switch item.Kind {
	case domain.KindMetadata:
		return o.applyMetadata(item)
	case domain.KindMessage:
		return o.applyMessage(item)
	case domain.KindEvent:
		return o.applyEvent(item)
	default:
		o.log.Warn("Dropping item of unknown kind", "id", item.ID, "kind", item.Kind)
		return false
	}
}

// applyMetadata only ever updates a stored message. Metadata for an unknown message is dropped.
func (o *Orchestrator) applyMetadata(item domain.TranscriptItem) bool {
	existing, ok := o.store.Get(item.ID)
	if !ok || !existing.IsMessage() {
		o.log.Debug("Dropping metadata for unknown message", "id", item.ID)
		return false
	}
	status := item.Metadata.Status
	changed := o.store.Update(item.ID, func(stored *domain.TranscriptItem) {
		if status == domain.StatusNone {
			return
		}
		if status == domain.StatusDelivered && stored.Message.Status == domain.StatusRead {
			return
		}
		stored.Message.Status = status
	})
	if changed {
		updated, _ := o.store.Get(item.ID)
		o.publishItem(updated)
	}
	if !item.FromPastSession {
		switch status {
		case domain.StatusRead:
			o.publishEvent(domain.ReadReceipt, &item)
		case domain.StatusDelivered:
			o.publishEvent(domain.DeliveredReceipt, &item)
		}
	}
	return changed
}

func (o *Orchestrator) applyMessage(item domain.TranscriptItem) bool {
	var changed bool
	if placeholderID, ok := o.attachmentToTemp[item.Message.AttachmentID]; ok && item.Message.AttachmentID != "" {
		changed = o.mergeIntoPlaceholder(placeholderID, item)
	} else {
		if existing, ok := o.store.Get(item.ID); ok && existing.IsMessage() && item.Message.Status == domain.StatusNone {
			item.Message.Status = existing.Message.Status
		}
		changed = o.store.Upsert(item)
		if changed {
			o.publishItem(item)
		}
	}

	if !item.FromPastSession && item.Role() != domain.RoleCustomer {
		o.cancelTyping()
		o.purgeTyping()
	}
	return changed
}

// mergeIntoPlaceholder lets the server copy of an uploaded attachment take over its local placeholder.
func (o *Orchestrator) mergeIntoPlaceholder(placeholderID string, item domain.TranscriptItem) bool {
	delete(o.attachmentToTemp, item.Message.AttachmentID)
	// The server holds the attachment now, there is nothing left to resend
	delete(o.tempFiles, placeholderID)
	if !o.store.Contains(placeholderID) {
		changed := o.store.Upsert(item)
		if changed {
			o.publishItem(item)
		}
		return changed
	}

	o.log.Debug("Merging attachment into placeholder", "placeholder", placeholderID, "id", item.ID)
	o.store.Rename(placeholderID, item.ID)
	o.store.Update(item.ID, func(stored *domain.TranscriptItem) {
		stored.Timestamp = item.Timestamp
		stored.ContentType = item.ContentType
		stored.RawContent = item.RawContent
		stored.Message.Text = item.Message.Text
		stored.Message.AttachmentID = item.Message.AttachmentID
		switch {
		case item.Message.Status != domain.StatusNone:
			stored.Message.Status = item.Message.Status
		case stored.Message.Status == domain.StatusSending:
			stored.Message.Status = domain.StatusSent
		}
	})
	merged, _ := o.store.Get(item.ID)
	o.publishItem(merged)
	return true
}

func (o *Orchestrator) applyEvent(item domain.TranscriptItem) bool {
	changed := o.store.Upsert(item)
	if changed {
		o.publishItem(item)
	}
	if item.IsTyping() {
		o.restartTypingTimer()
	}
	if item.FromPastSession {
		return changed
	}
	if evt, ok := domain.LifecycleEventFor(item.ContentType); ok {
		o.publishEvent(evt, &item)
	}
	if item.IsChatEnded() {
		o.endChat()
	}
	return changed
}

// endChat reacts to a live chat-ended event.
func (o *Orchestrator) endChat() {
	o.log.Info("Chat ended by remote side")
	o.conn.StopHeartbeats()
	o.session.SetActive(false)
	o.receipts.Cancel()
	o.publishEvent(domain.ChatEnded, nil)
}

// restartTypingTimer arms the expiry that purges typing indicators nobody renewed.
func (o *Orchestrator) restartTypingTimer() {
	o.cancelTyping()
	seq := o.typingSeq
	o.typingTimer = time.AfterFunc(o.opts.TypingExpiry, func() {
		o.post(func() {
			if seq != o.typingSeq {
				return
			}
			o.typingTimer = nil
			o.purgeTyping()
		})
	})
}

// cancelTyping stops the expiry timer and invalidates a fire already queued on the loop.
func (o *Orchestrator) cancelTyping() {
	o.typingSeq++
	if o.typingTimer != nil {
		o.typingTimer.Stop()
		o.typingTimer = nil
	}
}

func (o *Orchestrator) purgeTyping() {
	removed := o.store.RemoveWhere(domain.TranscriptItem.IsTyping)
	if len(removed) > 0 {
		o.log.Debug("Typing indicators purged", "count", len(removed))
		o.publishTranscript()
	}
}

// mergePage applies a decoded transcript page and publishes the list once.
func (o *Orchestrator) mergePage(items []domain.TranscriptItem) {
	changed := false
	for _, item := range items {
		if o.applyItem(item) {
			changed = true
		}
	}
	if changed {
		o.publishTranscript()
	}
}
