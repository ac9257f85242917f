package runtime

import (
	"chat-session/domain"
	"chat-session/domain/mimetypes"
	"chat-session/errors"
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// SendAttachment uploads a local file and posts it to the chat.
//
// The file type and size are checked before anything is shown. The file is then
// staged in the temp directory and a Sending placeholder is published. Any later
// failure marks the placeholder Failed and keeps the staged copy for a resend.
func (o *Orchestrator) SendAttachment(ctx context.Context, path string) error {
	token, err := o.connectionToken()
	if err != nil {
		return err
	}
	mime, err := mimetypes.Resolve(path)
	if err != nil {
		return err
	}
	size, err := o.files.Size(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrFileSizeUnavailable, filepath.Base(path), err)
	}
	staged, err := o.files.Stage(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrFileUnreadable, filepath.Base(path), err)
	}
	name := filepath.Base(staged)

	var placeholderID string
	if err := o.loop.Do(ctx, func() {
		placeholderID = o.addPlaceholder(string(mime), name, uuid.NewString()).ID
		o.tempFiles[placeholderID] = staged
	}); err != nil {
		return err
	}

	target, err := o.service.StartAttachmentUpload(ctx, token, string(mime), name, size)
	o.metrics.APICall("startAttachmentUpload", err)
	if err != nil {
		return o.failAttachment(placeholderID, fmt.Errorf("start attachment upload: %w", err))
	}

	if err := o.loop.Do(o.ctx, func() { o.bindAttachment(placeholderID, target.AttachmentID) }); err != nil {
		return err
	}

	if err := o.transfer.Upload(ctx, target, staged); err != nil {
		return o.failAttachment(placeholderID, fmt.Errorf("upload attachment: %w", err))
	}

	err = o.service.CompleteAttachmentUpload(ctx, token, []string{target.AttachmentID})
	o.metrics.APICall("completeAttachmentUpload", err)
	if err != nil {
		return o.failAttachment(placeholderID, fmt.Errorf("complete attachment upload: %w", err))
	}

	if err := o.files.Remove(staged); err != nil {
		o.log.Warn("Staged attachment not removed", "path", staged, "error", err)
	}
	return o.loop.Do(o.ctx, func() {
		delete(o.tempFiles, placeholderID)
		o.markAttachmentSent(placeholderID, target.AttachmentID)
	})
}

// bindAttachment records the server attachment id so the live frame merges into the placeholder.
func (o *Orchestrator) bindAttachment(placeholderID, attachmentID string) {
	if attachmentID == "" {
		return
	}
	o.attachmentToTemp[attachmentID] = placeholderID
	changed := o.store.Update(placeholderID, func(item *domain.TranscriptItem) {
		item.Message.AttachmentID = attachmentID
	})
	if changed {
		updated, _ := o.store.Get(placeholderID)
		o.publishItem(updated)
	}
}

// markAttachmentSent flags the placeholder Sent unless the live copy already merged into it.
func (o *Orchestrator) markAttachmentSent(placeholderID, attachmentID string) {
	if current, ok := o.attachmentToTemp[attachmentID]; !ok || current != placeholderID {
		return
	}
	changed := o.store.Update(placeholderID, func(item *domain.TranscriptItem) {
		if item.Message.Status == domain.StatusSending {
			item.Message.Status = domain.StatusSent
		}
	})
	if changed {
		updated, _ := o.store.Get(placeholderID)
		o.publishItem(updated)
		o.publishTranscript()
	}
}

func (o *Orchestrator) failAttachment(placeholderID string, cause error) error {
	o.log.Warn("Attachment not sent, staged file kept for resend", "placeholder", placeholderID, "error", cause)
	if err := o.loop.Do(o.ctx, func() { o.markFailed(placeholderID) }); err != nil {
		o.log.Warn("Failed attachment not marked", "placeholder", placeholderID, "error", err)
	}
	return cause
}

// GetAttachmentDownloadURL returns a short-lived signed URL for an attachment.
func (o *Orchestrator) GetAttachmentDownloadURL(ctx context.Context, attachmentID string) (string, error) {
	token, err := o.connectionToken()
	if err != nil {
		return "", err
	}
	url, err := o.service.GetAttachment(ctx, token, attachmentID)
	o.metrics.APICall("getAttachment", err)
	if err != nil {
		return "", fmt.Errorf("get attachment %s: %w", attachmentID, err)
	}
	return url, nil
}

// DownloadAttachment saves an attachment under filename in the temp directory
// and returns the local path. An existing file with that name is replaced.
func (o *Orchestrator) DownloadAttachment(ctx context.Context, attachmentID, filename string) (string, error) {
	url, err := o.GetAttachmentDownloadURL(ctx, attachmentID)
	if err != nil {
		return "", err
	}
	destination := o.files.Path(filepath.Base(filename))
	if err := o.transfer.Download(ctx, url, destination); err != nil {
		return "", fmt.Errorf("download attachment %s: %w", attachmentID, err)
	}
	return destination, nil
}
