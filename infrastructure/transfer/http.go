// Package transfer moves attachment bytes to and from pre-signed storage URLs.
package transfer

import (
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/errors"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

type HTTPTransfer struct {
	log   *slog.Logger
	httpc *http.Client
}

var _ contract.AttachmentTransfer = (*HTTPTransfer)(nil)

func NewHTTPTransfer(log *slog.Logger, timeout time.Duration) *HTTPTransfer {
	return &HTTPTransfer{log: log, httpc: &http.Client{Timeout: timeout}}
}

// Upload PUTs the file at path to the target URL with the headers the service asked for.
func (t *HTTPTransfer) Upload(ctx context.Context, target domain.UploadTarget, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrFileUnreadable, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrFileSizeUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.URL, file)
	if err != nil {
		return fmt.Errorf("%w: upload request: %v", errors.ErrValidation, err)
	}
	req.ContentLength = info.Size()
	for key, value := range target.Headers {
		req.Header.Set(key, value)
	}

	resp, err := t.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: upload: %w", errors.ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: upload: status %d", errors.ErrUnexpectedResponse, resp.StatusCode)
	}
	t.log.Debug("Attachment uploaded", "attachmentId", target.AttachmentID, "bytes", info.Size())
	return nil
}

// Download writes the body at url to destination, replacing any existing file.
// A partial download never replaces the previous file.
func (t *HTTPTransfer) Download(ctx context.Context, url, destination string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: download request: %v", errors.ErrValidation, err)
	}
	resp, err := t.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: download: %w", errors.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: download: status %d", errors.ErrUnexpectedResponse, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o700); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(destination), ".download-*")
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("%w: download: %w", errors.ErrTransport, err)
	}
	if err := os.Rename(tmp.Name(), destination); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	t.log.Debug("Attachment downloaded", "path", destination, "bytes", written)
	return nil
}
