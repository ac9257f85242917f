// Package participant binds contract.ParticipantService to the participant REST API.
package participant

import (
	"bytes"
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/errors"
	"chat-session/protocol"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	bearerHeader = "X-Amz-Bearer"

	pathCreateConnection = "/participant/connection"
	pathDisconnect       = "/participant/disconnect"
	pathMessage          = "/participant/message"
	pathEvent            = "/participant/event"
	pathTranscript       = "/participant/transcript"
	pathStartUpload      = "/participant/start-attachment-upload"
	pathCompleteUpload   = "/participant/complete-attachment-upload"
	pathAttachment       = "/participant/attachment"

	maxErrorBody = 4 << 10
)

// Client calls the participant service over HTTPS. Every call except
// CreateConnection authenticates with the connection token.
type Client struct {
	log      *slog.Logger
	endpoint string
	httpc    *http.Client
}

var _ contract.ParticipantService = (*Client)(nil)

func NewClient(log *slog.Logger, endpoint string, timeout time.Duration) *Client {
	return &Client{
		log:      log,
		endpoint: strings.TrimRight(endpoint, "/"),
		httpc:    &http.Client{Timeout: timeout},
	}
}

type createConnectionRequest struct {
	Type               []string `json:"Type"`
	ConnectParticipant bool     `json:"ConnectParticipant"`
}

type createConnectionResponse struct {
	Websocket struct {
		URL              string `json:"Url"`
		ConnectionExpiry string `json:"ConnectionExpiry"`
	} `json:"Websocket"`
	ConnectionCredentials struct {
		ConnectionToken string `json:"ConnectionToken"`
		Expiry          string `json:"Expiry"`
	} `json:"ConnectionCredentials"`
}

type disconnectRequest struct {
	ClientToken string `json:"ClientToken"`
}

type sendRequest struct {
	ContentType string `json:"ContentType"`
	Content     string `json:"Content,omitempty"`
	ClientToken string `json:"ClientToken"`
}

type sendResponse struct {
	ID           string `json:"Id"`
	AbsoluteTime string `json:"AbsoluteTime"`
}

type startPosition struct {
	ID string `json:"Id"`
}

type transcriptRequest struct {
	ScanDirection string         `json:"ScanDirection"`
	SortOrder     string         `json:"SortOrder"`
	MaxResults    int            `json:"MaxResults"`
	NextToken     string         `json:"NextToken,omitempty"`
	StartPosition *startPosition `json:"StartPosition,omitempty"`
}

type transcriptResponse struct {
	InitialContactID string                 `json:"InitialContactId"`
	NextToken        string                 `json:"NextToken"`
	Transcript       []protocol.ChatPayload `json:"Transcript"`
}

type startUploadRequest struct {
	ContentType           string `json:"ContentType"`
	AttachmentName        string `json:"AttachmentName"`
	AttachmentSizeInBytes int64  `json:"AttachmentSizeInBytes"`
	ClientToken           string `json:"ClientToken"`
}

type startUploadResponse struct {
	AttachmentID   string `json:"AttachmentId"`
	UploadMetadata struct {
		URL              string            `json:"Url"`
		URLExpiry        string            `json:"UrlExpiry"`
		HeadersToInclude map[string]string `json:"HeadersToInclude"`
	} `json:"UploadMetadata"`
}

type completeUploadRequest struct {
	AttachmentIDs []string `json:"AttachmentIds"`
	ClientToken   string   `json:"ClientToken"`
}

type attachmentRequest struct {
	AttachmentID string `json:"AttachmentId"`
}

type attachmentResponse struct {
	URL       string `json:"Url"`
	URLExpiry string `json:"UrlExpiry"`
}

type errorBody struct {
	Message      string `json:"Message"`
	LowerMessage string `json:"message"`
}

func (c *Client) CreateConnection(ctx context.Context, participantToken string) (domain.ConnectionDetails, error) {
	in := createConnectionRequest{Type: []string{"WEBSOCKET", "CONNECTION_CREDENTIALS"}, ConnectParticipant: true}
	var out createConnectionResponse
	if err := c.post(ctx, pathCreateConnection, participantToken, in, &out); err != nil {
		return domain.ConnectionDetails{}, err
	}
	return domain.ConnectionDetails{
		WebsocketURL:    out.Websocket.URL,
		ConnectionToken: out.ConnectionCredentials.ConnectionToken,
		Expiry:          parseExpiry(out.ConnectionCredentials.Expiry),
	}, nil
}

func (c *Client) Disconnect(ctx context.Context, connectionToken string) error {
	return c.post(ctx, pathDisconnect, connectionToken, disconnectRequest{ClientToken: clientToken()}, nil)
}

func (c *Client) SendMessage(ctx context.Context, connectionToken, contentType, content string) (string, error) {
	var out sendResponse
	in := sendRequest{ContentType: contentType, Content: content, ClientToken: clientToken()}
	if err := c.post(ctx, pathMessage, connectionToken, in, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: %s: missing message id", errors.ErrUnexpectedResponse, pathMessage)
	}
	return out.ID, nil
}

func (c *Client) SendEvent(ctx context.Context, connectionToken, contentType, content string) error {
	in := sendRequest{ContentType: contentType, Content: content, ClientToken: clientToken()}
	return c.post(ctx, pathEvent, connectionToken, in, &sendResponse{})
}

func (c *Client) StartAttachmentUpload(ctx context.Context, connectionToken, contentType, name string, size int64) (domain.UploadTarget, error) {
	in := startUploadRequest{
		ContentType:           contentType,
		AttachmentName:        name,
		AttachmentSizeInBytes: size,
		ClientToken:           clientToken(),
	}
	var out startUploadResponse
	if err := c.post(ctx, pathStartUpload, connectionToken, in, &out); err != nil {
		return domain.UploadTarget{}, err
	}
	return domain.UploadTarget{
		AttachmentID: out.AttachmentID,
		URL:          out.UploadMetadata.URL,
		URLExpiry:    parseExpiry(out.UploadMetadata.URLExpiry),
		Headers:      out.UploadMetadata.HeadersToInclude,
	}, nil
}

func (c *Client) CompleteAttachmentUpload(ctx context.Context, connectionToken string, attachmentIDs []string) error {
	in := completeUploadRequest{AttachmentIDs: attachmentIDs, ClientToken: clientToken()}
	return c.post(ctx, pathCompleteUpload, connectionToken, in, nil)
}

func (c *Client) GetAttachment(ctx context.Context, connectionToken, attachmentID string) (string, error) {
	var out attachmentResponse
	if err := c.post(ctx, pathAttachment, connectionToken, attachmentRequest{AttachmentID: attachmentID}, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) GetTranscript(ctx context.Context, connectionToken string, req domain.TranscriptRequest) (contract.TranscriptPage, error) {
	in := transcriptRequest{
		ScanDirection: string(req.ScanDirection),
		SortOrder:     string(req.SortOrder),
		MaxResults:    req.MaxResults,
		NextToken:     req.NextToken,
	}
	if req.StartPositionID != "" {
		in.StartPosition = &startPosition{ID: req.StartPositionID}
	}
	var out transcriptResponse
	if err := c.post(ctx, pathTranscript, connectionToken, in, &out); err != nil {
		return contract.TranscriptPage{}, err
	}
	return contract.TranscriptPage{
		InitialContactID: out.InitialContactID,
		NextToken:        out.NextToken,
		Items:            out.Transcript,
	}, nil
}

// post sends in as JSON and decodes the response into out when out is not nil.
func (c *Client) post(ctx context.Context, path, token string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrValidation, path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrValidation, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(bearerHeader, token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errors.ErrTransport, path, err)
	}
	defer resp.Body.Close()
	c.log.Debug("Participant call", "path", path, "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s: %s", errors.ErrAccessDenied, path, errorMessage(resp.Body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s: status %d: %s", errors.ErrUnexpectedResponse, path, resp.StatusCode, errorMessage(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("%w: %s: %v", errors.ErrUnexpectedResponse, path, err)
	}
	return nil
}

// errorMessage extracts the service message from an error body, or the raw body.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		if msg, ok := lo.Coalesce(body.Message, body.LowerMessage); ok {
			return msg
		}
	}
	return strings.TrimSpace(string(raw))
}

// clientToken makes each mutating call idempotent on the service side.
func clientToken() string {
	return uuid.NewString()
}

func parseExpiry(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil
	}
	return lo.ToPtr(t)
}
