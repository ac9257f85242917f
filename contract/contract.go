//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-session/domain"
	"chat-session/protocol"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives session notifications.
type EventSink interface {
	Consume(ctx context.Context, n domain.Notification) error
}

type IRegistry interface {
	Subscribe(topic domain.Topic, sink EventSink) string
	Unsubscribe(id string)
	SinksFor(topic domain.Topic) []EventSink
	Clear()
}

// ParticipantService is the remote chat backend, reached over request/response calls.
type ParticipantService interface {
	CreateConnection(ctx context.Context, participantToken string) (domain.ConnectionDetails, error)
	Disconnect(ctx context.Context, connectionToken string) error
	SendMessage(ctx context.Context, connectionToken, contentType, content string) (string, error)
	SendEvent(ctx context.Context, connectionToken, contentType, content string) error
	StartAttachmentUpload(ctx context.Context, connectionToken, contentType, name string, size int64) (domain.UploadTarget, error)
	CompleteAttachmentUpload(ctx context.Context, connectionToken string, attachmentIDs []string) error
	GetAttachment(ctx context.Context, connectionToken, attachmentID string) (string, error)
	GetTranscript(ctx context.Context, connectionToken string, req domain.TranscriptRequest) (TranscriptPage, error)
}

// TranscriptPage is one raw page of history, still in wire form.
type TranscriptPage struct {
	InitialContactID string
	NextToken        string
	Items            []protocol.ChatPayload
}

// AttachmentTransfer moves attachment bytes to and from pre-signed storage URLs.
type AttachmentTransfer interface {
	Upload(ctx context.Context, target domain.UploadTarget, path string) error
	Download(ctx context.Context, url, destination string) error
}

// FileStore manages the local copies of attachments.
type FileStore interface {
	Stage(source string) (string, error)
	Size(path string) (int64, error)
	Remove(path string) error
	Path(name string) string
}

// Socket is the subset of a websocket connection the supervisor uses.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// Connectivity reports whether the device currently has a network path.
type Connectivity interface {
	IsConnected() bool
}

// ConnectionListener receives everything the connection supervisor produces.
type ConnectionListener interface {
	OnConnectionEvent(evt domain.ChatEventType)
	OnTranscriptItem(item domain.TranscriptItem)
	OnReconnectRequired()
}

type Connection interface {
	Connect(ctx context.Context, url string, isReconnect bool) error
	Disconnect(reason string)
	Suspend()
	Resume()
	StopHeartbeats()
	NetworkRestored()
	State() domain.ConnectionState
}

type Metrics interface {
	APICall(operation string, err error)
	HeartbeatMissed(deep bool)
	FrameDropped()
	ReconnectRequested()
}
