// Package runtime runs a chat session: it funnels socket traffic, timers and
// remote completions onto one serialized loop that owns the transcript.
// It wires collaborators together without containing protocol rules.
package runtime

import (
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/errors"
	"chat-session/internal"
	"chat-session/projection"
	"chat-session/receipts"
	"chat-session/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTypingExpiry       = 12 * time.Second
	defaultTypingThrottle     = 10 * time.Second
	defaultNotificationBuffer = 256
	defaultSinkTimeout        = 2 * time.Second
)

// Options tunes a session. Zero durations fall back to defaults.
type Options struct {
	TypingExpiry       time.Duration
	TypingThrottle     time.Duration
	ReceiptsEnabled    bool
	ReceiptWindow      time.Duration
	DeliveredGrace     time.Duration
	TranscriptPageSize int
	NotificationBuffer int // pending actions on the session loop
	SinkTimeout        time.Duration
	Backoff            BackoffConfig
}

func DefaultOptions() Options {
	return Options{
		TypingExpiry:       defaultTypingExpiry,
		TypingThrottle:     defaultTypingThrottle,
		ReceiptsEnabled:    true,
		ReceiptWindow:      receipts.DefaultWindow,
		DeliveredGrace:     receipts.DefaultDeliveredGrace,
		TranscriptPageSize: domain.DefaultTranscriptPageSize,
		NotificationBuffer: defaultNotificationBuffer,
		SinkTimeout:        defaultSinkTimeout,
		Backoff:            DefaultBackoff(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TypingExpiry <= 0 {
		o.TypingExpiry = d.TypingExpiry
	}
	if o.TypingThrottle <= 0 {
		o.TypingThrottle = d.TypingThrottle
	}
	if o.ReceiptWindow <= 0 {
		o.ReceiptWindow = d.ReceiptWindow
	}
	if o.DeliveredGrace <= 0 {
		o.DeliveredGrace = d.DeliveredGrace
	}
	if o.TranscriptPageSize <= 0 {
		o.TranscriptPageSize = d.TranscriptPageSize
	}
	if o.NotificationBuffer <= 0 {
		o.NotificationBuffer = d.NotificationBuffer
	}
	if o.SinkTimeout <= 0 {
		o.SinkTimeout = d.SinkTimeout
	}
	if o.Backoff.InitialDelay <= 0 {
		o.Backoff = d.Backoff
	}
	return o
}

// ConnectionFactory builds the connection supervisor reporting to listener.
type ConnectionFactory func(listener contract.ConnectionListener) contract.Connection

// Dependencies are the collaborators a session talks to.
type Dependencies struct {
	Service       contract.ParticipantService
	Transfer      contract.AttachmentTransfer
	Files         contract.FileStore
	Metrics       contract.Metrics
	NewConnection ConnectionFactory
}

// Orchestrator is the session engine behind the host application.
// Public methods block the calling goroutine; state changes happen on the session loop.
type Orchestrator struct {
	log        *slog.Logger
	opts       Options
	session    *domain.SessionContext
	supervisor contract.ISupervisor
	registry   contract.IRegistry

	service  contract.ParticipantService
	transfer contract.AttachmentTransfer
	files    contract.FileStore
	metrics  contract.Metrics
	conn     contract.Connection
	receipts *receipts.Throttler

	loop          *workers.SessionLoop
	notifications *workers.NotificationQueue

	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the session loop
	store            *projection.Transcript
	attachmentToTemp map[string]string // server attachment id -> placeholder id
	tempFiles        map[string]string // placeholder id -> staged file
	typingTimer      *time.Timer
	typingSeq        uint64
	typingLimiter    *rate.Limiter

	// epoch changes on suspend and reset; late completions from an older epoch are dropped
	epoch atomic.Uint64

	reconnectMu  sync.Mutex
	reconnecting bool
	suspended    bool
	rng          *rand.Rand
}

func NewOrchestrator(
	log *slog.Logger,
	session *domain.SessionContext,
	supervisor contract.ISupervisor,
	registry contract.IRegistry,
	deps Dependencies,
	opts Options,
) *Orchestrator {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		log:              log,
		opts:             opts,
		session:          session,
		supervisor:       supervisor,
		registry:         registry,
		service:          deps.Service,
		transfer:         deps.Transfer,
		files:            deps.Files,
		metrics:          deps.Metrics,
		loop:             workers.NewSessionLoop(log, opts.NotificationBuffer),
		notifications:    workers.NewNotificationQueue(),
		ctx:              ctx,
		cancel:           cancel,
		store:            projection.NewTranscript(),
		attachmentToTemp: make(map[string]string),
		tempFiles:        make(map[string]string),
		typingLimiter:    newTypingLimiter(opts.TypingThrottle),
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	o.receipts = receipts.NewThrottler(log, opts.ReceiptsEnabled, opts.ReceiptWindow, opts.DeliveredGrace, o.flushReceipts)
	o.conn = deps.NewConnection(connectionListener{o: o})
	return o
}

func newTypingLimiter(throttle time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(throttle), 1)
}

// Start runs the session loop and the notification fanout under the worker supervisor.
// It returns immediately; Close stops everything.
func (o *Orchestrator) Start(ctx context.Context) {
	o.ctx, o.cancel = context.WithCancel(ctx)
	fanout := workers.NewEventFanout(o.log, o.notifications, o.registry, o.opts.SinkTimeout)
	o.supervisor.Add(o.loop, fanout)
	go o.supervisor.Run(o.ctx)
	o.log.Info("Chat session started")
}

// Close tears the session down locally without notifying the remote service.
func (o *Orchestrator) Close() {
	o.conn.Disconnect("closed")
	o.receipts.Reset()
	o.cancel()
	o.loop.Close()
	o.log.Info("Chat session closed")
}

// CreateSession mints a connection with the participant token and opens the socket.
func (o *Orchestrator) CreateSession(ctx context.Context, chat domain.ChatDetails) error {
	if err := internal.ValidateDetails(chat); err != nil {
		return err
	}
	o.session.SetChatDetails(chat)
	o.setSuspended(false)

	details, err := o.mintConnection(ctx, chat.ParticipantToken)
	if err != nil {
		return err
	}
	return o.conn.Connect(ctx, details.WebsocketURL, false)
}

func (o *Orchestrator) mintConnection(ctx context.Context, participantToken string) (domain.ConnectionDetails, error) {
	details, err := o.service.CreateConnection(ctx, participantToken)
	o.metrics.APICall("createConnection", err)
	if err != nil {
		return domain.ConnectionDetails{}, fmt.Errorf("create connection: %w", err)
	}
	if err := internal.ValidateDetails(details); err != nil {
		return domain.ConnectionDetails{}, err
	}
	o.session.SetConnectionDetails(details)
	return details, nil
}

// Disconnect ends the chat. When the session is still active the remote service is
// told the participant left and chatEnded is published. The transcript is kept.
func (o *Orchestrator) Disconnect(ctx context.Context) error {
	if !o.session.IsActive() {
		o.conn.Disconnect("session not active")
		return nil
	}
	o.session.SetActive(false)
	o.receipts.Cancel()

	var err error
	if details, ok := o.session.ConnectionDetails(); ok {
		err = o.service.Disconnect(ctx, details.ConnectionToken)
		o.metrics.APICall("disconnect", err)
	}
	if loopErr := o.loop.Do(ctx, func() {
		o.cancelTyping()
		o.publishEvent(domain.ChatEnded, nil)
	}); loopErr != nil {
		o.log.Warn("Chat ended not published", "error", loopErr)
	}
	o.conn.Disconnect("participant disconnected")
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Suspend drops the socket and every timer but keeps the transcript and session state.
func (o *Orchestrator) Suspend(ctx context.Context) error {
	o.setSuspended(true)
	o.conn.Suspend()
	o.receipts.Cancel()
	return o.loop.Do(ctx, func() {
		o.epoch.Add(1)
		o.cancelTyping()
		o.purgeTyping()
	})
}

// Resume reconnects if the session is still active and the network is up.
func (o *Orchestrator) Resume() {
	o.setSuspended(false)
	o.conn.Resume()
}

// NetworkRestored forwards the host's connectivity signal to the connection.
func (o *Orchestrator) NetworkRestored() {
	o.conn.NetworkRestored()
}

// Reset cancels everything and clears every in-memory cache.
// Unlike Disconnect it does not notify the remote service.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.conn.Disconnect("reset")
	o.receipts.Reset()
	err := o.loop.Do(ctx, func() {
		o.epoch.Add(1)
		o.cancelTyping()
		o.store.Clear()
		o.attachmentToTemp = make(map[string]string)
		o.tempFiles = make(map[string]string)
		o.typingLimiter = newTypingLimiter(o.opts.TypingThrottle)
		o.publishTranscript()
	})
	o.session.Reset()
	o.setSuspended(false)
	return err
}

// Transcript returns a snapshot of the ordered transcript.
func (o *Orchestrator) Transcript(ctx context.Context) ([]domain.TranscriptItem, error) {
	var items []domain.TranscriptItem
	err := o.loop.Do(ctx, func() { items = o.store.Items() })
	return items, err
}

func (o *Orchestrator) ConnectionState() domain.ConnectionState {
	return o.conn.State()
}

func (o *Orchestrator) connectionToken() (string, error) {
	details, ok := o.session.ConnectionDetails()
	if !ok {
		return "", errors.ErrNoConnection
	}
	return details.ConnectionToken, nil
}

func (o *Orchestrator) setSuspended(suspended bool) {
	o.reconnectMu.Lock()
	defer o.reconnectMu.Unlock()
	o.suspended = suspended
}

// post hands fn to the session loop from a collaborator goroutine.
func (o *Orchestrator) post(fn func()) {
	if err := o.loop.Post(o.ctx, fn); err != nil {
		o.log.Debug("Session loop not accepting work", "error", err)
	}
}

// notify must only be called from the session loop.
func (o *Orchestrator) notify(n domain.Notification) {
	o.notifications.Push(n)
}

func (o *Orchestrator) publishEvent(t domain.ChatEventType, item *domain.TranscriptItem) {
	o.notify(domain.Notification{Topic: domain.TopicLifecycle, Event: domain.ChatEvent{Type: t, Item: item}})
}

func (o *Orchestrator) publishItem(item domain.TranscriptItem) {
	o.notify(domain.Notification{Topic: domain.TopicItem, Item: item})
}

func (o *Orchestrator) publishTranscript() {
	o.notify(domain.Notification{Topic: domain.TopicTranscript, Transcript: o.store.Items()})
}
