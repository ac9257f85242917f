// Package connection owns the chat socket: connect, reconnect, suspend and resume,
// the two heartbeat monitors, and parsing of inbound frames.
package connection

import (
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/errors"
	"chat-session/protocol"
	"chat-session/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultHeartbeatInterval     = 10 * time.Second
	DefaultDeepHeartbeatInterval = 60 * time.Second

	closeWriteTimeout = time.Second
)

type Options struct {
	HeartbeatInterval     time.Duration
	DeepHeartbeatInterval time.Duration
}

// Supervisor is the connection state machine: Disconnected, Connecting, Open,
// plus a suspended flag that blocks automatic reconnection.
//
// Every socket gets a generation number. Callbacks from an older socket are ignored.
type Supervisor struct {
	log          *slog.Logger
	dialer       contract.Dialer
	session      *domain.SessionContext
	connectivity contract.Connectivity
	metrics      contract.Metrics
	listener     contract.ConnectionListener

	shallow *workers.HeartbeatMonitor
	deep    *workers.HeartbeatMonitor

	mu         sync.Mutex
	socket     contract.Socket
	state      domain.ConnectionState
	suspended  bool
	generation uint64

	writeMu sync.Mutex
}

func NewSupervisor(
	log *slog.Logger,
	dialer contract.Dialer,
	session *domain.SessionContext,
	connectivity contract.Connectivity,
	metrics contract.Metrics,
	listener contract.ConnectionListener,
	opts Options,
) *Supervisor {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.DeepHeartbeatInterval <= 0 {
		opts.DeepHeartbeatInterval = DefaultDeepHeartbeatInterval
	}
	if connectivity == nil {
		connectivity = AlwaysOnline{}
	}
	s := &Supervisor{
		log:          log,
		dialer:       dialer,
		session:      session,
		connectivity: connectivity,
		metrics:      metrics,
		listener:     listener,
	}
	s.shallow = workers.NewHeartbeatMonitor(log, "shallow", false, opts.HeartbeatInterval,
		func() error { return s.send(protocol.HeartbeatFrame()) },
		s.shallowMissed,
	)
	s.deep = workers.NewHeartbeatMonitor(log, "deep", true, opts.DeepHeartbeatInterval,
		func() error { return s.send(protocol.DeepHeartbeatFrame()) },
		s.deepMissed,
	)
	return s
}

func (s *Supervisor) State() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// Connect replaces any current socket with a new one on url.
// Once open it subscribes to chat traffic, starts both heartbeats and reports
// ConnectionEstablished, or ConnectionReEstablished when isReconnect is set.
func (s *Supervisor) Connect(ctx context.Context, url string, isReconnect bool) error {
	s.teardown("reconnecting")

	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.state = domain.Connecting
	s.mu.Unlock()

	s.log.Info("Opening chat socket", "reconnect", isReconnect)
	socket, err := s.dialer.Dial(ctx, url)
	if err != nil {
		s.mu.Lock()
		current := generation == s.generation
		if current {
			s.state = domain.Disconnected
		}
		s.mu.Unlock()
		if current {
			s.handleTransportError(err)
		}
		return fmt.Errorf("%w: %w", errors.ErrDialFailed, err)
	}

	s.mu.Lock()
	if generation != s.generation {
		// Disconnected while dialing
		s.mu.Unlock()
		_ = socket.Close()
		return errors.ErrSocketNotOpen
	}
	s.socket = socket
	s.state = domain.Open
	s.mu.Unlock()

	if err := s.send(protocol.SubscribeFrame()); err != nil {
		s.log.Warn("Subscribe frame not sent", "error", err)
	}
	s.shallow.Start()
	s.deep.Start()
	go s.readLoop(generation, socket)

	if isReconnect {
		s.listener.OnConnectionEvent(domain.ConnectionReEstablished)
	} else {
		s.listener.OnConnectionEvent(domain.ConnectionEstablished)
	}
	return nil
}

// Disconnect stops both heartbeats and closes the socket. Idempotent.
func (s *Supervisor) Disconnect(reason string) {
	s.teardown(reason)
}

// Suspend disconnects and blocks automatic reconnection until Resume.
func (s *Supervisor) Suspend() {
	s.mu.Lock()
	s.suspended = true
	s.mu.Unlock()
	s.teardown("suspended")
}

// Resume clears the suspended flag and reconnects when the session is still active.
func (s *Supervisor) Resume() {
	s.mu.Lock()
	s.suspended = false
	s.mu.Unlock()
	s.reconnectIfActive()
}

// NetworkRestored is the host's signal that connectivity came back.
func (s *Supervisor) NetworkRestored() {
	if s.State() == domain.Open {
		return
	}
	s.reconnectIfActive()
}

func (s *Supervisor) StopHeartbeats() {
	s.shallow.Stop()
	s.deep.Stop()
}

func (s *Supervisor) teardown(reason string) {
	s.mu.Lock()
	s.generation++
	socket := s.socket
	s.socket = nil
	s.state = domain.Disconnected
	s.mu.Unlock()

	s.StopHeartbeats()
	if socket == nil {
		return
	}
	s.log.Info("Closing chat socket", "reason", reason)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
	_ = socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	_ = socket.Close()
}

func (s *Supervisor) send(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	socket := s.socket
	s.mu.Unlock()
	if socket == nil {
		return errors.ErrSocketNotOpen
	}
	return socket.WriteMessage(websocket.TextMessage, frame)
}

func (s *Supervisor) readLoop(generation uint64, socket contract.Socket) {
	for {
		messageType, data, err := socket.ReadMessage()
		if err != nil {
			s.mu.Lock()
			current := generation == s.generation
			if current {
				s.socket = nil
				s.state = domain.Disconnected
			}
			s.mu.Unlock()
			if !current {
				return
			}
			s.StopHeartbeats()
			_ = socket.Close()
			s.handleTransportError(err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.handleFrame(data)
	}
}

func (s *Supervisor) handleFrame(data []byte) {
	inbound, err := protocol.Decode(data)
	if err != nil {
		s.log.Warn("Dropping inbound frame", "error", err)
		s.metrics.FrameDropped()
		return
	}
	switch inbound.Kind {
	case protocol.InboundHeartbeatAck:
		s.shallow.Ack()
	case protocol.InboundDeepHeartbeatAck:
		s.deep.Ack()
	case protocol.InboundDeepHeartbeatFailure:
		s.log.Warn("Deep heartbeat answered without OK status")
		s.deep.Fail()
	case protocol.InboundChat:
		s.listener.OnTranscriptItem(inbound.Item)
	}
}

// handleTransportError reconnects on recoverable failures and otherwise reports the broken connection.
func (s *Supervisor) handleTransportError(err error) {
	class := Classify(err)
	switch {
	case class.Reconnectable():
		s.log.Warn("Socket failure, trying to reconnect", "class", class, "error", err)
		if s.reconnectIfActive() {
			return
		}
	case class == ClassNetworkLost:
		s.log.Info("Network lost, waiting for connectivity", "error", err)
	default:
		s.log.Error("Socket failure", "class", class, "error", err)
	}
	if s.session.IsActive() {
		s.listener.OnConnectionEvent(domain.ConnectionBroken)
	}
}

// reconnectIfActive asks for a fresh connection unless the session ended,
// the device is offline or the supervisor is suspended.
func (s *Supervisor) reconnectIfActive() bool {
	if !s.session.IsActive() {
		s.log.Debug("Session not active, no reconnection")
		return false
	}
	if !s.connectivity.IsConnected() {
		s.log.Debug("No connectivity, no reconnection")
		return false
	}
	if s.Suspended() {
		s.log.Debug("Suspended, no reconnection")
		return false
	}
	s.metrics.ReconnectRequested()
	s.listener.OnReconnectRequired()
	return true
}

func (s *Supervisor) shallowMissed() {
	s.log.Warn("Shallow heartbeat missed")
	s.metrics.HeartbeatMissed(false)
}

// deepMissed reports a silently dead socket. An inactive session has nothing left to report.
func (s *Supervisor) deepMissed() {
	s.metrics.HeartbeatMissed(true)
	if !s.session.IsActive() {
		s.log.Debug("Deep heartbeat missed on inactive session")
		return
	}
	s.log.Error("Deep heartbeat missed")
	s.listener.OnConnectionEvent(domain.ConnectionBroken)
	s.listener.OnConnectionEvent(domain.DeepHeartbeatFailure)
}
