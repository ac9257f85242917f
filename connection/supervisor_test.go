package connection

import (
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/errors"
	"chat-session/mocks"
	"chat-session/protocol"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// gateway is a fake chat gateway answering heartbeats the way the real one does.
type gateway struct {
	srv       *httptest.Server
	received  chan protocol.Frame
	push      chan []byte
	closeWith chan int
	pingReply string
}

func newGateway(t *testing.T, pingReply string) *gateway {
	t.Helper()
	g := &gateway{
		received:  make(chan protocol.Frame, 256),
		push:      make(chan []byte, 16),
		closeWith: make(chan int, 1),
		pingReply: pingReply,
	}
	g.srv = httptest.NewServer(http.HandlerFunc(g.handle))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *gateway) url() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http")
}

func (g *gateway) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	var writeMu sync.Mutex
	write := func(data []byte) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case data := <-g.push:
				write(data)
			case code := <-g.closeWith:
				writeMu.Lock()
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, "bye"), time.Now().Add(time.Second))
				writeMu.Unlock()
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame protocol.Frame
		if json.Unmarshal(data, &frame) != nil {
			continue
		}
		select {
		case g.received <- frame:
		default:
		}
		switch frame.Topic {
		case protocol.TopicHeartbeat:
			write([]byte(`{"topic":"aws/heartbeat"}`))
		case protocol.TopicDeepHeartbeat:
			if g.pingReply != "" {
				write([]byte(g.pingReply))
			}
		}
	}
}

type harness struct {
	supervisor *Supervisor
	session    *domain.SessionContext
	listener   *mocks.MockConnectionListener
	metrics    *mocks.MockMetrics
	events     chan domain.ChatEventType
	items      chan domain.TranscriptItem
	reconnects chan struct{}
}

func newHarness(t *testing.T, ctrl *gomock.Controller, connectivity contract.Connectivity) *harness {
	t.Helper()
	h := &harness{
		session:    domain.NewSessionContext(),
		listener:   mocks.NewMockConnectionListener(ctrl),
		metrics:    mocks.NewMockMetrics(ctrl),
		events:     make(chan domain.ChatEventType, 32),
		items:      make(chan domain.TranscriptItem, 32),
		reconnects: make(chan struct{}, 8),
	}
	h.listener.EXPECT().OnConnectionEvent(gomock.Any()).Do(func(evt domain.ChatEventType) { h.events <- evt }).AnyTimes()
	h.listener.EXPECT().OnTranscriptItem(gomock.Any()).Do(func(item domain.TranscriptItem) { h.items <- item }).AnyTimes()
	h.listener.EXPECT().OnReconnectRequired().Do(func() { h.reconnects <- struct{}{} }).AnyTimes()
	h.metrics.EXPECT().HeartbeatMissed(gomock.Any()).AnyTimes()
	h.metrics.EXPECT().FrameDropped().AnyTimes()
	h.metrics.EXPECT().ReconnectRequested().AnyTimes()

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	opts := Options{HeartbeatInterval: 20 * time.Millisecond, DeepHeartbeatInterval: 40 * time.Millisecond}
	h.supervisor = NewSupervisor(log, NewWebsocketDialer(time.Second), h.session, connectivity, h.metrics, h.listener, opts)
	t.Cleanup(func() { h.supervisor.Disconnect("test done") })
	return h
}

func waitEvent(t *testing.T, events chan domain.ChatEventType, want domain.ChatEventType) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-events:
			if evt == want {
				return
			}
		case <-deadline:
			t.Fatalf("event %s not received", want)
		}
	}
}

func waitSignal(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("signal not received")
	}
}

const okPing = `{"topic":"aws/ping","statusCode":200,"statusContent":"OK"}`

func TestSupervisor_ConnectSubscribesAndStreamsItems(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	g := newGateway(t, okPing)
	h := newHarness(t, ctrl, nil)

	// When the supervisor connects for the first time
	req.NoError(h.supervisor.Connect(context.Background(), g.url(), false))

	// Then it subscribes to chat traffic and reports the connection
	select {
	case frame := <-g.received:
		req.Equal(protocol.TopicSubscribe, frame.Topic)
		req.JSONEq(`{"topics":["aws/chat"]}`, string(frame.Content))
	case <-time.After(time.Second):
		req.Fail("subscribe frame not received")
	}
	waitEvent(t, h.events, domain.ConnectionEstablished)
	req.Equal(domain.Open, h.supervisor.State())

	// A malformed frame is dropped and the stream keeps going
	g.push <- []byte(`{"topic":"aws/chat","content":"{broken"}`)
	payload, _ := json.Marshal(`{"Id":"m1","Type":"MESSAGE","ParticipantRole":"AGENT","ContentType":"text/plain","Content":"hi"}`)
	g.push <- []byte(`{"topic":"aws/chat","content":` + string(payload) + `}`)

	select {
	case item := <-h.items:
		req.Equal("m1", item.ID)
		req.Equal("hi", item.Message.Text)
	case <-time.After(time.Second):
		req.Fail("item not delivered")
	}
}

func TestSupervisor_HealthyHeartbeatsNeverBreak(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	g := newGateway(t, okPing)
	h := newHarness(t, ctrl, nil)

	req.NoError(h.supervisor.Connect(context.Background(), g.url(), true))
	waitEvent(t, h.events, domain.ConnectionReEstablished)

	time.Sleep(200 * time.Millisecond)
	for {
		select {
		case evt := <-h.events:
			req.NotEqual(domain.ConnectionBroken, evt)
			continue
		default:
		}
		break
	}
}

func TestSupervisor_DeepHeartbeatMissed(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	// Given a gateway that never answers deep heartbeats
	g := newGateway(t, "")
	h := newHarness(t, ctrl, nil)
	h.session.SetActive(true)

	req.NoError(h.supervisor.Connect(context.Background(), g.url(), false))

	// Then the connection is reported broken
	waitEvent(t, h.events, domain.ConnectionBroken)
	waitEvent(t, h.events, domain.DeepHeartbeatFailure)
}

func TestSupervisor_DeepHeartbeatMissedOnInactiveSessionIsSilent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	// Given a gateway that never answers deep heartbeats and a session that has ended
	g := newGateway(t, "")
	h := newHarness(t, ctrl, nil)

	req.NoError(h.supervisor.Connect(context.Background(), g.url(), false))

	// Then several missed deep heartbeats report nothing
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case evt := <-h.events:
			req.NotEqual(domain.ConnectionBroken, evt)
			req.NotEqual(domain.DeepHeartbeatFailure, evt)
		case <-deadline:
			return
		}
	}
}

func TestSupervisor_DeepHeartbeatWithoutOKIsFailure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	g := newGateway(t, `{"topic":"aws/ping","statusCode":503,"statusContent":"Unavailable"}`)
	h := newHarness(t, ctrl, nil)
	h.session.SetActive(true)

	req.NoError(h.supervisor.Connect(context.Background(), g.url(), false))

	waitEvent(t, h.events, domain.DeepHeartbeatFailure)
}

func TestSupervisor_ServerErrorTriggersReconnectWhenActive(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	g := newGateway(t, okPing)
	h := newHarness(t, ctrl, nil)
	h.session.SetActive(true)

	req.NoError(h.supervisor.Connect(context.Background(), g.url(), false))
	waitEvent(t, h.events, domain.ConnectionEstablished)

	// When the gateway closes with an internal error
	g.closeWith <- websocket.CloseInternalServerErr

	// Then a fresh connection is requested
	waitSignal(t, h.reconnects)
	req.Equal(domain.Disconnected, h.supervisor.State())
}

func TestSupervisor_NoReconnectWhenInactive(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	g := newGateway(t, okPing)
	h := newHarness(t, ctrl, nil)

	req.NoError(h.supervisor.Connect(context.Background(), g.url(), false))
	waitEvent(t, h.events, domain.ConnectionEstablished)

	g.closeWith <- websocket.CloseInternalServerErr

	req.Eventually(func() bool { return h.supervisor.State() == domain.Disconnected }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	req.Empty(h.reconnects)
}

func TestSupervisor_SuspendBlocksReconnectUntilResume(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	g := newGateway(t, okPing)
	h := newHarness(t, ctrl, nil)
	h.session.SetActive(true)

	req.NoError(h.supervisor.Connect(context.Background(), g.url(), false))
	waitEvent(t, h.events, domain.ConnectionEstablished)

	h.supervisor.Suspend()
	req.True(h.supervisor.Suspended())
	req.Equal(domain.Disconnected, h.supervisor.State())

	// Network coming back while suspended does nothing
	h.supervisor.NetworkRestored()
	req.Empty(h.reconnects)

	h.supervisor.Resume()
	waitSignal(t, h.reconnects)
	req.False(h.supervisor.Suspended())
}

func TestSupervisor_OfflineWaitsForNetwork(t *testing.T) {
	ctrl := gomock.NewController(t)
	connectivity := mocks.NewMockConnectivity(ctrl)
	online := false
	var mu sync.Mutex
	connectivity.EXPECT().IsConnected().DoAndReturn(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return online
	}).AnyTimes()
	h := newHarness(t, ctrl, connectivity)
	h.session.SetActive(true)

	// Offline: resume does not ask for a connection
	h.supervisor.Resume()
	require.Empty(t, h.reconnects)

	mu.Lock()
	online = true
	mu.Unlock()
	h.supervisor.NetworkRestored()
	waitSignal(t, h.reconnects)
}

func TestSupervisor_DialFailure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	// Given an endpoint that refuses the websocket upgrade
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	h := newHarness(t, ctrl, nil)
	h.session.SetActive(true)

	err := h.supervisor.Connect(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), true)

	// Then the error is returned and classified as a bad server response
	req.ErrorIs(err, errors.ErrDialFailed)
	req.ErrorIs(err, errors.ErrTransport)
	waitSignal(t, h.reconnects)
	req.Equal(domain.Disconnected, h.supervisor.State())
}

func TestSupervisor_DisconnectIsIdempotent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	g := newGateway(t, okPing)
	h := newHarness(t, ctrl, nil)
	h.session.SetActive(true)

	req.NoError(h.supervisor.Connect(context.Background(), g.url(), false))
	waitEvent(t, h.events, domain.ConnectionEstablished)

	h.supervisor.Disconnect("user")
	h.supervisor.Disconnect("user")

	// A deliberate close never asks for a reconnection
	time.Sleep(50 * time.Millisecond)
	req.Empty(h.reconnects)
	req.Equal(domain.Disconnected, h.supervisor.State())
}
