package connection

import (
	"chat-session/contract"
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketDialer opens sockets with gorilla/websocket. *websocket.Conn satisfies contract.Socket.
type WebsocketDialer struct {
	dialer *websocket.Dialer
}

func NewWebsocketDialer(handshakeTimeout time.Duration) *WebsocketDialer {
	return &WebsocketDialer{dialer: &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: handshakeTimeout,
	}}
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string) (contract.Socket, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// AlwaysOnline is the connectivity source used when the host has no network monitor.
type AlwaysOnline struct{}

func (AlwaysOnline) IsConnected() bool { return true }
