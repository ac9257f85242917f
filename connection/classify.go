package connection

import (
	"errors"
	"net"
	"os"
	"syscall"

	"github.com/gorilla/websocket"
)

// ErrorClass decides how the supervisor reacts to a socket failure.
type ErrorClass int

const (
	ClassOther ErrorClass = iota
	ClassSoftwareAbort
	ClassTimedOut
	ClassBadServerResponse
	ClassNetworkLost
)

func (c ErrorClass) String() string {
	switch c {
	case ClassSoftwareAbort:
		return "software_abort"
	case ClassTimedOut:
		return "timed_out"
	case ClassBadServerResponse:
		return "bad_server_response"
	case ClassNetworkLost:
		return "network_lost"
	default:
		return "other"
	}
}

// Reconnectable is true for failures worth an immediate reconnection attempt.
func (c ErrorClass) Reconnectable() bool {
	return c == ClassSoftwareAbort || c == ClassTimedOut || c == ClassBadServerResponse
}

// Classify maps a transport error onto an ErrorClass.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassOther
	}
	switch {
	case errors.Is(err, syscall.ECONNABORTED):
		return ClassSoftwareAbort
	case errors.Is(err, syscall.ETIMEDOUT), errors.Is(err, os.ErrDeadlineExceeded):
		return ClassTimedOut
	case errors.Is(err, websocket.ErrBadHandshake):
		return ClassBadServerResponse
	case errors.Is(err, syscall.ENETDOWN), errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return ClassNetworkLost
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseInternalServerErr, websocket.CloseServiceRestart, websocket.CloseTryAgainLater:
			return ClassBadServerResponse
		}
		return ClassOther
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimedOut
	}
	return ClassOther
}
