// Package protocol encodes and decodes frames exchanged over the chat socket.
// Chat payloads are decoded once here into domain.TranscriptItem values.
package protocol

import (
	"bytes"
	"chat-session/domain"
	"chat-session/errors"
	"encoding/json"
	"fmt"
)

const (
	TopicSubscribe     = "aws/subscribe"
	TopicHeartbeat     = "aws/heartbeat"
	TopicDeepHeartbeat = "aws/ping"
	TopicChat          = "aws/chat"

	deepHeartbeatOKCode    = 200
	deepHeartbeatOKContent = "OK"
)

// Frame is the outer envelope of every socket message.
type Frame struct {
	Topic         string          `json:"topic"`
	Content       json.RawMessage `json:"content,omitempty"`
	ContentType   string          `json:"contentType,omitempty"`
	StatusCode    int             `json:"statusCode,omitempty"`
	StatusContent string          `json:"statusContent,omitempty"`
}

type subscribeContent struct {
	Topics []string `json:"topics"`
}

var (
	subscribeFrame     = mustMarshal(Frame{Topic: TopicSubscribe, Content: mustMarshal(subscribeContent{Topics: []string{TopicChat}})})
	heartbeatFrame     = mustMarshal(Frame{Topic: TopicHeartbeat})
	deepHeartbeatFrame = mustMarshal(Frame{Topic: TopicDeepHeartbeat})
)

// SubscribeFrame asks the gateway to stream chat payloads on this socket.
func SubscribeFrame() []byte { return subscribeFrame }

func HeartbeatFrame() []byte { return heartbeatFrame }

func DeepHeartbeatFrame() []byte { return deepHeartbeatFrame }

type InboundKind int

const (
	InboundHeartbeatAck InboundKind = iota
	InboundDeepHeartbeatAck
	InboundDeepHeartbeatFailure
	InboundChat
)

// Inbound is a decoded socket frame. Item is set for InboundChat only.
type Inbound struct {
	Kind InboundKind
	Item domain.TranscriptItem
}

// Decode parses one text frame received from the socket.
func Decode(data []byte) (Inbound, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	switch frame.Topic {
	case TopicHeartbeat:
		return Inbound{Kind: InboundHeartbeatAck}, nil
	case TopicDeepHeartbeat:
		if frame.StatusCode == deepHeartbeatOKCode && frame.StatusContent == deepHeartbeatOKContent {
			return Inbound{Kind: InboundDeepHeartbeatAck}, nil
		}
		return Inbound{Kind: InboundDeepHeartbeatFailure}, nil
	case TopicChat:
		payload, err := chatContent(frame.Content)
		if err != nil {
			return Inbound{}, err
		}
		item, err := DecodeChat(payload)
		if err != nil {
			return Inbound{}, err
		}
		return Inbound{Kind: InboundChat, Item: item}, nil
	default:
		return Inbound{}, fmt.Errorf("%w: %q", errors.ErrUnknownTopic, frame.Topic)
	}
}

// chatContent unwraps the envelope-within-envelope: content is a JSON string holding the payload.
func chatContent(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty chat content", errors.ErrMalformedFrame)
	}
	if trimmed[0] == '{' {
		return trimmed, nil
	}
	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return nil, fmt.Errorf("%w: chat content: %v", errors.ErrMalformedFrame, err)
	}
	return []byte(inner), nil
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
