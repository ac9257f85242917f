package protocol

import (
	"chat-session/domain"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistoricalFrame_MatchesLiveShape(t *testing.T) {
	req := require.New(t)
	p := ChatPayload{ID: "m1", Type: TypeMessage, ParticipantRole: "AGENT", ContentType: domain.ContentTypePlainText, Content: "old"}

	raw, err := HistoricalFrame(p)
	req.NoError(err)

	var frame Frame
	req.NoError(json.Unmarshal(raw, &frame))
	req.Equal(TopicChat, frame.Topic)

	// Content travels as a JSON string, like live frames
	var inner string
	req.NoError(json.Unmarshal(frame.Content, &inner))
	req.Contains(inner, `"IsFromPastSession":true`)
}

func TestDecodeHistory(t *testing.T) {
	req := require.New(t)
	payloads := []ChatPayload{
		{ID: "m1", Type: TypeMessage, ParticipantRole: "CUSTOMER", AbsoluteTime: "2026-01-01T10:00:00Z", ContentType: domain.ContentTypePlainText, Content: "hello"},
		{ID: "e1", Type: TypeEvent, ContentType: domain.ContentTypeChatEnded},
		{ID: "bad", Type: "NOPE"},
	}

	items, errs := DecodeHistory(payloads)

	req.Len(items, 2)
	req.Len(errs, 1)
	req.True(items[0].FromPastSession)
	req.True(items[1].IsChatEnded())
	req.True(items[1].FromPastSession)
	req.Equal("hello", items[0].Message.Text)
}
