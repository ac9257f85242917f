package protocol

import (
	"chat-session/domain"
	"chat-session/errors"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// chatFrame wraps an inner payload the way the gateway does: as a JSON string.
func chatFrame(t *testing.T, payload string) []byte {
	t.Helper()
	content, err := json.Marshal(payload)
	require.NoError(t, err)
	frame, err := json.Marshal(Frame{Topic: TopicChat, Content: content})
	require.NoError(t, err)
	return frame
}

func TestControlFrames(t *testing.T) {
	req := require.New(t)

	req.JSONEq(`{"topic":"aws/subscribe","content":{"topics":["aws/chat"]}}`, string(SubscribeFrame()))
	req.JSONEq(`{"topic":"aws/heartbeat"}`, string(HeartbeatFrame()))
	req.JSONEq(`{"topic":"aws/ping"}`, string(DeepHeartbeatFrame()))
}

func TestDecode_Heartbeats(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name  string
		frame string
		want  InboundKind
	}{
		{"shallow ack", `{"topic":"aws/heartbeat"}`, InboundHeartbeatAck},
		{"deep ack", `{"topic":"aws/ping","statusCode":200,"statusContent":"OK"}`, InboundDeepHeartbeatAck},
		{"deep wrong code", `{"topic":"aws/ping","statusCode":500,"statusContent":"OK"}`, InboundDeepHeartbeatFailure},
		{"deep wrong text", `{"topic":"aws/ping","statusCode":200,"statusContent":"KO"}`, InboundDeepHeartbeatFailure},
		{"deep bare", `{"topic":"aws/ping"}`, InboundDeepHeartbeatFailure},
	}
	for _, tt := range tests {
		inbound, err := Decode([]byte(tt.frame))
		req.NoError(err, tt.name)
		req.Equal(tt.want, inbound.Kind, tt.name)
	}
}

func TestDecode_Rejects(t *testing.T) {
	req := require.New(t)

	_, err := Decode([]byte(`{not json`))
	req.ErrorIs(err, errors.ErrMalformedFrame)

	_, err = Decode([]byte(`{"topic":"aws/unknown"}`))
	req.ErrorIs(err, errors.ErrUnknownTopic)

	_, err = Decode([]byte(`{"topic":"aws/chat"}`))
	req.ErrorIs(err, errors.ErrMalformedFrame)

	_, err = Decode(chatFrame(t, `{"Id":"x","Type":"SOMETHING"}`))
	req.ErrorIs(err, errors.ErrUnknownItemType)

	_, err = Decode(chatFrame(t, `{"Id":"x","Type":"EVENT","ContentType":"application/vnd.amazonaws.connect.event.unknown"}`))
	req.ErrorIs(err, errors.ErrUnknownContentType)

	// Every rejection is a decode error, never anything else
	req.ErrorIs(err, errors.ErrProtocolDecode)
}

func TestDecode_Message(t *testing.T) {
	req := require.New(t)
	payload := `{"Id":"m1","Type":"MESSAGE","ParticipantRole":"AGENT","ParticipantId":"p1","AbsoluteTime":"2026-01-01T10:00:00.000Z","ContentType":"text/plain","Content":"hi","DisplayName":"Ana"}`

	inbound, err := Decode(chatFrame(t, payload))

	req.NoError(err)
	req.Equal(InboundChat, inbound.Kind)
	item := inbound.Item
	req.Equal(domain.KindMessage, item.Kind)
	req.Equal("m1", item.ID)
	req.Equal("2026-01-01T10:00:00.000Z", item.Timestamp)
	req.Equal("hi", item.Message.Text)
	req.Equal(domain.Incoming, item.Message.Direction)
	req.Equal("Ana", item.Message.DisplayName)
	req.Equal(domain.StatusNone, item.Message.Status)
	req.False(item.FromPastSession)
	req.Equal("hi", item.RawContent["Content"])
}

func TestDecode_MessageWithEmbeddedMetadata(t *testing.T) {
	req := require.New(t)
	payload := `{"Id":"m1","Type":"MESSAGE","ParticipantRole":"CUSTOMER","ContentType":"text/plain","Content":"yo","MessageMetadata":{"MessageId":"m1","Receipts":[{"DeliveredTimestamp":"t1"}]}}`

	inbound, err := Decode(chatFrame(t, payload))

	req.NoError(err)
	req.Equal(domain.Outgoing, inbound.Item.Message.Direction)
	req.Equal(domain.StatusDelivered, inbound.Item.Message.Status)
}

func TestDecode_Event(t *testing.T) {
	req := require.New(t)
	payload := `{"Id":"e1","Type":"EVENT","ParticipantRole":"AGENT","ContentType":"application/vnd.amazonaws.connect.event.typing","DisplayName":"Ana"}`

	inbound, err := Decode(chatFrame(t, payload))

	req.NoError(err)
	req.Equal(domain.KindEvent, inbound.Item.Kind)
	req.True(inbound.Item.IsTyping())
	req.Equal(domain.Common, inbound.Item.Event.Direction)
	req.Equal("Ana", inbound.Item.Event.DisplayName)
}

func TestDecode_AttachmentUsesFirstDescriptor(t *testing.T) {
	req := require.New(t)
	payload := `{"Id":"a1","Type":"ATTACHMENT","ParticipantRole":"CUSTOMER","Attachments":[{"AttachmentId":"srv-1","AttachmentName":"doc.pdf","ContentType":"application/pdf","Status":"APPROVED"},{"AttachmentId":"srv-2","AttachmentName":"other.png","ContentType":"image/png"}]}`

	inbound, err := Decode(chatFrame(t, payload))

	req.NoError(err)
	item := inbound.Item
	req.Equal(domain.KindMessage, item.Kind)
	req.Equal("srv-1", item.Message.AttachmentID)
	req.Equal("doc.pdf", item.Message.Text)
	req.Equal("application/pdf", item.ContentType)

	_, err = Decode(chatFrame(t, `{"Id":"a2","Type":"ATTACHMENT","Attachments":[]}`))
	req.ErrorIs(err, errors.ErrMalformedFrame)
}

func TestDecode_Metadata(t *testing.T) {
	req := require.New(t)
	payload := `{"Id":"md1","Type":"MESSAGEMETADATA","MessageMetadata":{"MessageId":"m1","Receipts":[{"DeliveredTimestamp":"t1","RecipientParticipantId":"agent"},{"ReadTimestamp":"t2","RecipientParticipantId":"agent"}]}}`

	inbound, err := Decode(chatFrame(t, payload))

	req.NoError(err)
	item := inbound.Item
	req.Equal(domain.KindMetadata, item.Kind)
	req.Equal("m1", item.ID)
	req.Equal(domain.StatusRead, item.Metadata.Status)
	req.Len(item.Metadata.Receipts, 2)

	_, err = Decode(chatFrame(t, `{"Id":"md2","Type":"MESSAGEMETADATA"}`))
	req.ErrorIs(err, errors.ErrMalformedFrame)
}

func TestDecode_ObjectContentIsAccepted(t *testing.T) {
	req := require.New(t)

	inbound, err := Decode([]byte(`{"topic":"aws/chat","content":{"Id":"m1","Type":"MESSAGE","Content":"x"}}`))

	req.NoError(err)
	req.Equal("m1", inbound.Item.ID)
}
