package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusFromReceipts(t *testing.T) {
	req := require.New(t)

	req.Equal(StatusNone, StatusFromReceipts(nil))
	req.Equal(StatusDelivered, StatusFromReceipts([]Receipt{{DeliveredTimestamp: "2026-01-01T00:00:00Z"}}))
	// Read wins whatever the order
	req.Equal(StatusRead, StatusFromReceipts([]Receipt{
		{DeliveredTimestamp: "2026-01-01T00:00:00Z"},
		{ReadTimestamp: "2026-01-01T00:00:01Z"},
	}))
	req.Equal(StatusRead, StatusFromReceipts([]Receipt{
		{ReadTimestamp: "2026-01-01T00:00:01Z"},
		{DeliveredTimestamp: "2026-01-01T00:00:00Z"},
	}))
}

func TestPendingReceipts_Normalize(t *testing.T) {
	req := require.New(t)

	p := PendingReceipts{DeliveredMessageID: "m1", ReadMessageID: "m1"}.Normalize()
	req.Equal(PendingReceipts{ReadMessageID: "m1"}, p)

	p = PendingReceipts{DeliveredMessageID: "m1", ReadMessageID: "m2"}.Normalize()
	req.Equal("m1", p.DeliveredMessageID)
	req.False(p.IsEmpty())
	req.True(PendingReceipts{}.IsEmpty())
}

func TestTranscriptItem_Predicates(t *testing.T) {
	req := require.New(t)

	typing := TranscriptItem{ID: "t", Kind: KindEvent, ContentType: ContentTypeTyping}
	ended := TranscriptItem{ID: "e", Kind: KindEvent, ContentType: ContentTypeChatEnded}
	failed := TranscriptItem{ID: "m", Kind: KindMessage, Message: Message{Status: StatusFailed}}

	req.True(typing.IsTyping())
	req.False(typing.IsChatEnded())
	req.True(ended.IsChatEnded())
	req.True(failed.IsFailedMessage())
	req.True(failed.Message.Status.Resendable())
	req.False(StatusSent.Resendable())
	req.Equal("METADATA", KindMetadata.String())
}

func TestDirectionFor(t *testing.T) {
	req := require.New(t)
	req.Equal(Outgoing, DirectionFor(RoleCustomer))
	req.Equal(Incoming, DirectionFor(RoleAgent))
	req.Equal(Incoming, DirectionFor(RoleSystem))
}

func TestSessionContext(t *testing.T) {
	req := require.New(t)
	s := NewSessionContext()

	_, ok := s.ConnectionDetails()
	req.False(ok)

	s.SetChatDetails(ChatDetails{ParticipantToken: "p"})
	s.SetConnectionDetails(ConnectionDetails{WebsocketURL: "wss://x", ConnectionToken: "c"})
	s.SetActive(true)

	details, ok := s.ConnectionDetails()
	req.True(ok)
	req.Equal("c", details.ConnectionToken)
	req.True(s.IsActive())

	s.Reset()
	_, ok = s.ChatDetails()
	req.False(ok)
	req.False(s.IsActive())
}

func TestLifecycleEventFor(t *testing.T) {
	req := require.New(t)

	evt, ok := LifecycleEventFor(ContentTypeParticipantIdle)
	req.True(ok)
	req.Equal(ParticipantIdle, evt)

	_, ok = LifecycleEventFor(ContentTypeParticipantJoined)
	req.False(ok)
}
