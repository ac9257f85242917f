package domain

// ChatEventType names a lifecycle event published to session subscribers.
type ChatEventType string

const (
	ConnectionEstablished   ChatEventType = "connectionEstablished"
	ConnectionReEstablished ChatEventType = "connectionReEstablished"
	ConnectionBroken        ChatEventType = "connectionBroken"
	DeepHeartbeatFailure    ChatEventType = "deepHeartbeatFailure"
	ChatEnded               ChatEventType = "chatEnded"
	Typing                  ChatEventType = "typing"
	ParticipantIdle         ChatEventType = "participantIdle"
	ParticipantReturned     ChatEventType = "participantReturned"
	ParticipantInvited      ChatEventType = "participantInvited"
	AutoDisconnection       ChatEventType = "autoDisconnection"
	ChatRehydrated          ChatEventType = "chatRehydrated"
	ReadReceipt             ChatEventType = "readReceipt"
	DeliveredReceipt        ChatEventType = "deliveredReceipt"
)

// ChatEvent is a lifecycle notification. Item is set when the event was derived
// from a transcript item (typing, participant state, receipts).
type ChatEvent struct {
	Type ChatEventType
	Item *TranscriptItem
}

// participantStateEvents maps event content types re-published on the lifecycle stream.
var participantStateEvents = map[string]ChatEventType{
	ContentTypeTyping:              Typing,
	ContentTypeParticipantIdle:     ParticipantIdle,
	ContentTypeParticipantReturned: ParticipantReturned,
	ContentTypeParticipantInvited:  ParticipantInvited,
	ContentTypeAutoDisconnection:   AutoDisconnection,
	ContentTypeChatRehydrated:      ChatRehydrated,
}

// LifecycleEventFor returns the lifecycle event an event content type maps to, if any.
func LifecycleEventFor(contentType string) (ChatEventType, bool) {
	t, ok := participantStateEvents[contentType]
	return t, ok
}
