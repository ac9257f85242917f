package domain

const (
	ContentTypePlainText           = "text/plain"
	ContentTypeRichText            = "text/markdown"
	ContentTypeInteractive         = "application/vnd.amazonaws.connect.message.interactive"
	ContentTypeInteractiveResponse = "application/vnd.amazonaws.connect.message.interactive.response"

	eventPrefix = "application/vnd.amazonaws.connect.event."

	ContentTypeTyping                 = eventPrefix + "typing"
	ContentTypeParticipantJoined      = eventPrefix + "participant.joined"
	ContentTypeParticipantLeft        = eventPrefix + "participant.left"
	ContentTypeParticipantIdle        = eventPrefix + "participant.idle"
	ContentTypeParticipantReturned    = eventPrefix + "participant.returned"
	ContentTypeParticipantInvited     = eventPrefix + "participant.invited"
	ContentTypeAutoDisconnection      = eventPrefix + "participant.autodisconnection"
	ContentTypeChatEnded              = eventPrefix + "chat.ended"
	ContentTypeChatRehydrated         = eventPrefix + "chat.rehydrated"
	ContentTypeMessageDelivered       = eventPrefix + "message.delivered"
	ContentTypeMessageRead            = eventPrefix + "message.read"
	ContentTypeConnectionAcknowledged = eventPrefix + "connection.acknowledged"
)

var messageContentTypes = map[string]struct{}{
	ContentTypePlainText:           {},
	ContentTypeRichText:            {},
	ContentTypeInteractive:         {},
	ContentTypeInteractiveResponse: {},
}

var eventContentTypes = map[string]struct{}{
	ContentTypeTyping:                 {},
	ContentTypeParticipantJoined:      {},
	ContentTypeParticipantLeft:        {},
	ContentTypeParticipantIdle:        {},
	ContentTypeParticipantReturned:    {},
	ContentTypeParticipantInvited:     {},
	ContentTypeAutoDisconnection:      {},
	ContentTypeChatEnded:              {},
	ContentTypeChatRehydrated:         {},
	ContentTypeMessageDelivered:       {},
	ContentTypeMessageRead:            {},
	ContentTypeConnectionAcknowledged: {},
}

func IsMessageContentType(ct string) bool {
	_, ok := messageContentTypes[ct]
	return ok
}

func IsEventContentType(ct string) bool {
	_, ok := eventContentTypes[ct]
	return ok
}
