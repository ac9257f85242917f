// Package domain contains the core concepts of a chat session.
// This file defines transcript items, the unit of chat history.
// Items are a closed set of variants selected by Kind.
package domain

type ItemKind int

const (
	KindMessage ItemKind = iota
	KindEvent
	KindMetadata
)

func (k ItemKind) String() string {
	switch k {
	case KindMessage:
		return "MESSAGE"
	case KindEvent:
		return "EVENT"
	case KindMetadata:
		return "METADATA"
	default:
		return "UNKNOWN"
	}
}

type ParticipantRole string

const (
	RoleCustomer  ParticipantRole = "CUSTOMER"
	RoleAgent     ParticipantRole = "AGENT"
	RoleSystem    ParticipantRole = "SYSTEM"
	RoleCustomBot ParticipantRole = "CUSTOM_BOT"
)

type Direction string

const (
	Outgoing Direction = "Outgoing"
	Incoming Direction = "Incoming"
	Common   Direction = "Common"
)

// DirectionFor returns the side of the conversation a participant role writes from.
func DirectionFor(role ParticipantRole) Direction {
	if role == RoleCustomer {
		return Outgoing
	}
	return Incoming
}

// MessageStatus is the delivery state of a message. The zero value means no status is known.
type MessageStatus string

const (
	StatusNone      MessageStatus = ""
	StatusDelivered MessageStatus = "Delivered"
	StatusRead      MessageStatus = "Read"
	StatusSending   MessageStatus = "Sending"
	StatusFailed    MessageStatus = "Failed"
	StatusSent      MessageStatus = "Sent"
	StatusUnknown   MessageStatus = "Unknown"
)

// Resendable reports whether a message in this state may be sent again.
func (s MessageStatus) Resendable() bool {
	return s == StatusFailed || s == StatusUnknown
}

// TranscriptItem is one entry of the chat history.
// Only the variant matching Kind is meaningful.
type TranscriptItem struct {
	ID              string
	Timestamp       string
	ContentType     string
	Kind            ItemKind
	FromPastSession bool
	RawContent      map[string]any

	Message  Message
	Event    Event
	Metadata Metadata
}

type Message struct {
	ParticipantRole ParticipantRole
	ParticipantID   string
	Text            string
	Direction       Direction
	AttachmentID    string
	DisplayName     string
	Status          MessageStatus
}

type Event struct {
	ParticipantRole ParticipantRole
	ParticipantID   string
	Text            string
	DisplayName     string
	Direction       Direction
}

// Metadata carries receipt state for the message whose id it shares.
type Metadata struct {
	Status    MessageStatus
	Direction Direction
	Receipts  []Receipt
}

type Receipt struct {
	RecipientParticipantID string
	DeliveredTimestamp     string
	ReadTimestamp          string
}

// StatusFromReceipts folds receipts into a single status: Read wins over Delivered.
func StatusFromReceipts(receipts []Receipt) MessageStatus {
	status := StatusNone
	for _, r := range receipts {
		if r.ReadTimestamp != "" {
			return StatusRead
		}
		if r.DeliveredTimestamp != "" {
			status = StatusDelivered
		}
	}
	return status
}

func (t TranscriptItem) IsMessage() bool { return t.Kind == KindMessage }

func (t TranscriptItem) IsEvent() bool { return t.Kind == KindEvent }

func (t TranscriptItem) IsTyping() bool {
	return t.Kind == KindEvent && t.ContentType == ContentTypeTyping
}

func (t TranscriptItem) IsChatEnded() bool {
	return t.Kind == KindEvent && t.ContentType == ContentTypeChatEnded
}

// IsFailedMessage is true for messages whose last send attempt failed.
func (t TranscriptItem) IsFailedMessage() bool {
	return t.Kind == KindMessage && t.Message.Status == StatusFailed
}

// Role returns the participant role of a message or event, empty for metadata.
func (t TranscriptItem) Role() ParticipantRole {
	switch t.Kind {
	case KindMessage:
		return t.Message.ParticipantRole
	case KindEvent:
		return t.Event.ParticipantRole
	default:
		return ""
	}
}
